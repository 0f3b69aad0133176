package scenarios

import (
	"context"
	"net/http"
	"net/http/httptest"
	"net/url"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/kuitang/movie-e2e/internal/browser"
	"github.com/kuitang/movie-e2e/internal/errs"
	"github.com/kuitang/movie-e2e/internal/fixtures"
	"github.com/kuitang/movie-e2e/internal/lifecycle"
	"github.com/kuitang/movie-e2e/internal/report"
	"github.com/kuitang/movie-e2e/internal/tmdb"
)

func defaultData(t *testing.T) *fixtures.Data {
	t.Helper()
	d, err := fixtures.Default()
	require.NoError(t, err)
	return d
}

func TestUI_CaseIDs(t *testing.T) {
	t.Parallel()
	cases := UI(&defaultData(t).UI, time.Second, nil)

	var ids []string
	for _, c := range cases {
		ids = append(ids, c.ID)
		require.NotNil(t, c.Body, c.ID)
		assert.Contains(t, c.Tags, TagUI, c.ID)
	}
	want := []string{
		"test_category_filter[popular]",
		"test_category_filter[trend]",
		"test_category_filter[newest]",
		"test_category_filter[top-rated]",
		"test_type_filter[Movie]",
		"test_type_filter[TV Shows]",
		"test_year_range_filter[2000-2010]",
		"test_year_range_filter[2015-2020]",
		"test_star_rating[1]",
		"test_star_rating[2]",
		"test_genre_filter",
		"test_pagination",
		"test_refresh_category[popular]",
		"test_refresh_category[trend]",
		"test_refresh_category[newest]",
		"test_refresh_category[top-rated]",
		"test_broken_pages",
	}
	if diff := cmp.Diff(want, ids); diff != "" {
		t.Fatalf("UI case IDs mismatch (-want +got):\n%s", diff)
	}
}

func TestAPI_CaseIDs(t *testing.T) {
	t.Parallel()
	cases := API(&defaultData(t).API, nil, nil)

	var ids []string
	for _, c := range cases {
		ids = append(ids, c.ID)
	}
	want := []string{
		"test_api_category[popular]",
		"test_api_category[top_rated]",
		"test_api_category[now_playing]",
		"test_api_rating",
		"test_api_year_range[2000-2010]",
		"test_api_year_range[2015-2025]",
		"test_api_pagination[1]",
		"test_api_pagination[2]",
		"test_api_pagination[3]",
		"test_api_pagination[4]",
	}
	if diff := cmp.Diff(want, ids); diff != "" {
		t.Fatalf("API case IDs mismatch (-want +got):\n%s", diff)
	}
}

func TestMatchesTags(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name             string
		tags             []string
		include, exclude []string
		want             bool
	}{
		{"no filters", []string{TagUI}, nil, nil, true},
		{"included", []string{TagUI, TagPagination}, []string{TagPagination}, nil, true},
		{"not included", []string{TagUI, TagFilter}, []string{TagPagination}, nil, false},
		{"excluded", []string{TagUI, TagPagination}, nil, []string{TagPagination}, false},
		{"exclude wins", []string{TagUI, TagPagination}, []string{TagUI}, []string{TagPagination}, false},
		{"untagged with include", nil, []string{TagUI}, nil, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := MatchesTags(tt.tags, tt.include, tt.exclude); got != tt.want {
				t.Fatalf("MatchesTags(%v, %v, %v) = %v, want %v", tt.tags, tt.include, tt.exclude, got, tt.want)
			}
		})
	}
}

func TestFilterUI_PaginationOnly(t *testing.T) {
	t.Parallel()
	cases := FilterUI(UI(&defaultData(t).UI, time.Second, nil), []string{TagPagination}, nil)
	var ids []string
	for _, c := range cases {
		ids = append(ids, c.ID)
	}
	assert.Equal(t, []string{"test_pagination", "test_broken_pages"}, ids)
}

func TestFilterAPI_ExcludeFilter(t *testing.T) {
	t.Parallel()
	cases := FilterAPI(API(&defaultData(t).API, nil, nil), nil, []string{TagFilter, TagPagination})
	for _, c := range cases {
		assert.NotContains(t, c.Tags, TagFilter, c.ID)
	}
	assert.Len(t, cases, 3)
}

// fakeAPI serves body for every request and counts calls.
type fakeAPI struct {
	status int
	body   string
	calls  atomic.Int32
	query  atomic.Value
	path   atomic.Value
}

func newFakeAPI(t *testing.T, status int, body string) (*fakeAPI, *tmdb.Client) {
	t.Helper()
	f := &fakeAPI{status: status, body: body}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		f.calls.Add(1)
		f.path.Store(r.URL.Path)
		f.query.Store(r.URL.Query())
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(f.status)
		_, _ = w.Write([]byte(f.body))
	}))
	t.Cleanup(srv.Close)
	client := tmdb.New(tmdb.Options{BaseURL: srv.URL, APIKey: "test-key", Timeout: 5 * time.Second})
	return f, client
}

func runCheck(t *testing.T, c APICase) report.Entry {
	t.Helper()
	ctrl := lifecycle.New[*browser.Session](nil, lifecycle.Options{Logger: zaptest.NewLogger(t)})
	return ctrl.RunCheck(context.Background(), c.ID, c.Body, c.Tags...)
}

func findAPI(t *testing.T, client MovieAPI, id string) APICase {
	t.Helper()
	for _, c := range API(&defaultData(t).API, client, zaptest.NewLogger(t)) {
		if c.ID == id {
			return c
		}
	}
	t.Fatalf("no API case %q", id)
	return APICase{}
}

const goodList = `{
  "page": 1,
  "results": [
    {"id": 10, "title": "Alpha", "release_date": "2004-03-01", "vote_average": 4.5},
    {"id": 11, "title": "Beta", "release_date": "2008-07-19", "vote_average": 5}
  ],
  "total_pages": 9,
  "total_results": 180
}`

func TestAPICategory_Passes(t *testing.T) {
	t.Parallel()
	f, client := newFakeAPI(t, http.StatusOK, goodList)

	entry := runCheck(t, findAPI(t, client, "test_api_category[top_rated]"))
	require.Equal(t, report.StatusPassed, entry.Status, entry.Reason)
	assert.Equal(t, "/movie/top_rated", f.path.Load())
	assert.Empty(t, entry.Artifacts)
}

func TestAPICategory_EmptyResultsFails(t *testing.T) {
	t.Parallel()
	_, client := newFakeAPI(t, http.StatusOK, `{"page":1,"results":[],"total_pages":0,"total_results":0}`)

	entry := runCheck(t, findAPI(t, client, "test_api_category[popular]"))
	require.Equal(t, report.StatusFailed, entry.Status)
	assert.Contains(t, entry.Reason, "no movies found for popular")
	assert.Equal(t, errs.Assertion, entry.ErrorCode)
}

func TestAPICategory_MissingFieldFails(t *testing.T) {
	t.Parallel()
	_, client := newFakeAPI(t, http.StatusOK, `{"results":[{"id":1,"title":"No Date","vote_average":3}]}`)

	entry := runCheck(t, findAPI(t, client, "test_api_category[popular]"))
	require.Equal(t, report.StatusFailed, entry.Status)
	assert.Contains(t, entry.Reason, "results.0.release_date")
}

func TestAPICategory_ServerErrorIsErroredWithoutRetry(t *testing.T) {
	t.Parallel()
	f, client := newFakeAPI(t, http.StatusInternalServerError, `{"status_message":"boom"}`)

	entry := runCheck(t, findAPI(t, client, "test_api_category[popular]"))
	require.Equal(t, report.StatusErrored, entry.Status)
	assert.Equal(t, errs.Network, entry.ErrorCode)
	assert.Equal(t, int32(1), f.calls.Load())
	assert.Empty(t, entry.Artifacts)
}

func TestAPIRating_SendsFiltersAndChecksVotes(t *testing.T) {
	t.Parallel()
	f, client := newFakeAPI(t, http.StatusOK, goodList)

	entry := runCheck(t, findAPI(t, client, "test_api_rating"))
	require.Equal(t, report.StatusPassed, entry.Status, entry.Reason)
	assert.Equal(t, "/discover/movie", f.path.Load())

	q := f.query.Load().(url.Values)
	for key, want := range map[string]string{
		"sort_by":          "popularity.desc",
		"release_date.gte": "1900-01-01",
		"release_date.lte": "2025-12-31",
		"vote_average.gte": "5",
		"vote_average.lte": "5",
		"page":             "1",
		"api_key":          "test-key",
	} {
		assert.Equal(t, []string{want}, q[key], key)
	}
}

func TestAPIRating_HighVoteFails(t *testing.T) {
	t.Parallel()
	_, client := newFakeAPI(t, http.StatusOK, `{
  "page": 1, "total_pages": 1, "total_results": 1,
  "results": [{"id": 3, "title": "Too Good", "release_date": "2001-01-01", "vote_average": 8.2}]
}`)

	entry := runCheck(t, findAPI(t, client, "test_api_rating"))
	require.Equal(t, report.StatusFailed, entry.Status)
	assert.Contains(t, entry.Reason, "Too Good has vote_average > 5")
}

func TestAPIRating_MissingKeysFails(t *testing.T) {
	t.Parallel()
	_, client := newFakeAPI(t, http.StatusOK, `{"results":[]}`)

	entry := runCheck(t, findAPI(t, client, "test_api_rating"))
	require.Equal(t, report.StatusFailed, entry.Status)
	assert.Contains(t, entry.Reason, "total_pages")
}

func TestAPIYearRange(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name   string
		body   string
		status report.Status
		reason string
	}{
		{"in range", goodList, report.StatusPassed, ""},
		{
			"out of range",
			`{"results":[{"id":1,"title":"Late","release_date":"2019-02-02","vote_average":2}]}`,
			report.StatusFailed,
			`"Late" (2019) is not in range 2000-2010`,
		},
		{
			"missing release date",
			`{"results":[{"id":1,"title":"Undated","release_date":"","vote_average":2}]}`,
			report.StatusFailed,
			"Undated",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			f, client := newFakeAPI(t, http.StatusOK, tt.body)
			entry := runCheck(t, findAPI(t, client, "test_api_year_range[2000-2010]"))
			require.Equal(t, tt.status, entry.Status, entry.Reason)
			assert.Contains(t, entry.Reason, tt.reason)

			q := f.query.Load().(url.Values)
			assert.Equal(t, []string{"2000-01-01"}, q["release_date.gte"])
			assert.Equal(t, []string{"2010-12-31"}, q["release_date.lte"])
			assert.Equal(t, []string{"0"}, q["vote_average.gte"])
		})
	}
}

func TestAPIPagination_RequestsPage(t *testing.T) {
	t.Parallel()
	f, client := newFakeAPI(t, http.StatusOK, goodList)

	entry := runCheck(t, findAPI(t, client, "test_api_pagination[3]"))
	require.Equal(t, report.StatusPassed, entry.Status, entry.Reason)
	assert.Equal(t, "/movie/popular", f.path.Load())
	q := f.query.Load().(url.Values)
	assert.Equal(t, []string{"3"}, q["page"])
}
