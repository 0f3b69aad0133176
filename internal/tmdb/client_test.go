package tmdb

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/kuitang/movie-e2e/internal/errs"
)

const popularBody = `{
  "page": 1,
  "results": [
    {"id": 1, "title": "Alpha", "release_date": "2001-05-04", "vote_average": 7.1},
    {"id": 2, "title": "Beta", "release_date": "2009-11-20", "vote_average": 4.2}
  ],
  "total_pages": 3,
  "total_results": 60
}`

func TestMovieList(t *testing.T) {
	t.Parallel()
	var gotPath, gotQuery string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotQuery = r.URL.RawQuery
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(popularBody))
	}))
	t.Cleanup(srv.Close)

	c := New(Options{BaseURL: srv.URL + "/3/", APIKey: "secret"})
	resp, err := c.MovieList(context.Background(), "popular", 1)
	require.NoError(t, err)

	assert.Equal(t, "/3/movie/popular", gotPath)
	assert.Equal(t, "api_key=secret&page=1", gotQuery)
	assert.Equal(t, 3, resp.TotalPages)
	require.Len(t, resp.Results, 2)
	assert.Equal(t, "Alpha", resp.Results[0].Title)
	assert.NotContains(t, resp.URL, "secret")
	assert.Empty(t, MissingKeys(resp.Raw, "page", "results", "total_pages", "total_results"))
	assert.Empty(t, MissingMovieFields(resp.Raw, 5, "title", "release_date", "vote_average", "id"))
}

func TestDiscover_EncodesFilters(t *testing.T) {
	t.Parallel()
	var got string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got = r.URL.RawQuery
		_, _ = w.Write([]byte(popularBody))
	}))
	t.Cleanup(srv.Close)

	five := 5.0
	c := New(Options{BaseURL: srv.URL, APIKey: "k"})
	_, err := c.Discover(context.Background(), DiscoverParams{
		SortBy:         "popularity.desc",
		ReleaseDateGTE: "1900-01-01",
		ReleaseDateLTE: "2025-12-31",
		VoteAverageGTE: &five,
		VoteAverageLTE: &five,
		Page:           1,
	})
	require.NoError(t, err)

	want := "api_key=k&page=1&release_date.gte=1900-01-01&release_date.lte=2025-12-31&sort_by=popularity.desc&vote_average.gte=5&vote_average.lte=5"
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("query mismatch (-want +got):\n%s", diff)
	}
}

func TestGet_ServerErrorIsNotRetried(t *testing.T) {
	t.Parallel()
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = w.Write([]byte(`{"status_message":"boom","api_key":"echoed"}`))
	}))
	t.Cleanup(srv.Close)

	core, logs := observer.New(zapcore.InfoLevel)
	c := New(Options{BaseURL: srv.URL, APIKey: "echoed", Logger: zap.New(core)})
	_, err := c.MovieList(context.Background(), "top_rated", 1)

	require.Error(t, err)
	assert.Equal(t, errs.Network, errs.CodeOf(err))
	var statusErr *StatusError
	require.True(t, errors.As(err, &statusErr))
	assert.Equal(t, http.StatusInternalServerError, statusErr.StatusCode)
	assert.Equal(t, int32(1), calls.Load())

	for _, entry := range logs.All() {
		for _, f := range entry.Context {
			assert.NotContains(t, f.String, "echoed", "api key leaked in %q", entry.Message)
		}
	}
}

func TestGet_Timeout(t *testing.T) {
	t.Parallel()
	release := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	}))
	t.Cleanup(func() {
		close(release)
		srv.Close()
	})

	c := New(Options{BaseURL: srv.URL, Timeout: 50 * time.Millisecond})
	_, err := c.MovieList(context.Background(), "popular", 1)
	require.Error(t, err)
	assert.Equal(t, errs.Timeout, errs.CodeOf(err))
}

func TestGet_MalformedJSON(t *testing.T) {
	t.Parallel()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("<html>maintenance</html>"))
	}))
	t.Cleanup(srv.Close)

	_, err := New(Options{BaseURL: srv.URL}).MovieList(context.Background(), "popular", 1)
	assert.Equal(t, errs.Network, errs.CodeOf(err))
}

func TestMovieList_RequiresCategory(t *testing.T) {
	t.Parallel()
	_, err := New(Options{BaseURL: "http://unused"}).MovieList(context.Background(), "", 1)
	assert.Equal(t, errs.InvalidArgument, errs.CodeOf(err))
}

func TestPacing(t *testing.T) {
	t.Parallel()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(popularBody))
	}))
	t.Cleanup(srv.Close)

	c := New(Options{BaseURL: srv.URL, RPS: 20})
	start := time.Now()
	for i := 0; i < 3; i++ {
		_, err := c.MovieList(context.Background(), "popular", i+1)
		require.NoError(t, err)
	}
	// Burst of one: the second and third requests wait ~50ms each.
	assert.GreaterOrEqual(t, time.Since(start), 80*time.Millisecond)
}

func TestReleaseYear(t *testing.T) {
	t.Parallel()
	year, err := Movie{ReleaseDate: "2015-07-01"}.ReleaseYear()
	require.NoError(t, err)
	assert.Equal(t, 2015, year)

	_, err = Movie{Title: "Untitled"}.ReleaseYear()
	assert.Equal(t, errs.InvalidArgument, errs.CodeOf(err))
}

func TestShapeHelpers(t *testing.T) {
	t.Parallel()
	raw := []byte(`{"page":1,"results":[{"id":1,"title":"A"},{"id":2,"release_date":"2020-01-01"}]}`)

	assert.Equal(t, []string{"total_pages", "total_results"}, MissingKeys(raw, "page", "results", "total_pages", "total_results"))
	assert.Equal(t, []string{"results.0.release_date", "results.1.title"}, MissingMovieFields(raw, 0, "title", "release_date"))
	assert.Equal(t, []string{"results.0.release_date"}, MissingMovieFields(raw, 1, "title", "release_date"))
}
