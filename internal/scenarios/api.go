package scenarios

import (
	"context"
	"fmt"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/kuitang/movie-e2e/internal/fixtures"
	"github.com/kuitang/movie-e2e/internal/lifecycle"
	"github.com/kuitang/movie-e2e/internal/tmdb"
)

// MovieAPI is the part of the movie API client the checks use.
type MovieAPI interface {
	MovieList(ctx context.Context, category string, page int) (*tmdb.ListResponse, error)
	Discover(ctx context.Context, p tmdb.DiscoverParams) (*tmdb.ListResponse, error)
}

type api struct {
	data   *fixtures.API
	client MovieAPI
	log    *zap.Logger
}

// API returns the movie API checks for data in run order.
func API(data *fixtures.API, client MovieAPI, log *zap.Logger) []APICase {
	if log == nil {
		log = zap.NewNop()
	}
	a := &api{data: data, client: client, log: log}

	var cases []APICase
	for _, c := range data.Categories {
		cases = append(cases, APICase{
			ID:   fmt.Sprintf("test_api_category[%s]", c),
			Tags: []string{TagAPI, TagSmoke},
			Body: a.category(c),
		})
	}
	cases = append(cases, APICase{
		ID:   "test_api_rating",
		Tags: []string{TagAPI, TagFilter},
		Body: a.rating,
	})
	for _, r := range data.YearRanges {
		cases = append(cases, APICase{
			ID:   fmt.Sprintf("test_api_year_range[%s]", r),
			Tags: []string{TagAPI, TagFilter},
			Body: a.yearRange(r),
		})
	}
	for _, p := range data.Pages {
		cases = append(cases, APICase{
			ID:   fmt.Sprintf("test_api_pagination[%d]", p),
			Tags: []string{TagAPI, TagPagination},
			Body: a.pagination(p),
		})
	}
	return cases
}

func (a *api) category(category string) lifecycle.CheckBody {
	return func(ctx context.Context, t *lifecycle.T) error {
		resp, err := a.client.MovieList(ctx, category, 1)
		if err != nil {
			return err
		}
		require.Empty(t, tmdb.MissingKeys(resp.Raw, "results"), "'results' key missing in response")
		require.NotEmpty(t, resp.Results, "no movies found for %s", category)
		a.log.Info("movies returned", zap.String("category", category), zap.Int("count", len(resp.Results)))

		missing := tmdb.MissingMovieFields(resp.Raw, a.data.CheckedMovies, a.data.MovieFields...)
		assert.Empty(t, missing, "movie fields missing")
		return nil
	}
}

func (a *api) rating(ctx context.Context, t *lifecycle.T) error {
	f := a.data.Rating
	resp, err := a.client.Discover(ctx, tmdb.DiscoverParams{
		SortBy:         a.data.SortBy,
		ReleaseDateGTE: f.ReleaseFrom,
		ReleaseDateLTE: f.ReleaseTo,
		VoteAverageGTE: &f.VoteMin,
		VoteAverageLTE: &f.VoteMax,
		Page:           1,
	})
	if err != nil {
		return err
	}
	require.Empty(t, tmdb.MissingKeys(resp.Raw, a.data.RequiredKeys...), "keys missing in response")

	a.log.Info("movies returned", zap.Int("count", len(resp.Results)))
	for _, m := range resp.Results {
		assert.LessOrEqual(t, m.VoteAverage, f.VoteMax, "%s has vote_average > %v", m.Title, f.VoteMax)
	}
	return nil
}

func (a *api) yearRange(r fixtures.YearRange) lifecycle.CheckBody {
	return func(ctx context.Context, t *lifecycle.T) error {
		voteMin, voteMax := a.data.YearVoteMin, a.data.YearVoteMax
		resp, err := a.client.Discover(ctx, tmdb.DiscoverParams{
			SortBy:         a.data.SortBy,
			ReleaseDateGTE: fmt.Sprintf("%d-01-01", r.Start),
			ReleaseDateLTE: fmt.Sprintf("%d-12-31", r.End),
			VoteAverageGTE: &voteMin,
			VoteAverageLTE: &voteMax,
			Page:           1,
		})
		if err != nil {
			return err
		}

		a.log.Info("movies found", zap.Stringer("range", r), zap.Int("count", len(resp.Results)))
		for _, m := range resp.Results {
			year, err := m.ReleaseYear()
			if !assert.NoError(t, err) {
				continue
			}
			assert.True(t, r.Contains(year), "%q (%d) is not in range %s", m.Title, year, r)
		}
		return nil
	}
}

func (a *api) pagination(page int) lifecycle.CheckBody {
	return func(ctx context.Context, t *lifecycle.T) error {
		resp, err := a.client.MovieList(ctx, a.data.PaginationCategory, page)
		if err != nil {
			return err
		}
		assert.Empty(t, tmdb.MissingKeys(resp.Raw, "results"), "'results' key missing for page %d", page)
		return nil
	}
}
