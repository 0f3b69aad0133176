package scenarios

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/kuitang/movie-e2e/internal/browser"
	"github.com/kuitang/movie-e2e/internal/fixtures"
	"github.com/kuitang/movie-e2e/internal/lifecycle"
	"github.com/kuitang/movie-e2e/internal/pages"
)

// ui builds browser cases; wait bounds every page-object wait.
type ui struct {
	data *fixtures.UI
	wait time.Duration
	log  *zap.Logger
}

// UI returns the browser cases for data in run order.
func UI(data *fixtures.UI, wait time.Duration, log *zap.Logger) []UICase {
	if log == nil {
		log = zap.NewNop()
	}
	u := &ui{data: data, wait: wait, log: log}

	var cases []UICase
	for _, c := range data.Categories {
		cases = append(cases, UICase{
			ID:   fmt.Sprintf("test_category_filter[%s]", c.Slug),
			Tags: []string{TagUI, TagFilter, TagSmoke},
			Body: u.categoryFilter(c),
		})
	}
	for _, name := range data.Types {
		cases = append(cases, UICase{
			ID:   fmt.Sprintf("test_type_filter[%s]", name),
			Tags: []string{TagUI, TagFilter},
			Body: u.typeFilter(name),
		})
	}
	for _, r := range data.YearRanges {
		cases = append(cases, UICase{
			ID:   fmt.Sprintf("test_year_range_filter[%s]", r),
			Tags: []string{TagUI, TagFilter},
			Body: u.yearRangeFilter(r),
		})
	}
	for _, n := range data.StarCounts {
		cases = append(cases, UICase{
			ID:   fmt.Sprintf("test_star_rating[%d]", n),
			Tags: []string{TagUI, TagFilter},
			Body: u.starRating(n),
		})
	}
	if data.Genre != "" {
		cases = append(cases, UICase{
			ID:   "test_genre_filter",
			Tags: []string{TagUI, TagFilter},
			Body: u.genreFilter(data.Genre),
		})
	}
	cases = append(cases, UICase{
		ID:   "test_pagination",
		Tags: []string{TagUI, TagPagination},
		Body: u.pagination,
	})
	for _, c := range data.Categories {
		cases = append(cases, UICase{
			ID:   fmt.Sprintf("test_refresh_category[%s]", c.Slug),
			Tags: []string{TagUI, TagRefresh},
			Body: u.refreshCategory(c),
		})
	}
	if data.LastPages > 0 {
		cases = append(cases, UICase{
			ID:   "test_broken_pages",
			Tags: []string{TagUI, TagPagination},
			Body: u.brokenPages,
		})
	}
	return cases
}

func (u *ui) home(s *browser.Session) *pages.HomePage {
	return pages.NewHomePage(s.Page(), s.BaseURL(), u.wait, u.log)
}

func (u *ui) categoryFilter(c fixtures.Category) lifecycle.Body[*browser.Session] {
	return func(_ context.Context, t *lifecycle.T, s *browser.Session) error {
		home := u.home(s)
		if err := home.SelectCategory(c.Name); err != nil {
			return err
		}
		if err := home.WaitForTitles(); err != nil {
			return err
		}
		current := home.CurrentURL()
		u.log.Info("category loaded", zap.String("category", c.Name), zap.String("url", current))
		assert.Contains(t, current, "/"+c.Slug, "expected '/%s' in URL", c.Slug)

		titles, err := home.GetAllTitles()
		if err != nil {
			return err
		}
		assert.NotEmpty(t, titles, "no titles found for %q", c.Name)
		return nil
	}
}

func (u *ui) typeFilter(name string) lifecycle.Body[*browser.Session] {
	return func(_ context.Context, t *lifecycle.T, s *browser.Session) error {
		home := u.home(s)
		if err := home.SelectType(name); err != nil {
			return err
		}
		if err := home.WaitForSelectedType(name); err != nil {
			return err
		}
		selected, err := home.GetSelectedType()
		if err != nil {
			return err
		}
		assert.Equal(t, strings.ToLower(name), strings.ToLower(selected), "selected type")
		return nil
	}
}

func (u *ui) yearRangeFilter(r fixtures.YearRange) lifecycle.Body[*browser.Session] {
	return func(_ context.Context, t *lifecycle.T, s *browser.Session) error {
		home := u.home(s)
		if err := home.SelectYearRange(r.Start, r.End); err != nil {
			return err
		}
		start, err := home.GetSelectedStartYear()
		if err != nil {
			return err
		}
		end, err := home.GetSelectedEndYear()
		if err != nil {
			return err
		}
		u.log.Info("year range shown", zap.Int("start", start), zap.Int("end", end))
		assert.Equal(t, r.Start, start, "start year")
		assert.Equal(t, r.End, end, "end year")
		return nil
	}
}

func (u *ui) starRating(stars int) lifecycle.Body[*browser.Session] {
	return func(_ context.Context, t *lifecycle.T, s *browser.Session) error {
		home := u.home(s)
		if err := home.SelectRating(stars); err != nil {
			return err
		}
		selected, err := home.IsRatingSelected(stars)
		if err != nil {
			return err
		}
		assert.True(t, selected, "%d-star rating not selected", stars)
		return nil
	}
}

func (u *ui) genreFilter(genre string) lifecycle.Body[*browser.Session] {
	return func(_ context.Context, t *lifecycle.T, s *browser.Session) error {
		home := u.home(s)
		if err := home.SelectGenre(genre); err != nil {
			return err
		}
		selected, err := home.GetSelectedGenre()
		if err != nil {
			return err
		}
		assert.Equal(t, strings.ToLower(genre), strings.ToLower(selected), "dropdown shows %q but expected %q", selected, genre)
		return nil
	}
}

func (u *ui) pagination(_ context.Context, t *lifecycle.T, s *browser.Session) error {
	home := u.home(s)
	if err := home.WaitForPagination(); err != nil {
		return err
	}
	if err := home.ClickNextPage(); err != nil {
		return err
	}
	selected, err := home.GetSelectedPageNumber()
	if err != nil {
		return err
	}
	assert.Equal(t, "2", selected, "selected page")
	return nil
}

// refreshCategory waits for the cards again after reload instead of sleeping.
func (u *ui) refreshCategory(c fixtures.Category) lifecycle.Body[*browser.Session] {
	return func(_ context.Context, t *lifecycle.T, s *browser.Session) error {
		home := u.home(s)
		if err := home.Open(c.Slug); err != nil {
			return err
		}
		if err := home.WaitForMovieCards(); err != nil {
			return err
		}
		before, err := home.GetAllTitles()
		if err != nil {
			return err
		}
		require.NotEmpty(t, before, "no movie titles before refreshing %q", c.Name)

		if err := home.Refresh(); err != nil {
			return err
		}
		if err := home.WaitForMovieCards(); err != nil {
			return err
		}
		after, err := home.GetAllTitles()
		if err != nil {
			return err
		}
		assert.NotEmpty(t, after, "no movie titles after refreshing %q", c.Name)
		return nil
	}
}

func (u *ui) brokenPages(_ context.Context, t *lifecycle.T, s *browser.Session) error {
	home := u.home(s)
	if err := home.WaitForPagination(); err != nil {
		return err
	}
	last, err := home.LastPageNumbers(u.data.LastPages)
	if err != nil {
		return err
	}
	require.NotEmpty(t, last, "no page links found")

	for _, n := range last {
		if err := home.SelectPage(n); err != nil {
			return err
		}
		titles, err := home.GetAllTitles()
		if err != nil {
			return err
		}
		if assert.NotEmpty(t, titles, "no movie titles found on page %d", n) {
			u.log.Info("page loaded", zap.Int("page", n), zap.Int("movies", len(titles)))
		}
	}
	return nil
}
