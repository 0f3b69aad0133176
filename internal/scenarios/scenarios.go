// Package scenarios holds the suite's test cases. Every parametrized
// fixture row becomes its own case with a stable ID such as
// "test_category_filter[popular]".
package scenarios

import (
	"slices"

	"github.com/kuitang/movie-e2e/internal/browser"
	"github.com/kuitang/movie-e2e/internal/lifecycle"
)

// Tags shared by the suites.
const (
	TagUI         = "ui"
	TagAPI        = "api"
	TagFilter     = "filter"
	TagPagination = "pagination"
	TagRefresh    = "refresh"
	TagSmoke      = "smoke"
)

// UICase is a browser test.
type UICase struct {
	ID   string
	Tags []string
	Body lifecycle.Body[*browser.Session]
}

// APICase is a session-less API check.
type APICase struct {
	ID   string
	Tags []string
	Body lifecycle.CheckBody
}

// MatchesTags reports whether a case tagged tags is selected. Any excluded
// tag rejects the case; otherwise an empty include list selects everything.
func MatchesTags(tags, include, exclude []string) bool {
	for _, t := range tags {
		if slices.Contains(exclude, t) {
			return false
		}
	}
	if len(include) == 0 {
		return true
	}
	for _, t := range tags {
		if slices.Contains(include, t) {
			return true
		}
	}
	return false
}

// FilterUI returns the cases selected by include and exclude.
func FilterUI(cases []UICase, include, exclude []string) []UICase {
	var out []UICase
	for _, c := range cases {
		if MatchesTags(c.Tags, include, exclude) {
			out = append(out, c)
		}
	}
	return out
}

// FilterAPI returns the checks selected by include and exclude.
func FilterAPI(cases []APICase, include, exclude []string) []APICase {
	var out []APICase
	for _, c := range cases {
		if MatchesTags(c.Tags, include, exclude) {
			out = append(out, c)
		}
	}
	return out
}
