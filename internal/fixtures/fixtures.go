// Package fixtures loads the data set the scenarios are parametrized with.
package fixtures

import (
	"bytes"
	_ "embed"
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

//go:embed movies.yaml
var defaultData []byte

// Category is a navigation entry and the URL slug it leads to.
type Category struct {
	Name string `yaml:"name"`
	Slug string `yaml:"slug"`
}

// YearRange is an inclusive range of release years.
type YearRange struct {
	Start int `yaml:"start"`
	End   int `yaml:"end"`
}

// Contains reports whether year is within the range.
func (r YearRange) Contains(year int) bool {
	return r.Start <= year && year <= r.End
}

func (r YearRange) String() string {
	return fmt.Sprintf("%d-%d", r.Start, r.End)
}

// UI is the browser scenario data.
type UI struct {
	Categories []Category  `yaml:"categories"`
	Types      []string    `yaml:"types"`
	YearRanges []YearRange `yaml:"year_ranges"`
	Genre      string      `yaml:"genre"`
	StarCounts []int       `yaml:"star_counts"`
	LastPages  int         `yaml:"last_pages"`
}

// RatingFilter is the /discover/movie rating check.
type RatingFilter struct {
	ReleaseFrom string  `yaml:"release_from"`
	ReleaseTo   string  `yaml:"release_to"`
	VoteMin     float64 `yaml:"vote_min"`
	VoteMax     float64 `yaml:"vote_max"`
}

// API is the movie API check data.
type API struct {
	Categories         []string     `yaml:"categories"`
	SortBy             string       `yaml:"sort_by"`
	RequiredKeys       []string     `yaml:"required_keys"`
	MovieFields        []string     `yaml:"movie_fields"`
	CheckedMovies      int          `yaml:"checked_movies"`
	Rating             RatingFilter `yaml:"rating"`
	YearRanges         []YearRange  `yaml:"year_ranges"`
	YearVoteMin        float64      `yaml:"year_vote_min"`
	YearVoteMax        float64      `yaml:"year_vote_max"`
	PaginationCategory string       `yaml:"pagination_category"`
	Pages              []int        `yaml:"pages"`
}

// Data is the full fixture set.
type Data struct {
	UI  UI  `yaml:"ui"`
	API API `yaml:"api"`
}

// Default returns the embedded data set.
func Default() (*Data, error) {
	return Parse(defaultData)
}

// LoadFile parses a data set from path.
func LoadFile(path string) (*Data, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read fixtures: %w", err)
	}
	return Parse(raw)
}

// Parse decodes and validates YAML fixture data. Unknown keys are rejected.
func Parse(raw []byte) (*Data, error) {
	dec := yaml.NewDecoder(bytes.NewReader(raw))
	dec.KnownFields(true)

	var d Data
	if err := dec.Decode(&d); err != nil {
		return nil, fmt.Errorf("decode fixtures: %w", err)
	}
	if err := d.validate(); err != nil {
		return nil, err
	}
	return &d, nil
}

func (d *Data) validate() error {
	var problems []string
	for i, c := range d.UI.Categories {
		if c.Name == "" || c.Slug == "" {
			problems = append(problems, fmt.Sprintf("ui.categories[%d] needs name and slug", i))
		}
	}
	for _, r := range append(append([]YearRange(nil), d.UI.YearRanges...), d.API.YearRanges...) {
		if r.Start > r.End {
			problems = append(problems, fmt.Sprintf("year range %s is inverted", r))
		}
	}
	for _, n := range d.UI.StarCounts {
		if n < 1 || n > 5 {
			problems = append(problems, fmt.Sprintf("star count %d out of 1..5", n))
		}
	}
	if d.UI.LastPages < 0 {
		problems = append(problems, "ui.last_pages must not be negative")
	}
	if len(d.API.Pages) > 0 && d.API.PaginationCategory == "" {
		problems = append(problems, "api.pagination_category is required with api.pages")
	}
	for _, p := range d.API.Pages {
		if p < 1 {
			problems = append(problems, fmt.Sprintf("api page %d must be positive", p))
		}
	}
	if len(problems) > 0 {
		return fmt.Errorf("invalid fixtures: %s", strings.Join(problems, "; "))
	}
	return nil
}
