package tmdb

import (
	"fmt"

	"github.com/tidwall/gjson"
)

// MissingKeys returns the top-level keys absent from a JSON body.
func MissingKeys(raw []byte, keys ...string) []string {
	var missing []string
	for _, k := range keys {
		if !gjson.GetBytes(raw, k).Exists() {
			missing = append(missing, k)
		}
	}
	return missing
}

// MissingMovieFields checks the first limit entries of "results" and returns
// paths like "results.0.title" for every absent field. limit <= 0 checks all.
func MissingMovieFields(raw []byte, limit int, fields ...string) []string {
	var missing []string
	results := gjson.GetBytes(raw, "results").Array()
	for i, movie := range results {
		if limit > 0 && i >= limit {
			break
		}
		for _, f := range fields {
			if !movie.Get(f).Exists() {
				missing = append(missing, fmt.Sprintf("results.%d.%s", i, f))
			}
		}
	}
	return missing
}
