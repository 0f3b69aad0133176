package config

import (
	"flag"
	"fmt"
	"strings"
)

// Suites selectable with -suite.
const (
	SuiteUI  = "ui"
	SuiteAPI = "api"
	SuiteAll = "all"
)

// Flags are the runner's command-line options.
type Flags struct {
	Suite        string
	IncludeTags  []string
	ExcludeTags  []string
	EnvFile      string
	FixturesFile string
}

// RunsUI reports whether the browser suite is selected.
func (f Flags) RunsUI() bool { return f.Suite == SuiteUI || f.Suite == SuiteAll }

// RunsAPI reports whether the API checks are selected.
func (f Flags) RunsAPI() bool { return f.Suite == SuiteAPI || f.Suite == SuiteAll }

// ParseFlags registers the runner flags on fs and parses args. Call before
// LoadConfig so -env-file can seed the environment.
func ParseFlags(fs *flag.FlagSet, args []string) (Flags, error) {
	var f Flags
	var include, exclude string
	fs.StringVar(&f.Suite, "suite", SuiteAll, "Suite to run: ui, api or all")
	fs.StringVar(&include, "include-tags", "", "Comma-separated tags; only matching tests run")
	fs.StringVar(&exclude, "exclude-tags", "", "Comma-separated tags; matching tests are skipped")
	fs.StringVar(&f.EnvFile, "env-file", "", "Path to a .env file (default ./.env if present)")
	fs.StringVar(&f.FixturesFile, "fixtures", "", "YAML test data overriding the built-in fixtures")
	if err := fs.Parse(args); err != nil {
		return Flags{}, err
	}

	f.Suite = strings.ToLower(strings.TrimSpace(f.Suite))
	switch f.Suite {
	case SuiteUI, SuiteAPI, SuiteAll:
	default:
		return Flags{}, fmt.Errorf("-suite must be ui, api or all, got %q", f.Suite)
	}
	f.IncludeTags = splitTags(include)
	f.ExcludeTags = splitTags(exclude)
	return f, nil
}

func splitTags(s string) []string {
	var tags []string
	for _, t := range strings.Split(s, ",") {
		if t = strings.TrimSpace(t); t != "" {
			tags = append(tags, t)
		}
	}
	return tags
}
