package config

import (
	"flag"
	"io"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func newFlagSet() *flag.FlagSet {
	fs := flag.NewFlagSet("e2e-runner", flag.ContinueOnError)
	fs.SetOutput(io.Discard)
	return fs
}

func TestParseFlags_Defaults(t *testing.T) {
	t.Parallel()
	f, err := ParseFlags(newFlagSet(), nil)
	if err != nil {
		t.Fatalf("ParseFlags: %v", err)
	}
	if f.Suite != SuiteAll || !f.RunsUI() || !f.RunsAPI() {
		t.Fatalf("default suite = %q", f.Suite)
	}
	if f.IncludeTags != nil || f.ExcludeTags != nil {
		t.Fatalf("tags should default to empty: %v %v", f.IncludeTags, f.ExcludeTags)
	}
}

func TestParseFlags_Values(t *testing.T) {
	t.Parallel()
	f, err := ParseFlags(newFlagSet(), []string{
		"-suite", "UI",
		"-include-tags", "filter, pagination,,",
		"-exclude-tags", "refresh",
		"-env-file", "ci.env",
	})
	if err != nil {
		t.Fatalf("ParseFlags: %v", err)
	}
	want := Flags{
		Suite:       SuiteUI,
		IncludeTags: []string{"filter", "pagination"},
		ExcludeTags: []string{"refresh"},
		EnvFile:     "ci.env",
	}
	if diff := cmp.Diff(want, f); diff != "" {
		t.Fatalf("flags mismatch (-want +got):\n%s", diff)
	}
	if f.RunsAPI() {
		t.Fatal("ui suite must not run API checks")
	}
}

func TestParseFlags_RejectsUnknownSuite(t *testing.T) {
	t.Parallel()
	if _, err := ParseFlags(newFlagSet(), []string{"-suite", "smoke"}); err == nil {
		t.Fatal("expected error for unknown suite")
	}
	if _, err := ParseFlags(newFlagSet(), []string{"-nope"}); err == nil {
		t.Fatal("expected error for unknown flag")
	}
}
