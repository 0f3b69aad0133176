package lifecycle

import (
	"testing"

	"github.com/kuitang/movie-e2e/internal/report"
)

// Test runs body through the controller as part of a go test and fails t
// with the classified reason.
func (c *Controller[S]) Test(t testing.TB, testID string, body Body[S], tags ...string) report.Entry {
	t.Helper()
	entry := c.Run(t.Context(), testID, body, tags...)
	reportTo(t, entry)
	return entry
}

// Check runs a session-less body as part of a go test.
func (c *Controller[S]) Check(t testing.TB, testID string, body CheckBody, tags ...string) report.Entry {
	t.Helper()
	entry := c.RunCheck(t.Context(), testID, body, tags...)
	reportTo(t, entry)
	return entry
}

func reportTo(t testing.TB, entry report.Entry) {
	t.Helper()
	for _, a := range entry.Artifacts {
		t.Logf("screenshot: %s", a.Ref)
	}
	if entry.Status != report.StatusPassed {
		t.Errorf("%s %s [%s]: %s", entry.TestID, entry.Status, entry.ErrorCode, entry.Reason)
	}
}
