package report

import (
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/kuitang/movie-e2e/internal/artifact"
	"github.com/kuitang/movie-e2e/internal/errs"
)

func shot(ref string) *artifact.Artifact {
	return &artifact.Artifact{Ref: ref, FilePath: "/tmp/" + ref, MIMEType: artifact.MIMEType}
}

func TestAttach_NilArtifactIsNoop(t *testing.T) {
	t.Parallel()
	rep := New("run", nil)
	entry := &Entry{TestID: "test_genre_filter", Status: StatusPassed}

	require.NoError(t, rep.Attach(entry, nil))
	assert.Nil(t, entry.Artifacts)
}

func TestAttach_CreatesThenAppends(t *testing.T) {
	t.Parallel()
	rep := New("run", nil)
	entry := &Entry{TestID: "test_pagination", Status: StatusFailed}

	require.NoError(t, rep.Attach(entry, shot("screenshots/a.png")))
	require.Len(t, entry.Artifacts, 1)
	require.NoError(t, rep.Attach(entry, shot("screenshots/b.png")))

	got := []string{entry.Artifacts[0].Ref, entry.Artifacts[1].Ref}
	if diff := cmp.Diff([]string{"screenshots/a.png", "screenshots/b.png"}, got); diff != "" {
		t.Fatalf("artifact refs mismatch (-want +got):\n%s", diff)
	}
}

func TestAttach_RejectsSharedArtifact(t *testing.T) {
	t.Parallel()
	core, logs := observer.New(zapcore.InfoLevel)
	rep := New("run", zap.New(core))
	first := &Entry{TestID: "test_category_filter[popular]"}
	second := &Entry{TestID: "test_category_filter[top-rated]"}
	a := shot("screenshots/a.png")

	require.NoError(t, rep.Attach(first, a))
	err := rep.Attach(second, a)
	require.Error(t, err)
	assert.Equal(t, errs.Attach, errs.CodeOf(err))
	assert.Empty(t, second.Artifacts)
	assert.Equal(t, 1, logs.FilterMessage("artifact already attached").Len())
}

func TestEntries_NeverShareArtifactLists(t *testing.T) {
	t.Parallel()
	rep := New("run", nil)

	// Two entries built from one template must not alias each other's list.
	base := Entry{Status: StatusFailed, Artifacts: make([]artifact.Artifact, 0, 4)}
	first, second := base, base
	first.TestID, second.TestID = "a", "b"
	require.NoError(t, rep.Attach(&first, shot("a.png")))
	require.NoError(t, rep.Attach(&second, shot("b.png")))
	assert.Equal(t, "a.png", first.Artifacts[0].Ref)
	assert.Equal(t, "b.png", second.Artifacts[0].Ref)

	rep.Add(first)
	rep.Add(second)
	entries := rep.Entries()
	entries[0].Artifacts[0].Ref = "mutated"

	again := rep.Entries()
	assert.Equal(t, "a.png", again[0].Artifacts[0].Ref)
	assert.Equal(t, "b.png", again[1].Artifacts[0].Ref)
}

func TestReport_ConcurrentAdd(t *testing.T) {
	t.Parallel()
	rep := New("run", nil)
	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			entry := &Entry{TestID: "t", Status: StatusFailed}
			_ = rep.Attach(entry, shot("x.png"))
			rep.Add(*entry)
		}()
	}
	wg.Wait()
	assert.Len(t, rep.Entries(), 20)
}

func TestRun_Summary(t *testing.T) {
	t.Parallel()
	rep := New("run-7", nil)
	rep.Add(Entry{TestID: "a", Status: StatusPassed})
	rep.Add(Entry{TestID: "b", Status: StatusFailed})
	rep.Add(Entry{TestID: "c", Status: StatusErrored})
	rep.Add(Entry{TestID: "d", Status: StatusPassed})
	rep.Finish()

	run := rep.Run()
	assert.Equal(t, "run-7", run.RunID)
	assert.Equal(t, Summary{Total: 4, Passed: 2, Failed: 1, Errored: 1}, run.Summary)
	assert.False(t, run.Summary.OK())
	assert.False(t, run.EndTime.Before(run.StartTime))
	assert.True(t, Summary{Total: 1, Passed: 1}.OK())
}

func TestWriter_WriteRun(t *testing.T) {
	t.Parallel()
	dir := filepath.Join(t.TempDir(), "reports")
	w, err := NewWriter(dir)
	require.NoError(t, err)

	rep := New("run-9", nil)
	failed := &Entry{
		TestID:   "test_category_filter[popular]",
		Status:   StatusFailed,
		Reason:   "expected titles <script>alert(1)</script>",
		Duration: 1500 * time.Millisecond,
	}
	require.NoError(t, rep.Attach(failed, shot("screenshots/test_category_filter_20260314_092653.png")))
	rep.Add(*failed)
	rep.Add(Entry{TestID: "test_genre_filter", Status: StatusPassed})
	rep.Finish()

	require.NoError(t, w.WriteRun(rep.Run()))

	for _, name := range []string{HTMLFile, ResultsFile, SummaryFile, MarkdownFile} {
		assert.FileExists(t, filepath.Join(dir, name))
	}

	page, err := os.ReadFile(filepath.Join(dir, HTMLFile))
	require.NoError(t, err)
	html := string(page)
	assert.Contains(t, html, `src="screenshots/test_category_filter_20260314_092653.png"`)
	assert.Contains(t, html, "test_genre_filter")
	assert.NotContains(t, html, "<script>")

	md, err := os.ReadFile(filepath.Join(dir, MarkdownFile))
	require.NoError(t, err)
	assert.True(t, strings.Contains(string(md), "| 2 | 1 | 1 | 0 |"), "summary table missing:\n%s", md)
	assert.Contains(t, string(md), "**test_category_filter[popular]** failed")

	summary, err := os.ReadFile(filepath.Join(dir, SummaryFile))
	require.NoError(t, err)
	assert.JSONEq(t, `{"total":2,"passed":1,"failed":1,"errored":0}`, string(summary))
}
