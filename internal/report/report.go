// Package report collects per-test entries for a run, attaches failure
// artifacts to them and renders the run to disk.
package report

import (
	"slices"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/kuitang/movie-e2e/internal/artifact"
	"github.com/kuitang/movie-e2e/internal/errs"
)

// Status is the terminal outcome of one test.
type Status string

const (
	StatusPassed  Status = "passed"
	StatusFailed  Status = "failed"
	StatusErrored Status = "errored"
)

// Entry is one report row.
type Entry struct {
	TestID    string              `json:"test_id"`
	Status    Status              `json:"status"`
	Reason    string              `json:"reason,omitempty"`
	ErrorCode errs.Code           `json:"error_code,omitempty"`
	Tags      []string            `json:"tags,omitempty"`
	StartTime time.Time           `json:"start_time"`
	EndTime   time.Time           `json:"end_time"`
	Duration  time.Duration       `json:"duration"`
	Artifacts []artifact.Artifact `json:"artifacts,omitempty"`
}

func (e Entry) clone() Entry {
	e.Tags = slices.Clone(e.Tags)
	e.Artifacts = slices.Clone(e.Artifacts)
	return e
}

// Summary counts entries by status.
type Summary struct {
	Total   int `json:"total"`
	Passed  int `json:"passed"`
	Failed  int `json:"failed"`
	Errored int `json:"errored"`
}

// OK reports whether nothing failed or errored.
func (s Summary) OK() bool {
	return s.Failed == 0 && s.Errored == 0
}

// Run is a point-in-time snapshot of a report.
type Run struct {
	RunID     string        `json:"run_id"`
	StartTime time.Time     `json:"start_time"`
	EndTime   time.Time     `json:"end_time"`
	Duration  time.Duration `json:"duration"`
	Summary   Summary       `json:"summary"`
	Tests     []Entry       `json:"tests"`
}

// Report is safe for concurrent use.
type Report struct {
	mu      sync.Mutex
	runID   string
	start   time.Time
	end     time.Time
	entries []Entry
	owners  map[*artifact.Artifact]string
	log     *zap.Logger
}

// New starts an empty report for runID.
func New(runID string, log *zap.Logger) *Report {
	if log == nil {
		log = zap.NewNop()
	}
	return &Report{
		runID:  runID,
		start:  time.Now(),
		owners: make(map[*artifact.Artifact]string),
		log:    log,
	}
}

// RunID returns the run identifier.
func (r *Report) RunID() string {
	return r.runID
}

// Attach appends a to entry's artifact list, creating the list if needed.
// A nil artifact is a no-op. An artifact already attached to any entry is
// rejected with errs.Attach so two entries never share one.
func (r *Report) Attach(entry *Entry, a *artifact.Artifact) error {
	if a == nil {
		return nil
	}
	if entry == nil {
		return errs.New(errs.Attach, "attach to nil report entry")
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if owner, ok := r.owners[a]; ok {
		r.log.Error("artifact already attached",
			zap.String("test", entry.TestID),
			zap.String("owner", owner),
			zap.String("ref", a.Ref))
		return errs.New(errs.Attach, "artifact "+a.Ref+" already attached to "+owner)
	}
	r.owners[a] = entry.TestID

	if entry.Artifacts == nil {
		entry.Artifacts = []artifact.Artifact{*a}
		return nil
	}
	entry.Artifacts = append(slices.Clip(entry.Artifacts), *a)
	return nil
}

// Add records a finished entry. The report keeps its own copy.
func (r *Report) Add(entry Entry) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.entries = append(r.entries, entry.clone())
}

// Entries returns copies of the recorded entries in insertion order.
func (r *Report) Entries() []Entry {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Entry, len(r.entries))
	for i, e := range r.entries {
		out[i] = e.clone()
	}
	return out
}

// Finish stamps the run end time. Later snapshots keep that time.
func (r *Report) Finish() {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.end.IsZero() {
		r.end = time.Now()
	}
}

// Run returns a snapshot of the whole run.
func (r *Report) Run() Run {
	tests := r.Entries()

	r.mu.Lock()
	start, end := r.start, r.end
	r.mu.Unlock()
	if end.IsZero() {
		end = time.Now()
	}

	return Run{
		RunID:     r.runID,
		StartTime: start,
		EndTime:   end,
		Duration:  end.Sub(start),
		Summary:   Summarize(tests),
		Tests:     tests,
	}
}

// Summarize counts entries by status.
func Summarize(entries []Entry) Summary {
	summary := Summary{Total: len(entries)}
	for _, e := range entries {
		switch e.Status {
		case StatusPassed:
			summary.Passed++
		case StatusFailed:
			summary.Failed++
		case StatusErrored:
			summary.Errored++
		}
	}
	return summary
}
