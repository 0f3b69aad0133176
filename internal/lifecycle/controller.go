// Package lifecycle runs one test at a time through session acquisition, body
// execution, outcome classification, failure capture, report attachment and
// session release.
package lifecycle

import (
	"context"
	"fmt"
	"slices"
	"time"

	"go.uber.org/zap"

	"github.com/kuitang/movie-e2e/internal/artifact"
	"github.com/kuitang/movie-e2e/internal/errs"
	"github.com/kuitang/movie-e2e/internal/metrics"
	"github.com/kuitang/movie-e2e/internal/obs"
	"github.com/kuitang/movie-e2e/internal/report"
)

// Session is what the controller needs from a live session.
type Session interface {
	artifact.Screenshotter
}

// Provider starts and stops sessions. Every session returned by Acquire is
// passed to Release exactly once.
type Provider[S Session] interface {
	Acquire(ctx context.Context, baseURL string, implicitWait time.Duration) (S, error)
	Release(ctx context.Context, s S) error
}

// Capturer captures a failure artifact for a session.
type Capturer interface {
	Capture(ctx context.Context, s artifact.Screenshotter, testID string) (*artifact.Artifact, error)
}

// Body is a test that drives a session. Assertions go through t; any
// returned error other than an errs.Assertion error marks the test errored.
type Body[S Session] func(ctx context.Context, t *T, s S) error

// CheckBody is a test that needs no session.
type CheckBody func(ctx context.Context, t *T) error

// Options configures a Controller.
type Options struct {
	BaseURL      string
	ImplicitWait time.Duration
	Capturer     Capturer           // nil disables capture
	Report       *report.Report     // nil creates a private report
	Metrics      *metrics.Collector // nil disables metrics
	Logger       *zap.Logger        // nil uses the default registry
	Now          func() time.Time
	AfterTest    func(*Execution) // called once per test after finalization
}

// Controller runs tests sequentially. Parallel callers each need their own
// Controller and Provider; the report and metrics may be shared.
type Controller[S Session] struct {
	provider Provider[S]
	opts     Options
	report   *report.Report
	log      *zap.Logger
	now      func() time.Time
}

// New returns a controller using provider for sessions.
func New[S Session](provider Provider[S], opts Options) *Controller[S] {
	c := &Controller[S]{
		provider: provider,
		opts:     opts,
		report:   opts.Report,
		log:      opts.Logger,
		now:      opts.Now,
	}
	if c.log == nil {
		c.log = obs.Pkg("lifecycle")
	}
	if c.now == nil {
		c.now = time.Now
	}
	if c.report == nil {
		c.report = report.New("local", c.log)
	}
	return c
}

// Report returns the report entries are recorded in.
func (c *Controller[S]) Report() *report.Report {
	return c.report
}

// Run executes body against a fresh session and records the result.
func (c *Controller[S]) Run(ctx context.Context, testID string, body Body[S], tags ...string) report.Entry {
	start := c.now()
	exec := newExecution(testID)
	c.log.Info("test started", zap.String("test", testID))

	session, err := c.provider.Acquire(ctx, c.opts.BaseURL, c.opts.ImplicitWait)
	if err != nil {
		if !errs.Is(err, errs.SessionStart) {
			err = errs.Wrap(errs.SessionStart, "acquire session", err)
		}
		exec.decide(Errored(err), c.now())
		exec.finalize()
		return c.record(exec, start, tags, nil)
	}
	exec.start(session)

	var shot *artifact.Artifact
	func() {
		defer c.release(ctx, testID, session)

		t := newT(testID, c.log)
		exec.decide(c.execute(t, func() error { return body(ctx, t, session) }), c.now())
		if exec.State() != StatePassed {
			shot = c.capture(ctx, testID, session)
		}
	}()
	exec.finalize()
	return c.record(exec, start, tags, shot)
}

// RunCheck executes a session-less body. Nothing is captured.
func (c *Controller[S]) RunCheck(ctx context.Context, testID string, body CheckBody, tags ...string) report.Entry {
	start := c.now()
	exec := newExecution(testID)
	c.log.Info("check started", zap.String("test", testID))

	exec.start(nil)
	t := newT(testID, c.log)
	exec.decide(c.execute(t, func() error { return body(ctx, t) }), c.now())
	exec.finalize()
	return c.record(exec, start, tags, nil)
}

func (c *Controller[S]) execute(t *T, fn func() error) (outcome Outcome) {
	defer func() {
		r := recover()
		if r == nil {
			return
		}
		if _, ok := r.(failNow); ok {
			outcome = Failed(t.reason())
			return
		}
		outcome = Errored(errs.New(errs.Internal, fmt.Sprintf("panic: %v", r)))
	}()
	return classify(fn(), t)
}

// classify maps a body's return value and recorded assertions to an outcome.
// An unexpected error wins over recorded assertion failures.
func classify(err error, t *T) Outcome {
	switch {
	case err == nil && !t.Failed():
		return Passed()
	case err == nil:
		return Failed(t.reason())
	case errs.IsAssertion(err):
		if t.Failed() {
			return Failed(t.reason() + "\n" + err.Error())
		}
		return Failed(err.Error())
	default:
		return Errored(err)
	}
}

func (c *Controller[S]) capture(ctx context.Context, testID string, s S) *artifact.Artifact {
	if c.opts.Capturer == nil {
		return nil
	}
	a, err := c.opts.Capturer.Capture(ctx, s, testID)
	if c.opts.Metrics != nil {
		c.opts.Metrics.ObserveCapture(err)
	}
	if err != nil {
		c.log.Error("screenshot capture failed", zap.String("test", testID), zap.Error(err))
		return nil
	}
	c.log.Info("screenshot captured", zap.String("test", testID), zap.String("ref", a.Ref))
	return a
}

func (c *Controller[S]) release(ctx context.Context, testID string, s S) {
	err := c.provider.Release(context.WithoutCancel(ctx), s)
	if c.opts.Metrics != nil {
		c.opts.Metrics.ObserveRelease(err)
	}
	if err != nil {
		c.log.Error("session release failed", zap.String("test", testID), zap.Error(err))
	}
}

func (c *Controller[S]) record(exec *Execution, start time.Time, tags []string, shot *artifact.Artifact) report.Entry {
	end := c.now()
	outcome := exec.Outcome()
	entry := report.Entry{
		TestID:    exec.TestID(),
		Status:    outcome.Status,
		Reason:    outcome.Reason(),
		ErrorCode: outcome.Code(),
		Tags:      slices.Clone(tags),
		StartTime: start,
		EndTime:   end,
		Duration:  end.Sub(start),
	}
	if err := c.report.Attach(&entry, shot); err != nil {
		c.log.Error("attach screenshot failed", zap.String("test", entry.TestID), zap.Error(err))
	}
	c.report.Add(entry)
	if c.opts.Metrics != nil {
		c.opts.Metrics.ObserveTest(entry.TestID, string(entry.Status), entry.Duration)
	}

	fields := []zap.Field{zap.String("test", entry.TestID), zap.Duration("duration", entry.Duration)}
	if entry.Status == report.StatusPassed {
		c.log.Info("test passed", fields...)
	} else {
		fields = append(fields, zap.String("code", string(entry.ErrorCode)), zap.String("reason", entry.Reason))
		c.log.Error("test "+string(entry.Status), fields...)
	}

	if c.opts.AfterTest != nil {
		c.opts.AfterTest(exec)
	}
	return entry
}
