package lifecycle

import (
	"fmt"
	"time"

	"github.com/kuitang/movie-e2e/internal/errs"
	"github.com/kuitang/movie-e2e/internal/report"
)

// State is a step in the per-test state machine:
// pending -> running -> {passed, failed, errored} -> finalized.
type State int

const (
	StatePending State = iota
	StateRunning
	StatePassed
	StateFailed
	StateErrored
	StateFinalized
)

func (s State) String() string {
	switch s {
	case StatePending:
		return "pending"
	case StateRunning:
		return "running"
	case StatePassed:
		return "passed"
	case StateFailed:
		return "failed"
	case StateErrored:
		return "errored"
	case StateFinalized:
		return "finalized"
	}
	return fmt.Sprintf("State(%d)", int(s))
}

// pending -> errored covers a session that never started.
var transitions = map[State][]State{
	StatePending: {StateRunning, StateErrored},
	StateRunning: {StatePassed, StateFailed, StateErrored},
	StatePassed:  {StateFinalized},
	StateFailed:  {StateFinalized},
	StateErrored: {StateFinalized},
}

func canTransition(from, to State) bool {
	for _, next := range transitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

// Outcome is the classified result of a test body: exactly one of passed,
// failed with a reason, or errored with a fault.
type Outcome struct {
	Status report.Status
	reason string
	fault  error
}

// Passed is the outcome of a body that returned cleanly without failed assertions.
func Passed() Outcome {
	return Outcome{Status: report.StatusPassed}
}

// Failed is the outcome of a body whose assertions did not hold.
func Failed(reason string) Outcome {
	return Outcome{Status: report.StatusFailed, reason: reason}
}

// Errored is the outcome of a body that hit an unexpected fault.
func Errored(fault error) Outcome {
	if fault == nil {
		fault = errs.New(errs.Internal, "unknown fault")
	}
	return Outcome{Status: report.StatusErrored, fault: fault}
}

// Reason is the human-readable explanation, empty for passed outcomes.
func (o Outcome) Reason() string {
	if o.fault != nil {
		return o.fault.Error()
	}
	return o.reason
}

// Fault returns the error behind an errored outcome.
func (o Outcome) Fault() error {
	return o.fault
}

// Code returns the error code recorded in the report, empty when passed.
func (o Outcome) Code() errs.Code {
	switch o.Status {
	case report.StatusFailed:
		return errs.Assertion
	case report.StatusErrored:
		return errs.CodeOf(o.fault)
	}
	return ""
}

func (o Outcome) state() State {
	switch o.Status {
	case report.StatusPassed:
		return StatePassed
	case report.StatusFailed:
		return StateFailed
	}
	return StateErrored
}

// Execution is the context of one test invocation. It is owned by a single
// Controller call and never shared.
type Execution struct {
	testID    string
	session   Session
	state     State
	history   []State
	outcome   Outcome
	decidedAt time.Time
}

func newExecution(testID string) *Execution {
	return &Execution{testID: testID, state: StatePending, history: []State{StatePending}}
}

func (e *Execution) TestID() string       { return e.testID }
func (e *Execution) Session() Session     { return e.session }
func (e *Execution) State() State         { return e.state }
func (e *Execution) Outcome() Outcome     { return e.outcome }
func (e *Execution) DecidedAt() time.Time { return e.decidedAt }

// History lists every state the execution passed through, in order.
func (e *Execution) History() []State {
	return append([]State(nil), e.history...)
}

func (e *Execution) transition(to State) {
	if !canTransition(e.state, to) {
		panic(fmt.Sprintf("lifecycle: invalid transition %s -> %s for %s", e.state, to, e.testID))
	}
	e.state = to
	e.history = append(e.history, to)
}

func (e *Execution) start(s Session) {
	e.session = s
	e.transition(StateRunning)
}

func (e *Execution) decide(o Outcome, at time.Time) {
	e.transition(o.state())
	e.outcome = o
	e.decidedAt = at
}

func (e *Execution) finalize() {
	e.transition(StateFinalized)
}
