package lifecycle

import (
	"fmt"
	"strings"
	"sync"

	"go.uber.org/zap"
)

// T is handed to every test body. It satisfies testify's require.TestingT
// and assert.TestingT, so bodies assert with testify and the controller sees
// every failure. FailNow must be called from the body's goroutine.
type T struct {
	name string
	log  *zap.Logger

	mu       sync.Mutex
	failures []string
}

type failNow struct{}

func newT(name string, log *zap.Logger) *T {
	return &T{name: name, log: log}
}

// Name returns the test ID.
func (t *T) Name() string { return t.name }

// Helper is a no-op; it exists so testify treats T like testing.T.
func (t *T) Helper() {}

// Errorf records an assertion failure and lets the body continue.
func (t *T) Errorf(format string, args ...any) {
	msg := strings.TrimSpace(fmt.Sprintf(format, args...))
	t.mu.Lock()
	t.failures = append(t.failures, msg)
	t.mu.Unlock()
	t.log.Debug("assertion failed", zap.String("test", t.name), zap.String("detail", msg))
}

// FailNow stops the body. The controller classifies the test as failed.
func (t *T) FailNow() {
	panic(failNow{})
}

// Fatalf records a failure and stops the body.
func (t *T) Fatalf(format string, args ...any) {
	t.Errorf(format, args...)
	t.FailNow()
}

// Logf writes to the test's logger.
func (t *T) Logf(format string, args ...any) {
	t.log.Info(fmt.Sprintf(format, args...), zap.String("test", t.name))
}

// Failed reports whether any assertion failed.
func (t *T) Failed() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.failures) > 0
}

func (t *T) reason() string {
	t.mu.Lock()
	defer t.mu.Unlock()
	if len(t.failures) == 0 {
		return "FailNow called"
	}
	return strings.Join(t.failures, "\n")
}
