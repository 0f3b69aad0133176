// Package metrics records run counters and writes them as a Prometheus text file.
package metrics

import (
	"bytes"
	"fmt"
	"os"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/common/expfmt"
)

// Label values for capture and release results.
const (
	ResultOK    = "ok"
	ResultError = "error"
)

// Collector is safe for concurrent use.
type Collector struct {
	registry      *prometheus.Registry
	testsTotal    *prometheus.CounterVec
	testDuration  *prometheus.HistogramVec
	capturesTotal *prometheus.CounterVec
	releasesTotal *prometheus.CounterVec
}

// NewCollector initializes a private registry with the suite's metrics.
func NewCollector() *Collector {
	c := &Collector{
		registry: prometheus.NewRegistry(),
		testsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{Name: "e2e_tests_total", Help: "Tests by outcome"},
			[]string{"outcome"},
		),
		testDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "e2e_test_duration_seconds",
				Help:    "Test duration in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"test", "outcome"},
		),
		capturesTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{Name: "e2e_captures_total", Help: "Failure screenshot captures by result"},
			[]string{"result"},
		),
		releasesTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{Name: "e2e_session_releases_total", Help: "Browser session releases by result"},
			[]string{"result"},
		),
	}
	c.registry.MustRegister(c.testsTotal, c.testDuration, c.capturesTotal, c.releasesTotal)
	return c
}

// ObserveTest records a finished test.
func (c *Collector) ObserveTest(testID, outcome string, duration time.Duration) {
	c.testsTotal.WithLabelValues(outcome).Inc()
	c.testDuration.WithLabelValues(testID, outcome).Observe(duration.Seconds())
}

// ObserveCapture records a screenshot attempt.
func (c *Collector) ObserveCapture(err error) {
	c.capturesTotal.WithLabelValues(result(err)).Inc()
}

// ObserveRelease records a session release attempt.
func (c *Collector) ObserveRelease(err error) {
	c.releasesTotal.WithLabelValues(result(err)).Inc()
}

func result(err error) string {
	if err != nil {
		return ResultError
	}
	return ResultOK
}

// Write writes all metrics to a Prometheus text file.
func (c *Collector) Write(path string) error {
	families, err := c.registry.Gather()
	if err != nil {
		return fmt.Errorf("gather metrics: %w", err)
	}
	var buf bytes.Buffer
	enc := expfmt.NewEncoder(&buf, expfmt.NewFormat(expfmt.TypeTextPlain))
	for _, family := range families {
		if err := enc.Encode(family); err != nil {
			return fmt.Errorf("encode metrics: %w", err)
		}
	}
	return os.WriteFile(path, buf.Bytes(), 0o644)
}
