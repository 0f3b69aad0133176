// Package browser runs the UI scenarios against an embedded movie site
// fixture through the real lifecycle controller and Playwright sessions.
package browser

import (
	_ "embed"
	"io"
	"net/http"
	"net/http/httptest"
	"path"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/playwright-community/playwright-go"
	"go.uber.org/zap"

	"github.com/kuitang/movie-e2e/internal/artifact"
	session "github.com/kuitang/movie-e2e/internal/browser"
	"github.com/kuitang/movie-e2e/internal/config"
	"github.com/kuitang/movie-e2e/internal/lifecycle"
	"github.com/kuitang/movie-e2e/internal/metrics"
	"github.com/kuitang/movie-e2e/internal/obs"
	"github.com/kuitang/movie-e2e/internal/report"
)

const (
	// Keep every wait in tests/browser at or below these values.
	browserMaxTimeout   = 5 * time.Second
	browserShortTimeout = 1 * time.Second
)

//go:embed testdata/site/index.html
var siteHTML []byte

var (
	probeOnce sync.Once
	probeErr  error
)

// SuiteEnv wires a fixture site, a screenshot capturer, a report and a
// controller that opens a fresh browser session per test.
type SuiteEnv struct {
	Server     *httptest.Server
	BaseURL    string
	Root       string // report root; screenshots go to Root/screenshots
	Registry   *obs.Registry
	Logger     *zap.Logger
	Capturer   *artifact.Capturer
	Report     *report.Report
	Metrics    *metrics.Collector
	Controller *lifecycle.Controller[*session.Session]
}

// requirePlaywright skips the test unless a driver and Chromium are usable.
func requirePlaywright(t *testing.T) {
	t.Helper()
	if testing.Short() {
		t.Skip("Skipping browser test in short mode")
	}
	probeOnce.Do(func() {
		pw, err := playwright.Run()
		if err != nil {
			probeErr = err
			return
		}
		defer pw.Stop()
		b, err := pw.Chromium.Launch(playwright.BrowserTypeLaunchOptions{Headless: playwright.Bool(true)})
		if err != nil {
			probeErr = err
			return
		}
		probeErr = b.Close()
	})
	if probeErr != nil {
		t.Skip("Playwright not available:", probeErr)
	}
}

// SiteHandler serves the fixture page for every extension-less path, so
// category URLs such as /top-rated load the app like a client-side router.
func SiteHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if path.Ext(r.URL.Path) != "" {
			http.NotFound(w, r)
			return
		}
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		_, _ = w.Write(siteHTML)
	})
}

// SetupSuiteEnv starts the fixture site and a controller. It skips the test
// when Playwright cannot launch a browser.
func SetupSuiteEnv(t *testing.T) *SuiteEnv {
	t.Helper()
	requirePlaywright(t)

	server := httptest.NewServer(SiteHandler())
	t.Cleanup(server.Close)

	root := filepath.Join(t.TempDir(), "reports")
	registry := obs.NewRegistry(filepath.Join(filepath.Dir(root), "logs"), obs.WithConsole(io.Discard))
	if err := registry.Init(); err != nil {
		t.Fatalf("init log registry: %v", err)
	}
	t.Cleanup(func() { _ = registry.Close() })

	capturer, err := artifact.New(artifact.Options{
		Dir:        filepath.Join(root, "screenshots"),
		ReportRoot: root,
		PathMode:   config.ArtifactPathsRelative,
		Logger:     registry.Get("artifact"),
	})
	if err != nil {
		t.Fatalf("create capturer: %v", err)
	}

	env := &SuiteEnv{
		Server:   server,
		BaseURL:  server.URL,
		Root:     root,
		Registry: registry,
		Logger:   registry.Get("tests"),
		Capturer: capturer,
		Report:   report.New(t.Name(), registry.Get("report")),
		Metrics:  metrics.NewCollector(),
	}
	provider := session.NewProvider(session.Options{
		Browser:        "chromium",
		Headless:       true,
		ViewportWidth:  1280,
		ViewportHeight: 800,
		Logger:         registry.Get("browser"),
	})
	env.Controller = lifecycle.New[*session.Session](provider, lifecycle.Options{
		BaseURL:      env.BaseURL,
		ImplicitWait: browserMaxTimeout,
		Capturer:     capturer,
		Report:       env.Report,
		Metrics:      env.Metrics,
		Logger:       registry.Get("lifecycle"),
	})
	return env
}
