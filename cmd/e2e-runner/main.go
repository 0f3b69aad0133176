// Command e2e-runner runs the movie site browser suite and the movie API
// checks outside of go test, then writes the HTML/JSON/Markdown report and
// run metrics under REPORTS_DIR.
//
// Usage:
//
//	go run ./cmd/e2e-runner -suite all -exclude-tags refresh
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/kuitang/movie-e2e/internal/artifact"
	"github.com/kuitang/movie-e2e/internal/browser"
	"github.com/kuitang/movie-e2e/internal/config"
	"github.com/kuitang/movie-e2e/internal/fixtures"
	"github.com/kuitang/movie-e2e/internal/lifecycle"
	"github.com/kuitang/movie-e2e/internal/metrics"
	"github.com/kuitang/movie-e2e/internal/obs"
	"github.com/kuitang/movie-e2e/internal/report"
	"github.com/kuitang/movie-e2e/internal/s3client"
	"github.com/kuitang/movie-e2e/internal/scenarios"
	"github.com/kuitang/movie-e2e/internal/tmdb"
)

// MetricsFile is written under REPORTS_DIR when METRICS is enabled.
const MetricsFile = "metrics.prom"

// Exit codes.
const (
	exitOK     = 0
	exitFailed = 1
	exitSetup  = 2
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	code := run(ctx, os.Args[1:], os.Stdout, os.Stderr)
	stop()
	os.Exit(code)
}

func run(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	fs := flag.NewFlagSet("e2e-runner", flag.ContinueOnError)
	fs.SetOutput(stderr)
	flags, err := config.ParseFlags(fs, args)
	if errors.Is(err, flag.ErrHelp) {
		return exitOK
	}
	if err != nil {
		fmt.Fprintf(stderr, "%v\n", err)
		return exitSetup
	}
	if err := config.LoadEnvFile(flags.EnvFile); err != nil {
		fmt.Fprintf(stderr, "%v\n", err)
		return exitSetup
	}
	cfg, err := config.LoadConfig()
	if err != nil {
		fmt.Fprintf(stderr, "%v\n", err)
		return exitSetup
	}

	registry := obs.NewRegistry(cfg.LogsDir, obs.WithConsole(stderr), obs.WithLevel(obs.ParseLevel(cfg.LogLevel)))
	if err := registry.Init(); err != nil {
		fmt.Fprintf(stderr, "failed to init logging: %v\n", err)
		return exitSetup
	}
	defer registry.Close()
	obs.SetDefault(registry)
	logger := registry.Get("runner")

	s, err := newSuite(ctx, cfg, flags, registry)
	if err != nil {
		logger.Error("setup failed", zap.Error(err))
		return exitSetup
	}

	start := time.Now()
	s.runAll(ctx)
	result, err := s.finish()
	if err != nil {
		logger.Error("failed to write report", zap.Error(err))
		return exitSetup
	}

	summary := result.Summary
	logger.Info("run complete",
		zap.String("run_id", result.RunID),
		zap.Any("summary", summary),
		zap.Duration("duration", time.Since(start)))
	fmt.Fprintf(stdout, "tests: %d passed=%d failed=%d errored=%d\n",
		summary.Total, summary.Passed, summary.Failed, summary.Errored)

	if !summary.OK() {
		return exitFailed
	}
	return exitOK
}

type suite struct {
	cfg     *config.Config
	flags   config.Flags
	log     *zap.Logger
	report  *report.Report
	metrics *metrics.Collector
	ctrl    *lifecycle.Controller[*browser.Session]
	ui      []scenarios.UICase
	api     []scenarios.APICase
}

func newSuite(ctx context.Context, cfg *config.Config, flags config.Flags, registry *obs.Registry) (*suite, error) {
	s := &suite{
		cfg:    cfg,
		flags:  flags,
		log:    registry.Get("runner"),
		report: report.New(cfg.RunID, registry.Get("report")),
	}
	if cfg.Metrics {
		s.metrics = metrics.NewCollector()
	}

	data, err := loadFixtures(flags.FixturesFile)
	if err != nil {
		return nil, err
	}

	capturer, err := newCapturer(ctx, cfg, registry.Get("artifact"))
	if err != nil {
		return nil, err
	}

	provider := browser.NewProvider(browser.Options{
		Browser:        cfg.Browser,
		Headless:       cfg.Headless,
		Install:        cfg.InstallBrowsers,
		ViewportWidth:  cfg.ViewportWidth,
		ViewportHeight: cfg.ViewportHeight,
		Logger:         registry.Get("browser"),
	})
	s.ctrl = lifecycle.New[*browser.Session](provider, lifecycle.Options{
		BaseURL:      cfg.BaseURL,
		ImplicitWait: cfg.ImplicitWait,
		Capturer:     capturer,
		Report:       s.report,
		Metrics:      s.metrics,
		Logger:       registry.Get("lifecycle"),
	})

	if flags.RunsUI() {
		cases := scenarios.UI(&data.UI, cfg.ExplicitWait, registry.Get("pages"))
		s.ui = scenarios.FilterUI(cases, flags.IncludeTags, flags.ExcludeTags)
	}
	if flags.RunsAPI() {
		switch {
		case cfg.HasTMDBKey():
			client := tmdb.New(tmdb.Options{
				BaseURL: cfg.TMDBBaseURL,
				APIKey:  cfg.TMDBAPIKey,
				Timeout: cfg.TMDBTimeout,
				RPS:     cfg.TMDBRPS,
				Logger:  registry.Get("tmdb"),
			})
			cases := scenarios.API(&data.API, client, registry.Get("api"))
			s.api = scenarios.FilterAPI(cases, flags.IncludeTags, flags.ExcludeTags)
		case flags.Suite == config.SuiteAPI:
			return nil, errors.New("TMDB_API_KEY is required for the api suite")
		default:
			s.log.Warn("TMDB_API_KEY not set, skipping API checks")
		}
	}
	return s, nil
}

func loadFixtures(path string) (*fixtures.Data, error) {
	if path == "" {
		return fixtures.Default()
	}
	return fixtures.LoadFile(path)
}

func newCapturer(ctx context.Context, cfg *config.Config, log *zap.Logger) (*artifact.Capturer, error) {
	opts := artifact.Options{
		Dir:          cfg.ScreenshotsDir,
		ReportRoot:   cfg.ReportsDir,
		PathMode:     cfg.ArtifactPaths,
		UniqueSuffix: cfg.UniqueSuffix,
		Logger:       log,
	}
	if cfg.UploadEnabled() {
		client, err := s3client.New(ctx, s3client.Options{
			Endpoint:        cfg.AWSEndpointS3,
			Region:          cfg.AWSRegion,
			AccessKeyID:     cfg.AWSAccessKeyID,
			SecretAccessKey: cfg.AWSSecretAccessKey,
			Bucket:          cfg.ArtifactBucket,
			PublicURL:       cfg.AWSPublicURL,
			UsePathStyle:    cfg.AWSEndpointS3 != "",
		})
		if err != nil {
			return nil, err
		}
		opts.Sink = artifact.NewS3Sink(client, cfg.ArtifactPrefix, cfg.RunID)
		log.Info("screenshot upload enabled", zap.String("bucket", cfg.ArtifactBucket))
	}
	return artifact.New(opts)
}

// runAll runs every selected case sequentially. A cancelled context stops
// scheduling new cases; the case in flight still finalizes.
func (s *suite) runAll(ctx context.Context) {
	s.log.Info("starting run",
		zap.String("suite", s.flags.Suite),
		zap.Int("ui_cases", len(s.ui)),
		zap.Int("api_cases", len(s.api)))

	for _, c := range s.ui {
		if ctx.Err() != nil {
			s.log.Warn("run interrupted", zap.Error(ctx.Err()))
			return
		}
		s.ctrl.Run(ctx, c.ID, c.Body, c.Tags...)
	}
	for _, c := range s.api {
		if ctx.Err() != nil {
			s.log.Warn("run interrupted", zap.Error(ctx.Err()))
			return
		}
		s.ctrl.RunCheck(ctx, c.ID, c.Body, c.Tags...)
	}
}

func (s *suite) finish() (report.Run, error) {
	s.report.Finish()
	run := s.report.Run()

	w, err := report.NewWriter(s.cfg.ReportsDir)
	if err != nil {
		return run, err
	}
	if err := w.WriteRun(run); err != nil {
		return run, err
	}
	if s.metrics != nil {
		if err := s.metrics.Write(filepath.Join(s.cfg.ReportsDir, MetricsFile)); err != nil {
			return run, err
		}
	}
	s.log.Info("report written", zap.String("dir", s.cfg.ReportsDir))
	return run, nil
}
