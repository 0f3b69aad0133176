// Package browser starts and stops one Playwright browser per test.
// Sessions are never pooled: every Acquire launches a fresh driver and
// browser process and Release tears both down.
package browser

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/playwright-community/playwright-go"
	"go.uber.org/zap"

	"github.com/kuitang/movie-e2e/internal/errs"
	"github.com/kuitang/movie-e2e/internal/logutil"
)

// Options configures a Provider.
type Options struct {
	Browser        string // chromium, firefox or webkit
	Headless       bool
	Install        bool // download the driver and browser before the first launch
	ViewportWidth  int
	ViewportHeight int
	Logger         *zap.Logger
}

// Provider hands out browser sessions.
type Provider struct {
	opts Options
	log  *zap.Logger

	installOnce sync.Once
	installErr  error
}

// NewProvider returns a provider for opts.
func NewProvider(opts Options) *Provider {
	if opts.Browser == "" {
		opts.Browser = "chromium"
	}
	if opts.ViewportWidth <= 0 || opts.ViewportHeight <= 0 {
		opts.ViewportWidth, opts.ViewportHeight = 1920, 1080
	}
	log := opts.Logger
	if log == nil {
		log = zap.NewNop()
	}
	return &Provider{opts: opts, log: log}
}

// Session is one live browser page plus the processes behind it.
type Session struct {
	pw      *playwright.Playwright
	browser playwright.Browser
	context playwright.BrowserContext
	page    playwright.Page

	baseURL      string
	implicitWait time.Duration

	mu       sync.Mutex
	released bool
}

// Page returns the session's page.
func (s *Session) Page() playwright.Page { return s.page }

// BaseURL returns the URL the session was opened on.
func (s *Session) BaseURL() string { return s.baseURL }

// ImplicitWait returns the page default timeout.
func (s *Session) ImplicitWait() time.Duration { return s.implicitWait }

// Screenshot writes a PNG of the current viewport to path.
func (s *Session) Screenshot(path string) error {
	s.mu.Lock()
	released := s.released
	s.mu.Unlock()
	if released || s.page == nil || s.page.IsClosed() {
		return errs.New(errs.Capture, "session is closed")
	}
	if _, err := s.page.Screenshot(playwright.PageScreenshotOptions{Path: playwright.String(path)}); err != nil {
		return errs.Wrap(errs.Capture, "take screenshot", err)
	}
	return nil
}

// Acquire launches a browser, opens a page with the configured viewport,
// sets implicitWait as the default element timeout and navigates to baseURL.
// Any failure tears down what was started and returns an errs.SessionStart error.
func (p *Provider) Acquire(ctx context.Context, baseURL string, implicitWait time.Duration) (*Session, error) {
	if err := ctx.Err(); err != nil {
		return nil, errs.Wrap(errs.SessionStart, "acquire browser session", err)
	}
	if err := p.install(); err != nil {
		return nil, errs.Wrap(errs.SessionStart, "install playwright browsers", err)
	}

	pw, err := playwright.Run()
	if err != nil {
		return nil, errs.Wrap(errs.SessionStart, "start playwright driver", err)
	}
	s := &Session{pw: pw, baseURL: baseURL, implicitWait: implicitWait}

	if err := p.open(s); err != nil {
		if cleanupErr := s.teardown(); cleanupErr != nil {
			p.log.Warn("cleanup after failed start", zap.Error(cleanupErr))
		}
		return nil, errs.Wrap(errs.SessionStart, "open browser session", err)
	}

	p.log.Info("browser session started",
		zap.String("browser", p.opts.Browser),
		zap.Bool("headless", p.opts.Headless),
		zap.String("url", logutil.RedactURL(baseURL)))
	return s, nil
}

func (p *Provider) open(s *Session) error {
	bt, err := browserType(s.pw, p.opts.Browser)
	if err != nil {
		return err
	}
	s.browser, err = bt.Launch(playwright.BrowserTypeLaunchOptions{
		Headless: playwright.Bool(p.opts.Headless),
	})
	if err != nil {
		return fmt.Errorf("launch %s: %w", p.opts.Browser, err)
	}

	s.context, err = s.browser.NewContext(playwright.BrowserNewContextOptions{
		Viewport: &playwright.Size{Width: p.opts.ViewportWidth, Height: p.opts.ViewportHeight},
	})
	if err != nil {
		return fmt.Errorf("new context: %w", err)
	}

	s.page, err = s.context.NewPage()
	if err != nil {
		return fmt.Errorf("new page: %w", err)
	}
	s.page.SetDefaultTimeout(defaultTimeout(s.implicitWait))

	if _, err := s.page.Goto(s.baseURL, playwright.PageGotoOptions{
		WaitUntil: playwright.WaitUntilStateDomcontentloaded,
	}); err != nil {
		return fmt.Errorf("navigate to %s: %w", logutil.RedactURL(s.baseURL), err)
	}
	return nil
}

func (p *Provider) install() error {
	if !p.opts.Install {
		return nil
	}
	p.installOnce.Do(func() {
		p.log.Info("installing playwright driver and browser", zap.String("browser", p.opts.Browser))
		p.installErr = playwright.Install(&playwright.RunOptions{Browsers: []string{p.opts.Browser}})
	})
	return p.installErr
}

// fallbackTimeout replaces non-positive waits, which Playwright reads as "wait forever".
const fallbackTimeout = 30 * time.Second

func defaultTimeout(wait time.Duration) float64 {
	if wait <= 0 {
		wait = fallbackTimeout
	}
	return float64(wait.Milliseconds())
}

func browserType(pw *playwright.Playwright, name string) (playwright.BrowserType, error) {
	switch name {
	case "", "chromium":
		return pw.Chromium, nil
	case "firefox":
		return pw.Firefox, nil
	case "webkit":
		return pw.WebKit, nil
	}
	return nil, fmt.Errorf("unknown browser %q", name)
}

// Release closes the page, context and browser and stops the driver. It may be
// called once per session; errors carry errs.Release.
func (p *Provider) Release(_ context.Context, s *Session) error {
	if s == nil {
		return errs.New(errs.Release, "release nil session")
	}
	s.mu.Lock()
	if s.released {
		s.mu.Unlock()
		return errs.New(errs.Release, "session already released")
	}
	s.released = true
	s.mu.Unlock()

	if err := s.teardown(); err != nil {
		return errs.Wrap(errs.Release, "release browser session", err)
	}
	p.log.Debug("browser session released")
	return nil
}

func (s *Session) teardown() error {
	var closeErrs []error
	if s.page != nil && !s.page.IsClosed() {
		if err := s.page.Close(); err != nil {
			closeErrs = append(closeErrs, fmt.Errorf("close page: %w", err))
		}
	}
	if s.context != nil {
		if err := s.context.Close(); err != nil {
			closeErrs = append(closeErrs, fmt.Errorf("close context: %w", err))
		}
	}
	if s.browser != nil {
		if err := s.browser.Close(); err != nil {
			closeErrs = append(closeErrs, fmt.Errorf("close browser: %w", err))
		}
	}
	if s.pw != nil {
		if err := s.pw.Stop(); err != nil {
			closeErrs = append(closeErrs, fmt.Errorf("stop driver: %w", err))
		}
	}
	return errors.Join(closeErrs...)
}
