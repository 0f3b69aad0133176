// Package config provides centralized configuration for the end-to-end suite.
// Values come from environment variables, optionally seeded from a .env file,
// and are validated before any browser or API check starts.
package config

import (
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/joho/godotenv"
)

// Artifact path conventions.
const (
	ArtifactPathsRelative = "relative"
	ArtifactPathsAbsolute = "absolute"
)

const (
	defaultBaseURL     = "http://localhost:3000"
	defaultTMDBBaseURL = "https://api.themoviedb.org/3"
	defaultAWSRegion   = "auto"
)

// Config holds all suite configuration.
type Config struct {
	// Target application
	BaseURL      string
	ExplicitWait time.Duration // page-object waits (EXPLICIT_WAIT, seconds)
	ImplicitWait time.Duration // page default timeout (IMPLICIT_WAIT, seconds)

	// Output locations
	LogsDir        string
	ReportsDir     string
	ScreenshotsDir string
	ArtifactPaths  string // relative | absolute
	UniqueSuffix   bool   // append a short uuid to screenshot names
	RunID          string
	LogLevel       string
	Metrics        bool

	// Browser
	Browser         string // chromium | firefox | webkit
	Headless        bool
	InstallBrowsers bool
	ViewportWidth   int
	ViewportHeight  int

	// Movie API
	TMDBBaseURL string
	TMDBAPIKey  string
	TMDBTimeout time.Duration
	TMDBRPS     float64

	// Screenshot upload (uses the same AWS_ env vars as the rest of our tooling)
	ArtifactBucket     string // ARTIFACT_BUCKET
	ArtifactPrefix     string // ARTIFACT_PREFIX
	AWSEndpointS3      string // AWS_ENDPOINT_URL_S3
	AWSRegion          string // AWS_REGION
	AWSAccessKeyID     string // AWS_ACCESS_KEY_ID
	AWSSecretAccessKey string // AWS_SECRET_ACCESS_KEY
	AWSPublicURL       string // S3_PUBLIC_URL
}

// ValidationError represents a configuration validation error with multiple issues.
type ValidationError struct {
	Errors []string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("configuration validation failed:\n  - %s", strings.Join(e.Errors, "\n  - "))
}

// LoadEnvFile seeds the environment from a .env file. An empty path tries ./.env
// and ignores its absence; an explicit path must exist. Variables already set in
// the environment win over the file.
func LoadEnvFile(path string) error {
	if path == "" {
		if _, err := os.Stat(".env"); err != nil {
			return nil
		}
		path = ".env"
	}
	if err := godotenv.Load(path); err != nil {
		return fmt.Errorf("load env file %s: %w", path, err)
	}
	return nil
}

// LoadConfig loads configuration from environment variables and validates it.
func LoadConfig() (*Config, error) {
	cfg := &Config{}

	cfg.BaseURL = strings.TrimRight(getEnvOrDefault("BASE_URL", defaultBaseURL), "/")
	cfg.ExplicitWait = parseSecondsOrDefault("EXPLICIT_WAIT", 10*time.Second)
	cfg.ImplicitWait = parseSecondsOrDefault("IMPLICIT_WAIT", 5*time.Second)

	cfg.LogsDir = getEnvOrDefault("LOGS_DIR", "logs")
	cfg.ReportsDir = getEnvOrDefault("REPORTS_DIR", "reports")
	cfg.ScreenshotsDir = getEnvOrDefault("SCREENSHOTS_DIR", filepath.Join(cfg.ReportsDir, "screenshots"))
	cfg.ArtifactPaths = strings.ToLower(getEnvOrDefault("ARTIFACT_PATHS", ArtifactPathsRelative))
	cfg.UniqueSuffix = parseBoolOrDefault("SCREENSHOT_UNIQUE_SUFFIX", false)
	cfg.RunID = getEnvOrDefault("RUN_ID", uuid.NewString())
	cfg.LogLevel = strings.ToLower(getEnvOrDefault("LOG_LEVEL", "info"))
	cfg.Metrics = parseBoolOrDefault("METRICS", true)

	cfg.Browser = strings.ToLower(getEnvOrDefault("BROWSER", "chromium"))
	cfg.Headless = parseBoolOrDefault("HEADLESS", true)
	cfg.InstallBrowsers = parseBoolOrDefault("INSTALL_BROWSERS", false)
	cfg.ViewportWidth = parseIntOrDefault("VIEWPORT_WIDTH", 1920)
	cfg.ViewportHeight = parseIntOrDefault("VIEWPORT_HEIGHT", 1080)

	cfg.TMDBBaseURL = strings.TrimRight(getEnvOrDefault("TMDB_BASE_URL", defaultTMDBBaseURL), "/")
	cfg.TMDBAPIKey = getEnvOrDefault("TMDB_API_KEY", "")
	cfg.TMDBTimeout = parseDurationOrDefault("TMDB_TIMEOUT", 30*time.Second)
	cfg.TMDBRPS = parseFloat64OrDefault("TMDB_RPS", 0)

	cfg.ArtifactBucket = getEnvOrDefault("ARTIFACT_BUCKET", "")
	cfg.ArtifactPrefix = strings.Trim(getEnvOrDefault("ARTIFACT_PREFIX", "e2e"), "/")
	cfg.AWSEndpointS3 = getEnvOrDefault("AWS_ENDPOINT_URL_S3", "")
	cfg.AWSRegion = getEnvOrDefault("AWS_REGION", defaultAWSRegion)
	cfg.AWSAccessKeyID = getEnvOrDefault("AWS_ACCESS_KEY_ID", "")
	cfg.AWSSecretAccessKey = getEnvOrDefault("AWS_SECRET_ACCESS_KEY", "")
	cfg.AWSPublicURL = getEnvOrDefault("S3_PUBLIC_URL", "")
	if cfg.AWSPublicURL == "" && cfg.ArtifactBucket != "" {
		if cfg.AWSEndpointS3 != "" {
			cfg.AWSPublicURL = strings.TrimRight(cfg.AWSEndpointS3, "/") + "/" + cfg.ArtifactBucket
		} else {
			cfg.AWSPublicURL = fmt.Sprintf("https://%s.s3.%s.amazonaws.com", cfg.ArtifactBucket, cfg.AWSRegion)
		}
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks that all configuration values are usable.
func (c *Config) Validate() error {
	var errs []string

	if !isHTTPURL(c.BaseURL) {
		errs = append(errs, fmt.Sprintf("BASE_URL must be an absolute http(s) URL, got %q", c.BaseURL))
	}
	if c.ExplicitWait <= 0 {
		errs = append(errs, "EXPLICIT_WAIT must be positive")
	}
	if c.ImplicitWait <= 0 {
		errs = append(errs, "IMPLICIT_WAIT must be positive")
	}
	if c.LogsDir == "" {
		errs = append(errs, "LOGS_DIR is required")
	}
	if c.ReportsDir == "" {
		errs = append(errs, "REPORTS_DIR is required")
	}
	if c.ScreenshotsDir == "" {
		errs = append(errs, "SCREENSHOTS_DIR is required")
	}
	switch c.ArtifactPaths {
	case ArtifactPathsRelative, ArtifactPathsAbsolute:
	default:
		errs = append(errs, fmt.Sprintf("ARTIFACT_PATHS must be %q or %q, got %q", ArtifactPathsRelative, ArtifactPathsAbsolute, c.ArtifactPaths))
	}
	switch c.Browser {
	case "chromium", "firefox", "webkit":
	default:
		errs = append(errs, fmt.Sprintf("BROWSER must be chromium, firefox or webkit, got %q", c.Browser))
	}
	if c.ViewportWidth <= 0 || c.ViewportHeight <= 0 {
		errs = append(errs, "VIEWPORT_WIDTH and VIEWPORT_HEIGHT must be positive")
	}
	switch c.LogLevel {
	case "debug", "info", "warn", "error":
	default:
		errs = append(errs, fmt.Sprintf("LOG_LEVEL must be debug, info, warn or error, got %q", c.LogLevel))
	}
	if !isHTTPURL(c.TMDBBaseURL) {
		errs = append(errs, fmt.Sprintf("TMDB_BASE_URL must be an absolute http(s) URL, got %q", c.TMDBBaseURL))
	}
	if c.TMDBTimeout <= 0 {
		errs = append(errs, "TMDB_TIMEOUT must be positive")
	}
	if c.TMDBRPS < 0 {
		errs = append(errs, "TMDB_RPS must not be negative")
	}

	// Without an endpoint the upload targets AWS S3 itself, which needs a real
	// region. Static keys come in pairs; with neither set the default AWS
	// credential chain applies.
	if c.ArtifactBucket != "" {
		if c.AWSEndpointS3 == "" && (c.AWSRegion == "" || c.AWSRegion == defaultAWSRegion) {
			errs = append(errs, "AWS_REGION is required when ARTIFACT_BUCKET is set without AWS_ENDPOINT_URL_S3")
		}
		if (c.AWSAccessKeyID == "") != (c.AWSSecretAccessKey == "") {
			errs = append(errs, "AWS_ACCESS_KEY_ID and AWS_SECRET_ACCESS_KEY must be set together")
		}
	}

	if len(errs) > 0 {
		return &ValidationError{Errors: errs}
	}
	return nil
}

// UploadEnabled returns true when screenshots should also be pushed to object storage.
func (c *Config) UploadEnabled() bool {
	return c.ArtifactBucket != ""
}

// HasTMDBKey returns true when the API checks can authenticate.
func (c *Config) HasTMDBKey() bool {
	return c.TMDBAPIKey != ""
}

// Helper functions for parsing environment variables

func isHTTPURL(raw string) bool {
	u, err := url.Parse(raw)
	if err != nil {
		return false
	}
	return (u.Scheme == "http" || u.Scheme == "https") && u.Host != ""
}

func getEnvOrDefault(key, defaultValue string) string {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return defaultValue
	}
	return value
}

func parseIntOrDefault(key string, defaultValue int) int {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return defaultValue
	}
	parsed, err := strconv.Atoi(value)
	if err != nil {
		return defaultValue
	}
	return parsed
}

func parseFloat64OrDefault(key string, defaultValue float64) float64 {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return defaultValue
	}
	parsed, err := strconv.ParseFloat(value, 64)
	if err != nil {
		return defaultValue
	}
	return parsed
}

func parseBoolOrDefault(key string, defaultValue bool) bool {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return defaultValue
	}
	switch strings.ToLower(value) {
	case "1", "true", "yes", "y":
		return true
	case "0", "false", "no", "n":
		return false
	default:
		return defaultValue
	}
}

func parseDurationOrDefault(key string, defaultValue time.Duration) time.Duration {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return defaultValue
	}
	parsed, err := time.ParseDuration(value)
	if err != nil {
		return defaultValue
	}
	return parsed
}

// parseSecondsOrDefault accepts plain seconds ("10", "2.5") or a Go duration ("1500ms").
func parseSecondsOrDefault(key string, defaultValue time.Duration) time.Duration {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return defaultValue
	}
	if secs, err := strconv.ParseFloat(value, 64); err == nil {
		return time.Duration(secs * float64(time.Second))
	}
	if parsed, err := time.ParseDuration(value); err == nil {
		return parsed
	}
	return defaultValue
}
