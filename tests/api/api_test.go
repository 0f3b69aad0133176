// Package api runs the movie API checks against the live service. The tests
// skip unless TMDB_API_KEY is set.
package api

import (
	"os"
	"testing"

	"go.uber.org/zap/zaptest"

	"github.com/kuitang/movie-e2e/internal/browser"
	"github.com/kuitang/movie-e2e/internal/config"
	"github.com/kuitang/movie-e2e/internal/fixtures"
	"github.com/kuitang/movie-e2e/internal/lifecycle"
	"github.com/kuitang/movie-e2e/internal/scenarios"
	"github.com/kuitang/movie-e2e/internal/tmdb"
)

// livePacing keeps the live run well inside the API's rate limit.
const livePacing = 4

func TestLiveMovieAPI(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping live API test in short mode")
	}
	if os.Getenv("TMDB_API_KEY") == "" {
		t.Skip("TMDB_API_KEY not set")
	}

	cfg, err := config.LoadConfig()
	if err != nil {
		t.Fatalf("LoadConfig: %v", err)
	}
	data, err := fixtures.Default()
	if err != nil {
		t.Fatalf("load fixtures: %v", err)
	}

	logger := zaptest.NewLogger(t)
	rps := cfg.TMDBRPS
	if rps <= 0 {
		rps = livePacing
	}
	client := tmdb.New(tmdb.Options{
		BaseURL: cfg.TMDBBaseURL,
		APIKey:  cfg.TMDBAPIKey,
		Timeout: cfg.TMDBTimeout,
		RPS:     rps,
		Logger:  logger.Named("tmdb"),
	})
	ctrl := lifecycle.New[*browser.Session](nil, lifecycle.Options{Logger: logger.Named("lifecycle")})

	for _, c := range scenarios.API(&data.API, client, logger.Named("api")) {
		t.Run(c.ID, func(t *testing.T) {
			ctrl.Check(t, c.ID, c.Body, c.Tags...)
		})
	}
}
