// Package tmdb is a minimal client for the movie API checks. It performs
// exactly one request per call: non-2xx responses and transport failures are
// returned immediately with no retry.
package tmdb

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/kuitang/movie-e2e/internal/errs"
	"github.com/kuitang/movie-e2e/internal/logutil"
)

const maxLoggedBody = 512

// Options configures a Client.
type Options struct {
	BaseURL    string // e.g. https://api.themoviedb.org/3
	APIKey     string
	Timeout    time.Duration
	RPS        float64 // client-side pacing; 0 disables it
	HTTPClient *http.Client
	Logger     *zap.Logger
}

// Client calls the movie API.
type Client struct {
	baseURL string
	apiKey  string
	http    *http.Client
	limiter *rate.Limiter
	log     *zap.Logger
}

// New returns a client for opts.
func New(opts Options) *Client {
	c := &Client{
		baseURL: strings.TrimRight(opts.BaseURL, "/"),
		apiKey:  opts.APIKey,
		http:    opts.HTTPClient,
		log:     opts.Logger,
	}
	if c.http == nil {
		timeout := opts.Timeout
		if timeout <= 0 {
			timeout = 30 * time.Second
		}
		c.http = &http.Client{Timeout: timeout}
	}
	if c.log == nil {
		c.log = zap.NewNop()
	}
	if opts.RPS > 0 {
		c.limiter = rate.NewLimiter(rate.Limit(opts.RPS), 1)
	}
	return c
}

// Movie is one entry in a list response.
type Movie struct {
	ID          int64   `json:"id"`
	Title       string  `json:"title"`
	ReleaseDate string  `json:"release_date"`
	VoteAverage float64 `json:"vote_average"`
	GenreIDs    []int   `json:"genre_ids,omitempty"`
}

// ReleaseYear parses the year from ReleaseDate ("YYYY-MM-DD").
func (m Movie) ReleaseYear() (int, error) {
	year, _, _ := strings.Cut(m.ReleaseDate, "-")
	n, err := strconv.Atoi(year)
	if err != nil {
		return 0, errs.Wrap(errs.InvalidArgument, fmt.Sprintf("release date %q of %q has no year", m.ReleaseDate, m.Title), err)
	}
	return n, nil
}

// ListResponse is the paged list shape shared by /movie/{category} and
// /discover/movie. Raw keeps the body for shape checks.
type ListResponse struct {
	Page         int     `json:"page"`
	Results      []Movie `json:"results"`
	TotalPages   int     `json:"total_pages"`
	TotalResults int     `json:"total_results"`

	StatusCode int    `json:"-"`
	URL        string `json:"-"` // redacted
	Raw        []byte `json:"-"`
}

// StatusError is a non-2xx response.
type StatusError struct {
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("unexpected status %d: %s", e.StatusCode, e.Body)
}

// DiscoverParams are the /discover/movie filters. Zero values are omitted.
type DiscoverParams struct {
	SortBy         string
	ReleaseDateGTE string
	ReleaseDateLTE string
	VoteAverageGTE *float64
	VoteAverageLTE *float64
	Page           int
}

// Values encodes p as query parameters.
func (p DiscoverParams) Values() url.Values {
	q := url.Values{}
	if p.SortBy != "" {
		q.Set("sort_by", p.SortBy)
	}
	if p.ReleaseDateGTE != "" {
		q.Set("release_date.gte", p.ReleaseDateGTE)
	}
	if p.ReleaseDateLTE != "" {
		q.Set("release_date.lte", p.ReleaseDateLTE)
	}
	if p.VoteAverageGTE != nil {
		q.Set("vote_average.gte", strconv.FormatFloat(*p.VoteAverageGTE, 'f', -1, 64))
	}
	if p.VoteAverageLTE != nil {
		q.Set("vote_average.lte", strconv.FormatFloat(*p.VoteAverageLTE, 'f', -1, 64))
	}
	if p.Page > 0 {
		q.Set("page", strconv.Itoa(p.Page))
	}
	return q
}

// MovieList fetches GET /movie/{category}?page=N.
func (c *Client) MovieList(ctx context.Context, category string, page int) (*ListResponse, error) {
	if category == "" {
		return nil, errs.New(errs.InvalidArgument, "category is required")
	}
	q := url.Values{}
	q.Set("page", strconv.Itoa(page))
	return c.get(ctx, "/movie/"+url.PathEscape(category), q)
}

// Discover fetches GET /discover/movie with p's filters.
func (c *Client) Discover(ctx context.Context, p DiscoverParams) (*ListResponse, error) {
	return c.get(ctx, "/discover/movie", p.Values())
}

func (c *Client) get(ctx context.Context, path string, q url.Values) (*ListResponse, error) {
	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return nil, errs.Wrap(errs.Timeout, "wait for request slot", err)
		}
	}

	if c.apiKey != "" {
		q.Set("api_key", c.apiKey)
	}
	target := c.baseURL + path
	if encoded := q.Encode(); encoded != "" {
		target += "?" + encoded
	}
	logged := logutil.RedactURL(target)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return nil, errs.Wrap(errs.InvalidArgument, "build request", err)
	}
	req.Header.Set("Accept", "application/json")

	c.log.Info("sending request", zap.String("url", logged))
	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		c.log.Error("request failed", zap.String("url", logged), zap.Error(err))
		return nil, transportError("GET "+path, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, transportError("read body of GET "+path, err)
	}
	c.log.Info("response received",
		zap.String("url", logged),
		zap.Int("status", resp.StatusCode),
		zap.Duration("elapsed", time.Since(start)))

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		snippet := logutil.TruncateForLog(logutil.RedactBodyForLog(body), maxLoggedBody)
		c.log.Error("unexpected status", zap.String("url", logged), zap.Int("status", resp.StatusCode), zap.String("body", snippet))
		return nil, errs.Wrap(errs.Network, "GET "+path, &StatusError{StatusCode: resp.StatusCode, Body: snippet})
	}

	out := &ListResponse{StatusCode: resp.StatusCode, URL: logged, Raw: body}
	if err := json.Unmarshal(body, out); err != nil {
		return nil, errs.Wrap(errs.Network, "decode GET "+path, err)
	}
	return out, nil
}

func transportError(action string, err error) error {
	var netErr net.Error
	if errors.Is(err, context.DeadlineExceeded) || (errors.As(err, &netErr) && netErr.Timeout()) {
		return errs.Wrap(errs.Timeout, action, err)
	}
	return errs.Wrap(errs.Network, action, err)
}
