// Package feed fetches the gameweek schedule from the FPL bootstrap-static endpoint.
package feed

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math"
	"net/http"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"github.com/m-mukund/fpl-optimizer/internal/domain/model"
	"github.com/m-mukund/fpl-optimizer/pkg/logger"
	"github.com/m-mukund/fpl-optimizer/pkg/metrics"
)

const (
	// DefaultURL is the public FPL bootstrap endpoint.
	DefaultURL = "https://fantasy.premierleague.com/api/bootstrap-static/"

	defaultTimeout    = 10 * time.Second
	defaultRatePerSec = 2
	defaultBurst      = 1
	defaultMaxRetries = 3

	// DefaultRetryWait is the first backoff step; it doubles per retry.
	DefaultRetryWait = 500 * time.Millisecond

	source = "schedule"
)

var (
	errClientStatus = errors.New("client error")
	errServerStatus = errors.New("server error")
)

type bootstrap struct {
	Events []event `json:"events"`
}

type event struct {
	ID       int       `json:"id"`
	Deadline time.Time `json:"deadline_time"`
	Finished bool      `json:"finished"`
}

// Client reads the ordered list of gameweeks. Requests are rate limited and
// retried with exponential backoff on transport errors, 429 and 5xx.
type Client struct {
	http       *http.Client
	url        string
	limiter    *rate.Limiter
	maxRetries int
	retryWait  time.Duration
	cacheTTL   time.Duration
	now        func() time.Time
	logger     logger.Logger

	mu       sync.Mutex
	cached   []model.ScoringPeriod
	cachedAt time.Time
}

// Option configures a Client.
type Option func(*Client)

// WithURL overrides the bootstrap endpoint.
func WithURL(url string) Option {
	return func(c *Client) {
		if url != "" {
			c.url = url
		}
	}
}

// WithHTTPClient sets the underlying HTTP client.
func WithHTTPClient(h *http.Client) Option {
	return func(c *Client) {
		if h != nil {
			c.http = h
		}
	}
}

// WithTimeout sets the per-request timeout of the default HTTP client.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		if d > 0 {
			c.http.Timeout = d
		}
	}
}

// WithRateLimit sets requests per second and burst.
func WithRateLimit(perSec float64, burst int) Option {
	return func(c *Client) {
		if perSec > 0 && burst > 0 {
			c.limiter = rate.NewLimiter(rate.Limit(perSec), burst)
		}
	}
}

// WithRetries sets the retry count and the base backoff wait.
func WithRetries(maxRetries int, baseWait time.Duration) Option {
	return func(c *Client) {
		if maxRetries >= 0 {
			c.maxRetries = maxRetries
		}
		if baseWait > 0 {
			c.retryWait = baseWait
		}
	}
}

// WithCacheTTL keeps the last successful schedule for d. Zero disables caching.
func WithCacheTTL(d time.Duration) Option {
	return func(c *Client) {
		if d >= 0 {
			c.cacheTTL = d
		}
	}
}

// WithClock sets the time source used for schedule caching.
func WithClock(now func() time.Time) Option {
	return func(c *Client) {
		if now != nil {
			c.now = now
		}
	}
}

// WithLogger sets the logger.
func WithLogger(l logger.Logger) Option {
	return func(c *Client) {
		if l != nil {
			c.logger = l
		}
	}
}

// New creates a Client for the public endpoint unless WithURL is given.
func New(opts ...Option) *Client {
	c := &Client{
		http:       &http.Client{Timeout: defaultTimeout},
		url:        DefaultURL,
		limiter:    rate.NewLimiter(defaultRatePerSec, defaultBurst),
		maxRetries: defaultMaxRetries,
		retryWait:  DefaultRetryWait,
		now:        time.Now,
		logger:     logger.Nop(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Periods returns the gameweeks in feed order. Failures are wrapped in
// model.UpstreamError with source "schedule".
func (c *Client) Periods(ctx context.Context) ([]model.ScoringPeriod, error) {
	if p, ok := c.fromCache(); ok {
		return p, nil
	}

	start := time.Now()
	var body bootstrap
	if err := c.doWithRetry(ctx, &body); err != nil {
		return nil, model.NewUpstreamError(source, "fetch", err)
	}
	metrics.RecordScheduleFetch(metrics.SinceMs(start))

	periods := make([]model.ScoringPeriod, 0, len(body.Events))
	for _, e := range body.Events {
		periods = append(periods, model.ScoringPeriod{ID: e.ID, Deadline: e.Deadline, Finished: e.Finished})
	}
	c.logger.Debug(ctx, "schedule fetched", logger.Int("gameweeks", len(periods)))

	c.store(periods)
	return clonePeriods(periods), nil
}

func (c *Client) fromCache() ([]model.ScoringPeriod, bool) {
	if c.cacheTTL <= 0 {
		return nil, false
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.cached == nil || c.now().Sub(c.cachedAt) >= c.cacheTTL {
		return nil, false
	}
	return clonePeriods(c.cached), true
}

func (c *Client) store(p []model.ScoringPeriod) {
	if c.cacheTTL <= 0 {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.cached = p
	c.cachedAt = c.now()
}

func (c *Client) doWithRetry(ctx context.Context, out any) error {
	var lastErr error
	for attempt := 0; attempt <= c.maxRetries; attempt++ {
		if attempt > 0 {
			metrics.RecordScheduleRetry()
			if err := c.sleep(ctx, attempt-1); err != nil {
				return err
			}
		}
		if err := c.limiter.Wait(ctx); err != nil {
			return fmt.Errorf("rate limiter: %w", err)
		}

		retry, err := c.do(ctx, out)
		if err == nil {
			return nil
		}
		if !retry {
			return err
		}
		lastErr = err
		c.logger.Warn(ctx, "schedule request failed",
			logger.Int("attempt", attempt+1),
			logger.Error(err),
		)
	}
	return fmt.Errorf("request failed after %d retries: %w", c.maxRetries, lastErr)
}

// do performs one request. retry reports whether the failure is transient.
func (c *Client) do(ctx context.Context, out any) (retry bool, err error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.url, nil)
	if err != nil {
		return false, err
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return ctx.Err() == nil, err
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500:
		_, _ = io.Copy(io.Discard, resp.Body)
		return true, fmt.Errorf("%w %d", errServerStatus, resp.StatusCode)
	case resp.StatusCode >= 400:
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return false, fmt.Errorf("%w %d: %s", errClientStatus, resp.StatusCode, string(body))
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return false, fmt.Errorf("decode response: %w", err)
	}
	return false, nil
}

func (c *Client) sleep(ctx context.Context, attempt int) error {
	wait := time.Duration(math.Pow(2, float64(attempt))) * c.retryWait
	t := time.NewTimer(wait)
	defer t.Stop()
	select {
	case <-t.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func clonePeriods(p []model.ScoringPeriod) []model.ScoringPeriod {
	return append([]model.ScoringPeriod(nil), p...)
}
