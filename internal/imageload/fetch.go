package imageload

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/hyperjump/otoshimono/internal/config"
	"github.com/sony/gobreaker"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

var errTooLarge = errors.New("image exceeds size limit")

// StatusError is returned when the image host answers with a non-200 status.
type StatusError struct {
	Code int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("unexpected status %d", e.Code)
}

func (e *StatusError) retryable() bool {
	return e.Code >= 500 || e.Code == http.StatusTooManyRequests
}

// Fetcher downloads images over HTTP with rate limiting, bounded retries, and a
// circuit breaker that stops hammering image hosts that keep failing.
type Fetcher struct {
	client        *http.Client
	limiter       *rate.Limiter
	breaker       *gobreaker.CircuitBreaker
	maxBytes      int64
	maxRetries    int
	retryInterval time.Duration
	userAgent     string
	logger        *zap.Logger
}

// FetcherOption configures a Fetcher.
type FetcherOption func(*Fetcher)

// WithLogger sets a logger for retry and breaker events.
func WithLogger(l *zap.Logger) FetcherOption {
	return func(f *Fetcher) { f.logger = l }
}

// WithHTTPClient replaces the default HTTP client.
func WithHTTPClient(c *http.Client) FetcherOption {
	return func(f *Fetcher) { f.client = c }
}

// WithRetryInterval sets the initial backoff interval between attempts.
func WithRetryInterval(d time.Duration) FetcherOption {
	return func(f *Fetcher) { f.retryInterval = d }
}

// NewFetcher creates a Fetcher from cfg.
func NewFetcher(cfg *config.FetchConfig, opts ...FetcherOption) *Fetcher {
	f := &Fetcher{
		client:        &http.Client{Timeout: cfg.Timeout},
		limiter:       rate.NewLimiter(rate.Limit(cfg.RatePerSecond), cfg.Burst),
		maxBytes:      cfg.MaxBytes,
		maxRetries:    cfg.MaxRetries,
		retryInterval: 250 * time.Millisecond,
		userAgent:     cfg.UserAgent,
		logger:        zap.NewNop(),
	}
	for _, opt := range opts {
		opt(f)
	}
	failures := cfg.BreakerFailures
	logger := f.logger
	f.breaker = gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        "image-fetch",
		MaxRequests: 1,
		Timeout:     cfg.BreakerTimeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= failures
		},
		IsSuccessful: func(err error) bool {
			// The host answered; a bad URL is the caller's problem, not an outage.
			var se *StatusError
			if errors.As(err, &se) {
				return !se.retryable()
			}
			return err == nil || errors.Is(err, errTooLarge)
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logger.Warn("circuit breaker state changed",
				zap.String("breaker", name), zap.String("from", from.String()), zap.String("to", to.String()))
		},
	})
	return f
}

// Fetch downloads the image at rawURL and returns its bytes.
func (f *Fetcher) Fetch(ctx context.Context, rawURL string) ([]byte, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return nil, fmt.Errorf("invalid image url: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, fmt.Errorf("unsupported image url scheme %q", u.Scheme)
	}

	b := backoff.NewExponentialBackOff()
	b.InitialInterval = f.retryInterval
	policy := backoff.WithContext(backoff.WithMaxRetries(b, uint64(f.maxRetries)), ctx)

	var data []byte
	operation := func() error {
		if err := f.limiter.Wait(ctx); err != nil {
			return backoff.Permanent(err)
		}
		out, err := f.breaker.Execute(func() (interface{}, error) {
			return f.get(ctx, u.String())
		})
		if err != nil {
			if !retryable(ctx, err) {
				return backoff.Permanent(err)
			}
			return err
		}
		data = out.([]byte)
		return nil
	}
	notify := func(err error, wait time.Duration) {
		f.logger.Debug("image fetch retry", zap.String("url", u.String()), zap.Duration("wait", wait), zap.Error(err))
	}
	if err := backoff.RetryNotify(operation, policy, notify); err != nil {
		return nil, err
	}
	return data, nil
}

func (f *Fetcher) get(ctx context.Context, rawURL string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, err
	}
	if f.userAgent != "" {
		req.Header.Set("User-Agent", f.userAgent)
	}
	resp, err := f.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))
		return nil, &StatusError{Code: resp.StatusCode}
	}
	if f.maxBytes > 0 && resp.ContentLength > f.maxBytes {
		return nil, errTooLarge
	}
	limit := f.maxBytes
	if limit <= 0 {
		limit = 1 << 62
	}
	data, err := io.ReadAll(io.LimitReader(resp.Body, limit+1))
	if err != nil {
		return nil, err
	}
	if int64(len(data)) > limit {
		return nil, errTooLarge
	}
	return data, nil
}

// BreakerState returns the current circuit breaker state name.
func (f *Fetcher) BreakerState() string {
	return f.breaker.State().String()
}

func retryable(ctx context.Context, err error) bool {
	if ctx.Err() != nil {
		return false
	}
	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		return false
	}
	if errors.Is(err, errTooLarge) {
		return false
	}
	var se *StatusError
	if errors.As(err, &se) {
		return se.retryable()
	}
	return true
}
