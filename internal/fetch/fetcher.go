package fetch

import (
	"context"
	"errors"
	"fmt"
	"math"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/go-resty/resty/v2"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
	"trade-journal-go/internal/config"
	"trade-journal-go/internal/metrics"
)

// ErrBadURL marks report URLs that are rejected before any request is made.
var ErrBadURL = errors.New("invalid report url")

// FetcherInterface defines the downloader for remote activity reports.
type FetcherInterface interface {
	Fetch(ctx context.Context, rawURL string) ([]byte, error)
}

// Fetcher downloads activity report exports over HTTP.
// It implements the FetcherInterface.
type Fetcher struct {
	client   *resty.Client
	logger   *zap.Logger
	limiter  *rate.Limiter
	metrics  *metrics.Metrics
	maxBytes int64
}

// ensure Fetcher implements the interface
var _ FetcherInterface = (*Fetcher)(nil)

// NewFetcher creates a new report downloader.
func NewFetcher(cfg *config.Fetch, logger *zap.Logger, m *metrics.Metrics) *Fetcher {
	client := resty.New().
		SetTimeout(time.Duration(cfg.TimeoutSeconds) * time.Second)

	// rate.Limit is requests per second.
	limiter := rate.NewLimiter(rate.Limit(cfg.RateLimit), cfg.RateLimitBurst)

	return &Fetcher{
		client:   client,
		logger:   logger,
		limiter:  limiter,
		metrics:  m,
		maxBytes: cfg.MaxBytes,
	}
}

// Fetch downloads one report, retrying transient failures. Only http and
// https URLs are accepted.
func (f *Fetcher) Fetch(ctx context.Context, rawURL string) ([]byte, error) {
	if err := validateURL(rawURL); err != nil {
		return nil, err
	}

	start := time.Now()
	body, err := f.fetchWithRetry(ctx, rawURL)
	if err != nil {
		f.metrics.RecordRemoteFetch("failure", time.Since(start))
		f.logger.Error("failed to download report", zap.String("url", rawURL), zap.Error(err))
		return nil, err
	}

	f.metrics.RecordRemoteFetch("success", time.Since(start))
	f.logger.Info("downloaded report", zap.String("url", rawURL), zap.Int("bytes", len(body)))
	return body, nil
}

// fetchWithRetry handles the actual request execution with rate limiting and
// retry logic.
func (f *Fetcher) fetchWithRetry(ctx context.Context, rawURL string) ([]byte, error) {
	var resp *resty.Response
	var err error
	const maxRetries = 3

	for i := 0; i < maxRetries; i++ {
		// Wait for the rate limiter
		if err := f.limiter.Wait(ctx); err != nil {
			return nil, fmt.Errorf("rate limiter wait failed: %w", err)
		}

		f.logger.Debug("downloading report", zap.String("url", rawURL), zap.Int("attempt", i+1))
		resp, err = f.client.R().SetContext(ctx).Get(rawURL)

		if err == nil && !resp.IsError() {
			if f.maxBytes > 0 && int64(len(resp.Body())) > f.maxBytes {
				return nil, fmt.Errorf("report exceeds size limit of %d bytes", f.maxBytes)
			}
			return resp.Body(), nil
		}

		// Analyze error and decide whether to retry. A transport error leaves
		// the response without a status code.
		shouldRetry := false
		var retryAfter time.Duration

		if resp != nil && resp.StatusCode() != 0 {
			statusCode := resp.StatusCode()
			if statusCode == http.StatusTooManyRequests {
				shouldRetry = true
				retryAfterHeader := resp.Header().Get("Retry-After")
				if seconds, err := strconv.Atoi(retryAfterHeader); err == nil {
					retryAfter = time.Duration(seconds) * time.Second
				}
			} else if statusCode >= 500 { // Server errors
				shouldRetry = true
			}
		} else { // Network or other client-side errors
			shouldRetry = true
		}

		if !shouldRetry {
			return nil, fmt.Errorf("download failed with status %s", resp.Status())
		}

		// If we should retry, calculate wait time
		if retryAfter == 0 {
			// Exponential backoff: 1s, 2s, 4s
			retryAfter = time.Duration(math.Pow(2, float64(i))) * time.Second
		}

		f.logger.Warn("download failed, retrying...",
			zap.Int("attempt", i+1),
			zap.Duration("retry_after", retryAfter),
			zap.Error(err),
		)

		select {
		case <-time.After(retryAfter):
			continue
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}

	if err == nil && resp != nil {
		err = fmt.Errorf("status %s", resp.Status())
	}
	return nil, fmt.Errorf("download failed after %d attempts: %w", maxRetries, err)
}

func validateURL(rawURL string) error {
	u, err := url.Parse(rawURL)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrBadURL, err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("%w: unsupported scheme %q", ErrBadURL, u.Scheme)
	}
	if u.Host == "" {
		return fmt.Errorf("%w: no host in %q", ErrBadURL, rawURL)
	}
	return nil
}
