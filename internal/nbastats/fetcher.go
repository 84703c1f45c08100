package nbastats

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/ignite/nba-analytics/internal/pkg/logger"
)

// HTTPDoer is the interface for executing HTTP requests.
// Both *http.Client and test doubles satisfy this interface.
type HTTPDoer interface {
	Do(req *http.Request) (*http.Response, error)
}

// RetryingFetcher executes provider requests with bounded exponential-backoff
// retry. Transient failures (network errors, 429, 5xx) are retried up to the
// attempt budget; permanent failures (other 4xx) surface immediately. The
// provider is read-only, so repeated calls are safe.
type RetryingFetcher struct {
	client      HTTPDoer
	baseURL     string
	maxAttempts int
	baseDelay   time.Duration
	sleep       func(time.Duration) // injectable for deterministic tests
}

// NewRetryingFetcher creates a fetcher against the given base URL.
// If client is nil, a default http.Client with 30s timeout is used.
// maxAttempts is the total attempt budget (default 3).
func NewRetryingFetcher(client HTTPDoer, baseURL string, maxAttempts int, baseDelay time.Duration) *RetryingFetcher {
	if client == nil {
		client = &http.Client{Timeout: 30 * time.Second}
	}
	if maxAttempts <= 0 {
		maxAttempts = 3
	}
	if baseDelay <= 0 {
		baseDelay = 1 * time.Second
	}
	return &RetryingFetcher{
		client:      client,
		baseURL:     baseURL,
		maxAttempts: maxAttempts,
		baseDelay:   baseDelay,
		sleep:       time.Sleep,
	}
}

// Fetch issues a GET to baseURL/endpoint with the given query parameters and
// returns the response body. Backoff between attempts is
// baseDelay * 2^attemptIndex.
func (f *RetryingFetcher) Fetch(ctx context.Context, endpoint string, params url.Values) ([]byte, error) {
	if endpoint == "" {
		return nil, &PermanentError{Err: fmt.Errorf("empty endpoint")}
	}

	reqURL := fmt.Sprintf("%s/%s?%s", f.baseURL, endpoint, params.Encode())

	var lastErr error
	for attempt := 0; attempt < f.maxAttempts; attempt++ {
		if attempt > 0 {
			delay := f.baseDelay * (1 << (attempt - 1))
			logger.Warn("retrying provider request",
				"endpoint", endpoint,
				"attempt", attempt+1,
				"max_attempts", f.maxAttempts,
				"delay", delay.String())
			f.sleep(delay)
		}

		if err := ctx.Err(); err != nil {
			if lastErr != nil {
				return nil, lastErr
			}
			return nil, err
		}

		body, err := f.attempt(ctx, reqURL)
		if err == nil {
			return body, nil
		}

		var perm *PermanentError
		if errors.As(err, &perm) {
			return nil, perm
		}
		lastErr = err
	}

	return nil, &ExhaustedRetriesError{Attempts: f.maxAttempts, Last: lastErr}
}

func (f *RetryingFetcher) attempt(ctx context.Context, reqURL string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, &PermanentError{Err: err}
	}

	// The stats API rejects requests without browser-style headers.
	req.Header.Set("User-Agent", "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36")
	req.Header.Set("Accept", "application/json")
	req.Header.Set("Accept-Language", "en-US,en;q=0.9")
	req.Header.Set("Referer", "https://www.nba.com/")

	resp, err := f.client.Do(req)
	if err != nil {
		// Network/connection/timeout error
		return nil, &TransientError{Err: err}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &TransientError{Err: err}
	}

	if resp.StatusCode == http.StatusOK {
		return body, nil
	}

	statusErr := fmt.Errorf("provider returned status %d: %s", resp.StatusCode, truncate(body, 200))
	if isRetryableStatus(resp.StatusCode) {
		return nil, &TransientError{Err: statusErr}
	}
	return nil, &PermanentError{Err: statusErr}
}

// isRetryableStatus returns true for status codes that indicate a transient
// server-side condition: 429, 500, 502, 503, 504.
func isRetryableStatus(statusCode int) bool {
	switch statusCode {
	case http.StatusTooManyRequests,
		http.StatusInternalServerError,
		http.StatusBadGateway,
		http.StatusServiceUnavailable,
		http.StatusGatewayTimeout:
		return true
	default:
		return false
	}
}

func truncate(b []byte, n int) string {
	if len(b) <= n {
		return string(b)
	}
	return string(b[:n]) + "..."
}
