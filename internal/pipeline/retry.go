package pipeline

import (
	"context"
	"errors"
	"fmt"
	"math"
	"math/rand"
	"net"
	"net/http"
	"time"
)

// retryConfig controls retry behavior for metadata probe requests.
type retryConfig struct {
	MaxRetries   int
	InitialDelay time.Duration
	MaxDelay     time.Duration
}

var defaultRetryConfig = retryConfig{
	MaxRetries:   3,
	InitialDelay: 500 * time.Millisecond,
	MaxDelay:     8 * time.Second,
}

// retryTransport wraps an http.RoundTripper and retries transient failures
// with exponential backoff and jitter.
type retryTransport struct {
	base   http.RoundTripper
	config retryConfig
}

func newRetryTransport(base http.RoundTripper, config retryConfig) *retryTransport {
	if base == nil {
		base = http.DefaultTransport
	}
	return &retryTransport{base: base, config: config}
}

func (t *retryTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	var lastErr error

	for attempt := 0; attempt <= t.config.MaxRetries; attempt++ {
		if attempt > 0 {
			if err := sleepWithContext(req.Context(), t.backoffDelay(attempt)); err != nil {
				return nil, err
			}
		}

		cloned, err := cloneRequest(req)
		if err != nil {
			// Streaming body, cannot replay. One shot only.
			if attempt == 0 {
				return t.base.RoundTrip(req)
			}
			return nil, lastErr
		}

		resp, err := t.base.RoundTrip(cloned)
		if err != nil {
			if !isRetryableError(err) {
				return nil, err
			}
			lastErr = err
			continue
		}
		if !isRetryableStatus(resp.StatusCode) || attempt == t.config.MaxRetries {
			return resp, nil
		}
		resp.Body.Close()
		lastErr = fmt.Errorf("transient status %d", resp.StatusCode)
	}
	return nil, lastErr
}

// backoffDelay calculates delay with exponential backoff and jitter.
func (t *retryTransport) backoffDelay(attempt int) time.Duration {
	base := float64(t.config.InitialDelay) * math.Pow(2, float64(attempt-1))
	if base > float64(t.config.MaxDelay) {
		base = float64(t.config.MaxDelay)
	}
	// Add jitter: ±25%
	jitter := base * 0.25 * (rand.Float64()*2 - 1) //nolint:gosec
	return time.Duration(base + jitter)
}

func isRetryableStatus(code int) bool {
	switch code {
	case http.StatusTooManyRequests,
		http.StatusInternalServerError,
		http.StatusBadGateway,
		http.StatusServiceUnavailable,
		http.StatusGatewayTimeout:
		return true
	}
	return false
}

func isRetryableError(err error) bool {
	if err == nil {
		return false
	}
	var netErr net.Error
	if errors.As(err, &netErr) {
		return netErr.Timeout()
	}
	var opErr *net.OpError
	if errors.As(err, &opErr) {
		return true
	}
	return false
}

func cloneRequest(req *http.Request) (*http.Request, error) {
	clone := req.Clone(req.Context())
	if req.Body != nil && req.GetBody == nil {
		return nil, errors.New("request body is not replayable")
	}
	if req.GetBody != nil {
		body, err := req.GetBody()
		if err != nil {
			return nil, err
		}
		clone.Body = body
	}
	return clone, nil
}

// sleepWithContext sleeps for the given duration, returning early if the
// context is cancelled.
func sleepWithContext(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
