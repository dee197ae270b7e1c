package provider

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"math/rand/v2"
	"net/http"
	"strconv"
	"time"
)

// retryPolicy governs how transient chat-completion failures are retried:
// network errors, 5xx responses, and 429 rate limits. A Retry-After header
// on a rate-limited response overrides the computed backoff.
type retryPolicy struct {
	maxAttempts int
	baseDelay   time.Duration
	maxDelay    time.Duration
	logger      *slog.Logger
}

func newRetryPolicy(logger *slog.Logger) retryPolicy {
	return retryPolicy{
		maxAttempts: 4,
		baseDelay:   time.Second,
		maxDelay:    30 * time.Second,
		logger:      logger,
	}
}

// transientError preserves the status and body of a retryable response for
// the final error chain.
type transientError struct {
	status int
	body   string
}

func (e *transientError) Error() string {
	return fmt.Sprintf("HTTP %d: %s", e.status, e.body)
}

func retryableStatus(code int) bool {
	return code >= 500 || code == http.StatusTooManyRequests
}

// do sends the request until it yields a non-transient response. buildReq
// is called once per attempt because a request body cannot be replayed.
func (p retryPolicy) do(ctx context.Context, client *http.Client, buildReq func() (*http.Request, error)) (*http.Response, error) {
	delay := p.baseDelay
	var lastErr error

	for attempt := 1; ; attempt++ {
		req, err := buildReq()
		if err != nil {
			return nil, fmt.Errorf("build request: %w", err)
		}

		resp, err := client.Do(req)
		switch {
		case err != nil:
			lastErr = err
		case retryableStatus(resp.StatusCode):
			body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
			resp.Body.Close()
			lastErr = &transientError{status: resp.StatusCode, body: string(body)}
			if after := retryAfter(resp); after > 0 {
				delay = after
			}
		default:
			return resp, nil
		}

		if attempt >= p.maxAttempts {
			return nil, fmt.Errorf("giving up after %d attempts: %w", p.maxAttempts, lastErr)
		}

		// Jitter spreads concurrent callers hitting the same rate limit.
		wait := delay + time.Duration(rand.Int64N(int64(delay/2+1)))
		p.logger.Warn("transient provider failure",
			"attempt", attempt, "wait", wait, "error", lastErr)
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(wait):
		}

		delay *= 2
		if delay > p.maxDelay {
			delay = p.maxDelay
		}
	}
}

// retryAfter reads a Retry-After header expressed in seconds.
func retryAfter(resp *http.Response) time.Duration {
	v := resp.Header.Get("Retry-After")
	if v == "" {
		return 0
	}
	secs, err := strconv.Atoi(v)
	if err != nil || secs <= 0 {
		return 0
	}
	return time.Duration(secs) * time.Second
}
