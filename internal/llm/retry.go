package llm

import (
	"context"
	"errors"
	"net"
	"net/http"
	"strings"
	"time"

	"cvpro-backend/internal/shared/telemetry"
)

// RetryPolicy bounds how transient provider failures are retried.
type RetryPolicy struct {
	MaxRetries int
	Delay      time.Duration
}

type retryingClient struct {
	base   Client
	policy RetryPolicy
	sleep  func(ctx context.Context, d time.Duration) error
}

// WithRetry wraps base so transient failures are retried up to
// policy.MaxRetries times. The caller's context bounds the total time.
func WithRetry(base Client, policy RetryPolicy) Client {
	if base == nil {
		return nil
	}
	if policy.MaxRetries <= 0 {
		return base
	}
	return &retryingClient{base: base, policy: policy, sleep: sleepCtx}
}

func (r *retryingClient) SendMessage(ctx context.Context, prompt string) (string, error) {
	var lastErr error
	for attempt := 0; attempt <= r.policy.MaxRetries; attempt++ {
		if attempt > 0 {
			delay := r.policy.Delay * time.Duration(attempt)
			telemetry.Warn("llm.retry", map[string]any{
				"attempt":  attempt,
				"delay_ms": delay.Milliseconds(),
				"error":    lastErr.Error(),
			})
			if err := r.sleep(ctx, delay); err != nil {
				return "", lastErr
			}
		}
		reply, err := r.base.SendMessage(ctx, prompt)
		if err == nil {
			return reply, nil
		}
		lastErr = err
		if ctx.Err() != nil || !ShouldRetry(err) {
			return "", err
		}
	}
	return "", lastErr
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// ShouldRetry reports whether err looks like a transient provider failure:
// timeouts, dropped connections, HTTP 5xx or 429.
func ShouldRetry(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, context.Canceled) {
		return false
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var statusErr *StatusError
	if errors.As(err, &statusErr) {
		return statusErr.StatusCode >= 500 || statusErr.StatusCode == http.StatusTooManyRequests
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return true
	}

	msg := strings.ToLower(err.Error())
	if strings.Contains(msg, "http status 5") || strings.Contains(msg, "server_error") {
		return true
	}
	if strings.Contains(msg, "connection reset") ||
		strings.Contains(msg, "connection refused") ||
		strings.Contains(msg, "connection closed") ||
		strings.Contains(msg, "broken pipe") ||
		strings.Contains(msg, "tls handshake timeout") ||
		strings.Contains(msg, "eof") {
		return true
	}
	return false
}
