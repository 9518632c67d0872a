package llm

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"testing"
	"time"

	"cvpro-backend/internal/shared/telemetry"
)

type scriptedClient struct {
	errs  []error
	reply string
	calls int
}

func (s *scriptedClient) SendMessage(ctx context.Context, prompt string) (string, error) {
	i := s.calls
	s.calls++
	if i < len(s.errs) && s.errs[i] != nil {
		return "", s.errs[i]
	}
	return s.reply, nil
}

func noSleep(ctx context.Context, d time.Duration) error { return ctx.Err() }

func TestWithRetry(t *testing.T) {
	telemetry.SetOutput(io.Discard)
	defer telemetry.SetOutput(os.Stdout)

	transient := &StatusError{Provider: "gemini", StatusCode: 503, Message: "unavailable"}
	permanent := &StatusError{Provider: "gemini", StatusCode: 400, Message: "bad request"}

	tests := []struct {
		name       string
		maxRetries int
		errs       []error
		wantCalls  int
		wantErr    error
	}{
		{name: "success first try", maxRetries: 1, wantCalls: 1},
		{name: "transient then success", maxRetries: 1, errs: []error{transient}, wantCalls: 2},
		{name: "transient exhausts retries", maxRetries: 2, errs: []error{transient, transient, transient}, wantCalls: 3, wantErr: transient},
		{name: "permanent not retried", maxRetries: 3, errs: []error{permanent}, wantCalls: 1, wantErr: permanent},
		{name: "retries disabled", maxRetries: 0, errs: []error{transient}, wantCalls: 1, wantErr: transient},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			base := &scriptedClient{errs: tt.errs, reply: "{}"}
			c := WithRetry(base, RetryPolicy{MaxRetries: tt.maxRetries, Delay: time.Millisecond})
			if rc, ok := c.(*retryingClient); ok {
				rc.sleep = noSleep
			}
			reply, err := c.SendMessage(context.Background(), "p")
			if base.calls != tt.wantCalls {
				t.Fatalf("expected %d calls, got %d", tt.wantCalls, base.calls)
			}
			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Fatalf("expected %v, got %v", tt.wantErr, err)
				}
				return
			}
			if err != nil || reply != "{}" {
				t.Fatalf("unexpected result %q, %v", reply, err)
			}
		})
	}
}

func TestWithRetryStopsWhenContextDone(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	base := &scriptedClient{errs: []error{context.DeadlineExceeded, nil}}
	c := WithRetry(base, RetryPolicy{MaxRetries: 3, Delay: time.Millisecond})
	if _, err := c.SendMessage(ctx, "p"); err == nil {
		t.Fatalf("expected error")
	}
	if base.calls != 1 {
		t.Fatalf("expected a single attempt, got %d", base.calls)
	}
}

func TestShouldRetry(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{name: "nil", err: nil, want: false},
		{name: "deadline", err: fmt.Errorf("call: %w", context.DeadlineExceeded), want: true},
		{name: "canceled", err: context.Canceled, want: false},
		{name: "429", err: &StatusError{StatusCode: 429}, want: true},
		{name: "500", err: &StatusError{StatusCode: 500}, want: true},
		{name: "401", err: &StatusError{StatusCode: 401}, want: false},
		{name: "reset", err: errors.New("read tcp: connection reset by peer"), want: true},
		{name: "eof", err: errors.New("unexpected EOF"), want: true},
		{name: "other", err: errors.New("invalid api key"), want: false},
	}
	for _, tt := range tests {
		if got := ShouldRetry(tt.err); got != tt.want {
			t.Fatalf("%s: ShouldRetry = %v, want %v", tt.name, got, tt.want)
		}
	}
}

func TestPlaceholderClient(t *testing.T) {
	if _, err := (PlaceholderClient{}).SendMessage(context.Background(), "p"); !errors.Is(err, ErrNotImplemented) {
		t.Fatalf("expected ErrNotImplemented, got %v", err)
	}
}
