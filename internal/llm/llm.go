package llm

import (
	"context"
	"errors"
	"fmt"
)

// Client sends a single prompt to a model and returns its raw text reply.
type Client interface {
	SendMessage(ctx context.Context, prompt string) (string, error)
}

// ErrNotImplemented is returned by the placeholder client.
var ErrNotImplemented = errors.New("LLM not implemented")

// PlaceholderClient is used when no provider is configured.
type PlaceholderClient struct{}

// SendMessage returns ErrNotImplemented.
func (PlaceholderClient) SendMessage(ctx context.Context, prompt string) (string, error) {
	_ = ctx
	_ = prompt
	return "", ErrNotImplemented
}

// StatusError is a non-2xx answer from a provider API.
type StatusError struct {
	Provider   string
	StatusCode int
	Message    string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("%s http status %d: %s", e.Provider, e.StatusCode, e.Message)
}
