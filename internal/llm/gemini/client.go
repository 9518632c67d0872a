package gemini

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"google.golang.org/genai"

	"cvpro-backend/internal/llm"
)

// DefaultModel is used when LLM_MODEL is empty.
const DefaultModel = "gemini-2.0-flash"

type generator interface {
	GenerateContent(ctx context.Context, model string, contents []*genai.Content, config *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error)
}

// Client implements llm.Client on the Gemini API.
type Client struct {
	models generator
	model  string
}

// NewClient constructs a Gemini client authenticated with an API key.
func NewClient(ctx context.Context, apiKey, model string) (*Client, error) {
	if strings.TrimSpace(apiKey) == "" {
		return nil, fmt.Errorf("GEMINI_API_KEY is required")
	}
	if strings.TrimSpace(model) == "" {
		model = DefaultModel
	}
	gc, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("gemini client: %w", err)
	}
	return &Client{models: gc.Models, model: model}, nil
}

// SendMessage sends prompt as a single user turn and returns the reply text.
func (c *Client) SendMessage(ctx context.Context, prompt string) (string, error) {
	resp, err := c.models.GenerateContent(ctx, c.model, genai.Text(prompt), &genai.GenerateContentConfig{
		Temperature: genai.Ptr[float32](0),
	})
	if err != nil {
		return "", translateErr(err)
	}
	if resp == nil {
		return "", fmt.Errorf("gemini response empty")
	}
	text := resp.Text()
	if strings.TrimSpace(text) == "" {
		return "", fmt.Errorf("gemini response empty content")
	}
	return text, nil
}

func translateErr(err error) error {
	var apiErr genai.APIError
	if errors.As(err, &apiErr) {
		return &llm.StatusError{Provider: "gemini", StatusCode: apiErr.Code, Message: apiErr.Message}
	}
	var apiErrPtr *genai.APIError
	if errors.As(err, &apiErrPtr) && apiErrPtr != nil {
		return &llm.StatusError{Provider: "gemini", StatusCode: apiErrPtr.Code, Message: apiErrPtr.Message}
	}
	return fmt.Errorf("gemini request: %w", err)
}

var _ llm.Client = (*Client)(nil)
