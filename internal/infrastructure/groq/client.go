// Package groq implements the vision-language provider on top of Groq's
// OpenAI-compatible chat completions API.
package groq

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/sashabaranov/go-openai"

	"github.com/basel-ax/materialize/internal/domain"
)

const (
	// DefaultBaseURL is Groq's OpenAI-compatible endpoint
	DefaultBaseURL = "https://api.groq.com/openai/v1"

	// DefaultModel is the vision model used for material analysis
	DefaultModel = "meta-llama/llama-4-scout-17b-16e-instruct"

	providerName = "groq"
)

// Options holds the sampling parameters sent with every completion
type Options struct {
	BaseURL     string
	Model       string
	Temperature float32
	TopP        float32
	MaxTokens   int
	Timeout     time.Duration
}

// DefaultOptions returns the parameters the service was tuned with
func DefaultOptions() Options {
	return Options{
		BaseURL:     DefaultBaseURL,
		Model:       DefaultModel,
		Temperature: 1,
		TopP:        1,
		MaxTokens:   4192,
		Timeout:     2 * time.Minute,
	}
}

// Client represents the Groq vision client
type Client struct {
	api  *openai.Client
	opts Options
}

var _ domain.VisionProvider = (*Client)(nil)

// NewClient creates a new Groq vision client
func NewClient(apiKey string, opts Options) *Client {
	defaults := DefaultOptions()
	if opts.BaseURL == "" {
		opts.BaseURL = defaults.BaseURL
	}
	if opts.Model == "" {
		opts.Model = defaults.Model
	}
	if opts.MaxTokens == 0 {
		opts.MaxTokens = defaults.MaxTokens
	}

	cfg := openai.DefaultConfig(apiKey)
	cfg.BaseURL = opts.BaseURL
	cfg.HTTPClient = &http.Client{Timeout: opts.Timeout}

	return &Client{
		api:  openai.NewClientWithConfig(cfg),
		opts: opts,
	}
}

// Describe implements a single-turn, non-streaming JSON-mode completion over one image
func (c *Client) Describe(ctx context.Context, imageRef, instruction string) (string, error) {
	req := openai.ChatCompletionRequest{
		Model: c.opts.Model,
		Messages: []openai.ChatCompletionMessage{
			{
				Role: openai.ChatMessageRoleUser,
				MultiContent: []openai.ChatMessagePart{
					{
						Type: openai.ChatMessagePartTypeText,
						Text: instruction,
					},
					{
						Type:     openai.ChatMessagePartTypeImageURL,
						ImageURL: &openai.ChatMessageImageURL{URL: imageRef},
					},
				},
			},
		},
		Temperature: c.opts.Temperature,
		TopP:        c.opts.TopP,
		MaxTokens:   c.opts.MaxTokens,
		Stream:      false,
		ResponseFormat: &openai.ChatCompletionResponseFormat{
			Type: openai.ChatCompletionResponseFormatTypeJSONObject,
		},
	}

	resp, err := c.api.CreateChatCompletion(ctx, req)
	if err != nil {
		return "", wrapError(err)
	}

	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("%w: no choices in completion", domain.ErrMalformedOutput)
	}

	return resp.Choices[0].Message.Content, nil
}

// wrapError converts SDK errors into a domain.ProviderError keeping the HTTP status when known
func wrapError(err error) error {
	pErr := &domain.ProviderError{Provider: providerName, Err: err}

	var apiErr *openai.APIError
	var reqErr *openai.RequestError
	switch {
	case errors.As(err, &apiErr):
		pErr.StatusCode = apiErr.HTTPStatusCode
		pErr.Err = errors.New(apiErr.Message)
	case errors.As(err, &reqErr):
		pErr.StatusCode = reqErr.HTTPStatusCode
	}

	return pErr
}
