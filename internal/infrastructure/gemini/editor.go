// Package gemini provides an ImageEditProvider using Google's Gemini image models.
//
// This provider uses the Gemini API backend via the official Go SDK:
// https://github.com/googleapis/go-genai
package gemini

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"google.golang.org/genai"

	"github.com/basel-ax/materialize/internal/domain"
)

const (
	// DefaultModel is the Gemini model used for image editing
	DefaultModel = "gemini-2.5-flash-image"

	providerName = "gemini"
)

// Editor implements domain.ImageEditProvider on top of GenerateContent
type Editor struct {
	client *genai.Client
	model  string
}

var _ domain.ImageEditProvider = (*Editor)(nil)

// Options configures the Gemini editor. BaseURL is only needed to point at a non-default endpoint.
type Options struct {
	Model   string
	BaseURL string
	Timeout time.Duration
}

// New creates a new Editor with an API key for the Gemini API
func New(ctx context.Context, apiKey string, opts Options) (*Editor, error) {
	if opts.Model == "" {
		opts.Model = DefaultModel
	}

	clientCfg := &genai.ClientConfig{
		APIKey:     apiKey,
		Backend:    genai.BackendGeminiAPI,
		HTTPClient: &http.Client{Timeout: opts.Timeout},
	}
	if opts.BaseURL != "" {
		clientCfg.HTTPOptions = genai.HTTPOptions{BaseURL: opts.BaseURL}
	}

	client, err := genai.NewClient(ctx, clientCfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create Gemini client: %w", err)
	}

	return &Editor{
		client: client,
		model:  opts.Model,
	}, nil
}

// Edit sends the source image followed by the prompt and returns the first image part of the answer
func (e *Editor) Edit(ctx context.Context, source *domain.Upload, prompt string) (*domain.GeneratedImage, error) {
	contents := []*genai.Content{
		{
			Parts: []*genai.Part{
				{
					InlineData: &genai.Blob{
						Data:     source.Data,
						MIMEType: source.Format.MIMEType(),
					},
				},
				{Text: prompt},
			},
		},
	}

	genConfig := &genai.GenerateContentConfig{
		ResponseModalities: []string{"TEXT", "IMAGE"},
		CandidateCount:     1,
	}

	result, err := e.client.Models.GenerateContent(ctx, e.model, contents, genConfig)
	if err != nil {
		return nil, wrapError(err)
	}

	return firstImage(result)
}

// firstImage returns the first inline image found in the response candidates
func firstImage(result *genai.GenerateContentResponse) (*domain.GeneratedImage, error) {
	if result == nil || len(result.Candidates) == 0 {
		return nil, &domain.ProviderError{Provider: providerName, Err: errors.New("empty response from model")}
	}

	for _, candidate := range result.Candidates {
		if candidate.Content == nil {
			continue
		}
		for _, part := range candidate.Content.Parts {
			if part.InlineData != nil && len(part.InlineData.Data) > 0 {
				return &domain.GeneratedImage{
					Data:     part.InlineData.Data,
					MIMEType: part.InlineData.MIMEType,
				}, nil
			}
		}
	}

	return nil, &domain.ProviderError{Provider: providerName, Err: errors.New("no image in model response")}
}

func wrapError(err error) error {
	pErr := &domain.ProviderError{Provider: providerName, Err: err}

	var apiErr genai.APIError
	if errors.As(err, &apiErr) {
		pErr.StatusCode = apiErr.Code
		pErr.Err = errors.New(apiErr.Message)
	}
	return pErr
}
