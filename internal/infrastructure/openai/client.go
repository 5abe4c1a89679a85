package openai

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"strconv"
	"strings"
	"time"

	"github.com/basel-ax/materialize/internal/domain"
)

const (
	// DefaultBaseURL is the OpenAI REST endpoint
	DefaultBaseURL = "https://api.openai.com/v1"

	// DefaultModel is the image-editing model
	DefaultModel = "gpt-image-1"

	providerName = "openai"
)

// Client represents the OpenAI image edit client
type Client struct {
	httpClient *http.Client
	baseURL    string
	apiKey     string
	model      string
}

var _ domain.ImageEditProvider = (*Client)(nil)

// NewClient creates a new OpenAI image edit client
func NewClient(apiKey, baseURL, model string, timeout time.Duration) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	if model == "" {
		model = DefaultModel
	}
	return &Client{
		httpClient: &http.Client{
			Timeout: timeout,
		},
		baseURL: strings.TrimRight(baseURL, "/"),
		apiKey:  apiKey,
		model:   model,
	}
}

// Edit implements the image edit request and returns the decoded first image
func (c *Client) Edit(ctx context.Context, source *domain.Upload, prompt string) (*domain.GeneratedImage, error) {
	body := &bytes.Buffer{}
	writer := multipart.NewWriter(body)

	fields := [][2]string{
		{"model", c.model},
		{"prompt", prompt},
		{"n", strconv.Itoa(1)},
	}
	for _, f := range fields {
		if err := writer.WriteField(f[0], f[1]); err != nil {
			return nil, fmt.Errorf("failed to write %s: %w", f[0], err)
		}
	}

	// The image part carries its real media type, the edits endpoint rejects application/octet-stream
	header := make(textproto.MIMEHeader)
	header.Set("Content-Disposition", fmt.Sprintf(`form-data; name="image"; filename="%s"`, source.Filename()))
	header.Set("Content-Type", source.Format.MIMEType())
	part, err := writer.CreatePart(header)
	if err != nil {
		return nil, fmt.Errorf("failed to create image part: %w", err)
	}
	if _, err := part.Write(source.Data); err != nil {
		return nil, fmt.Errorf("failed to write image: %w", err)
	}

	if err := writer.Close(); err != nil {
		return nil, fmt.Errorf("failed to close writer: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/images/edits", body)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	httpReq.Header.Set("Content-Type", writer.FormDataContentType())
	httpReq.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, &domain.ProviderError{Provider: providerName, Err: fmt.Errorf("failed to send request: %w", err)}
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
		return nil, &domain.ProviderError{
			Provider:   providerName,
			StatusCode: resp.StatusCode,
			Err:        fmt.Errorf("%s", errorMessage(body)),
		}
	}

	var result struct {
		Data []struct {
			B64JSON       string `json:"b64_json"`
			RevisedPrompt string `json:"revised_prompt"`
		} `json:"data"`
	}

	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, &domain.ProviderError{Provider: providerName, Err: fmt.Errorf("failed to decode response: %w", err)}
	}

	if len(result.Data) == 0 || result.Data[0].B64JSON == "" {
		return nil, &domain.ProviderError{Provider: providerName, Err: fmt.Errorf("no image data in response")}
	}

	data, err := base64.StdEncoding.DecodeString(result.Data[0].B64JSON)
	if err != nil {
		return nil, &domain.ProviderError{Provider: providerName, Err: fmt.Errorf("invalid base64 image: %w", err)}
	}

	return &domain.GeneratedImage{
		Data:     data,
		MIMEType: "image/png",
	}, nil
}

// errorMessage extracts error.message from an OpenAI error body, falling back to the raw body
func errorMessage(body []byte) string {
	var apiErr struct {
		Error struct {
			Message string `json:"message"`
		} `json:"error"`
	}
	if err := json.Unmarshal(body, &apiErr); err == nil && apiErr.Error.Message != "" {
		return apiErr.Error.Message
	}
	return strings.TrimSpace(string(body))
}
