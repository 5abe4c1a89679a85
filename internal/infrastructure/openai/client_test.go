package openai

import (
	"context"
	"encoding/base64"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/basel-ax/materialize/internal/domain"
)

func TestEdit(t *testing.T) {
	output := []byte("\x89PNG\r\n\x1a\ngenerated")
	source := &domain.Upload{Field: "base_image", Data: []byte("\x89PNG\r\n\x1a\nsource"), Format: domain.FormatPNG}

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/v1/images/edits", r.URL.Path)
		assert.Equal(t, "Bearer sk-test", r.Header.Get("Authorization"))

		require.NoError(t, r.ParseMultipartForm(1<<20))
		assert.Equal(t, "gpt-image-1", r.FormValue("model"))
		assert.Equal(t, "make it wooden", r.FormValue("prompt"))
		assert.Equal(t, "1", r.FormValue("n"))

		file, header, err := r.FormFile("image")
		require.NoError(t, err)
		defer file.Close()
		assert.Equal(t, "base_image.png", header.Filename)
		assert.Equal(t, "image/png", header.Header.Get("Content-Type"))
		data, err := io.ReadAll(file)
		require.NoError(t, err)
		assert.Equal(t, source.Data, data)

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"created":1,"data":[{"b64_json":"` + base64.StdEncoding.EncodeToString(output) + `"}]}`))
	}))
	defer srv.Close()

	client := NewClient("sk-test", srv.URL+"/v1/", "", 5*time.Second)
	img, err := client.Edit(context.Background(), source, "make it wooden")
	require.NoError(t, err)
	assert.Equal(t, output, img.Data)
	assert.Equal(t, "image/png", img.MIMEType)
}

func TestEditErrors(t *testing.T) {
	source := &domain.Upload{Field: "base_image", Data: []byte{0xFF, 0xD8, 0xFF}, Format: domain.FormatJPEG}

	tests := []struct {
		name       string
		status     int
		body       string
		wantStatus int
		wantMsg    string
	}{
		{
			name:       "quota",
			status:     http.StatusTooManyRequests,
			body:       `{"error":{"message":"You exceeded your current quota","type":"insufficient_quota"}}`,
			wantStatus: http.StatusTooManyRequests,
			wantMsg:    "You exceeded your current quota",
		},
		{
			name:       "non json error",
			status:     http.StatusBadGateway,
			body:       "upstream unavailable",
			wantStatus: http.StatusBadGateway,
			wantMsg:    "upstream unavailable",
		},
		{
			name:    "empty data",
			status:  http.StatusOK,
			body:    `{"data":[]}`,
			wantMsg: "no image data",
		},
		{
			name:    "bad base64",
			status:  http.StatusOK,
			body:    `{"data":[{"b64_json":"***"}]}`,
			wantMsg: "invalid base64",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte(tt.body))
			}))
			defer srv.Close()

			_, err := NewClient("sk-test", srv.URL, "", time.Second).Edit(context.Background(), source, "p")
			require.Error(t, err)
			assert.True(t, errors.Is(err, domain.ErrProviderCall))
			assert.Contains(t, err.Error(), tt.wantMsg)

			var pErr *domain.ProviderError
			require.True(t, errors.As(err, &pErr))
			assert.Equal(t, tt.wantStatus, pErr.StatusCode)
		})
	}
}
