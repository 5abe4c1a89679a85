package service

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"pgregory.net/rapid"

	"github.com/basel-ax/materialize/internal/domain"
)

var jpegHeader = []byte{0xFF, 0xD8, 0xFF, 0xE0, 0x00, 0x10, 'J', 'F', 'I', 'F', 0x00}

func TestEncodeDataURL(t *testing.T) {
	ref := EncodeDataURL([]byte("abc"), domain.FormatPNG)
	assert.Equal(t, "data:image/png;base64,YWJj", ref)
}

func TestDataURLRoundTrip(t *testing.T) {
	formats := []domain.ImageFormat{
		domain.FormatJPEG, domain.FormatPNG, domain.FormatGIF,
		domain.FormatBMP, domain.FormatWEBP, domain.FormatTIFF,
	}

	rapid.Check(t, func(rt *rapid.T) {
		data := rapid.SliceOf(rapid.Byte()).Draw(rt, "data")
		format := rapid.SampledFrom(formats).Draw(rt, "format")

		decoded, decodedFormat, err := DecodeDataURL(EncodeDataURL(data, format))
		if err != nil {
			rt.Fatalf("decode failed: %v", err)
		}
		if string(decoded) != string(data) {
			rt.Fatalf("round trip changed bytes: got %x, want %x", decoded, data)
		}
		if decodedFormat != format {
			rt.Fatalf("round trip changed format: got %s, want %s", decodedFormat, format)
		}
	})
}

func TestDecodeDataURLErrors(t *testing.T) {
	for _, ref := range []string{
		"https://example.com/a.png",
		"data:image/png,plain",
		"data:image/png;base64,!!!",
	} {
		_, _, err := DecodeDataURL(ref)
		assert.Error(t, err, ref)
	}
}

func TestParseAnalysis(t *testing.T) {
	tests := []struct {
		name string
		text string
		want domain.MaterialAnalysis
	}{
		{
			name: "all fields",
			text: `{"Material":"Wood","Colour":"Brown","Properties":"Durable","Uses":"Furniture"}`,
			want: domain.MaterialAnalysis{Material: "Wood", Colour: "Brown", Properties: "Durable", Uses: "Furniture"},
		},
		{
			name: "surrounding whitespace",
			text: "\n  {\"Material\":\"Marble\"}  \n",
			want: domain.MaterialAnalysis{Material: "Marble", Colour: "unknown", Properties: "unknown", Uses: "unknown"},
		},
		{
			name: "list values are joined",
			text: `{"Material":"Steel","Uses":["Bridges","Tools"]}`,
			want: domain.MaterialAnalysis{Material: "Steel", Colour: "unknown", Properties: "unknown", Uses: "Bridges, Tools"},
		},
		{
			name: "structured values keep their JSON text",
			text: `{"Material":"Glass","Properties":{"hard":true}}`,
			want: domain.MaterialAnalysis{Material: "Glass", Colour: "unknown", Properties: `{"hard":true}`, Uses: "unknown"},
		},
		{
			name: "null and empty values read as unknown",
			text: `{"Material":null,"Colour":"Grey","Properties":"","Uses":"Paving"}`,
			want: domain.MaterialAnalysis{Material: "unknown", Colour: "Grey", Properties: "unknown", Uses: "Paving"},
		},
		{
			name: "extra keys dropped and missing keys unknown",
			text: `{"Material":"Wood","Colour":"Brown","Grain":"fine"}`,
			want: domain.MaterialAnalysis{Material: "Wood", Colour: "Brown", Properties: "unknown", Uses: "unknown"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseAnalysis(tt.text)
			require.NoError(t, err)
			assert.Equal(t, tt.want, *got)
		})
	}
}

func TestParseAnalysisMalformed(t *testing.T) {
	for _, text := range []string{
		"The material is wood.",
		"",
		"null",
		`["Wood"]`,
		`{"Material": "Wood"`,
		"```json\n{\"Material\":\"Wood\"}\n```",
	} {
		_, err := ParseAnalysis(text)
		require.Error(t, err, text)
		assert.True(t, errors.Is(err, domain.ErrMalformedOutput), text)
		assert.False(t, errors.Is(err, domain.ErrProviderCall), text)
	}
}

func TestMaterialAnalyzerAnalyze(t *testing.T) {
	data := append(append([]byte{}, jpegHeader...), []byte("rest-of-image")...)
	var gotRef, gotInstruction string

	provider := &MockVisionProvider{
		DescribeFunc: func(ctx context.Context, imageRef, instruction string) (string, error) {
			gotRef, gotInstruction = imageRef, instruction
			return `{"Material":"Wood","Colour":"Brown","Properties":"Durable","Uses":"Furniture"}`, nil
		},
	}
	analyzer := NewMaterialAnalyzer(provider, zap.NewNop())

	got, err := analyzer.Analyze(context.Background(), &domain.Upload{Field: "file", Data: data, Format: domain.FormatJPEG})
	require.NoError(t, err)
	assert.Equal(t, "Wood", got.Material)
	assert.Equal(t, 1, provider.Calls)

	assert.True(t, strings.HasPrefix(gotRef, "data:image/jpeg;base64,"))
	decoded, format, err := DecodeDataURL(gotRef)
	require.NoError(t, err)
	assert.Equal(t, data, decoded)
	assert.Equal(t, domain.FormatJPEG, format)

	for _, key := range []string{`"Material"`, `"Colour"`, `"Properties"`, `"Uses"`, "JSON"} {
		assert.Contains(t, gotInstruction, key)
	}
}

func TestMaterialAnalyzerRejectsUnvalidatedUpload(t *testing.T) {
	provider := &MockVisionProvider{}
	analyzer := NewMaterialAnalyzer(provider, zap.NewNop())

	_, err := analyzer.Analyze(context.Background(), &domain.Upload{Field: "file", Data: []byte("text"), Format: domain.FormatUnknown})
	assert.True(t, errors.Is(err, domain.ErrInvalidUpload))

	_, err = analyzer.Analyze(context.Background(), nil)
	assert.True(t, errors.Is(err, domain.ErrInvalidUpload))

	assert.Zero(t, provider.Calls)
}

func TestMaterialAnalyzerErrorsAreDistinguishable(t *testing.T) {
	upload := &domain.Upload{Field: "file", Data: jpegHeader, Format: domain.FormatJPEG}

	callFailed := NewMaterialAnalyzer(&MockVisionProvider{
		DescribeFunc: func(context.Context, string, string) (string, error) {
			return "", &domain.ProviderError{Provider: "groq", StatusCode: 401, Err: errors.New("invalid api key")}
		},
	}, zap.NewNop())
	_, err := callFailed.Analyze(context.Background(), upload)
	assert.True(t, errors.Is(err, domain.ErrProviderCall))
	assert.False(t, errors.Is(err, domain.ErrMalformedOutput))

	malformed := NewMaterialAnalyzer(&MockVisionProvider{
		DescribeFunc: func(context.Context, string, string) (string, error) {
			return "I think it is wood", nil
		},
	}, zap.NewNop())
	_, err = malformed.Analyze(context.Background(), upload)
	assert.True(t, errors.Is(err, domain.ErrMalformedOutput))
	assert.False(t, errors.Is(err, domain.ErrProviderCall))
}
