package service

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/basel-ax/materialize/internal/domain"
)

// AnalysisInstruction is the fixed text sent with every material image
const AnalysisInstruction = `
Here is an image of a material, now you have to, Identify the type of the material,
colour, properties and where it can be used and respond in a JSON format.
Output = {
    "Material": "Material Type",
    "Colour": "Colour",
    "Properties": "Properties",
    "Uses": "Potential Uses"
}
When it comes to Properties, think about the characteristics of the material and provide a brief description.
Respond strictly with a JSON object that has exactly the keys "Material", "Colour", "Properties" and "Uses".
`

// EncodeDataURL embeds image bytes into a data:image/<format>;base64 reference
func EncodeDataURL(data []byte, format domain.ImageFormat) string {
	return fmt.Sprintf("data:image/%s;base64,%s", format, base64.StdEncoding.EncodeToString(data))
}

// DecodeDataURL reverses EncodeDataURL
func DecodeDataURL(ref string) ([]byte, domain.ImageFormat, error) {
	rest, ok := strings.CutPrefix(ref, "data:image/")
	if !ok {
		return nil, domain.FormatUnknown, fmt.Errorf("not an image data URL")
	}
	format, payload, ok := strings.Cut(rest, ";base64,")
	if !ok {
		return nil, domain.FormatUnknown, fmt.Errorf("data URL is not base64 encoded")
	}

	data, err := base64.StdEncoding.DecodeString(payload)
	if err != nil {
		return nil, domain.FormatUnknown, fmt.Errorf("invalid base64 payload: %w", err)
	}
	return data, domain.ImageFormat(format), nil
}

// MaterialAnalyzer asks the vision provider to classify a material image
type MaterialAnalyzer struct {
	provider domain.VisionProvider
	logger   *zap.Logger
}

// NewMaterialAnalyzer creates a new material analyzer
func NewMaterialAnalyzer(provider domain.VisionProvider, logger *zap.Logger) *MaterialAnalyzer {
	return &MaterialAnalyzer{
		provider: provider,
		logger:   logger.Named("analyzer"),
	}
}

// Analyze sends a validated upload to the vision provider and parses its JSON answer
func (a *MaterialAnalyzer) Analyze(ctx context.Context, img *domain.Upload) (*domain.MaterialAnalysis, error) {
	if img == nil || !img.Format.Known() {
		return nil, &domain.InvalidUploadError{}
	}

	ref := EncodeDataURL(img.Data, img.Format)

	text, err := a.provider.Describe(ctx, ref, AnalysisInstruction)
	if err != nil {
		return nil, fmt.Errorf("failed to analyze %s: %w", img.Field, err)
	}

	analysis, err := ParseAnalysis(text)
	if err != nil {
		a.logger.Error("vision provider response is not valid JSON", zap.String("field", img.Field), zap.Error(err))
		return nil, err
	}

	a.logger.Info("parsed material analysis",
		zap.String("material", analysis.Material),
		zap.String("colour", analysis.Colour),
		zap.String("properties", analysis.Properties),
		zap.String("uses", analysis.Uses),
	)
	return analysis, nil
}

// ParseAnalysis parses provider text strictly as a JSON object
func ParseAnalysis(text string) (*domain.MaterialAnalysis, error) {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal([]byte(strings.TrimSpace(text)), &fields); err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrMalformedOutput, err)
	}
	if fields == nil {
		return nil, fmt.Errorf("%w: response is null", domain.ErrMalformedOutput)
	}

	// Keys the model omits, or answers with null or "", read as unknown. Keys outside the four are dropped.
	return &domain.MaterialAnalysis{
		Material:   orUnknown(fieldText(fields["Material"])),
		Colour:     orUnknown(fieldText(fields["Colour"])),
		Properties: orUnknown(fieldText(fields["Properties"])),
		Uses:       orUnknown(fieldText(fields["Uses"])),
	}, nil
}

// fieldText renders a JSON value as plain text. Strings pass through, string lists are joined.
func fieldText(raw json.RawMessage) string {
	if len(raw) == 0 {
		return ""
	}

	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s
	}

	var list []string
	if err := json.Unmarshal(raw, &list); err == nil {
		return strings.Join(list, ", ")
	}

	var compact bytes.Buffer
	if err := json.Compact(&compact, raw); err != nil {
		return string(raw)
	}
	return compact.String()
}
