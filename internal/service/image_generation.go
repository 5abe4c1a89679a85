package service

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/basel-ax/materialize/internal/domain"
)

const unknownField = "unknown"

// ComposeEditPrompt builds the edit instruction from a material analysis
func ComposeEditPrompt(a domain.MaterialAnalysis) string {
	return fmt.Sprintf("Transform this image to look like it's made of %s, with %s color and %s.",
		orUnknown(a.Material), orUnknown(a.Colour), orUnknown(a.Properties))
}

func orUnknown(s string) string {
	if s == "" {
		return unknownField
	}
	return s
}

// ImageGenerationService re-renders a base image in the likeness of an analyzed material
type ImageGenerationService struct {
	editor domain.ImageEditProvider
	logger *zap.Logger
}

// NewImageGenerationService creates a new image generation service
func NewImageGenerationService(editor domain.ImageEditProvider, logger *zap.Logger) *ImageGenerationService {
	return &ImageGenerationService{
		editor: editor,
		logger: logger.Named("generator"),
	}
}

// GenerateImage composes the edit prompt and submits the base image to the editing provider
func (s *ImageGenerationService) GenerateImage(ctx context.Context, analysis domain.MaterialAnalysis, base *domain.Upload) (*domain.GeneratedImage, error) {
	if base == nil || !base.Format.Known() {
		return nil, &domain.InvalidUploadError{Field: "base_image", Label: "base image"}
	}

	prompt := ComposeEditPrompt(analysis)
	s.logger.Info("submitting image edit", zap.String("prompt", prompt), zap.String("attachment", base.Filename()))

	img, err := s.editor.Edit(ctx, base, prompt)
	if err != nil {
		return nil, fmt.Errorf("failed to generate image: %w", err)
	}
	if img == nil || len(img.Data) == 0 {
		return nil, &domain.ProviderError{Provider: "image-edit", Err: fmt.Errorf("empty image returned")}
	}

	return img, nil
}
