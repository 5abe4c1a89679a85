package service

import (
	"context"

	"github.com/basel-ax/materialize/internal/domain"
)

// Pipeline runs the two request flows: analysis alone, and analysis followed by generation
type Pipeline struct {
	analyzer  *MaterialAnalyzer
	generator *ImageGenerationService
}

// NewPipeline creates a pipeline from its two stages
func NewPipeline(analyzer *MaterialAnalyzer, generator *ImageGenerationService) *Pipeline {
	return &Pipeline{
		analyzer:  analyzer,
		generator: generator,
	}
}

// AnalyzeImage classifies the material shown in img
func (p *Pipeline) AnalyzeImage(ctx context.Context, img *domain.Upload) (*domain.MaterialAnalysis, error) {
	return p.analyzer.Analyze(ctx, img)
}

// GenerateImage analyzes material and re-renders base to look like it
func (p *Pipeline) GenerateImage(ctx context.Context, material, base *domain.Upload) (*domain.GeneratedImage, *domain.MaterialAnalysis, error) {
	analysis, err := p.analyzer.Analyze(ctx, material)
	if err != nil {
		return nil, nil, err
	}

	img, err := p.generator.GenerateImage(ctx, *analysis, base)
	if err != nil {
		return nil, nil, err
	}
	return img, analysis, nil
}
