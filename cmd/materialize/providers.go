package main

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/basel-ax/materialize/internal/config"
	"github.com/basel-ax/materialize/internal/domain"
	"github.com/basel-ax/materialize/internal/infrastructure/gemini"
	"github.com/basel-ax/materialize/internal/infrastructure/groq"
	"github.com/basel-ax/materialize/internal/infrastructure/openai"
	"github.com/basel-ax/materialize/internal/metrics"
	"github.com/basel-ax/materialize/internal/service"
)

// buildPipeline constructs the provider clients once; they are shared by all requests
func buildPipeline(ctx context.Context, cfg *config.Config, collector *metrics.Collector, logger *zap.Logger) (*service.Pipeline, error) {
	vision := groq.NewClient(cfg.Groq.APIKey, groq.Options{
		BaseURL:     cfg.Groq.BaseURL,
		Model:       cfg.Groq.Model,
		Temperature: cfg.Groq.Temperature,
		TopP:        cfg.Groq.TopP,
		MaxTokens:   cfg.Groq.MaxTokens,
		Timeout:     cfg.ProviderTimeout,
	})

	editor, err := buildImageEditor(ctx, cfg)
	if err != nil {
		return nil, err
	}

	analyzer := service.NewMaterialAnalyzer(metrics.InstrumentVision(vision, "groq", collector), logger)
	generator := service.NewImageGenerationService(metrics.InstrumentImageEdit(editor, cfg.ImageEdit.Provider, collector), logger)
	return service.NewPipeline(analyzer, generator), nil
}

func buildImageEditor(ctx context.Context, cfg *config.Config) (domain.ImageEditProvider, error) {
	switch cfg.ImageEdit.Provider {
	case config.ProviderOpenAI:
		return openai.NewClient(cfg.ImageEdit.OpenAIAPIKey, cfg.ImageEdit.OpenAIURL, cfg.ImageEdit.OpenAIModel, cfg.ProviderTimeout), nil
	case config.ProviderGemini:
		editor, err := gemini.New(ctx, cfg.ImageEdit.GeminiAPIKey, gemini.Options{
			Model:   cfg.ImageEdit.GeminiModel,
			BaseURL: cfg.ImageEdit.GeminiURL,
			Timeout: cfg.ProviderTimeout,
		})
		if err != nil {
			return nil, err
		}
		return editor, nil
	default:
		return nil, fmt.Errorf("unknown image edit provider %q", cfg.ImageEdit.Provider)
	}
}
