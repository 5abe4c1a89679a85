package domain

import (
	"context"
)

// VisionProvider defines the capability of a hosted vision-language model
type VisionProvider interface {
	// Describe sends one image reference (a data URL) and an instruction, and returns the model's text
	Describe(ctx context.Context, imageRef, instruction string) (string, error)
}

// ImageEditProvider defines the capability of a hosted image-editing model
type ImageEditProvider interface {
	// Edit re-renders the source image following the prompt and returns a single image
	Edit(ctx context.Context, source *Upload, prompt string) (*GeneratedImage, error)
}
