package service

import (
	"context"

	"github.com/basel-ax/materialize/internal/domain"
)

// MockVisionProvider is a mock implementation of domain.VisionProvider
type MockVisionProvider struct {
	DescribeFunc func(ctx context.Context, imageRef, instruction string) (string, error)
	Calls        int
}

func (m *MockVisionProvider) Describe(ctx context.Context, imageRef, instruction string) (string, error) {
	m.Calls++
	if m.DescribeFunc != nil {
		return m.DescribeFunc(ctx, imageRef, instruction)
	}
	return `{"Material":"Wood","Colour":"Brown","Properties":"Durable","Uses":"Furniture"}`, nil
}

// MockImageEditProvider is a mock implementation of domain.ImageEditProvider
type MockImageEditProvider struct {
	EditFunc func(ctx context.Context, source *domain.Upload, prompt string) (*domain.GeneratedImage, error)
	Calls    int
}

func (m *MockImageEditProvider) Edit(ctx context.Context, source *domain.Upload, prompt string) (*domain.GeneratedImage, error) {
	m.Calls++
	if m.EditFunc != nil {
		return m.EditFunc(ctx, source, prompt)
	}
	return &domain.GeneratedImage{Data: []byte("png-bytes"), MIMEType: "image/png"}, nil
}
