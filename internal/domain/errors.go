package domain

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidUpload is wrapped by every InvalidUploadError
	ErrInvalidUpload = errors.New("invalid image file")

	// ErrUploadTooLarge is returned when an upload exceeds the configured size limit
	ErrUploadTooLarge = errors.New("image file too large")

	// ErrMalformedOutput is returned when a provider answers with text that is not the expected JSON
	ErrMalformedOutput = errors.New("provider did not return valid JSON")

	// ErrProviderCall is wrapped by every ProviderError
	ErrProviderCall = errors.New("provider call failed")
)

// InvalidUploadError reports which upload failed format validation
type InvalidUploadError struct {
	Field string
	Label string
}

func (e *InvalidUploadError) Error() string {
	if e.Label == "" {
		return "Invalid image file."
	}
	return fmt.Sprintf("Invalid %s file.", e.Label)
}

func (e *InvalidUploadError) Unwrap() error {
	return ErrInvalidUpload
}

// ProviderError is returned when a network, auth, quota or provider-side failure happens
type ProviderError struct {
	Provider   string
	StatusCode int
	Err        error
}

func (e *ProviderError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("%s request failed with status %d: %v", e.Provider, e.StatusCode, e.Err)
	}
	return fmt.Sprintf("%s request failed: %v", e.Provider, e.Err)
}

func (e *ProviderError) Is(target error) bool {
	return target == ErrProviderCall
}

func (e *ProviderError) Unwrap() error {
	return e.Err
}

// IsProviderError checks if an error is a ProviderError
func IsProviderError(err error) bool {
	var pErr *ProviderError
	return errors.As(err, &pErr)
}
