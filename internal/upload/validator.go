// Package upload classifies uploaded files by their leading bytes.
package upload

import (
	"bytes"
	"errors"
	"fmt"
	"io"

	"github.com/gabriel-vasile/mimetype"

	"github.com/basel-ax/materialize/internal/domain"
)

// SniffLimit is the number of leading bytes inspected to decide the format
const SniffLimit = 512

// signatures maps recognized raster MIME types to format tags, in detection order
var signatures = []struct {
	mime   string
	format domain.ImageFormat
}{
	{"image/jpeg", domain.FormatJPEG},
	{"image/png", domain.FormatPNG},
	{"image/gif", domain.FormatGIF},
	{"image/bmp", domain.FormatBMP},
	{"image/webp", domain.FormatWEBP},
	{"image/tiff", domain.FormatTIFF},
}

// Detect returns the raster format matched by the first SniffLimit bytes of data
func Detect(data []byte) domain.ImageFormat {
	if len(data) > SniffLimit {
		data = data[:SniffLimit]
	}
	if len(data) == 0 {
		return domain.FormatUnknown
	}

	// mimetype reports the most specific type, e.g. image/vnd.mozilla.apng for an animated PNG
	for mtype := mimetype.Detect(data); mtype != nil; mtype = mtype.Parent() {
		for _, sig := range signatures {
			if mtype.Is(sig.mime) {
				return sig.format
			}
		}
	}
	return domain.FormatUnknown
}

// Validator builds validated uploads from incoming file streams
type Validator struct {
	maxBytes int64
}

// NewValidator creates a validator. maxBytes <= 0 disables the size limit.
func NewValidator(maxBytes int64) *Validator {
	return &Validator{maxBytes: maxBytes}
}

// Validate checks already-buffered bytes. label names the upload in the error message.
func (v *Validator) Validate(field, label string, data []byte) (*domain.Upload, error) {
	format := Detect(data)
	if !format.Known() {
		return nil, &domain.InvalidUploadError{Field: field, Label: label}
	}
	if v.maxBytes > 0 && int64(len(data)) > v.maxBytes {
		return nil, fmt.Errorf("%w: %s is %d bytes (max %d)", domain.ErrUploadTooLarge, field, len(data), v.maxBytes)
	}

	return &domain.Upload{
		Field:  field,
		Data:   data,
		Format: format,
	}, nil
}

// Read inspects the prefix of r first and rejects it without reading the rest when no signature matches
func (v *Validator) Read(field, label string, r io.Reader) (*domain.Upload, error) {
	prefix := make([]byte, SniffLimit)
	n, err := io.ReadFull(r, prefix)
	if err != nil && !errors.Is(err, io.ErrUnexpectedEOF) && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("failed to read %s: %w", field, err)
	}
	prefix = prefix[:n]

	if !Detect(prefix).Known() {
		return nil, &domain.InvalidUploadError{Field: field, Label: label}
	}

	rest := r
	if v.maxBytes > 0 {
		// one extra byte tells an exact-size upload apart from an oversized one
		rest = io.LimitReader(r, v.maxBytes-int64(n)+1)
	}

	buf := bytes.NewBuffer(prefix)
	if _, err := buf.ReadFrom(rest); err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", field, err)
	}

	return v.Validate(field, label, buf.Bytes())
}
