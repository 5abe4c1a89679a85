package domain

// ImageFormat is the raster format detected from an upload's leading bytes
type ImageFormat string

const (
	FormatUnknown ImageFormat = "unknown"
	FormatJPEG    ImageFormat = "jpeg"
	FormatPNG     ImageFormat = "png"
	FormatGIF     ImageFormat = "gif"
	FormatBMP     ImageFormat = "bmp"
	FormatWEBP    ImageFormat = "webp"
	FormatTIFF    ImageFormat = "tiff"
)

// Known reports whether the format is one of the recognized raster formats
func (f ImageFormat) Known() bool {
	switch f {
	case FormatJPEG, FormatPNG, FormatGIF, FormatBMP, FormatWEBP, FormatTIFF:
		return true
	}
	return false
}

// MIMEType returns the media type used when the image is sent to a provider
func (f ImageFormat) MIMEType() string {
	if !f.Known() {
		return "application/octet-stream"
	}
	return "image/" + string(f)
}

// Upload represents a validated image received in a multipart field
type Upload struct {
	Field  string
	Data   []byte
	Format ImageFormat
}

// Filename returns the attachment name used for provider requests, e.g. base_image.png
func (u *Upload) Filename() string {
	return u.Field + "." + string(u.Format)
}

// MaterialAnalysis represents the structured answer of the vision model
type MaterialAnalysis struct {
	Material   string `json:"Material"`
	Colour     string `json:"Colour"`
	Properties string `json:"Properties"`
	Uses       string `json:"Uses"`
}

// GeneratedImage represents the image returned by the image-editing provider
type GeneratedImage struct {
	Data     []byte
	MIMEType string
}
