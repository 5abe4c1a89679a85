package server

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/basel-ax/materialize/internal/config"
	"github.com/basel-ax/materialize/internal/domain"
)

type endpoint string

const (
	endpointAnalyze  endpoint = "analyze_image"
	endpointGenerate endpoint = "generate_image"
)

// errorResponse mirrors the {"detail": ...} body the front end expects
type errorResponse struct {
	Detail string `json:"detail"`
}

// missingFieldError is returned when a multipart file field is absent
type missingFieldError struct {
	field string
}

func (e *missingFieldError) Error() string {
	return fmt.Sprintf("Missing file field: %s.", e.field)
}

func (s *Server) health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func (s *Server) analyzeImage(c *gin.Context) {
	img, err := s.readUpload(c, "file", "")
	if err != nil {
		s.fail(c, endpointAnalyze, err)
		return
	}

	analysis, err := s.pipeline.AnalyzeImage(c.Request.Context(), img)
	if err != nil {
		s.fail(c, endpointAnalyze, err)
		return
	}

	c.JSON(http.StatusOK, analysis)
}

func (s *Server) generateImage(c *gin.Context) {
	// The base image is validated first, then the material image, and only then is any provider called
	base, err := s.readUpload(c, "base_image", "base image")
	if err != nil {
		s.fail(c, endpointGenerate, err)
		return
	}

	material, err := s.readUpload(c, "material_image", "material image")
	if err != nil {
		s.fail(c, endpointGenerate, err)
		return
	}

	img, _, err := s.pipeline.GenerateImage(c.Request.Context(), material, base)
	if err != nil {
		s.fail(c, endpointGenerate, err)
		return
	}

	c.Data(http.StatusOK, "image/png", img.Data)
}

// readUpload opens a multipart file and validates its leading bytes
func (s *Server) readUpload(c *gin.Context, field, label string) (*domain.Upload, error) {
	fh, err := c.FormFile(field)
	if err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			return nil, fmt.Errorf("%w: request body exceeds %d bytes", domain.ErrUploadTooLarge, maxErr.Limit)
		}
		return nil, &missingFieldError{field: field}
	}

	f, err := fh.Open()
	if err != nil {
		return nil, fmt.Errorf("failed to open %s: %w", field, err)
	}
	defer f.Close()

	return s.validator.Read(field, label, f)
}

// statusFor maps a pipeline error to a status code and a client-safe message
func (s *Server) statusFor(ep endpoint, err error) (int, string) {
	var invalid *domain.InvalidUploadError
	var missing *missingFieldError

	switch {
	case errors.As(err, &invalid):
		return http.StatusBadRequest, invalid.Error()
	case errors.As(err, &missing):
		return http.StatusBadRequest, missing.Error()
	case errors.Is(err, domain.ErrUploadTooLarge):
		return http.StatusRequestEntityTooLarge, "Image file too large."
	case errors.Is(err, domain.ErrMalformedOutput):
		if s.opts.UpstreamErrorPolicy == config.PolicyConsistent {
			return http.StatusBadGateway, "Vision provider did not return valid JSON."
		}
		if ep == endpointGenerate {
			return http.StatusBadRequest, "Vision provider did not return valid JSON."
		}
		return http.StatusInternalServerError, "Error analyzing image."
	}

	if ep == endpointGenerate {
		return http.StatusInternalServerError, "Error generating image."
	}
	return http.StatusInternalServerError, "Error analyzing image."
}

func (s *Server) fail(c *gin.Context, ep endpoint, err error) {
	status, msg := s.statusFor(ep, err)

	fields := []zap.Field{
		zap.String("endpoint", string(ep)),
		zap.Int("status", status),
		zap.String("request_id", c.GetString(requestIDKey)),
		zap.Error(err),
	}
	if status >= http.StatusInternalServerError {
		s.logger.Error("request failed", fields...)
	} else {
		s.logger.Warn("request rejected", fields...)
	}

	c.AbortWithStatusJSON(status, errorResponse{Detail: msg})
}
