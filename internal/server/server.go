// Package server exposes the analysis and generation pipelines over HTTP.
package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/basel-ax/materialize/internal/config"
	"github.com/basel-ax/materialize/internal/metrics"
	"github.com/basel-ax/materialize/internal/service"
	"github.com/basel-ax/materialize/internal/upload"
)

const shutdownTimeout = 10 * time.Second

// Options holds the HTTP surface settings
type Options struct {
	Addr                string
	AllowedOrigins      []string
	MaxUploadBytes      int64
	UpstreamErrorPolicy string
}

// OptionsFromConfig extracts server options from the application config
func OptionsFromConfig(cfg *config.Config) Options {
	return Options{
		Addr:                cfg.HTTPAddr,
		AllowedOrigins:      cfg.AllowedOrigins,
		MaxUploadBytes:      cfg.MaxUploadBytes,
		UpstreamErrorPolicy: cfg.UpstreamErrorPolicy,
	}
}

// Server wires the gin engine to the pipeline
type Server struct {
	engine    *gin.Engine
	pipeline  *service.Pipeline
	validator *upload.Validator
	collector *metrics.Collector
	logger    *zap.Logger
	opts      Options
}

// New creates a server with all routes and middleware registered
func New(pipeline *service.Pipeline, collector *metrics.Collector, logger *zap.Logger, opts Options) *Server {
	if opts.UpstreamErrorPolicy == "" {
		opts.UpstreamErrorPolicy = config.PolicyLegacy
	}
	if len(opts.AllowedOrigins) == 0 {
		opts.AllowedOrigins = config.DefaultAllowedOrigins
	}

	s := &Server{
		engine:    gin.New(),
		pipeline:  pipeline,
		validator: upload.NewValidator(opts.MaxUploadBytes),
		collector: collector,
		logger:    logger.Named("http"),
		opts:      opts,
	}

	if opts.UpstreamErrorPolicy == config.PolicyLegacy {
		s.logger.Warn("malformed provider output answers 500 on /analyze-image but 400 on /generate-image; set UPSTREAM_ERROR_POLICY=consistent for 502 on both")
	}

	s.routes()
	return s
}

func (s *Server) routes() {
	if s.opts.MaxUploadBytes > 0 {
		s.engine.MaxMultipartMemory = 2 * s.opts.MaxUploadBytes
	}

	s.engine.Use(
		recovery(s.logger),
		requestID(),
		requestLogger(s.logger),
		recordMetrics(s.collector),
		cors.New(corsConfig(s.opts.AllowedOrigins)),
	)

	s.engine.GET("/health", s.health)
	s.engine.GET("/metrics", gin.WrapH(s.collector.Handler()))

	uploads := s.engine.Group("/", limitBody(s.opts.MaxUploadBytes))
	uploads.POST("/analyze-image", s.analyzeImage)
	uploads.POST("/generate-image", s.generateImage)
}

func corsConfig(origins []string) cors.Config {
	cfg := cors.Config{
		AllowMethods:     []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowHeaders:     []string{"Origin", "Content-Type", "Accept", "Authorization", requestIDHeader},
		ExposeHeaders:    []string{requestIDHeader},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}
	for _, origin := range origins {
		if origin == "*" {
			cfg.AllowAllOrigins = true
			return cfg
		}
	}
	cfg.AllowOrigins = origins
	return cfg
}

// Handler returns the root http.Handler
func (s *Server) Handler() http.Handler {
	return s.engine
}

// Run serves until ctx is cancelled, then shuts down gracefully
func (s *Server) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:              s.opts.Addr,
		Handler:           s.engine,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("HTTP server listening", zap.String("addr", s.opts.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("failed to serve HTTP: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	s.logger.Info("Shutting down HTTP server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("failed to shut down HTTP server: %w", err)
	}
	return nil
}
