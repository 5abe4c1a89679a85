// Package metrics collects Prometheus metrics for HTTP requests and provider calls.
package metrics

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/basel-ax/materialize/internal/domain"
)

// Provider call outcomes
const (
	OutcomeSuccess   = "success"
	OutcomeMalformed = "malformed"
	OutcomeError     = "error"
)

// Collector owns a registry and the metrics registered on it
type Collector struct {
	registry *prometheus.Registry

	httpRequestsTotal   *prometheus.CounterVec
	httpRequestDuration *prometheus.HistogramVec

	providerRequestsTotal   *prometheus.CounterVec
	providerRequestDuration *prometheus.HistogramVec
}

// NewCollector creates a collector with its own registry
func NewCollector(namespace string) *Collector {
	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	factory := promauto.With(reg)

	return &Collector{
		registry: reg,
		httpRequestsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "http_requests_total",
				Help:      "Total number of HTTP requests",
			},
			[]string{"method", "path", "status"},
		),
		httpRequestDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "http_request_duration_seconds",
				Help:      "HTTP request duration in seconds",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"method", "path"},
		),
		providerRequestsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "provider_requests_total",
				Help:      "Total number of inference provider calls",
			},
			[]string{"provider", "outcome"},
		),
		providerRequestDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "provider_request_duration_seconds",
				Help:      "Inference provider call duration in seconds",
				Buckets:   []float64{0.5, 1, 2.5, 5, 10, 20, 40, 60, 120},
			},
			[]string{"provider"},
		),
	}
}

// Registry exposes the underlying registry, mainly for tests
func (c *Collector) Registry() *prometheus.Registry {
	return c.registry
}

// Handler serves the registry in the Prometheus text format
func (c *Collector) Handler() http.Handler {
	return promhttp.HandlerFor(c.registry, promhttp.HandlerOpts{})
}

// RecordHTTPRequest records one served HTTP request
func (c *Collector) RecordHTTPRequest(method, path string, status int, duration time.Duration) {
	c.httpRequestsTotal.WithLabelValues(method, path, strconv.Itoa(status)).Inc()
	c.httpRequestDuration.WithLabelValues(method, path).Observe(duration.Seconds())
}

// RecordProviderCall records one provider round trip
func (c *Collector) RecordProviderCall(provider string, err error, duration time.Duration) {
	c.providerRequestsTotal.WithLabelValues(provider, outcome(err)).Inc()
	c.providerRequestDuration.WithLabelValues(provider).Observe(duration.Seconds())
}

func outcome(err error) string {
	switch {
	case err == nil:
		return OutcomeSuccess
	case errors.Is(err, domain.ErrMalformedOutput):
		return OutcomeMalformed
	default:
		return OutcomeError
	}
}

type visionDecorator struct {
	wrapped   domain.VisionProvider
	name      string
	collector *Collector
}

// InstrumentVision wraps a vision provider so every call is recorded
func InstrumentVision(wrapped domain.VisionProvider, name string, collector *Collector) domain.VisionProvider {
	return &visionDecorator{wrapped: wrapped, name: name, collector: collector}
}

func (d *visionDecorator) Describe(ctx context.Context, imageRef, instruction string) (string, error) {
	start := time.Now()
	text, err := d.wrapped.Describe(ctx, imageRef, instruction)
	d.collector.RecordProviderCall(d.name, err, time.Since(start))
	return text, err
}

type editDecorator struct {
	wrapped   domain.ImageEditProvider
	name      string
	collector *Collector
}

// InstrumentImageEdit wraps an image edit provider so every call is recorded
func InstrumentImageEdit(wrapped domain.ImageEditProvider, name string, collector *Collector) domain.ImageEditProvider {
	return &editDecorator{wrapped: wrapped, name: name, collector: collector}
}

func (d *editDecorator) Edit(ctx context.Context, source *domain.Upload, prompt string) (*domain.GeneratedImage, error) {
	start := time.Now()
	img, err := d.wrapped.Edit(ctx, source, prompt)
	d.collector.RecordProviderCall(d.name, err, time.Since(start))
	return img, err
}
