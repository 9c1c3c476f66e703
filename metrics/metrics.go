// Package metrics exposes pipeline counters and stage durations to Prometheus.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/tetelio/asset-pipeline/timing"
)

// Registry holds all metrics for one pipeline process.
type Registry struct {
	StageDuration    *prometheus.HistogramVec
	FilesTotal       *prometheus.CounterVec
	BytesTransformed *prometheus.CounterVec

	registry *prometheus.Registry
}

// NewRegistry creates a Registry backed by its own prometheus registry.
func NewRegistry() *Registry {
	r := &Registry{registry: prometheus.NewRegistry()}

	r.StageDuration = promauto.With(r.registry).NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "assetpipe_stage_duration_seconds",
			Help:    "Duration of a pipeline stage for one file in seconds",
			Buckets: []float64{0.01, 0.05, 0.1, 0.5, 1, 2.5, 5, 10, 30, 60, 120},
		},
		[]string{"stage"},
	)

	r.FilesTotal = promauto.With(r.registry).NewCounterVec(
		prometheus.CounterOpts{
			Name: "assetpipe_files_total",
			Help: "Files processed by the pipeline by direction and outcome",
		},
		[]string{"direction", "status"},
	)

	r.BytesTransformed = promauto.With(r.registry).NewCounterVec(
		prometheus.CounterOpts{
			Name: "assetpipe_bytes_transformed_total",
			Help: "Bytes passed through the keystream transform",
		},
		[]string{"direction"},
	)

	return r
}

// ObserveStage implements timing.Observer.
func (r *Registry) ObserveStage(stage timing.Stage, d time.Duration) {
	r.StageDuration.WithLabelValues(string(stage)).Observe(d.Seconds())
}

// RecordFile counts one processed file.
func (r *Registry) RecordFile(direction, status string) {
	r.FilesTotal.WithLabelValues(direction, status).Inc()
}

// AddBytes counts bytes that went through the transform.
func (r *Registry) AddBytes(direction string, n int) {
	r.BytesTransformed.WithLabelValues(direction).Add(float64(n))
}

// Gatherer returns the underlying prometheus registry.
func (r *Registry) Gatherer() prometheus.Gatherer {
	return r.registry
}

// Handler serves the registry in the Prometheus exposition format.
func (r *Registry) Handler() http.Handler {
	return promhttp.HandlerFor(r.registry, promhttp.HandlerOpts{})
}

var _ timing.Observer = (*Registry)(nil)
