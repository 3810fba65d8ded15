// Package prommetrics exposes reader instrumentation as Prometheus metrics.
package prommetrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/user/vidreader/pkg/ports"
)

// Metrics implements ports.Metrics on a private Prometheus registry.
type Metrics struct {
	registry *prometheus.Registry

	framesTotal   *prometheus.CounterVec
	seeksTotal    *prometheus.CounterVec
	batchesTotal  prometheus.Counter
	batchFrames   prometheus.Counter
	batchSeconds  prometheus.Histogram
	indexFrames   prometheus.Gauge
	indexKeyframe prometheus.Gauge
}

// New creates and registers the reader metrics.
func New() *Metrics {
	registry := prometheus.NewRegistry()

	m := &Metrics{
		registry: registry,
		framesTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "vidreader_frames_total",
			Help: "Frames handled by readers, by outcome (decoded, discarded, substituted)",
		}, []string{"outcome"}),
		seeksTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "vidreader_seeks_total",
			Help: "Container seeks, by kind (approximate, accurate)",
		}, []string{"kind"}),
		batchesTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "vidreader_batches_total",
			Help: "Total number of batch requests served",
		}),
		batchFrames: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "vidreader_batch_frames_total",
			Help: "Total number of frames returned in batches",
		}),
		batchSeconds: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "vidreader_batch_duration_seconds",
			Help:    "Time spent serving a batch request",
			Buckets: prometheus.ExponentialBuckets(0.001, 4, 8),
		}),
		indexFrames: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "vidreader_index_frames",
			Help: "Frame count of the most recently indexed stream",
		}),
		indexKeyframe: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "vidreader_index_keyframes",
			Help: "Keyframe count of the most recently indexed stream",
		}),
	}

	registry.MustRegister(
		m.framesTotal,
		m.seeksTotal,
		m.batchesTotal,
		m.batchFrames,
		m.batchSeconds,
		m.indexFrames,
		m.indexKeyframe,
	)
	return m
}

func (m *Metrics) FrameDecoded() {
	m.framesTotal.WithLabelValues("decoded").Inc()
}

func (m *Metrics) FrameDiscarded() {
	m.framesTotal.WithLabelValues("discarded").Inc()
}

func (m *Metrics) FrameSubstituted() {
	m.framesTotal.WithLabelValues("substituted").Inc()
}

func (m *Metrics) Seek(accurate bool) {
	kind := "approximate"
	if accurate {
		kind = "accurate"
	}
	m.seeksTotal.WithLabelValues(kind).Inc()
}

func (m *Metrics) BatchServed(frames int, elapsed time.Duration) {
	m.batchesTotal.Inc()
	m.batchFrames.Add(float64(frames))
	m.batchSeconds.Observe(elapsed.Seconds())
}

func (m *Metrics) IndexBuilt(frames, keyframes int) {
	m.indexFrames.Set(float64(frames))
	m.indexKeyframe.Set(float64(keyframes))
}

// Registry returns the underlying registry.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Handler returns an http.Handler that serves the metrics.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// Ensure Metrics implements ports.Metrics
var _ ports.Metrics = (*Metrics)(nil)
