// Package metrics holds the Prometheus collectors exported on /metrics.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "ragdesk"

// Recorder groups the application's collectors around one registry.
// A nil *Recorder is valid and records nothing.
type Recorder struct {
	registry *prometheus.Registry

	uploads         *prometheus.CounterVec
	chunksIndexed   prometheus.Counter
	chatQueries     *prometheus.CounterVec
	chatLatency     prometheus.Histogram
	securityEvents  *prometheus.CounterVec
	activeSessions  prometheus.Gauge
	processingQueue prometheus.Gauge
}

// New registers all collectors on a fresh registry.
func New() *Recorder {
	reg := prometheus.NewRegistry()
	f := promauto.With(reg)

	return &Recorder{
		registry: reg,
		uploads: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "uploads_total",
			Help:      "Document uploads by outcome.",
		}, []string{"outcome"}),
		chunksIndexed: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "chunks_indexed_total",
			Help:      "Chunks written to the vector index.",
		}),
		chatQueries: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "chat_queries_total",
			Help:      "Chat queries by outcome.",
		}, []string{"outcome"}),
		chatLatency: f.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "chat_duration_seconds",
			Help:      "Time to answer a chat query.",
			Buckets:   prometheus.ExponentialBuckets(0.05, 2, 10),
		}),
		securityEvents: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "security_events_total",
			Help:      "Security events by type and risk level.",
		}, []string{"type", "risk"}),
		activeSessions: f.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "active_sessions",
			Help:      "Sessions currently registered.",
		}),
		processingQueue: f.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "processing_jobs",
			Help:      "Upload jobs queued or running.",
		}),
	}
}

// Handler serves the registry in the Prometheus exposition format.
func (r *Recorder) Handler() http.Handler {
	return promhttp.HandlerFor(r.registry, promhttp.HandlerOpts{})
}

// Upload counts an upload outcome ("accepted", "ready", "failed", "rejected").
func (r *Recorder) Upload(outcome string) {
	if r == nil {
		return
	}
	r.uploads.WithLabelValues(outcome).Inc()
}

// ChunksIndexed adds n indexed chunks.
func (r *Recorder) ChunksIndexed(n int) {
	if r == nil {
		return
	}
	r.chunksIndexed.Add(float64(n))
}

// Chat records a chat query outcome and its duration.
func (r *Recorder) Chat(outcome string, took time.Duration) {
	if r == nil {
		return
	}
	r.chatQueries.WithLabelValues(outcome).Inc()
	r.chatLatency.Observe(took.Seconds())
}

// SecurityEvent counts an audit event.
func (r *Recorder) SecurityEvent(eventType, risk string) {
	if r == nil {
		return
	}
	r.securityEvents.WithLabelValues(eventType, risk).Inc()
}

// SetActiveSessions reports the registered session count.
func (r *Recorder) SetActiveSessions(n int) {
	if r == nil {
		return
	}
	r.activeSessions.Set(float64(n))
}

// JobStarted and JobFinished track in-flight upload jobs.
func (r *Recorder) JobStarted() {
	if r == nil {
		return
	}
	r.processingQueue.Inc()
}

func (r *Recorder) JobFinished() {
	if r == nil {
		return
	}
	r.processingQueue.Dec()
}
