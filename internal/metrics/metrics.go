// Package metrics exposes load-test request metrics in Prometheus format.
package metrics

import (
	"net/http"
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/studiowebux/todoload/internal/types"
)

const namespace = "todoload"

// Recorder holds the collectors for one process. A nil *Recorder is valid
// and records nothing.
type Recorder struct {
	registry *prometheus.Registry

	requests   *prometheus.CounterVec
	duration   *prometheus.HistogramVec
	iterations prometheus.Counter
	activeVUs  prometheus.Gauge
}

// NewRecorder creates a recorder backed by its own registry
func NewRecorder() *Recorder {
	r := &Recorder{
		registry: prometheus.NewRegistry(),
		requests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "requests_total",
			Help:      "Requests issued against the target, by step, method and response code (0 for no response).",
		}, []string{"step", "method", "code"}),
		duration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "request_duration_seconds",
			Help:      "Request latency as seen by the load generator.",
			Buckets:   prometheus.ExponentialBuckets(0.001, 2, 15),
		}, []string{"step"}),
		iterations: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "iterations_total",
			Help:      "Completed workload iterations.",
		}),
		activeVUs: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "active_vus",
			Help:      "Virtual users currently running iterations.",
		}),
	}

	r.registry.MustRegister(r.requests, r.duration, r.iterations, r.activeVUs)
	return r
}

// ObserveResult records one request outcome
func (r *Recorder) ObserveResult(result *types.Result) {
	if r == nil {
		return
	}
	r.requests.WithLabelValues(result.Step, result.Method, strconv.Itoa(result.Status)).Inc()
	r.duration.WithLabelValues(result.Step).Observe(result.Duration.Seconds())
}

// IterationDone counts a finished iteration
func (r *Recorder) IterationDone() {
	if r == nil {
		return
	}
	r.iterations.Inc()
}

// VUStarted increments the active VU gauge
func (r *Recorder) VUStarted() {
	if r == nil {
		return
	}
	r.activeVUs.Inc()
}

// VUStopped decrements the active VU gauge
func (r *Recorder) VUStopped() {
	if r == nil {
		return
	}
	r.activeVUs.Dec()
}

// Registry returns the underlying registry
func (r *Recorder) Registry() *prometheus.Registry {
	return r.registry
}

// Handler serves the recorder's metrics
func (r *Recorder) Handler() http.Handler {
	return promhttp.HandlerFor(r.registry, promhttp.HandlerOpts{})
}
