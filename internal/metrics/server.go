package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const serverNamespace = "todoserver"

// ServerRecorder instruments the reference todo server. Like Recorder, a
// nil *ServerRecorder is valid and records nothing.
type ServerRecorder struct {
	registry *prometheus.Registry

	requests   *prometheus.CounterVec
	duration   *prometheus.HistogramVec
	inProgress *prometheus.GaugeVec
}

// NewServerRecorder creates a server recorder backed by its own registry
func NewServerRecorder() *ServerRecorder {
	r := &ServerRecorder{
		registry: prometheus.NewRegistry(),
		requests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: serverNamespace,
			Name:      "requests_total",
			Help:      "Requests handled, by route, method and response code.",
		}, []string{"route", "method", "code"}),
		duration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: serverNamespace,
			Name:      "request_duration_seconds",
			Help:      "Time spent handling a request, including injected delay.",
			Buckets:   prometheus.ExponentialBuckets(0.0005, 2, 15),
		}, []string{"route", "method"}),
		inProgress: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: serverNamespace,
			Name:      "requests_in_progress",
			Help:      "Requests currently being handled.",
		}, []string{"route", "method"}),
	}

	r.registry.MustRegister(r.requests, r.duration, r.inProgress)
	return r
}

// RequestStarted marks a request as in flight
func (r *ServerRecorder) RequestStarted(route, method string) {
	if r == nil {
		return
	}
	r.inProgress.WithLabelValues(route, method).Inc()
}

// RequestFinished records a handled request
func (r *ServerRecorder) RequestFinished(route, method string, status int, elapsed time.Duration) {
	if r == nil {
		return
	}
	r.inProgress.WithLabelValues(route, method).Dec()
	r.requests.WithLabelValues(route, method, strconv.Itoa(status)).Inc()
	r.duration.WithLabelValues(route, method).Observe(elapsed.Seconds())
}

// Registry returns the registry holding the server collectors
func (r *ServerRecorder) Registry() *prometheus.Registry {
	return r.registry
}

// Handler exposes the collectors in the Prometheus text format
func (r *ServerRecorder) Handler() http.Handler {
	return promhttp.HandlerFor(r.registry, promhttp.HandlerOpts{})
}
