// Package metrics wraps the Prometheus collectors exposed by splitterd.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Registry wraps the Prometheus collectors used by splitterd.
type Registry struct {
	ActiveClients  prometheus.Gauge
	FramesIngested prometheus.Counter
	FramesDropped  prometheus.Counter
	IngestErrors   prometheus.Counter
	AcceptErrors   prometheus.Counter
	AuthRejected   prometheus.Counter
}

// NewRegistry creates and registers the Prometheus collectors.
func NewRegistry() *Registry {
	return &Registry{
		ActiveClients: promauto.NewGauge(prometheus.GaugeOpts{
			Name: "isplitter_clients_active",
			Help: "Number of clients currently registered with the splitter.",
		}),
		FramesIngested: promauto.NewCounter(prometheus.CounterOpts{
			Name: "isplitter_frames_ingested_total",
			Help: "Total number of frames ingested from the producer and broadcast.",
		}),
		FramesDropped: promauto.NewCounter(prometheus.CounterOpts{
			Name: "isplitter_frames_dropped_total",
			Help: "Total number of broadcasts that dropped a frame at one or more clients.",
		}),
		IngestErrors: promauto.NewCounter(prometheus.CounterOpts{
			Name: "isplitter_ingest_errors_total",
			Help: "Total number of ingestion-path errors (NATS or rate limiter).",
		}),
		AcceptErrors: promauto.NewCounter(prometheus.CounterOpts{
			Name: "isplitter_accept_errors_total",
			Help: "Total number of WebSocket upgrade/accept errors.",
		}),
		AuthRejected: promauto.NewCounter(prometheus.CounterOpts{
			Name: "isplitter_auth_rejected_total",
			Help: "Total number of WebSocket upgrades rejected for a missing or invalid token.",
		}),
	}
}

// Handler returns an HTTP handler exposing Prometheus metrics.
func (r *Registry) Handler() http.Handler {
	return promhttp.Handler()
}
