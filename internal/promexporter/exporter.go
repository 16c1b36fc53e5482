package promexporter

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Exporter manages Prometheus metrics export
type Exporter struct {
	registry *prometheus.Registry
	client   *ClientMetrics
}

// NewExporter creates a new Prometheus exporter reading from source
func NewExporter(source Source) *Exporter {
	registry := prometheus.NewRegistry()

	return &Exporter{
		registry: registry,
		client:   NewClientMetrics(registry, source),
	}
}

// ClientMetrics returns the client metrics collector
func (e *Exporter) ClientMetrics() *ClientMetrics {
	return e.client
}

// Registry returns the registry the metrics are registered with
func (e *Exporter) Registry() *prometheus.Registry {
	return e.registry
}

// Handler returns an HTTP handler for the /metrics endpoint
func (e *Exporter) Handler() http.Handler {
	return promhttp.HandlerFor(e.registry, promhttp.HandlerOpts{})
}
