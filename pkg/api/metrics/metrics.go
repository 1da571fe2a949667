package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/nicholas-fedor/lookout/pkg/metrics"
)

// Handler is an HTTP handle for serving metric data.
type Handler struct {
	Path    string
	Handle  http.HandlerFunc
	Metrics *metrics.Metrics
}

// New is a factory function creating a new Metrics instance backed by the
// default Prometheus registry.
func New() *Handler {
	return &Handler{
		Path:    "/v1/metrics",
		Handle:  promhttp.Handler().ServeHTTP,
		Metrics: metrics.Default(),
	}
}

// NewWithGatherer creates a handler exposing the given gatherer.
//
// Parameters:
//   - gatherer: Registry to expose.
//   - m: Metrics instance registered against the gatherer.
//
// Returns:
//   - *Handler: Handler serving /v1/metrics.
func NewWithGatherer(gatherer prometheus.Gatherer, m *metrics.Metrics) *Handler {
	return &Handler{
		Path:    "/v1/metrics",
		Handle:  promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{}).ServeHTTP,
		Metrics: m,
	}
}
