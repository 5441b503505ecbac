// Package metrics provides Prometheus instrumentation and a standalone
// metrics server listening on its own address.
package metrics

import (
	"context"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// EnrollmentsTotal counts certificates issued by the enrollment
	// endpoint.
	EnrollmentsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "clearsign_enrollments_total",
		Help: "Number of certificate enrollments served.",
	})

	// RemoteSignaturesTotal counts signatures produced by the remote
	// signing endpoint.
	RemoteSignaturesTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "clearsign_remote_signatures_total",
		Help: "Number of remote signing operations served.",
	})

	// ProvisioningsTotal counts credential provisionings by mode and
	// cache outcome.
	ProvisioningsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "clearsign_provisionings_total",
		Help: "Number of credential provisioning operations.",
	}, []string{"mode", "outcome"})
)

// MetricsServer serves the Prometheus scrape endpoint.
type MetricsServer struct {
	srv *http.Server
}

// New creates a metrics server listening on addr.
func New(name, addr string) (*MetricsServer, error) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())

	return &MetricsServer{
		srv: &http.Server{
			Addr:         addr,
			Handler:      mux,
			ReadTimeout:  10 * time.Second,
			WriteTimeout: 10 * time.Second,
		},
	}, nil
}

// ListenAndServe blocks serving the scrape endpoint.
func (m *MetricsServer) ListenAndServe() error {
	return m.srv.ListenAndServe()
}

// Shutdown gracefully stops the server.
func (m *MetricsServer) Shutdown(ctx context.Context) error {
	return m.srv.Shutdown(ctx)
}
