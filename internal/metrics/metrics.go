// Package metrics exposes Prometheus counters for scan runs.
package metrics

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	QueriesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "officetrack_queries_total",
			Help: "Total number of search queries issued",
		},
		[]string{"provider", "status"},
	)

	ResultsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "officetrack_results_total",
			Help: "Total number of search results fetched",
		},
		[]string{"provider"},
	)

	FindingsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "officetrack_findings_total",
			Help: "Total number of findings extracted from results",
		},
		[]string{"language"},
	)

	NewFindingsTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "officetrack_new_findings_total",
			Help: "Total number of findings never seen before",
		},
	)

	ErrorsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "officetrack_errors_total",
			Help: "Total number of non-fatal errors by pipeline stage",
		},
		[]string{"stage"},
	)

	DigestsSentTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "officetrack_digests_sent_total",
			Help: "Total number of digest mails delivered",
		},
	)

	RunDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "officetrack_run_duration_seconds",
			Help:    "Duration of full scan runs in seconds",
			Buckets: []float64{5, 15, 30, 60, 120, 300, 600},
		},
	)
)

// Server encapsulates an HTTP server for Prometheus metrics.
type Server struct {
	srv *http.Server
}

// Start begins listening on the specified port and exposes /metrics.
func Start(port int) *Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())

	srv := &http.Server{
		Addr:    fmt.Sprintf(":%d", port),
		Handler: mux,
	}

	go func() {
		// Suppress the error from intentional shutdown
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			fmt.Printf("metrics server failed: %v\n", err)
		}
	}()

	return &Server{srv: srv}
}

// Stop gracefully shuts down the metrics server.
func (s *Server) Stop(ctx context.Context) error {
	if s.srv == nil {
		return nil
	}
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	return s.srv.Shutdown(ctx)
}
