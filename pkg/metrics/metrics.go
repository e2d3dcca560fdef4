// Package metrics exposes prometheus instrumentation for the import pipeline.
package metrics

import (
	"fmt"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// ImportMetrics tracks import pipeline activity.
type ImportMetrics struct {
	RowsParsed     prometheus.Counter
	RowsValidated  *prometheus.CounterVec
	RowsCommitted  *prometheus.CounterVec
	CommitDuration prometheus.Histogram
}

// NewImportMetrics registers import metrics on the given registerer.
func NewImportMetrics(reg prometheus.Registerer) *ImportMetrics {
	factory := promauto.With(reg)

	return &ImportMetrics{
		RowsParsed: factory.NewCounter(prometheus.CounterOpts{
			Name: "import_rows_parsed_total",
			Help: "Number of data rows parsed from uploaded files.",
		}),
		RowsValidated: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "import_rows_validated_total",
			Help: "Number of rows validated, by outcome.",
		}, []string{"outcome"}),
		RowsCommitted: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "import_rows_committed_total",
			Help: "Number of rows attempted during commit, by outcome.",
		}, []string{"outcome"}),
		CommitDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "import_commit_duration_seconds",
			Help:    "Wall time of the commit phase.",
			Buckets: prometheus.ExponentialBuckets(0.01, 2, 12),
		}),
	}
}

// Serve starts the /metrics endpoint on the given port.
func Serve(port int, reg *prometheus.Registry) *http.Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", port),
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		_ = srv.ListenAndServe()
	}()

	return srv
}
