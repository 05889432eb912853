package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	BuildInfo = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "erddap_info_build_info",
			Help: "Build information of the ERDDAP info service",
		},
		[]string{"version", "commit", "date"},
	)

	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "erddap_info_http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "path", "status"},
	)

	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "erddap_info_http_request_duration_seconds",
			Help:    "Duration of HTTP requests in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path"},
	)

	HTTPRequestsInFlight = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "erddap_info_http_requests_in_flight",
			Help: "Number of HTTP requests currently being processed",
		},
	)

	UpstreamRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "erddap_info_upstream_requests_total",
			Help: "Total number of requests made to ERDDAP servers",
		},
		[]string{"kind", "status"}, // kind: "info", "depths", "observations"
	)

	UpstreamRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "erddap_info_upstream_request_duration_seconds",
			Help:    "Duration of requests made to ERDDAP servers",
			Buckets: prometheus.ExponentialBuckets(0.01, 2, 12), // 10ms to ~41s
		},
		[]string{"kind"},
	)

	ClassificationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "erddap_info_classifications_total",
			Help: "Total number of dataset geometry classifications",
		},
		[]string{"dsg_type", "status"},
	)

	GapRowsInsertedTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "erddap_info_gap_rows_inserted_total",
			Help: "Total number of missing-value rows inserted into time series",
		},
	)

	CacheLookupsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "erddap_info_cache_lookups_total",
			Help: "Total number of dataset cache lookups",
		},
		[]string{"result"}, // "hit", "miss", "expired"
	)
)

// Middleware returns a chi middleware that records HTTP metrics.
func Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		HTTPRequestsInFlight.Inc()
		defer HTTPRequestsInFlight.Dec()

		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)

		path := r.URL.Path
		if rctx := chi.RouteContext(r.Context()); rctx != nil && rctx.RoutePattern() != "" {
			path = rctx.RoutePattern()
		}

		HTTPRequestsTotal.WithLabelValues(r.Method, path, strconv.Itoa(ww.Status())).Inc()
		HTTPRequestDuration.WithLabelValues(r.Method, path).Observe(time.Since(start).Seconds())
	})
}

// RecordUpstream records one request to an ERDDAP server.
func RecordUpstream(kind string, duration time.Duration, err error) {
	status := "success"
	if err != nil {
		status = "error"
	}
	UpstreamRequestsTotal.WithLabelValues(kind, status).Inc()
	UpstreamRequestDuration.WithLabelValues(kind).Observe(duration.Seconds())
}

// RecordClassification records the outcome of resolving a dataset's geometry.
func RecordClassification(dsgType string, err error) {
	status := "success"
	if err != nil {
		status = "error"
	}
	if dsgType == "" {
		dsgType = "unknown"
	}
	ClassificationsTotal.WithLabelValues(dsgType, status).Inc()
}
