// Package metrics provides Prometheus instrumentation for the campaign engine.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// BookingsTotal counts bookings, partitioned by outcome.
	BookingsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "agrix_bookings_total",
		Help: "Total number of bookings processed",
	}, []string{"status"})

	// BookingLatency tracks end-to-end booking execution latency.
	BookingLatency = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "agrix_booking_latency_seconds",
		Help:    "Booking execution latency in seconds",
		Buckets: prometheus.DefBuckets,
	})

	// ActiveCampaigns tracks the number of open campaigns.
	ActiveCampaigns = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "agrix_active_campaigns",
		Help: "Number of currently open campaigns",
	})

	// UnformedCampaigns tracks open campaigns below their viability threshold.
	UnformedCampaigns = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "agrix_unformed_campaigns",
		Help: "Number of open campaigns that have not reached their minimum area",
	})

	// WebSocketClients tracks connected WebSocket clients.
	WebSocketClients = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "agrix_websocket_clients",
		Help: "Number of connected WebSocket clients",
	})

	// HTTPRequestsTotal counts HTTP requests by method, path, and status.
	HTTPRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "agrix_http_requests_total",
		Help: "Total HTTP requests",
	}, []string{"method", "path", "status"})

	// HTTPRequestDuration tracks request duration by method and path.
	HTTPRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "agrix_http_request_duration_seconds",
		Help:    "HTTP request duration in seconds",
		Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1.0},
	}, []string{"method", "path"})

	// AreaLimitRejections counts bookings rejected by the area limiter.
	AreaLimitRejections = promauto.NewCounter(prometheus.CounterOpts{
		Name: "agrix_area_limit_rejections_total",
		Help: "Bookings rejected by the farmer area limiter",
	})

	// CommittedAreaTotal tracks cumulative booked area per campaign.
	CommittedAreaTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "agrix_committed_area_total",
		Help: "Cumulative booked area in 10a units",
	}, []string{"campaign_id"})
)

// Handler returns the Prometheus metrics HTTP handler.
func Handler() http.Handler {
	return promhttp.Handler()
}

// Middleware returns an HTTP middleware that records request metrics.
func Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		wrapped := &statusWriter{ResponseWriter: w, status: 200}
		next.ServeHTTP(wrapped, r)
		duration := time.Since(start).Seconds()

		// Use the raw path for the path label; route cardinality is low.
		path := r.URL.Path
		HTTPRequestsTotal.WithLabelValues(r.Method, path, strconv.Itoa(wrapped.status)).Inc()
		HTTPRequestDuration.WithLabelValues(r.Method, path).Observe(duration)
	})
}

// statusWriter wraps http.ResponseWriter to capture the status code.
type statusWriter struct {
	http.ResponseWriter
	status int
}

func (w *statusWriter) WriteHeader(code int) {
	w.status = code
	w.ResponseWriter.WriteHeader(code)
}
