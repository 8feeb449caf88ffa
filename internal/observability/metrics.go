// README: Prometheus collectors for HTTP traffic and dispatch side effects.
package observability

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "hatid"

var (
	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{Namespace: namespace, Name: "http_requests_total", Help: "Total HTTP requests handled"},
		[]string{"method", "path", "status"},
	)
	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request latency distribution",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"method", "path", "status"},
	)

	BookingTransitions = promauto.NewCounterVec(
		prometheus.CounterOpts{Namespace: namespace, Name: "booking_transitions_total", Help: "Booking status transitions committed"},
		[]string{"to"},
	)
	BookingConflicts = promauto.NewCounterVec(
		prometheus.CounterOpts{Namespace: namespace, Name: "booking_conflicts_total", Help: "Conditional writes that lost a race or failed a state check"},
		[]string{"op"},
	)
	PendingExpired = promauto.NewCounter(
		prometheus.CounterOpts{Namespace: namespace, Name: "bookings_expired_total", Help: "Pending bookings cancelled by the timeout sweep"},
	)

	NotificationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{Namespace: namespace, Name: "notifications_total", Help: "Notification jobs by outcome"},
		[]string{"stage", "outcome"},
	)
	NotifyQueueDepth = promauto.NewGauge(
		prometheus.GaugeOpts{Namespace: namespace, Name: "notify_queue_depth", Help: "Notification jobs waiting for a worker"},
	)
)

// RecordHTTP records one handled request.
func RecordHTTP(method, path string, statusCode int, d time.Duration) {
	status := strconv.Itoa(statusCode)
	HTTPRequestsTotal.WithLabelValues(method, path, status).Inc()
	HTTPRequestDuration.WithLabelValues(method, path, status).Observe(d.Seconds())
}
