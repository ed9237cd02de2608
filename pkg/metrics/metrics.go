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
	EngagementOperations = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "locki_engagement_operations_total",
			Help: "Engagement, relationship and messaging operations by outcome",
		},
		[]string{"operation", "result"},
	)

	NotificationsEmitted = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "locki_notifications_emitted_total",
			Help: "Notifications persisted by type",
		},
		[]string{"type"},
	)

	NotificationFailures = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "locki_notification_failures_total",
			Help: "Best-effort notification deliveries that failed",
		},
		[]string{"type"},
	)

	ActiveStreams = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "locki_active_streams",
			Help: "Open live subscription streams",
		},
		[]string{"kind"},
	)

	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "locki_http_request_duration_seconds",
			Help:    "HTTP request latency",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "route", "status"},
	)
)

// RecordOperation counts an operation outcome. kind is the apperror taxonomy name,
// empty on success.
func RecordOperation(operation string, kind string) {
	result := kind
	if result == "" {
		result = "ok"
	}
	EngagementOperations.WithLabelValues(operation, result).Inc()
}

func RecordHTTPRequest(method, route string, status int, elapsed time.Duration) {
	HTTPRequestDuration.WithLabelValues(method, route, strconv.Itoa(status)).Observe(elapsed.Seconds())
}

// Handler exposes the default registry.
func Handler() http.Handler {
	return promhttp.Handler()
}
