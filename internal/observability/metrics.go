package observability

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"gorm.io/gorm"
)

var (
	// RedisErrorRate counts Redis errors by operation type.
	RedisErrorRate = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "giftfeed_redis_error_rate_total",
		Help: "Total number of Redis errors by operation type",
	}, []string{"operation"})

	// DatabaseQueryLatency records database query latency by operation and table.
	DatabaseQueryLatency = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "giftfeed_database_query_latency_seconds",
		Help:    "Database query latency in seconds",
		Buckets: prometheus.DefBuckets,
	}, []string{"operation", "table"})

	// MailDeliveries counts outbound verification/reset mails by result.
	MailDeliveries = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "giftfeed_mail_deliveries_total",
		Help: "Total outbound mail attempts by kind and result",
	}, []string{"kind", "result"})

	// PushDeliveries counts push dispatch outcomes.
	PushDeliveries = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "giftfeed_push_deliveries_total",
		Help: "Total push dispatch outcomes",
	}, []string{"result"})

	// PushTokensPruned counts device tokens deactivated after delivery rejection.
	PushTokensPruned = promauto.NewCounter(prometheus.CounterOpts{
		Name: "giftfeed_push_tokens_pruned_total",
		Help: "Total device tokens deactivated after push rejection",
	})

	// VerificationCodesIssued counts issued registration and reset codes.
	VerificationCodesIssued = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "giftfeed_verification_codes_issued_total",
		Help: "Total verification codes issued by kind",
	}, []string{"kind"})
)

// DatabaseMetrics wraps DB access for recording query latency.
type DatabaseMetrics struct {
	db *gorm.DB
}

// NewDatabaseMetrics returns a new DatabaseMetrics instance.
func NewDatabaseMetrics(db *gorm.DB) *DatabaseMetrics {
	return &DatabaseMetrics{db: db}
}

// ObserveQuery records the latency of a database query.
func (m *DatabaseMetrics) ObserveQuery(operation, table string, start time.Time) {
	latency := time.Since(start).Seconds()
	DatabaseQueryLatency.WithLabelValues(operation, table).Observe(latency)
}

// TrackQuery returns a function that records query latency when called (e.g. defer).
func (m *DatabaseMetrics) TrackQuery(operation, table string) func() {
	start := time.Now()
	return func() {
		m.ObserveQuery(operation, table, start)
	}
}
