package observability

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// RedisErrorRate counts Redis errors by operation type.
	RedisErrorRate = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "blogicum_redis_error_rate_total",
		Help: "Total number of Redis errors by operation type",
	}, []string{"operation"})

	// DatabaseQueryLatency records database query latency by operation and table.
	DatabaseQueryLatency = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "blogicum_database_query_latency_seconds",
		Help:    "Database query latency in seconds",
		Buckets: prometheus.DefBuckets,
	}, []string{"operation", "table"})

	// PostsCreated counts posts written through the site.
	PostsCreated = promauto.NewCounter(prometheus.CounterOpts{
		Name: "blogicum_posts_created_total",
		Help: "Total number of posts created",
	})

	// CommentsCreated counts comments added to posts.
	CommentsCreated = promauto.NewCounter(prometheus.CounterOpts{
		Name: "blogicum_comments_created_total",
		Help: "Total number of comments created",
	})

	// LoginAttempts counts login attempts by result (success, failure, inactive).
	LoginAttempts = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "blogicum_login_attempts_total",
		Help: "Total number of login attempts by result",
	}, []string{"result"})

	// Registrations counts created accounts.
	Registrations = promauto.NewCounter(prometheus.CounterOpts{
		Name: "blogicum_registrations_total",
		Help: "Total number of registered accounts",
	})

	// ImageUploads counts post image uploads by result.
	ImageUploads = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "blogicum_image_uploads_total",
		Help: "Total number of post image uploads by result",
	}, []string{"result"})
)

// DatabaseMetrics records query latency for one repository.
type DatabaseMetrics struct {
	table string
}

// NewDatabaseMetrics returns a new DatabaseMetrics instance for table.
func NewDatabaseMetrics(table string) *DatabaseMetrics {
	return &DatabaseMetrics{table: table}
}

// ObserveQuery records the latency of a database query.
func (m *DatabaseMetrics) ObserveQuery(operation string, start time.Time) {
	DatabaseQueryLatency.WithLabelValues(operation, m.table).Observe(time.Since(start).Seconds())
}

// TrackQuery returns a function that records query latency when called (e.g. defer).
func (m *DatabaseMetrics) TrackQuery(operation string) func() {
	start := time.Now()
	return func() {
		m.ObserveQuery(operation, start)
	}
}
