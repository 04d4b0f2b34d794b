// Package metrics provides Prometheus instrumentation for the PayFriend service.
package metrics

import (
	"context"
	"database/sql"
	"runtime"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// HTTPRequestsTotal counts HTTP requests by method, path, and status.
	HTTPRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "payfriend",
			Name:      "http_requests_total",
			Help:      "Total HTTP requests by method, path pattern, and status code.",
		},
		[]string{"method", "path", "status"},
	)

	// HTTPRequestDuration observes request latency by method and path.
	HTTPRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "payfriend",
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request duration in seconds.",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"method", "path"},
	)

	// TransfersTotal counts transfer attempts by outcome
	// (completed, validation_failed, warned, scorer_unavailable, error).
	TransfersTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "payfriend",
			Name:      "transfers_total",
			Help:      "Total transfer attempts by outcome.",
		},
		[]string{"outcome"},
	)

	// FraudWarningsTotal counts soft fraud warnings by heuristic (velocity, anomaly).
	FraudWarningsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "payfriend",
			Name:      "fraud_warnings_total",
			Help:      "Total fraud-gate warnings by heuristic.",
		},
		[]string{"heuristic"},
	)

	// FraudReportsTotal counts fraud reports by result.
	FraudReportsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "payfriend",
			Name:      "fraud_reports_total",
			Help:      "Total fraud reports submitted by result.",
		},
		[]string{"result"},
	)

	// RiskScores observes risk scores attached to completed transfers.
	RiskScores = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: "payfriend",
			Name:      "risk_score",
			Help:      "Risk scores (0-100) returned by the scorer for completed transfers.",
			Buckets:   []float64{10, 20, 30, 40, 50, 60, 70, 80, 90, 100},
		},
	)

	// RiskScorerDuration observes latency of external scorer calls.
	RiskScorerDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: "payfriend",
			Name:      "risk_scorer_duration_seconds",
			Help:      "Latency of external risk scorer calls.",
			Buckets:   prometheus.DefBuckets,
		},
	)

	// ActiveWebSocketClients tracks connected transfer-feed clients.
	ActiveWebSocketClients = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "payfriend",
			Name:      "active_websocket_clients",
			Help:      "Number of currently connected WebSocket clients.",
		},
	)

	// DBOpenConnections tracks open database connections.
	DBOpenConnections = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: "payfriend", Name: "db_open_connections",
		Help: "Number of open database connections.",
	})
	// DBIdleConnections tracks idle database connections.
	DBIdleConnections = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: "payfriend", Name: "db_idle_connections",
		Help: "Number of idle database connections.",
	})
	// DBInUseConnections tracks in-use database connections.
	DBInUseConnections = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: "payfriend", Name: "db_in_use_connections",
		Help: "Number of in-use database connections.",
	})
	// GoroutineCount tracks the current number of goroutines.
	GoroutineCount = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: "payfriend", Name: "goroutines",
		Help: "Current number of goroutines.",
	})
)

func init() {
	prometheus.MustRegister(
		HTTPRequestsTotal,
		HTTPRequestDuration,
		TransfersTotal,
		FraudWarningsTotal,
		FraudReportsTotal,
		RiskScores,
		RiskScorerDuration,
		ActiveWebSocketClients,
		DBOpenConnections,
		DBIdleConnections,
		DBInUseConnections,
		GoroutineCount,
	)
}

// StartDBStatsCollector periodically samples sql.DBStats and runtime goroutine
// count into Prometheus gauges. Call in a goroutine; exits when ctx is done.
func StartDBStatsCollector(ctx context.Context, db *sql.DB, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			stats := db.Stats()
			DBOpenConnections.Set(float64(stats.OpenConnections))
			DBIdleConnections.Set(float64(stats.Idle))
			DBInUseConnections.Set(float64(stats.InUse))
			GoroutineCount.Set(float64(runtime.NumGoroutine()))
		}
	}
}

// Middleware returns a gin middleware that records request metrics.
func Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		timer := prometheus.NewTimer(HTTPRequestDuration.WithLabelValues(
			c.Request.Method,
			c.FullPath(), // Uses route pattern, not actual path (avoids cardinality explosion)
		))

		c.Next()

		timer.ObserveDuration()
		HTTPRequestsTotal.WithLabelValues(
			c.Request.Method,
			c.FullPath(),
			statusBucket(c.Writer.Status()),
		).Inc()
	}
}

// Handler returns the Prometheus metrics HTTP handler for /metrics endpoint.
func Handler() gin.HandlerFunc {
	h := promhttp.Handler()
	return func(c *gin.Context) {
		h.ServeHTTP(c.Writer, c.Request)
	}
}

// statusBucket groups HTTP status codes into buckets (2xx, 3xx, 4xx, 5xx).
func statusBucket(code int) string {
	switch {
	case code < 200:
		return "1xx"
	case code < 300:
		return "2xx"
	case code < 400:
		return "3xx"
	case code < 500:
		return "4xx"
	default:
		return "5xx"
	}
}
