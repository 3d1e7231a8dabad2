package metrics

import (
	"context"
	"database/sql"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "aspform"

var (
	// HTTP
	requestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "HTTP requests by chi route pattern and status",
		},
		[]string{"method", "route", "status_code"},
	)

	requestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "HTTP request latency",
			Buckets:   []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5},
		},
		[]string{"method", "route"},
	)

	// Postgres pool, only sampled when the postgres store is selected
	dbConnections = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "db",
			Name:      "connections",
			Help:      "Open Postgres connections by state",
		},
		[]string{"state"}, // in_use, idle
	)

	// Consent flow
	accessResolutionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "consent",
			Name:      "access_resolutions_total",
			Help:      "Access checks by outcome",
		},
		[]string{"result"}, // ok or an error code
	)

	submissionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "consent",
			Name:      "submissions_total",
			Help:      "Consent submissions by outcome",
		},
		[]string{"result"},
	)

	fingerprintAuditsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "consent",
			Name:      "fingerprint_audits_total",
			Help:      "Stored submissions re-verified by the audit subscriber",
		},
		[]string{"status"}, // match, mismatch
	)

	// Admin
	authAttemptsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "admin",
			Name:      "auth_attempts_total",
			Help:      "Admin login attempts",
		},
		[]string{"status"}, // success, failure
	)
)

// PrometheusMiddleware counts and times requests under their chi route
// pattern, so /api/p/plan-a and /api/p/plan-b share one series.
func PrometheusMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/metrics" {
			next.ServeHTTP(w, r)
			return
		}

		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)

		status := ww.Status()
		if status == 0 {
			status = http.StatusOK
		}
		route := "unmatched"
		if rctx := chi.RouteContext(r.Context()); rctx != nil && rctx.RoutePattern() != "" {
			route = rctx.RoutePattern()
		}

		requestsTotal.WithLabelValues(r.Method, route, strconv.Itoa(status)).Inc()
		requestDuration.WithLabelValues(r.Method, route).Observe(time.Since(start).Seconds())
	})
}

func RecordAccessResolution(result string) {
	accessResolutionsTotal.WithLabelValues(result).Inc()
}

func RecordSubmission(result string) {
	submissionsTotal.WithLabelValues(result).Inc()
}

func RecordFingerprintAudit(match bool) {
	status := "mismatch"
	if match {
		status = "match"
	}
	fingerprintAuditsTotal.WithLabelValues(status).Inc()
}

func RecordAuthAttempt(success bool) {
	status := "failure"
	if success {
		status = "success"
	}
	authAttemptsTotal.WithLabelValues(status).Inc()
}

// RecordDBStats publishes one pool snapshot.
func RecordDBStats(s sql.DBStats) {
	dbConnections.WithLabelValues("in_use").Set(float64(s.InUse))
	dbConnections.WithLabelValues("idle").Set(float64(s.Idle))
}

// WatchDBStats samples pool stats every interval until ctx is done.
func WatchDBStats(ctx context.Context, db *sql.DB, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			RecordDBStats(db.Stats())
		}
	}
}
