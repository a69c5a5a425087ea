package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"runner-service/internal/apperr"
)

var (
	// OperationDuration tracks service operation latency by outcome code.
	OperationDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "runner_operation_duration_seconds",
			Help:    "Duration of service operations in seconds",
			Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5},
		},
		[]string{"operation", "code"},
	)

	// TokenTransitions counts reward tokens entering each state.
	TokenTransitions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "runner_token_transitions_total",
			Help: "Reward tokens generated, claimed and redeemed",
		},
		[]string{"transition"},
	)

	// RateLimited counts requests rejected by the per-IP limiter.
	RateLimited = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "runner_rate_limited_total",
			Help: "Requests rejected by the rate limiter",
		},
		[]string{"path"},
	)

	// HTTPRequestDuration tracks handler latency by route pattern.
	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "runner_http_request_duration_seconds",
			Help:    "Duration of HTTP requests in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "route", "status"},
	)
)

// RecordOperation records the duration of an operation and its outcome code.
func RecordOperation(op string, err error, started time.Time) {
	code := "OK"
	if err != nil {
		code = apperr.CodeOf(err).String()
	}
	OperationDuration.WithLabelValues(op, code).Observe(time.Since(started).Seconds())
}

// ObserveOperation is RecordOperation for use with defer and a named error result.
func ObserveOperation(op string, started time.Time, errp *error) {
	var err error
	if errp != nil {
		err = *errp
	}
	RecordOperation(op, err, started)
}

// RecordTokens adds n to the given transition counter.
func RecordTokens(transition string, n int) {
	TokenTransitions.WithLabelValues(transition).Add(float64(n))
}

// Middleware observes request durations labelled by chi route pattern.
func Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)

		status := ww.Status()
		if status == 0 {
			status = http.StatusOK
		}
		route := "unmatched"
		if rctx := chi.RouteContext(r.Context()); rctx != nil {
			if p := rctx.RoutePattern(); p != "" {
				route = p
			}
		}
		HTTPRequestDuration.WithLabelValues(r.Method, route, strconv.Itoa(status)).
			Observe(time.Since(start).Seconds())
	})
}
