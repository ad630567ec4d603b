package middleware

import (
	"net/http"
	"strconv"
	"time"

	"github.com/josh-kwaku/order-replay/internal/metrics"
)

// Metrics counts requests per route pattern, so order ids do not explode label
// cardinality. Unmatched requests are reported as "unmatched".
func Metrics(m *metrics.Metrics) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
			next.ServeHTTP(rec, r)

			route := r.Pattern
			if route == "" {
				route = "unmatched"
			}
			m.HTTPRequests.WithLabelValues(route, strconv.Itoa(rec.status)).Inc()
			m.HTTPLatencyMS.WithLabelValues(route).Observe(float64(time.Since(start).Milliseconds()))
		})
	}
}
