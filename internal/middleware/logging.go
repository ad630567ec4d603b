package middleware

import (
	"context"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/josh-kwaku/order-replay/internal/logging"
)

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

// requestInfo is filled in by handlers deeper in the chain and read back when the
// request is logged.
type requestInfo struct {
	subject string
}

type requestInfoKey struct{}

func setRequestSubject(ctx context.Context, subject string) {
	if info, ok := ctx.Value(requestInfoKey{}).(*requestInfo); ok {
		info.subject = subject
	}
}

// Logging logs one line per request. The route and order id come from the mux
// match and the subject from Auth, so both are only known once the request has
// been served.
func Logging(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if strings.HasPrefix(r.URL.Path, "/health") || r.URL.Path == "/metrics" {
			next.ServeHTTP(w, r)
			return
		}

		start := time.Now()

		info := &requestInfo{}
		logger := slog.Default().With("request_id", TraceIDFromContext(r.Context()))
		ctx := logging.WithLogger(r.Context(), logger)
		ctx = context.WithValue(ctx, requestInfoKey{}, info)
		r = r.WithContext(ctx)

		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)

		attrs := []any{
			"method", r.Method,
			"path", r.URL.Path,
			"status", rec.status,
			"duration_ms", time.Since(start).Milliseconds(),
		}
		if r.Pattern != "" {
			attrs = append(attrs, "route", r.Pattern)
		}
		if orderID := r.PathValue("id"); orderID != "" {
			attrs = append(attrs, "order_id", orderID)
		}
		if info.subject != "" {
			attrs = append(attrs, "subject", info.subject)
		}

		if rec.status >= http.StatusInternalServerError {
			logger.Error("request completed", attrs...)
			return
		}
		logger.Info("request completed", attrs...)
	})
}
