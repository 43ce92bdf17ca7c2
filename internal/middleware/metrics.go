package middleware

import (
	"net/http"
	"time"

	"github.com/ZenBillingApp/zenbilling/internal/logger"
	"github.com/ZenBillingApp/zenbilling/internal/metrics"
)

// Metrics records request counts and latency by matched route pattern. It
// must wrap the ServeMux without an intermediate request copy, or the
// pattern is lost.
func Metrics(m *metrics.Metrics) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			rec := logger.NewStatusRecorder(w)
			next.ServeHTTP(rec, r)
			route := r.Pattern
			if route == "" {
				route = "unmatched"
			}
			m.ObserveRequest(route, r.Method, rec.Status, time.Since(start))
		})
	}
}
