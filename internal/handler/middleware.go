package handler

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5/middleware"
	"golang.org/x/time/rate"

	"github.com/shopbot-dev/shopbot/pkg/observability"
)

// Metrics records request counts and latency per route.
func Metrics(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		next.ServeHTTP(ww, r)
		observability.RecordHTTPRequest(r.Method, r.URL.Path, strconv.Itoa(ww.Status()), time.Since(start))
	})
}

// RateLimit rejects requests with 429 once the shared token bucket is
// exhausted. One bucket covers the whole API; the bot's remote-model
// budget is the scarce resource, not per-client fairness.
func RateLimit(limit rate.Limit, burst int) func(http.Handler) http.Handler {
	limiter := rate.NewLimiter(limit, burst)
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !limiter.Allow() {
				respondError(w, http.StatusTooManyRequests, "rate limit exceeded")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
