package middleware

import (
	"net/http"
	"time"

	"github.com/whalewatch/engine/internal/domain"
)

// RateLimit caps each client IP at limit requests per window. Counting
// happens in the shared limiter, so replicas see one combined rate.
// A limiter error fails open.
func RateLimit(limiter domain.RateLimiter, limit int, window time.Duration) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			key := "ratelimit:api:" + clientIP(r)

			allowed, err := limiter.Allow(r.Context(), key, limit, window)
			if err != nil || allowed {
				next.ServeHTTP(w, r)
				return
			}

			w.Header().Set("Retry-After", "1")
			writeJSONError(w, http.StatusTooManyRequests, "rate limit exceeded")
		})
	}
}
