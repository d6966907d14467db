package middleware

import (
	"crypto/subtle"
	"net/http"
	"strings"
)

// Auth validates requests against a static API key, taken from either an
// Authorization Bearer token or the X-API-Key header. An empty key disables
// the check entirely.
func Auth(apiKey string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		if apiKey == "" {
			return next
		}
		want := []byte(apiKey)

		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			got := requestKey(r)
			if got == "" {
				writeJSONError(w, http.StatusUnauthorized, "missing api key")
				return
			}
			// Constant-time compare; the key is a shared secret.
			if subtle.ConstantTimeCompare([]byte(got), want) != 1 {
				writeJSONError(w, http.StatusUnauthorized, "invalid api key")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// requestKey pulls the presented key from the Bearer scheme or the
// X-API-Key header.
func requestKey(r *http.Request) string {
	if auth := r.Header.Get("Authorization"); auth != "" {
		if scheme, token, ok := strings.Cut(auth, " "); ok && strings.EqualFold(scheme, "Bearer") {
			return strings.TrimSpace(token)
		}
	}
	return strings.TrimSpace(r.Header.Get("X-API-Key"))
}
