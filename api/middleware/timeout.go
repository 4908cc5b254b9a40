package middleware

import (
	"context"
	"net/http"
	"strings"
	"time"
)

const requestTimeoutHeader = "X-Request-Timeout"

// Timeout bounds the request context. Callers may ask for a shorter deadline
// with X-Request-Timeout (a Go duration such as "1500ms"); values above max
// or unparsable values fall back to max.
func Timeout(max time.Duration) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		if max <= 0 {
			return next
		}
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			timeout := max
			if raw := strings.TrimSpace(r.Header.Get(requestTimeoutHeader)); raw != "" {
				if d, err := time.ParseDuration(raw); err == nil && d > 0 && d < max {
					timeout = d
				}
			}
			ctx, cancel := context.WithTimeout(r.Context(), timeout)
			defer cancel()
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
