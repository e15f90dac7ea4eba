package middleware

import (
	"net/http"

	"golang.org/x/time/rate"
)

// RateLimit serves rejected once the limiter is out of tokens. A nil limiter
// disables the check.
func RateLimit(limiter *rate.Limiter, rejected http.Handler) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		if limiter == nil {
			return next
		}
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !limiter.Allow() {
				w.Header().Set("Retry-After", "1")
				rejected.ServeHTTP(w, r)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// NewLimiter builds the limiter for rps requests per second; rps 0 means no
// limit and returns nil.
func NewLimiter(rps float64, burst int) *rate.Limiter {
	if rps <= 0 {
		return nil
	}
	return rate.NewLimiter(rate.Limit(rps), burst)
}
