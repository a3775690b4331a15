package httpmw

import (
	"net/http"

	"golang.org/x/time/rate"
)

// RateLimit enforces a single token-bucket limit shared by every
// request the server handles. archivecore's /rewrite endpoint does
// enough CPU-bound parsing per call that an unbounded caller can
// starve others, so serve always wraps its router with one of these.
func RateLimit(limiter *rate.Limiter, dropped func()) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !limiter.Allow() {
				if dropped != nil {
					dropped()
				}
				http.Error(w, "rate limit exceeded", http.StatusTooManyRequests)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
