package middleware

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/httprate"
)

// RateLimit caps order creation per client IP. Only the order route is
// throttled; callbacks and webhooks must never be, since gateways drop
// or delay retries when deliveries bounce.
func RateLimit(requestsPerMinute int) func(http.Handler) http.Handler {
	return httprate.Limit(
		requestsPerMinute,
		time.Minute,
		httprate.WithKeyFuncs(httprate.KeyByIP),
		httprate.WithLimitHandler(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusTooManyRequests)
			json.NewEncoder(w).Encode(struct {
				Error string `json:"error"`
				Code  string `json:"code"`
			}{Error: "rate limit exceeded", Code: "rate_limited"})
		}),
	)
}
