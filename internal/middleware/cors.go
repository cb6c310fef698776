// Package middleware provides the HTTP middleware of the back office API:
// CORS, request logging, body limits, security headers, rate limiting,
// bearer authentication and idempotent POSTs.
package middleware

import (
	"net/http"

	"github.com/rs/cors"
)

// NewCORSHandler returns a middleware that applies CORS headers based on allowedOrigins.
// Each entry in allowedOrigins must be a full origin (scheme + host, no trailing slash).
// PATCH is needed for state changes, Authorization for the bearer token and
// Idempotency-Key for safe POST retries from the browser.
func NewCORSHandler(allowedOrigins []string) func(http.Handler) http.Handler {
	c := cors.New(cors.Options{
		AllowedOrigins: allowedOrigins,
		AllowedMethods: []string{
			http.MethodGet, http.MethodPost, http.MethodPut, http.MethodPatch, http.MethodDelete, http.MethodOptions,
		},
		AllowedHeaders: []string{"Content-Type", "Authorization", IdempotencyHeader},
		ExposedHeaders: []string{"X-Request-Id", "X-Total-Count"},
	})
	return func(next http.Handler) http.Handler {
		return c.Handler(next)
	}
}
