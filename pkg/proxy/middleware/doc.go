// Package middleware provides the HTTP middleware in front of the relay and
// health endpoints.
//
//   - RequestIDMiddleware: assigns X-Request-ID and stores it in the logging
//     context
//   - LoggingMiddleware: one structured log entry per request; its
//     response writer supports hijacking so WebSocket upgrades pass through
//   - RecoveryMiddleware: turns handler panics into a 500 with an INTERNAL
//     error body
//
// The server applies them outermost first:
//
//	handler = middleware.RecoveryMiddleware(
//	    middleware.RequestIDMiddleware(
//	        middleware.LoggingMiddleware(mux)))
package middleware
