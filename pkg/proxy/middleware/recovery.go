package middleware

import (
	"encoding/json"
	"net/http"
	"runtime/debug"

	"yiyi-hq/gateway/pkg/chat"
	"yiyi-hq/gateway/pkg/telemetry/logging"
)

// RecoveryMiddleware recovers from panics in HTTP handlers and answers 500
// with an INTERNAL error body. The panic and its stack are logged; neither
// is sent to the client.
//
// Example usage:
//
//	handler = RecoveryMiddleware(handler)
func RecoveryMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if err := recover(); err != nil {
				logging.FromContext(r.Context()).ErrorContext(r.Context(), "panic in handler",
					"error", err,
					"method", r.Method,
					"path", r.URL.Path,
					"stack", string(debug.Stack()),
				)

				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(http.StatusInternalServerError)
				_ = json.NewEncoder(w).Encode(map[string]*chat.ErrorPayload{
					"error": {Code: chat.CodeInternal, Message: "An internal error occurred. Please try again later."},
				})
			}
		}()

		next.ServeHTTP(w, r)
	})
}
