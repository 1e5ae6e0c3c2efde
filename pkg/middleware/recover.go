package middleware

import (
	"encoding/json"
	"net/http"

	"go.uber.org/zap"
)

// Recover returns middleware that turns a handler panic into a 500 JSON
// response and logs it at ERROR with the stack trace.
func Recover(logger *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				rec := recover()
				if rec == nil {
					return
				}
				if rec == http.ErrAbortHandler {
					panic(rec)
				}

				logger.Error("Panic while serving request",
					zap.Any("panic", rec),
					zap.String("method", r.Method),
					zap.String("path", r.URL.Path),
					zap.Stack("stack"),
				)

				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(http.StatusInternalServerError)
				_ = json.NewEncoder(w).Encode(map[string]any{
					"success": false,
					"error":   "internal_error",
					"message": "Internal server error",
				})
			}()

			next.ServeHTTP(w, r)
		})
	}
}
