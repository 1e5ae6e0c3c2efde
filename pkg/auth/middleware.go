package auth

import (
	"context"
	"encoding/json"
	"net/http"

	"go.uber.org/zap"
)

// Middleware provides HTTP authentication middleware.
type Middleware struct {
	authService AuthService
	enabled     bool
	logger      *zap.Logger
}

// NewMiddleware creates a new auth middleware. When enabled is false every
// request passes through without claims, which is the local development mode.
func NewMiddleware(authService AuthService, enabled bool, logger *zap.Logger) *Middleware {
	return &Middleware{
		authService: authService,
		enabled:     enabled,
		logger:      logger,
	}
}

// RequireAuth validates the JWT and sets claims and token in context for
// downstream handlers.
func (m *Middleware) RequireAuth(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if !m.enabled {
			next(w, r)
			return
		}

		claims, token, err := m.authService.ValidateRequest(r)
		if err != nil {
			m.logger.Debug("Rejected unauthenticated request",
				zap.String("path", r.URL.Path),
				zap.Error(err))
			m.unauthorized(w, "Authentication required")
			return
		}

		ctx := context.WithValue(r.Context(), ClaimsKey, claims)
		ctx = context.WithValue(ctx, TokenKey, token)
		next(w, r.WithContext(ctx))
	}
}

// unauthorized returns a 401 response with JSON error body.
func (m *Middleware) unauthorized(w http.ResponseWriter, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusUnauthorized)
	_ = json.NewEncoder(w).Encode(map[string]any{
		"success": false,
		"error":   "unauthorized",
		"message": message,
	})
}
