// Package auth provides JWT-based authentication for datadoc-engine.
// Tokens are issued locally at login and signed with HS256.
package auth

import (
	"context"
	"fmt"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// contextKey is a custom type for context keys to avoid collisions.
type contextKey string

const (
	// ClaimsKey is the context key for storing JWT claims.
	ClaimsKey contextKey = "claims"
	// TokenKey is the context key for storing the raw JWT token string.
	TokenKey contextKey = "token"
)

// Claims represents the JWT claims issued at login.
// Subject holds the user UUID.
type Claims struct {
	jwt.RegisteredClaims
	Email    string `json:"email,omitempty"`
	UserName string `json:"uname,omitempty"`
}

// GetClaims retrieves JWT claims from the request context.
// Returns nil and false if claims are not present.
func GetClaims(ctx context.Context) (*Claims, bool) {
	claims, ok := ctx.Value(ClaimsKey).(*Claims)
	return claims, ok
}

// GetToken retrieves the raw JWT token string from the request context.
// Returns empty string and false if token is not present.
func GetToken(ctx context.Context) (string, bool) {
	token, ok := ctx.Value(TokenKey).(string)
	return token, ok
}

// GetUserIDFromContext extracts the user ID from JWT claims in the context.
// Returns uuid.Nil and false when the request is anonymous, which is the case
// for every request while verification is disabled.
func GetUserIDFromContext(ctx context.Context) (uuid.UUID, bool) {
	claims, ok := GetClaims(ctx)
	if !ok || claims == nil || claims.Subject == "" {
		return uuid.Nil, false
	}
	userID, err := uuid.Parse(claims.Subject)
	if err != nil {
		return uuid.Nil, false
	}
	return userID, true
}

// RequireUserIDFromContext is GetUserIDFromContext for callers that need a user.
func RequireUserIDFromContext(ctx context.Context) (uuid.UUID, error) {
	userID, ok := GetUserIDFromContext(ctx)
	if !ok {
		return uuid.Nil, fmt.Errorf("authentication required: no user in context")
	}
	return userID, nil
}
