// Package auth adapts the shared bearer-token library to timesheet roles.
package auth

import (
	"context"
	"fmt"
	"strconv"

	"example.com/timesheet/internal/platform/authlib"
)

// Claims mirrors the shared auth claims type for service convenience.
type Claims = authlib.Claims

// Config mirrors the shared auth config.
type Config = authlib.Config

// ParseClaims validates token and expands its role into scopes.
func ParseClaims(token string, cfg Config) (*Claims, error) {
	claims, err := authlib.Parse(token, cfg)
	if err != nil {
		return nil, err
	}
	expandRole(claims)
	return claims, nil
}

// WithClaims stores the claims in the request context.
func WithClaims(ctx context.Context, claims *Claims) context.Context {
	return authlib.WithClaims(ctx, claims)
}

// FromContext retrieves claims from context.
func FromContext(ctx context.Context) (*Claims, bool) {
	return authlib.FromContext(ctx)
}

// UserID returns the acting user id carried in the subject claim.
func UserID(claims *Claims) (int64, error) {
	if claims == nil {
		return 0, authlib.ErrMissingToken
	}
	id, err := strconv.ParseInt(claims.Subject, 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("%w: subject %q is not a user id", authlib.ErrInvalidToken, claims.Subject)
	}
	return id, nil
}

func expandRole(claims *Claims) {
	if claims.Scopes == nil {
		claims.Scopes = make(map[string]struct{})
	}
	for _, scope := range ScopesForRole(claims.Role) {
		claims.Scopes[scope] = struct{}{}
	}
}
