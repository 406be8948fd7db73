package auth

import (
	"net/http"

	"example.com/timesheet/internal/platform/authlib"
)

// Middleware enforces bearer-token authentication on incoming requests and
// grants the scopes of the caller's role.
type Middleware struct {
	authenticator *authlib.Authenticator
}

// NewMiddleware constructs Middleware with validation config. Health and
// metrics endpoints stay public.
func NewMiddleware(cfg Config) Middleware {
	return Middleware{authenticator: authlib.NewAuthenticator(cfg,
		authlib.Public("/healthz", "/metrics"),
		authlib.Enrich(expandRole),
	)}
}

// Wrap attaches authentication handling to an http.Handler.
func (m Middleware) Wrap(next http.Handler) http.Handler {
	return m.authenticator.Wrap(next)
}
