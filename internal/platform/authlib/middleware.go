package authlib

import (
	"errors"
	"net/http"
	"strings"
)

// Option configures an Authenticator.
type Option func(*Authenticator)

// Public lists request paths served without a token.
func Public(paths ...string) Option {
	return func(a *Authenticator) {
		for _, p := range paths {
			a.public[p] = struct{}{}
		}
	}
}

// Enrich registers a hook run on every validated claim set before the
// request continues, e.g. to expand a role into scopes.
func Enrich(fn func(*Claims)) Option {
	return func(a *Authenticator) {
		a.enrich = append(a.enrich, fn)
	}
}

// Authenticator guards HTTP handlers with bearer-token validation.
type Authenticator struct {
	cfg    Config
	public map[string]struct{}
	enrich []func(*Claims)
}

// NewAuthenticator builds an Authenticator for tokens signed per cfg.
func NewAuthenticator(cfg Config, opts ...Option) *Authenticator {
	a := &Authenticator{cfg: cfg, public: make(map[string]struct{})}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Wrap rejects requests without valid claims and stores the claims on the
// request context for next.
func (a *Authenticator) Wrap(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if _, ok := a.public[r.URL.Path]; ok {
			next.ServeHTTP(w, r)
			return
		}
		claims, err := a.Authenticate(r)
		if err != nil {
			challenge := `Bearer realm="timesheet"`
			if !errors.Is(err, ErrMissingToken) {
				challenge += `, error="invalid_token"`
			}
			w.Header().Set("WWW-Authenticate", challenge)
			http.Error(w, err.Error(), http.StatusUnauthorized)
			return
		}
		next.ServeHTTP(w, r.WithContext(WithClaims(r.Context(), claims)))
	})
}

// Authenticate validates the request's Authorization header.
func (a *Authenticator) Authenticate(r *http.Request) (*Claims, error) {
	header := r.Header.Get("Authorization")
	if header == "" {
		return nil, ErrMissingToken
	}
	scheme, token, ok := strings.Cut(header, " ")
	if !ok || !strings.EqualFold(scheme, "bearer") {
		return nil, ErrInvalidToken
	}
	claims, err := Parse(token, a.cfg)
	if err != nil {
		return nil, err
	}
	for _, fn := range a.enrich {
		fn(claims)
	}
	return claims, nil
}
