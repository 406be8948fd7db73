package auth

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/require"
)

var cfg = Config{Secret: "secret", Issuer: "timesheet.test"}

func token(t *testing.T, sub, role string) string {
	t.Helper()
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub": sub, "iss": cfg.Issuer, "role": role, "exp": time.Now().Add(time.Hour).Unix(),
	}).SignedString([]byte(cfg.Secret))
	require.NoError(t, err)
	return signed
}

func TestParseClaimsExpandsRole(t *testing.T) {
	claims, err := ParseClaims(token(t, "5", "master"), cfg)
	require.NoError(t, err)
	require.True(t, claims.HasScope(ScopeShiftsWrite))
	require.False(t, claims.HasScope(ScopeReportsRead))

	id, err := UserID(claims)
	require.NoError(t, err)
	require.Equal(t, int64(5), id)
}

func TestUserIDRejectsNonNumericSubject(t *testing.T) {
	_, err := UserID(&Claims{Subject: "svc-reporter"})
	require.Error(t, err)
	_, err = UserID(nil)
	require.Error(t, err)
}

func TestMiddlewareGrantsRoleScopes(t *testing.T) {
	var granted bool
	h := NewMiddleware(cfg).Wrap(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		claims, _ := FromContext(r.Context())
		granted = claims.HasScope(ScopeReportsRequest)
	}))

	req := httptest.NewRequest(http.MethodPost, "/report-requests", nil)
	req.Header.Set("Authorization", "Bearer "+token(t, "1", "admin"))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)
	require.True(t, granted)

	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, rec.Code)
}
