package authlib

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/require"
)

var testConfig = Config{Secret: "secret", Issuer: "timesheet.test"}

func sign(t *testing.T, claims jwt.MapClaims, secret string) string {
	t.Helper()
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
	require.NoError(t, err)
	return token
}

func TestParseNormalizesClaims(t *testing.T) {
	token := sign(t, jwt.MapClaims{
		"sub":    "42",
		"iss":    testConfig.Issuer,
		"exp":    time.Now().Add(time.Hour).Unix(),
		"role":   " Admin ",
		"scopes": "reports:read  shifts:read",
	}, testConfig.Secret)

	claims, err := Parse(token, testConfig)
	require.NoError(t, err)
	require.Equal(t, "42", claims.Subject)
	require.Equal(t, "admin", claims.Role)
	require.True(t, claims.HasScope("reports:read"))
	require.True(t, claims.HasScope("shifts:read"))
	require.False(t, claims.HasScope("catalog:write"))
}

func TestParseRejectsBadTokens(t *testing.T) {
	cases := map[string]string{
		"empty":      "",
		"wrong key":  sign(t, jwt.MapClaims{"sub": "1", "iss": testConfig.Issuer, "exp": time.Now().Add(time.Hour).Unix()}, "other"),
		"wrong iss":  sign(t, jwt.MapClaims{"sub": "1", "iss": "elsewhere", "exp": time.Now().Add(time.Hour).Unix()}, testConfig.Secret),
		"expired":    sign(t, jwt.MapClaims{"sub": "1", "iss": testConfig.Issuer, "exp": time.Now().Add(-time.Hour).Unix()}, testConfig.Secret),
		"no subject": sign(t, jwt.MapClaims{"iss": testConfig.Issuer, "exp": time.Now().Add(time.Hour).Unix()}, testConfig.Secret),
		"no expiry":  sign(t, jwt.MapClaims{"sub": "1", "iss": testConfig.Issuer}, testConfig.Secret),
	}
	for name, token := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := Parse(token, testConfig)
			require.Error(t, err)
		})
	}
}

func TestMiddlewareStoresClaims(t *testing.T) {
	var seen *Claims
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen, _ = FromContext(r.Context())
	})
	handler := NewAuthenticator(testConfig, Public("/healthz")).Wrap(next)

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/reports", nil))
	require.Equal(t, http.StatusUnauthorized, rec.Code)
	require.Equal(t, `Bearer realm="timesheet"`, rec.Header().Get("WWW-Authenticate"))

	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	require.Nil(t, seen)

	token := sign(t, jwt.MapClaims{"sub": "7", "iss": testConfig.Issuer, "exp": time.Now().Add(time.Hour).Unix()}, testConfig.Secret)
	req := httptest.NewRequest(http.MethodGet, "/reports", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)
	require.NotNil(t, seen)
	require.Equal(t, "7", seen.Subject)
}

func TestAuthenticatorChallengesInvalidTokens(t *testing.T) {
	handler := NewAuthenticator(testConfig).Wrap(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
		t.Fatal("handler reached without valid claims")
	}))

	for _, header := range []string{"Basic dXNlcjpwYXNz", "Bearer not-a-jwt", "Bearer"} {
		req := httptest.NewRequest(http.MethodGet, "/reports", nil)
		req.Header.Set("Authorization", header)
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)
		require.Equal(t, http.StatusUnauthorized, rec.Code, header)
		require.Contains(t, rec.Header().Get("WWW-Authenticate"), `error="invalid_token"`, header)
	}
}

func TestAuthenticatorRunsEnrichHooks(t *testing.T) {
	a := NewAuthenticator(testConfig, Enrich(func(c *Claims) {
		c.Scopes["reports:request"] = struct{}{}
	}))
	token := sign(t, jwt.MapClaims{"sub": "3", "iss": testConfig.Issuer, "exp": time.Now().Add(time.Hour).Unix()}, testConfig.Secret)
	req := httptest.NewRequest(http.MethodGet, "/reports", nil)
	req.Header.Set("Authorization", "bearer "+token)

	claims, err := a.Authenticate(req)
	require.NoError(t, err)
	require.True(t, claims.HasScope("reports:request"))
}

func TestFromContextTreatsNilClaimsAsAbsent(t *testing.T) {
	_, ok := FromContext(WithClaims(context.Background(), nil))
	require.False(t, ok)
}
