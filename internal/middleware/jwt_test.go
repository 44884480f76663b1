package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bookhaven/bookstore-api/internal/utils"
)

const testSecret = "unit-test-secret"

func doRequest(t *testing.T, mw echo.MiddlewareFunc, authHeader string) (*httptest.ResponseRecorder, echo.Context) {
	t.Helper()
	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/v1/orders", nil)
	if authHeader != "" {
		req.Header.Set("Authorization", authHeader)
	}
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	handler := mw(func(c echo.Context) error {
		return c.String(http.StatusOK, "passed")
	})
	require.NoError(t, handler(c))
	return rec, c
}

func TestJWTAuthMissingHeader(t *testing.T) {
	rec, _ := doRequest(t, JWTAuth(testSecret), "")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestJWTAuthMalformedHeader(t *testing.T) {
	rec, _ := doRequest(t, JWTAuth(testSecret), "Token abc123")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestJWTAuthGarbageToken(t *testing.T) {
	rec, _ := doRequest(t, JWTAuth(testSecret), "Bearer not.a.jwt")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestJWTAuthWrongSecret(t *testing.T) {
	at, err := utils.NewAccessToken("other-secret", 7, "USER", 15)
	require.NoError(t, err)
	rec, _ := doRequest(t, JWTAuth(testSecret), "Bearer "+at.Token)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestJWTAuthValidTokenSetsClaims(t *testing.T) {
	at, err := utils.NewAccessToken(testSecret, 7, "ADMIN", 15)
	require.NoError(t, err)
	rec, c := doRequest(t, JWTAuth(testSecret), "Bearer "+at.Token)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "passed", rec.Body.String())
	// Numeric JWT claims decode as float64.
	assert.Equal(t, float64(7), c.Get("user_id"))
	assert.Equal(t, "ADMIN", c.Get("role"))
}

func TestRequireRole(t *testing.T) {
	tests := []struct {
		name     string
		role     interface{}
		allowed  []string
		wantCode int
	}{
		{"admin allowed", "ADMIN", []string{"ADMIN"}, http.StatusOK},
		{"user rejected on admin route", "USER", []string{"ADMIN"}, http.StatusForbidden},
		{"one of several roles", "USER", []string{"ADMIN", "USER"}, http.StatusOK},
		{"missing role", nil, []string{"ADMIN"}, http.StatusForbidden},
		{"non-string role", 12, []string{"ADMIN"}, http.StatusForbidden},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			e := echo.New()
			req := httptest.NewRequest(http.MethodGet, "/v1/admin/stats", nil)
			rec := httptest.NewRecorder()
			c := e.NewContext(req, rec)
			if tc.role != nil {
				c.Set("role", tc.role)
			}
			handler := RequireRole(tc.allowed...)(func(c echo.Context) error {
				return c.NoContent(http.StatusOK)
			})
			require.NoError(t, handler(c))
			assert.Equal(t, tc.wantCode, rec.Code)
		})
	}
}
