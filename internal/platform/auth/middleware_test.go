package auth

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/labstack/echo/v4"
)

const testSecret = "test-secret"

func signToken(t *testing.T, claims Claims) string {
	t.Helper()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString([]byte(testSecret))
	if err != nil {
		t.Fatalf("sign token: %v", err)
	}
	return signed
}

func doRequest(t *testing.T, mw echo.MiddlewareFunc, authHeader string) (*httptest.ResponseRecorder, echo.Context) {
	t.Helper()
	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	if authHeader != "" {
		req.Header.Set("Authorization", authHeader)
	}
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	handler := mw(func(c echo.Context) error {
		return c.NoContent(http.StatusOK)
	})
	if err := handler(c); err != nil {
		e.HTTPErrorHandler(err, c)
	}
	return rec, c
}

func TestJWTMiddlewareValidToken(t *testing.T) {
	claims := Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   "user-1",
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
		Roles: []string{"physician"},
	}
	mw := JWTMiddleware(Config{Secret: testSecret})

	rec, c := doRequest(t, mw, "Bearer "+signToken(t, claims))
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if got := UserIDFromContext(c.Request().Context()); got != "user-1" {
		t.Errorf("expected subject user-1 in context, got %q", got)
	}
	roles := RolesFromContext(c.Request().Context())
	if len(roles) != 1 || roles[0] != "physician" {
		t.Errorf("expected roles [physician], got %v", roles)
	}
}

func TestJWTMiddlewareMissingHeader(t *testing.T) {
	mw := JWTMiddleware(Config{Secret: testSecret})
	rec, _ := doRequest(t, mw, "")
	if rec.Code != http.StatusUnauthorized {
		t.Errorf("expected 401, got %d", rec.Code)
	}
}

func TestJWTMiddlewareBadSignature(t *testing.T) {
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
	})
	signed, err := token.SignedString([]byte("wrong-secret"))
	if err != nil {
		t.Fatalf("sign token: %v", err)
	}

	mw := JWTMiddleware(Config{Secret: testSecret})
	rec, _ := doRequest(t, mw, "Bearer "+signed)
	if rec.Code != http.StatusUnauthorized {
		t.Errorf("expected 401, got %d", rec.Code)
	}
}

func TestJWTMiddlewareExpiredToken(t *testing.T) {
	claims := Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(-time.Hour)),
		},
	}
	mw := JWTMiddleware(Config{Secret: testSecret})
	rec, _ := doRequest(t, mw, "Bearer "+signToken(t, claims))
	if rec.Code != http.StatusUnauthorized {
		t.Errorf("expected 401, got %d", rec.Code)
	}
}

func TestDevAuthMiddleware(t *testing.T) {
	rec, c := doRequest(t, DevAuthMiddleware(), "")
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	roles := RolesFromContext(c.Request().Context())
	if len(roles) != 1 || roles[0] != "admin" {
		t.Errorf("expected admin role, got %v", roles)
	}
}
