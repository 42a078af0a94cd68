// Package auth provides JWT bearer-token authentication and role checks.
package auth

import (
	"context"
	"net/http"
	"strings"

	"github.com/golang-jwt/jwt/v5"
	"github.com/labstack/echo/v4"
)

type contextKey string

const (
	// UserIDKey is the context key holding the authenticated subject.
	UserIDKey contextKey = "user_id"
	// UserRolesKey is the context key holding the subject's roles.
	UserRolesKey contextKey = "user_roles"
)

// Claims are the token claims this service understands.
type Claims struct {
	jwt.RegisteredClaims
	Roles []string `json:"roles"`
}

// Config controls token verification. When JWKSURL is set, tokens are
// verified against the issuer's published keys; otherwise Secret is used
// with HMAC, which is only acceptable in development.
type Config struct {
	Secret   string
	JWKSURL  string
	Issuer   string
	Audience string
}

// JWTMiddleware returns middleware that authenticates requests with a
// bearer token and stores the subject and roles in the request context.
func JWTMiddleware(cfg Config) echo.MiddlewareFunc {
	var jwks *JWKSCache
	if cfg.JWKSURL != "" {
		jwks = NewJWKSCache(cfg.JWKSURL)
	}

	keyfunc := func(token *jwt.Token) (interface{}, error) {
		if jwks != nil {
			return jwks.Keyfunc(token)
		}
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, jwt.ErrSignatureInvalid
		}
		return []byte(cfg.Secret), nil
	}

	opts := []jwt.ParserOption{jwt.WithValidMethods([]string{"HS256", "RS256"})}
	if cfg.Issuer != "" {
		opts = append(opts, jwt.WithIssuer(cfg.Issuer))
	}
	if cfg.Audience != "" {
		opts = append(opts, jwt.WithAudience(cfg.Audience))
	}

	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			raw, err := extractBearer(c.Request())
			if err != nil {
				return echo.NewHTTPError(http.StatusUnauthorized, err.Error())
			}

			claims := &Claims{}
			token, err := jwt.ParseWithClaims(raw, claims, keyfunc, opts...)
			if err != nil || !token.Valid {
				return echo.NewHTTPError(http.StatusUnauthorized, "invalid token")
			}

			ctx := c.Request().Context()
			ctx = context.WithValue(ctx, UserIDKey, claims.Subject)
			ctx = context.WithValue(ctx, UserRolesKey, claims.Roles)
			c.SetRequest(c.Request().WithContext(ctx))
			return next(c)
		}
	}
}

// DevAuthMiddleware authenticates every request as an admin. Development
// only; never wired when the environment is production.
func DevAuthMiddleware() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			ctx := c.Request().Context()
			ctx = context.WithValue(ctx, UserIDKey, "dev-user")
			ctx = context.WithValue(ctx, UserRolesKey, []string{"admin"})
			c.SetRequest(c.Request().WithContext(ctx))
			return next(c)
		}
	}
}

func extractBearer(r *http.Request) (string, error) {
	header := r.Header.Get("Authorization")
	if header == "" {
		return "", echo.NewHTTPError(http.StatusUnauthorized, "missing authorization header")
	}
	parts := strings.SplitN(header, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return "", echo.NewHTTPError(http.StatusUnauthorized, "malformed authorization header")
	}
	return parts[1], nil
}

// UserIDFromContext returns the authenticated subject, if any.
func UserIDFromContext(ctx context.Context) string {
	id, _ := ctx.Value(UserIDKey).(string)
	return id
}

// RolesFromContext returns the authenticated subject's roles.
func RolesFromContext(ctx context.Context) []string {
	roles, _ := ctx.Value(UserRolesKey).([]string)
	return roles
}
