package auth

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"
)

// RequireRole returns middleware that rejects requests whose subject holds
// none of the given roles. The admin role passes every check.
func RequireRole(roles ...string) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			userRoles := RolesFromContext(c.Request().Context())
			for _, required := range roles {
				for _, has := range userRoles {
					if has == required || has == "admin" {
						return next(c)
					}
				}
			}
			return echo.NewHTTPError(http.StatusForbidden,
				fmt.Sprintf("required role: %s", strings.Join(roles, " or ")))
		}
	}
}
