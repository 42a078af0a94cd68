package middleware

import (
	"fmt"
	"net/http"
	"runtime"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"
)

// Recovery returns middleware that converts panics into 500 responses and
// logs the stack.
func Recovery(log zerolog.Logger) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) (err error) {
			defer func() {
				if r := recover(); r != nil {
					if r == http.ErrAbortHandler {
						panic(r)
					}
					stack := make([]byte, 4<<10)
					stack = stack[:runtime.Stack(stack, false)]
					log.Error().
						Interface("panic", r).
						Bytes("stack", stack).
						Str("path", c.Request().URL.Path).
						Msg("panic recovered")
					err = echo.NewHTTPError(http.StatusInternalServerError, fmt.Sprintf("%v", r))
				}
			}()
			return next(c)
		}
	}
}
