package middleware

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
)

// RequestTimeout puts a deadline on each request context. The handler runs
// on the request goroutine, so it alone owns the echo.Context; handlers
// that block must honour the context, and a deadline error they return is
// written as a 504 error envelope. The websocket endpoint is exempt.
func RequestTimeout(timeout time.Duration) echo.MiddlewareFunc {
	if timeout <= 0 {
		return func(next echo.HandlerFunc) echo.HandlerFunc { return next }
	}
	return echomw.ContextTimeoutWithConfig(echomw.ContextTimeoutConfig{
		Skipper: func(c echo.Context) bool { return isWebSocketPath(c.Request().URL.Path) },
		Timeout: timeout,
		ErrorHandler: func(err error, c echo.Context) error {
			if !errors.Is(err, context.DeadlineExceeded) {
				return err
			}
			if c.Response().Committed {
				return nil
			}
			return ErrorResponse(c, http.StatusGatewayTimeout, "request processing exceeded the allowed time limit")
		},
	})
}

func isWebSocketPath(p string) bool {
	return p == "/ws" || strings.HasPrefix(p, "/ws/")
}
