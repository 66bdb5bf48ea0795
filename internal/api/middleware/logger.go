package middleware

import (
	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"github.com/99minutos/auth-service/pkg/logger"
)

// ContextLogger attaches a child of log tagged with the request id, method
// and path to the request context. It must run after echo's RequestID
// middleware.
func ContextLogger(log zerolog.Logger) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			req := c.Request()
			id := c.Response().Header().Get(echo.HeaderXRequestID)
			if id == "" {
				id = req.Header.Get(echo.HeaderXRequestID)
			}
			scoped := logger.WithRequest(log, id, req.Method, req.URL.Path)
			c.SetRequest(req.WithContext(logger.IntoContext(req.Context(), scoped)))
			return next(c)
		}
	}
}
