package handler

import (
	"github.com/labstack/echo/v4"

	"github.com/99minutos/auth-service/internal/api/middleware"
	"github.com/99minutos/auth-service/internal/core/domain"
)

// currentIdentity returns the identity and raw access token injected by the
// Auth middleware. A route mounted without the middleware gets
// ErrTokenMissing.
func currentIdentity(c echo.Context) (*domain.UserIdentity, string, error) {
	ctx := c.Request().Context()
	identity, ok := middleware.IdentityFromContext(ctx)
	if !ok {
		return nil, "", domain.ErrTokenMissing
	}
	token, _ := middleware.AccessTokenFromContext(ctx)
	return identity, token, nil
}
