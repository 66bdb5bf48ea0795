package middleware

import (
	"context"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/99minutos/auth-service/internal/core/domain"
	"github.com/99minutos/auth-service/internal/core/ports"
)

type ctxKey int

const (
	identityKey ctxKey = iota
	accessTokenKey
)

// Echo context keys set by Auth.
const (
	UserIDKey   = "user_id"
	UsernameKey = "username"
)

// Auth authenticates the Authorization header and injects the identity into
// the request context. Failures are returned to the central error handler.
func Auth(authService ports.AuthService) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			req := c.Request()
			header := req.Header.Get(echo.HeaderAuthorization)

			identity, err := authService.Authenticate(req.Context(), header)
			if err != nil {
				return err
			}

			ctx := WithIdentity(req.Context(), identity)
			if fields := strings.Fields(header); len(fields) >= 2 {
				ctx = context.WithValue(ctx, accessTokenKey, fields[1])
			}
			c.SetRequest(req.WithContext(ctx))
			c.Set(UserIDKey, identity.ID)
			c.Set(UsernameKey, identity.Username)

			return next(c)
		}
	}
}

// WithIdentity returns a copy of ctx carrying the authenticated identity.
func WithIdentity(ctx context.Context, identity *domain.UserIdentity) context.Context {
	return context.WithValue(ctx, identityKey, identity)
}

// IdentityFromContext returns the identity stored by Auth.
func IdentityFromContext(ctx context.Context) (*domain.UserIdentity, bool) {
	identity, ok := ctx.Value(identityKey).(*domain.UserIdentity)
	return identity, ok && identity != nil
}

// AccessTokenFromContext returns the raw bearer token of an authenticated
// request.
func AccessTokenFromContext(ctx context.Context) (string, bool) {
	token, ok := ctx.Value(accessTokenKey).(string)
	return token, ok && token != ""
}
