package api

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"github.com/99minutos/auth-service/internal/core/domain"
	"github.com/99minutos/auth-service/pkg/logger"
)

// errorResponse is the canonical error envelope for all API errors. Error is
// only set on 500 responses and never carries the underlying cause.
type errorResponse struct {
	Message string `json:"message"`
	Error   string `json:"error,omitempty"`
}

// NewHTTPErrorHandler returns an echo.HTTPErrorHandler that:
//   - Maps known domain errors to their HTTP status codes and client messages.
//   - Logs unexpected errors internally without leaking details to the client.
//   - Renders a consistent JSON envelope: {"message": "<message>"}.
func NewHTTPErrorHandler(log zerolog.Logger) echo.HTTPErrorHandler {
	return func(err error, c echo.Context) {
		if c.Response().Committed {
			return
		}

		code, resp := resolveError(err, log, c)
		if c.Request().Method == http.MethodHead {
			_ = c.NoContent(code)
			return
		}
		_ = c.JSON(code, resp)
	}
}

func resolveError(err error, log zerolog.Logger, c echo.Context) (int, errorResponse) {
	// Echo's own errors (bind failures, 404 from router, etc.)
	var he *echo.HTTPError
	if errors.As(err, &he) {
		return he.Code, errorResponse{Message: fmt.Sprintf("%v", he.Message)}
	}

	switch {
	case errors.Is(err, domain.ErrValidation):
		return http.StatusBadRequest, errorResponse{Message: "All fields are required."}
	case errors.Is(err, domain.ErrPasswordTooLong):
		return http.StatusBadRequest, errorResponse{Message: "Password must be at most 72 bytes."}
	case errors.Is(err, domain.ErrUserExists):
		return http.StatusConflict, errorResponse{Message: "Username or email already exists."}
	case errors.Is(err, domain.ErrInvalidCredentials):
		return http.StatusUnauthorized, errorResponse{Message: "Invalid email or password."}
	case errors.Is(err, domain.ErrTokenMissing):
		return http.StatusForbidden, errorResponse{Message: "Token required"}
	case errors.Is(err, domain.ErrPayloadDecrypt):
		return http.StatusForbidden, errorResponse{Message: "Failed to decrypt the token payload"}
	case errors.Is(err, domain.ErrTokenInvalid),
		errors.Is(err, domain.ErrTokenExpired),
		errors.Is(err, domain.ErrTokenRevoked):
		return http.StatusForbidden, errorResponse{Message: "Invalid or expired token"}
	case errors.Is(err, domain.ErrRevocationUnavailable):
		return http.StatusNotImplemented, errorResponse{Message: "Token revocation is not enabled."}
	}

	// Unexpected error: log the real cause, return a generic message.
	l := logger.FromContext(c.Request().Context(), log)
	l.Error().
		Err(err).
		Str("method", c.Request().Method).
		Str("path", c.Path()).
		Msg("unhandled error")

	return http.StatusInternalServerError, errorResponse{Message: "Server error.", Error: "internal server error"}
}
