package handler

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/99minutos/auth-service/internal/core/domain"
	"github.com/99minutos/auth-service/internal/core/ports"
)

type AuthHandler struct {
	authService ports.AuthService
}

func NewAuthHandler(authService ports.AuthService) *AuthHandler {
	return &AuthHandler{authService: authService}
}

// Register creates a new user account.
//
// @Summary      Register a new user
// @Tags         auth
// @Accept       json
// @Produce      json
// @Param        body  body      registerRequest  true  "User registration details"
// @Success      201   {object}  messageResponse
// @Failure      400   {object}  messageResponse
// @Failure      409   {object}  messageResponse
// @Failure      500   {object}  messageResponse
// @Router       /register [post]
func (h *AuthHandler) Register(c echo.Context) error {
	var req registerRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}

	if err := h.authService.Register(c.Request().Context(), req.Username, req.Email, req.Password); err != nil {
		return err
	}

	return c.JSON(http.StatusCreated, messageResponse{Message: "User registered successfully."})
}

// Login authenticates a user and returns an access and a refresh token.
//
// @Summary      Login
// @Tags         auth
// @Accept       json
// @Produce      json
// @Param        body  body      loginRequest  true  "Login credentials"
// @Success      200   {object}  loginResponse
// @Failure      400   {object}  messageResponse
// @Failure      401   {object}  messageResponse
// @Failure      500   {object}  messageResponse
// @Router       /login [post]
func (h *AuthHandler) Login(c echo.Context) error {
	var req loginRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}

	pair, err := h.authService.Login(c.Request().Context(), req.Email, req.Password)
	if err != nil {
		return err
	}

	return c.JSON(http.StatusOK, loginResponse{
		Message:      "Login successful.",
		Token:        pair.AccessToken,
		RefreshToken: pair.RefreshToken,
	})
}

// Refresh exchanges a refresh token for a new access token.
//
// @Summary      Refresh the access token
// @Tags         auth
// @Accept       json
// @Produce      json
// @Param        body  body      refreshRequest  true  "Refresh token"
// @Success      200   {object}  refreshResponse
// @Failure      403   {object}  messageResponse
// @Router       /refresh [post]
func (h *AuthHandler) Refresh(c echo.Context) error {
	var req refreshRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusForbidden, "Refresh token required")
	}

	access, err := h.authService.Refresh(c.Request().Context(), req.Token)
	if err != nil {
		return refreshError(err)
	}

	return c.JSON(http.StatusOK, refreshResponse{AccessToken: access})
}

// Logout revokes the caller's access token and, when supplied, its refresh
// token.
//
// @Summary      Logout
// @Tags         auth
// @Accept       json
// @Param        body  body  logoutRequest  false  "Refresh token to revoke"
// @Success      204
// @Failure      403   {object}  messageResponse
// @Failure      501   {object}  messageResponse
// @Security     BearerAuth
// @Router       /logout [post]
func (h *AuthHandler) Logout(c echo.Context) error {
	_, access, err := currentIdentity(c)
	if err != nil {
		return err
	}

	var req logoutRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid request body.")
	}

	if err := h.authService.Logout(c.Request().Context(), access, req.Token); err != nil {
		return err
	}
	return c.NoContent(http.StatusNoContent)
}

// Me returns the identity carried by the access token.
//
// @Summary      Current user
// @Tags         auth
// @Produce      json
// @Success      200   {object}  identityResponse
// @Failure      403   {object}  messageResponse
// @Security     BearerAuth
// @Router       /me [get]
func (h *AuthHandler) Me(c echo.Context) error {
	identity, _, err := currentIdentity(c)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, identityResponse{ID: identity.ID, Username: identity.Username})
}

// refreshError maps token failures to the refresh endpoint's messages.
func refreshError(err error) error {
	switch {
	case errors.Is(err, domain.ErrTokenMissing):
		return echo.NewHTTPError(http.StatusForbidden, "Refresh token required")
	case errors.Is(err, domain.ErrPayloadDecrypt):
		return echo.NewHTTPError(http.StatusForbidden, "Failed to decrypt the refresh token payload")
	case errors.Is(err, domain.ErrTokenInvalid),
		errors.Is(err, domain.ErrTokenExpired),
		errors.Is(err, domain.ErrTokenRevoked):
		return echo.NewHTTPError(http.StatusForbidden, "Invalid or expired refresh token")
	default:
		return err
	}
}

func bindAndValidate(c echo.Context, req any) error {
	if err := c.Bind(req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid request body.")
	}
	if err := c.Validate(req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	return nil
}
