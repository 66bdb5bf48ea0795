package ports

import (
	"context"

	"github.com/99minutos/auth-service/internal/core/domain"
)

type AuthService interface {
	Register(ctx context.Context, username, email, password string) error
	Login(ctx context.Context, email, password string) (*domain.TokenPair, error)
	// Authenticate validates an Authorization header value and returns the
	// identity embedded in the access token.
	Authenticate(ctx context.Context, header string) (*domain.UserIdentity, error)
	Refresh(ctx context.Context, refreshToken string) (string, error)
	Logout(ctx context.Context, accessToken, refreshToken string) error
}
