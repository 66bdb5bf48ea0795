package ports

import (
	"context"

	"github.com/99minutos/auth-service/internal/core/domain"
)

// AuthRepository is the credential store. Implementations must enforce
// username and email uniqueness atomically and report a violation as
// domain.ErrUserExists.
type AuthRepository interface {
	FindByEmail(ctx context.Context, email string) (*domain.User, error)
	FindByID(ctx context.Context, id int64) (*domain.User, error)
	Create(ctx context.Context, user *domain.User) (*domain.User, error)
}
