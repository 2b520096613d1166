package ports

import (
	"context"

	"github.com/shoehub/inventory-system/internal/core/domain"
)

// AuthRepository defines the credential store.
type AuthRepository interface {
	// Create persists a new user. A duplicate username yields domain.ErrUserExists.
	Create(ctx context.Context, user *domain.User) (*domain.User, error)
	FindByUsername(ctx context.Context, username string) (*domain.User, error)
	UpdatePasswordHash(ctx context.Context, username, passwordHash string) error
}
