package ports

import (
	"context"
	"time"

	"github.com/shoehub/inventory-system/internal/core/domain"
)

// TokenValidator is the part of the auth guard the middleware depends on.
type TokenValidator interface {
	ValidateToken(token string) (string, error)
}

type AuthService interface {
	TokenValidator
	Register(ctx context.Context, username, password string) (*domain.User, error)
	Login(ctx context.Context, username, password string) (*LoginResult, error)
}

// LoginResult is returned after a successful login.
type LoginResult struct {
	Token     string
	ExpiresAt time.Time
	User      *domain.User
}
