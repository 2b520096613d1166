package ports

import (
	"context"

	"github.com/shoehub/inventory-system/internal/core/domain"
)

// ShoeRepository defines the record store.
type ShoeRepository interface {
	Insert(ctx context.Context, s *domain.Shoe) (int64, error)
	FindByID(ctx context.Context, id int64) (*domain.Shoe, error)
	// List returns every shoe whose brand, model or color contains search,
	// case-insensitively. An empty search returns all shoes.
	List(ctx context.Context, search string) ([]domain.Shoe, error)
	Update(ctx context.Context, s *domain.Shoe) error
	Delete(ctx context.Context, id int64) error
}

// IdempotencyStore remembers which shoe a create request key produced.
// Reserve claims a key before the insert; only the caller that gets true
// may insert. Lookup returns domain.ErrRequestInProgress for a key that is
// reserved but not yet bound to a shoe.
type IdempotencyStore interface {
	Reserve(ctx context.Context, key string) (bool, error)
	Lookup(ctx context.Context, key string) (int64, bool, error)
	Remember(ctx context.Context, key string, shoeID int64) error
	Release(ctx context.Context, key string) error
}
