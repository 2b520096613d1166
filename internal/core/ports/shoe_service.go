package ports

import (
	"context"

	"github.com/shoehub/inventory-system/internal/core/domain"
)

// ShoeInput carries the raw, unparsed fields of a create or update request.
type ShoeInput struct {
	Brand string
	Model string
	Size  string
	Color string
	Price string
	Stock string
}

// CreateShoeInput wraps ShoeInput with request metadata.
type CreateShoeInput struct {
	ShoeInput
	Actor          string
	IdempotencyKey string
}

// ShoeService defines use-case operations for shoe records.
type ShoeService interface {
	Create(ctx context.Context, in CreateShoeInput) (*domain.Shoe, error)
	List(ctx context.Context, search string) ([]domain.Shoe, error)
	Get(ctx context.Context, id int64) (*domain.Shoe, error)
	Update(ctx context.Context, id int64, in ShoeInput, actor string) (*domain.Shoe, error)
	Delete(ctx context.Context, id int64, actor string) error
}
