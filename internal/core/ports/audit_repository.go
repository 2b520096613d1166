package ports

import (
	"context"

	"github.com/shoehub/inventory-system/internal/core/domain"
)

// AuditRepository persists the inventory audit trail.
type AuditRepository interface {
	Insert(ctx context.Context, event *domain.InventoryEvent) error
	// ListByShoe returns at most limit events for the shoe, newest first.
	ListByShoe(ctx context.Context, shoeID int64, limit int) ([]domain.InventoryEvent, error)
}
