package ports

import (
	"context"

	"github.com/shoehub/inventory-system/internal/core/domain"
)

// AuditRecorder accepts inventory events for asynchronous persistence.
type AuditRecorder interface {
	Enqueue(event domain.InventoryEvent)
}

// AuditService writes and reads the audit trail.
type AuditService interface {
	Record(ctx context.Context, event domain.InventoryEvent) error
	History(ctx context.Context, shoeID int64, limit int) ([]domain.InventoryEvent, error)
}
