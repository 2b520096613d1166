package service

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/shoehub/inventory-system/internal/core/domain"
	"github.com/shoehub/inventory-system/internal/core/ports"
)

const (
	defaultHistoryLimit = 50
	maxHistoryLimit     = 500
)

type auditService struct {
	repo ports.AuditRepository
	log  zerolog.Logger
}

// NewAuditService returns an AuditService implementation.
func NewAuditService(repo ports.AuditRepository, log zerolog.Logger) ports.AuditService {
	return &auditService{repo: repo, log: log}
}

// Record persists a single inventory event.
func (s *auditService) Record(ctx context.Context, event domain.InventoryEvent) error {
	if event.ID == "" || event.ShoeID == 0 {
		return fmt.Errorf("record audit event: incomplete event %q for shoe %d", event.ID, event.ShoeID)
	}

	if err := s.repo.Insert(ctx, &event); err != nil {
		return fmt.Errorf("record audit event: %w", err)
	}

	s.log.Debug().
		Str("event_id", event.ID).
		Str("action", string(event.Action)).
		Int64("shoe_id", event.ShoeID).
		Msg("audit event stored")
	return nil
}

// History returns the newest events of a shoe. limit is clamped to
// (0, maxHistoryLimit]; zero or negative selects defaultHistoryLimit.
func (s *auditService) History(ctx context.Context, shoeID int64, limit int) ([]domain.InventoryEvent, error) {
	switch {
	case limit <= 0:
		limit = defaultHistoryLimit
	case limit > maxHistoryLimit:
		limit = maxHistoryLimit
	}

	events, err := s.repo.ListByShoe(ctx, shoeID, limit)
	if err != nil {
		return nil, fmt.Errorf("audit history: %w", err)
	}
	if events == nil {
		events = []domain.InventoryEvent{}
	}
	return events, nil
}
