package service

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/shoehub/inventory-system/internal/core/domain"
	"github.com/shoehub/inventory-system/internal/core/ports"
)

type ShoeService struct {
	repo        ports.ShoeRepository
	idempotency ports.IdempotencyStore
	audit       ports.AuditRecorder
	logger      zerolog.Logger
	now         func() time.Time
}

// NewShoeService wires the record store with its optional collaborators.
// idempotency and audit may be nil.
func NewShoeService(repo ports.ShoeRepository, idempotency ports.IdempotencyStore, audit ports.AuditRecorder, logger zerolog.Logger) *ShoeService {
	return &ShoeService{
		repo:        repo,
		idempotency: idempotency,
		audit:       audit,
		logger:      logger,
		now:         time.Now,
	}
}

// Create validates and stores a new shoe. If an idempotency key is provided
// and already seen, the previously created shoe is returned without side
// effects. A key whose first create is still running yields
// domain.ErrRequestInProgress.
func (s *ShoeService) Create(ctx context.Context, in ports.CreateShoeInput) (*domain.Shoe, error) {
	shoe, err := parseShoe(in.ShoeInput)
	if err != nil {
		return nil, err
	}

	claimed, existing, err := s.claim(ctx, in.IdempotencyKey)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return existing, nil
	}

	id, err := s.repo.Insert(ctx, shoe)
	if err != nil {
		s.logger.Error().Err(err).Msg("failed to create shoe")
		if claimed {
			if rerr := s.idempotency.Release(ctx, in.IdempotencyKey); rerr != nil {
				s.logger.Warn().Err(rerr).Str("idempotency_key", in.IdempotencyKey).Msg("failed to release idempotency key")
			}
		}
		return nil, err
	}
	shoe.ID = id

	if claimed {
		if err := s.idempotency.Remember(ctx, in.IdempotencyKey, id); err != nil {
			s.logger.Warn().Err(err).Str("idempotency_key", in.IdempotencyKey).Msg("failed to store idempotency key")
		}
	}

	s.logger.Info().Int64("shoe_id", id).Str("username", in.Actor).Msg("shoe created")
	s.record(domain.ActionCreated, *shoe, in.Actor)
	return shoe, nil
}

// claim reserves key for this create. When the key is already bound, the
// shoe an earlier request created is returned instead. Store failures
// degrade to an unguarded insert.
func (s *ShoeService) claim(ctx context.Context, key string) (bool, *domain.Shoe, error) {
	if key == "" || s.idempotency == nil {
		return false, nil, nil
	}

	ok, err := s.idempotency.Reserve(ctx, key)
	if err != nil {
		s.logger.Warn().Err(err).Str("idempotency_key", key).Msg("idempotency reserve failed, creating anyway")
		return false, nil, nil
	}
	if ok {
		return true, nil, nil
	}

	id, found, err := s.idempotency.Lookup(ctx, key)
	if errors.Is(err, domain.ErrRequestInProgress) {
		return false, nil, err
	}
	if err != nil {
		s.logger.Warn().Err(err).Str("idempotency_key", key).Msg("idempotency lookup failed, creating anyway")
		return false, nil, nil
	}
	if !found {
		// Expired between Reserve and Lookup.
		return false, nil, nil
	}

	existing, err := s.repo.FindByID(ctx, id)
	if err != nil {
		// The earlier shoe may have been deleted since; bind the key to a fresh one.
		s.logger.Debug().Err(err).Str("idempotency_key", key).Int64("shoe_id", id).Msg("idempotent replay target missing")
		return true, nil, nil
	}

	s.logger.Info().Str("idempotency_key", key).Int64("shoe_id", id).Msg("idempotent replay")
	return false, existing, nil
}

func (s *ShoeService) List(ctx context.Context, search string) ([]domain.Shoe, error) {
	shoes, err := s.repo.List(ctx, strings.TrimSpace(search))
	if err != nil {
		return nil, fmt.Errorf("list shoes: %w", err)
	}
	if shoes == nil {
		shoes = []domain.Shoe{}
	}
	return shoes, nil
}

func (s *ShoeService) Get(ctx context.Context, id int64) (*domain.Shoe, error) {
	return s.repo.FindByID(ctx, id)
}

func (s *ShoeService) Update(ctx context.Context, id int64, in ports.ShoeInput, actor string) (*domain.Shoe, error) {
	shoe, err := parseShoe(in)
	if err != nil {
		return nil, err
	}
	shoe.ID = id

	if err := s.repo.Update(ctx, shoe); err != nil {
		return nil, err
	}

	s.logger.Info().Int64("shoe_id", id).Str("username", actor).Msg("shoe updated")
	s.record(domain.ActionUpdated, *shoe, actor)
	return shoe, nil
}

func (s *ShoeService) Delete(ctx context.Context, id int64, actor string) error {
	shoe, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return err
	}
	if err := s.repo.Delete(ctx, id); err != nil {
		return err
	}

	s.logger.Info().Int64("shoe_id", id).Str("username", actor).Msg("shoe deleted")
	s.record(domain.ActionDeleted, *shoe, actor)
	return nil
}

func (s *ShoeService) record(action domain.InventoryAction, shoe domain.Shoe, actor string) {
	if s.audit == nil {
		return
	}
	s.audit.Enqueue(domain.InventoryEvent{
		ID:         uuid.NewString(),
		Action:     action,
		ShoeID:     shoe.ID,
		Username:   actor,
		OccurredAt: s.now().UTC(),
		Snapshot:   shoe,
	})
}

// parseShoe converts raw request fields into a validated shoe.
func parseShoe(in ports.ShoeInput) (*domain.Shoe, error) {
	fields := []struct{ name, value string }{
		{"brand", in.Brand},
		{"model", in.Model},
		{"size", in.Size},
		{"color", in.Color},
		{"price", in.Price},
		{"stock", in.Stock},
	}
	for _, f := range fields {
		if strings.TrimSpace(f.value) == "" {
			return nil, domain.NewValidationError("%s is required", f.name)
		}
	}

	size, err := parseDecimal(in.Size)
	if err != nil {
		return nil, err
	}
	price, err := parseDecimal(in.Price)
	if err != nil {
		return nil, err
	}
	stock, err := strconv.Atoi(strings.TrimSpace(in.Stock))
	if err != nil {
		return nil, domain.NewValidationError("Invalid number format")
	}

	shoe := &domain.Shoe{
		Brand: strings.TrimSpace(in.Brand),
		Model: strings.TrimSpace(in.Model),
		Size:  size,
		Color: strings.TrimSpace(in.Color),
		Price: price,
		Stock: stock,
	}
	shoe.Round()
	if err := shoe.Validate(); err != nil {
		return nil, err
	}
	return shoe, nil
}

func parseDecimal(raw string) (float64, error) {
	v, err := strconv.ParseFloat(strings.TrimSpace(raw), 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, domain.NewValidationError("Invalid number format")
	}
	return v, nil
}
