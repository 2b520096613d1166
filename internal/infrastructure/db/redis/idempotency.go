package redis

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/shoehub/inventory-system/internal/core/domain"
	"github.com/shoehub/inventory-system/internal/core/ports"
)

const (
	idempotencyTTL = 24 * time.Hour
	// reserveTTL bounds how long a crashed create can hold its key.
	reserveTTL = time.Minute

	pendingValue = "pending"
)

// IdempotencyStore remembers which shoe a create request produced, keyed by
// the client supplied Idempotency-Key header. A key holds "pending" while
// its create runs and the shoe ID afterwards.
// Key format: idempotency:shoe:<key>
type IdempotencyStore struct {
	client     *redis.Client
	ttl        time.Duration
	reserveTTL time.Duration
}

// NewIdempotencyStore wraps the given Redis client.
func NewIdempotencyStore(client *redis.Client) *IdempotencyStore {
	return &IdempotencyStore{client: client, ttl: idempotencyTTL, reserveTTL: reserveTTL}
}

// Reserve claims key for one create. It reports false when the key is
// already reserved or bound.
func (s *IdempotencyStore) Reserve(ctx context.Context, key string) (bool, error) {
	ok, err := s.client.SetNX(ctx, s.key(key), pendingValue, s.reserveTTL).Result()
	if err != nil {
		return false, fmt.Errorf("idempotency reserve: %w", err)
	}
	return ok, nil
}

var _ ports.IdempotencyStore = (*IdempotencyStore)(nil)

// Lookup returns the shoe ID stored for key, if any.
func (s *IdempotencyStore) Lookup(ctx context.Context, key string) (int64, bool, error) {
	val, err := s.client.Get(ctx, s.key(key)).Result()
	if errors.Is(err, redis.Nil) {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, fmt.Errorf("idempotency lookup: %w", err)
	}
	if val == pendingValue {
		return 0, false, domain.ErrRequestInProgress
	}
	id, err := strconv.ParseInt(val, 10, 64)
	if err != nil {
		return 0, false, fmt.Errorf("idempotency lookup: corrupt value %q", val)
	}
	return id, true, nil
}

// Remember binds a reserved key to shoeID for the full retention period.
func (s *IdempotencyStore) Remember(ctx context.Context, key string, shoeID int64) error {
	if err := s.client.Set(ctx, s.key(key), shoeID, s.ttl).Err(); err != nil {
		return fmt.Errorf("idempotency remember: %w", err)
	}
	return nil
}

// Release drops a reservation whose create failed so a retry can claim it.
func (s *IdempotencyStore) Release(ctx context.Context, key string) error {
	if err := s.client.Del(ctx, s.key(key)).Err(); err != nil {
		return fmt.Errorf("idempotency release: %w", err)
	}
	return nil
}

func (s *IdempotencyStore) key(key string) string {
	return "idempotency:shoe:" + key
}
