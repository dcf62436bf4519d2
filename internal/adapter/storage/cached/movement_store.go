package cached

import (
	"context"
	"encoding/json"
	"time"

	"vives-backoffice/internal/adapter/cache"
	"vives-backoffice/internal/core/domain"
	"vives-backoffice/internal/core/ports"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// MovementStore decorates a MovementRepository with cached ID lookups.
// Movements are immutable except for transfer revocation, so snapshots only
// need refreshing on MarkTransferRevoked.
type MovementStore struct {
	inner ports.MovementRepository
	cache ports.EntityCache
	ttl   time.Duration
	log   zerolog.Logger
}

// NewMovementStore creates a cache-backed movement store.
func NewMovementStore(inner ports.MovementRepository, c ports.EntityCache, ttl time.Duration, log zerolog.Logger) *MovementStore {
	return &MovementStore{inner: inner, cache: c, ttl: ttl, log: log}
}

// Create appends the movement and seeds its cached snapshot.
func (s *MovementStore) Create(ctx context.Context, movement *domain.Movement) error {
	if err := s.inner.Create(ctx, movement); err != nil {
		return err
	}
	s.store(ctx, movement)
	return nil
}

// GetByID returns the movement, served from cache when a fresh snapshot
// exists.
func (s *MovementStore) GetByID(ctx context.Context, id uuid.UUID) (*domain.Movement, error) {
	key := cache.Key(cache.PrefixMovement, id)
	data, hit, err := s.cache.Get(ctx, key)
	if err != nil {
		s.log.Warn().Err(err).Str("key", key).Msg("movement cache read failed")
	} else if hit {
		var movement domain.Movement
		if err := json.Unmarshal(data, &movement); err == nil {
			return &movement, nil
		}
		s.log.Warn().Str("key", key).Msg("corrupt cached movement snapshot, falling back to database")
	}

	movement, err := s.inner.GetByID(ctx, id)
	if err != nil || movement == nil {
		return movement, err
	}
	s.store(ctx, movement)
	return movement, nil
}

// ListByClient reads the authoritative store directly.
func (s *MovementStore) ListByClient(ctx context.Context, clientGUID uuid.UUID, limit, offset int) ([]domain.Movement, error) {
	return s.inner.ListByClient(ctx, clientGUID, limit, offset)
}

// MarkTransferRevoked flips the revoked flag, then refreshes the cached
// snapshot so readers do not see the pre-revocation state for a full TTL.
func (s *MovementStore) MarkTransferRevoked(ctx context.Context, id uuid.UUID) error {
	if err := s.inner.MarkTransferRevoked(ctx, id); err != nil {
		return err
	}
	key := cache.Key(cache.PrefixMovement, id)
	if err := s.cache.Delete(ctx, key); err != nil {
		s.log.Warn().Err(err).Str("key", key).Msg("movement cache invalidation failed")
		return nil
	}
	movement, err := s.inner.GetByID(ctx, id)
	if err != nil || movement == nil {
		return nil
	}
	s.store(ctx, movement)
	return nil
}

func (s *MovementStore) store(ctx context.Context, movement *domain.Movement) {
	key := cache.Key(cache.PrefixMovement, movement.ID)
	data, err := json.Marshal(movement)
	if err != nil {
		s.log.Warn().Err(err).Str("key", key).Msg("failed to marshal movement snapshot")
		return
	}
	if err := s.cache.Set(ctx, key, data, s.ttl); err != nil {
		s.log.Warn().Err(err).Str("key", key).Msg("movement cache write failed")
	}
}
