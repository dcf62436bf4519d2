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

// MandateStore decorates a MandateRepository with cached GUID lookups.
// ListActive always reads the database so the scheduler sees the
// authoritative mandate set on every tick.
type MandateStore struct {
	inner ports.MandateRepository
	cache ports.EntityCache
	ttl   time.Duration
	log   zerolog.Logger
}

// NewMandateStore creates a cache-backed mandate store.
func NewMandateStore(inner ports.MandateRepository, c ports.EntityCache, ttl time.Duration, log zerolog.Logger) *MandateStore {
	return &MandateStore{inner: inner, cache: c, ttl: ttl, log: log}
}

// Create persists the mandate and seeds its cached snapshot.
func (s *MandateStore) Create(ctx context.Context, mandate *domain.Mandate) error {
	if err := s.inner.Create(ctx, mandate); err != nil {
		return err
	}
	s.store(ctx, mandate)
	return nil
}

// GetByGUID returns the mandate, served from cache when a fresh snapshot
// exists.
func (s *MandateStore) GetByGUID(ctx context.Context, guid uuid.UUID) (*domain.Mandate, error) {
	key := cache.Key(cache.PrefixMandate, guid)
	data, hit, err := s.cache.Get(ctx, key)
	if err != nil {
		s.log.Warn().Err(err).Str("key", key).Msg("mandate cache read failed")
	} else if hit {
		var mandate domain.Mandate
		if err := json.Unmarshal(data, &mandate); err == nil {
			return &mandate, nil
		}
		s.log.Warn().Str("key", key).Msg("corrupt cached mandate snapshot, falling back to database")
	}

	mandate, err := s.inner.GetByGUID(ctx, guid)
	if err != nil || mandate == nil {
		return mandate, err
	}
	s.store(ctx, mandate)
	return mandate, nil
}

// ListActive reads the authoritative store directly.
func (s *MandateStore) ListActive(ctx context.Context) ([]domain.Mandate, error) {
	return s.inner.ListActive(ctx)
}

// UpdateExecution advances last_executed_at, then refreshes the cached
// snapshot.
func (s *MandateStore) UpdateExecution(ctx context.Context, guid uuid.UUID, executedAt time.Time) error {
	if err := s.inner.UpdateExecution(ctx, guid, executedAt); err != nil {
		return err
	}
	s.refresh(ctx, guid)
	return nil
}

// Deactivate excludes the mandate from scheduling, then refreshes the cached
// snapshot.
func (s *MandateStore) Deactivate(ctx context.Context, guid uuid.UUID) error {
	if err := s.inner.Deactivate(ctx, guid); err != nil {
		return err
	}
	s.refresh(ctx, guid)
	return nil
}

// refresh invalidates the snapshot and repopulates it from the database.
func (s *MandateStore) refresh(ctx context.Context, guid uuid.UUID) {
	key := cache.Key(cache.PrefixMandate, guid)
	if err := s.cache.Delete(ctx, key); err != nil {
		s.log.Warn().Err(err).Str("key", key).Msg("mandate cache invalidation failed")
		return
	}
	mandate, err := s.inner.GetByGUID(ctx, guid)
	if err != nil || mandate == nil {
		return
	}
	s.store(ctx, mandate)
}

func (s *MandateStore) store(ctx context.Context, mandate *domain.Mandate) {
	key := cache.Key(cache.PrefixMandate, mandate.GUID)
	data, err := json.Marshal(mandate)
	if err != nil {
		s.log.Warn().Err(err).Str("key", key).Msg("failed to marshal mandate snapshot")
		return
	}
	if err := s.cache.Set(ctx, key, data, s.ttl); err != nil {
		s.log.Warn().Err(err).Str("key", key).Msg("mandate cache write failed")
	}
}
