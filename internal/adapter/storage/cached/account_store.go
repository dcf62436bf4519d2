// Package cached wraps the Postgres repositories with the two-tier entity
// cache. Reads are cache-aside on the entity GUID; writes go to the
// authoritative store first, then invalidate and repopulate the cached
// snapshot. Cache failures never fail the operation, they are logged and the
// caller falls back to the database.
package cached

import (
	"context"
	"encoding/json"
	"time"

	"vives-backoffice/internal/adapter/cache"
	"vives-backoffice/internal/core/domain"
	"vives-backoffice/internal/core/ports"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
)

// AccountStore decorates an AccountRepository with cached GUID lookups.
// Transaction-scoped methods pass straight through: rows read under FOR
// UPDATE or written inside an open transaction must never touch the cache,
// invalidation for those paths happens after commit in the ledger service.
type AccountStore struct {
	inner ports.AccountRepository
	cache ports.EntityCache
	ttl   time.Duration
	log   zerolog.Logger
}

// NewAccountStore creates a cache-backed account store.
func NewAccountStore(inner ports.AccountRepository, c ports.EntityCache, ttl time.Duration, log zerolog.Logger) *AccountStore {
	return &AccountStore{inner: inner, cache: c, ttl: ttl, log: log}
}

// Create persists the account and seeds its cached snapshot.
func (s *AccountStore) Create(ctx context.Context, account *domain.Account) error {
	if err := s.inner.Create(ctx, account); err != nil {
		return err
	}
	s.store(ctx, account)
	return nil
}

// GetByGUID returns the account, served from cache when a fresh snapshot
// exists.
func (s *AccountStore) GetByGUID(ctx context.Context, guid uuid.UUID) (*domain.Account, error) {
	key := cache.Key(cache.PrefixAccount, guid)
	if data, hit := s.lookup(ctx, key); hit {
		var account domain.Account
		if err := json.Unmarshal(data, &account); err == nil {
			return &account, nil
		}
		s.log.Warn().Str("key", key).Msg("corrupt cached account snapshot, falling back to database")
	}

	account, err := s.inner.GetByGUID(ctx, guid)
	if err != nil || account == nil {
		return account, err
	}
	s.store(ctx, account)
	return account, nil
}

// GetByIBAN always reads the authoritative store. IBAN lookups feed balance
// checks and must not see a stale snapshot.
func (s *AccountStore) GetByIBAN(ctx context.Context, iban string) (*domain.Account, error) {
	return s.inner.GetByIBAN(ctx, iban)
}

// GetByGUIDForUpdate passes through to the locked database read.
func (s *AccountStore) GetByGUIDForUpdate(ctx context.Context, tx pgx.Tx, guid uuid.UUID) (*domain.Account, error) {
	return s.inner.GetByGUIDForUpdate(ctx, tx, guid)
}

// UpdateBalance passes through to the transactional write.
func (s *AccountStore) UpdateBalance(ctx context.Context, tx pgx.Tx, guid uuid.UUID, balance decimal.Decimal) error {
	return s.inner.UpdateBalance(ctx, tx, guid, balance)
}

func (s *AccountStore) lookup(ctx context.Context, key string) ([]byte, bool) {
	data, hit, err := s.cache.Get(ctx, key)
	if err != nil {
		s.log.Warn().Err(err).Str("key", key).Msg("account cache read failed")
		return nil, false
	}
	return data, hit
}

func (s *AccountStore) store(ctx context.Context, account *domain.Account) {
	key := cache.Key(cache.PrefixAccount, account.GUID)
	data, err := json.Marshal(account)
	if err != nil {
		s.log.Warn().Err(err).Str("key", key).Msg("failed to marshal account snapshot")
		return
	}
	if err := s.cache.Set(ctx, key, data, s.ttl); err != nil {
		s.log.Warn().Err(err).Str("key", key).Msg("account cache write failed")
	}
}
