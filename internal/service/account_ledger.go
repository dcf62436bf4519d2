package service

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"vives-backoffice/internal/adapter/cache"
	"vives-backoffice/internal/core/ports"
	"vives-backoffice/pkg/apperror"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
)

// AccountLedgerImpl implements ports.AccountLedger. It is the only writer of
// account balances: every debit and credit in the system funnels through
// AdjustBalance so the non-negative balance invariant is enforced in exactly
// one place, under a row lock.
type AccountLedgerImpl struct {
	accountRepo ports.AccountRepository
	transactor  ports.DBTransactor
	entityCache ports.EntityCache
	cacheTTL    time.Duration
	log         zerolog.Logger
}

// NewAccountLedger creates a new AccountLedgerImpl. accountRepo must be the
// raw store, not the cached decorator; the ledger reads inside its own
// transaction and handles cache invalidation itself after commit.
func NewAccountLedger(
	accountRepo ports.AccountRepository,
	transactor ports.DBTransactor,
	entityCache ports.EntityCache,
	cacheTTL time.Duration,
	log zerolog.Logger,
) *AccountLedgerImpl {
	return &AccountLedgerImpl{
		accountRepo: accountRepo,
		transactor:  transactor,
		entityCache: entityCache,
		cacheTTL:    cacheTTL,
		log:         log,
	}
}

// AdjustBalance applies delta to the account balance with pessimistic locking.
// The balance read happens under FOR UPDATE inside the transaction, never from
// cache. A delta that would drive the balance negative rolls back and returns
// insufficient funds.
func (s *AccountLedgerImpl) AdjustBalance(ctx context.Context, accountGUID uuid.UUID, delta decimal.Decimal) (decimal.Decimal, error) {
	dbTx, err := s.transactor.Begin(ctx)
	if err != nil {
		return decimal.Zero, apperror.ErrTransientStore(fmt.Errorf("begin tx: %w", err))
	}
	defer dbTx.Rollback(ctx) //nolint:errcheck

	account, err := s.accountRepo.GetByGUIDForUpdate(ctx, dbTx, accountGUID)
	if err != nil {
		return decimal.Zero, apperror.InternalError(fmt.Errorf("lock account: %w", err))
	}
	if account == nil {
		return decimal.Zero, apperror.ErrNotFound("account")
	}

	newBalance := account.Balance.Add(delta)
	if newBalance.IsNegative() {
		return decimal.Zero, apperror.ErrInsufficientFunds()
	}

	if err := s.accountRepo.UpdateBalance(ctx, dbTx, accountGUID, newBalance); err != nil {
		return decimal.Zero, apperror.InternalError(fmt.Errorf("update balance: %w", err))
	}

	if err := dbTx.Commit(ctx); err != nil {
		return decimal.Zero, apperror.ErrTransientStore(fmt.Errorf("commit tx: %w", err))
	}

	s.refreshSnapshot(ctx, accountGUID)

	return newBalance, nil
}

// refreshSnapshot invalidates the cached account entry and repopulates it
// from the committed row. Best effort: a cold cache is correct, a stale one
// is not, so the delete matters more than the repopulation.
func (s *AccountLedgerImpl) refreshSnapshot(ctx context.Context, accountGUID uuid.UUID) {
	key := cache.Key(cache.PrefixAccount, accountGUID)
	if err := s.entityCache.Delete(ctx, key); err != nil {
		s.log.Warn().Err(err).Str("key", key).Msg("account cache invalidation failed")
		return
	}

	account, err := s.accountRepo.GetByGUID(ctx, accountGUID)
	if err != nil || account == nil {
		return
	}
	data, err := json.Marshal(account)
	if err != nil {
		return
	}
	if err := s.entityCache.Set(ctx, key, data, s.cacheTTL); err != nil {
		s.log.Warn().Err(err).Str("key", key).Msg("account cache repopulation failed")
	}
}
