package postgres

import (
	"context"
	"errors"
	"fmt"

	"vives-backoffice/internal/core/domain"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"
)

// AccountRepo implements ports.AccountRepository.
type AccountRepo struct {
	pool Pool
}

// NewAccountRepo creates a new AccountRepo.
func NewAccountRepo(pool Pool) *AccountRepo {
	return &AccountRepo{pool: pool}
}

const accountColumns = `id, guid, iban, balance::text, client_guid, product_guid, created_at, updated_at`

func scanAccount(row pgx.Row) (*domain.Account, error) {
	a := &domain.Account{}
	var balance string
	err := row.Scan(
		&a.ID, &a.GUID, &a.IBAN, &balance,
		&a.ClientGUID, &a.ProductGUID, &a.CreatedAt, &a.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	a.Balance, err = decimal.NewFromString(balance)
	if err != nil {
		return nil, fmt.Errorf("parse account balance: %w", err)
	}
	return a, nil
}

// Create inserts a new account into the database.
func (r *AccountRepo) Create(ctx context.Context, a *domain.Account) error {
	query := `INSERT INTO accounts (guid, iban, balance, client_guid, product_guid, created_at, updated_at)
		VALUES ($1, $2, $3::numeric, $4, $5, $6, $7) RETURNING id`

	err := r.pool.QueryRow(ctx, query,
		a.GUID, a.IBAN, a.Balance.String(), a.ClientGUID, a.ProductGUID,
		a.CreatedAt, a.UpdatedAt,
	).Scan(&a.ID)
	if err != nil {
		return fmt.Errorf("insert account: %w", err)
	}
	return nil
}

// GetByGUID fetches an account by GUID (without locking).
func (r *AccountRepo) GetByGUID(ctx context.Context, guid uuid.UUID) (*domain.Account, error) {
	query := `SELECT ` + accountColumns + ` FROM accounts WHERE guid = $1`

	a, err := scanAccount(r.pool.QueryRow(ctx, query, guid))
	if err != nil {
		return nil, fmt.Errorf("get account by guid: %w", err)
	}
	return a, nil
}

// GetByIBAN fetches an account by IBAN (non-locking read).
func (r *AccountRepo) GetByIBAN(ctx context.Context, iban string) (*domain.Account, error) {
	query := `SELECT ` + accountColumns + ` FROM accounts WHERE iban = $1`

	a, err := scanAccount(r.pool.QueryRow(ctx, query, iban))
	if err != nil {
		return nil, fmt.Errorf("get account by iban: %w", err)
	}
	return a, nil
}

// GetByGUIDForUpdate fetches an account by GUID with pessimistic locking.
// This MUST be called within a transaction.
func (r *AccountRepo) GetByGUIDForUpdate(ctx context.Context, tx pgx.Tx, guid uuid.UUID) (*domain.Account, error) {
	query := `SELECT ` + accountColumns + ` FROM accounts WHERE guid = $1 FOR UPDATE`

	a, err := scanAccount(tx.QueryRow(ctx, query, guid))
	if err != nil {
		return nil, fmt.Errorf("get account for update: %w", err)
	}
	return a, nil
}

// UpdateBalance writes an account's balance within a transaction. The account
// ledger service is the only caller; nothing else writes this column.
func (r *AccountRepo) UpdateBalance(ctx context.Context, tx pgx.Tx, guid uuid.UUID, balance decimal.Decimal) error {
	query := `UPDATE accounts SET balance = $1::numeric, updated_at = NOW() WHERE guid = $2`

	tag, err := tx.Exec(ctx, query, balance.String(), guid)
	if err != nil {
		return fmt.Errorf("update account balance: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("account not found: %s", guid)
	}
	return nil
}
