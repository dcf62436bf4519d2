package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"vives-backoffice/internal/core/domain"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"
)

// MandateRepo implements ports.MandateRepository.
type MandateRepo struct {
	pool Pool
}

// NewMandateRepo creates a new MandateRepo.
func NewMandateRepo(pool Pool) *MandateRepo {
	return &MandateRepo{pool: pool}
}

const mandateColumns = `id, guid, client_guid, creditor_name, payer_iban, payee_iban,
		amount::text, periodicity, active, last_executed_at, created_at, updated_at`

func scanMandate(row pgx.Row) (*domain.Mandate, error) {
	m := &domain.Mandate{}
	var amount string
	err := row.Scan(
		&m.ID, &m.GUID, &m.ClientGUID, &m.CreditorName, &m.PayerIBAN, &m.PayeeIBAN,
		&amount, &m.Periodicity, &m.Active, &m.LastExecutedAt, &m.CreatedAt, &m.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	m.Amount, err = decimal.NewFromString(amount)
	if err != nil {
		return nil, fmt.Errorf("parse mandate amount: %w", err)
	}
	return m, nil
}

// Create inserts a new mandate into the database.
func (r *MandateRepo) Create(ctx context.Context, m *domain.Mandate) error {
	query := `INSERT INTO mandates (guid, client_guid, creditor_name, payer_iban, payee_iban,
		amount, periodicity, active, last_executed_at, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6::numeric, $7, $8, $9, $10, $11) RETURNING id`

	err := r.pool.QueryRow(ctx, query,
		m.GUID, m.ClientGUID, m.CreditorName, m.PayerIBAN, m.PayeeIBAN,
		m.Amount.String(), m.Periodicity, m.Active, m.LastExecutedAt,
		m.CreatedAt, m.UpdatedAt,
	).Scan(&m.ID)
	if err != nil {
		return fmt.Errorf("insert mandate: %w", err)
	}
	return nil
}

// GetByGUID fetches a mandate by GUID.
func (r *MandateRepo) GetByGUID(ctx context.Context, guid uuid.UUID) (*domain.Mandate, error) {
	query := `SELECT ` + mandateColumns + ` FROM mandates WHERE guid = $1`

	m, err := scanMandate(r.pool.QueryRow(ctx, query, guid))
	if err != nil {
		return nil, fmt.Errorf("get mandate by guid: %w", err)
	}
	return m, nil
}

// ListActive fetches every mandate still eligible for scheduling.
func (r *MandateRepo) ListActive(ctx context.Context) ([]domain.Mandate, error) {
	query := `SELECT ` + mandateColumns + ` FROM mandates WHERE active = TRUE ORDER BY id`

	rows, err := r.pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("list active mandates: %w", err)
	}
	defer rows.Close()

	var mandates []domain.Mandate
	for rows.Next() {
		m, err := scanMandate(rows)
		if err != nil {
			return nil, fmt.Errorf("scan mandate: %w", err)
		}
		mandates = append(mandates, *m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate mandates: %w", err)
	}
	return mandates, nil
}

// UpdateExecution advances last_executed_at after a successful run.
func (r *MandateRepo) UpdateExecution(ctx context.Context, guid uuid.UUID, executedAt time.Time) error {
	query := `UPDATE mandates SET last_executed_at = $1, updated_at = NOW() WHERE guid = $2`

	tag, err := r.pool.Exec(ctx, query, executedAt, guid)
	if err != nil {
		return fmt.Errorf("update mandate execution: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("mandate not found: %s", guid)
	}
	return nil
}

// Deactivate permanently excludes the mandate from scheduling.
func (r *MandateRepo) Deactivate(ctx context.Context, guid uuid.UUID) error {
	query := `UPDATE mandates SET active = FALSE, updated_at = NOW() WHERE guid = $1`

	tag, err := r.pool.Exec(ctx, query, guid)
	if err != nil {
		return fmt.Errorf("deactivate mandate: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("mandate not found: %s", guid)
	}
	return nil
}
