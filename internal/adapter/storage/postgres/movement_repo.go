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

// MovementRepo implements ports.MovementRepository. The tagged union is
// flattened into nullable variant columns with a kind discriminator; rows are
// reassembled into exactly one payload on scan.
type MovementRepo struct {
	pool Pool
}

// NewMovementRepo creates a new MovementRepo.
func NewMovementRepo(pool Pool) *MovementRepo {
	return &MovementRepo{pool: pool}
}

const movementColumns = `id, client_guid, kind, amount::text, created_at,
		creditor_name, payer_iban, payee_iban, mandate_guid,
		employer_name, employer_tax_id, employer_iban, employee_iban,
		card_number, merchant_name,
		source_iban, beneficiary_name, destination_iban, revoked`

// Create appends a movement to the ledger. The union invariant is re-checked
// here so a malformed record can never reach storage.
func (r *MovementRepo) Create(ctx context.Context, m *domain.Movement) error {
	if err := m.Validate(); err != nil {
		return fmt.Errorf("movement invariant: %w", err)
	}

	var (
		creditorName, payerIBAN, payeeIBAN           *string
		mandateGUID                                  *uuid.UUID
		employerName, employerTaxID                  *string
		employerIBAN, employeeIBAN                   *string
		cardNumber, merchantName                     *string
		sourceIBAN, beneficiaryName, destinationIBAN *string
		revoked                                      *bool
	)

	switch m.Kind {
	case domain.MovementKindDirectDebit:
		p := m.DirectDebit
		creditorName, payerIBAN, payeeIBAN = &p.CreditorName, &p.PayerIBAN, &p.PayeeIBAN
		mandateGUID = &p.MandateGUID
	case domain.MovementKindPayrollCredit:
		p := m.PayrollCredit
		employerName, employerTaxID = &p.EmployerName, &p.EmployerTaxID
		employerIBAN, employeeIBAN = &p.EmployerIBAN, &p.EmployeeIBAN
	case domain.MovementKindCardPayment:
		p := m.CardPayment
		cardNumber, merchantName = &p.CardNumber, &p.MerchantName
	case domain.MovementKindTransfer:
		p := m.Transfer
		sourceIBAN, beneficiaryName, destinationIBAN = &p.SourceIBAN, &p.BeneficiaryName, &p.DestinationIBAN
		revoked = &p.Revoked
	}

	query := `INSERT INTO movements (id, client_guid, kind, amount, created_at,
		creditor_name, payer_iban, payee_iban, mandate_guid,
		employer_name, employer_tax_id, employer_iban, employee_iban,
		card_number, merchant_name,
		source_iban, beneficiary_name, destination_iban, revoked)
		VALUES ($1, $2, $3, $4::numeric, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19)`

	_, err := r.pool.Exec(ctx, query,
		m.ID, m.ClientGUID, m.Kind, m.Amount().String(), m.CreatedAt,
		creditorName, payerIBAN, payeeIBAN, mandateGUID,
		employerName, employerTaxID, employerIBAN, employeeIBAN,
		cardNumber, merchantName,
		sourceIBAN, beneficiaryName, destinationIBAN, revoked,
	)
	if err != nil {
		return fmt.Errorf("insert movement: %w", err)
	}
	return nil
}

func scanMovement(row pgx.Row) (*domain.Movement, error) {
	m := &domain.Movement{}
	var (
		amount                                       string
		creditorName, payerIBAN, payeeIBAN           *string
		mandateGUID                                  *uuid.UUID
		employerName, employerTaxID                  *string
		employerIBAN, employeeIBAN                   *string
		cardNumber, merchantName                     *string
		sourceIBAN, beneficiaryName, destinationIBAN *string
		revoked                                      *bool
	)

	err := row.Scan(
		&m.ID, &m.ClientGUID, &m.Kind, &amount, &m.CreatedAt,
		&creditorName, &payerIBAN, &payeeIBAN, &mandateGUID,
		&employerName, &employerTaxID, &employerIBAN, &employeeIBAN,
		&cardNumber, &merchantName,
		&sourceIBAN, &beneficiaryName, &destinationIBAN, &revoked,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}

	amt, err := decimal.NewFromString(amount)
	if err != nil {
		return nil, fmt.Errorf("parse movement amount: %w", err)
	}

	switch m.Kind {
	case domain.MovementKindDirectDebit:
		m.DirectDebit = &domain.DirectDebit{
			CreditorName: deref(creditorName),
			PayerIBAN:    deref(payerIBAN),
			PayeeIBAN:    deref(payeeIBAN),
			Amount:       amt,
		}
		if mandateGUID != nil {
			m.DirectDebit.MandateGUID = *mandateGUID
		}
	case domain.MovementKindPayrollCredit:
		m.PayrollCredit = &domain.PayrollCredit{
			EmployerName:  deref(employerName),
			EmployerTaxID: deref(employerTaxID),
			EmployerIBAN:  deref(employerIBAN),
			EmployeeIBAN:  deref(employeeIBAN),
			Amount:        amt,
		}
	case domain.MovementKindCardPayment:
		m.CardPayment = &domain.CardPayment{
			CardNumber:   deref(cardNumber),
			MerchantName: deref(merchantName),
			Amount:       amt,
		}
	case domain.MovementKindTransfer:
		m.Transfer = &domain.Transfer{
			SourceIBAN:      deref(sourceIBAN),
			BeneficiaryName: deref(beneficiaryName),
			DestinationIBAN: deref(destinationIBAN),
			Amount:          amt,
		}
		if revoked != nil {
			m.Transfer.Revoked = *revoked
		}
	default:
		return nil, fmt.Errorf("unknown movement kind: %s", m.Kind)
	}

	return m, nil
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

// GetByID fetches a movement by its identifier.
func (r *MovementRepo) GetByID(ctx context.Context, id uuid.UUID) (*domain.Movement, error) {
	query := `SELECT ` + movementColumns + ` FROM movements WHERE id = $1`

	m, err := scanMovement(r.pool.QueryRow(ctx, query, id))
	if err != nil {
		return nil, fmt.Errorf("get movement by id: %w", err)
	}
	return m, nil
}

// ListByClient fetches a client's movements, newest first.
func (r *MovementRepo) ListByClient(ctx context.Context, clientGUID uuid.UUID, limit, offset int) ([]domain.Movement, error) {
	query := `SELECT ` + movementColumns + ` FROM movements
		WHERE client_guid = $1 ORDER BY created_at DESC LIMIT $2 OFFSET $3`

	rows, err := r.pool.Query(ctx, query, clientGUID, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("list movements: %w", err)
	}
	defer rows.Close()

	var movements []domain.Movement
	for rows.Next() {
		m, err := scanMovement(rows)
		if err != nil {
			return nil, fmt.Errorf("scan movement: %w", err)
		}
		movements = append(movements, *m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate movements: %w", err)
	}
	return movements, nil
}

// MarkTransferRevoked flips the revoked flag of a transfer. The WHERE clause
// guards the once-only rule even under concurrent revocation attempts.
func (r *MovementRepo) MarkTransferRevoked(ctx context.Context, id uuid.UUID) error {
	query := `UPDATE movements SET revoked = TRUE
		WHERE id = $1 AND kind = $2 AND revoked = FALSE`

	tag, err := r.pool.Exec(ctx, query, id, domain.MovementKindTransfer)
	if err != nil {
		return fmt.Errorf("mark transfer revoked: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("transfer not revocable: %s", id)
	}
	return nil
}
