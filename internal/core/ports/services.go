package ports

import (
	"context"
	"time"

	"vives-backoffice/internal/core/domain"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

//go:generate mockgen -source=services.go -destination=mocks/services.go -package=mocks

// AccountLedger is the only code path permitted to change an account balance.
type AccountLedger interface {
	// AdjustBalance applies delta to the account's balance inside a single
	// all-or-nothing transaction and returns the new balance. A delta that
	// would drive the balance negative fails with insufficient funds and
	// leaves the balance unchanged.
	AdjustBalance(ctx context.Context, accountGUID uuid.UUID, delta decimal.Decimal) (decimal.Decimal, error)
}

// MovementService validates and records financial movements as single units
// of work, shared by the mandate scheduler and manually-initiated operations.
type MovementService interface {
	RecordDirectDebitExecution(ctx context.Context, mandate *domain.Mandate, now time.Time) (*domain.Movement, error)
	CreateTransfer(ctx context.Context, req TransferRequest) (*domain.Movement, error)
	RevokeTransfer(ctx context.Context, movementID, clientGUID uuid.UUID) (*domain.Movement, error)
	RecordCardPayment(ctx context.Context, req CardPaymentRequest) (*domain.Movement, error)
	RecordPayrollCredit(ctx context.Context, req PayrollCreditRequest) (*domain.Movement, error)
	GetMovement(ctx context.Context, id uuid.UUID) (*domain.Movement, error)
}

// TransferRequest holds validated input for a client-initiated transfer.
type TransferRequest struct {
	ClientGUID      uuid.UUID
	SourceIBAN      string
	DestinationIBAN string
	BeneficiaryName string
	Amount          decimal.Decimal
}

// CardPaymentRequest holds input for recording a card purchase.
type CardPaymentRequest struct {
	ClientGUID   uuid.UUID
	AccountIBAN  string
	CardNumber   string
	MerchantName string
	Amount       decimal.Decimal
}

// PayrollCreditRequest holds input for an employer-initiated salary credit.
type PayrollCreditRequest struct {
	EmployeeIBAN  string
	EmployerName  string
	EmployerTaxID string
	EmployerIBAN  string
	Amount        decimal.Decimal
}
