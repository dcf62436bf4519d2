package ports

import (
	"context"
	"time"

	"vives-backoffice/internal/core/domain"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"
)

//go:generate mockgen -source=repositories.go -destination=mocks/repositories.go -package=mocks

// AccountRepository defines persistence operations for accounts.
// Methods accepting pgx.Tx are used inside transaction blocks for pessimistic locking.
type AccountRepository interface {
	Create(ctx context.Context, account *domain.Account) error
	GetByGUID(ctx context.Context, guid uuid.UUID) (*domain.Account, error)
	GetByIBAN(ctx context.Context, iban string) (*domain.Account, error)
	GetByGUIDForUpdate(ctx context.Context, tx pgx.Tx, guid uuid.UUID) (*domain.Account, error)
	UpdateBalance(ctx context.Context, tx pgx.Tx, guid uuid.UUID, balance decimal.Decimal) error
}

// MandateRepository defines persistence operations for standing-order mandates.
type MandateRepository interface {
	Create(ctx context.Context, mandate *domain.Mandate) error
	GetByGUID(ctx context.Context, guid uuid.UUID) (*domain.Mandate, error)
	ListActive(ctx context.Context) ([]domain.Mandate, error)
	// UpdateExecution advances last_executed_at after a successful run.
	UpdateExecution(ctx context.Context, guid uuid.UUID, executedAt time.Time) error
	// Deactivate permanently excludes the mandate from scheduling.
	Deactivate(ctx context.Context, guid uuid.UUID) error
}

// MovementRepository defines persistence for the append-only movement ledger.
type MovementRepository interface {
	Create(ctx context.Context, movement *domain.Movement) error
	GetByID(ctx context.Context, id uuid.UUID) (*domain.Movement, error)
	ListByClient(ctx context.Context, clientGUID uuid.UUID, limit, offset int) ([]domain.Movement, error)
	// MarkTransferRevoked flips a transfer's revoked flag, the single
	// permitted mutation of a recorded movement.
	MarkTransferRevoked(ctx context.Context, id uuid.UUID) error
}

// DBTransactor provides database transaction management.
type DBTransactor interface {
	Begin(ctx context.Context) (pgx.Tx, error)
}

// HealthChecker reports connectivity of a backing dependency.
type HealthChecker interface {
	Ping(ctx context.Context) error
	Name() string
}
