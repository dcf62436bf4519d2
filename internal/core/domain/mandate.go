package domain

import (
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

var (
	errInvalidMandateAmount = errors.New("mandate amount must be positive with at most two decimal places")
	errInvalidPeriodicity   = errors.New("unknown mandate periodicity")
)

// Periodicity is the execution cadence of a standing-order mandate.
type Periodicity string

const (
	PeriodicityDaily   Periodicity = "DAILY"
	PeriodicityWeekly  Periodicity = "WEEKLY"
	PeriodicityMonthly Periodicity = "MONTHLY"
	PeriodicityYearly  Periodicity = "YEARLY"
)

// Mandate is a standing-order direct-debit authorization (domiciliación).
// Only the scheduler mutates LastExecutedAt (on success) and Active (on
// terminal insufficient-funds failure). An inactive mandate is permanently
// excluded from scheduling; there is no reactivation path.
type Mandate struct {
	ID             int64           `json:"id"`
	GUID           uuid.UUID       `json:"guid"`
	ClientGUID     uuid.UUID       `json:"client_guid"`
	CreditorName   string          `json:"creditor_name"`
	PayerIBAN      string          `json:"payer_iban"`
	PayeeIBAN      string          `json:"payee_iban"`
	Amount         decimal.Decimal `json:"amount"`
	Periodicity    Periodicity     `json:"periodicity"`
	Active         bool            `json:"active"`
	LastExecutedAt time.Time       `json:"last_executed_at"`
	CreatedAt      time.Time       `json:"created_at"`
	UpdatedAt      time.Time       `json:"updated_at"`
}

// NextExecutionAfter returns the earliest instant at which the mandate becomes
// due again, given its last execution. The second return is false for an
// unknown periodicity, which is never due.
func (m *Mandate) NextExecutionAfter(last time.Time) (time.Time, bool) {
	switch m.Periodicity {
	case PeriodicityDaily:
		return last.AddDate(0, 0, 1), true
	case PeriodicityWeekly:
		return last.AddDate(0, 0, 7), true
	case PeriodicityMonthly:
		return last.AddDate(0, 1, 0), true
	case PeriodicityYearly:
		return last.AddDate(1, 0, 0), true
	default:
		return time.Time{}, false
	}
}

// DueAt reports whether the mandate requires execution at the given instant.
// Pure function of the mandate and now; the scheduler injects now so the
// predicate stays testable without a clock.
func (m *Mandate) DueAt(now time.Time) bool {
	if !m.Active {
		return false
	}
	next, ok := m.NextExecutionAfter(m.LastExecutedAt)
	if !ok {
		return false
	}
	return next.Before(now)
}

// Validate checks the mandate's construction invariants.
func (m *Mandate) Validate() error {
	if !ValidAmount(m.Amount) {
		return errInvalidMandateAmount
	}
	if _, ok := m.NextExecutionAfter(time.Time{}); !ok {
		return errInvalidPeriodicity
	}
	return nil
}
