package domain

import (
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// MovementKind discriminates the four movement variants.
type MovementKind string

const (
	MovementKindDirectDebit   MovementKind = "DIRECT_DEBIT"
	MovementKindPayrollCredit MovementKind = "PAYROLL_CREDIT"
	MovementKindCardPayment   MovementKind = "CARD_PAYMENT"
	MovementKindTransfer      MovementKind = "TRANSFER"
)

var errMovementPayload = errors.New("movement must carry exactly one payload matching its kind")

// DirectDebit is a scheduled mandate execution debiting the payer account.
type DirectDebit struct {
	CreditorName string          `json:"creditor_name"`
	PayerIBAN    string          `json:"payer_iban"`
	PayeeIBAN    string          `json:"payee_iban"`
	Amount       decimal.Decimal `json:"amount"`
	MandateGUID  uuid.UUID       `json:"mandate_guid"`
}

// PayrollCredit is an employer-initiated salary credit.
type PayrollCredit struct {
	EmployerName  string          `json:"employer_name"`
	EmployerTaxID string          `json:"employer_tax_id"`
	EmployerIBAN  string          `json:"employer_iban"`
	EmployeeIBAN  string          `json:"employee_iban"`
	Amount        decimal.Decimal `json:"amount"`
}

// CardPayment is a card purchase debiting the card's account.
type CardPayment struct {
	CardNumber   string          `json:"card_number"`
	MerchantName string          `json:"merchant_name"`
	Amount       decimal.Decimal `json:"amount"`
}

// Transfer is a client-initiated movement between accounts. Revoked is the
// only field of any movement that may ever change, and only false -> true
// within the revocation window.
type Transfer struct {
	SourceIBAN      string          `json:"source_iban"`
	BeneficiaryName string          `json:"beneficiary_name"`
	DestinationIBAN string          `json:"destination_iban"`
	Amount          decimal.Decimal `json:"amount"`
	Revoked         bool            `json:"revoked"`
}

// Movement is an immutable ledger entry. Exactly one of the variant payloads
// is populated, matching Kind; the constructors enforce this and Validate
// re-checks it at the persistence boundary.
type Movement struct {
	ID         uuid.UUID    `json:"id"`
	ClientGUID uuid.UUID    `json:"client_guid"`
	Kind       MovementKind `json:"kind"`
	CreatedAt  time.Time    `json:"created_at"`

	DirectDebit   *DirectDebit   `json:"direct_debit,omitempty"`
	PayrollCredit *PayrollCredit `json:"payroll_credit,omitempty"`
	CardPayment   *CardPayment   `json:"card_payment,omitempty"`
	Transfer      *Transfer      `json:"transfer,omitempty"`
}

// NewDirectDebitMovement builds a direct-debit ledger entry.
func NewDirectDebitMovement(clientGUID uuid.UUID, payload DirectDebit, createdAt time.Time) *Movement {
	return &Movement{
		ID:          uuid.New(),
		ClientGUID:  clientGUID,
		Kind:        MovementKindDirectDebit,
		CreatedAt:   createdAt,
		DirectDebit: &payload,
	}
}

// NewPayrollCreditMovement builds a payroll-credit ledger entry.
func NewPayrollCreditMovement(clientGUID uuid.UUID, payload PayrollCredit, createdAt time.Time) *Movement {
	return &Movement{
		ID:            uuid.New(),
		ClientGUID:    clientGUID,
		Kind:          MovementKindPayrollCredit,
		CreatedAt:     createdAt,
		PayrollCredit: &payload,
	}
}

// NewCardPaymentMovement builds a card-payment ledger entry.
func NewCardPaymentMovement(clientGUID uuid.UUID, payload CardPayment, createdAt time.Time) *Movement {
	return &Movement{
		ID:          uuid.New(),
		ClientGUID:  clientGUID,
		Kind:        MovementKindCardPayment,
		CreatedAt:   createdAt,
		CardPayment: &payload,
	}
}

// NewTransferMovement builds a transfer ledger entry.
func NewTransferMovement(clientGUID uuid.UUID, payload Transfer, createdAt time.Time) *Movement {
	return &Movement{
		ID:         uuid.New(),
		ClientGUID: clientGUID,
		Kind:       MovementKindTransfer,
		CreatedAt:  createdAt,
		Transfer:   &payload,
	}
}

// Validate checks the exactly-one-payload invariant.
func (m *Movement) Validate() error {
	populated := 0
	if m.DirectDebit != nil {
		populated++
	}
	if m.PayrollCredit != nil {
		populated++
	}
	if m.CardPayment != nil {
		populated++
	}
	if m.Transfer != nil {
		populated++
	}
	if populated != 1 {
		return errMovementPayload
	}

	var kindMatches bool
	switch m.Kind {
	case MovementKindDirectDebit:
		kindMatches = m.DirectDebit != nil
	case MovementKindPayrollCredit:
		kindMatches = m.PayrollCredit != nil
	case MovementKindCardPayment:
		kindMatches = m.CardPayment != nil
	case MovementKindTransfer:
		kindMatches = m.Transfer != nil
	}
	if !kindMatches {
		return errMovementPayload
	}
	return nil
}

// Amount returns the monetary amount of whichever variant is populated.
func (m *Movement) Amount() decimal.Decimal {
	switch m.Kind {
	case MovementKindDirectDebit:
		if m.DirectDebit != nil {
			return m.DirectDebit.Amount
		}
	case MovementKindPayrollCredit:
		if m.PayrollCredit != nil {
			return m.PayrollCredit.Amount
		}
	case MovementKindCardPayment:
		if m.CardPayment != nil {
			return m.CardPayment.Amount
		}
	case MovementKindTransfer:
		if m.Transfer != nil {
			return m.Transfer.Amount
		}
	}
	return decimal.Zero
}

// IsTransfer reports whether the movement is a transfer entry.
func (m *Movement) IsTransfer() bool {
	return m.Kind == MovementKindTransfer && m.Transfer != nil
}

// WithinRevocationWindow reports whether a revocation attempted at now still
// falls inside the configured window measured from creation.
func (m *Movement) WithinRevocationWindow(now time.Time, window time.Duration) bool {
	return !now.After(m.CreatedAt.Add(window))
}
