package domain

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Account represents a client's bank account. Balance is never negative after
// any committed operation; the account ledger service is the only writer.
type Account struct {
	ID          int64           `json:"id"`
	GUID        uuid.UUID       `json:"guid"`
	IBAN        string          `json:"iban"`
	Balance     decimal.Decimal `json:"balance"`
	ClientGUID  uuid.UUID       `json:"client_guid"`
	ProductGUID uuid.UUID       `json:"product_guid"`
	CreatedAt   time.Time       `json:"created_at"`
	UpdatedAt   time.Time       `json:"updated_at"`
}

// CanDebit returns true if the account holds at least the given amount.
func (a *Account) CanDebit(amount decimal.Decimal) bool {
	return a.Balance.GreaterThanOrEqual(amount)
}

// OwnedBy returns true if the account belongs to the given client.
func (a *Account) OwnedBy(clientGUID uuid.UUID) bool {
	return a.ClientGUID == clientGUID
}
