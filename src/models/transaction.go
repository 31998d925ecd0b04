package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Transaction.AccountID is the owning account's external (Plaid) account id,
// not the local numeric id. Joins with accounts go through plaid_account_id.
type Transaction struct {
	ID         int64               `json:"id"`
	AirtableID string              `json:"airtable_id"`
	Name       *string             `json:"name"`
	USD        decimal.NullDecimal `json:"usd"`
	Date       *time.Time          `json:"date"`
	Vendor     *string             `json:"vendor"`
	Notes      *string             `json:"notes"`
	AccountID  *string             `json:"account_id"`
	CreatedAt  time.Time           `json:"created_at"`
	UpdatedAt  time.Time           `json:"updated_at"`
}
