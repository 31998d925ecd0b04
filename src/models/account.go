package models

import (
	"time"

	"github.com/shopspring/decimal"
)

type Account struct {
	ID                   int64               `json:"id"`
	AirtableID           string              `json:"airtable_id"`
	Institution          *string             `json:"institution"`
	USD                  decimal.NullDecimal `json:"usd"`
	LastSuccessfulUpdate *time.Time          `json:"last_successful_update"`
	PlaidAccountID       *string             `json:"plaid_account_id"`
	UserID               int64               `json:"user_id"`
	CreatedAt            time.Time           `json:"created_at"`
	UpdatedAt            time.Time           `json:"updated_at"`
}
