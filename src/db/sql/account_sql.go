package db

import (
	"budget-server/src/models"
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
)

// UpsertAccount inserts the account or overwrites every mapped column of the
// row with the same airtable_id. It returns the number of rows written.
func UpsertAccount(ctx context.Context, db Execer, acc *models.Account) (int64, error) {
	query := `
		INSERT INTO accounts (airtable_id, institution, usd, last_successful_update, plaid_account_id, user_id)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (airtable_id) DO UPDATE SET
			institution = EXCLUDED.institution,
			usd = EXCLUDED.usd,
			last_successful_update = EXCLUDED.last_successful_update,
			plaid_account_id = EXCLUDED.plaid_account_id,
			user_id = EXCLUDED.user_id,
			updated_at = NOW()
	`

	tag, err := db.Exec(ctx, query,
		acc.AirtableID,
		acc.Institution,
		acc.USD,
		acc.LastSuccessfulUpdate,
		acc.PlaidAccountID,
		acc.UserID,
	)
	if err != nil {
		return 0, fmt.Errorf("failed to upsert account %s: %w", acc.AirtableID, err)
	}
	return tag.RowsAffected(), nil
}

func GetAccountsByUserID(ctx context.Context, pool *pgxpool.Pool, userID int64) ([]models.Account, error) {
	query := `
		SELECT id, airtable_id, institution, usd, last_successful_update, plaid_account_id, user_id, created_at, updated_at
		FROM accounts
		WHERE user_id = $1
		ORDER BY institution NULLS LAST, id
	`

	rows, err := pool.Query(ctx, query, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var accounts []models.Account
	for rows.Next() {
		var a models.Account
		err := rows.Scan(&a.ID, &a.AirtableID, &a.Institution, &a.USD, &a.LastSuccessfulUpdate, &a.PlaidAccountID, &a.UserID, &a.CreatedAt, &a.UpdatedAt)
		if err != nil {
			return nil, err
		}
		accounts = append(accounts, a)
	}

	return accounts, rows.Err()
}
