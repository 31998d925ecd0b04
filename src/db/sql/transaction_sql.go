package db

import (
	"budget-server/src/models"
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
)

// UpsertTransaction inserts the transaction or overwrites every mapped column
// of the row with the same airtable_id. It returns the number of rows written.
func UpsertTransaction(ctx context.Context, db Execer, txn *models.Transaction) (int64, error) {
	query := `
		INSERT INTO transactions (airtable_id, name, usd, date, vendor, notes, account_id)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (airtable_id) DO UPDATE SET
			name = EXCLUDED.name,
			usd = EXCLUDED.usd,
			date = EXCLUDED.date,
			vendor = EXCLUDED.vendor,
			notes = EXCLUDED.notes,
			account_id = EXCLUDED.account_id,
			updated_at = NOW()
	`

	tag, err := db.Exec(ctx, query,
		txn.AirtableID,
		txn.Name,
		txn.USD,
		txn.Date,
		txn.Vendor,
		txn.Notes,
		txn.AccountID,
	)
	if err != nil {
		return 0, fmt.Errorf("failed to upsert transaction %s: %w", txn.AirtableID, err)
	}
	return tag.RowsAffected(), nil
}

// GetTransactions returns the newest transactions first.
func GetTransactions(ctx context.Context, pool *pgxpool.Pool, limit int) ([]models.Transaction, error) {
	query := `
		SELECT id, airtable_id, name, usd, date, vendor, notes, account_id, created_at, updated_at
		FROM transactions
		ORDER BY date DESC NULLS LAST, id DESC
		LIMIT $1
	`

	rows, err := pool.Query(ctx, query, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var transactions []models.Transaction
	for rows.Next() {
		var t models.Transaction
		err := rows.Scan(&t.ID, &t.AirtableID, &t.Name, &t.USD, &t.Date, &t.Vendor, &t.Notes, &t.AccountID, &t.CreatedAt, &t.UpdatedAt)
		if err != nil {
			return nil, err
		}
		transactions = append(transactions, t)
	}

	return transactions, rows.Err()
}
