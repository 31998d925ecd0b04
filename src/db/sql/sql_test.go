package db

import (
	"budget-server/src/models"
	"context"
	"errors"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type call struct {
	sql  string
	args []any
}

type fakeExecer struct {
	calls []call
	tag   string
	err   error
}

func (f *fakeExecer) Exec(_ context.Context, sql string, args ...any) (pgconn.CommandTag, error) {
	f.calls = append(f.calls, call{sql: sql, args: args})
	if f.err != nil {
		return pgconn.CommandTag{}, f.err
	}
	return pgconn.NewCommandTag(f.tag), nil
}

func strPtr(s string) *string { return &s }

func TestUpsertAccountBindsEveryColumn(t *testing.T) {
	ex := &fakeExecer{tag: "INSERT 0 1"}
	acc := &models.Account{
		AirtableID:     "recA",
		Institution:    strPtr("Chase"),
		USD:            decimal.NewNullDecimal(decimal.RequireFromString("1500.25")),
		PlaidAccountID: strPtr("acc_1"),
		UserID:         1,
	}

	n, err := UpsertAccount(context.Background(), ex, acc)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	require.Len(t, ex.calls, 1)
	assert.Contains(t, ex.calls[0].sql, "ON CONFLICT (airtable_id) DO UPDATE")
	assert.Contains(t, ex.calls[0].sql, "updated_at = NOW()")
	assert.Equal(t, "recA", ex.calls[0].args[0])
	assert.Equal(t, acc.USD, ex.calls[0].args[2])
	assert.Equal(t, int64(1), ex.calls[0].args[5])
}

func TestUpsertTransactionWrapsErrors(t *testing.T) {
	cause := errors.New("violates foreign key constraint")
	ex := &fakeExecer{err: cause}

	_, err := UpsertTransaction(context.Background(), ex, &models.Transaction{AirtableID: "recT"})
	require.Error(t, err)
	assert.ErrorIs(t, err, cause)
	assert.Contains(t, err.Error(), "recT")
}

func TestUpsertTransactionOverwritesMappedColumns(t *testing.T) {
	ex := &fakeExecer{tag: "INSERT 0 1"}
	_, err := UpsertTransaction(context.Background(), ex, &models.Transaction{AirtableID: "recT"})
	require.NoError(t, err)

	for _, col := range []string{"name", "usd", "date", "vendor", "notes", "account_id"} {
		assert.Contains(t, ex.calls[0].sql, col+" = EXCLUDED."+col)
	}
}

func TestCloseSyncRun(t *testing.T) {
	ex := &fakeExecer{tag: "UPDATE 1"}
	done := time.Date(2024, 3, 4, 10, 0, 0, 0, time.UTC)

	err := CloseSyncRun(context.Background(), ex, 42, models.SyncRunCompleted, 9, nil, done)
	require.NoError(t, err)
	assert.Equal(t, []any{int64(42), done, int64(9), "completed", (*string)(nil)}, ex.calls[0].args)

	missing := &fakeExecer{tag: "UPDATE 0"}
	err = CloseSyncRun(context.Background(), missing, 43, models.SyncRunFailed, 0, strPtr("boom"), done)
	assert.ErrorContains(t, err, "not found")
}

func TestUpdateUserReportsMissingRow(t *testing.T) {
	ex := &fakeExecer{tag: "UPDATE 0"}
	err := UpdateUserEmail(context.Background(), 7, "a@example.com", ex)
	assert.ErrorIs(t, err, ErrUserNotFound)
}

func TestBuildSyncRunsQuery(t *testing.T) {
	query, args, err := buildSyncRunsQuery("", 0)
	require.NoError(t, err)
	assert.Equal(t, "SELECT id, sync_type, started_at, completed_at, status, records_synced, error_message FROM sync_log ORDER BY started_at DESC, id DESC LIMIT 20", query)
	assert.Empty(t, args)

	query, args, err = buildSyncRunsQuery(models.RecordTypeAccounts, 5)
	require.NoError(t, err)
	assert.Equal(t, "SELECT id, sync_type, started_at, completed_at, status, records_synced, error_message FROM sync_log WHERE sync_type = $1 ORDER BY started_at DESC, id DESC LIMIT 5", query)
	assert.Equal(t, []interface{}{"accounts"}, args)
}
