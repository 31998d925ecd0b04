package db

import (
	"budget-server/src/models"
	"context"
	"fmt"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/jackc/pgx/v5/pgxpool"
)

const DefaultSyncHistoryLimit = 20

func OpenSyncRun(ctx context.Context, pool *pgxpool.Pool, syncType models.RecordType, startedAt time.Time) (int64, error) {
	query := `
		INSERT INTO sync_log (sync_type, started_at, status)
		VALUES ($1, $2, $3)
		RETURNING id
	`

	var id int64
	err := pool.QueryRow(ctx, query, string(syncType), startedAt, string(models.SyncRunRunning)).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("failed to open sync run: %w", err)
	}
	return id, nil
}

func CloseSyncRun(ctx context.Context, db Execer, id int64, status models.SyncRunStatus, recordsSynced int64, errMsg *string, completedAt time.Time) error {
	query := `
		UPDATE sync_log
		SET completed_at = $2, records_synced = $3, status = $4, error_message = $5
		WHERE id = $1
	`

	tag, err := db.Exec(ctx, query, id, completedAt, recordsSynced, string(status), errMsg)
	if err != nil {
		return fmt.Errorf("failed to close sync run %d: %w", id, err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("sync run %d not found", id)
	}
	return nil
}

func buildSyncRunsQuery(syncType models.RecordType, limit int) (string, []interface{}, error) {
	if limit <= 0 {
		limit = DefaultSyncHistoryLimit
	}
	q := sq.StatementBuilder.PlaceholderFormat(sq.Dollar).
		Select("id", "sync_type", "started_at", "completed_at", "status", "records_synced", "error_message").
		From("sync_log").
		OrderBy("started_at DESC", "id DESC").
		Limit(uint64(limit))
	if syncType != "" {
		q = q.Where(sq.Eq{"sync_type": string(syncType)})
	}
	return q.ToSql()
}

// ListSyncRuns returns the most recent runs, optionally of a single type.
func ListSyncRuns(ctx context.Context, pool *pgxpool.Pool, syncType models.RecordType, limit int) ([]models.SyncRun, error) {
	query, args, err := buildSyncRunsQuery(syncType, limit)
	if err != nil {
		return nil, err
	}

	rows, err := pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var runs []models.SyncRun
	for rows.Next() {
		var r models.SyncRun
		var syncTypeCol, status string
		if err := rows.Scan(&r.ID, &syncTypeCol, &r.StartedAt, &r.CompletedAt, &status, &r.RecordsSynced, &r.ErrorMessage); err != nil {
			return nil, err
		}
		r.SyncType = models.RecordType(syncTypeCol)
		r.Status = models.SyncRunStatus(status)
		runs = append(runs, r)
	}

	return runs, rows.Err()
}
