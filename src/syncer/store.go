package syncer

import (
	cache "budget-server/src/db"
	db "budget-server/src/db/sql"
	"budget-server/src/models"
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PgStore is the PostgreSQL Store.
type PgStore struct {
	pool         *pgxpool.Pool
	demoUsername string
}

func NewPgStore(pool *pgxpool.Pool, demoUsername string) *PgStore {
	return &PgStore{pool: pool, demoUsername: demoUsername}
}

func (s *PgStore) BeginLeg(ctx context.Context, typ models.RecordType) (Leg, error) {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to begin %s transaction: %w", typ, err)
	}
	return &pgLeg{tx: tx, typ: typ, clearCache: clearCacheFor(typ)}, nil
}

func (s *PgStore) OpenSyncRun(ctx context.Context, typ models.RecordType, startedAt time.Time) (int64, error) {
	return db.OpenSyncRun(ctx, s.pool, typ, startedAt)
}

func (s *PgStore) CloseSyncRun(ctx context.Context, id int64, status models.SyncRunStatus, recordsSynced int64, errMsg *string, completedAt time.Time) error {
	return db.CloseSyncRun(ctx, s.pool, id, status, recordsSynced, errMsg, completedAt)
}

func (s *PgStore) IsDemoUser(ctx context.Context, userID int64) (bool, error) {
	username, err := db.GetUsernameByID(ctx, userID, s.pool)
	if err != nil {
		return false, err
	}
	return username == s.demoUsername, nil
}

func clearCacheFor(typ models.RecordType) func() {
	switch typ {
	case models.RecordTypeAccounts:
		return cache.ClearAllAccountCaches
	case models.RecordTypeTransactions:
		return cache.ClearAllTransactionCaches
	}
	return func() {}
}

// legTx is the part of pgx.Tx a leg needs. Begin on an open transaction
// starts a savepoint.
type legTx interface {
	Begin(ctx context.Context) (pgx.Tx, error)
	Commit(ctx context.Context) error
	Rollback(ctx context.Context) error
}

// pgLeg runs every upsert inside its own savepoint so a failed record rolls
// back alone and the transaction stays usable.
type pgLeg struct {
	tx         legTx
	typ        models.RecordType
	clearCache func()
}

func (l *pgLeg) UpsertAccount(ctx context.Context, acc *models.Account) (int64, error) {
	return l.inSavepoint(ctx, func(ex db.Execer) (int64, error) {
		return db.UpsertAccount(ctx, ex, acc)
	})
}

func (l *pgLeg) UpsertTransaction(ctx context.Context, txn *models.Transaction) (int64, error) {
	return l.inSavepoint(ctx, func(ex db.Execer) (int64, error) {
		return db.UpsertTransaction(ctx, ex, txn)
	})
}

func (l *pgLeg) inSavepoint(ctx context.Context, write func(db.Execer) (int64, error)) (int64, error) {
	sp, err := l.tx.Begin(ctx)
	if err != nil {
		return 0, abort(err)
	}

	n, err := write(sp)
	if err != nil {
		if rbErr := sp.Rollback(ctx); rbErr != nil {
			return 0, abort(errors.Join(err, rbErr))
		}
		return 0, err
	}

	if err := sp.Commit(ctx); err != nil {
		return 0, abort(err)
	}
	return n, nil
}

func (l *pgLeg) Commit(ctx context.Context) error {
	if err := l.tx.Commit(ctx); err != nil {
		return fmt.Errorf("failed to commit %s: %w", l.typ, err)
	}
	l.clearCache()
	return nil
}

// Rollback is a no-op once Commit has been attempted.
func (l *pgLeg) Rollback(ctx context.Context) error {
	if err := l.tx.Rollback(ctx); err != nil && !errors.Is(err, pgx.ErrTxClosed) {
		return err
	}
	return nil
}

func abort(err error) error {
	return fmt.Errorf("%w: %w", ErrBatchAborted, err)
}
