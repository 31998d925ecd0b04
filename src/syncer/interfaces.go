package syncer

import (
	"budget-server/src/airtable"
	"budget-server/src/models"
	"context"
	"errors"
	"fmt"
	"time"
)

// RecordSource is the external table store records are read from and
// pruned in.
type RecordSource interface {
	ListRecords(ctx context.Context, typ models.RecordType) ([]airtable.Record, error)
	DeleteRecords(ctx context.Context, typ models.RecordType, ids []string) error
}

// Store is the relational side of a sync.
type Store interface {
	// BeginLeg opens the single transaction a leg's writes go through.
	BeginLeg(ctx context.Context, typ models.RecordType) (Leg, error)
	OpenSyncRun(ctx context.Context, typ models.RecordType, startedAt time.Time) (int64, error)
	CloseSyncRun(ctx context.Context, id int64, status models.SyncRunStatus, recordsSynced int64, errMsg *string, completedAt time.Time) error
	IsDemoUser(ctx context.Context, userID int64) (bool, error)
}

// Leg is one open transaction. A failed upsert must leave the transaction
// usable for the next record; when that is impossible the upsert returns
// ErrBatchAborted.
type Leg interface {
	UpsertAccount(ctx context.Context, acc *models.Account) (int64, error)
	UpsertTransaction(ctx context.Context, txn *models.Transaction) (int64, error)
	Commit(ctx context.Context) error
	Rollback(ctx context.Context) error
}

// ErrBatchAborted means the leg transaction can no longer accept writes.
var ErrBatchAborted = errors.New("sync batch aborted")

// RecordError is a failure confined to one record; the leg carries on.
type RecordError struct {
	RecordID string
	Op       string // "parse" or "write"
	Err      error
}

func (e *RecordError) Error() string {
	return fmt.Sprintf("record %s: %s: %v", e.RecordID, e.Op, e.Err)
}

func (e *RecordError) Unwrap() error { return e.Err }
