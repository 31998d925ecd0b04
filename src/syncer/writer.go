package syncer

import (
	"budget-server/src/airtable"
	"budget-server/src/models"
	"context"
	"errors"
	"fmt"
)

// Writer maps cleaned records onto the relational model and upserts them
// through an open Leg.
type Writer struct {
	defaultUserID int64
}

func NewWriter(defaultUserID int64) *Writer {
	return &Writer{defaultUserID: defaultUserID}
}

// Apply upserts one record and returns the rows written. Failures confined
// to the record are *RecordError; anything else means the leg must abort.
func (w *Writer) Apply(ctx context.Context, leg Leg, typ models.RecordType, rec airtable.Record) (int64, error) {
	var (
		n   int64
		err error
	)
	switch typ {
	case models.RecordTypeAccounts:
		acc, perr := accountFromRecord(ctx, rec, w.defaultUserID)
		if perr != nil {
			return 0, perr
		}
		n, err = leg.UpsertAccount(ctx, acc)
	case models.RecordTypeTransactions:
		txn, perr := transactionFromRecord(rec)
		if perr != nil {
			return 0, perr
		}
		n, err = leg.UpsertTransaction(ctx, txn)
	default:
		return 0, fmt.Errorf("invalid record type: %q", typ)
	}

	if err == nil {
		return n, nil
	}
	if errors.Is(err, ErrBatchAborted) || errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return 0, err
	}
	return 0, &RecordError{RecordID: rec.ID, Op: "write", Err: err}
}
