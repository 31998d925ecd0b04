package syncer

import (
	"budget-server/src/airtable"
	"budget-server/src/logger"
	"budget-server/src/models"
	"context"
	"fmt"
	"time"
)

// PruneOptions bound the size of the external transactions table.
type PruneOptions struct {
	Threshold       int
	RetentionMonths int
	// DaysPerMonth approximates a month; the cutoff is not calendar-aware.
	DaysPerMonth int
}

func DefaultPruneOptions() PruneOptions {
	return PruneOptions{Threshold: 800, RetentionMonths: 4, DaysPerMonth: 30}
}

// Pruner deletes old transactions from the source once it grows past the
// threshold. Local rows are never touched.
type Pruner struct {
	source    RecordSource
	opts      PruneOptions
	batchSize int
	now       func() time.Time
}

func NewPruner(source RecordSource, opts PruneOptions, now func() time.Time) *Pruner {
	if now == nil {
		now = time.Now
	}
	return &Pruner{source: source, opts: opts, batchSize: airtable.MaxBatchDelete, now: now}
}

// Retention returns the age past which a transaction is eligible for deletion.
func (p *Pruner) Retention() time.Duration {
	return time.Duration(p.opts.RetentionMonths*p.opts.DaysPerMonth) * 24 * time.Hour
}

// PruneIfNeeded never returns an error: failures are reported in the result.
func (p *Pruner) PruneIfNeeded(ctx context.Context) CleanupResult {
	log := logger.FromContext(ctx)

	records, err := p.source.ListRecords(ctx, models.RecordTypeTransactions)
	if err != nil {
		log.Error().Err(err).Msg("Failed to list transactions for cleanup")
		return CleanupResult{Status: StatusError, Message: err.Error()}
	}

	count := len(records)
	log.Info().Int("current_count", count).Msg("Current source record count")
	if count <= p.opts.Threshold {
		return CleanupResult{
			Status:       StatusSkipped,
			Reason:       ReasonBelowThreshold,
			CurrentCount: intPtr(count),
			Threshold:    intPtr(p.opts.Threshold),
		}
	}

	cutoff := p.now().Add(-p.Retention())
	log.Info().Time("cutoff", cutoff).Msg("Cleaning up records older than cutoff")

	expired := p.expiredIDs(ctx, records, cutoff)

	deleted := 0
	for start := 0; start < len(expired); start += p.batchSize {
		end := min(start+p.batchSize, len(expired))
		batch := expired[start:end]
		if err := p.source.DeleteRecords(ctx, models.RecordTypeTransactions, batch); err != nil {
			log.Error().Err(err).Int("deleted_count", deleted).Msg("Cleanup error")
			return CleanupResult{
				Status:       StatusError,
				Message:      fmt.Sprintf("deleted %d of %d records: %v", deleted, len(expired), err),
				DeletedCount: intPtr(deleted),
			}
		}
		deleted += len(batch)
		log.Info().Int("batch_size", len(batch)).Msg("Deleted batch of records")
	}

	remaining := count - deleted
	log.Info().Int("deleted_count", deleted).Int("remaining_count", remaining).Msg("Cleanup complete")

	res := CleanupResult{
		Status:         StatusSuccess,
		DeletedCount:   intPtr(deleted),
		RemainingCount: intPtr(remaining),
		CutoffDate:     cutoff.Format(time.RFC3339),
	}
	if deleted == 0 {
		res.Reason = ReasonNoneExpired
	}
	return res
}

// expiredIDs selects records whose Date is strictly before cutoff. Records
// without a parseable Date are kept.
func (p *Pruner) expiredIDs(ctx context.Context, records []airtable.Record, cutoff time.Time) []string {
	log := logger.FromContext(ctx)

	var ids []string
	for _, rec := range records {
		clean := airtable.CleanRecord(rec, false)
		raw, ok := clean.Fields[airtable.FieldDate].(string)
		if !ok || raw == "" {
			continue
		}
		date, ok := parseInstant(raw)
		if !ok {
			log.Info().Str("record_id", rec.ID).Str("date", raw).Msg("Date parsing error, keeping record")
			continue
		}
		if date.Before(cutoff) {
			ids = append(ids, rec.ID)
		}
	}
	return ids
}
