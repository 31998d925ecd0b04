package syncer

import (
	"budget-server/src/airtable"
	"budget-server/src/logger"
	"budget-server/src/models"
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// closeRunTimeout bounds the final sync_log update, which must run even when
// the leg's context has been cancelled.
const closeRunTimeout = 10 * time.Second

type Options struct {
	DefaultUserID int64
	// SerializeLegs makes concurrent legs of the same type wait for each other.
	SerializeLegs bool
	Prune         PruneOptions
	Now           func() time.Time
}

// Service runs sync cycles: accounts, then transactions, then retention.
type Service struct {
	source RecordSource
	store  Store
	writer *Writer
	pruner *Pruner
	now    func() time.Time

	serialize bool
	legLocks  map[models.RecordType]*sync.Mutex

	lastSync atomic.Pointer[time.Time]

	tracer  trace.Tracer
	metrics *metrics
}

func NewService(source RecordSource, store Store, opts Options) *Service {
	now := opts.Now
	if now == nil {
		now = time.Now
	}
	return &Service{
		source:    source,
		store:     store,
		writer:    NewWriter(opts.DefaultUserID),
		pruner:    NewPruner(source, opts.Prune, now),
		now:       now,
		serialize: opts.SerializeLegs,
		legLocks: map[models.RecordType]*sync.Mutex{
			models.RecordTypeAccounts:     {},
			models.RecordTypeTransactions: {},
		},
		tracer:  otel.Tracer(instrumentationName),
		metrics: defaultMetrics(),
	}
}

// LastSync returns when the last full cycle finished.
func (s *Service) LastSync() (time.Time, bool) {
	t := s.lastSync.Load()
	if t == nil {
		return time.Time{}, false
	}
	return *t, true
}

// SyncAllData runs one full cycle. A non-nil userID identifies a manual
// trigger; a demo caller gets a skipped result and nothing is touched.
func (s *Service) SyncAllData(ctx context.Context, userID *int64) CycleResult {
	log := logger.FromContext(ctx).With().Str("cycle_id", uuid.NewString()).Logger()
	ctx = logger.WithContext(ctx, log)

	if userID != nil {
		log = log.With().Int64("user_id", *userID).Logger()
		ctx = logger.WithContext(ctx, log)

		demo, err := s.store.IsDemoUser(ctx, *userID)
		if err != nil {
			log.Warn().Err(err).Msg("Failed to look up user, treating as non-demo")
		}
		if demo {
			log.Info().Msg("Skipping sync for demo user")
			return CycleResult{Accounts: skippedDemo(), Transactions: skippedDemo(), Cleanup: CleanupResult{Status: StatusSkipped, Reason: ReasonDemoUser}}
		}
	}

	start := s.now()
	ctx, span := s.tracer.Start(ctx, "sync.cycle")
	defer span.End()

	log.Info().Msg("Starting sync cycle")
	res := CycleResult{
		Accounts:     s.SyncAccounts(ctx),
		Transactions: s.SyncTransactions(ctx),
		Cleanup:      s.Prune(ctx),
	}

	finished := s.now()
	s.lastSync.Store(&finished)
	s.metrics.cycleDurations.Record(ctx, finished.Sub(start).Seconds())

	log.Info().
		Str("accounts", res.Accounts.Status).
		Str("transactions", res.Transactions.Status).
		Str("cleanup", res.Cleanup.Status).
		Msg("Sync cycle finished")
	return res
}

func (s *Service) SyncAccounts(ctx context.Context) LegResult {
	return s.runLeg(ctx, models.RecordTypeAccounts)
}

func (s *Service) SyncTransactions(ctx context.Context) LegResult {
	return s.runLeg(ctx, models.RecordTypeTransactions)
}

// Prune runs the retention pruner on its own.
func (s *Service) Prune(ctx context.Context) (res CleanupResult) {
	ctx, span := s.tracer.Start(ctx, "sync.prune")
	defer span.End()

	defer func() {
		if r := recover(); r != nil {
			log := logger.FromContext(ctx)
			log.Error().Interface("panic", r).Msg("Recovered panic during cleanup")
			res = CleanupResult{Status: StatusError, Message: fmt.Sprintf("panic during cleanup: %v", r)}
		}
		if res.Status == StatusError {
			span.SetStatus(codes.Error, res.Message)
		}
		if res.DeletedCount != nil {
			s.metrics.recordsPruned.Add(ctx, int64(*res.DeletedCount))
		}
	}()

	return s.pruner.PruneIfNeeded(ctx)
}

func (s *Service) runLeg(ctx context.Context, typ models.RecordType) LegResult {
	if s.serialize {
		mu := s.legLocks[typ]
		mu.Lock()
		defer mu.Unlock()
	}

	ctx, span := s.tracer.Start(ctx, "sync.leg", trace.WithAttributes(attribute.String("sync_type", string(typ))))
	defer span.End()

	log := logger.FromContext(ctx).With().Str("sync_type", string(typ)).Logger()
	ctx = logger.WithContext(ctx, log)

	runID, err := s.store.OpenSyncRun(ctx, typ, s.now())
	if err != nil {
		log.Error().Err(err).Msg("Failed to open sync run")
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		res := legError(err)
		s.metrics.recordLeg(ctx, string(typ), res)
		return res
	}

	synced, failed, err := s.applyLeg(ctx, typ)

	closeCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), closeRunTimeout)
	defer cancel()

	var res LegResult
	if err != nil {
		msg := err.Error()
		if cerr := s.store.CloseSyncRun(closeCtx, runID, models.SyncRunFailed, 0, &msg, s.now()); cerr != nil {
			log.Error().Err(cerr).Int64("sync_id", runID).Msg("Failed to close sync run")
		}
		log.Error().Err(err).Msg("Sync failed")
		span.RecordError(err)
		span.SetStatus(codes.Error, msg)
		res = legError(err)
	} else {
		if cerr := s.store.CloseSyncRun(closeCtx, runID, models.SyncRunCompleted, synced, nil, s.now()); cerr != nil {
			log.Error().Err(cerr).Int64("sync_id", runID).Msg("Failed to close sync run")
		}
		log.Info().Int64("records_synced", synced).Int("records_failed", failed).Msg("Synced records")
		res = legSuccess(typ, synced, failed)
	}

	s.metrics.recordLeg(ctx, string(typ), res)
	return res
}

// applyLeg writes every record of typ in one transaction. Record errors are
// counted and skipped; any other error rolls the whole leg back.
func (s *Service) applyLeg(ctx context.Context, typ models.RecordType) (synced int64, failed int, err error) {
	log := logger.FromContext(ctx)

	defer func() {
		if r := recover(); r != nil {
			log.Error().Interface("panic", r).Msg("Recovered panic during sync")
			synced, err = 0, fmt.Errorf("panic during %s sync: %v", typ, r)
		}
	}()

	records, err := s.source.ListRecords(ctx, typ)
	if err != nil {
		return 0, 0, fmt.Errorf("error fetching %s: %w", typ, err)
	}

	leg, err := s.store.BeginLeg(ctx, typ)
	if err != nil {
		return 0, 0, err
	}
	committed := false
	defer func() {
		if committed {
			return
		}
		rbCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), closeRunTimeout)
		defer cancel()
		if rbErr := leg.Rollback(rbCtx); rbErr != nil {
			log.Error().Err(rbErr).Msg("Failed to roll back sync transaction")
		}
	}()

	for _, rec := range records {
		if err := ctx.Err(); err != nil {
			return 0, failed, err
		}

		n, err := s.writer.Apply(ctx, leg, typ, airtable.CleanRecord(rec, false))
		if err != nil {
			var recErr *RecordError
			if errors.As(err, &recErr) {
				failed++
				log.Error().Err(recErr.Err).Str("record_id", recErr.RecordID).Str("op", recErr.Op).Msg("Failed to sync record")
				continue
			}
			return 0, failed, err
		}
		synced += n
	}

	if err := leg.Commit(ctx); err != nil {
		return 0, failed, err
	}
	committed = true
	return synced, failed, nil
}
