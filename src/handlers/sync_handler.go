package handlers

import (
	db "budget-server/src/db/sql"
	"budget-server/src/logger"
	"budget-server/src/middleware"
	"budget-server/src/models"
	"budget-server/src/syncer"
	"context"
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/jackc/pgx/v5/pgxpool"
)

const maxSyncHistoryLimit = 200

// SyncEngine is the part of the sync service the HTTP layer drives.
type SyncEngine interface {
	SyncAllData(ctx context.Context, userID *int64) syncer.CycleResult
	Prune(ctx context.Context) syncer.CleanupResult
}

type SyncStatusReporter interface {
	Status() syncer.Status
}

// TriggerSync runs a full cycle for the caller. Errors are reported inside the
// result, so the response is always 200.
func TriggerSync(engine SyncEngine) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		log := logger.FromContext(r.Context())
		userID, _ := middleware.UserID(r.Context())

		log.Info().Int64("user_id", userID).Msg("Manual sync triggered")
		// A dropped client must not abort a leg half way.
		result := engine.SyncAllData(context.WithoutCancel(r.Context()), &userID)

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(result)
	}
}

func SyncStatus(reporter SyncStatusReporter) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(reporter.Status())
	}
}

func PruneSource(engine SyncEngine) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		log := logger.FromContext(r.Context())
		log.Info().Str("username", middleware.Username(r.Context())).Msg("Manual cleanup triggered")

		result := engine.Prune(context.WithoutCancel(r.Context()))

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(result)
	}
}

// parseHistoryQuery reads ?type= and ?limit= for SyncHistory.
func parseHistoryQuery(r *http.Request) (models.RecordType, int, string) {
	typ := models.RecordType(r.URL.Query().Get("type"))
	switch typ {
	case "", models.RecordTypeAccounts, models.RecordTypeTransactions:
	default:
		return "", 0, "type must be accounts or transactions"
	}

	limit := db.DefaultSyncHistoryLimit
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 || n > maxSyncHistoryLimit {
			return "", 0, "limit must be between 1 and 200"
		}
		limit = n
	}
	return typ, limit, ""
}

func SyncHistory(pool *pgxpool.Pool) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		log := logger.FromContext(r.Context())

		typ, limit, msg := parseHistoryQuery(r)
		if msg != "" {
			http.Error(w, msg, http.StatusBadRequest)
			return
		}

		runs, err := db.ListSyncRuns(r.Context(), pool, typ, limit)
		if err != nil {
			log.Error().Err(err).Msg("Failed to get sync history")
			http.Error(w, "Failed to retrieve sync history", http.StatusInternalServerError)
			return
		}
		if runs == nil {
			runs = []models.SyncRun{}
		}

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(runs)
	}
}
