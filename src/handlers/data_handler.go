package handlers

import (
	cache "budget-server/src/db"
	db "budget-server/src/db/sql"
	"budget-server/src/logger"
	"budget-server/src/middleware"
	"budget-server/src/models"
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/jackc/pgx/v5/pgxpool"
)

const (
	defaultTransactionLimit = 100
	maxTransactionLimit     = 1000
)

func GetAccounts(pool *pgxpool.Pool) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		log := logger.FromContext(r.Context())
		userID, _ := middleware.UserID(r.Context())

		key := cache.AccountsCacheKey(userID)
		if cached, ok := cache.GetCache(key); ok {
			if accounts, ok := cached.([]models.Account); ok {
				w.Header().Set("Content-Type", "application/json")
				json.NewEncoder(w).Encode(accounts)
				return
			}
		}

		gen := cache.AccountCacheGeneration()
		accounts, err := db.GetAccountsByUserID(r.Context(), pool, userID)
		if err != nil {
			log.Error().Err(err).Int64("user_id", userID).Msg("Failed to get accounts")
			http.Error(w, "Failed to retrieve accounts", http.StatusInternalServerError)
			return
		}
		if accounts == nil {
			accounts = []models.Account{}
		}
		cache.SetAccountCache(key, accounts, gen)

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(accounts)
	}
}

func GetTransactions(pool *pgxpool.Pool) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		log := logger.FromContext(r.Context())

		limit := defaultTransactionLimit
		if raw := r.URL.Query().Get("limit"); raw != "" {
			n, err := strconv.Atoi(raw)
			if err != nil || n <= 0 || n > maxTransactionLimit {
				http.Error(w, "limit must be between 1 and 1000", http.StatusBadRequest)
				return
			}
			limit = n
		}

		key := cache.TransactionsCacheKey(limit)
		if cached, ok := cache.GetCache(key); ok {
			if transactions, ok := cached.([]models.Transaction); ok {
				w.Header().Set("Content-Type", "application/json")
				json.NewEncoder(w).Encode(transactions)
				return
			}
		}

		gen := cache.TransactionCacheGeneration()
		transactions, err := db.GetTransactions(r.Context(), pool, limit)
		if err != nil {
			log.Error().Err(err).Msg("Failed to get transactions")
			http.Error(w, "Failed to retrieve transactions", http.StatusInternalServerError)
			return
		}
		if transactions == nil {
			transactions = []models.Transaction{}
		}
		cache.SetTransactionCache(key, transactions, gen)

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(transactions)
	}
}
