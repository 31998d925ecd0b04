package handlers

import (
	cache "budget-server/src/db"
	"budget-server/src/logger"
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
)

func ClearCache() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		log := logger.FromContext(r.Context())
		name := chi.URLParam(r, "cache_name")

		if err := cache.ClearCacheByName(name); err != nil {
			log.Error().Err(err).Str("cache_name", name).Msg("Failed to clear cache")
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}

		log.Info().Str("cache_name", name).Msg("Cache cleared")
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]string{
			"message": "cache cleared",
		})
	}
}
