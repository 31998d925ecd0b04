package handlers

import (
	cache "budget-server/src/db"
	db "budget-server/src/db/sql"
	"budget-server/src/logger"
	"budget-server/src/middleware"
	"budget-server/src/models"
	"budget-server/src/util"
	"encoding/json"
	"net/http"
	"strings"

	"github.com/jackc/pgx/v5/pgxpool"
	"golang.org/x/crypto/bcrypt"
)

func GetUser(pool *pgxpool.Pool) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		log := logger.FromContext(r.Context())
		userID, _ := middleware.UserID(r.Context())

		key := cache.UserCacheKey(userID)
		if cached, ok := cache.GetCache(key); ok {
			if user, ok := cached.(*models.User); ok {
				w.Header().Set("Content-Type", "application/json")
				json.NewEncoder(w).Encode(user)
				return
			}
		}

		gen := cache.UserCacheGeneration()
		user, err := db.GetUserByID(r.Context(), userID, pool)
		if err != nil {
			log.Error().Err(err).Int64("user_id", userID).Msg("Failed to get user")
			http.Error(w, "user not found", http.StatusNotFound)
			return
		}
		cache.SetUserCache(key, user, gen)

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(user)
	}
}

func UpdateEmail(pool *pgxpool.Pool) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		log := logger.FromContext(r.Context())
		userID, _ := middleware.UserID(r.Context())

		var req struct {
			Email string `json:"email"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			log.Error().Err(err).Msg("Failed to decode update email request body")
			http.Error(w, "invalid request", http.StatusBadRequest)
			return
		}

		email := strings.ToLower(strings.TrimSpace(req.Email))
		if !util.ValidateEmail(email) {
			log.Error().Str("email", req.Email).Int64("user_id", userID).Msg("Email validation failed during user update")
			http.Error(w, "invalid email format", http.StatusBadRequest)
			return
		}

		if err := db.UpdateUserEmail(r.Context(), userID, email, pool); err != nil {
			log.Error().Err(err).Int64("user_id", userID).Msg("Failed to update user email")
			http.Error(w, "internal error", http.StatusInternalServerError)
			return
		}
		cache.DelUserCache(cache.UserCacheKey(userID))

		log.Info().Int64("user_id", userID).Msg("User email updated")

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]string{
			"message": "email updated successfully",
		})
	}
}

func ChangePassword(pool *pgxpool.Pool) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		log := logger.FromContext(r.Context())
		userID, _ := middleware.UserID(r.Context())

		var req struct {
			CurrentPassword string `json:"current_password"`
			NewPassword     string `json:"new_password"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			log.Error().Err(err).Msg("Failed to decode change password request body")
			http.Error(w, "invalid request", http.StatusBadRequest)
			return
		}

		if !util.ValidatePassword(req.NewPassword) {
			log.Error().Int64("user_id", userID).Msg("Password validation failed during change password")
			http.Error(w, "password must be at least 8 characters with uppercase, lowercase, digit, and special character", http.StatusBadRequest)
			return
		}

		user, err := db.GetUserByID(r.Context(), userID, pool)
		if err != nil {
			log.Error().Err(err).Int64("user_id", userID).Msg("Failed to get user for password change")
			http.Error(w, "user not found", http.StatusNotFound)
			return
		}

		if err := bcrypt.CompareHashAndPassword(user.PasswordHash, []byte(req.CurrentPassword)); err != nil {
			log.Error().Int64("user_id", userID).Msg("Invalid current password attempt")
			http.Error(w, "current password is incorrect", http.StatusUnauthorized)
			return
		}

		hashedPassword, err := bcrypt.GenerateFromPassword([]byte(req.NewPassword), bcrypt.DefaultCost)
		if err != nil {
			log.Error().Err(err).Int64("user_id", userID).Msg("Failed to hash new password")
			http.Error(w, "internal error", http.StatusInternalServerError)
			return
		}

		if err := db.UpdateUserPassword(r.Context(), userID, hashedPassword, pool); err != nil {
			log.Error().Err(err).Int64("user_id", userID).Msg("Failed to update user password")
			http.Error(w, "internal error", http.StatusInternalServerError)
			return
		}
		cache.DelUserCache(cache.UserCacheKey(userID))

		log.Info().Int64("user_id", userID).Msg("User password changed")

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]string{
			"message": "password changed successfully",
		})
	}
}
