package handlers

import (
	db "budget-server/src/db/sql"
	"budget-server/src/logger"
	"budget-server/src/models"
	"budget-server/src/util"
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"golang.org/x/crypto/bcrypt"
)

const tokenLifetime = 168 * time.Hour

func issueToken(secret string, userID int64, username string, superAdmin bool) (string, error) {
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"user_id":     userID,
		"username":    username,
		"super_admin": superAdmin,
		"exp":         time.Now().Add(tokenLifetime).Unix(),
	})
	return token.SignedString([]byte(secret))
}

// validateRegistration returns the message for the first failed rule.
func validateRegistration(req models.RegisterRequest) (string, bool) {
	if !util.ValidateEmail(req.Email) {
		return "invalid email format", false
	}
	if !util.ValidateUsername(req.Username) {
		return "username must be between 3 and 30 characters", false
	}
	if !util.ValidatePassword(req.Password) {
		return "password must be at least 8 characters with uppercase, lowercase, digit, and special character", false
	}
	return "", true
}

func Register(pool *pgxpool.Pool, secret string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		log := logger.FromContext(r.Context())

		var req models.RegisterRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			log.Error().Err(err).Msg("Failed to decode register request body")
			http.Error(w, "invalid request", http.StatusBadRequest)
			return
		}

		req.Email = strings.ToLower(strings.TrimSpace(req.Email))
		req.Username = strings.ToLower(strings.TrimSpace(req.Username))

		if msg, ok := validateRegistration(req); !ok {
			log.Error().Str("username", req.Username).Msg("Registration validation failed: " + msg)
			http.Error(w, msg, http.StatusBadRequest)
			return
		}

		hashedPassword, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
		if err != nil {
			log.Error().Err(err).Str("username", req.Username).Msg("Failed to hash password")
			http.Error(w, "internal error", http.StatusInternalServerError)
			return
		}

		resp, err := db.CreateUser(r.Context(), req, hashedPassword, pool)
		if err != nil {
			// Handle duplicate key
			if strings.Contains(err.Error(), "duplicate key") {
				log.Error().Str("email", req.Email).Str("username", req.Username).Msg("Registration failed - email or username already exists")
				http.Error(w, "email or username already exists", http.StatusConflict)
				return
			}
			log.Error().Err(err).Str("username", req.Username).Msg("Failed to create user")
			http.Error(w, "internal error", http.StatusInternalServerError)
			return
		}

		log.Info().Str("username", resp.Username).Int64("user_id", resp.ID).Msg("Successful registration")

		tokenString, err := issueToken(secret, resp.ID, resp.Username, resp.SuperAdmin)
		if err != nil {
			log.Error().Err(err).Str("username", resp.Username).Msg("Failed to generate JWT token")
			http.Error(w, "Error generating token", http.StatusInternalServerError)
			return
		}

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusCreated)
		json.NewEncoder(w).Encode(map[string]string{
			"token": tokenString,
		})
	}
}

func Login(pool *pgxpool.Pool, secret string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		log := logger.FromContext(r.Context())

		var credentials struct {
			UsernameOrEmail string `json:"username"`
			Password        string `json:"password"`
		}

		if err := json.NewDecoder(r.Body).Decode(&credentials); err != nil {
			log.Error().Err(err).Msg("Failed to decode login request body")
			http.Error(w, "invalid request", http.StatusBadRequest)
			return
		}

		name := strings.ToLower(strings.TrimSpace(credentials.UsernameOrEmail))
		user, err := db.GetUserByUsername(r.Context(), name, pool)
		if err != nil {
			user, err = db.GetUserByEmail(r.Context(), name, pool)
			if err != nil {
				log.Error().Err(err).Str("username", credentials.UsernameOrEmail).Msg("Failed to find user during login")
				http.Error(w, "User not found", http.StatusUnauthorized)
				return
			}
		}

		if err := bcrypt.CompareHashAndPassword(user.PasswordHash, []byte(credentials.Password)); err != nil {
			log.Error().Str("username", credentials.UsernameOrEmail).Str("remote_addr", r.RemoteAddr).Msg("Invalid password attempt")
			http.Error(w, "Invalid credentials", http.StatusUnauthorized)
			return
		}

		tokenString, err := issueToken(secret, user.ID, user.Username, user.SuperAdmin)
		if err != nil {
			log.Error().Err(err).Str("username", user.Username).Msg("Failed to generate JWT token")
			http.Error(w, "Error generating token", http.StatusInternalServerError)
			return
		}

		if err := db.UpdateUserLastLogin(r.Context(), user.ID, pool); err != nil {
			log.Error().Err(err).Str("username", user.Username).Msg("Failed to update last_login")
		}

		log.Info().Str("username", user.Username).Int64("user_id", user.ID).Msg("Successful login")

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]string{
			"token": tokenString,
		})
	}
}
