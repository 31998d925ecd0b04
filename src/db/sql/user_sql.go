package db

import (
	"budget-server/src/models"
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

var ErrUserNotFound = errors.New("user not found")

const userColumns = `id, username, email, password_hash, super_admin, last_login, created_at`

func scanUser(row pgx.Row) (*models.User, error) {
	var user models.User
	err := row.Scan(
		&user.ID,
		&user.Username,
		&user.Email,
		&user.PasswordHash,
		&user.SuperAdmin,
		&user.LastLogin,
		&user.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("query error: %w", err)
	}
	return &user, nil
}

func GetUserByID(ctx context.Context, id int64, pool *pgxpool.Pool) (*models.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE id = $1`
	return scanUser(pool.QueryRow(ctx, query, id))
}

func GetUserByUsername(ctx context.Context, username string, pool *pgxpool.Pool) (*models.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE username = $1`
	return scanUser(pool.QueryRow(ctx, query, username))
}

func GetUserByEmail(ctx context.Context, email string, pool *pgxpool.Pool) (*models.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE email = $1`
	return scanUser(pool.QueryRow(ctx, query, email))
}

// GetUsernameByID is the narrow lookup used by the demo-user check.
func GetUsernameByID(ctx context.Context, id int64, pool *pgxpool.Pool) (string, error) {
	var username string
	err := pool.QueryRow(ctx, `SELECT username FROM users WHERE id = $1`, id).Scan(&username)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return "", ErrUserNotFound
		}
		return "", fmt.Errorf("query error: %w", err)
	}
	return username, nil
}

func CreateUser(ctx context.Context, req models.RegisterRequest, hashedPassword []byte, pool *pgxpool.Pool) (*models.RegisterResponse, error) {
	query := `
		INSERT INTO users (username, email, password_hash)
		VALUES ($1, $2, $3)
		RETURNING id, super_admin
	`

	var resp models.RegisterResponse
	err := pool.QueryRow(ctx, query, req.Username, req.Email, hashedPassword).Scan(&resp.ID, &resp.SuperAdmin)
	if err != nil {
		return nil, fmt.Errorf("failed to create user: %w", err)
	}
	resp.Email = req.Email
	resp.Username = req.Username

	return &resp, nil
}

func UpdateUserPassword(ctx context.Context, userID int64, hashedPassword []byte, db Execer) error {
	return updateUser(ctx, db, `UPDATE users SET password_hash = $2, updated_at = NOW() WHERE id = $1`, userID, hashedPassword)
}

func UpdateUserEmail(ctx context.Context, userID int64, email string, db Execer) error {
	return updateUser(ctx, db, `UPDATE users SET email = $2, updated_at = NOW() WHERE id = $1`, userID, email)
}

func UpdateUserLastLogin(ctx context.Context, userID int64, db Execer) error {
	return updateUser(ctx, db, `UPDATE users SET last_login = NOW() WHERE id = $1`, userID)
}

func updateUser(ctx context.Context, db Execer, query string, args ...any) error {
	tag, err := db.Exec(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("failed to update user: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrUserNotFound
	}
	return nil
}
