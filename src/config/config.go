package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	Port           string
	DatabaseURL    string
	DBMaxConns     int32
	JWTSecret      string
	AllowedOrigins []string
	DemoMode       bool
	DemoUsername   string

	Airtable AirtableConfig
	Sync     SyncConfig

	ShutdownGrace time.Duration
	LogLevel      string
	LogFile       string
}

type AirtableConfig struct {
	AccessToken       string
	BaseID            string
	AccountsTable     string
	TransactionsTable string
}

type SyncConfig struct {
	CheckInterval time.Duration
	StaleAfter    time.Duration
	// DefaultUserID owns every synced account until the source carries
	// per-record user attribution.
	DefaultUserID   int64
	SerializeLegs   bool
	PruneThreshold  int
	RetentionMonths int
	DaysPerMonth    int
}

// Load reads .env (if present) and the process environment.
func Load() (Config, error) {
	_ = godotenv.Load()
	return Parse(os.LookupEnv)
}

// Parse builds a Config from an environment lookup function.
func Parse(lookup func(string) (string, bool)) (Config, error) {
	e := env{lookup: lookup}

	cfg := Config{
		Port:           e.str("PORT", "8080"),
		DatabaseURL:    e.str("DATABASE_URL", ""),
		DBMaxConns:     int32(e.int("DB_MAX_CONNS", 10)),
		JWTSecret:      e.str("JWT_SECRET", ""),
		AllowedOrigins: e.list("ALLOWED_ORIGINS"),
		DemoMode:       e.bool("DEMO_MODE", false),
		DemoUsername:   e.str("DEMO_USERNAME", "demo"),
		Airtable: AirtableConfig{
			AccessToken:       e.str("AIRTABLE_ACCESS_TOKEN", ""),
			BaseID:            e.str("AIRTABLE_DB_ID", ""),
			AccountsTable:     e.str("AIRTABLE_ACCOUNTS", "Accounts"),
			TransactionsTable: e.str("AIRTABLE_TRANSACTIONS", "Transactions"),
		},
		Sync: SyncConfig{
			CheckInterval:   e.duration("SYNC_CHECK_INTERVAL", time.Hour),
			StaleAfter:      e.duration("SYNC_STALE_AFTER", 24*time.Hour),
			DefaultUserID:   int64(e.int("SYNC_DEFAULT_USER_ID", 1)),
			SerializeLegs:   e.bool("SYNC_SERIALIZE_LEGS", false),
			PruneThreshold:  e.int("PRUNE_THRESHOLD", 800),
			RetentionMonths: e.int("PRUNE_RETENTION_MONTHS", 4),
			DaysPerMonth:    e.int("PRUNE_DAYS_PER_MONTH", 30),
		},
		ShutdownGrace: e.duration("SHUTDOWN_GRACE", 30*time.Second),
		LogLevel:      e.str("LOG_LEVEL", "info"),
		LogFile:       e.str("LOG_FILE", ""),
	}

	if len(e.errs) > 0 {
		return Config{}, errors.Join(e.errs...)
	}
	if cfg.DatabaseURL == "" {
		return Config{}, errors.New("DATABASE_URL is required")
	}
	if cfg.JWTSecret == "" {
		return Config{}, errors.New("JWT_SECRET is required")
	}
	if cfg.Sync.CheckInterval <= 0 {
		return Config{}, errors.New("SYNC_CHECK_INTERVAL must be positive")
	}
	if cfg.Sync.RetentionMonths <= 0 || cfg.Sync.DaysPerMonth <= 0 {
		return Config{}, errors.New("PRUNE_RETENTION_MONTHS and PRUNE_DAYS_PER_MONTH must be positive")
	}

	return cfg, nil
}

// AirtableConfigured reports whether enough settings exist to reach the source.
func (c Config) AirtableConfigured() bool {
	return c.Airtable.AccessToken != "" && c.Airtable.BaseID != ""
}

type env struct {
	lookup func(string) (string, bool)
	errs   []error
}

func (e *env) str(key, fallback string) string {
	if value, ok := e.lookup(key); ok {
		return value
	}
	return fallback
}

func (e *env) int(key string, fallback int) int {
	value, ok := e.lookup(key)
	if !ok || value == "" {
		return fallback
	}
	n, err := strconv.Atoi(value)
	if err != nil {
		e.errs = append(e.errs, fmt.Errorf("invalid %s: %w", key, err))
		return fallback
	}
	return n
}

func (e *env) bool(key string, fallback bool) bool {
	value, ok := e.lookup(key)
	if !ok || value == "" {
		return fallback
	}
	b, err := strconv.ParseBool(value)
	if err != nil {
		e.errs = append(e.errs, fmt.Errorf("invalid %s: %w", key, err))
		return fallback
	}
	return b
}

func (e *env) duration(key string, fallback time.Duration) time.Duration {
	value, ok := e.lookup(key)
	if !ok || value == "" {
		return fallback
	}
	d, err := time.ParseDuration(value)
	if err != nil {
		e.errs = append(e.errs, fmt.Errorf("invalid %s: %w", key, err))
		return fallback
	}
	return d
}

func (e *env) list(key string) []string {
	value, ok := e.lookup(key)
	if !ok || value == "" {
		return nil
	}
	var out []string
	for _, part := range strings.Split(value, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
