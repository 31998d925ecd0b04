package cli

import (
	"budget-server/src/airtable"
	"budget-server/src/config"
	"budget-server/src/db"
	"budget-server/src/logger"
	"budget-server/src/syncer"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "budget-server",
	Short: "Personal finance backend with scheduled Airtable sync",
	Long: `budget-server serves the budget API and keeps its PostgreSQL store in
sync with the Airtable base that aggregates bank data.

Run without a subcommand to start the server.`,
	SilenceUsage: true,
	RunE:         runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd, syncCmd, pruneCmd, historyCmd)
}

func Execute() error {
	return rootCmd.Execute()
}

// app holds what every command needs once configuration is loaded.
type app struct {
	cfg  config.Config
	log  zerolog.Logger
	pool *pgxpool.Pool
}

func bootstrap(ctx context.Context) (*app, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	log := logger.NewWithOptions(logger.Options{Level: cfg.LogLevel, File: cfg.LogFile})

	pool, err := db.Connect(ctx, cfg.DatabaseURL, cfg.DBMaxConns)
	if err != nil {
		return nil, fmt.Errorf("DB connection failed: %w", err)
	}
	if err := db.Migrate(ctx, pool); err != nil {
		pool.Close()
		return nil, err
	}
	if err := db.InitCache(); err != nil {
		pool.Close()
		return nil, err
	}

	return &app{cfg: cfg, log: log, pool: pool}, nil
}

func (a *app) close() { a.pool.Close() }

func (a *app) context(ctx context.Context) context.Context {
	return logger.WithContext(ctx, a.log)
}

func (a *app) newService() (*syncer.Service, error) {
	if !a.cfg.AirtableConfigured() {
		return nil, errors.New("AIRTABLE_ACCESS_TOKEN and AIRTABLE_DB_ID are required")
	}
	at := a.cfg.Airtable
	source := airtable.NewSource(at.AccessToken, at.BaseID, at.AccountsTable, at.TransactionsTable)
	store := syncer.NewPgStore(a.pool, a.cfg.DemoUsername)

	a.log.Warn().
		Int64("default_user_id", a.cfg.Sync.DefaultUserID).
		Msg("Synced accounts are all assigned to the default user")

	return syncer.NewService(source, store, syncer.Options{
		DefaultUserID: a.cfg.Sync.DefaultUserID,
		SerializeLegs: a.cfg.Sync.SerializeLegs,
		Prune: syncer.PruneOptions{
			Threshold:       a.cfg.Sync.PruneThreshold,
			RetentionMonths: a.cfg.Sync.RetentionMonths,
			DaysPerMonth:    a.cfg.Sync.DaysPerMonth,
		},
	}), nil
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
