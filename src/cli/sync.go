package cli

import (
	sqldb "budget-server/src/db/sql"
	"budget-server/src/models"
	"fmt"

	"github.com/spf13/cobra"
)

var (
	syncUserID   int64
	historyType  string
	historyLimit int
)

var syncCmd = &cobra.Command{
	Use:   "sync",
	Short: "Run one full sync cycle and print the result",
	RunE: func(cmd *cobra.Command, _ []string) error {
		a, err := bootstrap(cmd.Context())
		if err != nil {
			return err
		}
		defer a.close()

		svc, err := a.newService()
		if err != nil {
			return err
		}

		var userID *int64
		if cmd.Flags().Changed("user-id") {
			userID = &syncUserID
		}
		return printJSON(cmd.OutOrStdout(), svc.SyncAllData(a.context(cmd.Context()), userID))
	},
}

var pruneCmd = &cobra.Command{
	Use:   "prune",
	Short: "Delete expired transactions from Airtable if over the threshold",
	RunE: func(cmd *cobra.Command, _ []string) error {
		a, err := bootstrap(cmd.Context())
		if err != nil {
			return err
		}
		defer a.close()

		svc, err := a.newService()
		if err != nil {
			return err
		}
		return printJSON(cmd.OutOrStdout(), svc.Prune(a.context(cmd.Context())))
	},
}

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "Show recent sync runs",
	RunE: func(cmd *cobra.Command, _ []string) error {
		typ := models.RecordType(historyType)
		switch typ {
		case "", models.RecordTypeAccounts, models.RecordTypeTransactions:
		default:
			return fmt.Errorf("--type must be accounts or transactions, got %q", historyType)
		}

		a, err := bootstrap(cmd.Context())
		if err != nil {
			return err
		}
		defer a.close()

		runs, err := sqldb.ListSyncRuns(cmd.Context(), a.pool, typ, historyLimit)
		if err != nil {
			return err
		}
		return printJSON(cmd.OutOrStdout(), runs)
	},
}

func init() {
	syncCmd.Flags().Int64Var(&syncUserID, "user-id", 0, "run as this user (demo users are skipped)")
	historyCmd.Flags().StringVar(&historyType, "type", "", "only show runs of this type (accounts or transactions)")
	historyCmd.Flags().IntVar(&historyLimit, "limit", sqldb.DefaultSyncHistoryLimit, "number of runs to show")
}
