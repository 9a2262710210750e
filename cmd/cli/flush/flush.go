package flush

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/crucial707/auditlog-admin/internal/config"
	"github.com/crucial707/auditlog-admin/internal/db"
	"github.com/crucial707/auditlog-admin/internal/repo"
)

// Flusher is the subset of the log entry repo flush needs.
type Flusher interface {
	DeleteBefore(ctx context.Context, cutoff time.Time) (int64, error)
	DeleteAll(ctx context.Context) (int64, error)
}

// openStore connects with the server's DB_* settings. Replaced in tests.
var openStore = func(ctx context.Context) (Flusher, func(), error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, nil, err
	}
	conn, err := db.Connect(ctx, cfg.DBHost, cfg.DBPort, cfg.DBName, cfg.DBUser, cfg.DBPass, db.Options{MaxOpenConns: 1})
	if err != nil {
		return nil, nil, err
	}
	return repo.NewLogEntryRepo(conn), func() { conn.Close() }, nil
}

func InitFlush(rootCmd *cobra.Command) {
	rootCmd.AddCommand(flushCmd())
}

// flushCmd deletes log entries directly in the database.
func flushCmd() *cobra.Command {
	var (
		before string
		all    bool
		yes    bool
	)
	cmd := &cobra.Command{
		Use:   "flush",
		Short: "Delete log entries from the database",
		Long: `Delete log entries older than --before (YYYY-MM-DD, UTC), or every entry with --all.
Connects to the database directly using the DB_* environment variables.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if all == (before != "") {
				return errors.New("exactly one of --before or --all is required")
			}
			var cutoff time.Time
			if before != "" {
				t, err := time.Parse(time.DateOnly, before)
				if err != nil {
					return fmt.Errorf("--before: expected YYYY-MM-DD: %w", err)
				}
				cutoff = t
			}

			if !yes {
				what := "ALL log entries"
				if !all {
					what = "log entries before " + cutoff.Format(time.DateOnly)
				}
				fmt.Fprintf(cmd.OutOrStdout(), "This will permanently delete %s. Continue? [y/N] ", what)
				answer, _ := bufio.NewReader(cmd.InOrStdin()).ReadString('\n')
				if a := strings.ToLower(strings.TrimSpace(answer)); a != "y" && a != "yes" {
					fmt.Fprintln(cmd.OutOrStdout(), "Aborted.")
					return nil
				}
			}

			ctx, cancel := context.WithTimeout(cmd.Context(), 10*time.Minute)
			defer cancel()
			store, closeStore, err := openStore(ctx)
			if err != nil {
				return fmt.Errorf("connect: %w", err)
			}
			defer closeStore()

			var n int64
			if all {
				n, err = store.DeleteAll(ctx)
			} else {
				n, err = store.DeleteBefore(ctx, cutoff)
			}
			if err != nil {
				return fmt.Errorf("flush: %w", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Deleted %d log entries.\n", n)
			return nil
		},
	}
	cmd.Flags().StringVar(&before, "before", "", "Delete entries created before this date (YYYY-MM-DD)")
	cmd.Flags().BoolVar(&all, "all", false, "Delete every entry")
	cmd.Flags().BoolVarP(&yes, "yes", "y", false, "Do not ask for confirmation")
	return cmd
}
