package cli

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/roach88/schemasan/internal/store"
)

// HistoryOptions holds flags for the history command.
type HistoryOptions struct {
	*RootOptions
	DBPath string
	Limit  int
}

// NewHistoryCommand creates the history command.
func NewHistoryCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &HistoryOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "history",
		Short: "List recorded runs",
		Long: `List sanitize and dedupe runs recorded with --db, newest first.

Examples:
  schemasan history --db runs.db
  schemasan history --db runs.db --limit 5 --format json`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runHistory(opts, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.DBPath, "db", "", "SQLite database path (required)")
	cmd.Flags().IntVarP(&opts.Limit, "limit", "n", 20, "maximum number of runs to list (0 for all)")
	cmd.MarkFlagRequired("db")

	return cmd
}

func runHistory(opts *HistoryOptions, cmd *cobra.Command) error {
	formatter := newFormatter(opts.RootOptions, cmd)

	if opts.Limit < 0 {
		return formatter.Fail(ExitCommandError, ErrCodeInvalidFlag, "--limit must not be negative", nil, nil)
	}

	// Opening would create an empty database; a missing file is a user error.
	if _, err := os.Stat(opts.DBPath); errors.Is(err, fs.ErrNotExist) {
		return formatter.Fail(ExitCommandError, ErrCodeNotFound, "database not found", err, nil)
	}

	st, err := store.Open(opts.DBPath)
	if err != nil {
		return formatter.Fail(ExitCommandError, ErrCodeDatabase, "failed to open database", err, nil)
	}
	defer st.Close()

	runs, err := st.ListRuns(cmd.Context(), opts.Limit)
	if err != nil {
		return formatter.Fail(ExitFailure, ErrCodeDatabase, "failed to list runs", err, nil)
	}

	if opts.Format == "json" {
		return formatter.Success(runs)
	}
	if len(runs) == 0 {
		return formatter.Success("No runs recorded.")
	}
	return formatter.Success(formatRuns(runs))
}

func formatRuns(runs []store.Run) string {
	lines := make([]string, 0, len(runs))
	for _, r := range runs {
		mark := "✓"
		detail := fmt.Sprintf("removed %d of %d", r.Removed, r.Scanned)
		if r.Status != store.StatusOK {
			mark = "✗"
			detail = fmt.Sprintf("failed at %s: %s", r.Stage, r.Error)
		}
		lines = append(lines, fmt.Sprintf("%s %4d %s %-8s %s  %s  (%s)",
			mark, r.Seq, r.StartedAt.Format(time.RFC3339), r.Kind, r.InputPath, detail, r.ID))
	}
	return strings.Join(lines, "\n")
}
