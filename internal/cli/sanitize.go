package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/roach88/schemasan/internal/config"
	"github.com/roach88/schemasan/internal/docio"
	"github.com/roach88/schemasan/internal/pipeline"
	"github.com/roach88/schemasan/internal/sanitize"
	"github.com/roach88/schemasan/internal/store"
)

// SanitizeOptions holds flags for the sanitize command.
type SanitizeOptions struct {
	*RootOptions
	ConfigPath string // rules file (.yaml, .json, .cue)
	DBPath     string // run history database
	Indent     bool   // pretty-print the output document
}

// NewSanitizeCommand creates the sanitize command.
func NewSanitizeCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &SanitizeOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "sanitize <input> <output>",
		Short: "Remove duplicate records from an application schema",
		Long: `Load an application schema document, remove duplicate objects, fields,
scenes and views from its first version, and write the result.

Nothing is written when the input cannot be read or has the wrong shape.

Exit codes:
  0 - Document sanitized and written
  1 - Input unreadable, wrong shape, or output not writable
  2 - Command error (bad rules file, database not openable)

Examples:
  schemasan sanitize app.json app.clean.json
  schemasan sanitize app.json app.clean.json --indent
  schemasan sanitize app.json out.json --config rules.cue --db runs.db`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSanitize(opts, args[0], args[1], cmd)
		},
	}

	cmd.Flags().StringVarP(&opts.ConfigPath, "config", "c", "", "rules file (.yaml, .json or .cue)")
	cmd.Flags().StringVar(&opts.DBPath, "db", "", "record the run in this SQLite database")
	cmd.Flags().BoolVar(&opts.Indent, "indent", false, "pretty-print the output document")

	return cmd
}

func runSanitize(opts *SanitizeOptions, in, out string, cmd *cobra.Command) error {
	formatter := newFormatter(opts.RootOptions, cmd)

	san, err := loadSanitizer(opts.ConfigPath)
	if err != nil {
		return formatter.Fail(ExitCommandError, ErrCodeInvalidConfig, "failed to load rules", err, nil)
	}

	runner := opts.runner()
	runner.Sanitizer = san
	runner.Writer = newFileWriter(opts.Indent)
	runner.Logger = newLogger(opts.RootOptions, cmd)

	if opts.DBPath != "" {
		st, err := store.Open(opts.DBPath)
		if err != nil {
			return formatter.Fail(ExitCommandError, ErrCodeDatabase, "failed to open database", err, nil)
		}
		defer st.Close()
		runner.Recorder = st
	}

	outcome, err := runner.Run(cmd.Context(), in, out)
	if err != nil {
		return formatter.Fail(ExitFailure, ErrorCode(err), "sanitize failed", err, failureDetails(outcome))
	}

	if opts.Format == "json" {
		return formatter.Success(outcome)
	}
	return formatter.Success(formatOutcome(outcome, opts.Verbose))
}

// loadSanitizer builds the sanitizer for a rules file, or the default
// rules when path is empty.
func loadSanitizer(path string) (*sanitize.Sanitizer, error) {
	if path == "" {
		return sanitize.Default(), nil
	}
	cfg, err := config.Load(path)
	if err != nil {
		return nil, err
	}
	return cfg.Sanitizer()
}

func newFileWriter(indent bool) docio.FileWriter {
	if indent {
		return docio.FileWriter{Indent: "  "}
	}
	return docio.FileWriter{}
}

// failureDetails is the error detail attached to a failed run.
func failureDetails(o *pipeline.Outcome) map[string]any {
	if o == nil {
		return nil
	}
	return map[string]any{
		"run_id": o.RunID,
		"stage":  o.Stage,
		"input":  o.Input,
	}
}

// formatOutcome renders a successful run for text output. With verbose,
// one line per collection level follows the summary.
func formatOutcome(o *pipeline.Outcome, verbose bool) string {
	var b strings.Builder
	if o.Output != "" {
		fmt.Fprintf(&b, "✓ %s -> %s: removed %d of %d records", o.Input, o.Output, o.Removed, o.Scanned)
	} else {
		fmt.Fprintf(&b, "✓ %s: removed %d of %d records", o.Input, o.Removed, o.Scanned)
	}
	if !verbose {
		return b.String()
	}

	fmt.Fprintf(&b, "\n  run: %s", o.RunID)
	for _, cr := range o.Reports {
		name := cr.Name
		for rep := cr.Report; rep != nil; rep = rep.Nested {
			fmt.Fprintf(&b, "\n  %s: scanned %d, kept %d, removed %d", name, rep.Scanned, rep.Kept, rep.Removed)
			name += ".*"
		}
	}
	return b.String()
}
