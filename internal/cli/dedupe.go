package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/roach88/schemasan/internal/dedupe"
	"github.com/roach88/schemasan/internal/pipeline"
	"github.com/roach88/schemasan/internal/store"
	"github.com/roach88/schemasan/internal/value"
)

// DedupeOptions holds flags for the dedupe command.
type DedupeOptions struct {
	*RootOptions
	Key    string   // identity field of top-level records
	Nested []string // nested levels as field:key, outermost first
	DBPath string   // run history database
	Indent bool     // pretty-print the output
}

// DedupeResult is the JSON payload of the dedupe command.
type DedupeResult struct {
	Run     *pipeline.Outcome `json:"run"`
	Records value.Value       `json:"records,omitempty"` // only when no output file is given
}

// NewDedupeCommand creates the dedupe command.
func NewDedupeCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &DedupeOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "dedupe <input> [output]",
		Short: "Remove duplicate records from a JSON array",
		Long: `Remove records that repeat an earlier record's key from a file whose
top level is a JSON array. The first record for each key is kept.

Nested arrays inside every kept record are deduplicated with --nested,
given as field:key, outermost level first.

When output is omitted the cleaned array is printed to stdout.

Examples:
  schemasan dedupe objects.json --key key
  schemasan dedupe objects.json clean.json --key key --nested fields:key
  schemasan dedupe tree.json --key id --nested children:id --nested leaves:id`,
		Args: cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			out := ""
			if len(args) == 2 {
				out = args[1]
			}
			return runDedupe(opts, args[0], out, cmd)
		},
	}

	cmd.Flags().StringVarP(&opts.Key, "key", "k", "key", "identity field of top-level records")
	cmd.Flags().StringArrayVar(&opts.Nested, "nested", nil, "nested level as field:key (repeatable)")
	cmd.Flags().StringVar(&opts.DBPath, "db", "", "record the run in this SQLite database")
	cmd.Flags().BoolVar(&opts.Indent, "indent", false, "pretty-print the output")

	return cmd
}

func runDedupe(opts *DedupeOptions, in, out string, cmd *cobra.Command) error {
	formatter := newFormatter(opts.RootOptions, cmd)

	if opts.Key == "" {
		return formatter.Fail(ExitCommandError, ErrCodeInvalidFlag, "--key must not be empty", nil, nil)
	}
	levels, err := ParseLevels(opts.Nested)
	if err != nil {
		return formatter.Fail(ExitCommandError, ErrCodeInvalidFlag, "invalid --nested", err, nil)
	}

	runner := opts.runner()
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

	outcome, err := runner.DedupeFile(cmd.Context(), in, out, opts.Key, levels)
	if err != nil {
		return formatter.Fail(ExitFailure, ErrorCode(err), "dedupe failed", err, failureDetails(outcome))
	}

	if opts.Format == "json" {
		res := DedupeResult{Run: outcome}
		if out == "" {
			res.Records = outcome.Result
		}
		return formatter.Success(res)
	}

	if out != "" {
		return formatter.Success(formatOutcome(outcome, opts.Verbose))
	}

	// No output file: the records are the output, the summary is a diagnostic.
	data, err := marshalRecords(outcome.Result, opts.Indent)
	if err != nil {
		return formatter.Fail(ExitFailure, ErrCodeGeneric, "failed to encode records", err, nil)
	}
	fmt.Fprintln(cmd.OutOrStdout(), string(data))
	formatter.VerboseLog("%s", formatOutcome(outcome, true))
	return nil
}

// ParseLevels parses nested level flags of the form field:key.
func ParseLevels(specs []string) ([]dedupe.Level, error) {
	levels := make([]dedupe.Level, 0, len(specs))
	for _, s := range specs {
		field, key, ok := strings.Cut(s, ":")
		if !ok || field == "" || key == "" {
			return nil, fmt.Errorf("%q: want field:key", s)
		}
		levels = append(levels, dedupe.Level{Field: field, Key: key})
	}
	return levels, nil
}

func marshalRecords(v value.Value, indent bool) ([]byte, error) {
	if indent {
		return value.MarshalIndent(v, "", "  ")
	}
	return value.Marshal(v)
}
