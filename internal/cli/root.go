package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/roach88/schemasan/internal/pipeline"
)

// RootOptions holds global flags for all commands.
type RootOptions struct {
	Verbose bool
	Format  string // "json" | "text"

	// RunIDs and Clock override run identity and timing (for testing).
	// If nil, commands use UUIDv7 IDs and the system clock.
	RunIDs pipeline.IDGenerator
	Clock  pipeline.Clock
}

// ValidFormats defines the allowed output formats.
var ValidFormats = []string{"text", "json"}

// NewRootCommand creates the root command for the schemasan CLI.
func NewRootCommand() *cobra.Command {
	return newRootCommand(&RootOptions{})
}

func newRootCommand(opts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "schemasan",
		Short: "schemasan - application schema sanitizer",
		Long: `Remove duplicate records from application schema documents.

Objects, fields, scenes and views that share a key are collapsed to the
first occurrence, and only the first version of the document is kept.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if !isValidFormat(opts.Format) {
				return NewExitError(ExitCommandError,
					fmt.Sprintf("invalid format %q: must be one of %v", opts.Format, ValidFormats))
			}
			return nil
		},
	}

	// Global flags
	cmd.PersistentFlags().BoolVarP(&opts.Verbose, "verbose", "v", false, "verbose output")
	cmd.PersistentFlags().StringVar(&opts.Format, "format", "text", "output format (json|text)")

	// Add subcommands
	cmd.AddCommand(NewSanitizeCommand(opts))
	cmd.AddCommand(NewDedupeCommand(opts))
	cmd.AddCommand(NewHistoryCommand(opts))
	cmd.AddCommand(NewRulesCommand(opts))
	cmd.AddCommand(NewTestCommand(opts))

	return cmd
}

// isValidFormat checks if the format is one of the allowed values.
func isValidFormat(format string) bool {
	for _, f := range ValidFormats {
		if f == format {
			return true
		}
	}
	return false
}

// runner builds a pipeline runner with the test overrides applied.
func (o *RootOptions) runner() *pipeline.Runner {
	r := &pipeline.Runner{
		IDs:   o.RunIDs,
		Clock: o.Clock,
	}
	return r
}
