package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/roach88/schemasan/internal/config"
)

// RulesOptions holds flags for the rules command.
type RulesOptions struct {
	*RootOptions
	ConfigPath string
}

// NewRulesCommand creates the rules command.
func NewRulesCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &RulesOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "rules",
		Short: "Show the deduplication rules",
		Long: `Print the collections sanitize deduplicates: the built-in rules, or the
rules of --config after validation.

Examples:
  schemasan rules
  schemasan rules --config rules.cue --format json`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runRules(opts, cmd)
		},
	}

	cmd.Flags().StringVarP(&opts.ConfigPath, "config", "c", "", "rules file (.yaml, .json or .cue)")

	return cmd
}

func runRules(opts *RulesOptions, cmd *cobra.Command) error {
	formatter := newFormatter(opts.RootOptions, cmd)

	cfg := config.Default()
	if opts.ConfigPath != "" {
		loaded, err := config.Load(opts.ConfigPath)
		if err != nil {
			return formatter.Fail(ExitCommandError, ErrCodeInvalidConfig, "failed to load rules", err, nil)
		}
		cfg = loaded
	}

	if opts.Format == "json" {
		return formatter.Success(cfg)
	}
	return formatter.Success(formatRules(cfg))
}

func formatRules(cfg *config.Config) string {
	var b strings.Builder
	fmt.Fprintf(&b, "versions[%d]", cfg.VersionIndex)
	for _, c := range cfg.Collections {
		fmt.Fprintf(&b, "\n  %s by %s", c.Name, c.Key)
		indent := "    "
		for _, lvl := range c.Nested {
			fmt.Fprintf(&b, "\n%s%s by %s", indent, lvl.Field, lvl.Key)
			indent += "  "
		}
	}
	return b.String()
}
