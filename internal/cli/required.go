package cli

import (
	"github.com/spf13/cobra"

	"github.com/roach88/fusecheck/internal/fuse"
	"github.com/roach88/fusecheck/internal/version"
)

// NewRequiredCommand creates the required command.
func NewRequiredCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "required <version>",
		Short: "Show the fuse count a firmware version requires",
		Long: `Look a firmware version up in the built-in fuse table.

Versions not covered by any rule require 1 fuse.

Example:
  fusecheck required 18.0.1`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runRequired(rootOpts, args[0], cmd)
		},
	}
}

func runRequired(opts *RootOptions, text string, cmd *cobra.Command) error {
	formatter := newFormatter(opts, cmd)

	v, err := version.Parse(text)
	if err != nil {
		return formatter.Fail(ExitCommandError, ErrCodeVersion, "invalid version "+text, err)
	}

	out := requiredOutput{Version: v, Required: fuse.RequiredFuses(v)}
	if rule, ok := fuse.Rules.Lookup(v); ok {
		out.Rule = &rule
	}

	if err := formatter.Emit(out, newTheme(formatter.Writer).required(out)); err != nil {
		return WrapExitError(ExitCommandError, "failed to write output", err)
	}
	return nil
}
