package cli

import (
	"github.com/spf13/cobra"

	"github.com/roach88/fusecheck/internal/history"
)

// NewHistoryCommand creates the history command.
func NewHistoryCommand(rootOpts *RootOptions) *cobra.Command {
	flags := &sourceFlags{}
	var limit int
	var id string

	cmd := &cobra.Command{
		Use:   "history",
		Short: "List logged checks",
		Long: `List checks logged with check --history, newest first.

Example:
  fusecheck history --history checks.db --limit 5
  fusecheck history --history checks.db --id 0192...`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runHistory(rootOpts, flags, limit, id, cmd)
		},
	}

	cmd.Flags().StringVar(&flags.history, "history", "", "SQLite file checks were logged to")
	cmd.Flags().IntVar(&limit, "limit", 20, "maximum number of checks to list (0 for all)")
	cmd.Flags().StringVar(&id, "id", "", "show a single check")

	return cmd
}

func runHistory(opts *RootOptions, flags *sourceFlags, limit int, id string, cmd *cobra.Command) error {
	e, err := newEnv(opts, cmd, flags)
	if err != nil {
		return err
	}
	formatter := e.formatter

	if e.cfg.History == "" {
		return formatter.Fail(ExitCommandError, ErrCodeHistory, "no history file: set --history or history in the config", nil)
	}

	st, err := history.Open(e.cfg.History)
	if err != nil {
		return formatter.Fail(ExitCommandError, ErrCodeHistory, "failed to open history", err)
	}
	defer func() { _ = st.Close() }()

	var entries []history.Entry
	if id != "" {
		entry, err := st.Get(cmd.Context(), id)
		if err != nil {
			return formatter.Fail(ExitCommandError, ErrCodeNotFound, "check not found: "+id, err)
		}
		entries = []history.Entry{entry}
	} else {
		entries, err = st.List(cmd.Context(), limit)
		if err != nil {
			return formatter.Fail(ExitCommandError, ErrCodeHistory, "failed to list history", err)
		}
	}

	return emit(formatter, entries, newTheme(formatter.Writer).history(entries))
}
