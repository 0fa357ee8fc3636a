package cli

import (
	"errors"

	"github.com/spf13/cobra"

	"github.com/roach88/fusecheck/internal/check"
	"github.com/roach88/fusecheck/internal/config"
	"github.com/roach88/fusecheck/internal/history"
)

// checkOutput is the JSON payload of the check command.
type checkOutput struct {
	*check.Report
	HistoryID string `json:"history_id,omitempty"`
}

// NewCheckCommand creates the check command.
func NewCheckCommand(rootOpts *RootOptions) *cobra.Command {
	flags := &sourceFlags{}

	cmd := &cobra.Command{
		Use:   "check",
		Short: "Compare burnt fuses with the installed firmware",
		Long: `Count the burnt fuses, detect the installed firmware and report
whether the official firmware will boot.

Exits 0 on a perfect match and 1 on a fuse mismatch. When the firmware
cannot be detected, 1.0.0 is assumed.

Example:
  fusecheck check --odm6 0x7ffff --odm7 0 --partition ./SYSTEM --keys prod.keys
  fusecheck check --dump fuses.bin --root /mnt/sd --history checks.db`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCheck(rootOpts, flags, cmd)
		},
	}

	flags.addFuseFlags(cmd)
	flags.addDatabaseFlags(cmd)
	flags.addDetectFlags(cmd)
	cmd.Flags().StringVar(&flags.history, "history", "", "SQLite file to log the check to")

	return cmd
}

func runCheck(opts *RootOptions, flags *sourceFlags, cmd *cobra.Command) error {
	e, err := newEnv(opts, cmd, flags)
	if err != nil {
		return err
	}
	formatter := e.formatter

	regs, err := e.cfg.Registers()
	if err != nil {
		msg := "failed to read fuse registers"
		if errors.Is(err, config.ErrNoRegisters) {
			msg = "no fuse registers given"
		}
		return formatter.Fail(ExitCommandError, ErrCodeRegisters, msg, err)
	}

	store, loader := e.database()
	detector := e.detector(store, loader)

	runner := check.NewRunner(regs, detector,
		check.WithDatabase(store, loader),
		check.WithLogger(e.logger),
	)
	report, err := runner.Run(cmd.Context())
	if err != nil {
		return formatter.Fail(ExitCommandError, ErrCodeRegisters, "check failed", err)
	}

	out := checkOutput{Report: report}
	if e.cfg.History != "" {
		entry, err := recordCheck(cmd, e.cfg.History, report)
		if err != nil {
			return formatter.Fail(ExitCommandError, ErrCodeHistory, "failed to log check", err)
		}
		out.HistoryID = entry.ID
		formatter.VerboseLog("Logged check %d as %s", entry.Seq, entry.ID)
	}

	th := newTheme(formatter.Writer)
	text := th.report(report)
	if out.HistoryID != "" {
		text += "\n" + th.label.Render("Logged as "+out.HistoryID) + "\n"
	}
	if err := formatter.Emit(out, text); err != nil {
		return WrapExitError(ExitCommandError, "failed to write output", err)
	}

	if !report.Pass() {
		return NewExitError(ExitFailure, report.Status)
	}
	return nil
}

func recordCheck(cmd *cobra.Command, path string, report *check.Report) (history.Entry, error) {
	st, err := history.Open(path)
	if err != nil {
		return history.Entry{}, err
	}
	defer func() { _ = st.Close() }()

	return st.Record(cmd.Context(), report)
}
