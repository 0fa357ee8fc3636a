package cli

import (
	"github.com/spf13/cobra"

	"github.com/roach88/fusecheck/internal/version"
)

// NewDetectCommand creates the detect command.
func NewDetectCommand(rootOpts *RootOptions) *cobra.Command {
	flags := &sourceFlags{}

	cmd := &cobra.Command{
		Use:   "detect",
		Short: "Detect the installed firmware version",
		Long: `Scan Contents/registered on the SYSTEM partition for a SystemVersion
archive listed in the database and report its firmware version.

Detection failures are not errors: the outcome says why nothing was found.

Example:
  fusecheck detect --partition ./SYSTEM --keys prod.keys --root /mnt/sd`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runDetect(rootOpts, flags, cmd)
		},
	}

	flags.addDatabaseFlags(cmd)
	flags.addDetectFlags(cmd)

	return cmd
}

func runDetect(opts *RootOptions, flags *sourceFlags, cmd *cobra.Command) error {
	e, err := newEnv(opts, cmd, flags)
	if err != nil {
		return err
	}

	store, loader := e.database()
	loaded := loader.Load(store)

	detector := e.detector(store, loader)
	result := detector.Detect(cmd.Context())

	out := detectOutput{
		Firmware:  version.Default,
		Detection: result,
		Database:  loaded,
	}
	if result.Found() {
		out.Firmware = result.Version
		out.Detected = true
	}

	if err := e.formatter.Emit(out, newTheme(e.formatter.Writer).detection(out)); err != nil {
		return WrapExitError(ExitCommandError, "failed to write output", err)
	}
	return nil
}
