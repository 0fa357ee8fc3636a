package cli

import (
	"github.com/spf13/cobra"
)

// NewFuseMapCommand creates the fusemap command.
func NewFuseMapCommand(rootOpts *RootOptions) *cobra.Command {
	flags := &sourceFlags{}
	var offset int
	var all bool

	cmd := &cobra.Command{
		Use:   "fusemap",
		Short: "List the fuse map from the database",
		Long: `Print the [FUSE] records of the database, a page of 15 at a time.

Example:
  fusecheck fusemap --root /mnt/sd
  fusecheck fusemap --root /mnt/sd --offset 15`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runFuseMap(rootOpts, flags, offset, all, cmd)
		},
	}

	flags.addDatabaseFlags(cmd)
	cmd.Flags().IntVar(&offset, "offset", 0, "index of the first record to show")
	cmd.Flags().BoolVar(&all, "all", false, "show every record instead of one page")

	return cmd
}

func runFuseMap(opts *RootOptions, flags *sourceFlags, offset int, all bool, cmd *cobra.Command) error {
	e, err := newEnv(opts, cmd, flags)
	if err != nil {
		return err
	}

	store, loader := e.database()
	loader.Load(store)

	size := FuseMapPageSize
	if all {
		size = max(store.FuseCount(), 1)
	}
	page, start := store.FusePage(offset, size)

	out := fuseMapOutput{
		Records: page,
		Start:   start,
		Total:   store.FuseCount(),
		Path:    loader.Path(),
	}
	if err := e.formatter.Emit(out, newTheme(e.formatter.Writer).fuseMap(out)); err != nil {
		return WrapExitError(ExitCommandError, "failed to write output", err)
	}
	return nil
}
