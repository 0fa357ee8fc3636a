package cli

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/roach88/fusecheck/internal/dbgen"
	"github.com/roach88/fusecheck/internal/fusedb"
)

// NewDBCommand creates the db command group.
func NewDBCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "db",
		Short: "Validate or generate fusecheck_db.txt",
	}

	cmd.AddCommand(newDBValidateCommand(rootOpts))
	cmd.AddCommand(newDBGenerateCommand(rootOpts))
	return cmd
}

func newDBValidateCommand(rootOpts *RootOptions) *cobra.Command {
	var strict bool

	cmd := &cobra.Command{
		Use:   "validate <file>",
		Short: "Load a database file and report what it contains",
		Long: `Load a database file with the same rules the checker uses and report
record and skipped-line counts.

With --strict, any skipped or truncated line fails the command.`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runDBValidate(rootOpts, args[0], strict, cmd)
		},
	}

	cmd.Flags().BoolVar(&strict, "strict", false, "fail if any line was skipped or truncated")
	return cmd
}

func runDBValidate(opts *RootOptions, path string, strict bool, cmd *cobra.Command) error {
	formatter := newFormatter(opts, cmd)
	logger := newLogger(opts, formatter.GetErrWriter())

	loader := fusedb.NewLoader(fusedb.DirResource(filepath.Dir(path)),
		fusedb.WithPath(filepath.Base(path)),
		fusedb.WithLogger(logger),
	)
	result := loader.Load(fusedb.NewStore())
	result.Path = path

	switch result.Status {
	case fusedb.StatusLoaded:
	case fusedb.StatusNotFound:
		return formatter.Fail(ExitCommandError, ErrCodeNotFound, "database file not found: "+path, result.Err)
	default:
		return formatter.Fail(ExitCommandError, ErrCodeGeneric, "failed to read database "+path, result.Err)
	}

	if err := formatter.Emit(result, newTheme(formatter.Writer).loadResult(result)); err != nil {
		return WrapExitError(ExitCommandError, "failed to write output", err)
	}

	if strict && (result.Skipped.Total() > 0 || result.Skipped.Truncated > 0) {
		return NewExitError(ExitFailure, fmt.Sprintf("%d lines skipped, %d truncated",
			result.Skipped.Total(), result.Skipped.Truncated))
	}
	return nil
}

// generateOutput is the JSON payload of db generate.
type generateOutput struct {
	Source      string        `json:"source"`
	LastUpdated string        `json:"last_updated,omitempty"`
	Output      string        `json:"output,omitempty"`
	Summary     dbgen.Summary `json:"summary"`
	Database    string        `json:"database,omitempty"`
}

func newDBGenerateCommand(rootOpts *RootOptions) *cobra.Command {
	var url, input, output string

	cmd := &cobra.Command{
		Use:   "generate",
		Short: "Generate a database from the FuseNCA index",
		Long: `Build fusecheck_db.txt from the FuseNCA fuses.json index.

The index is downloaded from --url unless --input names a local copy.
Consecutive releases with the same fuse count become one [FUSE] range.

Example:
  fusecheck db generate -o fusecheck_db.txt
  fusecheck db generate --input fuses.json`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runDBGenerate(rootOpts, url, input, output, cmd)
		},
	}

	cmd.Flags().StringVar(&url, "url", dbgen.DefaultURL, "FuseNCA fuses.json URL")
	cmd.Flags().StringVar(&input, "input", "", "read the index from a local file instead of --url")
	cmd.Flags().StringVarP(&output, "output", "o", "", "output file (default stdout)")
	cmd.MarkFlagsMutuallyExclusive("url", "input")

	return cmd
}

func runDBGenerate(opts *RootOptions, url, input, output string, cmd *cobra.Command) error {
	formatter := newFormatter(opts, cmd)

	var (
		idx *dbgen.Index
		err error
	)
	source := url
	if input != "" {
		source = input
		idx, err = dbgen.ReadIndex(input)
	} else {
		formatter.VerboseLog("Fetching %s", url)
		idx, err = dbgen.FetchIndex(cmd.Context(), url)
	}
	if err != nil {
		code := ErrCodeIndex
		if errors.Is(err, os.ErrNotExist) {
			code = ErrCodeNotFound
		}
		return formatter.Fail(ExitCommandError, code, "failed to load index", err)
	}
	formatter.VerboseLog("Last updated: %s, %d firmware versions", idx.LastUpdated, len(idx.Data))

	var buf bytes.Buffer
	summary, err := dbgen.Generate(&buf, idx)
	if err != nil {
		return formatter.Fail(ExitCommandError, ErrCodeIndex, "failed to generate database", err)
	}

	out := generateOutput{
		Source:      source,
		LastUpdated: idx.LastUpdated,
		Output:      output,
		Summary:     summary,
	}

	if output == "" {
		if formatter.IsJSON() {
			out.Database = buf.String()
			return emit(formatter, out, "")
		}
		return emit(formatter, out, buf.String())
	}

	if err := os.WriteFile(output, buf.Bytes(), 0o644); err != nil {
		return formatter.Fail(ExitCommandError, ErrCodeWriteFailed, "failed to write database", err)
	}

	th := newTheme(formatter.Writer)
	text := th.label.Render("Database written to "+output) + "\n" +
		th.value.Render(fmt.Sprintf("  %d fuse entries", summary.Fuse)) + "\n" +
		th.value.Render(fmt.Sprintf("  %d NCA entries", summary.NCA)) + "\n"
	return emit(formatter, out, text)
}

func emit(formatter *OutputFormatter, data any, text string) error {
	if err := formatter.Emit(data, text); err != nil {
		return WrapExitError(ExitCommandError, "failed to write output", err)
	}
	return nil
}
