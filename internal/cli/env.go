package cli

import (
	"errors"
	"io"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/roach88/fusecheck/internal/config"
	"github.com/roach88/fusecheck/internal/detect"
	"github.com/roach88/fusecheck/internal/fusedb"
)

// sourceFlags are per-command overrides of config file settings.
type sourceFlags struct {
	database  string
	root      string
	partition string
	keys      string
	odm6      uint32
	odm7      uint32
	dump      string
	odmOffset int64
	history   string
}

func (s *sourceFlags) addDatabaseFlags(cmd *cobra.Command) {
	cmd.Flags().StringVar(&s.root, "root", "", "directory the database path is resolved against (e.g. a mounted SD card)")
	cmd.Flags().StringVar(&s.database, "db", "", "logical database path under --root (default "+fusedb.DefaultPath+")")
}

func (s *sourceFlags) addDetectFlags(cmd *cobra.Command) {
	cmd.Flags().StringVar(&s.partition, "partition", "", "directory holding the decrypted SYSTEM partition")
	cmd.Flags().StringVar(&s.keys, "keys", "", "prod.keys file providing "+detect.BISKeyName)
}

func (s *sourceFlags) addFuseFlags(cmd *cobra.Command) {
	cmd.Flags().Uint32Var(&s.odm6, "odm6", 0, "FUSE_RESERVED_ODM6 value (hex with 0x prefix accepted)")
	cmd.Flags().Uint32Var(&s.odm7, "odm7", 0, "FUSE_RESERVED_ODM7 value")
	cmd.Flags().StringVar(&s.dump, "dump", "", "raw fuse block dump to read ODM6/ODM7 from")
	cmd.Flags().Int64Var(&s.odmOffset, "odm-offset", 0, "offset of RESERVED_ODM0 in the dump (default 0x1C8)")
}

// apply overlays the flags the user set onto cfg.
func (s *sourceFlags) apply(cmd *cobra.Command, cfg *config.Config) error {
	changed := cmd.Flags().Changed

	if changed("root") {
		cfg.Root = s.root
	}
	if changed("db") {
		cfg.Database = s.database
	}
	if changed("partition") {
		cfg.Partition = s.partition
	}
	if changed("keys") {
		cfg.Keys = s.keys
	}
	if changed("history") {
		cfg.History = s.history
	}

	literal := changed("odm6") || changed("odm7")
	if literal && changed("dump") {
		return errors.New("--dump cannot be combined with --odm6/--odm7")
	}
	if literal {
		odm6, odm7 := s.odm6, s.odm7
		cfg.Fuses = config.Fuses{ODM6: &odm6, ODM7: &odm7}
	}
	if changed("dump") {
		cfg.Fuses = config.Fuses{Dump: s.dump}
	}
	if changed("odm-offset") {
		cfg.Fuses.ODMOffset = s.odmOffset
	}

	return cfg.Validate()
}

// env is what a command needs after flags and config are resolved.
type env struct {
	cfg       *config.Config
	logger    *slog.Logger
	formatter *OutputFormatter
}

func newFormatter(opts *RootOptions, cmd *cobra.Command) *OutputFormatter {
	return &OutputFormatter{
		Format:    opts.Format,
		Writer:    cmd.OutOrStdout(),
		ErrWriter: cmd.ErrOrStderr(), // Verbose logs go to stderr to avoid corrupting JSON
		Verbose:   opts.Verbose,
	}
}

// newLogger logs to w at Info, or Debug with --verbose.
func newLogger(opts *RootOptions, w io.Writer) *slog.Logger {
	logLevel := slog.LevelInfo
	if opts.Verbose {
		logLevel = slog.LevelDebug
	}
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: logLevel}))
}

// newEnv loads the config file and applies flag overrides. Errors are
// already reported through the formatter.
func newEnv(opts *RootOptions, cmd *cobra.Command, flags *sourceFlags) (*env, error) {
	formatter := newFormatter(opts, cmd)

	cfg, err := config.Load(opts.ConfigPath)
	if err != nil {
		return nil, formatter.Fail(ExitCommandError, ErrCodeConfig, "failed to load config", err)
	}
	if flags != nil {
		if err := flags.apply(cmd, cfg); err != nil {
			return nil, formatter.Fail(ExitCommandError, ErrCodeConfig, "invalid settings", err)
		}
	}

	return &env{
		cfg:       cfg,
		logger:    newLogger(opts, formatter.GetErrWriter()),
		formatter: formatter,
	}, nil
}

// database returns an empty store and a loader for the configured file.
func (e *env) database() (*fusedb.Store, *fusedb.Loader) {
	loader := fusedb.NewLoader(e.cfg.Resource(),
		fusedb.WithPath(e.cfg.Database),
		fusedb.WithLogger(e.logger),
	)
	e.formatter.VerboseLog("Database: %s under %s", e.cfg.Database, e.cfg.Root)
	return fusedb.NewStore(), loader
}

// detector builds a detector over store. A key file that is missing or
// cannot be read only disables detection.
func (e *env) detector(store *fusedb.Store, loader *fusedb.Loader) *detect.Detector {
	keys, err := e.cfg.KeyStore()
	if err != nil {
		e.logger.Debug("key file unreadable, detection disabled", "path", e.cfg.Keys, "error", err)
		keys = &detect.KeyFile{}
	}
	return detect.New(store, keys, e.cfg.Partitions(),
		detect.WithLoader(loader),
		detect.WithLogger(e.logger),
	)
}
