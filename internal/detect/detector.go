package detect

import (
	"context"
	"fmt"
	"io"
	"log/slog"

	"github.com/roach88/fusecheck/internal/fusedb"
	"github.com/roach88/fusecheck/internal/version"
)

// Outcome says how a detection attempt ended.
type Outcome int

const (
	// Found means a listed archive matched a database record.
	Found Outcome = iota
	// EmptyDatabase means no [NCA] records were loaded.
	EmptyDatabase
	// KeyMissing means the partition key is not available.
	KeyMissing
	// KeyInstallFailed means the key could not be programmed.
	KeyInstallFailed
	// PartitionNotFound means the partition table has no SYSTEM entry.
	PartitionNotFound
	// MountFailed means SYSTEM could not be mounted.
	MountFailed
	// DirectoryOpenFailed means the registered directory could not be opened.
	DirectoryOpenFailed
	// DirectoryReadFailed means enumeration stopped on an error.
	DirectoryReadFailed
	// NoMatch means the listing was exhausted without a match.
	NoMatch
	// Cancelled means the context ended during the scan.
	Cancelled
)

var outcomeNames = map[Outcome]string{
	Found:               "found",
	EmptyDatabase:       "empty_database",
	KeyMissing:          "key_missing",
	KeyInstallFailed:    "key_install_failed",
	PartitionNotFound:   "partition_not_found",
	MountFailed:         "mount_failed",
	DirectoryOpenFailed: "directory_open_failed",
	DirectoryReadFailed: "directory_read_failed",
	NoMatch:             "no_match",
	Cancelled:           "cancelled",
}

func (o Outcome) String() string {
	if name, ok := outcomeNames[o]; ok {
		return name
	}
	return fmt.Sprintf("Outcome(%d)", int(o))
}

// MarshalText implements encoding.TextMarshaler.
func (o Outcome) MarshalText() ([]byte, error) {
	return []byte(o.String()), nil
}

// Result is the product of a detection attempt.
type Result struct {
	Outcome Outcome           `json:"outcome"`
	Version version.Version   `json:"version"`
	Record  *fusedb.NCARecord `json:"record,omitempty"`
	Scanned int               `json:"scanned"`
	Err     error             `json:"-"`
}

// Found reports whether a version was detected.
func (r Result) Found() bool {
	return r.Outcome == Found
}

// Detector finds the installed firmware by matching archive names on the
// SYSTEM partition against the database.
type Detector struct {
	store      *fusedb.Store
	loader     *fusedb.Loader
	keys       KeyStore
	partitions Partitions
	logger     *slog.Logger
}

// Option configures a Detector.
type Option func(*Detector)

// WithLogger sets the logger for detection diagnostics.
func WithLogger(logger *slog.Logger) Option {
	return func(d *Detector) { d.logger = logger }
}

// WithLoader makes Detect load the store before scanning. Without a
// loader the store is used as is.
func WithLoader(loader *fusedb.Loader) Option {
	return func(d *Detector) { d.loader = loader }
}

// New creates a Detector.
func New(store *fusedb.Store, keys KeyStore, partitions Partitions, opts ...Option) *Detector {
	d := &Detector{
		store:      store,
		keys:       keys,
		partitions: partitions,
		logger:     slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Detect mounts SYSTEM, scans the registered archives and returns the
// version of the first one listed in the database.
func (d *Detector) Detect(ctx context.Context) Result {
	if d.loader != nil {
		d.loader.Load(d.store)
	}

	if d.store.NCACount() == 0 {
		d.logger.Debug("no NCA records loaded, skipping detection")
		return Result{Outcome: EmptyDatabase}
	}

	if d.keys == nil || !d.keys.HasKey() {
		d.logger.Debug("partition key not available")
		return Result{Outcome: KeyMissing}
	}
	if err := d.keys.InstallKey(); err != nil {
		d.logger.Debug("partition key install failed", "error", err)
		return Result{Outcome: KeyInstallFailed, Err: err}
	}

	if d.partitions == nil {
		return Result{Outcome: PartitionNotFound}
	}
	part, err := d.partitions.Find(SystemPartition)
	if err != nil || part == nil {
		d.logger.Debug("SYSTEM partition not found", "error", err)
		return Result{Outcome: PartitionNotFound, Err: err}
	}

	if err := part.Mount(); err != nil {
		d.logger.Debug("mount failed", "error", err)
		_ = part.Unmount()
		return Result{Outcome: MountFailed, Err: err}
	}
	defer func() { _ = part.Unmount() }()

	dir, err := part.ReadDir(RegisteredDir)
	if err != nil {
		d.logger.Debug("failed to open directory", "dir", RegisteredDir, "error", err)
		return Result{Outcome: DirectoryOpenFailed, Err: err}
	}
	defer func() { _ = dir.Close() }()

	result := Scan(ctx, dir, d.store)
	d.logger.Debug("scan finished", "scanned", result.Scanned, "outcome", result.Outcome)
	return result
}

// Scan walks the listing and stops at the first name that matches a
// record. For each name, records are tried in insertion order.
func Scan(ctx context.Context, dir DirIterator, store *fusedb.Store) Result {
	records := store.NCARecords()
	if len(records) == 0 {
		return Result{Outcome: EmptyDatabase}
	}

	scanned := 0
	for {
		if err := ctx.Err(); err != nil {
			return Result{Outcome: Cancelled, Scanned: scanned, Err: err}
		}

		name, err := dir.Next()
		if err != nil {
			return Result{Outcome: DirectoryReadFailed, Scanned: scanned, Err: err}
		}
		if name == "" {
			return Result{Outcome: NoMatch, Scanned: scanned}
		}
		scanned++

		for _, rec := range records {
			if rec.Filename != name {
				continue
			}
			v, err := version.Parse(rec.Version)
			if err != nil {
				continue
			}
			return Result{Outcome: Found, Version: v, Record: &rec, Scanned: scanned}
		}
	}
}
