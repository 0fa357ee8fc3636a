package history

import (
	"context"
	"database/sql"
	_ "embed"
	"errors"
	"fmt"

	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3"

	"github.com/roach88/fusecheck/internal/check"
)

//go:embed schema.sql
var schemaSQL string

// Schema version tracking:
// 0 - Initial schema (pre-migration)
// 1 - Added index on checks.verdict
const currentSchemaVersion = 1

// ErrNotFound is returned when a check ID is not in the log.
var ErrNotFound = errors.New("check not found")

// IDGenerator produces check identifiers.
type IDGenerator interface {
	Generate() string
}

// UUIDv7Generator generates time-sortable UUIDv7 identifiers.
type UUIDv7Generator struct{}

// Generate returns a new hyphenated UUIDv7.
func (UUIDv7Generator) Generate() string {
	return uuid.Must(uuid.NewV7()).String()
}

// Entry is one logged check.
type Entry struct {
	ID       string `json:"id"`
	Seq      int64  `json:"seq"`
	Burnt    uint8  `json:"burnt"`
	Required uint8  `json:"required"`
	ODM6     uint32 `json:"odm6"`
	ODM7     uint32 `json:"odm7"`
	Firmware string `json:"firmware"`
	Detected bool   `json:"detected"`
	Outcome  string `json:"outcome"`
	Verdict  string `json:"verdict"`
	Delta    uint8  `json:"delta"`
}

// Store is the check log.
type Store struct {
	db  *sql.DB
	ids IDGenerator
}

// Option configures a Store.
type Option func(*Store)

// WithIDGenerator overrides the UUIDv7 generator.
func WithIDGenerator(gen IDGenerator) Option {
	return func(s *Store) { s.ids = gen }
}

// Open creates or opens the log at path. Applies pragmas and migrations.
// This function is idempotent - safe to call multiple times.
func Open(path string, opts ...Option) (*Store, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	// SQLite only supports one writer at a time
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	if err := applyPragmas(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to apply pragmas: %w", err)
	}

	if err := applySchema(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to apply schema: %w", err)
	}

	s := &Store{db: db, ids: UUIDv7Generator{}}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	if s.db == nil {
		return nil
	}
	return s.db.Close()
}

// Record appends a report to the log and returns the stored entry.
func (s *Store) Record(ctx context.Context, report *check.Report) (Entry, error) {
	entry := Entry{
		ID:       s.ids.Generate(),
		Burnt:    report.Fuses.Burnt,
		Required: report.Required,
		ODM6:     report.Fuses.ODM6,
		ODM7:     report.Fuses.ODM7,
		Firmware: report.Firmware.String(),
		Detected: report.Detected,
		Outcome:  report.Detection.Outcome.String(),
		Verdict:  report.Verdict.Kind.String(),
		Delta:    report.Verdict.Delta,
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return Entry{}, fmt.Errorf("record check: begin tx: %w", err)
	}
	defer tx.Rollback() // No-op if committed

	if err := tx.QueryRowContext(ctx, `SELECT COALESCE(MAX(seq), 0) + 1 FROM checks`).Scan(&entry.Seq); err != nil {
		return Entry{}, fmt.Errorf("record check: next seq: %w", err)
	}

	_, err = tx.ExecContext(ctx, `
		INSERT INTO checks
		(id, seq, burnt, required, odm6, odm7, firmware, detected, outcome, verdict, delta)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`,
		entry.ID,
		entry.Seq,
		entry.Burnt,
		entry.Required,
		entry.ODM6,
		entry.ODM7,
		entry.Firmware,
		entry.Detected,
		entry.Outcome,
		entry.Verdict,
		entry.Delta,
	)
	if err != nil {
		return Entry{}, fmt.Errorf("record check: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return Entry{}, fmt.Errorf("record check: commit: %w", err)
	}
	return entry, nil
}

const selectColumns = `id, seq, burnt, required, odm6, odm7, firmware, detected, outcome, verdict, delta`

// List returns up to limit entries, newest first. A limit of 0 or less
// returns every entry.
func (s *Store) List(ctx context.Context, limit int) ([]Entry, error) {
	query := `SELECT ` + selectColumns + ` FROM checks ORDER BY seq DESC, id ASC COLLATE BINARY`
	args := []any{}
	if limit > 0 {
		query += ` LIMIT ?`
		args = append(args, limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list checks: %w", err)
	}
	defer rows.Close()

	var entries []Entry
	for rows.Next() {
		e, err := scanEntry(rows)
		if err != nil {
			return nil, fmt.Errorf("list checks: %w", err)
		}
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list checks: %w", err)
	}
	return entries, nil
}

// Get returns the entry with the given ID.
func (s *Store) Get(ctx context.Context, id string) (Entry, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+selectColumns+` FROM checks WHERE id = ?`, id)
	e, err := scanEntry(row)
	if errors.Is(err, sql.ErrNoRows) {
		return Entry{}, fmt.Errorf("get check %s: %w", id, ErrNotFound)
	}
	if err != nil {
		return Entry{}, fmt.Errorf("get check %s: %w", id, err)
	}
	return e, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanEntry(row scanner) (Entry, error) {
	var e Entry
	err := row.Scan(
		&e.ID,
		&e.Seq,
		&e.Burnt,
		&e.Required,
		&e.ODM6,
		&e.ODM7,
		&e.Firmware,
		&e.Detected,
		&e.Outcome,
		&e.Verdict,
		&e.Delta,
	)
	return e, err
}

// applyPragmas sets required SQLite configuration.
func applyPragmas(db *sql.DB) error {
	pragmas := []string{
		"PRAGMA journal_mode = WAL",
		"PRAGMA synchronous = NORMAL",
		"PRAGMA busy_timeout = 5000",
	}

	for _, pragma := range pragmas {
		if _, err := db.Exec(pragma); err != nil {
			return fmt.Errorf("failed to execute %q: %w", pragma, err)
		}
	}
	return nil
}

// applySchema creates tables if they don't exist and runs migrations.
func applySchema(db *sql.DB) error {
	if _, err := db.Exec(schemaSQL); err != nil {
		return fmt.Errorf("failed to execute schema: %w", err)
	}
	if err := runMigrations(db); err != nil {
		return fmt.Errorf("failed to run migrations: %w", err)
	}
	return nil
}

// runMigrations applies incremental schema migrations based on user_version.
func runMigrations(db *sql.DB) error {
	var version int
	if err := db.QueryRow("PRAGMA user_version").Scan(&version); err != nil {
		return fmt.Errorf("get user_version: %w", err)
	}

	if version < 1 {
		if err := migrateToV1(db); err != nil {
			return err
		}
	}

	if _, err := db.Exec(fmt.Sprintf("PRAGMA user_version = %d", currentSchemaVersion)); err != nil {
		return fmt.Errorf("set user_version: %w", err)
	}
	return nil
}

// migrateToV1 indexes checks by verdict for filtering mismatches.
func migrateToV1(db *sql.DB) error {
	_, err := db.Exec(`CREATE INDEX IF NOT EXISTS idx_checks_verdict ON checks(verdict)`)
	if err != nil {
		return fmt.Errorf("migrate to v1: %w", err)
	}
	return nil
}
