// Package check runs a complete fuse compatibility check: it counts burnt
// fuses, detects the installed firmware, and compares the two.
package check

import (
	"context"
	"fmt"
	"io"
	"log/slog"

	"github.com/roach88/fusecheck/internal/detect"
	"github.com/roach88/fusecheck/internal/fuse"
	"github.com/roach88/fusecheck/internal/fusedb"
	"github.com/roach88/fusecheck/internal/verdict"
	"github.com/roach88/fusecheck/internal/version"
)

// Report is everything a presentation layer needs to show a verdict.
type Report struct {
	Fuses     fuse.State        `json:"fuses"`
	Firmware  version.Version   `json:"firmware"`
	Detected  bool              `json:"detected"`
	Detection detect.Result     `json:"detection"`
	Database  fusedb.LoadResult `json:"database"`
	Required  uint8             `json:"required"`
	Verdict   verdict.Verdict   `json:"verdict"`
	Status    string            `json:"status"`
	Guidance  []string          `json:"guidance"`
}

// Pass reports whether the official firmware will boot.
func (r *Report) Pass() bool {
	return r.Verdict.Pass()
}

// Runner wires the fuse source, database and detector together.
type Runner struct {
	registers fuse.Registers
	detector  *detect.Detector
	store     *fusedb.Store
	loader    *fusedb.Loader
	table     fuse.Table
	logger    *slog.Logger
}

// Option configures a Runner.
type Option func(*Runner)

// WithDatabase loads store through loader before detection so the load
// result ends up in the report.
func WithDatabase(store *fusedb.Store, loader *fusedb.Loader) Option {
	return func(r *Runner) {
		r.store = store
		r.loader = loader
	}
}

// WithTable replaces the built-in fuse table.
func WithTable(table fuse.Table) Option {
	return func(r *Runner) { r.table = table }
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(r *Runner) { r.logger = logger }
}

// NewRunner creates a Runner.
func NewRunner(registers fuse.Registers, detector *detect.Detector, opts ...Option) *Runner {
	r := &Runner{
		registers: registers,
		detector:  detector,
		table:     fuse.Rules,
		logger:    slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Run performs one check. It fails only if the fuse registers cannot be
// read or ctx is done; detection problems fall back to firmware 1.0.0.
func (r *Runner) Run(ctx context.Context) (*Report, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	state, err := fuse.Count(r.registers)
	if err != nil {
		return nil, fmt.Errorf("count fuses: %w", err)
	}
	r.logger.Debug("fuses counted", "burnt", state.Burnt, "odm6", state.ODM6, "odm7", state.ODM7)

	report := &Report{Fuses: state}

	if r.loader != nil && r.store != nil {
		report.Database = r.loader.Load(r.store)
	}

	report.Detection = r.detector.Detect(ctx)
	report.Firmware = version.Default
	if report.Detection.Found() {
		report.Firmware = report.Detection.Version
		report.Detected = true
	}
	r.logger.Debug("firmware resolved",
		"version", report.Firmware.String(),
		"detected", report.Detected,
		"outcome", report.Detection.Outcome,
	)

	report.Required = r.table.Required(report.Firmware)
	report.Verdict = verdict.Evaluate(state.Burnt, report.Required)
	report.Status = report.Verdict.Status()
	report.Guidance = report.Verdict.Guidance()

	r.logger.Info("fuse check complete",
		"burnt", state.Burnt,
		"required", report.Required,
		"verdict", report.Verdict.Kind,
	)
	return report, nil
}
