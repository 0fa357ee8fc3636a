package fusedb

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"strings"

	"github.com/roach88/fusecheck/internal/version"
)

// Record-kind prefixes. Matched literally and case-sensitively.
const (
	prefixNCA  = "[NCA]"
	prefixFuse = "[FUSE]"
	ncaSuffix  = ".nca"
)

// LoadStatus classifies how a load attempt ended. None of the statuses is
// fatal: every one of them leaves a usable Store behind.
type LoadStatus int

const (
	// StatusLoaded means the database was read to the end.
	StatusLoaded LoadStatus = iota
	// StatusAlreadyLoaded means the store had been loaded before; nothing was read.
	StatusAlreadyLoaded
	// StatusNotFound means no database exists; only built-in data is used.
	StatusNotFound
	// StatusOpenFailed means the database exists but could not be opened.
	StatusOpenFailed
	// StatusReadFailed means reading stopped early; records read so far are kept.
	StatusReadFailed
)

var statusNames = map[LoadStatus]string{
	StatusLoaded:        "loaded",
	StatusAlreadyLoaded: "already_loaded",
	StatusNotFound:      "not_found",
	StatusOpenFailed:    "open_failed",
	StatusReadFailed:    "read_failed",
}

func (s LoadStatus) String() string {
	if name, ok := statusNames[s]; ok {
		return name
	}
	return fmt.Sprintf("LoadStatus(%d)", int(s))
}

// MarshalText implements encoding.TextMarshaler.
func (s LoadStatus) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// Skipped counts lines that did not produce a record.
type Skipped struct {
	Malformed int `json:"malformed"` // a recognised record with bad or missing fields
	Overflow  int `json:"overflow"`  // a record dropped because its table was full
	Unknown   int `json:"unknown"`   // a non-comment line with no recognised prefix
	Truncated int `json:"truncated"` // lines cut at MaxLineLen (the line may still load)
}

// Total returns the number of lines that produced no record.
func (s Skipped) Total() int {
	return s.Malformed + s.Overflow + s.Unknown
}

// LoadResult describes a load attempt.
type LoadResult struct {
	Status  LoadStatus `json:"status"`
	Path    string     `json:"path,omitempty"`
	Lines   int        `json:"lines"`
	NCA     int        `json:"nca"`
	Fuse    int        `json:"fuse"`
	Skipped Skipped    `json:"skipped"`
	Err     error      `json:"-"`
}

// Loader populates a Store from a Resource.
type Loader struct {
	resource Resource
	path     string
	logger   *slog.Logger
}

// LoaderOption configures a Loader.
type LoaderOption func(*Loader)

// WithPath overrides DefaultPath.
func WithPath(path string) LoaderOption {
	return func(l *Loader) { l.path = path }
}

// WithLogger sets the logger for load diagnostics.
func WithLogger(logger *slog.Logger) LoaderOption {
	return func(l *Loader) { l.logger = logger }
}

// NewLoader creates a Loader reading from resource.
func NewLoader(resource Resource, opts ...LoaderOption) *Loader {
	l := &Loader{
		resource: resource,
		path:     DefaultPath,
		logger:   slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Path returns the logical path the loader reads.
func (l *Loader) Path() string {
	return l.path
}

// Load reads the database into s. It is a no-op if s has already been
// loaded, whether or not that earlier attempt found a database.
func (l *Loader) Load(s *Store) LoadResult {
	if s.loaded {
		return LoadResult{
			Status: StatusAlreadyLoaded,
			Path:   l.path,
			NCA:    len(s.nca),
			Fuse:   len(s.fuses),
		}
	}
	s.loaded = true

	if l.resource == nil {
		l.logger.Debug("database resource not configured, using built-in data")
		return LoadResult{Status: StatusNotFound, Path: l.path}
	}

	rc, err := l.resource.Open(l.path)
	if err != nil {
		status := StatusOpenFailed
		if errors.Is(err, fs.ErrNotExist) {
			status = StatusNotFound
		}
		l.logger.Debug("database not opened, using built-in data", "path", l.path, "status", status, "error", err)
		return LoadResult{Status: status, Path: l.path, Err: err}
	}
	defer func() { _ = rc.Close() }()

	result := parseInto(s, rc)
	result.Path = l.path

	l.logger.Debug("database loaded",
		"path", l.path,
		"nca", result.NCA,
		"fuse", result.Fuse,
		"skipped", result.Skipped.Total(),
		"status", result.Status,
	)
	return result
}

// ParseReader loads s from r. It follows the same once-only rule as
// Loader.Load and is useful for validating a database file directly.
func ParseReader(s *Store, r io.Reader) LoadResult {
	if s.loaded {
		return LoadResult{Status: StatusAlreadyLoaded, NCA: len(s.nca), Fuse: len(s.fuses)}
	}
	s.loaded = true
	return parseInto(s, r)
}

func parseInto(s *Store, r io.Reader) LoadResult {
	var result LoadResult
	br := bufio.NewReader(r)

	for {
		line, truncated, err := readLine(br)
		if err != nil {
			if !errors.Is(err, io.EOF) {
				result.Status = StatusReadFailed
				result.Err = err
			}
			break
		}
		result.Lines++
		if truncated {
			result.Skipped.Truncated++
		}
		s.parseLine(line, &result.Skipped)
	}

	result.NCA = len(s.nca)
	result.Fuse = len(s.fuses)
	return result
}

// readLine returns the next line without its terminator, keeping at most
// MaxLineLen bytes and discarding the rest of an overlong line.
func readLine(br *bufio.Reader) (string, bool, error) {
	var buf []byte
	truncated := false

	for {
		chunk, isPrefix, err := br.ReadLine()
		if err != nil {
			return "", false, err
		}

		room := MaxLineLen - len(buf)
		if len(chunk) > room {
			chunk = chunk[:room]
			truncated = true
		}
		buf = append(buf, chunk...)

		if !isPrefix {
			return strings.TrimRight(string(buf), "\r\n"), truncated, nil
		}
	}
}

func (s *Store) parseLine(line string, skipped *Skipped) {
	p := strings.TrimLeftFunc(line, isSpace)
	if p == "" || p[0] == '#' {
		return
	}

	switch {
	case strings.HasPrefix(p, prefixNCA):
		if len(s.nca) >= MaxNCARecords {
			skipped.Overflow++
			return
		}
		rec, ok := parseNCA(p[len(prefixNCA):])
		if !ok {
			skipped.Malformed++
			return
		}
		s.nca = append(s.nca, rec)

	case strings.HasPrefix(p, prefixFuse):
		if len(s.fuses) >= MaxFuseRecords {
			skipped.Overflow++
			return
		}
		rec, ok := parseFuse(p[len(prefixFuse):])
		if !ok {
			skipped.Malformed++
			return
		}
		s.fuses = append(s.fuses, rec)

	default:
		skipped.Unknown++
	}
}

// parseNCA reads "<version> <filename>". The suffix and version checks run
// on the full tokens; the stored copies are truncated to their bounds.
func parseNCA(rest string) (NCARecord, bool) {
	fields := strings.FieldsFunc(rest, isSpace)
	if len(fields) < 2 {
		return NCARecord{}, false
	}
	ver, name := fields[0], fields[1]

	if !strings.HasSuffix(name, ncaSuffix) {
		return NCARecord{}, false
	}
	if _, err := version.Parse(ver); err != nil {
		return NCARecord{}, false
	}

	return NCARecord{
		Version:  truncate(ver, MaxVersionLen),
		Filename: truncate(name, MaxFilenameLen),
	}, true
}

// parseFuse reads "<range> <prod> <dev>". The counts are read with one
// cursor: digits, then whitespace, then digits. Whatever stops a digit run
// ends the parse, so "5x 6" has Dev 0. Missing counts are 0; a count above
// 255 rejects the record.
func parseFuse(rest string) (FuseRecord, bool) {
	p := strings.TrimLeftFunc(rest, isSpace)
	end := strings.IndexFunc(p, isSpace)
	if end < 0 {
		end = len(p)
	}
	rng := p[:end]
	if rng == "" {
		return FuseRecord{}, false
	}

	prod, p, ok := count(strings.TrimLeftFunc(p[end:], isSpace))
	if !ok {
		return FuseRecord{}, false
	}
	dev, _, ok := count(strings.TrimLeftFunc(p, isSpace))
	if !ok {
		return FuseRecord{}, false
	}

	return FuseRecord{
		Range: truncate(rng, MaxRangeLen),
		Prod:  prod,
		Dev:   dev,
	}, true
}

// count accumulates the leading decimal digits of s and returns the rest.
// Accumulation stops as soon as the value leaves the 0-255 range.
func count(s string) (uint8, string, bool) {
	n, i := 0, 0
	for ; i < len(s) && s[i] >= '0' && s[i] <= '9'; i++ {
		n = n*10 + int(s[i]-'0')
		if n > 255 {
			return 0, s, false
		}
	}
	return uint8(n), s[i:], true
}

func truncate(s string, n int) string {
	if len(s) > n {
		return s[:n]
	}
	return s
}

// isSpace matches the C locale's isspace.
func isSpace(r rune) bool {
	switch r {
	case ' ', '\t', '\n', '\v', '\f', '\r':
		return true
	}
	return false
}
