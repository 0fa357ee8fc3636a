package fusedb

import "slices"

// Capacity and field bounds of the database.
const (
	// MaxNCARecords is the capacity of the filename-to-version table.
	MaxNCARecords = 256

	// MaxFuseRecords is the capacity of the fuse count table.
	MaxFuseRecords = 64

	// MaxVersionLen bounds the stored version string of an [NCA] record.
	MaxVersionLen = 15

	// MaxFilenameLen bounds the stored filename of an [NCA] record.
	MaxFilenameLen = 63

	// MaxRangeLen bounds the range label of a [FUSE] record.
	MaxRangeLen = 31

	// MaxLineLen is the number of visible characters read per line.
	// Anything past it is dropped.
	MaxLineLen = 127
)

// NCARecord maps a SystemVersion content archive name to a firmware version.
type NCARecord struct {
	Version  string `json:"version"`
	Filename string `json:"filename"`
}

// FuseRecord is a display row of the fuse map: a free-form range label and
// the fuse counts for production and development units.
type FuseRecord struct {
	Range string `json:"range"`
	Prod  uint8  `json:"prod"`
	Dev   uint8  `json:"dev"`
}

// Store is the in-memory database. Records keep file order and are never
// reordered or deduplicated.
type Store struct {
	nca    []NCARecord
	fuses  []FuseRecord
	loaded bool
}

// NewStore returns an empty, unloaded store.
func NewStore() *Store {
	return &Store{}
}

// Loaded reports whether a load has been attempted on s.
func (s *Store) Loaded() bool {
	return s.loaded
}

// NCARecords returns a copy of the filename-to-version records in file order.
func (s *Store) NCARecords() []NCARecord {
	return slices.Clone(s.nca)
}

// FuseRecords returns a copy of the fuse count records in file order.
func (s *Store) FuseRecords() []FuseRecord {
	return slices.Clone(s.fuses)
}

// NCACount returns the number of [NCA] records.
func (s *Store) NCACount() int {
	return len(s.nca)
}

// FuseCount returns the number of [FUSE] records.
func (s *Store) FuseCount() int {
	return len(s.fuses)
}

// LookupFilename returns the first record, in insertion order, whose
// filename equals name exactly.
func (s *Store) LookupFilename(name string) (NCARecord, bool) {
	for _, rec := range s.nca {
		if rec.Filename == name {
			return rec, true
		}
	}
	return NCARecord{}, false
}

// FusePage returns up to size fuse records starting at offset. The offset
// is clamped so the page never runs past the end of the table.
func (s *Store) FusePage(offset, size int) (page []FuseRecord, start int) {
	if size <= 0 {
		return nil, 0
	}
	maxStart := len(s.fuses) - size
	if maxStart < 0 {
		maxStart = 0
	}
	start = min(max(offset, 0), maxStart)
	end := min(start+size, len(s.fuses))
	return slices.Clone(s.fuses[start:end]), start
}
