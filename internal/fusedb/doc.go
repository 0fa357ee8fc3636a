// Package fusedb holds the optional override database of firmware records.
//
// The database is a line-oriented text file, usually found at
// config/fusecheck/fusecheck_db.txt on the SD card:
//
//	# comment line
//	[NCA] <version> <filename.nca>
//	[FUSE] <range-label> <prod_count> <dev_count>
//
// Fields are separated by ASCII whitespace. Blank lines, comments and lines
// with an unknown prefix are ignored. A malformed record is skipped on its
// own and never fails the load; the LoadResult says how many lines were
// skipped and why.
//
// A Store is populated at most once. Loading it a second time is a no-op,
// and a Store is never mutated after its load has returned.
package fusedb
