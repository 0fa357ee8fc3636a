package fuse

import "github.com/roach88/fusecheck/internal/version"

// DefaultRequired is returned when no rule covers a version.
const DefaultRequired uint8 = 1

// Rule maps a firmware version bracket to its required fuse count.
//
// The minor bounds only constrain the boundary major versions: a version
// whose major lies strictly between MajorMin and MajorMax matches regardless
// of its minor.
type Rule struct {
	MajorMin uint8 `json:"major_min"`
	MinorMin uint8 `json:"minor_min"`
	MajorMax uint8 `json:"major_max"`
	MinorMax uint8 `json:"minor_max"`
	Required uint8 `json:"required"`
}

// Matches reports whether v falls inside the rule's bracket.
func (r Rule) Matches(v version.Version) bool {
	if v.Major < r.MajorMin || v.Major > r.MajorMax {
		return false
	}
	if v.Major == r.MajorMin && v.Minor < r.MinorMin {
		return false
	}
	if v.Major == r.MajorMax && v.Minor > r.MinorMax {
		return false
	}
	return true
}

// Table is an ordered list of rules. Order is significant.
type Table []Rule

// Rules is the built-in production fuse table, ordered by ascending firmware.
var Rules = Table{
	{1, 0, 1, 0, 1},    // 1.0.0
	{2, 0, 2, 3, 2},    // 2.0.0-2.3.0
	{3, 0, 3, 0, 3},    // 3.0.0
	{3, 1, 3, 2, 4},    // 3.0.1-3.0.2
	{4, 0, 4, 1, 5},    // 4.0.0-4.1.0
	{5, 0, 5, 1, 6},    // 5.0.0-5.1.0
	{6, 0, 6, 1, 7},    // 6.0.0-6.1.0
	{6, 2, 6, 2, 8},    // 6.2.0
	{7, 0, 8, 1, 9},    // 7.0.0-8.0.1
	{8, 1, 8, 1, 10},   // 8.1.0
	{9, 0, 9, 1, 11},   // 9.0.0-9.0.1
	{9, 1, 9, 2, 12},   // 9.1.0-9.2.0
	{10, 0, 10, 2, 13}, // 10.0.0-10.2.0
	{11, 0, 12, 1, 14}, // 11.0.0-12.0.1
	{12, 2, 13, 1, 15}, // 12.0.2-13.1.0
	{13, 2, 14, 1, 16}, // 13.2.1-14.1.2
	{15, 0, 15, 1, 17}, // 15.0.0-15.0.1
	{16, 0, 16, 1, 18}, // 16.0.0-16.1.0
	{17, 0, 18, 1, 19}, // 17.0.0-18.1.0
	{19, 0, 19, 1, 20}, // 19.0.0-19.0.1
	{20, 0, 20, 5, 21}, // 20.0.0-20.5.0
	{21, 0, 21, 1, 22}, // 21.0.0-21.0.1
}

// Required returns the fuse count of the first rule matching v, or
// DefaultRequired when none does.
func (t Table) Required(v version.Version) uint8 {
	if r, ok := t.Lookup(v); ok {
		return r.Required
	}
	return DefaultRequired
}

// Lookup returns the first rule matching v.
func (t Table) Lookup(v version.Version) (Rule, bool) {
	for _, r := range t {
		if r.Matches(v) {
			return r, true
		}
	}
	return Rule{}, false
}

// RequiredFuses looks v up in the built-in table.
func RequiredFuses(v version.Version) uint8 {
	return Rules.Required(v)
}
