package version

import (
	"errors"
	"fmt"
)

// ErrInvalidFormat is returned when a string has no "." after its major digits.
var ErrInvalidFormat = errors.New("invalid version format")

// maxComponent is the largest value a version component can hold.
const maxComponent = 255

// Version is a firmware version triple.
// Ordering is lexicographic over (Major, Minor, Patch).
type Version struct {
	Major uint8 `json:"major"`
	Minor uint8 `json:"minor"`
	Patch uint8 `json:"patch"`
}

// Default is reported when the installed firmware cannot be detected.
var Default = Version{Major: 1}

// Parse reads a "major.minor[.patch]" prefix from text.
//
// Digit runs end at the first non-digit character. A missing patch is 0.
// Trailing characters after the recognised prefix are ignored, so
// "18.0.1-rc" parses as 18.0.1.
func Parse(text string) (Version, error) {
	if text == "" {
		return Version{}, fmt.Errorf("%w: empty string", ErrInvalidFormat)
	}

	major, rest := digits(text)
	if rest == "" || rest[0] != '.' {
		return Version{}, fmt.Errorf("%w: %q has no minor separator", ErrInvalidFormat, text)
	}

	minor, rest := digits(rest[1:])

	var patch uint8
	if rest != "" && rest[0] == '.' {
		patch, _ = digits(rest[1:])
	}

	return Version{Major: major, Minor: minor, Patch: patch}, nil
}

// MustParse is like Parse but panics on error. Intended for tables and tests.
func MustParse(text string) Version {
	v, err := Parse(text)
	if err != nil {
		panic(err)
	}
	return v
}

// digits consumes a leading run of ASCII digits and returns its value,
// saturated at 255, along with the unconsumed remainder.
func digits(s string) (uint8, string) {
	n := 0
	i := 0
	for i < len(s) && s[i] >= '0' && s[i] <= '9' {
		n = n*10 + int(s[i]-'0')
		if n > maxComponent {
			n = maxComponent
		}
		i++
	}
	return uint8(n), s[i:]
}

// String formats v as "major.minor.patch".
func (v Version) String() string {
	return fmt.Sprintf("%d.%d.%d", v.Major, v.Minor, v.Patch)
}

// Compare returns -1, 0 or +1 depending on whether v sorts before, equal to,
// or after other.
func (v Version) Compare(other Version) int {
	switch {
	case v.Major != other.Major:
		return cmp(v.Major, other.Major)
	case v.Minor != other.Minor:
		return cmp(v.Minor, other.Minor)
	default:
		return cmp(v.Patch, other.Patch)
	}
}

// Less reports whether v sorts before other.
func (v Version) Less(other Version) bool {
	return v.Compare(other) < 0
}

func cmp(a, b uint8) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	}
	return 0
}
