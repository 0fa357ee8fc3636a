// Package verdict compares burnt and required fuse counts.
package verdict

import "fmt"

// Kind is the outcome of a fuse comparison.
type Kind int

const (
	// Match means the burnt count equals the required count.
	Match Kind = iota
	// FuseMismatchUnder means fewer fuses are burnt than the firmware expects.
	FuseMismatchUnder
	// FuseMismatchOver means more fuses are burnt than the firmware expects.
	FuseMismatchOver
)

func (k Kind) String() string {
	switch k {
	case Match:
		return "match"
	case FuseMismatchUnder:
		return "under"
	case FuseMismatchOver:
		return "over"
	}
	return fmt.Sprintf("Kind(%d)", int(k))
}

// MarshalText implements encoding.TextMarshaler.
func (k Kind) MarshalText() ([]byte, error) {
	return []byte(k.String()), nil
}

// Verdict is the result of Evaluate. Delta is |Burnt - Required|.
type Verdict struct {
	Kind     Kind  `json:"kind"`
	Burnt    uint8 `json:"burnt"`
	Required uint8 `json:"required"`
	Delta    uint8 `json:"delta"`
}

// Evaluate compares burnt against required.
func Evaluate(burnt, required uint8) Verdict {
	v := Verdict{Burnt: burnt, Required: required}
	switch {
	case burnt < required:
		v.Kind = FuseMismatchUnder
		v.Delta = required - burnt
	case burnt > required:
		v.Kind = FuseMismatchOver
		v.Delta = burnt - required
	default:
		v.Kind = Match
	}
	return v
}

// Pass reports whether the official firmware will boot.
func (v Verdict) Pass() bool {
	return v.Kind == Match
}

// Status is the one-line headline for the verdict.
func (v Verdict) Status() string {
	switch v.Kind {
	case FuseMismatchUnder:
		return "STATUS: FUSE MISMATCH"
	case FuseMismatchOver:
		return "STATUS: FUSE MISMATCH (OVERBURNT)"
	default:
		return "STATUS: PERFECT MATCH"
	}
}

// Guidance returns the explanation lines shown under the headline.
func (v Verdict) Guidance() []string {
	switch v.Kind {
	case FuseMismatchUnder:
		return []string{
			fmt.Sprintf("Missing %d fuse(s) - OFW WILL NOT BOOT!", v.Delta),
			"System will black screen on OFW boot",
			"What will work: CFW (Atmosphere), Semi-stock (Hekate nogc)",
		}
	case FuseMismatchOver:
		return []string{
			fmt.Sprintf("Extra %d fuse(s) burnt - OFW WILL NOT BOOT!", v.Delta),
			"System will black screen on OFW boot",
			"What will work: CFW (Atmosphere), Semi-stock (Hekate nogc)",
			fmt.Sprintf("Cannot downgrade below FW %d.x.x", v.Burnt),
		}
	default:
		return []string{
			"Exact fuse count match - OFW WILL BOOT NORMALLY",
			"All systems operational",
		}
	}
}
