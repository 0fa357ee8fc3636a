package fuse

import (
	"fmt"
	"math/bits"
)

// Reserved ODM fuse registers that record anti-downgrade burns.
const (
	ODM6 = 6
	ODM7 = 7
)

// Registers reads 32-bit reserved ODM fuse words. Reads have no side effects.
type Registers interface {
	ODM(index int) (uint32, error)
}

// State is a snapshot of the burnt fuse count and the raw registers it came from.
type State struct {
	Burnt uint8  `json:"burnt"`
	ODM6  uint32 `json:"odm6"`
	ODM7  uint32 `json:"odm7"`
}

// Count reads ODM6 and ODM7 and counts their set bits.
func Count(regs Registers) (State, error) {
	odm6, err := regs.ODM(ODM6)
	if err != nil {
		return State{}, fmt.Errorf("read ODM%d: %w", ODM6, err)
	}
	odm7, err := regs.ODM(ODM7)
	if err != nil {
		return State{}, fmt.Errorf("read ODM%d: %w", ODM7, err)
	}

	return State{
		Burnt: uint8(bits.OnesCount32(odm6) + bits.OnesCount32(odm7)),
		ODM6:  odm6,
		ODM7:  odm7,
	}, nil
}
