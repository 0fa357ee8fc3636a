package testutil

import "fmt"

// Registers is a fuse.Registers over a map of ODM index to value.
// Indexes missing from the map fail to read.
type Registers map[int]uint32

// ODM implements fuse.Registers.
func (r Registers) ODM(index int) (uint32, error) {
	v, ok := r[index]
	if !ok {
		return 0, fmt.Errorf("ODM%d unreadable", index)
	}
	return v, nil
}

// BurntRegisters returns registers with n low bits set across ODM6 then ODM7.
func BurntRegisters(n int) Registers {
	var odm6, odm7 uint32
	for i := 0; i < n && i < 64; i++ {
		if i < 32 {
			odm6 |= 1 << i
		} else {
			odm7 |= 1 << (i - 32)
		}
	}
	return Registers{6: odm6, 7: odm7}
}
