package fuse

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"io"
	"os"
)

// DefaultODMOffset is the offset of RESERVED_ODM0 inside a dump of the
// Tegra X1 fuse register block.
const DefaultODMOffset = 0x1C8

// StaticRegisters holds register values supplied by the user.
type StaticRegisters struct {
	ODM6 uint32
	ODM7 uint32
}

// ODM implements Registers.
func (s StaticRegisters) ODM(index int) (uint32, error) {
	switch index {
	case ODM6:
		return s.ODM6, nil
	case ODM7:
		return s.ODM7, nil
	default:
		return 0, fmt.Errorf("ODM%d not available", index)
	}
}

// DumpRegisters reads ODM words from a raw fuse-block dump.
// Words are little-endian, RESERVED_ODMn lives at Offset+4*n.
type DumpRegisters struct {
	r      io.ReaderAt
	Offset int64
}

// NewDumpRegisters wraps r. An offset of 0 selects DefaultODMOffset.
func NewDumpRegisters(r io.ReaderAt, offset int64) *DumpRegisters {
	if offset == 0 {
		offset = DefaultODMOffset
	}
	return &DumpRegisters{r: r, Offset: offset}
}

// OpenDump reads a fuse dump file into memory and returns registers over it.
func OpenDump(path string, offset int64) (*DumpRegisters, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open fuse dump: %w", err)
	}
	defer func() { _ = f.Close() }()

	data, err := io.ReadAll(f)
	if err != nil {
		return nil, fmt.Errorf("read fuse dump: %w", err)
	}
	return NewDumpRegisters(bytes.NewReader(data), offset), nil
}

// ODM implements Registers.
func (d *DumpRegisters) ODM(index int) (uint32, error) {
	if index < 0 || index > 7 {
		return 0, fmt.Errorf("ODM%d out of range", index)
	}

	var word [4]byte
	off := d.Offset + int64(4*index)
	if _, err := d.r.ReadAt(word[:], off); err != nil {
		return 0, fmt.Errorf("read word at 0x%X: %w", off, err)
	}
	return binary.LittleEndian.Uint32(word[:]), nil
}
