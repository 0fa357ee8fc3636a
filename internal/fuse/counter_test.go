package fuse

import (
	"bytes"
	"encoding/binary"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type failingRegisters struct{ fail int }

func (f failingRegisters) ODM(index int) (uint32, error) {
	if index == f.fail {
		return 0, errors.New("bus error")
	}
	return 0xFFFFFFFF, nil
}

func TestCount(t *testing.T) {
	tests := []struct {
		name       string
		odm6, odm7 uint32
		want       uint8
	}{
		{"none burnt", 0, 0, 0},
		{"low bits", 0x0000FFFF, 0, 16},
		{"split across registers", 0xFFFFFFFF, 0x00000003, 34},
		{"sparse", 0x80000001, 0x00010000, 3},
		{"all burnt", 0xFFFFFFFF, 0xFFFFFFFF, 64},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			state, err := Count(StaticRegisters{ODM6: tt.odm6, ODM7: tt.odm7})
			require.NoError(t, err)
			assert.Equal(t, tt.want, state.Burnt)
			assert.Equal(t, tt.odm6, state.ODM6)
			assert.Equal(t, tt.odm7, state.ODM7)
		})
	}
}

func TestCount_RegisterFailure(t *testing.T) {
	_, err := Count(failingRegisters{fail: ODM7})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "ODM7")
}

func TestStaticRegisters_UnknownIndex(t *testing.T) {
	_, err := StaticRegisters{}.ODM(3)
	assert.Error(t, err)
}

func dumpWith(offset int, odm6, odm7 uint32) []byte {
	buf := make([]byte, offset+4*8)
	binary.LittleEndian.PutUint32(buf[offset+4*ODM6:], odm6)
	binary.LittleEndian.PutUint32(buf[offset+4*ODM7:], odm7)
	return buf
}

func TestDumpRegisters(t *testing.T) {
	data := dumpWith(DefaultODMOffset, 0x000003FF, 0x1)
	regs := NewDumpRegisters(bytes.NewReader(data), 0)

	state, err := Count(regs)
	require.NoError(t, err)
	assert.Equal(t, uint8(11), state.Burnt)
}

func TestDumpRegisters_CustomOffset(t *testing.T) {
	data := dumpWith(0x40, 0xF, 0xF0)
	regs := NewDumpRegisters(bytes.NewReader(data), 0x40)

	state, err := Count(regs)
	require.NoError(t, err)
	assert.Equal(t, uint8(8), state.Burnt)
}

func TestDumpRegisters_ShortDump(t *testing.T) {
	regs := NewDumpRegisters(bytes.NewReader(make([]byte, 16)), 0)

	_, err := Count(regs)
	assert.Error(t, err)

	_, err = regs.ODM(8)
	assert.Error(t, err)
}

func TestOpenDump(t *testing.T) {
	path := filepath.Join(t.TempDir(), "fuses.bin")
	require.NoError(t, os.WriteFile(path, dumpWith(DefaultODMOffset, 0xFF, 0), 0o644))

	regs, err := OpenDump(path, 0)
	require.NoError(t, err)

	state, err := Count(regs)
	require.NoError(t, err)
	assert.Equal(t, uint8(8), state.Burnt)

	_, err = OpenDump(filepath.Join(t.TempDir(), "missing.bin"), 0)
	assert.Error(t, err)
}
