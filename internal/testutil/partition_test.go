package testutil

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/fusecheck/internal/detect"
)

func TestSliceDir_Terminates(t *testing.T) {
	d := &SliceDir{Names: []string{"a.nca", "b.nca"}}

	name, err := d.Next()
	require.NoError(t, err)
	assert.Equal(t, "a.nca", name)

	name, _ = d.Next()
	assert.Equal(t, "b.nca", name)

	name, err = d.Next()
	require.NoError(t, err)
	assert.Empty(t, name)
}

func TestSliceDir_ErrorAfterNames(t *testing.T) {
	d := &SliceDir{Names: []string{"a.nca"}, Err: errors.New("io")}

	_, err := d.Next()
	require.NoError(t, err)
	_, err = d.Next()
	assert.Error(t, err)
}

func TestSystemWith(t *testing.T) {
	parts, system := SystemWith("x.nca")

	p, err := parts.Find(detect.SystemPartition)
	require.NoError(t, err)
	require.NoError(t, p.Mount())

	dir, err := p.ReadDir(detect.RegisteredDir)
	require.NoError(t, err)
	name, _ := dir.Next()
	assert.Equal(t, "x.nca", name)
	assert.Equal(t, 1, system.Enumerated)

	_, err = parts.Find("USER")
	assert.Error(t, err)
}

func TestBurntRegisters(t *testing.T) {
	r := BurntRegisters(34)
	assert.Equal(t, uint32(0xFFFFFFFF), r[6])
	assert.Equal(t, uint32(0x3), r[7])

	_, err := Registers{}.ODM(6)
	assert.Error(t, err)
}
