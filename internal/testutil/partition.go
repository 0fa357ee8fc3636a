package testutil

import (
	"errors"
	"sync"

	"github.com/roach88/fusecheck/internal/detect"
)

// FakeKeys is a detect.KeyStore with a fixed answer.
type FakeKeys struct {
	Present    bool
	InstallErr error
	Installed  bool
}

// HasKey implements detect.KeyStore.
func (k *FakeKeys) HasKey() bool { return k.Present }

// InstallKey implements detect.KeyStore.
func (k *FakeKeys) InstallKey() error {
	if k.InstallErr != nil {
		return k.InstallErr
	}
	k.Installed = true
	return nil
}

// FakePartition is an in-memory detect.Partition.
//
// Dirs maps a directory path to its listing. Mount and Unmount calls are
// counted so tests can check that every mount is paired with an unmount.
type FakePartition struct {
	mu sync.Mutex

	Dirs       map[string][]string
	MountErr   error
	ReadErr    error // returned by the listing after its entries run out
	Mounts     int
	Unmounts   int
	Enumerated int
}

// Mount implements detect.Partition.
func (p *FakePartition) Mount() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.Mounts++
	return p.MountErr
}

// Unmount implements detect.Partition.
func (p *FakePartition) Unmount() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.Unmounts++
	return nil
}

// ReadDir implements detect.Partition.
func (p *FakePartition) ReadDir(path string) (detect.DirIterator, error) {
	names, ok := p.Dirs[path]
	if !ok {
		return nil, errors.New("no such directory: " + path)
	}
	return &SliceDir{Names: names, Err: p.ReadErr, onNext: p.countNext}, nil
}

func (p *FakePartition) countNext() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.Enumerated++
}

// FakePartitions is a detect.Partitions over named fakes.
type FakePartitions map[string]*FakePartition

// Find implements detect.Partitions.
func (f FakePartitions) Find(name string) (detect.Partition, error) {
	p, ok := f[name]
	if !ok {
		return nil, errors.New("partition not found: " + name)
	}
	return p, nil
}

// SliceDir is a detect.DirIterator over a fixed list of names.
// After the names run out it returns Err, or the empty-name terminator.
type SliceDir struct {
	Names  []string
	Err    error
	Closed bool

	pos    int
	onNext func()
}

// Next implements detect.DirIterator.
func (d *SliceDir) Next() (string, error) {
	if d.pos >= len(d.Names) {
		return "", d.Err
	}
	if d.onNext != nil {
		d.onNext()
	}
	name := d.Names[d.pos]
	d.pos++
	return name, nil
}

// Close implements detect.DirIterator.
func (d *SliceDir) Close() error {
	d.Closed = true
	return nil
}

// SystemWith returns partitions holding a SYSTEM partition whose
// registered directory lists names.
func SystemWith(names ...string) (FakePartitions, *FakePartition) {
	p := &FakePartition{Dirs: map[string][]string{detect.RegisteredDir: names}}
	return FakePartitions{detect.SystemPartition: p}, p
}
