package detect

import (
	"bufio"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"golang.org/x/text/unicode/norm"
)

// BISKeyName is the prod.keys entry for the SYSTEM partition key.
const BISKeyName = "bis_key_02"

// bisKeySize is the length of a BIS key: a 16-byte crypt key followed by a
// 16-byte tweak key.
const bisKeySize = 32

// ErrKeyMissing is returned by KeyFile.InstallKey when BIS key 2 is absent.
var ErrKeyMissing = errors.New("bis_key_02 not present")

// KeyFile holds keys parsed from a "name = hex" key file such as prod.keys.
type KeyFile struct {
	keys map[string][]byte
}

// LoadKeyFile reads a key file. A missing file yields an empty KeyFile so
// that detection degrades to KeyMissing instead of failing.
func LoadKeyFile(path string) (*KeyFile, error) {
	f, err := os.Open(path)
	if errors.Is(err, os.ErrNotExist) {
		return &KeyFile{keys: map[string][]byte{}}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("open key file: %w", err)
	}
	defer func() { _ = f.Close() }()

	return ParseKeys(f)
}

// ParseKeys reads "name = hex" lines. Lines that do not decode are ignored.
func ParseKeys(r io.Reader) (*KeyFile, error) {
	kf := &KeyFile{keys: map[string][]byte{}}

	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		name, value, ok := strings.Cut(scanner.Text(), "=")
		if !ok {
			continue
		}
		key, err := hex.DecodeString(strings.TrimSpace(value))
		if err != nil {
			continue
		}
		kf.keys[strings.ToLower(strings.TrimSpace(name))] = key
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("read key file: %w", err)
	}
	return kf, nil
}

// HasKey implements KeyStore.
func (k *KeyFile) HasKey() bool {
	return len(k.keys[BISKeyName]) == bisKeySize
}

// InstallKey implements KeyStore. Host partitions are already decrypted,
// so installing only checks the key is there.
func (k *KeyFile) InstallKey() error {
	if !k.HasKey() {
		return ErrKeyMissing
	}
	return nil
}

// HostPartitions maps partition names to directories holding their
// decrypted contents, e.g. a SYSTEM partition extracted on a PC.
type HostPartitions map[string]string

// Find implements Partitions.
func (h HostPartitions) Find(name string) (Partition, error) {
	root, ok := h[name]
	if !ok || root == "" {
		return nil, fmt.Errorf("partition %s not configured", name)
	}
	return &DirPartition{Root: root}, nil
}

// DirPartition is a Partition backed by a host directory.
type DirPartition struct {
	Root    string
	mounted bool
}

// Mount checks that Root is a directory.
func (p *DirPartition) Mount() error {
	info, err := os.Stat(p.Root)
	if err != nil {
		return fmt.Errorf("mount %s: %w", p.Root, err)
	}
	if !info.IsDir() {
		return fmt.Errorf("mount %s: not a directory", p.Root)
	}
	p.mounted = true
	return nil
}

// Unmount implements Partition.
func (p *DirPartition) Unmount() error {
	p.mounted = false
	return nil
}

// ReadDir opens path relative to Root and lists it lazily.
func (p *DirPartition) ReadDir(path string) (DirIterator, error) {
	if !p.mounted {
		return nil, fmt.Errorf("read %s: partition not mounted", path)
	}
	f, err := os.Open(filepath.Join(p.Root, filepath.FromSlash(path)))
	if err != nil {
		return nil, fmt.Errorf("open directory: %w", err)
	}
	return &dirIterator{f: f}, nil
}

// dirBatch is the number of entries fetched per directory read.
const dirBatch = 64

type dirIterator struct {
	f       *os.File
	pending []string
	done    bool
}

// Next returns names in NFC so that listings from file systems storing
// decomposed names compare equal to database entries.
func (it *dirIterator) Next() (string, error) {
	for len(it.pending) == 0 {
		if it.done {
			return "", nil
		}
		names, err := it.f.Readdirnames(dirBatch)
		if errors.Is(err, io.EOF) {
			it.done = true
			continue
		}
		if err != nil {
			return "", fmt.Errorf("read directory: %w", err)
		}
		it.pending = names
	}

	name := it.pending[0]
	it.pending = it.pending[1:]
	return norm.NFC.String(name), nil
}

func (it *dirIterator) Close() error {
	return it.f.Close()
}
