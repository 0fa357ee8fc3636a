// Package config loads the optional fusecheck.yaml settings file.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/roach88/fusecheck/internal/detect"
	"github.com/roach88/fusecheck/internal/fuse"
	"github.com/roach88/fusecheck/internal/fusedb"
)

// DefaultFile is the settings file looked up when --config is not given.
const DefaultFile = "fusecheck.yaml"

// ErrNoRegisters means neither register values nor a dump were configured.
var ErrNoRegisters = errors.New("no fuse registers configured: set fuses.odm6/odm7 or fuses.dump")

// Config is the decoded settings file. Zero values mean "use the default".
type Config struct {
	// Database is the logical path of the database text, relative to Root.
	Database string `yaml:"database"`
	// Root is the directory the logical database path resolves against.
	Root string `yaml:"root"`
	// Partition is a directory holding the decrypted SYSTEM partition.
	Partition string `yaml:"partition"`
	// Keys is a prod.keys file.
	Keys    string `yaml:"keys"`
	Fuses   Fuses  `yaml:"fuses"`
	History string `yaml:"history"`
}

// Fuses selects where the ODM6/ODM7 registers come from.
type Fuses struct {
	ODM6      *uint32 `yaml:"odm6"`
	ODM7      *uint32 `yaml:"odm7"`
	Dump      string  `yaml:"dump"`
	ODMOffset int64   `yaml:"odm_offset"`
}

// Default returns the settings used when no file is present.
func Default() *Config {
	return &Config{
		Database: fusedb.DefaultPath,
		Root:     ".",
	}
}

// Load reads path. A missing file at DefaultFile is not an error; a missing
// file named explicitly is.
func Load(path string) (*Config, error) {
	explicit := path != ""
	if !explicit {
		path = DefaultFile
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if !explicit && errors.Is(err, os.ErrNotExist) {
			return Default(), nil
		}
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	cfg, err := Parse(data)
	if err != nil {
		return nil, err
	}
	cfg.resolve(filepath.Dir(path))
	return cfg, nil
}

// Parse decodes data over the defaults and validates the result.
func Parse(data []byte) (*Config, error) {
	cfg := Default()

	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

// Validate checks field combinations.
func (c *Config) Validate() error {
	if c.Database == "" {
		return fmt.Errorf("database must not be empty")
	}
	if filepath.IsAbs(c.Database) {
		return fmt.Errorf("database must be relative to root: %s", c.Database)
	}
	if c.Fuses.Dump != "" && (c.Fuses.ODM6 != nil || c.Fuses.ODM7 != nil) {
		return fmt.Errorf("fuses.dump cannot be combined with fuses.odm6/odm7")
	}
	if c.Fuses.ODMOffset < 0 {
		return fmt.Errorf("fuses.odm_offset must not be negative")
	}
	if c.Fuses.ODMOffset != 0 && c.Fuses.Dump == "" {
		return fmt.Errorf("fuses.odm_offset requires fuses.dump")
	}
	return nil
}

// resolve makes file paths relative to the config file's directory.
func (c *Config) resolve(base string) {
	c.Root = resolvePath(base, c.Root)
	c.Partition = resolvePath(base, c.Partition)
	c.Keys = resolvePath(base, c.Keys)
	c.History = resolvePath(base, c.History)
	c.Fuses.Dump = resolvePath(base, c.Fuses.Dump)
}

func resolvePath(base, p string) string {
	if p == "" {
		return ""
	}
	if rest, ok := strings.CutPrefix(p, "~/"); ok {
		if home, err := os.UserHomeDir(); err == nil {
			return filepath.Join(home, rest)
		}
	}
	if filepath.IsAbs(p) || base == "" {
		return p
	}
	return filepath.Join(base, p)
}

// Registers builds the register source the settings describe.
func (c *Config) Registers() (fuse.Registers, error) {
	switch {
	case c.Fuses.Dump != "":
		regs, err := fuse.OpenDump(c.Fuses.Dump, c.Fuses.ODMOffset)
		if err != nil {
			return nil, err
		}
		return regs, nil
	case c.Fuses.ODM6 != nil || c.Fuses.ODM7 != nil:
		regs := fuse.StaticRegisters{}
		if c.Fuses.ODM6 != nil {
			regs.ODM6 = *c.Fuses.ODM6
		}
		if c.Fuses.ODM7 != nil {
			regs.ODM7 = *c.Fuses.ODM7
		}
		return regs, nil
	default:
		return nil, ErrNoRegisters
	}
}

// Resource returns the text resource the database is read from.
func (c *Config) Resource() fusedb.Resource {
	return fusedb.DirResource(c.Root)
}

// KeyStore returns the key file collaborator. An unset path yields a store
// without keys, so detection reports the key as missing.
func (c *Config) KeyStore() (*detect.KeyFile, error) {
	if c.Keys == "" {
		return &detect.KeyFile{}, nil
	}
	return detect.LoadKeyFile(c.Keys)
}

// Partitions returns the partition lookup. Without a configured partition
// directory no SYSTEM partition exists.
func (c *Config) Partitions() detect.HostPartitions {
	parts := detect.HostPartitions{}
	if c.Partition != "" {
		parts[detect.SystemPartition] = c.Partition
	}
	return parts
}
