package detect

// SystemPartition is the GPT name of the partition holding installed titles.
const SystemPartition = "SYSTEM"

// RegisteredDir is the directory of installed content archives on SYSTEM.
const RegisteredDir = "Contents/registered"

// KeyStore guards access to the encrypted partition.
type KeyStore interface {
	// HasKey reports whether the partition key (BIS key 2) is available.
	HasKey() bool
	// InstallKey programs the key into the crypto engine.
	InstallKey() error
}

// Partitions looks partitions up by GPT name.
type Partitions interface {
	Find(name string) (Partition, error)
}

// Partition is a mountable file system.
type Partition interface {
	Mount() error
	Unmount() error
	ReadDir(path string) (DirIterator, error)
}

// DirIterator yields directory entry names one at a time. An empty name
// with a nil error marks the end of the listing.
type DirIterator interface {
	Next() (string, error)
	Close() error
}
