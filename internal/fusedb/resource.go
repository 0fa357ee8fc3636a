package fusedb

import (
	"io"
	"io/fs"
	"os"
)

// DefaultPath is the logical location of the database relative to the
// storage root.
const DefaultPath = "config/fusecheck/fusecheck_db.txt"

// Resource opens the text database by logical path. A missing file must be
// reported with an error matching fs.ErrNotExist.
type Resource interface {
	Open(path string) (io.ReadCloser, error)
}

// FSResource serves the database out of a file system.
type FSResource struct {
	FS fs.FS
}

// DirResource resolves logical paths under the directory root.
func DirResource(root string) FSResource {
	return FSResource{FS: os.DirFS(root)}
}

// Open implements Resource.
func (r FSResource) Open(path string) (io.ReadCloser, error) {
	return r.FS.Open(path)
}
