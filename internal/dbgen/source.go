package dbgen

import (
	"context"
	"errors"
	"fmt"
	"os"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	cueerrors "cuelang.org/go/cue/errors"
	"github.com/cavaliercoder/grab"
)

// DefaultURL is the published FuseNCA index.
const DefaultURL = "https://raw.githubusercontent.com/sthetix/FuseNCA/master/fuses.json"

// ErrEmptyIndex is returned for an index without releases.
var ErrEmptyIndex = errors.New("index has no releases")

// Release is one firmware entry of the index.
type Release struct {
	Version string `json:"version"`
	Fuses   int    `json:"fuses_production"`
	NCA     string `json:"system_title_nca"`
}

// Index is the decoded FuseNCA document.
type Index struct {
	LastUpdated string    `json:"last_updated"`
	Data        []Release `json:"data"`
}

// indexSchema constrains the fields the generator relies on. Structs are
// open, so extra fields in the index are accepted. Version components must
// fit a byte.
const indexSchema = `
#component: "0*(25[0-5]|2[0-4][0-9]|1[0-9][0-9]|[1-9]?[0-9])"

last_updated?: string
data: [...{
	version:          =~"^\(#component)\\.\(#component)(\\.\(#component))?$"
	fuses_production: int & >=0 & <=255
	system_title_nca: =~"^[^\\s]+\\.nca$"
}]
`

// ParseIndex validates raw JSON against the index schema and decodes it.
func ParseIndex(raw []byte) (*Index, error) {
	ctx := cuecontext.New()

	schema := ctx.CompileString(indexSchema, cue.Filename("schema.cue"))
	if err := schema.Err(); err != nil {
		return nil, fmt.Errorf("compile index schema: %w", err)
	}

	doc := ctx.CompileBytes(raw, cue.Filename("fuses.json"))
	if err := doc.Err(); err != nil {
		return nil, fmt.Errorf("parse index: %s", cueerrors.Details(err, nil))
	}

	unified := schema.Unify(doc)
	if err := unified.Validate(cue.Concrete(true)); err != nil {
		return nil, fmt.Errorf("invalid index: %s", cueerrors.Details(err, nil))
	}

	var idx Index
	if err := unified.Decode(&idx); err != nil {
		return nil, fmt.Errorf("decode index: %w", err)
	}
	if len(idx.Data) == 0 {
		return nil, ErrEmptyIndex
	}
	return &idx, nil
}

// ReadIndex loads the index from a local file.
func ReadIndex(path string) (*Index, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read index: %w", err)
	}
	return ParseIndex(raw)
}

// FetchIndex downloads the index from url into a scratch directory and
// parses it.
func FetchIndex(ctx context.Context, url string) (*Index, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	dir, err := os.MkdirTemp("", "fusecheck-index-")
	if err != nil {
		return nil, fmt.Errorf("create download dir: %w", err)
	}
	defer os.RemoveAll(dir)

	resp, err := grab.Get(dir, url)
	if err != nil {
		return nil, fmt.Errorf("download %s: %w", url, err)
	}
	return ReadIndex(resp.Filename)
}
