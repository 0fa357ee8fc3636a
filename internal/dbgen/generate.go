package dbgen

import (
	"fmt"
	"io"
	"slices"
	"strings"

	"github.com/roach88/fusecheck/internal/fusedb"
	"github.com/roach88/fusecheck/internal/version"
)

// FuseRange is a run of consecutive releases sharing a fuse count.
type FuseRange struct {
	Label string
	Fuses int
}

type release struct {
	Release
	v version.Version
}

// Summary counts what Generate wrote.
type Summary struct {
	Releases int `json:"releases"`
	Fuse     int `json:"fuse"`
	NCA      int `json:"nca"`
}

var header = []string{
	"# Fusecheck Database Configuration v2",
	"# Copy to sd:/" + fusedb.DefaultPath + " to override built-in databases",
	"# Lines starting with # are comments and will be ignored",
	"# Auto-generated from https://github.com/sthetix/FuseNCA",
	"",
	"# ===== FUSE COUNT DATABASE =====",
	"# Format: [FUSE] <version_range> <prod_fuses>",
	"# Source: https://switchbrew.org/wiki/Fuses (Anti Downgrade section)",
	"",
}

var ncaHeader = []string{
	"",
	"# ===== NCA DATABASE =====",
	"# Format: [NCA] <version> <nca_filename>",
	"# Source: SystemVersion Title ID 0100000000000809",
	"",
}

func parseReleases(idx *Index) ([]release, error) {
	out := make([]release, 0, len(idx.Data))
	for _, r := range idx.Data {
		v, err := version.Parse(r.Version)
		if err != nil {
			return nil, fmt.Errorf("release %q: %w", r.Version, err)
		}
		out = append(out, release{Release: r, v: v})
	}
	return out, nil
}

// GroupRanges folds releases into fuse ranges. Releases are ordered by
// version, then fuse count. A run continues while the fuse count holds and
// the next release is either the next minor (patch 0) or the next patch of
// the same major.
func GroupRanges(releases []Release) ([]FuseRange, error) {
	rs, err := parseReleases(&Index{Data: releases})
	if err != nil {
		return nil, err
	}
	return groupRanges(rs), nil
}

func groupRanges(rs []release) []FuseRange {
	sorted := slices.Clone(rs)
	slices.SortStableFunc(sorted, func(a, b release) int {
		if c := a.v.Compare(b.v); c != 0 {
			return c
		}
		return a.Fuses - b.Fuses
	})

	var ranges []FuseRange
	for i := 0; i < len(sorted); {
		start := sorted[i].v
		end := start
		j := i + 1

		for j < len(sorted) && sorted[j].Fuses == sorted[i].Fuses {
			prev, next := sorted[j-1].v, sorted[j].v
			if !consecutive(prev, next) {
				break
			}
			end = next
			j++
		}

		label := start.String()
		if j-1 > i {
			label = start.String() + "-" + end.String()
		}
		ranges = append(ranges, FuseRange{Label: label, Fuses: sorted[i].Fuses})
		i = j
	}
	return ranges
}

// consecutive compares in int so that 255 has no successor.
func consecutive(prev, next version.Version) bool {
	if next.Major != prev.Major {
		return false
	}
	if int(next.Minor) == int(prev.Minor)+1 && next.Patch == 0 {
		return true
	}
	return next.Minor == prev.Minor && int(next.Patch) == int(prev.Patch)+1
}

// Generate writes the database text for idx to w.
func Generate(w io.Writer, idx *Index) (Summary, error) {
	rs, err := parseReleases(idx)
	if err != nil {
		return Summary{}, err
	}

	ranges := groupRanges(rs)

	byNewest := slices.Clone(rs)
	slices.SortStableFunc(byNewest, func(a, b release) int {
		return b.v.Compare(a.v)
	})

	lines := slices.Clone(header)
	for _, r := range ranges {
		lines = append(lines, fmt.Sprintf("[FUSE] %s %d", r.Label, r.Fuses))
	}
	lines = append(lines, ncaHeader...)
	for _, r := range byNewest {
		lines = append(lines, fmt.Sprintf("[NCA] %s %s", r.Version, r.NCA))
	}

	if _, err := io.WriteString(w, strings.Join(lines, "\n")+"\n"); err != nil {
		return Summary{}, fmt.Errorf("write database: %w", err)
	}

	return Summary{Releases: len(rs), Fuse: len(ranges), NCA: len(byNewest)}, nil
}
