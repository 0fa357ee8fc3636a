package dbgen

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/sebdah/goldie/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/fusecheck/internal/fusedb"
	"github.com/roach88/fusecheck/internal/version"
)

func TestParseIndex_Valid(t *testing.T) {
	idx, err := ReadIndex(filepath.Join("testdata", "fuses.json"))
	require.NoError(t, err)

	assert.Equal(t, "2025-06-01", idx.LastUpdated)
	require.Len(t, idx.Data, 8)
	assert.Equal(t, Release{Version: "4.0.0", Fuses: 5, NCA: "e4f0a1c6.nca"}, idx.Data[0])
}

func TestParseIndex_Rejects(t *testing.T) {
	tests := []struct {
		name string
		raw  string
	}{
		{"not json", `{"data": [`},
		{"missing data", `{"last_updated": "x"}`},
		{"no releases", `{"data": []}`},
		{"bad version", `{"data": [{"version": "v1", "fuses_production": 1, "system_title_nca": "a.nca"}]}`},
		{"negative fuses", `{"data": [{"version": "1.0.0", "fuses_production": -1, "system_title_nca": "a.nca"}]}`},
		{"too many fuses", `{"data": [{"version": "1.0.0", "fuses_production": 256, "system_title_nca": "a.nca"}]}`},
		{"not an nca", `{"data": [{"version": "1.0.0", "fuses_production": 1, "system_title_nca": "a.bin"}]}`},
		{"missing nca", `{"data": [{"version": "1.0.0", "fuses_production": 1}]}`},
		{"minor over a byte", `{"data": [{"version": "1.300.0", "fuses_production": 1, "system_title_nca": "a.nca"}]}`},
		{"patch over a byte", `{"data": [{"version": "1.0.256", "fuses_production": 1, "system_title_nca": "a.nca"}]}`},
		{"major over a byte", `{"data": [{"version": "999.0", "fuses_production": 1, "system_title_nca": "a.nca"}]}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseIndex([]byte(tt.raw))
			assert.Error(t, err)
		})
	}
}

func TestParseIndex_AllowsExtraFields(t *testing.T) {
	raw := `{"data": [{"version": "1.0", "fuses_production": 1, "system_title_nca": "a.nca", "fuses_dev": 0}], "source": "x"}`

	idx, err := ParseIndex([]byte(raw))
	require.NoError(t, err)
	require.Len(t, idx.Data, 1)
	assert.Equal(t, "1.0", idx.Data[0].Version)
}

func TestGroupRanges(t *testing.T) {
	tests := []struct {
		name     string
		releases []Release
		want     []FuseRange
	}{
		{
			name:     "empty",
			releases: nil,
			want:     nil,
		},
		{
			name:     "single",
			releases: []Release{{Version: "1.0.0", Fuses: 1}},
			want:     []FuseRange{{Label: "1.0.0", Fuses: 1}},
		},
		{
			name: "next minor extends",
			releases: []Release{
				{Version: "5.0.0", Fuses: 6},
				{Version: "5.1.0", Fuses: 6},
			},
			want: []FuseRange{{Label: "5.0.0-5.1.0", Fuses: 6}},
		},
		{
			name: "skipped minor splits",
			releases: []Release{
				{Version: "5.0.0", Fuses: 6},
				{Version: "5.2.0", Fuses: 6},
			},
			want: []FuseRange{
				{Label: "5.0.0", Fuses: 6},
				{Label: "5.2.0", Fuses: 6},
			},
		},
		{
			name: "next major splits",
			releases: []Release{
				{Version: "5.1.0", Fuses: 6},
				{Version: "6.0.0", Fuses: 6},
			},
			want: []FuseRange{
				{Label: "5.1.0", Fuses: 6},
				{Label: "6.0.0", Fuses: 6},
			},
		},
		{
			name: "next minor with patch splits",
			releases: []Release{
				{Version: "5.0.0", Fuses: 6},
				{Version: "5.1.1", Fuses: 6},
			},
			want: []FuseRange{
				{Label: "5.0.0", Fuses: 6},
				{Label: "5.1.1", Fuses: 6},
			},
		},
		{
			name: "fuse change splits",
			releases: []Release{
				{Version: "3.0.0", Fuses: 3},
				{Version: "3.0.1", Fuses: 4},
			},
			want: []FuseRange{
				{Label: "3.0.0", Fuses: 3},
				{Label: "3.0.1", Fuses: 4},
			},
		},
		{
			name: "short versions normalised",
			releases: []Release{
				{Version: "7.0", Fuses: 8},
				{Version: "7.0.1", Fuses: 8},
			},
			want: []FuseRange{{Label: "7.0.0-7.0.1", Fuses: 8}},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := GroupRanges(tt.releases)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestParseIndex_ByteComponents(t *testing.T) {
	raw := `{"data": [{"version": "255.0255.9", "fuses_production": 1, "system_title_nca": "a.nca"}]}`

	idx, err := ParseIndex([]byte(raw))
	require.NoError(t, err)
	require.Len(t, idx.Data, 1)
}

func TestConsecutive_NoWrapAtByteLimit(t *testing.T) {
	tests := []struct {
		name       string
		prev, next version.Version
		want       bool
	}{
		{"minor wraps", version.Version{Major: 1, Minor: 255}, version.Version{Major: 1}, false},
		{"patch wraps", version.Version{Major: 1, Patch: 255}, version.Version{Major: 1}, false},
		{"last minor", version.Version{Major: 1, Minor: 254, Patch: 3}, version.Version{Major: 1, Minor: 255}, true},
		{"last patch", version.Version{Major: 1, Patch: 254}, version.Version{Major: 1, Patch: 255}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, consecutive(tt.prev, tt.next))
		})
	}
}

func TestGroupRanges_RejectsUnparseableVersion(t *testing.T) {
	_, err := GroupRanges([]Release{{Version: "latest", Fuses: 1}})
	assert.Error(t, err)
}

func TestGenerate_Golden(t *testing.T) {
	idx, err := ReadIndex(filepath.Join("testdata", "fuses.json"))
	require.NoError(t, err)

	var buf bytes.Buffer
	sum, err := Generate(&buf, idx)
	require.NoError(t, err)
	assert.Equal(t, Summary{Releases: 8, Fuse: 5, NCA: 8}, sum)

	g := goldie.New(t,
		goldie.WithFixtureDir("testdata/golden"),
		goldie.WithNameSuffix(".golden"),
	)
	g.Assert(t, "fuses_db", buf.Bytes())
}

func TestGenerate_OutputLoads(t *testing.T) {
	idx, err := ReadIndex(filepath.Join("testdata", "fuses.json"))
	require.NoError(t, err)

	var buf bytes.Buffer
	_, err = Generate(&buf, idx)
	require.NoError(t, err)

	store := fusedb.NewStore()
	res := fusedb.ParseReader(store, &buf)
	require.Equal(t, fusedb.StatusLoaded, res.Status)
	assert.Zero(t, res.Skipped.Total())
	assert.Equal(t, 8, store.NCACount())
	assert.Equal(t, 5, store.FuseCount())

	rec, ok := store.LookupFilename("c3010000.nca")
	require.True(t, ok)
	assert.Equal(t, "3.0.1", rec.Version)
}

func TestFetchIndex(t *testing.T) {
	raw, err := os.ReadFile(filepath.Join("testdata", "fuses.json"))
	require.NoError(t, err)

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write(raw)
	}))
	defer srv.Close()

	idx, err := FetchIndex(context.Background(), srv.URL+"/fuses.json")
	require.NoError(t, err)
	assert.Len(t, idx.Data, 8)
}

func TestFetchIndex_HTTPError(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	defer srv.Close()

	_, err := FetchIndex(context.Background(), srv.URL+"/fuses.json")
	assert.Error(t, err)
}

func TestFetchIndex_Cancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := FetchIndex(ctx, "http://127.0.0.1:1/fuses.json")
	assert.ErrorIs(t, err, context.Canceled)
}
