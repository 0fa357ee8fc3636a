package detect_test

import (
	"context"
	"errors"
	"strings"
	"testing"
	"testing/fstest"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/fusecheck/internal/detect"
	"github.com/roach88/fusecheck/internal/fusedb"
	"github.com/roach88/fusecheck/internal/testutil"
	"github.com/roach88/fusecheck/internal/version"
)

const db = `[NCA] 18.0.1 aaaa.nca
[NCA] 18.0.0 bbbb.nca
[NCA] 17.0.1 cccc.nca
`

func storeFrom(t *testing.T, content string) *fusedb.Store {
	t.Helper()
	s := fusedb.NewStore()
	fusedb.ParseReader(s, strings.NewReader(content))
	return s
}

func TestDetect_Found(t *testing.T) {
	parts, system := testutil.SystemWith("0000.nca", "cccc.nca", "bbbb.nca")
	keys := &testutil.FakeKeys{Present: true}

	result := detect.New(storeFrom(t, db), keys, parts).Detect(context.Background())

	require.Equal(t, detect.Found, result.Outcome)
	assert.True(t, result.Found())
	// Listing order decides, not record order.
	assert.Equal(t, version.MustParse("17.0.1"), result.Version)
	require.NotNil(t, result.Record)
	assert.Equal(t, "cccc.nca", result.Record.Filename)
	assert.Equal(t, 2, result.Scanned)

	assert.True(t, keys.Installed)
	assert.Equal(t, 1, system.Mounts)
	assert.Equal(t, 1, system.Unmounts)
	// Scanning stops at the first match.
	assert.Equal(t, 2, system.Enumerated)
}

func TestDetect_FirstRecordWinsForDuplicateFilenames(t *testing.T) {
	s := storeFrom(t, "[NCA] 16.0.0 same.nca\n[NCA] 16.1.0 same.nca\n")
	parts, _ := testutil.SystemWith("same.nca")

	result := detect.New(s, &testutil.FakeKeys{Present: true}, parts).Detect(context.Background())

	require.True(t, result.Found())
	assert.Equal(t, version.MustParse("16.0.0"), result.Version)
}

func TestDetect_EmptyDatabase(t *testing.T) {
	parts, system := testutil.SystemWith("aaaa.nca")

	for _, s := range []*fusedb.Store{fusedb.NewStore(), storeFrom(t, "[FUSE] 1.0.0 1 1\n")} {
		result := detect.New(s, &testutil.FakeKeys{Present: true}, parts).Detect(context.Background())
		assert.Equal(t, detect.EmptyDatabase, result.Outcome)
		assert.False(t, result.Found())
	}
	assert.Equal(t, 0, system.Mounts)
}

func TestDetect_LoadsDatabaseOnce(t *testing.T) {
	fsys := fstest.MapFS{fusedb.DefaultPath: {Data: []byte(db)}}
	loader := fusedb.NewLoader(fusedb.FSResource{FS: fsys})
	s := fusedb.NewStore()
	parts, _ := testutil.SystemWith("bbbb.nca")
	d := detect.New(s, &testutil.FakeKeys{Present: true}, parts, detect.WithLoader(loader))

	first := d.Detect(context.Background())
	second := d.Detect(context.Background())

	assert.True(t, first.Found())
	assert.Equal(t, first.Version, second.Version)
	assert.Equal(t, 3, s.NCACount())
}

func TestDetect_Failures(t *testing.T) {
	mountErr := errors.New("bad superblock")
	installErr := errors.New("engine busy")

	tests := []struct {
		name       string
		keys       detect.KeyStore
		partitions func() (detect.Partitions, *testutil.FakePartition)
		want       detect.Outcome
		mounts     int
	}{
		{
			name: "key missing",
			keys: &testutil.FakeKeys{Present: false},
			partitions: func() (detect.Partitions, *testutil.FakePartition) {
				p, s := testutil.SystemWith("aaaa.nca")
				return p, s
			},
			want: detect.KeyMissing,
		},
		{
			name: "key install failed",
			keys: &testutil.FakeKeys{Present: true, InstallErr: installErr},
			partitions: func() (detect.Partitions, *testutil.FakePartition) {
				p, s := testutil.SystemWith("aaaa.nca")
				return p, s
			},
			want: detect.KeyInstallFailed,
		},
		{
			name: "no SYSTEM partition",
			keys: &testutil.FakeKeys{Present: true},
			partitions: func() (detect.Partitions, *testutil.FakePartition) {
				return testutil.FakePartitions{}, nil
			},
			want: detect.PartitionNotFound,
		},
		{
			name: "mount failed",
			keys: &testutil.FakeKeys{Present: true},
			partitions: func() (detect.Partitions, *testutil.FakePartition) {
				p, s := testutil.SystemWith("aaaa.nca")
				s.MountErr = mountErr
				return p, s
			},
			want:   detect.MountFailed,
			mounts: 1,
		},
		{
			name: "registered directory missing",
			keys: &testutil.FakeKeys{Present: true},
			partitions: func() (detect.Partitions, *testutil.FakePartition) {
				s := &testutil.FakePartition{Dirs: map[string][]string{}}
				return testutil.FakePartitions{detect.SystemPartition: s}, s
			},
			want:   detect.DirectoryOpenFailed,
			mounts: 1,
		},
		{
			name: "enumeration error",
			keys: &testutil.FakeKeys{Present: true},
			partitions: func() (detect.Partitions, *testutil.FakePartition) {
				p, s := testutil.SystemWith("zzzz.nca")
				s.ReadErr = errors.New("bad sector")
				return p, s
			},
			want:   detect.DirectoryReadFailed,
			mounts: 1,
		},
		{
			name: "no match",
			keys: &testutil.FakeKeys{Present: true},
			partitions: func() (detect.Partitions, *testutil.FakePartition) {
				p, s := testutil.SystemWith("zzzz.nca", "yyyy.nca")
				return p, s
			},
			want:   detect.NoMatch,
			mounts: 1,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			parts, system := tt.partitions()

			result := detect.New(storeFrom(t, db), tt.keys, parts).Detect(context.Background())

			assert.Equal(t, tt.want, result.Outcome)
			assert.False(t, result.Found())
			assert.Equal(t, version.Version{}, result.Version)
			if system != nil {
				assert.Equal(t, tt.mounts, system.Mounts)
				assert.Equal(t, system.Mounts, system.Unmounts, "every mount must be undone")
			}
		})
	}
}

func TestDetect_NilCollaborators(t *testing.T) {
	result := detect.New(storeFrom(t, db), nil, nil).Detect(context.Background())
	assert.Equal(t, detect.KeyMissing, result.Outcome)

	result = detect.New(storeFrom(t, db), &testutil.FakeKeys{Present: true}, nil).Detect(context.Background())
	assert.Equal(t, detect.PartitionNotFound, result.Outcome)
}

func TestScan_Cancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	result := detect.Scan(ctx, &testutil.SliceDir{Names: []string{"aaaa.nca"}}, storeFrom(t, db))

	assert.Equal(t, detect.Cancelled, result.Outcome)
	assert.ErrorIs(t, result.Err, context.Canceled)
}

func TestScan_SkipsRecordsWithUnparseableStoredVersion(t *testing.T) {
	// The 15-character bound cuts this version before its separator.
	s := storeFrom(t, "[NCA] 0000000000000000.1 same.nca\n[NCA] 9.1.0 same.nca\n")
	require.Equal(t, 2, s.NCACount())

	result := detect.Scan(context.Background(), &testutil.SliceDir{Names: []string{"same.nca"}}, s)

	require.True(t, result.Found())
	assert.Equal(t, version.MustParse("9.1.0"), result.Version)
}

func TestScan_EmptyListing(t *testing.T) {
	result := detect.Scan(context.Background(), &testutil.SliceDir{}, storeFrom(t, db))
	assert.Equal(t, detect.NoMatch, result.Outcome)
	assert.Equal(t, 0, result.Scanned)
}

func TestOutcome_String(t *testing.T) {
	assert.Equal(t, "found", detect.Found.String())
	assert.Equal(t, "mount_failed", detect.MountFailed.String())
	assert.Equal(t, "Outcome(99)", detect.Outcome(99).String())
}
