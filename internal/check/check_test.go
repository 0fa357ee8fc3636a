package check

import (
	"context"
	"testing"
	"testing/fstest"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/fusecheck/internal/detect"
	"github.com/roach88/fusecheck/internal/fuse"
	"github.com/roach88/fusecheck/internal/fusedb"
	"github.com/roach88/fusecheck/internal/testutil"
	"github.com/roach88/fusecheck/internal/verdict"
	"github.com/roach88/fusecheck/internal/version"
)

const db = `[FUSE] 18.0.0-18.1.0 19 0
[NCA] 18.1.0 f1f1.nca
[NCA] 12.1.0 c2c2.nca
`

func newRunner(t *testing.T, burnt int, listing ...string) (*Runner, *fusedb.Store) {
	t.Helper()
	fsys := fstest.MapFS{fusedb.DefaultPath: {Data: []byte(db)}}
	store := fusedb.NewStore()
	loader := fusedb.NewLoader(fusedb.FSResource{FS: fsys})
	parts, _ := testutil.SystemWith(listing...)
	detector := detect.New(store, &testutil.FakeKeys{Present: true}, parts, detect.WithLoader(loader))

	return NewRunner(testutil.BurntRegisters(burnt), detector, WithDatabase(store, loader)), store
}

func TestRun_PerfectMatch(t *testing.T) {
	runner, _ := newRunner(t, 19, "0000.nca", "f1f1.nca")

	report, err := runner.Run(context.Background())
	require.NoError(t, err)

	assert.True(t, report.Detected)
	assert.Equal(t, version.MustParse("18.1.0"), report.Firmware)
	assert.Equal(t, uint8(19), report.Required)
	assert.Equal(t, uint8(19), report.Fuses.Burnt)
	assert.Equal(t, verdict.Match, report.Verdict.Kind)
	assert.True(t, report.Pass())
	assert.Equal(t, "STATUS: PERFECT MATCH", report.Status)

	assert.Equal(t, fusedb.StatusLoaded, report.Database.Status)
	assert.Equal(t, 2, report.Database.NCA)
}

func TestRun_Overburnt(t *testing.T) {
	runner, _ := newRunner(t, 19, "c2c2.nca")

	report, err := runner.Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, version.MustParse("12.1.0"), report.Firmware)
	assert.Equal(t, uint8(14), report.Required)
	assert.Equal(t, verdict.FuseMismatchOver, report.Verdict.Kind)
	assert.Equal(t, uint8(5), report.Verdict.Delta)
	assert.False(t, report.Pass())
}

func TestRun_UndetectedFallsBackToDefault(t *testing.T) {
	runner, _ := newRunner(t, 0, "9999.nca")

	report, err := runner.Run(context.Background())
	require.NoError(t, err)

	assert.False(t, report.Detected)
	assert.Equal(t, detect.NoMatch, report.Detection.Outcome)
	assert.Equal(t, version.Default, report.Firmware)
	assert.Equal(t, fuse.DefaultRequired, report.Required)
	assert.Equal(t, verdict.FuseMismatchUnder, report.Verdict.Kind)
	assert.Equal(t, uint8(1), report.Verdict.Delta)
}

func TestRun_NoDatabase(t *testing.T) {
	store := fusedb.NewStore()
	loader := fusedb.NewLoader(fusedb.FSResource{FS: fstest.MapFS{}})
	parts, system := testutil.SystemWith("f1f1.nca")
	detector := detect.New(store, &testutil.FakeKeys{Present: true}, parts, detect.WithLoader(loader))
	runner := NewRunner(testutil.BurntRegisters(1), detector, WithDatabase(store, loader))

	report, err := runner.Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, fusedb.StatusNotFound, report.Database.Status)
	assert.Equal(t, detect.EmptyDatabase, report.Detection.Outcome)
	assert.Equal(t, version.Default, report.Firmware)
	assert.True(t, report.Pass())
	assert.Equal(t, 0, system.Mounts)
}

func TestRun_CustomTable(t *testing.T) {
	runner, _ := newRunner(t, 3, "f1f1.nca")
	runner.table = fuse.Table{{MajorMin: 18, MinorMin: 0, MajorMax: 18, MinorMax: 9, Required: 3}}

	report, err := runner.Run(context.Background())
	require.NoError(t, err)
	assert.True(t, report.Pass())
}

func TestRun_RegisterFailure(t *testing.T) {
	store := fusedb.NewStore()
	detector := detect.New(store, nil, nil)
	runner := NewRunner(testutil.Registers{6: 0}, detector)

	_, err := runner.Run(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "count fuses")
}

func TestRun_Cancelled(t *testing.T) {
	runner, _ := newRunner(t, 1)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := runner.Run(ctx)
	assert.ErrorIs(t, err, context.Canceled)
}
