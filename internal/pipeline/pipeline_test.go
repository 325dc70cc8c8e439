package pipeline

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mesh-intelligence/gtfstables/internal/feed"
	"github.com/mesh-intelligence/gtfstables/pkg/types"
)

type fakeAcquirer struct {
	paths      types.FeedPaths
	downloaded bool
	err        error
}

func (f *fakeAcquirer) EnsureAvailable(context.Context) (types.FeedPaths, bool, error) {
	return f.paths, f.downloaded, f.err
}

type fakeSink struct {
	mu      sync.Mutex
	inserts []string
	tables  map[string]*types.RowSet
	err     error
}

func (s *fakeSink) Insert(_ context.Context, name string, rs *types.RowSet) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return s.err
	}
	if s.tables == nil {
		s.tables = make(map[string]*types.RowSet)
	}
	s.inserts = append(s.inserts, name)
	s.tables[name] = rs
	return nil
}

func (s *fakeSink) Close() error { return nil }

func (s *fakeSink) count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.inserts)
}

func writeFeed(t *testing.T) types.FeedPaths {
	t.Helper()
	dir := t.TempDir()
	files := map[string]string{
		types.RoutesFile:    "route_id,route_short_name\nR1,5\n",
		types.TripsFile:     "route_id,trip_id\nR1,T1\n",
		types.StopTimesFile: "trip_id,stop_id,stop_sequence,arrival_time\nT1,S1,1,08:00:00\nT1,S2,2,08:05:00\n",
		types.StopsFile:     "stop_id,stop_name,stop_lat,stop_lon\nS1,Main St,32.0,34.0\nS2,Oak Ave,32.1,34.1\n",
	}
	for name, content := range files {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(content), 0o644))
	}
	return feed.PathsIn(dir)
}

func testConfig() types.Config {
	return types.Config{
		Tables: types.TablesConfig{LineStops: "lines", StopDetails: "details"},
	}
}

func TestRunWritesBothTables(t *testing.T) {
	sink := &fakeSink{}
	p := New(testConfig(), &fakeAcquirer{paths: writeFeed(t)}, sink, nil)

	rep, err := p.Run(context.Background(), Options{})
	require.NoError(t, err)

	assert.NotEmpty(t, rep.RunID)
	assert.False(t, rep.CacheHit)
	assert.True(t, rep.Written)
	assert.Equal(t, 2, rep.LineStops)
	assert.Equal(t, 2, rep.StopDetails)

	assert.Equal(t, []string{"lines", "details"}, sink.inserts)
	assert.Equal(t, types.LineStopColumns, sink.tables["lines"].ColumnNames())
	assert.Equal(t, []any{"5", "Main St", int64(1), 32.0, 34.0}, sink.tables["lines"].Rows[0])
}

func TestRunCachesAcrossRuns(t *testing.T) {
	sink := &fakeSink{}
	p := New(testConfig(), &fakeAcquirer{paths: writeFeed(t)}, sink, nil)
	ctx := context.Background()

	first, err := p.Run(ctx, Options{})
	require.NoError(t, err)
	second, err := p.Run(ctx, Options{})
	require.NoError(t, err)

	assert.False(t, first.CacheHit)
	assert.True(t, second.CacheHit)
	assert.True(t, second.Written, "Run writes even on a cache hit")
	assert.NotEqual(t, first.RunID, second.RunID)

	third, err := p.Run(ctx, Options{NoCache: true})
	require.NoError(t, err)
	assert.False(t, third.CacheHit)
}

func TestRunSkipUnchanged(t *testing.T) {
	sink := &fakeSink{}
	p := New(testConfig(), &fakeAcquirer{paths: writeFeed(t)}, sink, nil)
	ctx := context.Background()

	_, err := p.Run(ctx, Options{SkipUnchanged: true})
	require.NoError(t, err)
	rep, err := p.Run(ctx, Options{SkipUnchanged: true})
	require.NoError(t, err)

	assert.True(t, rep.CacheHit)
	assert.False(t, rep.Written)
	assert.Equal(t, 2, sink.count())
}

func TestDownloadInvalidatesCache(t *testing.T) {
	acq := &fakeAcquirer{paths: writeFeed(t)}
	p := New(testConfig(), acq, &fakeSink{}, nil)
	ctx := context.Background()

	_, _, err := p.Derive(ctx, Options{})
	require.NoError(t, err)

	acq.downloaded = true
	_, rep, err := p.Derive(ctx, Options{})
	require.NoError(t, err)
	assert.True(t, rep.Downloaded)
	assert.False(t, rep.CacheHit)
}

func TestFingerprintDetectsChangedFiles(t *testing.T) {
	paths := writeFeed(t)
	cfg := testConfig()
	cfg.Cache.Fingerprint = true
	p := New(cfg, &fakeAcquirer{paths: paths}, &fakeSink{}, nil)
	ctx := context.Background()

	_, _, err := p.Derive(ctx, Options{})
	require.NoError(t, err)

	require.NoError(t, os.WriteFile(paths.Routes, []byte("route_id,route_short_name\nR1,7\n"), 0o644))
	tables, rep, err := p.Derive(ctx, Options{})
	require.NoError(t, err)
	assert.False(t, rep.CacheHit)
	assert.Equal(t, "7", tables.LineStops[0].LineNumber)
}

func TestRunErrors(t *testing.T) {
	boom := errors.New("boom")

	t.Run("acquire", func(t *testing.T) {
		p := New(testConfig(), &fakeAcquirer{err: boom}, &fakeSink{}, nil)
		_, err := p.Run(context.Background(), Options{})
		assert.ErrorIs(t, err, boom)
	})

	t.Run("load", func(t *testing.T) {
		paths := writeFeed(t)
		require.NoError(t, os.Remove(paths.Stops))
		p := New(testConfig(), &fakeAcquirer{paths: paths}, &fakeSink{}, nil)
		_, err := p.Run(context.Background(), Options{})
		assert.ErrorIs(t, err, types.ErrParse)
	})

	t.Run("sink", func(t *testing.T) {
		p := New(testConfig(), &fakeAcquirer{paths: writeFeed(t)}, &fakeSink{err: boom}, nil)
		rep, err := p.Run(context.Background(), Options{})
		assert.ErrorIs(t, err, boom)
		assert.False(t, rep.Written)
	})

	t.Run("no sink", func(t *testing.T) {
		p := New(testConfig(), &fakeAcquirer{paths: writeFeed(t)}, nil, nil)
		_, err := p.Run(context.Background(), Options{})
		assert.ErrorIs(t, err, types.ErrSinkClosed)
	})
}

func TestWatch(t *testing.T) {
	sink := &fakeSink{}
	p := New(testConfig(), &fakeAcquirer{paths: writeFeed(t)}, sink, nil)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var reports []*Report
	err := p.Watch(ctx, 5*time.Millisecond, Options{}, func(r *Report) {
		reports = append(reports, r)
		if len(reports) == 3 {
			cancel()
		}
	})
	require.NoError(t, err)
	require.Len(t, reports, 3)

	assert.True(t, reports[0].Written)
	assert.False(t, reports[0].CacheHit)
	for _, r := range reports[1:] {
		assert.True(t, r.CacheHit)
		assert.False(t, r.Written)
	}
	assert.Equal(t, 2, sink.count())
}

func TestWatchRejectsBadInterval(t *testing.T) {
	p := New(testConfig(), &fakeAcquirer{}, &fakeSink{}, nil)
	assert.Error(t, p.Watch(context.Background(), 0, Options{}, nil))
}
