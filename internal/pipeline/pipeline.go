// Package pipeline ties acquisition, loading, derivation, the result cache and
// the sink into one run.
package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"time"

	"github.com/google/uuid"

	"github.com/mesh-intelligence/gtfstables/internal/cache"
	"github.com/mesh-intelligence/gtfstables/internal/derive"
	"github.com/mesh-intelligence/gtfstables/internal/feed"
	"github.com/mesh-intelligence/gtfstables/pkg/types"
)

// Acquirer makes the feed files available and reports their paths.
// downloaded is true when the files on disk were replaced.
type Acquirer interface {
	EnsureAvailable(ctx context.Context) (paths types.FeedPaths, downloaded bool, err error)
}

// Options control one run.
type Options struct {
	// NoCache drops every cached result before deriving.
	NoCache bool

	// SkipUnchanged leaves the sink untouched when the tables came from the
	// cache.
	SkipUnchanged bool
}

// Report summarizes one run.
type Report struct {
	RunID       string        `json:"run_id"`
	Downloaded  bool          `json:"downloaded"`
	CacheHit    bool          `json:"cache_hit"`
	Written     bool          `json:"written"`
	LineStops   int           `json:"line_stops"`
	StopDetails int           `json:"stop_details"`
	Duration    time.Duration `json:"duration"`
}

// Pipeline derives the line_stops and stop_details tables and writes them to
// a sink. Derived tables are cached by feed key across runs.
type Pipeline struct {
	cfg      types.Config
	acquirer Acquirer
	loader   *feed.Loader
	engine   *derive.Engine
	cache    *cache.Cache[types.FeedKey, *types.Tables]
	sink     types.Sink
	logger   *slog.Logger
}

// New creates a Pipeline. sink may be nil when only Derive is used.
func New(cfg types.Config, acquirer Acquirer, sink types.Sink, logger *slog.Logger) *Pipeline {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Pipeline{
		cfg:      cfg,
		acquirer: acquirer,
		loader:   feed.NewLoader(logger),
		engine:   derive.NewEngine(logger),
		cache:    cache.New[types.FeedKey, *types.Tables](),
		sink:     sink,
		logger:   logger,
	}
}

func newRunID() string {
	id, err := uuid.NewV7()
	if err != nil {
		return uuid.New().String()
	}
	return id.String()
}

// Derive makes the feed available and returns the derived tables, computing
// them only when no cached result matches the feed key. The returned report
// has no Written flag or duration set.
func (p *Pipeline) Derive(ctx context.Context, opts Options) (*types.Tables, *Report, error) {
	rep := &Report{RunID: newRunID()}
	logger := p.logger.With("run_id", rep.RunID)

	paths, downloaded, err := p.acquirer.EnsureAvailable(ctx)
	if err != nil {
		return nil, rep, fmt.Errorf("acquire feed: %w", err)
	}
	rep.Downloaded = downloaded

	// Paths alone cannot tell a fresh download from the old files.
	if opts.NoCache || downloaded {
		p.cache.InvalidateAll()
	}

	key, err := feed.Key(ctx, paths, p.cfg.Cache.Fingerprint)
	if err != nil {
		return nil, rep, err
	}

	tables, hit, err := p.cache.GetOrCompute(ctx, key, func(ctx context.Context) (*types.Tables, error) {
		f, err := p.loader.Load(ctx, paths)
		if err != nil {
			return nil, err
		}
		return p.engine.Derive(f)
	})
	if err != nil {
		return nil, rep, err
	}

	rep.CacheHit = hit
	rep.LineStops = len(tables.LineStops)
	rep.StopDetails = len(tables.StopDetails)
	logger.Debug("tables ready", "cache_hit", hit, "line_stops", rep.LineStops, "stop_details", rep.StopDetails)
	if rep.LineStops == 0 && rep.StopDetails == 0 {
		logger.Warn("derived tables are empty", "feed_dir", filepath.Dir(paths.Routes))
	}
	return tables, rep, nil
}

// Write inserts both tables into s under the configured table names.
func (p *Pipeline) Write(ctx context.Context, s types.Sink, tables *types.Tables) error {
	if err := s.Insert(ctx, p.cfg.Tables.LineStops, tables.LineStopsRowSet()); err != nil {
		return fmt.Errorf("write %s: %w", p.cfg.Tables.LineStops, err)
	}
	if err := s.Insert(ctx, p.cfg.Tables.StopDetails, tables.StopDetailsRowSet()); err != nil {
		return fmt.Errorf("write %s: %w", p.cfg.Tables.StopDetails, err)
	}
	return nil
}

// Run derives the tables and writes them to the pipeline's sink.
func (p *Pipeline) Run(ctx context.Context, opts Options) (*Report, error) {
	start := time.Now()

	tables, rep, err := p.Derive(ctx, opts)
	if err != nil {
		return rep, err
	}

	if !(opts.SkipUnchanged && rep.CacheHit) {
		if p.sink == nil {
			return rep, types.ErrSinkClosed
		}
		if err := p.Write(ctx, p.sink, tables); err != nil {
			return rep, err
		}
		rep.Written = true
	}

	rep.Duration = time.Since(start)
	p.logger.Info("run complete",
		"run_id", rep.RunID,
		"cache_hit", rep.CacheHit,
		"written", rep.Written,
		"line_stops", rep.LineStops,
		"stop_details", rep.StopDetails,
		"duration", rep.Duration)
	return rep, nil
}

// Watch runs immediately and then once per interval until ctx ends. Runs
// after the first reuse cached tables and skip the sink when nothing changed.
// A failed run is logged and the next tick tries again. onReport, if not nil,
// receives every successful report.
func (p *Pipeline) Watch(ctx context.Context, interval time.Duration, opts Options, onReport func(*Report)) error {
	if interval <= 0 {
		return fmt.Errorf("watch interval must be positive, got %s", interval)
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		rep, err := p.Run(ctx, opts)
		switch {
		case ctx.Err() != nil:
			return nil
		case err != nil:
			p.logger.Error("run failed", "run_id", rep.RunID, "error", err)
		case onReport != nil:
			onReport(rep)
		}

		opts = Options{SkipUnchanged: true}

		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
		}
	}
}
