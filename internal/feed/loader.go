// Package feed parses the four GTFS files the derivation engine needs into
// typed record sets, and fingerprints them for the result cache.
package feed

import (
	"context"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/mesh-intelligence/gtfstables/pkg/types"
)

// Required columns per file. Other columns are ignored.
var (
	routeColumns    = []string{"route_id", "route_short_name"}
	tripColumns     = []string{"route_id", "trip_id"}
	stopTimeColumns = []string{"trip_id", "stop_id", "stop_sequence", "arrival_time"}
	stopColumns     = []string{"stop_id", "stop_name", "stop_lat", "stop_lon"}
)

// Loader reads feed files into a types.Feed.
type Loader struct {
	logger *slog.Logger
}

// NewLoader creates a Loader. A nil logger discards output.
func NewLoader(logger *slog.Logger) *Loader {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Loader{logger: logger}
}

// Load parses the four files concurrently. There is no partial success: the
// first parse or format error cancels the remaining reads and is returned.
func (l *Loader) Load(ctx context.Context, paths types.FeedPaths) (*types.Feed, error) {
	start := time.Now()
	feed := &types.Feed{}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() (err error) {
		feed.Routes, err = readRows(gctx, paths.Routes, routeColumns, parseRoute)
		return err
	})
	g.Go(func() (err error) {
		feed.Trips, err = readRows(gctx, paths.Trips, tripColumns, parseTrip)
		return err
	})
	g.Go(func() (err error) {
		feed.StopTimes, err = readRows(gctx, paths.StopTimes, stopTimeColumns, parseStopTime)
		return err
	})
	g.Go(func() (err error) {
		feed.Stops, err = readRows(gctx, paths.Stops, stopColumns, parseStop)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	l.logger.Info("feed loaded",
		"routes", len(feed.Routes),
		"trips", len(feed.Trips),
		"stop_times", len(feed.StopTimes),
		"stops", len(feed.Stops),
		"elapsed", time.Since(start).Round(time.Millisecond))
	return feed, nil
}

func parseRoute(r *row) (types.Route, error) {
	return types.Route{
		RouteID:   r.str("route_id"),
		ShortName: r.nullString("route_short_name"),
	}, nil
}

func parseTrip(r *row) (types.Trip, error) {
	return types.Trip{
		TripID:  r.str("trip_id"),
		RouteID: r.str("route_id"),
	}, nil
}

func parseStopTime(r *row) (types.StopTime, error) {
	seq, err := r.nullInt("stop_sequence")
	if err != nil {
		return types.StopTime{}, err
	}
	arrival, secs, err := r.gtfsTime("arrival_time")
	if err != nil {
		return types.StopTime{}, err
	}
	return types.StopTime{
		TripID:         r.str("trip_id"),
		StopID:         r.str("stop_id"),
		StopSequence:   seq,
		ArrivalTime:    arrival,
		ArrivalSeconds: secs,
	}, nil
}

func parseStop(r *row) (types.Stop, error) {
	lat, err := r.nullFloat("stop_lat")
	if err != nil {
		return types.Stop{}, err
	}
	lon, err := r.nullFloat("stop_lon")
	if err != nil {
		return types.Stop{}, err
	}
	return types.Stop{
		StopID: r.str("stop_id"),
		Name:   r.nullString("stop_name"),
		Lat:    lat,
		Lon:    lon,
	}, nil
}
