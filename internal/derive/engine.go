// Package derive turns a loaded feed into the line_stops and stop_details
// tables by following the route, trip, stop time, stop join chain.
package derive

import (
	"database/sql"
	"log/slog"

	"github.com/mesh-intelligence/gtfstables/internal/relational"
	"github.com/mesh-intelligence/gtfstables/pkg/types"
)

// Engine derives output tables from a feed. It holds no state between calls.
type Engine struct {
	logger *slog.Logger
}

// NewEngine creates an Engine. A nil logger discards output.
func NewEngine(logger *slog.Logger) *Engine {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Engine{logger: logger}
}

// tripLine is a trip annotated with its route's short name.
type tripLine struct {
	TripID    string
	ShortName sql.NullString
}

// visit is a stop time annotated with its trip's line.
type visit struct {
	ShortName      sql.NullString
	StopID         string
	StopSequence   sql.NullInt64
	ArrivalTime    sql.NullString
	ArrivalSeconds int
}

// stopVisit is one row of the fully joined feed.
type stopVisit struct {
	visit
	StopName sql.NullString
	Lat      sql.NullFloat64
	Lon      sql.NullFloat64
}

// arrival is a candidate stop_details row before per-stop selection.
type arrival struct {
	detail  types.StopDetail
	seconds int
}

// Derive computes both output tables. An empty result is valid; the only
// error is a *types.JoinError for a nil feed.
func (e *Engine) Derive(feed *types.Feed) (*types.Tables, error) {
	if feed == nil {
		return nil, &types.JoinError{Step: "input", Reason: "feed is nil"}
	}

	joined := e.join(feed)

	tables := &types.Tables{
		LineStops:   lineStops(joined),
		StopDetails: stopDetails(joined),
	}
	e.logger.Debug("tables derived",
		"joined", len(joined),
		"line_stops", len(tables.LineStops),
		"stop_details", len(tables.StopDetails))
	return tables, nil
}

// join runs the three inner joins. Trips of unknown routes, stop times of
// unknown trips and stop times at unknown stops all drop out here.
func (e *Engine) join(feed *types.Feed) []stopVisit {
	trips := relational.HashJoin(feed.Trips, feed.Routes,
		func(t types.Trip) string { return t.RouteID },
		func(r types.Route) string { return r.RouteID },
		func(t types.Trip, r types.Route) tripLine {
			return tripLine{TripID: t.TripID, ShortName: r.ShortName}
		},
	)
	e.logger.Debug("joined trips to routes", "trips", len(feed.Trips), "rows", len(trips))

	visits := relational.HashJoin(feed.StopTimes, trips,
		func(st types.StopTime) string { return st.TripID },
		func(tl tripLine) string { return tl.TripID },
		func(st types.StopTime, tl tripLine) visit {
			return visit{
				ShortName:      tl.ShortName,
				StopID:         st.StopID,
				StopSequence:   st.StopSequence,
				ArrivalTime:    st.ArrivalTime,
				ArrivalSeconds: st.ArrivalSeconds,
			}
		},
	)
	e.logger.Debug("joined stop times to trips", "stop_times", len(feed.StopTimes), "rows", len(visits))

	joined := relational.HashJoin(visits, feed.Stops,
		func(v visit) string { return v.StopID },
		func(s types.Stop) string { return s.StopID },
		func(v visit, s types.Stop) stopVisit {
			return stopVisit{visit: v, StopName: s.Name, Lat: s.Lat, Lon: s.Lon}
		},
	)
	e.logger.Debug("joined stop times to stops", "stops", len(feed.Stops), "rows", len(joined))
	return joined
}

// lineStops projects, drops null-bearing rows and removes exact duplicates.
func lineStops(joined []stopVisit) []types.LineStop {
	complete := relational.Filter(joined, func(v stopVisit) bool {
		return v.ShortName.Valid && v.StopName.Valid && v.StopSequence.Valid && v.Lat.Valid && v.Lon.Valid
	})
	rows := relational.Project(complete, func(v stopVisit) types.LineStop {
		return types.LineStop{
			LineNumber: v.ShortName.String,
			StopName:   v.StopName.String,
			StopOrder:  v.StopSequence.Int64,
			Lat:        v.Lat.Float64,
			Lng:        v.Lon.Float64,
		}
	})
	return relational.Distinct(rows)
}

// stopDetails keeps, for each stop, the row with the earliest arrival. Equal
// arrival seconds fall back to the arrival text so that "8:00:00" and
// "08:00:00" order deterministically.
func stopDetails(joined []stopVisit) []types.StopDetail {
	complete := relational.Filter(joined, func(v stopVisit) bool {
		return v.StopID != "" && v.ArrivalTime.Valid && v.Lat.Valid && v.Lon.Valid
	})
	candidates := relational.Distinct(relational.Project(complete, func(v stopVisit) arrival {
		return arrival{
			detail: types.StopDetail{
				StopID:      v.StopID,
				ArrivalTime: v.ArrivalTime.String,
				Lat:         v.Lat.Float64,
				Lng:         v.Lon.Float64,
			},
			seconds: v.ArrivalSeconds,
		}
	}))
	earliest := relational.FirstPerKey(candidates,
		func(a arrival) string { return a.detail.StopID },
		func(a, b arrival) bool {
			if a.seconds != b.seconds {
				return a.seconds < b.seconds
			}
			return a.detail.ArrivalTime < b.detail.ArrivalTime
		},
	)
	return relational.Project(earliest, func(a arrival) types.StopDetail { return a.detail })
}
