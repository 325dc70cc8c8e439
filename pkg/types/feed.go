package types

import (
	"database/sql"
	"strconv"
	"strings"
)

// Standard GTFS file names inside a feed archive or directory.
const (
	RoutesFile    = "routes.txt"
	TripsFile     = "trips.txt"
	StopTimesFile = "stop_times.txt"
	StopsFile     = "stops.txt"
)

// FeedFileNames lists the four files the loader needs, in load order.
var FeedFileNames = []string{
	RoutesFile,
	TripsFile,
	StopTimesFile,
	StopsFile,
}

// FeedPaths locates the four feed files on disk.
type FeedPaths struct {
	Routes    string
	Trips     string
	StopTimes string
	Stops     string
}

// Route represents a row of routes.txt.
type Route struct {
	RouteID   string         // Unique route identifier.
	ShortName sql.NullString // route_short_name; null when empty.
}

// Trip represents a row of trips.txt.
type Trip struct {
	TripID  string // Unique trip identifier.
	RouteID string // Foreign key to Route.
}

// StopTime represents a row of stop_times.txt.
type StopTime struct {
	TripID         string         // Foreign key to Trip.
	StopID         string         // Foreign key to Stop.
	StopSequence   sql.NullInt64  // In-trip visiting order.
	ArrivalTime    sql.NullString // Scheduled arrival as written in the feed.
	ArrivalSeconds int            // Seconds since the service day start; set when ArrivalTime is valid.
}

// Stop represents a row of stops.txt.
type Stop struct {
	StopID string          // Unique stop identifier.
	Name   sql.NullString  // stop_name.
	Lat    sql.NullFloat64 // stop_lat; null when empty or NaN.
	Lon    sql.NullFloat64 // stop_lon; null when empty or NaN.
}

// Feed holds the four typed record sets produced by the loader.
type Feed struct {
	Routes    []Route
	Trips     []Trip
	StopTimes []StopTime
	Stops     []Stop
}

// FeedKey identifies the inputs of one derivation. Two derivations with equal
// keys are expected to produce equal tables. Fingerprints are empty when the
// cache is keyed on paths alone.
type FeedKey struct {
	Paths        FeedPaths
	Fingerprints [4]string // SHA-256 of routes, trips, stop_times, stops.
}

// CacheKey returns a stable string form of the key. Each part is quoted so
// that separators inside a path cannot make two keys collide.
func (k FeedKey) CacheKey() string {
	parts := []string{k.Paths.Routes, k.Paths.Trips, k.Paths.StopTimes, k.Paths.Stops}
	for _, f := range k.Fingerprints {
		if f != "" {
			parts = append(parts, k.Fingerprints[:]...)
			break
		}
	}
	for i, p := range parts {
		parts[i] = strconv.Quote(p)
	}
	return strings.Join(parts, "|")
}
