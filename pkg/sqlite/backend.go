// Package sqlite provides the public API for the SQLite table sink.
// This package exposes the factory function for creating SQLite sinks
// while keeping implementation details internal.
package sqlite

import (
	"log/slog"

	"github.com/mesh-intelligence/gtfstables/internal/sink"
	"github.com/mesh-intelligence/gtfstables/pkg/types"
)

// NewSink opens or creates the SQLite database at path and returns a sink
// writing derived tables into it. A nil logger discards output.
//
// Example:
//
//	s, err := sqlite.NewSink("gtfs.db", nil)
//	if err != nil {
//	    return err
//	}
//	defer s.Close()
//	err = s.Insert(ctx, types.LineStopsTable, tables.LineStopsRowSet())
func NewSink(path string, logger *slog.Logger) (types.Sink, error) {
	s, err := sink.OpenSQLite(path, logger)
	if err != nil {
		return nil, err
	}
	return s, nil
}
