// Package types defines the feed entities, the derived output tables, the
// row-set and sink contracts, and the standard error types shared by the
// gtfstables loader, derivation engine and sinks.
//
// The four entity types mirror the GTFS files they are parsed from. Nullable
// source fields use the database/sql Null types so that null handling in the
// engine follows SQL semantics: a null never equals anything and a row that
// carries one is dropped before it reaches an output table.
package types
