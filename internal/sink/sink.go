// Package sink persists derived tables. Each backend implements types.Sink:
// Insert replaces the named table and bulk-loads a RowSet in one step.
package sink

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/mesh-intelligence/gtfstables/pkg/types"
)

// Open creates the sink selected by cfg.Sink.Backend. For postgres the target
// database is created first when it does not exist.
func Open(ctx context.Context, cfg types.Config, logger *slog.Logger) (types.Sink, error) {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	logger = logger.With("backend", cfg.Sink.Backend)

	switch cfg.Sink.Backend {
	case types.BackendPostgres:
		if err := EnsureDatabase(ctx, cfg.Database, logger); err != nil {
			return nil, err
		}
		return OpenPostgres(ctx, cfg.Database, logger)
	case types.BackendSQLite:
		return OpenSQLite(cfg.Sink.Path, logger)
	case types.BackendJSONL:
		return OpenJSONL(cfg.Sink.Path, logger)
	case "":
		return nil, types.ErrBackendEmpty
	default:
		return nil, fmt.Errorf("%w: %q", types.ErrBackendUnknown, cfg.Sink.Backend)
	}
}

// checkRowSet rejects table or column names that are not plain identifiers
// and rows whose width does not match the column list.
func checkRowSet(name string, rs *types.RowSet) error {
	if !types.IsValidTableName(name) {
		return fmt.Errorf("%w: %q", types.ErrInvalidTableName, name)
	}
	for _, c := range rs.Columns {
		if !types.IsValidTableName(c.Name) {
			return fmt.Errorf("%w: column %q", types.ErrInvalidTableName, c.Name)
		}
	}
	for i, row := range rs.Rows {
		if len(row) != len(rs.Columns) {
			return fmt.Errorf("%w: row %d has %d values, want %d", types.ErrRowWidth, i, len(row), len(rs.Columns))
		}
	}
	return nil
}

// dialect maps column types to a backend's SQL types.
type dialect struct {
	quote func(string) string
	types map[types.ColumnType]string
}

var postgresDialect = dialect{
	quote: quoteIdent,
	types: map[types.ColumnType]string{
		types.ColumnInteger:   "BIGINT",
		types.ColumnFloat:     "DOUBLE PRECISION",
		types.ColumnBoolean:   "BOOLEAN",
		types.ColumnTimestamp: "TIMESTAMP",
		types.ColumnText:      "TEXT",
	},
}

var sqliteDialect = dialect{
	quote: quoteIdent,
	types: map[types.ColumnType]string{
		types.ColumnInteger:   "INTEGER",
		types.ColumnFloat:     "REAL",
		types.ColumnBoolean:   "BOOLEAN",
		types.ColumnTimestamp: "TIMESTAMP",
		types.ColumnText:      "TEXT",
	},
}

func quoteIdent(s string) string {
	return `"` + strings.ReplaceAll(s, `"`, `""`) + `"`
}

func (d dialect) dropTable(name string) string {
	return "DROP TABLE IF EXISTS " + d.quote(name)
}

func (d dialect) createTable(name string, cols []types.Column) string {
	defs := make([]string, len(cols))
	for i, c := range cols {
		typ, ok := d.types[c.Type]
		if !ok {
			typ = d.types[types.ColumnText]
		}
		defs[i] = d.quote(c.Name) + " " + typ
	}
	return fmt.Sprintf("CREATE TABLE %s (\n    %s\n)", d.quote(name), strings.Join(defs, ",\n    "))
}

func (d dialect) quoteAll(names []string) []string {
	out := make([]string, len(names))
	for i, n := range names {
		out[i] = d.quote(n)
	}
	return out
}
