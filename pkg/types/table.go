package types

import (
	"context"
	"time"
)

// ColumnType is the SQL type a sink declares for a column.
type ColumnType string

// Column types inferred from row values.
const (
	ColumnInteger   ColumnType = "INTEGER"
	ColumnFloat     ColumnType = "FLOAT"
	ColumnBoolean   ColumnType = "BOOLEAN"
	ColumnTimestamp ColumnType = "TIMESTAMP"
	ColumnText      ColumnType = "TEXT"
)

// Column describes one column of a RowSet.
type Column struct {
	Name string
	Type ColumnType
}

// RowSet is a named-column table handed to a Sink. Every row has one value per
// column; a nil value is stored as NULL.
type RowSet struct {
	Columns []Column
	Rows    [][]any
}

// NewRowSet builds a RowSet and infers each column type from the first
// non-nil value in that column. Columns with no non-nil value are TEXT.
func NewRowSet(names []string, rows [][]any) *RowSet {
	cols := make([]Column, len(names))
	for i, name := range names {
		cols[i] = Column{Name: name, Type: ColumnText}
		for _, row := range rows {
			if i < len(row) && row[i] != nil {
				cols[i].Type = InferColumnType(row[i])
				break
			}
		}
	}
	return &RowSet{Columns: cols, Rows: rows}
}

// ColumnNames returns the column names in order.
func (rs *RowSet) ColumnNames() []string {
	names := make([]string, len(rs.Columns))
	for i, c := range rs.Columns {
		names[i] = c.Name
	}
	return names
}

// InferColumnType maps a Go value to the SQL column type used to store it.
func InferColumnType(v any) ColumnType {
	switch v.(type) {
	case int, int8, int16, int32, int64, uint, uint8, uint16, uint32, uint64:
		return ColumnInteger
	case float32, float64:
		return ColumnFloat
	case bool:
		return ColumnBoolean
	case time.Time:
		return ColumnTimestamp
	default:
		return ColumnText
	}
}

// Sink persists named row sets. Insert replaces any existing table of the same
// name and bulk-loads the rows; it either loads every row or none.
type Sink interface {
	// Insert creates or replaces the table name and loads rs into it.
	Insert(ctx context.Context, name string, rs *RowSet) error

	// Close releases the sink's connections. Idempotent.
	Close() error
}
