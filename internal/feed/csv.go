package feed

import (
	"context"
	"database/sql"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"strconv"
	"strings"

	"github.com/mesh-intelligence/gtfstables/pkg/types"
)

// ctxCheckInterval is how many rows are read between context checks.
const ctxCheckInterval = 4096

// utf8BOM is stripped from the first header field.
const utf8BOM = "\ufeff"

// row gives typed access to the current record of a feed file. Missing
// trailing fields read as empty, and an empty field is null.
type row struct {
	path   string
	line   int
	idx    map[string]int
	record []string
}

// readRows parses the CSV file at path, checks that every required column is
// present in the header, and converts each record with conv. A missing file or
// column yields a *types.ParseError; conv returns *types.FormatError for
// values it cannot coerce.
func readRows[T any](ctx context.Context, path string, required []string, conv func(*row) (T, error)) ([]T, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, &types.ParseError{File: path, Err: err}
	}
	defer f.Close()

	reader := csv.NewReader(f)
	reader.FieldsPerRecord = -1
	reader.ReuseRecord = true
	// Stop names carry bare quotes (e.g. Hebrew abbreviations like ת"א).
	reader.LazyQuotes = true

	header, err := reader.Read()
	if err == io.EOF {
		return nil, &types.ParseError{File: path, Err: errors.New("file is empty")}
	}
	if err != nil {
		return nil, &types.ParseError{File: path, Line: 1, Err: err}
	}

	idx := makeIndex(header)
	for _, col := range required {
		if _, ok := idx[col]; !ok {
			return nil, &types.ParseError{File: path, Column: col}
		}
	}

	var out []T
	r := &row{path: path, idx: idx}
	for n := 0; ; n++ {
		if n%ctxCheckInterval == 0 {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
		}

		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			var pe *csv.ParseError
			line := 0
			if errors.As(err, &pe) {
				line = pe.Line
			}
			return nil, &types.ParseError{File: path, Line: line, Err: err}
		}
		if isBlank(record) {
			continue
		}

		r.line, _ = reader.FieldPos(0)
		r.record = record
		v, err := conv(r)
		if err != nil {
			return nil, err
		}
		out = append(out, v)
	}

	return out, nil
}

func makeIndex(header []string) map[string]int {
	idx := make(map[string]int, len(header))
	for i, h := range header {
		if i == 0 {
			h = strings.TrimPrefix(h, utf8BOM)
		}
		h = strings.TrimSpace(h)
		if _, dup := idx[h]; !dup {
			idx[h] = i
		}
	}
	return idx
}

func isBlank(record []string) bool {
	for _, f := range record {
		if strings.TrimSpace(f) != "" {
			return false
		}
	}
	return true
}

// str returns the trimmed value of field, or "" when absent.
func (r *row) str(field string) string {
	if i, ok := r.idx[field]; ok && i < len(r.record) {
		return strings.TrimSpace(r.record[i])
	}
	return ""
}

func (r *row) nullString(field string) sql.NullString {
	s := r.str(field)
	return sql.NullString{String: s, Valid: s != ""}
}

func (r *row) formatErr(field, value string, err error) error {
	return &types.FormatError{File: r.path, Line: r.line, Column: field, Value: value, Err: err}
}

// nullInt parses an integer field. Integral decimal forms such as "3.0" are
// accepted because some exporters write every numeric column as float, and
// "NaN" is treated as null like in nullFloat.
func (r *row) nullInt(field string) (sql.NullInt64, error) {
	s := r.str(field)
	if s == "" {
		return sql.NullInt64{}, nil
	}
	if v, err := strconv.ParseInt(s, 10, 64); err == nil {
		return sql.NullInt64{Int64: v, Valid: true}, nil
	}
	f, err := strconv.ParseFloat(s, 64)
	if err == nil && math.IsNaN(f) {
		return sql.NullInt64{}, nil
	}
	if err != nil || math.IsInf(f, 0) || f != math.Trunc(f) {
		return sql.NullInt64{}, r.formatErr(field, s, fmt.Errorf("not an integer"))
	}
	return sql.NullInt64{Int64: int64(f), Valid: true}, nil
}

// nullFloat parses a float field. "NaN" is treated as null.
func (r *row) nullFloat(field string) (sql.NullFloat64, error) {
	s := r.str(field)
	if s == "" {
		return sql.NullFloat64{}, nil
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return sql.NullFloat64{}, r.formatErr(field, s, fmt.Errorf("not a number"))
	}
	if math.IsNaN(f) {
		return sql.NullFloat64{}, nil
	}
	return sql.NullFloat64{Float64: f, Valid: true}, nil
}

// gtfsTime parses a GTFS time field into its text and seconds.
func (r *row) gtfsTime(field string) (sql.NullString, int, error) {
	s := r.str(field)
	if s == "" {
		return sql.NullString{}, 0, nil
	}
	secs, err := types.ParseGTFSTime(s)
	if err != nil {
		return sql.NullString{}, 0, r.formatErr(field, s, err)
	}
	return sql.NullString{String: s, Valid: true}, secs, nil
}
