package sink

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"

	"github.com/mesh-intelligence/gtfstables/pkg/types"
)

// JSONL writes each table to <dir>/<table>.jsonl, one JSON object per row with
// keys in column order.
type JSONL struct {
	mu     sync.Mutex
	dir    string
	closed bool
	logger *slog.Logger
}

// OpenJSONL creates dir if needed and returns a sink writing into it.
func OpenJSONL(dir string, logger *slog.Logger) (*JSONL, error) {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create jsonl dir: %w", err)
	}
	return &JSONL{dir: dir, logger: logger}, nil
}

// Path returns the file a table is written to.
func (j *JSONL) Path(name string) string {
	return filepath.Join(j.dir, name+".jsonl")
}

// Insert replaces <name>.jsonl with the rows of rs.
func (j *JSONL) Insert(ctx context.Context, name string, rs *types.RowSet) error {
	if err := checkRowSet(name, rs); err != nil {
		return err
	}

	j.mu.Lock()
	defer j.mu.Unlock()
	if j.closed {
		return types.ErrSinkClosed
	}

	names := rs.ColumnNames()
	records := make([]json.RawMessage, 0, len(rs.Rows))
	for i, row := range rs.Rows {
		if i%4096 == 0 {
			if err := ctx.Err(); err != nil {
				return err
			}
		}
		rec, err := encodeRow(names, row)
		if err != nil {
			return fmt.Errorf("encode %s row %d: %w", name, i, err)
		}
		records = append(records, rec)
	}

	if err := writeJSONL(j.Path(name), records); err != nil {
		return fmt.Errorf("write %s: %w", name, err)
	}
	j.logger.Info("table written", "table", name, "rows", len(records), "path", j.Path(name))
	return nil
}

// Close marks the sink closed. Idempotent.
func (j *JSONL) Close() error {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.closed = true
	return nil
}

// encodeRow renders one row as a JSON object. encoding/json sorts map keys, so
// the object is assembled by hand to keep column order.
func encodeRow(names []string, row []any) (json.RawMessage, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, name := range names {
		if i > 0 {
			buf.WriteByte(',')
		}
		k, err := json.Marshal(name)
		if err != nil {
			return nil, err
		}
		v, err := json.Marshal(row[i])
		if err != nil {
			return nil, err
		}
		buf.Write(k)
		buf.WriteByte(':')
		buf.Write(v)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// ReadJSONL reads a JSONL file and decodes each non-empty, parseable line.
// Malformed lines are skipped.
func ReadJSONL(path string) ([]map[string]any, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening %s: %w", path, err)
	}
	defer f.Close()

	var records []map[string]any
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}
		var obj map[string]any
		if err := json.Unmarshal(line, &obj); err != nil {
			continue
		}
		records = append(records, obj)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("scanning %s: %w", path, err)
	}
	return records, nil
}

// writeJSONL atomically writes records to a JSONL file using the temp-file,
// fsync, rename pattern.
func writeJSONL(path string, records []json.RawMessage) error {
	dir := filepath.Dir(path)
	tmp, err := os.CreateTemp(dir, ".jsonl-*.tmp")
	if err != nil {
		return fmt.Errorf("creating temp file: %w", err)
	}
	tmpName := tmp.Name()

	fail := func(err error) error {
		tmp.Close()
		os.Remove(tmpName)
		return err
	}

	w := bufio.NewWriter(tmp)
	for _, rec := range records {
		if _, err := w.Write(rec); err != nil {
			return fail(fmt.Errorf("writing record: %w", err))
		}
		if err := w.WriteByte('\n'); err != nil {
			return fail(fmt.Errorf("writing newline: %w", err))
		}
	}
	if err := w.Flush(); err != nil {
		return fail(fmt.Errorf("flushing buffer: %w", err))
	}
	if err := tmp.Sync(); err != nil {
		return fail(fmt.Errorf("syncing temp file: %w", err))
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("closing temp file: %w", err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("renaming temp file: %w", err)
	}
	return nil
}
