package sink

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"

	sq "github.com/Masterminds/squirrel"
	_ "modernc.org/sqlite"

	"github.com/mesh-intelligence/gtfstables/pkg/types"
)

// insertChunk bounds the rows per INSERT statement so the bound parameter
// count stays well below SQLite's limit.
const insertChunk = 500

// SQLite writes tables to a single SQLite database file.
type SQLite struct {
	mu     sync.Mutex
	db     *sql.DB
	path   string
	logger *slog.Logger
}

// OpenSQLite opens or creates the database file at path, creating parent
// directories as needed.
func OpenSQLite(path string, logger *slog.Logger) (*SQLite, error) {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create sqlite dir: %w", err)
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite %s: %w", path, err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("open sqlite %s: %w", path, err)
	}
	return &SQLite{db: db, path: path, logger: logger}, nil
}

// DB exposes the underlying handle for read-back queries.
func (s *SQLite) DB() *sql.DB {
	return s.db
}

// Insert drops name, recreates it with column types inferred from rs, and
// inserts every row in chunked multi-row INSERTs inside one transaction.
func (s *SQLite) Insert(ctx context.Context, name string, rs *types.RowSet) error {
	if err := checkRowSet(name, rs); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.db == nil {
		return types.ErrSinkClosed
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, sqliteDialect.dropTable(name)); err != nil {
		return fmt.Errorf("drop table %s: %w", name, err)
	}
	if _, err := tx.ExecContext(ctx, sqliteDialect.createTable(name, rs.Columns)); err != nil {
		return fmt.Errorf("create table %s: %w", name, err)
	}

	cols := sqliteDialect.quoteAll(rs.ColumnNames())
	for start := 0; start < len(rs.Rows); start += insertChunk {
		end := min(start+insertChunk, len(rs.Rows))

		ib := sq.Insert(sqliteDialect.quote(name)).Columns(cols...)
		for _, row := range rs.Rows[start:end] {
			ib = ib.Values(row...)
		}
		query, args, err := ib.ToSql()
		if err != nil {
			return fmt.Errorf("build insert for %s: %w", name, err)
		}
		if _, err := tx.ExecContext(ctx, query, args...); err != nil {
			return fmt.Errorf("insert into %s: %w", name, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit %s: %w", name, err)
	}
	s.logger.Info("table written", "table", name, "rows", len(rs.Rows), "path", s.path)
	return nil
}

// Close closes the database. Idempotent.
func (s *SQLite) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.db == nil {
		return nil
	}
	err := s.db.Close()
	s.db = nil
	return err
}
