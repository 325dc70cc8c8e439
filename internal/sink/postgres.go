package sink

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/url"
	"strconv"
	"sync"

	sq "github.com/Masterminds/squirrel"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/mesh-intelligence/gtfstables/pkg/types"
)

// maintenanceDB is the database used to check for and create the target.
const maintenanceDB = "postgres"

var psql = sq.StatementBuilder.PlaceholderFormat(sq.Dollar)

// Postgres writes tables to a PostgreSQL database with COPY.
type Postgres struct {
	mu     sync.Mutex
	pool   *pgxpool.Pool
	logger *slog.Logger
}

// ConnString builds a postgres URL for db using the connection settings in
// cfg.
func ConnString(cfg types.DatabaseConfig, db string) string {
	u := url.URL{
		Scheme: "postgres",
		User:   url.UserPassword(cfg.User, cfg.Password),
		Host:   net.JoinHostPort(cfg.Host, strconv.Itoa(cfg.Port)),
		Path:   "/" + db,
	}
	return u.String()
}

// databaseExistsQuery returns the catalog lookup for a database name.
func databaseExistsQuery(name string) (string, []any, error) {
	return psql.Select("1").From("pg_database").Where(sq.Eq{"datname": name}).ToSql()
}

// EnsureDatabase creates cfg.Name when it does not exist.
func EnsureDatabase(ctx context.Context, cfg types.DatabaseConfig, logger *slog.Logger) error {
	conn, err := pgx.Connect(ctx, ConnString(cfg, maintenanceDB))
	if err != nil {
		return fmt.Errorf("connect to %s: %w", maintenanceDB, err)
	}
	defer conn.Close(ctx)

	query, args, err := databaseExistsQuery(cfg.Name)
	if err != nil {
		return fmt.Errorf("build database lookup: %w", err)
	}

	var one int
	err = conn.QueryRow(ctx, query, args...).Scan(&one)
	if err == nil {
		return nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return fmt.Errorf("look up database %s: %w", cfg.Name, err)
	}

	if _, err := conn.Exec(ctx, "CREATE DATABASE "+pgx.Identifier{cfg.Name}.Sanitize()); err != nil {
		return fmt.Errorf("create database %s: %w", cfg.Name, err)
	}
	logger.Info("database created", "database", cfg.Name)
	return nil
}

// OpenPostgres connects to the database named in cfg.
func OpenPostgres(ctx context.Context, cfg types.DatabaseConfig, logger *slog.Logger) (*Postgres, error) {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	pool, err := pgxpool.New(ctx, ConnString(cfg, cfg.Name))
	if err != nil {
		return nil, fmt.Errorf("create connection pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}
	return &Postgres{pool: pool, logger: logger}, nil
}

// Insert drops name, recreates it with column types inferred from rs, and
// copies every row, all in one transaction.
func (p *Postgres) Insert(ctx context.Context, name string, rs *types.RowSet) error {
	if err := checkRowSet(name, rs); err != nil {
		return err
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	if p.pool == nil {
		return types.ErrSinkClosed
	}

	tx, err := p.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	if _, err := tx.Exec(ctx, postgresDialect.dropTable(name)); err != nil {
		return fmt.Errorf("drop table %s: %w", name, err)
	}
	if _, err := tx.Exec(ctx, postgresDialect.createTable(name, rs.Columns)); err != nil {
		return fmt.Errorf("create table %s: %w", name, err)
	}

	n, err := tx.CopyFrom(ctx, pgx.Identifier{name}, rs.ColumnNames(), pgx.CopyFromRows(rs.Rows))
	if err != nil {
		return fmt.Errorf("copy into %s: %w", name, err)
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit %s: %w", name, err)
	}
	p.logger.Info("table written", "table", name, "rows", n)
	return nil
}

// Close releases the connection pool. Idempotent.
func (p *Postgres) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.pool != nil {
		p.pool.Close()
		p.pool = nil
	}
	return nil
}
