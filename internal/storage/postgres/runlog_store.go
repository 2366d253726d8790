// Package postgres provides the optional Postgres run-log mirror.
package postgres

import (
	"context"
	"fmt"
	"regexp"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/SidSin0809/hdock-batch/internal/hdock"
)

var validTableName = regexp.MustCompile(`^[a-zA-Z_][a-zA-Z0-9_]*$`)

// RunLogStoreConfig controls the Postgres connection pool.
type RunLogStoreConfig struct {
	DSN             string
	Table           string
	MaxConns        int32
	MaxConnLifetime time.Duration
}

type execCloser interface {
	Exec(context.Context, string, ...any) (pgconn.CommandTag, error)
	Close()
}

// RunLogStore mirrors run-log rows into Postgres so batches are queryable
// without parsing CSVs. The CSV stays the source of truth.
type RunLogStore struct {
	pool  execCloser
	table string
}

// NewRunLogStore creates a Postgres-backed RunLogStore using the provided config.
func NewRunLogStore(ctx context.Context, cfg RunLogStoreConfig) (*RunLogStore, error) {
	if cfg.DSN == "" {
		return nil, fmt.Errorf("db.dsn is required")
	}
	table := cfg.Table
	if table == "" {
		table = "hdock_runs"
	}
	if !validTableName.MatchString(table) {
		return nil, fmt.Errorf("invalid table name %q", table)
	}
	poolCfg, err := pgxpool.ParseConfig(cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("parse postgres dsn: %w", err)
	}
	if cfg.MaxConns > 0 {
		poolCfg.MaxConns = cfg.MaxConns
	}
	if cfg.MaxConnLifetime > 0 {
		poolCfg.MaxConnLifetime = cfg.MaxConnLifetime
	}
	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, fmt.Errorf("connect postgres: %w", err)
	}
	return &RunLogStore{pool: pool, table: table}, nil
}

// NewRunLogStoreWithPool constructs a store from an existing pool (primarily for testing).
func NewRunLogStoreWithPool(pool execCloser, table string) (*RunLogStore, error) {
	if pool == nil {
		return nil, fmt.Errorf("pool is required")
	}
	if table == "" {
		table = "hdock_runs"
	}
	if !validTableName.MatchString(table) {
		return nil, fmt.Errorf("invalid table name %q", table)
	}
	return &RunLogStore{pool: pool, table: table}, nil
}

// Close releases the underlying pool resources.
func (s *RunLogStore) Close() {
	if s == nil || s.pool == nil {
		return
	}
	s.pool.Close()
}

// InsertResult mirrors one run-log row.
func (s *RunLogStore) InsertResult(ctx context.Context, batchID string, res hdock.JobResult) error {
	if s == nil || s.pool == nil {
		return fmt.Errorf("run log store is not configured")
	}
	if batchID == "" {
		return fmt.Errorf("batch id is required")
	}
	query := fmt.Sprintf(`
INSERT INTO %s (
	batch_id,
	row_index,
	submitted_at,
	jobname,
	token,
	result_url,
	ok,
	error_text
) VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`, s.table)

	_, err := s.pool.Exec(ctx, query,
		batchID,
		res.RowIndex,
		res.Timestamp,
		res.JobName,
		res.Token,
		res.ResultURL,
		res.OK,
		res.Error,
	)
	if err != nil {
		return fmt.Errorf("insert run log row %d: %w", res.RowIndex, err)
	}
	return nil
}
