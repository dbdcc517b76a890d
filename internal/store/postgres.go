package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rotisserie/eris"

	"github.com/sells-group/market-etl/internal/db"
	"github.com/sells-group/market-etl/internal/etl"
	"github.com/sells-group/market-etl/internal/model"
)

// PostgresStore implements Store using pgxpool, keeping the run log next to
// the warehouse tables in the market schema.
type PostgresStore struct {
	pool    db.Pool
	closeFn func()
}

// NewPostgres creates a PostgresStore with a connection pool.
func NewPostgres(ctx context.Context, connString string) (*PostgresStore, error) {
	pgxCfg, err := pgxpool.ParseConfig(connString)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: parse config")
	}
	pgxCfg.MaxConns = 10
	pgxCfg.MinConns = 2
	pgxCfg.MaxConnLifetime = 30 * time.Minute
	pgxCfg.MaxConnIdleTime = 5 * time.Minute

	pool, err := pgxpool.NewWithConfig(ctx, pgxCfg)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: create pool")
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, eris.Wrap(err, "postgres: ping")
	}
	return &PostgresStore{pool: pool, closeFn: pool.Close}, nil
}

// NewPostgresFromPool wraps an existing pool. The caller keeps ownership of
// the pool's lifecycle; Close becomes a no-op.
func NewPostgresFromPool(pool db.Pool) *PostgresStore {
	return &PostgresStore{pool: pool}
}

// Pool returns the underlying database pool for subsystems that need direct
// query access (e.g. the warehouse load).
func (s *PostgresStore) Pool() db.Pool {
	return s.pool
}

const postgresMigration = `
CREATE SCHEMA IF NOT EXISTS market;

CREATE TABLE IF NOT EXISTS market.etl_runs (
	id           TEXT PRIMARY KEY,
	dataset      TEXT NOT NULL,
	status       TEXT NOT NULL DEFAULT 'running',
	started_at   TIMESTAMPTZ NOT NULL DEFAULT now(),
	completed_at TIMESTAMPTZ,
	rows_loaded  BIGINT NOT NULL DEFAULT 0,
	rows_dropped BIGINT NOT NULL DEFAULT 0,
	rows_written BIGINT NOT NULL DEFAULT 0,
	output       TEXT,
	error        TEXT
);

CREATE INDEX IF NOT EXISTS idx_etl_runs_dataset ON market.etl_runs(dataset, started_at DESC);
CREATE INDEX IF NOT EXISTS idx_etl_runs_status ON market.etl_runs(status);
`

func (s *PostgresStore) Migrate(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, postgresMigration)
	return eris.Wrap(err, "postgres: migrate")
}

func (s *PostgresStore) Close() error {
	if s.closeFn != nil {
		s.closeFn()
	}
	return nil
}

func (s *PostgresStore) StartRun(ctx context.Context, dataset string) (string, error) {
	id := uuid.New().String()
	_, err := s.pool.Exec(ctx,
		`INSERT INTO market.etl_runs (id, dataset, status, started_at) VALUES ($1, $2, $3, now())`,
		id, dataset, string(model.RunStatusRunning),
	)
	if err != nil {
		return "", eris.Wrapf(err, "postgres: start run for %s", dataset)
	}
	return id, nil
}

func (s *PostgresStore) CompleteRun(ctx context.Context, id string, res *etl.Result) error {
	var loaded, dropped, written int64
	var output string
	if res != nil {
		loaded, dropped, written = res.RowsLoaded, res.RowsDropped, res.RowsWritten
		output = res.Output
	}

	tag, err := s.pool.Exec(ctx,
		`UPDATE market.etl_runs
		 SET status = $1, completed_at = now(), rows_loaded = $2, rows_dropped = $3, rows_written = $4, output = $5
		 WHERE id = $6`,
		string(model.RunStatusSucceeded), loaded, dropped, written, output, id,
	)
	if err != nil {
		return eris.Wrapf(err, "postgres: complete run %s", id)
	}
	if tag.RowsAffected() == 0 {
		return eris.Wrapf(ErrNotFound, "%s", id)
	}
	return nil
}

func (s *PostgresStore) FailRun(ctx context.Context, id string, errMsg string) error {
	tag, err := s.pool.Exec(ctx,
		`UPDATE market.etl_runs SET status = $1, completed_at = now(), error = $2 WHERE id = $3`,
		string(model.RunStatusFailed), errMsg, id,
	)
	if err != nil {
		return eris.Wrapf(err, "postgres: fail run %s", id)
	}
	if tag.RowsAffected() == 0 {
		return eris.Wrapf(ErrNotFound, "%s", id)
	}
	return nil
}

func (s *PostgresStore) GetRun(ctx context.Context, id string) (*model.Run, error) {
	var r model.Run
	var completedAt *time.Time
	var output, errMsg *string

	err := s.pool.QueryRow(ctx,
		`SELECT id, dataset, status, started_at, completed_at, rows_loaded, rows_dropped, rows_written, output, error
		 FROM market.etl_runs WHERE id = $1`,
		id,
	).Scan(&r.ID, &r.Dataset, &r.Status, &r.StartedAt, &completedAt,
		&r.RowsLoaded, &r.RowsDropped, &r.RowsWritten, &output, &errMsg)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, eris.Wrapf(err, "postgres: get run %s", id)
	}

	r.CompletedAt = completedAt
	if output != nil {
		r.Output = *output
	}
	if errMsg != nil {
		r.Error = *errMsg
	}
	return &r, nil
}

func (s *PostgresStore) ListRuns(ctx context.Context, filter RunFilter) ([]model.Run, error) {
	query := `SELECT id, dataset, status, started_at, completed_at, rows_loaded, rows_dropped, rows_written, output, error
	          FROM market.etl_runs WHERE true`
	args := []any{}
	argIdx := 1

	if filter.Dataset != "" {
		query += fmt.Sprintf(` AND dataset = $%d`, argIdx)
		args = append(args, filter.Dataset)
		argIdx++
	}
	if filter.Status != "" {
		query += fmt.Sprintf(` AND status = $%d`, argIdx)
		args = append(args, string(filter.Status))
		argIdx++
	}
	query += ` ORDER BY started_at DESC`

	limit := filter.Limit
	if limit <= 0 {
		limit = 50
	}
	query += fmt.Sprintf(` LIMIT $%d`, argIdx)
	args = append(args, limit)

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: list runs")
	}
	defer rows.Close()

	var runs []model.Run
	for rows.Next() {
		var r model.Run
		var completedAt *time.Time
		var output, errMsg *string

		if err := rows.Scan(&r.ID, &r.Dataset, &r.Status, &r.StartedAt, &completedAt,
			&r.RowsLoaded, &r.RowsDropped, &r.RowsWritten, &output, &errMsg); err != nil {
			return nil, eris.Wrap(err, "postgres: scan run")
		}
		r.CompletedAt = completedAt
		if output != nil {
			r.Output = *output
		}
		if errMsg != nil {
			r.Error = *errMsg
		}
		runs = append(runs, r)
	}
	return runs, eris.Wrap(rows.Err(), "postgres: list runs iterate")
}

func (s *PostgresStore) LastSuccess(ctx context.Context, dataset string) (*time.Time, error) {
	var t time.Time
	err := s.pool.QueryRow(ctx,
		`SELECT started_at FROM market.etl_runs
		 WHERE dataset = $1 AND status = $2
		 ORDER BY started_at DESC LIMIT 1`,
		dataset, string(model.RunStatusSucceeded),
	).Scan(&t)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, eris.Wrapf(err, "postgres: last success for %s", dataset)
	}
	return &t, nil
}

func (s *PostgresStore) Stats(ctx context.Context) ([]model.DatasetStats, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT dataset,
		        COUNT(*),
		        COUNT(*) FILTER (WHERE status = 'succeeded'),
		        COUNT(*) FILTER (WHERE status = 'failed'),
		        COALESCE(SUM(rows_written) FILTER (WHERE status = 'succeeded'), 0),
		        MAX(started_at) FILTER (WHERE status = 'succeeded')
		 FROM market.etl_runs GROUP BY dataset ORDER BY dataset`,
	)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: stats")
	}
	defer rows.Close()

	var stats []model.DatasetStats
	for rows.Next() {
		var st model.DatasetStats
		var last *time.Time
		if err := rows.Scan(&st.Dataset, &st.Total, &st.Succeeded, &st.Failed, &st.RowsWritten, &last); err != nil {
			return nil, eris.Wrap(err, "postgres: scan stats")
		}
		st.LastSuccess = last
		stats = append(stats, st)
	}
	return stats, eris.Wrap(rows.Err(), "postgres: stats iterate")
}
