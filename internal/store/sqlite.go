package store

import (
	"context"
	"database/sql"
	"time"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	_ "modernc.org/sqlite"

	"github.com/sells-group/market-etl/internal/etl"
	"github.com/sells-group/market-etl/internal/model"
)

// SQLiteStore implements Store using modernc.org/sqlite.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLite opens a SQLite database at the given path and configures WAL mode.
func NewSQLite(dsn string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: open")
	}
	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA synchronous=NORMAL",
	} {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, eris.Wrapf(err, "sqlite: exec %s", pragma)
		}
	}
	return &SQLiteStore{db: db}, nil
}

const sqliteMigration = `
CREATE TABLE IF NOT EXISTS etl_runs (
	id           TEXT PRIMARY KEY,
	dataset      TEXT NOT NULL,
	status       TEXT NOT NULL DEFAULT 'running',
	started_at   DATETIME NOT NULL DEFAULT (datetime('now')),
	completed_at DATETIME,
	rows_loaded  INTEGER NOT NULL DEFAULT 0,
	rows_dropped INTEGER NOT NULL DEFAULT 0,
	rows_written INTEGER NOT NULL DEFAULT 0,
	output       TEXT,
	error        TEXT
);

CREATE INDEX IF NOT EXISTS idx_etl_runs_dataset ON etl_runs(dataset, started_at);
CREATE INDEX IF NOT EXISTS idx_etl_runs_status ON etl_runs(status);
`

func (s *SQLiteStore) Migrate(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, sqliteMigration)
	return eris.Wrap(err, "sqlite: migrate")
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func (s *SQLiteStore) StartRun(ctx context.Context, dataset string) (string, error) {
	id := uuid.New().String()
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO etl_runs (id, dataset, status, started_at) VALUES (?, ?, ?, ?)`,
		id, dataset, string(model.RunStatusRunning), time.Now().UTC(),
	)
	if err != nil {
		return "", eris.Wrapf(err, "sqlite: start run for %s", dataset)
	}
	return id, nil
}

func (s *SQLiteStore) CompleteRun(ctx context.Context, id string, res *etl.Result) error {
	var loaded, dropped, written int64
	var output string
	if res != nil {
		loaded, dropped, written = res.RowsLoaded, res.RowsDropped, res.RowsWritten
		output = res.Output
	}

	r, err := s.db.ExecContext(ctx,
		`UPDATE etl_runs
		 SET status = ?, completed_at = ?, rows_loaded = ?, rows_dropped = ?, rows_written = ?, output = ?
		 WHERE id = ?`,
		string(model.RunStatusSucceeded), time.Now().UTC(), loaded, dropped, written, output, id,
	)
	if err != nil {
		return eris.Wrapf(err, "sqlite: complete run %s", id)
	}
	return checkRowsAffected(r, id)
}

func (s *SQLiteStore) FailRun(ctx context.Context, id string, errMsg string) error {
	r, err := s.db.ExecContext(ctx,
		`UPDATE etl_runs SET status = ?, completed_at = ?, error = ? WHERE id = ?`,
		string(model.RunStatusFailed), time.Now().UTC(), errMsg, id,
	)
	if err != nil {
		return eris.Wrapf(err, "sqlite: fail run %s", id)
	}
	return checkRowsAffected(r, id)
}

func (s *SQLiteStore) GetRun(ctx context.Context, id string) (*model.Run, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, dataset, status, started_at, completed_at, rows_loaded, rows_dropped, rows_written, output, error
		 FROM etl_runs WHERE id = ?`,
		id,
	)
	return scanRun(row)
}

func (s *SQLiteStore) ListRuns(ctx context.Context, filter RunFilter) ([]model.Run, error) {
	query := `SELECT id, dataset, status, started_at, completed_at, rows_loaded, rows_dropped, rows_written, output, error
	          FROM etl_runs WHERE 1=1`
	var args []any

	if filter.Dataset != "" {
		query += ` AND dataset = ?`
		args = append(args, filter.Dataset)
	}
	if filter.Status != "" {
		query += ` AND status = ?`
		args = append(args, string(filter.Status))
	}
	query += ` ORDER BY started_at DESC`

	limit := filter.Limit
	if limit <= 0 {
		limit = 50
	}
	query += ` LIMIT ?`
	args = append(args, limit)

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: list runs")
	}
	defer rows.Close()

	var runs []model.Run
	for rows.Next() {
		r, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		runs = append(runs, *r)
	}
	return runs, eris.Wrap(rows.Err(), "sqlite: list runs iterate")
}

func (s *SQLiteStore) LastSuccess(ctx context.Context, dataset string) (*time.Time, error) {
	var t time.Time
	err := s.db.QueryRowContext(ctx,
		`SELECT started_at FROM etl_runs
		 WHERE dataset = ? AND status = ?
		 ORDER BY started_at DESC LIMIT 1`,
		dataset, string(model.RunStatusSucceeded),
	).Scan(&t)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, eris.Wrapf(err, "sqlite: last success for %s", dataset)
	}
	return &t, nil
}

func (s *SQLiteStore) Stats(ctx context.Context) ([]model.DatasetStats, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT dataset,
		        COUNT(*),
		        SUM(CASE WHEN status = 'succeeded' THEN 1 ELSE 0 END),
		        SUM(CASE WHEN status = 'failed' THEN 1 ELSE 0 END),
		        SUM(CASE WHEN status = 'succeeded' THEN rows_written ELSE 0 END)
		 FROM etl_runs GROUP BY dataset ORDER BY dataset`,
	)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: stats")
	}
	defer rows.Close()

	var stats []model.DatasetStats
	for rows.Next() {
		var st model.DatasetStats
		if err := rows.Scan(&st.Dataset, &st.Total, &st.Succeeded, &st.Failed, &st.RowsWritten); err != nil {
			return nil, eris.Wrap(err, "sqlite: scan stats")
		}
		stats = append(stats, st)
	}
	if err := rows.Err(); err != nil {
		return nil, eris.Wrap(err, "sqlite: stats iterate")
	}

	for i := range stats {
		last, err := s.LastSuccess(ctx, stats[i].Dataset)
		if err != nil {
			return nil, err
		}
		stats[i].LastSuccess = last
	}
	return stats, nil
}

// helpers

func checkRowsAffected(res sql.Result, id string) error {
	n, err := res.RowsAffected()
	if err != nil {
		return eris.Wrap(err, "rows affected")
	}
	if n == 0 {
		return eris.Wrapf(ErrNotFound, "%s", id)
	}
	return nil
}

type scannable interface {
	Scan(dest ...any) error
}

func scanRun(row scannable) (*model.Run, error) {
	var r model.Run
	var completedAt sql.NullTime
	var output, errMsg sql.NullString

	err := row.Scan(&r.ID, &r.Dataset, &r.Status, &r.StartedAt, &completedAt,
		&r.RowsLoaded, &r.RowsDropped, &r.RowsWritten, &output, &errMsg)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: scan run")
	}

	if completedAt.Valid {
		t := completedAt.Time
		r.CompletedAt = &t
	}
	r.Output = output.String
	r.Error = errMsg.String
	return &r, nil
}
