// Package store persists the run log: one row per transformation run,
// updated as the run starts, succeeds, or fails. A local SQLite file is the
// default backend; Postgres is used when configured, sharing the warehouse
// database.
package store

import (
	"context"
	"time"

	"github.com/rotisserie/eris"

	"github.com/sells-group/market-etl/internal/config"
	"github.com/sells-group/market-etl/internal/etl"
	"github.com/sells-group/market-etl/internal/model"
)

// ErrNotFound reports a run id with no matching row.
var ErrNotFound = eris.New("run not found")

// RunFilter specifies criteria for listing runs.
type RunFilter struct {
	Dataset string          `json:"dataset,omitempty"`
	Status  model.RunStatus `json:"status,omitempty"`
	Limit   int             `json:"limit,omitempty"`
}

// Store defines the persistence interface for the run log.
type Store interface {
	// StartRun records the beginning of a run and returns its id.
	StartRun(ctx context.Context, dataset string) (string, error)

	// CompleteRun marks a run succeeded with its row counts and output URI.
	CompleteRun(ctx context.Context, id string, res *etl.Result) error

	// FailRun marks a run failed with an error message.
	FailRun(ctx context.Context, id string, errMsg string) error

	GetRun(ctx context.Context, id string) (*model.Run, error)
	ListRuns(ctx context.Context, filter RunFilter) ([]model.Run, error)

	// LastSuccess returns the started_at of the most recent successful run
	// for a dataset, or nil if it has never succeeded.
	LastSuccess(ctx context.Context, dataset string) (*time.Time, error)

	// Stats aggregates run history per dataset.
	Stats(ctx context.Context) ([]model.DatasetStats, error)

	Migrate(ctx context.Context) error
	Close() error
}

// Open constructs the run store named by cfg.Store.Driver and ensures its
// schema exists.
func Open(ctx context.Context, cfg *config.Config) (Store, error) {
	var (
		s   Store
		err error
	)
	switch cfg.Store.Driver {
	case "", "sqlite":
		s, err = NewSQLite(cfg.Store.Path)
	case "postgres":
		s, err = NewPostgres(ctx, cfg.Store.DatabaseURL)
	default:
		return nil, eris.Errorf("store: unknown driver %q", cfg.Store.Driver)
	}
	if err != nil {
		return nil, err
	}
	if err := s.Migrate(ctx); err != nil {
		s.Close()
		return nil, err
	}
	return s, nil
}
