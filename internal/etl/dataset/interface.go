// Package dataset defines the market-tracker cuts and the engine that runs
// them. Every cut shares the same transformation machinery; what varies is
// the source extract, the projected column subset, and the typed output
// schema.
package dataset

import (
	"context"

	"github.com/sells-group/market-etl/internal/db"
	"github.com/sells-group/market-etl/internal/etl"
)

// Source describes where a dataset's published extract lives.
type Source struct {
	// URL is the upstream extract location (http, https, or ftp).
	URL string

	// Encoding names the source charset; empty means UTF-8.
	Encoding string
}

// Dataset defines the interface each market-tracker cut must implement.
type Dataset interface {
	// Name returns the unique identifier for this cut (e.g. "city").
	Name() string

	// Table returns the warehouse table the load surface targets
	// (e.g. "market.city_tracker").
	Table() string

	// Source returns the upstream extract location for the fetch phase.
	Source() Source

	// RawObject returns the extract's object name under the raw prefix.
	RawObject() string

	// CleanObject returns the output's object name under the clean prefix.
	CleanObject() string

	// Run executes the transformation for this cut inside the session:
	// load, project, filter nulls, derive period fields, write Parquet.
	Run(ctx context.Context, sess *etl.Session) (*etl.Result, error)

	// Load bulk-loads the clean output into the warehouse table. The
	// default mode replaces the table contents; upsert merges on the
	// natural key instead.
	Load(ctx context.Context, sess *etl.Session, pool db.Pool, upsert bool) (int64, error)
}
