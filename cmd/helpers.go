package main

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rotisserie/eris"

	"github.com/sells-group/market-etl/internal/etl"
	"github.com/sells-group/market-etl/internal/store"
)

// initStore opens the configured run store and ensures its schema exists.
func initStore(ctx context.Context) (store.Store, error) {
	return store.Open(ctx, cfg)
}

// newSession builds an object-storage session over the configured raw and
// clean prefixes. Non-empty overrides replace them for one-off runs.
func newSession(rawOverride, cleanOverride string) (*etl.Session, error) {
	raw := cfg.Storage.Raw
	if rawOverride != "" {
		raw = rawOverride
	}
	clean := cfg.Storage.Clean
	if cleanOverride != "" {
		clean = cleanOverride
	}
	return etl.NewSession(raw, clean)
}

// warehousePool creates a pgxpool.Pool for the warehouse commands.
func warehousePool(ctx context.Context) (*pgxpool.Pool, error) {
	if cfg.Database.URL == "" {
		return nil, eris.New("warehouse: no database url configured (set database.url or MARKET_DATABASE_URL)")
	}

	pool, err := pgxpool.New(ctx, cfg.Database.URL)
	if err != nil {
		return nil, eris.Wrap(err, "warehouse: create connection pool")
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, eris.Wrap(err, "warehouse: ping database")
	}
	return pool, nil
}

// truncate shortens s for tabular display.
func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return s[:max-3] + "..."
}

// truncateID returns the first 8 characters of a UUID for compact display.
func truncateID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}
