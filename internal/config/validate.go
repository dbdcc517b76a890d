package config

import (
	"strings"

	"github.com/rotisserie/eris"
)

// Validate checks that everything the named command surface needs is set.
// Surfaces: "pipeline" (fetch/run/preview), "warehouse" (migrate/load),
// "serve".
func (c *Config) Validate(surface string) error {
	var missing []string

	switch surface {
	case "pipeline":
		if c.Storage.Raw == "" {
			missing = append(missing, "storage.raw")
		}
		if c.Storage.Clean == "" {
			missing = append(missing, "storage.clean")
		}
	case "warehouse":
		if c.Database.URL == "" {
			missing = append(missing, "database.url")
		}
	case "serve":
		if c.Serve.Addr == "" {
			missing = append(missing, "serve.addr")
		}
	}

	switch c.Store.Driver {
	case "", "sqlite":
		// Path has a default; an empty value falls back to it at open time.
	case "postgres":
		if c.Store.DatabaseURL == "" {
			missing = append(missing, "store.database_url")
		}
	default:
		return eris.Errorf("config: unknown store driver %q", c.Store.Driver)
	}

	if len(missing) > 0 {
		for i, m := range missing {
			missing[i] = m + " is required"
		}
		return eris.Errorf("config: %s", strings.Join(missing, "; "))
	}

	return nil
}
