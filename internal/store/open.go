package store

import (
	"fmt"

	"github.com/alexlabrioche/modular-strategies/internal/config"
)

// Open returns the backend selected by cfg.Store.
func Open(cfg config.Config) (Store, error) {
	switch cfg.Store {
	case config.StoreMemory, "":
		return NewMemory(), nil
	case config.StoreSQLite:
		s, err := OpenSQLite(cfg.SQLitePath)
		if err != nil {
			return nil, err
		}
		return s, nil
	case config.StorePostgres:
		p, err := OpenPostgres(cfg.DatabaseURL)
		if err != nil {
			return nil, err
		}
		return p, nil
	default:
		return nil, fmt.Errorf("unknown store %q", cfg.Store)
	}
}
