package store

import (
	"fmt"
	"log"

	"github.com/shopkit/pagebuilder/internal/config"
)

// Open creates a store from the site configuration. The sqlite path is
// resolved relative to siteDir.
func Open(cfg config.StoreConfig, siteDir string) (Store, error) {
	switch driver := cfg.GetDriver(); driver {
	case "memory":
		return NewMemory(), nil
	case "sqlite":
		path := cfg.Path
		if path == "" {
			path = "./pagebuilder.db"
		}
		st, err := NewSQLite(path, cfg.Table, siteDir)
		if err != nil {
			return nil, err
		}
		log.Printf("[Store] Using sqlite database %s", st.Path())
		return st, nil
	case "postgres":
		st, err := NewPostgres(cfg.GetDSN(), cfg.Table)
		if err != nil {
			return nil, err
		}
		log.Printf("[Store] Connected to postgres")
		return st, nil
	default:
		return nil, fmt.Errorf("unknown store driver: %s (expected memory, sqlite, or postgres)", driver)
	}
}
