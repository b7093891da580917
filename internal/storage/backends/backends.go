// Package backends selects the storage implementation named in configuration.
package backends

import (
	"fmt"

	"fieldscribe/internal/config"
	"fieldscribe/internal/storage"
	"fieldscribe/internal/storage/fsstore"
	"fieldscribe/internal/storage/sqlitestore"
)

// Open constructs the backend selected by storage.backend.
func Open(cfg *config.Config) (storage.Store, error) {
	if cfg == nil {
		return nil, fmt.Errorf("storage: config is required")
	}
	switch cfg.Storage.Backend {
	case config.BackendFilesystem:
		return fsstore.New(cfg.Storage.Endpoint)
	case config.BackendSQLite:
		return sqlitestore.Open(cfg.Storage.Endpoint)
	default:
		return nil, fmt.Errorf("storage: unsupported backend %q", cfg.Storage.Backend)
	}
}
