// internal/storage/factory.go
package storage

import (
	"fmt"
	"log/slog"

	"github.com/teammap/teammap/internal/config"
	"github.com/teammap/teammap/internal/database"
	gormstorage "github.com/teammap/teammap/internal/storage/gorm"
	"github.com/teammap/teammap/internal/storage/memory"
	sqlitestorage "github.com/teammap/teammap/internal/storage/sqlite"
)

// NewBackend creates a storage backend based on configuration
func NewBackend(cfg config.StorageConfig, logger *slog.Logger) (Backend, error) {
	switch cfg.Type {
	case "postgres":
		db, err := database.GetPostgresDBStandalone()
		if err != nil {
			return nil, fmt.Errorf("connecting to postgres: %w", err)
		}
		return gormstorage.New(gormstorage.Dependencies{DB: db, Logger: logger}), nil
	case "sqlite":
		return sqlitestorage.New(cfg.SQLite, logger)
	case "memory", "":
		return memory.New(cfg.Memory, logger), nil
	default:
		return nil, fmt.Errorf("unknown storage type: %s", cfg.Type)
	}
}
