package storage

import (
	"fmt"
	"streamwatch/internal/providers"
	"streamwatch/internal/structures"

	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

// NewStore picks the backend named by storage.driver.
func NewStore(conf *structures.Config, logger providers.Logger) (Store, error) {
	var dialector gorm.Dialector
	switch conf.Storage.Driver {
	case "", "memory":
		logger.Infof(providers.TypeApp, "Using in-memory storage, snapshots at %s", conf.Persistence.FilePath)
		return NewMemoryStore(), nil
	case "postgres":
		dialector = postgres.Open(conf.Storage.Dsn)
	case "sqlite":
		dialector = sqlite.Open(conf.Storage.Dsn)
	default:
		return nil, fmt.Errorf("unknown storage driver %q", conf.Storage.Driver)
	}

	store, err := NewGormStore(dialector, conf.Storage.QueryTimeout, logger)
	if err != nil {
		return nil, err
	}
	logger.Infof(providers.TypeApp, "Using %s storage", conf.Storage.Driver)
	return store, nil
}
