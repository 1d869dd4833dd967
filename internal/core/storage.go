package core

import (
	"context"
	"fmt"
	"os"

	"smarthika/internal/infra/persistence/memory"
	"smarthika/internal/infra/persistence/postgres"
	"smarthika/internal/infra/persistence/sqlite"
)

// StorageDriver identifies a concrete persistent storage implementation.
type StorageDriver string

const (
	StorageMemory   StorageDriver = "memory"   // in-memory only (tests / ephemeral)
	StorageSQLite   StorageDriver = "sqlite"   // embedded sqlite file
	StoragePostgres StorageDriver = "postgres" // PostgreSQL server
)

// StorageConfig selects and configures a backend.
type StorageConfig struct {
	Driver      string `env:"SMARTHIKA_STORAGE_DRIVER"`
	SQLitePath  string `env:"SMARTHIKA_SQLITE_PATH"`
	PostgresDSN string `env:"SMARTHIKA_POSTGRES_DSN"`
}

// StorageConfigFromEnv reads the storage settings.
//
//	SMARTHIKA_STORAGE_DRIVER: memory|sqlite|postgres (default sqlite)
//	SMARTHIKA_SQLITE_PATH: path to sqlite file (default ./smarthika.db)
//	SMARTHIKA_POSTGRES_DSN: postgres DSN when driver=postgres
func StorageConfigFromEnv() StorageConfig {
	return StorageConfig{
		Driver:      os.Getenv("SMARTHIKA_STORAGE_DRIVER"),
		SQLitePath:  os.Getenv("SMARTHIKA_SQLITE_PATH"),
		PostgresDSN: os.Getenv("SMARTHIKA_POSTGRES_DSN"),
	}
}

// OpenPersistentStore selects a backend using environment variables.
func OpenPersistentStore(ctx context.Context) (PersistentStore, error) {
	return OpenStore(ctx, StorageConfigFromEnv())
}

// OpenStore opens the backend described by cfg. Defaults to sqlite.
func OpenStore(ctx context.Context, cfg StorageConfig) (PersistentStore, error) {
	driver := cfg.Driver
	if driver == "" {
		driver = string(StorageSQLite)
	}
	switch StorageDriver(driver) {
	case StorageMemory:
		return memory.NewStore(), nil
	case StorageSQLite:
		return sqlite.NewStore(cfg.SQLitePath)
	case StoragePostgres:
		return postgres.NewStore(ctx, cfg.PostgresDSN)
	default:
		return nil, fmt.Errorf("unknown storage driver %s", driver)
	}
}
