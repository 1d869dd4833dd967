package blob

import (
	"context"
	"fmt"

	"smarthika/internal/infra/blob/fs"
	memorystore "smarthika/internal/infra/blob/memory"
	infraS3 "smarthika/internal/infra/blob/s3"
)

// S3Config re-exports the S3 backend configuration.
type S3Config = infraS3.Config

// Config selects and configures a backend.
type Config struct {
	Driver  string `env:"SMARTHIKA_BLOB_DRIVER,default=fs"`
	FSRoot  string `env:"SMARTHIKA_BLOB_FS_ROOT,default=./blobdata"`
	BaseURL string `env:"SMARTHIKA_BLOB_BASE_URL"`
	S3      S3Config
}

// Open constructs the Store described by cfg. An empty driver selects fs.
func Open(ctx context.Context, cfg Config) (Store, error) {
	driver := Driver(cfg.Driver)
	if driver == "" {
		driver = DriverFilesystem
	}
	switch driver {
	case DriverFilesystem:
		return fs.New(cfg.FSRoot, cfg.BaseURL)
	case DriverS3:
		return infraS3.New(ctx, cfg.S3)
	case DriverMemory:
		return memorystore.New(), nil
	default:
		return nil, fmt.Errorf("unknown blob driver %s", cfg.Driver)
	}
}

// NewMemory returns an in-memory Store.
func NewMemory() Store { return memorystore.New() }

// NewMockS3ForTests exposes the fake-transport S3 store for cross-package tests.
func NewMockS3ForTests() Store { return infraS3.NewMockForTests() }
