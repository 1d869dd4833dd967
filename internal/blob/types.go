// Package blob re-exports the blob storage contract and opens the configured
// backend. Country map assets and submission archives are stored through it.
package blob

import (
	"fmt"
	"path"
	"strings"

	"smarthika/internal/blob/core"
)

type (
	// Driver identifies a blob backend driver.
	Driver = core.Driver
	// PutOptions configures a blob write.
	PutOptions = core.PutOptions
	// SignedURLOptions configures URL pre-signing.
	SignedURLOptions = core.SignedURLOptions
	// Info describes stored blob metadata.
	Info = core.Info
	// Store is the interface for blob storage backends.
	Store = core.Store
)

const (
	DriverFilesystem = core.DriverFilesystem
	DriverS3         = core.DriverS3
	DriverMemory     = core.DriverMemory
)

var (
	ErrUnsupported = core.ErrUnsupported
	ErrNotFound    = core.ErrNotFound
	ErrExists      = core.ErrExists
)

// Key prefixes.
const (
	MapsPrefix        = "maps/"
	SubmissionsPrefix = "submissions/"
)

// MapKey returns the key of a country's boundary asset, e.g. maps/india.topo.json.
func MapKey(country string) string {
	return MapsPrefix + strings.ToLower(strings.TrimSpace(country)) + ".topo.json"
}

// ArchiveKey returns the key of one archived submission artifact.
func ArchiveKey(sessionID, archiveID, ext string) string {
	return path.Join(SubmissionsPrefix, sessionID, fmt.Sprintf("%s.%s", archiveID, strings.TrimPrefix(ext, ".")))
}

// ArchivePrefix returns the key prefix holding every archive of a session.
func ArchivePrefix(sessionID string) string {
	return path.Join(SubmissionsPrefix, sessionID) + "/"
}
