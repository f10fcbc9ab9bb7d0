// Package snapshot provides durable catalog persistence backends.
package snapshot

import (
	"fmt"

	"github.com/starford/sowilo/internal/catalog"
)

// Snapshot drivers.
const (
	DriverSQLite = "sqlite"
	DriverFile   = "file"
)

// Provider loads and stores the full catalog. Save must be atomic with
// respect to crashes: a failed write never corrupts the previous snapshot.
type Provider interface {
	// Load returns every persisted record. A missing snapshot is not an
	// error; it yields an empty catalog.
	Load() ([]catalog.Wallpaper, error)
	// Save rewrites the snapshot with the given records.
	Save(ws []catalog.Wallpaper) error
	// Close releases backend resources.
	Close() error
}

// New creates the provider named by driver.
func New(driver, path string) (Provider, error) {
	switch driver {
	case DriverSQLite:
		return OpenSQLite(path)
	case DriverFile:
		return NewFile(path), nil
	default:
		return nil, fmt.Errorf("snapshot: unknown driver %q", driver)
	}
}
