package state

import (
	"fmt"
	"path/filepath"

	"github.com/hugo-lorenzo-mato/fedbridge/internal/core"
)

// Backend names accepted by NewProgressStore.
const (
	BackendJSON   = "json"
	BackendSQLite = "sqlite"
)

// NewProgressStore creates a persistence backend rooted at dir.
func NewProgressStore(backend, dir string) (core.ProgressStore, error) {
	switch backend {
	case BackendJSON, "":
		return NewJSONStore(dir), nil
	case BackendSQLite:
		return NewSQLiteStore(filepath.Join(dir, "progress.db"))
	default:
		return nil, fmt.Errorf("unknown state backend %q", backend)
	}
}

// Closeable is an optional interface for stores that need cleanup.
type Closeable interface {
	Close() error
}

// CloseProgressStore safely closes a store if it implements Closeable.
func CloseProgressStore(ps core.ProgressStore) error {
	if closeable, ok := ps.(Closeable); ok {
		return closeable.Close()
	}
	return nil
}
