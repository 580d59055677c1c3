package state

import (
	"path/filepath"

	"github.com/TheMichaelB/myba/internal/events"
)

// Open opens the commit-index cache for a plain repo rooted at
// plainRepoDir, preferring SQLite and falling back to the JSON backend
// if the SQLite driver's cgo dependency isn't usable in this build.
func Open(plainRepoDir string, logger *events.Logger) (Store, error) {
	dbPath := filepath.Join(plainRepoDir, "commit-index.db")
	if store, err := NewSQLiteStore(dbPath, logger); err == nil {
		return store, nil
	}

	jsonPath := filepath.Join(plainRepoDir, "commit-index.json")
	return NewJSONStore(jsonPath, logger)
}
