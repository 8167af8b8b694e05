// Package sqlite provides the public API for the SQLite host, which keeps
// session storage, local storage and cookies in one database file.
package sqlite

import (
	"github.com/mesh-intelligence/formprefill/internal/sqlite"
)

// Backend is the SQLite host. It implements types.Host once attached.
type Backend = sqlite.Backend

// NewBackend creates a new SQLite host.
// The backend is not attached; call Attach with a Config to initialize.
//
// Example:
//
//	backend := sqlite.NewBackend()
//	err := backend.Attach(types.Config{DataDir: ".formprefill"})
//	defer backend.Detach()
func NewBackend() *Backend {
	return sqlite.NewBackend()
}
