// Package sqlite implements the durable formprefill host on SQLite: the
// local and session storage handles and the cookie jar of a command line
// "browser", persisted in one database file under the data directory.
package sqlite

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"github.com/mesh-intelligence/formprefill/pkg/types"
)

// DatabaseFile is the file name of the database inside the data directory.
const DatabaseFile = "formprefill.db"

// Scope names. Session scopes are "session:<id>".
const (
	ScopeLocal         = "local"
	sessionScopePrefix = "session:"
)

// Backend implements types.Host with SQLite as the store of every handle.
type Backend struct {
	mu       sync.RWMutex
	attached bool
	db       *sql.DB
	dataDir  string

	// session is the scope id of the session handle. Ephemeral sessions
	// are generated on Attach and their entries dropped on Detach.
	session   string
	ephemeral bool

	now func() time.Time
}

// NewBackend creates a new SQLite backend instance.
// The backend is not attached; call Attach with a Config to initialize.
func NewBackend() *Backend {
	return &Backend{now: time.Now}
}

// Attach opens (or creates) the database in config.DataDir. Returns
// ErrAlreadyAttached if already attached.
func (b *Backend) Attach(config types.Config) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.attached {
		return types.ErrAlreadyAttached
	}

	dataDir := config.DataDir
	if dataDir == "" {
		dataDir = "."
	}
	if err := os.MkdirAll(dataDir, 0o755); err != nil {
		return fmt.Errorf("creating data dir: %w", err)
	}

	db, err := sql.Open("sqlite", filepath.Join(dataDir, DatabaseFile))
	if err != nil {
		return err
	}
	// One connection serializes writers; SQLite locks the file anyway.
	db.SetMaxOpenConns(1)

	if _, err := db.Exec(schemaSQL); err != nil {
		db.Close()
		return fmt.Errorf("creating schema: %w", err)
	}

	b.session = config.SessionID
	b.ephemeral = b.session == ""
	if b.ephemeral {
		b.session = generateUUID()
	}
	b.db = db
	b.dataDir = dataDir
	b.attached = true
	return nil
}

// Detach closes the database. Entries of an ephemeral session are deleted
// first. Detach is idempotent.
func (b *Backend) Detach() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if !b.attached {
		return nil
	}
	var dropErr error
	if b.ephemeral {
		_, dropErr = b.db.Exec(`DELETE FROM entries WHERE scope = ?`, b.sessionScope())
	}
	if err := b.db.Close(); err != nil {
		return err
	}
	b.db = nil
	b.attached = false
	if dropErr != nil {
		return fmt.Errorf("dropping session %s: %w", b.session, dropErr)
	}
	return nil
}

// SessionID returns the id of the current session scope.
func (b *Backend) SessionID() string {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.session
}

// DataDir returns the directory holding the database.
func (b *Backend) DataDir() string {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.dataDir
}

// SessionStorage returns the handle of the current session scope.
func (b *Backend) SessionStorage() (types.Storage, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	if !b.attached {
		return nil, types.ErrHostDetached
	}
	return &Storage{backend: b, scope: b.sessionScope()}, nil
}

// LocalStorage returns the durable handle shared by all sessions.
func (b *Backend) LocalStorage() (types.Storage, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	if !b.attached {
		return nil, types.ErrHostDetached
	}
	return &Storage{backend: b, scope: ScopeLocal}, nil
}

// Cookies returns the cookie jar.
func (b *Backend) Cookies() (types.CookieJar, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	if !b.attached {
		return nil, types.ErrHostDetached
	}
	return &CookieJar{backend: b}, nil
}

// sessionScope returns the scope name of the current session. The caller
// must hold b.mu.
func (b *Backend) sessionScope() string {
	return sessionScopePrefix + b.session
}

// conn returns the open database. The caller must hold b.mu.
func (b *Backend) conn() (*sql.DB, error) {
	if !b.attached {
		return nil, types.ErrHostDetached
	}
	return b.db, nil
}

// generateUUID generates a new UUID v7 for session ids.
func generateUUID() string {
	id, err := uuid.NewV7()
	if err != nil {
		// Fallback to UUID v4 if v7 generation fails
		return uuid.New().String()
	}
	return id.String()
}

var _ types.Host = (*Backend)(nil)
