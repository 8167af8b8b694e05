package sqlite

import (
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/mesh-intelligence/formprefill/pkg/types"
)

// Storage is a web storage handle over one scope of the entries table.
type Storage struct {
	backend *Backend
	scope   string
}

// Scope returns the scope the handle reads and writes.
func (s *Storage) Scope() string {
	return s.scope
}

// GetItem returns the value stored under key in the handle's scope.
func (s *Storage) GetItem(key string) (string, bool, error) {
	s.backend.mu.RLock()
	defer s.backend.mu.RUnlock()

	db, err := s.backend.conn()
	if err != nil {
		return "", false, err
	}
	var value string
	err = db.QueryRow(`SELECT value FROM entries WHERE scope = ? AND key = ?`, s.scope, key).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("get %s: %w", key, err)
	}
	return value, true, nil
}

// SetItem stores value under key, replacing any previous value.
func (s *Storage) SetItem(key, value string) error {
	s.backend.mu.RLock()
	defer s.backend.mu.RUnlock()

	db, err := s.backend.conn()
	if err != nil {
		return err
	}
	return upsertEntry(db, Entry{Scope: s.scope, Key: key, Value: value, UpdatedAt: s.backend.now()})
}

// RemoveItem deletes key. No error if key doesn't exist.
func (s *Storage) RemoveItem(key string) error {
	s.backend.mu.RLock()
	defer s.backend.mu.RUnlock()

	db, err := s.backend.conn()
	if err != nil {
		return err
	}
	if _, err := db.Exec(`DELETE FROM entries WHERE scope = ? AND key = ?`, s.scope, key); err != nil {
		return fmt.Errorf("remove %s: %w", key, err)
	}
	return nil
}

// Entry is one stored item.
type Entry struct {
	Scope     string    `json:"scope"`
	Key       string    `json:"key"`
	Value     string    `json:"value"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Entries returns the entries of the given scopes (all scopes when none is
// given), ordered by scope and key.
func (b *Backend) Entries(scopes ...string) ([]Entry, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	db, err := b.conn()
	if err != nil {
		return nil, err
	}
	query := `SELECT scope, key, value, updated_at FROM entries`
	args := make([]any, len(scopes))
	if len(scopes) > 0 {
		query += ` WHERE scope IN (?` + strings.Repeat(`, ?`, len(scopes)-1) + `)`
		for i, s := range scopes {
			args[i] = s
		}
	}
	query += ` ORDER BY scope, key`

	rows, err := db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("listing entries: %w", err)
	}
	defer rows.Close()

	var out []Entry
	for rows.Next() {
		var e Entry
		var updated string
		if err := rows.Scan(&e.Scope, &e.Key, &e.Value, &updated); err != nil {
			return nil, fmt.Errorf("scanning entry: %w", err)
		}
		e.UpdatedAt, _ = time.Parse(time.RFC3339Nano, updated)
		out = append(out, e)
	}
	return out, rows.Err()
}

// VisibleScopes returns the scopes a page sees: local and the current
// session.
func (b *Backend) VisibleScopes() []string {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return []string{ScopeLocal, b.sessionScope()}
}

func upsertEntry(db *sql.DB, e Entry) error {
	_, err := db.Exec(`INSERT INTO entries (scope, key, value, updated_at) VALUES (?, ?, ?, ?)
ON CONFLICT(scope, key) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at`,
		e.Scope, e.Key, e.Value, e.UpdatedAt.UTC().Format(time.RFC3339Nano))
	if err != nil {
		return fmt.Errorf("set %s: %w", e.Key, err)
	}
	return nil
}

var _ types.Storage = (*Storage)(nil)
