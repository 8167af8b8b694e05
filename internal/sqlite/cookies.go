package sqlite

import (
	"database/sql"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/mesh-intelligence/formprefill/pkg/types"
)

// CookieJar implements types.CookieJar over the cookies table. Domain,
// path and secure attributes are accepted and ignored: the command line
// host has a single origin.
type CookieJar struct {
	backend *Backend
}

// Cookie returns "name=value" pairs of the live cookies in the order they
// were first set.
func (j *CookieJar) Cookie() (string, error) {
	j.backend.mu.RLock()
	defer j.backend.mu.RUnlock()

	db, err := j.backend.conn()
	if err != nil {
		return "", err
	}
	rows, err := db.Query(`SELECT name, value FROM cookies
WHERE expires_at IS NULL OR expires_at > ? ORDER BY rowid`, j.backend.now().Unix())
	if err != nil {
		return "", fmt.Errorf("reading cookies: %w", err)
	}
	defer rows.Close()

	var pairs []string
	for rows.Next() {
		var name, value string
		if err := rows.Scan(&name, &value); err != nil {
			return "", fmt.Errorf("scanning cookie: %w", err)
		}
		pairs = append(pairs, name+"="+value)
	}
	return strings.Join(pairs, "; "), rows.Err()
}

// SetCookie applies a Set-Cookie line. An expiry in the past deletes the
// cookie.
func (j *CookieJar) SetCookie(line string) error {
	c, err := http.ParseSetCookie(line)
	if err != nil {
		return err
	}

	j.backend.mu.RLock()
	defer j.backend.mu.RUnlock()

	db, err := j.backend.conn()
	if err != nil {
		return err
	}
	now := j.backend.now()
	expires := c.Expires
	if c.MaxAge > 0 {
		expires = now.Add(time.Duration(c.MaxAge) * time.Second)
	}
	if c.MaxAge < 0 || (!expires.IsZero() && !expires.After(now)) {
		_, err := db.Exec(`DELETE FROM cookies WHERE name = ?`, c.Name)
		return err
	}

	var expiresAt sql.NullInt64
	if !expires.IsZero() {
		expiresAt = sql.NullInt64{Int64: expires.Unix(), Valid: true}
	}
	_, err = db.Exec(`INSERT INTO cookies (name, value, expires_at) VALUES (?, ?, ?)
ON CONFLICT(name) DO UPDATE SET value = excluded.value, expires_at = excluded.expires_at`,
		c.Name, c.Value, expiresAt)
	if err != nil {
		return fmt.Errorf("set cookie %s: %w", c.Name, err)
	}
	return nil
}

var _ types.CookieJar = (*CookieJar)(nil)
