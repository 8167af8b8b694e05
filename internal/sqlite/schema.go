// Package sqlite implements the durable formprefill host on SQLite.
// This file holds the schema.
package sqlite

// Schema DDL. Statements are idempotent; an existing database is reused.
const (
	createEntries = `CREATE TABLE IF NOT EXISTS entries (
    scope TEXT NOT NULL,
    key TEXT NOT NULL,
    value TEXT NOT NULL,
    updated_at TEXT NOT NULL,
    PRIMARY KEY (scope, key)
);`

	createCookies = `CREATE TABLE IF NOT EXISTS cookies (
    name TEXT PRIMARY KEY,
    value TEXT NOT NULL,
    expires_at INTEGER
);`

	createEntriesScopeIndex = `CREATE INDEX IF NOT EXISTS idx_entries_scope ON entries(scope);`
)

// schemaSQL is the full schema executed on Attach.
var schemaSQL = createEntries + "\n" + createCookies + "\n" + createEntriesScopeIndex
