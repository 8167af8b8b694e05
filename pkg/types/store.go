package types

import "context"

// Store is a single persistence backend. Keys passed to a Store are already
// format-prefixed ("s:first_name"); the Store adds its own namespace.
type Store interface {
	// SetItems writes the JSON encoding of value under every key.
	SetItems(ctx context.Context, keys []string, value any) error

	// RemoveItems deletes the entries at keys. Absent keys are not an error.
	RemoveItems(ctx context.Context, keys []string) error

	// GetFirst scans keys in order and returns the JSON-decoded value of the
	// first key holding an entry. Returns ErrNotFound if none does.
	GetFirst(ctx context.Context, keys []string) (any, error)
}

// Storage is a synchronous key-value handle with web storage semantics
// (sessionStorage, localStorage). Any error from a method means the handle
// is unusable.
type Storage interface {
	// GetItem returns the raw stored string and whether it exists.
	GetItem(key string) (string, bool, error)
	SetItem(key, value string) error
	RemoveItem(key string) error
}

// CookieJar is a document.cookie style handle.
type CookieJar interface {
	// Cookie returns the visible cookies as "name=value; name2=value2".
	Cookie() (string, error)

	// SetCookie applies a single Set-Cookie line
	// ("name=value; expires=...; path=/; secure").
	SetCookie(line string) error
}

// Host hands out the storage handles of the environment. Obtaining a handle
// may fail (disabled storage, third-party partitioning); callers treat an
// error as "unsupported" and skip the backend.
type Host interface {
	SessionStorage() (Storage, error)
	LocalStorage() (Storage, error)
	Cookies() (CookieJar, error)
}

// StoreSpec configures one entry of a store set: either a backend name
// recognised by the set (see the Store* constants) or a literal Store.
// When Store is non-nil, Name is only used as a label in errors and logs.
type StoreSpec struct {
	Name  string
	Store Store
}

// Recognised backend names.
const (
	StoreSession = "sessionStorage"
	StoreLocal   = "localStorage"
	StoreCookie  = "cookie"
	StoreRedis   = "redis"
)
