package store

import (
	"net/http"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/mesh-intelligence/formprefill/pkg/types"
)

// MemoryStorage implements types.Storage in memory.
// Uses sync.RWMutex for thread-safe concurrent access.
type MemoryStorage struct {
	mu   sync.RWMutex
	data map[string]string
}

// NewMemoryStorage creates an empty in-memory storage handle.
func NewMemoryStorage() *MemoryStorage {
	return &MemoryStorage{data: make(map[string]string)}
}

// GetItem returns the stored string for key.
func (m *MemoryStorage) GetItem(key string) (string, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	v, ok := m.data[key]
	return v, ok, nil
}

// SetItem stores value under key, replacing any previous value.
func (m *MemoryStorage) SetItem(key, value string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.data[key] = value
	return nil
}

// RemoveItem deletes key. No error if key doesn't exist.
func (m *MemoryStorage) RemoveItem(key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	delete(m.data, key)
	return nil
}

// Keys returns the stored keys in sorted order.
func (m *MemoryStorage) Keys() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()

	keys := make([]string, 0, len(m.data))
	for k := range m.data {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	return keys
}

// memoryCookie is one cookie held by a MemoryCookieJar.
type memoryCookie struct {
	value   string
	expires time.Time // zero for session cookies
}

// MemoryCookieJar implements types.CookieJar with document.cookie semantics:
// SetCookie takes one Set-Cookie line, an expiry in the past deletes the
// cookie, and Cookie lists the live cookies in insertion order.
type MemoryCookieJar struct {
	mu      sync.Mutex
	order   []string
	cookies map[string]memoryCookie
	now     func() time.Time
}

// NewMemoryCookieJar creates an empty cookie jar.
func NewMemoryCookieJar() *MemoryCookieJar {
	return &MemoryCookieJar{
		cookies: make(map[string]memoryCookie),
		now:     time.Now,
	}
}

// Cookie returns "name=value" pairs for all live cookies.
func (j *MemoryCookieJar) Cookie() (string, error) {
	j.mu.Lock()
	defer j.mu.Unlock()

	now := j.now()
	pairs := make([]string, 0, len(j.order))
	for _, name := range j.order {
		c := j.cookies[name]
		if !c.expires.IsZero() && !c.expires.After(now) {
			continue
		}
		pairs = append(pairs, name+"="+c.value)
	}
	return strings.Join(pairs, "; "), nil
}

// SetCookie applies a Set-Cookie line.
func (j *MemoryCookieJar) SetCookie(line string) error {
	c, err := http.ParseSetCookie(line)
	if err != nil {
		return err
	}

	j.mu.Lock()
	defer j.mu.Unlock()

	expires := c.Expires
	if c.MaxAge > 0 {
		expires = j.now().Add(time.Duration(c.MaxAge) * time.Second)
	}
	if c.MaxAge < 0 || (!expires.IsZero() && !expires.After(j.now())) {
		j.remove(c.Name)
		return nil
	}
	if _, ok := j.cookies[c.Name]; !ok {
		j.order = append(j.order, c.Name)
	}
	j.cookies[c.Name] = memoryCookie{value: c.Value, expires: expires}
	return nil
}

// remove deletes a cookie. The caller must hold j.mu.
func (j *MemoryCookieJar) remove(name string) {
	if _, ok := j.cookies[name]; !ok {
		return
	}
	delete(j.cookies, name)
	j.order = slices.DeleteFunc(j.order, func(n string) bool { return n == name })
}

var (
	_ types.Storage   = (*MemoryStorage)(nil)
	_ types.CookieJar = (*MemoryCookieJar)(nil)
)

// MemoryHost implements types.Host over in-memory handles. A nil handle is
// reported as unsupported.
type MemoryHost struct {
	Session *MemoryStorage
	Local   *MemoryStorage
	Jar     *MemoryCookieJar
}

// NewMemoryHost creates a host with all three handles available.
func NewMemoryHost() *MemoryHost {
	return &MemoryHost{
		Session: NewMemoryStorage(),
		Local:   NewMemoryStorage(),
		Jar:     NewMemoryCookieJar(),
	}
}

func (h *MemoryHost) SessionStorage() (types.Storage, error) {
	if h.Session == nil {
		return nil, types.ErrUnsupported
	}
	return h.Session, nil
}

func (h *MemoryHost) LocalStorage() (types.Storage, error) {
	if h.Local == nil {
		return nil, types.ErrUnsupported
	}
	return h.Local, nil
}

func (h *MemoryHost) Cookies() (types.CookieJar, error) {
	if h.Jar == nil {
		return nil, types.ErrUnsupported
	}
	return h.Jar, nil
}
