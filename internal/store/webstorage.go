package store

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/mesh-intelligence/formprefill/pkg/types"
)

// probeKey is written and removed again to test whether a storage handle
// accepts writes.
const probeKey = "modernizr"

// WebStorage is a Store over a session or local storage handle.
type WebStorage struct {
	storage types.Storage
	prefix  string
}

// NewWebStorage wraps storage; entries are namespaced with prefix.
func NewWebStorage(storage types.Storage, prefix string) *WebStorage {
	return &WebStorage{storage: storage, prefix: prefix}
}

// Supported reports whether the handle accepts a write and a removal.
// Private browsing modes and disabled storage fail here.
func (w *WebStorage) Supported() bool {
	if w.storage == nil {
		return false
	}
	if err := w.storage.SetItem(probeKey, probeKey); err != nil {
		return false
	}
	return w.storage.RemoveItem(probeKey) == nil
}

// SetItems stores the JSON encoding of value under every key.
func (w *WebStorage) SetItems(ctx context.Context, keys []string, value any) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	data, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("encode value: %w", err)
	}
	for _, key := range keys {
		if err := w.storage.SetItem(w.key(key), string(data)); err != nil {
			return fmt.Errorf("set %q: %w", key, err)
		}
	}
	return nil
}

// RemoveItems deletes every key.
func (w *WebStorage) RemoveItems(ctx context.Context, keys []string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	for _, key := range keys {
		if err := w.storage.RemoveItem(w.key(key)); err != nil {
			return fmt.Errorf("remove %q: %w", key, err)
		}
	}
	return nil
}

// GetFirst returns the decoded value of the first key present.
func (w *WebStorage) GetFirst(ctx context.Context, keys []string) (any, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	for _, key := range keys {
		raw, ok, err := w.storage.GetItem(w.key(key))
		if err != nil {
			return nil, fmt.Errorf("get %q: %w", key, err)
		}
		if !ok {
			continue
		}
		var v any
		if err := json.Unmarshal([]byte(raw), &v); err != nil {
			return nil, fmt.Errorf("decode %q: %w", key, err)
		}
		return v, nil
	}
	return nil, fmt.Errorf("%w in storage: %s", types.ErrNotFound, strings.Join(keys, ", "))
}

func (w *WebStorage) key(key string) string {
	return w.prefix + ":" + key
}

var _ types.Store = (*WebStorage)(nil)
