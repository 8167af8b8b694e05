package store

import (
	"context"
	"errors"
	"fmt"
	"io"
	"slices"
	"strings"

	"github.com/go-kit/log"
	"github.com/go-kit/log/level"
	"github.com/sourcegraph/conc/pool"

	"github.com/mesh-intelligence/formprefill/internal/redisstore"
	"github.com/mesh-intelligence/formprefill/pkg/types"
)

// namedStore pairs a backend with the label used in errors and logs.
type namedStore struct {
	name  string
	store types.Store
}

// Set presents an ordered list of backends as one Store. The list is fixed
// at construction; a Set is safe for concurrent use.
type Set struct {
	stores       []namedStore
	stringPrefix string
	listPrefix   string
	closers      []io.Closer
	logger       log.Logger
}

// New creates a Set over literal stores. Specs without a Store are ignored.
func New(specs []types.StoreSpec, stringPrefix, listPrefix string, logger log.Logger) *Set {
	if logger == nil {
		logger = log.NewNopLogger()
	}
	s := &Set{stringPrefix: stringPrefix, listPrefix: listPrefix, logger: logger}
	for i, spec := range specs {
		if spec.Store == nil {
			continue
		}
		s.stores = append(s.stores, namedStore{name: label(spec, i), store: spec.Store})
	}
	return s
}

// FromConfig builds a Set from the backend names in cfg.Stores.
func FromConfig(ctx context.Context, cfg types.Config, host types.Host, logger log.Logger) (*Set, error) {
	specs := make([]types.StoreSpec, 0, len(cfg.Stores))
	for _, name := range cfg.Stores {
		specs = append(specs, types.StoreSpec{Name: name})
	}
	return FromSpecs(ctx, cfg, host, specs, logger)
}

// FromSpecs builds a Set from specs in order. Named backends are created
// from host (or, for redis, from cfg.Redis) and checked for support;
// unsupported ones are left out without error. Unknown names fail with
// ErrUnknownStore.
func FromSpecs(ctx context.Context, cfg types.Config, host types.Host, specs []types.StoreSpec, logger log.Logger) (*Set, error) {
	if logger == nil {
		logger = log.NewNopLogger()
	}
	s := &Set{
		stringPrefix: cfg.StringPrefix,
		listPrefix:   cfg.ListPrefix,
		logger:       logger,
	}
	for i, spec := range specs {
		if spec.Store != nil {
			s.stores = append(s.stores, namedStore{name: label(spec, i), store: spec.Store})
			continue
		}
		store, err := s.open(ctx, cfg, host, spec.Name)
		if err != nil {
			if errors.Is(err, types.ErrUnsupported) {
				level.Debug(logger).Log("msg", "store not supported, skipping", "store", spec.Name, "err", err)
				continue
			}
			s.Close()
			return nil, err
		}
		s.stores = append(s.stores, namedStore{name: spec.Name, store: store})
	}
	level.Debug(logger).Log("msg", "stores initialized", "stores", strings.Join(s.Names(), ","))
	return s, nil
}

// open creates and checks one named backend.
func (s *Set) open(ctx context.Context, cfg types.Config, host types.Host, name string) (types.Store, error) {
	switch name {
	case types.StoreSession, types.StoreLocal:
		if host == nil {
			return nil, types.ErrUnsupported
		}
		get := host.SessionStorage
		if name == types.StoreLocal {
			get = host.LocalStorage
		}
		storage, err := get()
		if err != nil {
			return nil, fmt.Errorf("%w: %v", types.ErrUnsupported, err)
		}
		ws := NewWebStorage(storage, cfg.Prefix)
		if !ws.Supported() {
			return nil, types.ErrUnsupported
		}
		return ws, nil
	case types.StoreCookie:
		if host == nil {
			return nil, types.ErrUnsupported
		}
		jar, err := host.Cookies()
		if err != nil {
			return nil, fmt.Errorf("%w: %v", types.ErrUnsupported, err)
		}
		return NewCookieStore(jar, cfg), nil
	case types.StoreRedis:
		rs := redisstore.New(cfg.Redis, cfg.Prefix, s.logger)
		if err := rs.Ping(ctx); err != nil {
			rs.Close()
			return nil, fmt.Errorf("%w: %v", types.ErrUnsupported, err)
		}
		s.closers = append(s.closers, rs)
		return rs, nil
	default:
		return nil, fmt.Errorf("%w: %q", types.ErrUnknownStore, name)
	}
}

// Names returns the labels of the backends in read-priority order.
func (s *Set) Names() []string {
	names := make([]string, len(s.stores))
	for i, ns := range s.stores {
		names[i] = ns.name
	}
	return names
}

// Len returns the number of backends.
func (s *Set) Len() int {
	return len(s.stores)
}

// Close releases backends the Set created itself.
func (s *Set) Close() error {
	var errs []error
	for _, c := range s.closers {
		errs = append(errs, c.Close())
	}
	s.closers = nil
	return errors.Join(errs...)
}

// SetItems writes value under keys in every backend concurrently. All
// backends run to completion; the failures are joined as *BackendError.
func (s *Set) SetItems(ctx context.Context, keys []string, value any) error {
	return s.fanOut("set", func(store types.Store) error {
		return store.SetItems(ctx, keys, value)
	})
}

// RemoveItems removes keys from every backend concurrently, with the same
// failure reporting as SetItems.
func (s *Set) RemoveItems(ctx context.Context, keys []string) error {
	return s.fanOut("remove", func(store types.Store) error {
		return store.RemoveItems(ctx, keys)
	})
}

func (s *Set) fanOut(op string, fn func(types.Store) error) error {
	p := pool.New().WithErrors()
	for _, ns := range s.stores {
		p.Go(func() error {
			if err := fn(ns.store); err != nil {
				level.Warn(s.logger).Log("msg", "store operation failed", "op", op, "store", ns.name, "err", err)
				return &types.BackendError{Backend: ns.name, Op: op, Err: err}
			}
			return nil
		})
	}
	return p.Wait()
}

// lookup is the outcome of one backend's GetFirst.
type lookup struct {
	name  string
	value any
	err   error
}

// GetFirst asks every backend concurrently and returns the first value any
// of them finds. The winner is whichever backend answers first, not the
// first in priority order. Slower backends are not cancelled; their results
// are discarded. Fails with ErrNotFound only after every backend failed.
func (s *Set) GetFirst(ctx context.Context, keys []string) (any, error) {
	notFound := fmt.Errorf("%w: %s", types.ErrNotFound, strings.Join(keys, ", "))
	if len(s.stores) == 0 {
		return nil, notFound
	}

	results := make(chan lookup, len(s.stores))
	for _, ns := range s.stores {
		go func() {
			v, err := ns.store.GetFirst(ctx, keys)
			results <- lookup{name: ns.name, value: v, err: err}
		}()
	}

	errs := []error{notFound}
	for range s.stores {
		select {
		case r := <-results:
			if r.err == nil {
				return r.value, nil
			}
			if !errors.Is(r.err, types.ErrNotFound) {
				errs = append(errs, &types.BackendError{Backend: r.name, Op: "get", Err: r.err})
			}
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	return nil, errors.Join(errs...)
}

// Prefix applies the list or string format tag to every key.
func (s *Set) Prefix(keys []string, list bool) []string {
	tag := s.stringPrefix
	if list {
		tag = s.listPrefix
	}
	out := make([]string, len(keys))
	for i, key := range keys {
		out[i] = tag + ":" + key
	}
	return out
}

// SetValuesMap stores, for every key, its last value in string format and
// the whole sequence in list format. Keys with no values are skipped.
func (s *Set) SetValuesMap(ctx context.Context, values map[string][]string) error {
	keys := make([]string, 0, len(values))
	for key := range values {
		keys = append(keys, key)
	}
	slices.Sort(keys)

	p := pool.New().WithErrors()
	for _, key := range keys {
		vals := values[key]
		if len(vals) == 0 {
			continue
		}
		p.Go(func() error {
			return s.SetItems(ctx, s.Prefix([]string{key}, false), vals[len(vals)-1])
		})
		p.Go(func() error {
			return s.SetItems(ctx, s.Prefix([]string{key}, true), vals)
		})
	}
	return p.Wait()
}

// label names a spec for errors and logs.
func label(spec types.StoreSpec, i int) string {
	if spec.Name != "" {
		return spec.Name
	}
	return fmt.Sprintf("store%d", i)
}

var _ types.Store = (*Set)(nil)
