package store

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/mesh-intelligence/formprefill/pkg/types"
)

// fakeStore is a scriptable backend.
type fakeStore struct {
	mu     sync.Mutex
	values map[string]any
	delay  time.Duration
	err    error
	sets   atomic.Int32
	done   chan struct{} // closed after the first GetFirst returns, if set
}

func newFakeStore() *fakeStore {
	return &fakeStore{values: make(map[string]any)}
}

func (f *fakeStore) SetItems(ctx context.Context, keys []string, value any) error {
	f.sets.Add(1)
	time.Sleep(f.delay)
	if f.err != nil {
		return f.err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, k := range keys {
		f.values[k] = value
	}
	return nil
}

func (f *fakeStore) RemoveItems(ctx context.Context, keys []string) error {
	if f.err != nil {
		return f.err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, k := range keys {
		delete(f.values, k)
	}
	return nil
}

func (f *fakeStore) GetFirst(ctx context.Context, keys []string) (any, error) {
	if f.done != nil {
		defer close(f.done)
	}
	time.Sleep(f.delay)
	if f.err != nil {
		return nil, f.err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, k := range keys {
		if v, ok := f.values[k]; ok {
			return v, nil
		}
	}
	return nil, types.ErrNotFound
}

func (f *fakeStore) get(key string) (any, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	v, ok := f.values[key]
	return v, ok
}

func specs(stores ...*fakeStore) []types.StoreSpec {
	out := make([]types.StoreSpec, len(stores))
	for i, s := range stores {
		out[i] = types.StoreSpec{Name: string(rune('A' + i)), Store: s}
	}
	return out
}

func TestSet_GetFirst(t *testing.T) {
	ctx := context.Background()

	t.Run("only the second backend holds the value", func(t *testing.T) {
		a, b := newFakeStore(), newFakeStore()
		b.values["s:x"] = "from B"
		set := New(specs(a, b), "s", "l", nil)

		v, err := set.GetFirst(ctx, []string{"s:x"})
		require.NoError(t, err)
		assert.Equal(t, "from B", v)
	})

	t.Run("the earliest answer wins, not the first backend", func(t *testing.T) {
		slow, fast := newFakeStore(), newFakeStore()
		slow.delay = 100 * time.Millisecond
		slow.values["s:x"] = "slow"
		fast.values["s:x"] = "fast"
		set := New(specs(slow, fast), "s", "l", nil)

		v, err := set.GetFirst(ctx, []string{"s:x"})
		require.NoError(t, err)
		assert.Equal(t, "fast", v)
	})

	t.Run("not found only after every backend failed", func(t *testing.T) {
		a, b := newFakeStore(), newFakeStore()
		b.delay = 30 * time.Millisecond
		set := New(specs(a, b), "s", "l", nil)

		start := time.Now()
		_, err := set.GetFirst(ctx, []string{"s:x"})
		assert.ErrorIs(t, err, types.ErrNotFound)
		assert.GreaterOrEqual(t, time.Since(start), b.delay)
		assert.Empty(t, types.FailedBackends(err))
	})

	t.Run("backend errors are reported with not found", func(t *testing.T) {
		a, b := newFakeStore(), newFakeStore()
		a.err = errors.New("quota exceeded")
		set := New(specs(a, b), "s", "l", nil)

		_, err := set.GetFirst(ctx, []string{"s:x"})
		assert.ErrorIs(t, err, types.ErrNotFound)
		assert.Equal(t, []string{"A"}, types.FailedBackends(err))
	})

	t.Run("a failing backend does not hide another's value", func(t *testing.T) {
		a, b := newFakeStore(), newFakeStore()
		a.err = errors.New("boom")
		b.values["s:x"] = 42.0
		set := New(specs(a, b), "s", "l", nil)

		v, err := set.GetFirst(ctx, []string{"s:x"})
		require.NoError(t, err)
		assert.Equal(t, 42.0, v)
	})

	t.Run("empty set", func(t *testing.T) {
		_, err := New(nil, "s", "l", nil).GetFirst(ctx, []string{"s:x"})
		assert.ErrorIs(t, err, types.ErrNotFound)
	})

	t.Run("context ends the wait", func(t *testing.T) {
		slow := newFakeStore()
		slow.delay = 200 * time.Millisecond
		set := New(specs(slow), "s", "l", nil)

		cctx, cancel := context.WithTimeout(ctx, 10*time.Millisecond)
		defer cancel()
		_, err := set.GetFirst(cctx, []string{"s:x"})
		assert.ErrorIs(t, err, context.DeadlineExceeded)
	})
}

func TestSet_GetFirstStragglersFinish(t *testing.T) {
	defer goleak.VerifyNone(t, goleak.IgnoreCurrent())

	slow, fast := newFakeStore(), newFakeStore()
	slow.delay = 50 * time.Millisecond
	slow.done = make(chan struct{})
	fast.values["s:x"] = "fast"
	set := New(specs(slow, fast), "s", "l", nil)

	v, err := set.GetFirst(context.Background(), []string{"s:x"})
	require.NoError(t, err)
	assert.Equal(t, "fast", v)

	// The straggler runs to completion; its result is dropped into the
	// buffered channel and its goroutine exits.
	<-slow.done
}

func TestSet_FanOut(t *testing.T) {
	ctx := context.Background()

	t.Run("writes reach every backend", func(t *testing.T) {
		a, b := newFakeStore(), newFakeStore()
		set := New(specs(a, b), "s", "l", nil)

		require.NoError(t, set.SetItems(ctx, []string{"s:x", "s:y"}, "v"))
		for _, s := range []*fakeStore{a, b} {
			v, ok := s.get("s:y")
			assert.True(t, ok)
			assert.Equal(t, "v", v)
		}

		require.NoError(t, set.RemoveItems(ctx, []string{"s:x"}))
		_, ok := b.get("s:x")
		assert.False(t, ok)
	})

	t.Run("failures are aggregated and the others still complete", func(t *testing.T) {
		a, b, c := newFakeStore(), newFakeStore(), newFakeStore()
		a.err = errors.New("disk full")
		c.err = errors.New("offline")
		b.delay = 20 * time.Millisecond
		set := New(specs(a, b, c), "s", "l", nil)

		err := set.SetItems(ctx, []string{"s:x"}, "v")
		require.Error(t, err)
		assert.ElementsMatch(t, []string{"A", "C"}, types.FailedBackends(err))

		var be *types.BackendError
		require.ErrorAs(t, err, &be)
		assert.Equal(t, "set", be.Op)

		v, ok := b.get("s:x")
		assert.True(t, ok, "healthy backend keeps the write")
		assert.Equal(t, "v", v)
	})

	t.Run("writes are issued concurrently", func(t *testing.T) {
		stores := []*fakeStore{newFakeStore(), newFakeStore(), newFakeStore()}
		for _, s := range stores {
			s.delay = 50 * time.Millisecond
		}
		set := New(specs(stores...), "s", "l", nil)

		start := time.Now()
		require.NoError(t, set.SetItems(ctx, []string{"s:x"}, "v"))
		assert.Less(t, time.Since(start), 140*time.Millisecond)
	})
}

func TestSet_Prefix(t *testing.T) {
	set := New(nil, "s", "l", nil)
	assert.Equal(t, []string{"s:a", "s:b"}, set.Prefix([]string{"a", "b"}, false))
	assert.Equal(t, []string{"l:a"}, set.Prefix([]string{"a"}, true))
	assert.Empty(t, set.Prefix(nil, true))
}

func TestSet_SetValuesMap(t *testing.T) {
	a := newFakeStore()
	set := New(specs(a), "s", "l", nil)

	err := set.SetValuesMap(context.Background(), map[string][]string{
		"test":  {"testval", "testval2"},
		"empty": {},
	})
	require.NoError(t, err)

	v, _ := a.get("s:test")
	assert.Equal(t, "testval2", v)
	v, _ = a.get("l:test")
	assert.Equal(t, []string{"testval", "testval2"}, v)

	_, ok := a.get("s:empty")
	assert.False(t, ok)
	assert.Equal(t, int32(2), a.sets.Load())
}

func TestFromConfig(t *testing.T) {
	ctx := context.Background()

	t.Run("named backends in order", func(t *testing.T) {
		cfg := types.DefaultConfig()
		cfg.Stores = []string{types.StoreCookie, types.StoreLocal, types.StoreSession}
		set, err := FromConfig(ctx, cfg, NewMemoryHost(), nil)
		require.NoError(t, err)
		assert.Equal(t, cfg.Stores, set.Names())
	})

	t.Run("unsupported backends are left out", func(t *testing.T) {
		host := NewMemoryHost()
		host.Local = nil
		cfg := types.DefaultConfig()
		cfg.Stores = []string{types.StoreSession, types.StoreLocal}

		set, err := FromConfig(ctx, cfg, host, nil)
		require.NoError(t, err)
		assert.Equal(t, []string{types.StoreSession}, set.Names())
	})

	t.Run("no host means nothing is supported", func(t *testing.T) {
		set, err := FromConfig(ctx, types.DefaultConfig(), nil, nil)
		require.NoError(t, err)
		assert.Zero(t, set.Len())
	})

	t.Run("unknown name", func(t *testing.T) {
		cfg := types.DefaultConfig()
		cfg.Stores = []string{"indexedDB"}
		_, err := FromConfig(ctx, cfg, NewMemoryHost(), nil)
		assert.ErrorIs(t, err, types.ErrUnknownStore)
	})

	t.Run("literal stores mix with named ones", func(t *testing.T) {
		custom := newFakeStore()
		set, err := FromSpecs(ctx, types.DefaultConfig(), NewMemoryHost(), []types.StoreSpec{
			{Name: "custom", Store: custom},
			{Name: types.StoreSession},
		}, nil)
		require.NoError(t, err)
		assert.Equal(t, []string{"custom", types.StoreSession}, set.Names())

		require.NoError(t, set.SetItems(ctx, []string{"s:k"}, "v"))
		_, ok := custom.get("s:k")
		assert.True(t, ok)
	})
}

func TestFromConfig_Redis(t *testing.T) {
	mr := miniredis.RunT(t)
	ctx := context.Background()

	cfg := types.DefaultConfig()
	cfg.Stores = []string{types.StoreSession, types.StoreRedis}
	cfg.Redis.Addr = mr.Addr()

	set, err := FromConfig(ctx, cfg, NewMemoryHost(), nil)
	require.NoError(t, err)
	defer set.Close()
	assert.Equal(t, []string{types.StoreSession, types.StoreRedis}, set.Names())

	require.NoError(t, set.SetItems(ctx, set.Prefix([]string{"city"}, false), "Graz"))
	raw, err := mr.Get("formPrefill:s:city")
	require.NoError(t, err)
	assert.Equal(t, `"Graz"`, raw)

	t.Run("unreachable redis is skipped", func(t *testing.T) {
		down := miniredis.RunT(t)
		addr := down.Addr()
		down.Close()

		cfg.Redis.Addr = addr
		set, err := FromConfig(ctx, cfg, NewMemoryHost(), nil)
		require.NoError(t, err)
		defer set.Close()
		assert.Equal(t, []string{types.StoreSession}, set.Names())
	})
}
