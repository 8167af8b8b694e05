// Package form runs the batch operations over the fields of one container
// and wires a page together: store set, fragment import, bindings and the
// initial prefill.
package form

import (
	"context"
	"errors"
	"sync"

	"github.com/go-kit/log"
	"github.com/go-kit/log/level"
	"github.com/sourcegraph/conc"
	"go.uber.org/multierr"

	"github.com/mesh-intelligence/formprefill/internal/binding"
	"github.com/mesh-intelligence/formprefill/internal/keys"
	"github.com/mesh-intelligence/formprefill/pkg/types"
)

// RemoveOptions modify RemoveAll.
type RemoveOptions struct {
	// KeepValues leaves the fields as they are instead of restoring the
	// values they had when bound.
	KeepValues bool
}

// Form holds the bindings of one container's fields.
type Form struct {
	container types.Container
	bindings  []*binding.Binding
	byField   map[types.Field]*binding.Binding
	logger    log.Logger
}

// New binds every eligible field of container.
func New(container types.Container, cfg types.Config, stores binding.Stores, adapter types.ValueAdapter, logger log.Logger) *Form {
	if logger == nil {
		logger = log.NewNopLogger()
	}
	resolver := keys.NewResolver(cfg)
	f := &Form{
		container: container,
		byField:   make(map[types.Field]*binding.Binding),
		logger:    logger,
	}
	for _, field := range container.Fields(cfg.Exclude, cfg.Include) {
		b := binding.New(field, stores, resolver, adapter, logger)
		f.bindings = append(f.bindings, b)
		f.byField[field] = b
	}
	if obs, ok := container.(types.Observer); ok {
		obs.Observe(types.EventChange, f.onChange)
	}
	return f
}

// Container returns the bound container.
func (f *Form) Container() types.Container { return f.container }

// Bindings returns the bindings in document order.
func (f *Form) Bindings() []*binding.Binding { return f.bindings }

// Binding returns the binding of field, or nil.
func (f *Form) Binding(field types.Field) *binding.Binding { return f.byField[field] }

// onChange writes fields the user (or a prefill) changed. Resets are not
// written back.
func (f *Form) onChange(target types.Field, detail any) {
	if target == nil || detail == types.OriginReset {
		return
	}
	f.HandleChange(context.Background(), target)
}

// HandleChange writes field. Failures are logged and dropped.
func (f *Form) HandleChange(ctx context.Context, field types.Field) {
	b := f.byField[field]
	if b == nil {
		return
	}
	if err := b.Write(ctx, binding.WriteOptions{}); err != nil {
		level.Debug(f.logger).Log("msg", "write on change failed", "keys", b.WriteKey(), "err", err)
	}
}

// ReadAll prefills every field. All lookups run concurrently and complete
// before any field is changed, so write-backs triggered by one prefill
// cannot leak into another field's lookup. Each field then receives
// EventPrefilled or EventPrefillFailed with the error as detail, in
// document order. The returned error combines the failures other than
// plain misses and ErrNoReadKeys, which only reach the field events. A
// miss that hides a backend failure is returned.
func (f *Form) ReadAll(ctx context.Context) error {
	type result struct {
		value any
		err   error
	}
	results := make([]result, len(f.bindings))

	var wg conc.WaitGroup
	for i, b := range f.bindings {
		wg.Go(func() {
			v, err := b.Lookup(ctx)
			results[i] = result{value: v, err: err}
		})
	}
	wg.Wait()

	var errs error
	for i, b := range f.bindings {
		err := results[i].err
		if err == nil {
			b.Apply(results[i].value)
			b.Field().Dispatch(types.EventPrefilled, nil)
			continue
		}
		b.Field().Dispatch(types.EventPrefillFailed, err)
		if errors.Is(err, types.ErrNoReadKeys) || missing(err) {
			continue
		}
		level.Warn(f.logger).Log("msg", "prefill failed", "keys", keys.SerializeList(b.Keys().Read), "err", err)
		errs = multierr.Append(errs, err)
	}
	return errs
}

// missing reports whether err is a lookup miss with no failed backend.
func missing(err error) bool {
	return errors.Is(err, types.ErrNotFound) && len(types.FailedBackends(err)) == 0
}

// WriteAll stores every field's value. Checkboxes and radios sharing write
// keys are written once per group.
func (f *Form) WriteAll(ctx context.Context) error {
	return f.each(Deduplicate(f.bindings), func(b *binding.Binding) error {
		return b.Write(ctx, binding.WriteOptions{})
	})
}

// RemoveAll deletes every field's entries, once per checkbox or radio
// group, then restores the bound values unless opts.KeepValues is set.
// EventCleared is dispatched on the container with the combined error as
// detail.
func (f *Form) RemoveAll(ctx context.Context, opts RemoveOptions) error {
	err := f.each(Deduplicate(f.bindings), func(b *binding.Binding) error {
		return b.Write(ctx, binding.WriteOptions{Delete: true})
	})
	if !opts.KeepValues {
		for _, b := range f.bindings {
			b.Reset()
		}
	}
	f.container.Dispatch(types.EventCleared, err)
	return err
}

// each runs fn for every binding concurrently and combines the failures.
// Fields without write keys are skipped silently.
func (f *Form) each(bindings []*binding.Binding, fn func(*binding.Binding) error) error {
	var (
		wg   conc.WaitGroup
		mu   sync.Mutex
		errs error
	)
	for _, b := range bindings {
		wg.Go(func() {
			err := fn(b)
			if errors.Is(err, types.ErrNoWriteKeys) {
				level.Debug(f.logger).Log("msg", "field has no write keys", "tag", b.Field().Tag())
				return
			}
			if err != nil {
				level.Warn(f.logger).Log("msg", "field operation failed", "keys", b.WriteKey(), "err", err)
				mu.Lock()
				errs = multierr.Append(errs, err)
				mu.Unlock()
			}
		})
	}
	wg.Wait()
	return errs
}

// Deduplicate keeps the first checkbox or radio of every write-key group
// and every other binding, in order.
func Deduplicate(bindings []*binding.Binding) []*binding.Binding {
	seen := make(map[string]bool)
	out := make([]*binding.Binding, 0, len(bindings))
	for _, b := range bindings {
		if b.Kind().Checkable() {
			key := b.WriteKey()
			if seen[key] {
				continue
			}
			seen[key] = true
		}
		out = append(out, b)
	}
	return out
}
