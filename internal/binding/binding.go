// Package binding connects one field to a store set: it resolves the
// field's keys once, then reads stored values into the field and writes the
// field's value back.
package binding

import (
	"context"
	"fmt"

	"github.com/go-kit/log"
	"github.com/go-kit/log/level"

	"github.com/mesh-intelligence/formprefill/internal/keys"
	"github.com/mesh-intelligence/formprefill/pkg/types"
)

// Stores is the part of a store set a binding uses.
type Stores interface {
	types.Store
	Prefix(keys []string, list bool) []string
}

// WriteOptions modify Write.
type WriteOptions struct {
	// Delete removes the field's entries instead of storing its value.
	Delete bool
}

// Binding is the controller of a single field. Its operations are
// independent of each other and safe to call concurrently.
type Binding struct {
	field   types.Field
	stores  Stores
	adapter types.ValueAdapter
	logger  log.Logger

	kind    types.Kind
	list    bool
	keys    keys.Descriptor
	initial any
}

// New binds f. The initial value (checked state for checkboxes and radios)
// is captured before the resolved keys are written onto f's attributes.
func New(f types.Field, stores Stores, resolver *keys.Resolver, adapter types.ValueAdapter, logger log.Logger) *Binding {
	if logger == nil {
		logger = log.NewNopLogger()
	}
	kind := types.KindOf(f)
	b := &Binding{
		field:   f,
		stores:  stores,
		adapter: adapter,
		logger:  logger,
		kind:    kind,
		list:    kind.IsList() || f.HasClass(types.ClassListField),
	}
	if kind.Checkable() {
		b.initial = f.Checked()
	} else {
		b.initial = adapter.Get(f, kind)
	}
	b.keys = resolver.Resolve(f)
	return b
}

// Field returns the bound field.
func (b *Binding) Field() types.Field { return b.field }

// Kind returns the kind resolved at bind time.
func (b *Binding) Kind() types.Kind { return b.kind }

// IsList reports whether the field's values use the list format.
func (b *Binding) IsList() bool { return b.list }

// Keys returns the resolved read and write keys.
func (b *Binding) Keys() keys.Descriptor { return b.keys }

// WriteKey returns the serialized write keys; checkboxes and radios with
// equal write keys form one group.
func (b *Binding) WriteKey() string { return b.keys.WriteKey() }

// Read fetches the first stored value for the read keys and applies it to
// the field. The field is left untouched when nothing is found.
func (b *Binding) Read(ctx context.Context) error {
	value, err := b.Lookup(ctx)
	if err != nil {
		return err
	}
	b.Apply(value)
	return nil
}

// Lookup fetches the first stored value for the read keys without touching
// the field.
func (b *Binding) Lookup(ctx context.Context) (any, error) {
	if len(b.keys.Read) == 0 {
		return nil, types.ErrNoReadKeys
	}
	return b.stores.GetFirst(ctx, b.stores.Prefix(b.keys.Read, b.list))
}

// Apply sets the field to value and fires a change event.
func (b *Binding) Apply(value any) {
	b.adapter.Set(b.field, b.kind, value)
	level.Debug(b.logger).Log("msg", "field prefilled", "keys", keys.SerializeList(b.keys.Read))
	b.field.Dispatch(types.EventChange, types.OriginPrefill)
}

// Write stores the field's current value under the write keys, or removes
// them when opts.Delete is set.
func (b *Binding) Write(ctx context.Context, opts WriteOptions) error {
	if len(b.keys.Write) == 0 {
		return types.ErrNoWriteKeys
	}
	prefixed := b.stores.Prefix(b.keys.Write, b.list)
	if opts.Delete {
		if err := b.stores.RemoveItems(ctx, prefixed); err != nil {
			return fmt.Errorf("remove %s: %w", b.WriteKey(), err)
		}
		return nil
	}
	if err := b.stores.SetItems(ctx, prefixed, b.Val()); err != nil {
		return fmt.Errorf("write %s: %w", b.WriteKey(), err)
	}
	return nil
}

// Val returns the value Write stores. For checkboxes and radios that is the
// raw values of every checked field in the same form sharing this field's
// write keys, in document order.
func (b *Binding) Val() any {
	if !b.kind.Checkable() {
		return b.adapter.Get(b.field, b.kind)
	}
	checked := []string{}
	for _, peer := range b.field.Peers(types.AttrWrite, b.WriteKey()) {
		if types.KindOf(peer).Checkable() && peer.Checked() {
			checked = append(checked, peer.RawValue())
		}
	}
	return checked
}

// Reset restores the value captured at bind time and fires a change event.
func (b *Binding) Reset() {
	if b.kind.Checkable() {
		checked, _ := b.initial.(bool)
		b.field.SetChecked(checked)
	} else {
		b.adapter.Set(b.field, b.kind, b.initial)
	}
	b.field.Dispatch(types.EventChange, types.OriginReset)
}
