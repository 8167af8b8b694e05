package binding

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mesh-intelligence/formprefill/internal/keys"
	"github.com/mesh-intelligence/formprefill/internal/store"
	"github.com/mesh-intelligence/formprefill/pkg/dom"
	"github.com/mesh-intelligence/formprefill/pkg/types"
)

type fixture struct {
	doc      *dom.Document
	set      *store.Set
	session  *store.MemoryStorage
	resolver *keys.Resolver
}

func newFixture(t *testing.T, html string) *fixture {
	t.Helper()
	host := store.NewMemoryHost()
	set, err := store.FromConfig(context.Background(), types.DefaultConfig(), host, nil)
	require.NoError(t, err)
	return &fixture{
		doc:      dom.MustParse(html),
		set:      set,
		session:  host.Session,
		resolver: keys.NewResolver(types.DefaultConfig()),
	}
}

func (fx *fixture) bind(id string) *Binding {
	return New(fx.doc.ByID(id), fx.set, fx.resolver, dom.Adapter{}, nil)
}

func (fx *fixture) stored(t *testing.T, key string) string {
	t.Helper()
	v, ok, err := fx.session.GetItem(key)
	require.NoError(t, err)
	require.True(t, ok, "missing %s", key)
	return v
}

func TestBinding_IsList(t *testing.T) {
	fx := newFixture(t, `<form>
<input id="t" name="t"><input id="c" type="checkbox" name="c"><input id="r" type="radio" name="r">
<select id="s" name="s"></select><select id="m" name="m" multiple></select>
<input id="l" class="form-prefill-list" name="l">
</form>`)
	for id, want := range map[string]bool{"t": false, "c": true, "r": true, "s": false, "m": true, "l": true} {
		assert.Equal(t, want, fx.bind(id).IsList(), id)
	}
}

func TestBinding_RoundTrip(t *testing.T) {
	ctx := context.Background()

	t.Run("scalar", func(t *testing.T) {
		fx := newFixture(t, `<form><input id="f" name="user[first_name]" value="Ada"></form>`)
		b := fx.bind("f")
		require.NoError(t, b.Write(ctx, WriteOptions{}))
		assert.Equal(t, `"Ada"`, fx.stored(t, "formPrefill:s:first_name"))

		fresh := newFixture(t, `<form><input id="f" name="user[first_name]"></form>`)
		fresh.set, fresh.session = fx.set, fx.session
		require.NoError(t, fresh.bind("f").Read(ctx))
		assert.Equal(t, "Ada", fresh.doc.ByID("f").RawValue())
	})

	t.Run("list", func(t *testing.T) {
		fx := newFixture(t, `<form><select id="f" name="tags" multiple><option selected>a</option><option>b</option><option selected>c</option></select></form>`)
		b := fx.bind("f")
		require.NoError(t, b.Write(ctx, WriteOptions{}))
		assert.Equal(t, `["a","c"]`, fx.stored(t, "formPrefill:l:tags"))

		dom.Adapter{}.Set(fx.doc.ByID("f"), types.KindMultiSelect, nil)
		require.NoError(t, b.Read(ctx))
		assert.Equal(t, []string{"a", "c"}, dom.Adapter{}.Get(fx.doc.ByID("f"), types.KindMultiSelect))
	})

	t.Run("checkbox group", func(t *testing.T) {
		fx := newFixture(t, `<form>
<input id="c1" type="checkbox" name="foo" value="one">
<input id="c2" type="checkbox" name="foo" value="two" checked>
<input id="c3" type="checkbox" name="foo" value="three" checked>
</form>`)
		b1, b2, b3 := fx.bind("c1"), fx.bind("c2"), fx.bind("c3")

		for _, b := range []*Binding{b1, b2, b3} {
			require.NoError(t, b.Write(ctx, WriteOptions{}))
			assert.Equal(t, `["two","three"]`, fx.stored(t, "formPrefill:l:foo"))
		}

		for _, id := range []string{"c1", "c2", "c3"} {
			fx.doc.ByID(id).SetChecked(false)
		}
		for _, b := range []*Binding{b1, b2, b3} {
			require.NoError(t, b.Read(ctx))
		}
		assert.False(t, fx.doc.ByID("c1").Checked())
		assert.True(t, fx.doc.ByID("c2").Checked())
		assert.True(t, fx.doc.ByID("c3").Checked())
	})
}

func TestBinding_Val(t *testing.T) {
	fx := newFixture(t, `<form id="a">
<input id="c1" type="checkbox" data-form-prefill-keys="x" value="1" checked>
<input id="c2" type="checkbox" data-form-prefill-keys="x" value="2">
<input id="t" name="t" value="text">
</form>
<form id="b"><input id="other" type="checkbox" data-form-prefill-keys="x" value="3" checked></form>`)
	c1 := fx.bind("c1")
	fx.bind("c2")
	fx.bind("other")

	assert.Equal(t, []string{"1"}, c1.Val(), "peers outside the form do not count")
	assert.Equal(t, "text", fx.bind("t").Val())

	fx.doc.ByID("c1").SetChecked(false)
	assert.Equal(t, []string{}, c1.Val(), "an empty group stores an empty list")
}

func TestBinding_Errors(t *testing.T) {
	ctx := context.Background()
	fx := newFixture(t, `<form><input id="none"><input id="w" data-form-prefill-write="k"><input id="n" name="n" value="keep"></form>`)

	assert.ErrorIs(t, fx.bind("none").Read(ctx), types.ErrNoReadKeys)
	assert.ErrorIs(t, fx.bind("none").Write(ctx, WriteOptions{}), types.ErrNoWriteKeys)
	assert.ErrorIs(t, fx.bind("w").Read(ctx), types.ErrNoReadKeys)

	t.Run("not found leaves the field alone", func(t *testing.T) {
		var changes int
		fx.doc.ByID("n").On(types.EventChange, func(dom.Event) { changes++ })
		err := fx.bind("n").Read(ctx)
		assert.ErrorIs(t, err, types.ErrNotFound)
		assert.Equal(t, "keep", fx.doc.ByID("n").RawValue())
		assert.Zero(t, changes)
	})
}

func TestBinding_ReadDispatchesChange(t *testing.T) {
	ctx := context.Background()
	fx := newFixture(t, `<form><input id="f" name="city"></form>`)
	require.NoError(t, fx.set.SetItems(ctx, []string{"s:city"}, "Graz"))

	var detail any
	fx.doc.ByID("f").On(types.EventChange, func(ev dom.Event) { detail = ev.Detail })
	require.NoError(t, fx.bind("f").Read(ctx))
	assert.Equal(t, types.OriginPrefill, detail)
}

func TestBinding_Delete(t *testing.T) {
	ctx := context.Background()
	fx := newFixture(t, `<form><input id="f" name="city" value="Graz"></form>`)
	b := fx.bind("f")
	require.NoError(t, b.Write(ctx, WriteOptions{}))
	require.NoError(t, b.Write(ctx, WriteOptions{Delete: true}))

	_, ok, _ := fx.session.GetItem("formPrefill:s:city")
	assert.False(t, ok)
}

func TestBinding_Reset(t *testing.T) {
	fx := newFixture(t, `<form><input id="t" name="t" value="orig"><input id="c" type="checkbox" name="c" checked></form>`)
	bt, bc := fx.bind("t"), fx.bind("c")

	dom.Adapter{}.Set(fx.doc.ByID("t"), types.KindText, "changed")
	fx.doc.ByID("c").SetChecked(false)

	var details []any
	fx.doc.On(types.EventChange, func(ev dom.Event) { details = append(details, ev.Detail) })
	bt.Reset()
	bc.Reset()

	assert.Equal(t, "orig", fx.doc.ByID("t").RawValue())
	assert.True(t, fx.doc.ByID("c").Checked())
	assert.Equal(t, []any{types.OriginReset, types.OriginReset}, details)
}
