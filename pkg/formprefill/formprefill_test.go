package formprefill_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mesh-intelligence/formprefill/pkg/dom"
	"github.com/mesh-intelligence/formprefill/pkg/formprefill"
	"github.com/mesh-intelligence/formprefill/pkg/sqlite"
	"github.com/mesh-intelligence/formprefill/pkg/types"
)

const page = `<html><body><form>
<input id="email" name="contact[email]">
<textarea id="note" name="note"></textarea>
</form></body></html>`

// attach opens page on host and waits for the initial prefill.
func attach(t *testing.T, host types.Host, cfg types.Config, fragment string) (*dom.Document, *formprefill.Page) {
	t.Helper()
	doc := dom.MustParse(page)
	doc.SetFragment(fragment)
	p, err := formprefill.Attach(context.Background(), formprefill.Options{
		Config:   cfg,
		Host:     host,
		Document: doc,
		Location: doc,
		Adapter:  dom.Adapter{},
	}, doc.Forms()[0])
	require.NoError(t, err)
	t.Cleanup(func() { p.Close() })
	require.NoError(t, p.Wait(context.Background()))
	return doc, p
}

func TestAttach_SQLiteHost(t *testing.T) {
	cfg := types.DefaultConfig()
	cfg.Stores = []string{types.StoreLocal, types.StoreCookie}
	cfg.DataDir = t.TempDir()

	host := sqlite.NewBackend()
	require.NoError(t, host.Attach(cfg))

	doc, p := attach(t, host, cfg, "p:email=ada%40example.org")
	assert.Equal(t, "ada@example.org", doc.ByID("email").RawValue())

	dom.Adapter{}.Set(doc.ByID("note"), types.KindText, "call back")
	require.NoError(t, p.WriteAll(context.Background()))
	require.NoError(t, host.Detach())

	// A later page load on the same data directory sees both values.
	again := sqlite.NewBackend()
	require.NoError(t, again.Attach(cfg))
	defer again.Detach()

	doc, _ = attach(t, again, cfg, "")
	assert.Equal(t, "ada@example.org", doc.ByID("email").RawValue())
	assert.Equal(t, "call back", doc.ByID("note").RawValue())
}

func TestAttach_Forms(t *testing.T) {
	cfg := types.DefaultConfig()
	cfg.DataDir = t.TempDir()
	host := sqlite.NewBackend()
	require.NoError(t, host.Attach(cfg))
	defer host.Detach()

	_, p := attach(t, host, cfg, "")
	require.Len(t, p.Forms(), 1)
	assert.Len(t, p.Forms()[0].Bindings(), 2)
	assert.Equal(t, []string{types.StoreSession}, p.Stores().Names())
}
