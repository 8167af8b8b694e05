package cli

import (
	"context"
	"errors"
	"os"

	"github.com/go-kit/log/level"

	"github.com/mesh-intelligence/formprefill/internal/sqlite"
	"github.com/mesh-intelligence/formprefill/internal/store"
	"github.com/mesh-intelligence/formprefill/pkg/dom"
	"github.com/mesh-intelligence/formprefill/pkg/types"
)

// attachHost resolves the configuration and attaches the SQLite host. The
// caller must call the returned detach function.
func (a *app) attachHost() (types.Config, *sqlite.Backend, func(), error) {
	cfg, err := a.settings()
	if err != nil {
		return types.Config{}, nil, nil, err
	}
	host := sqlite.NewBackend()
	if err := host.Attach(cfg); err != nil {
		return types.Config{}, nil, nil, sysError("attach host: %v", err)
	}
	level.Debug(a.logger).Log("msg", "host attached", "data_dir", cfg.DataDir, "session", host.SessionID())
	detach := func() {
		if err := host.Detach(); err != nil {
			level.Warn(a.logger).Log("msg", "detach host", "err", err)
		}
	}
	return cfg, host, detach, nil
}

// openStores builds the store set of cfg on host.
func (a *app) openStores(ctx context.Context, cfg types.Config, host types.Host) (*store.Set, error) {
	set, err := store.FromConfig(ctx, cfg, host, a.logger)
	if err != nil {
		if errors.Is(err, types.ErrUnknownStore) {
			return nil, userError("%v", err)
		}
		return nil, sysError("open stores: %v", err)
	}
	if set.Len() == 0 {
		set.Close()
		return nil, userError("none of the configured stores is available")
	}
	return set, nil
}

// readPage parses an HTML file.
func readPage(path string) (*dom.Document, error) {
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, userError("page %s not found", path)
		}
		return nil, sysError("open page: %v", err)
	}
	defer f.Close()

	doc, err := dom.Parse(f)
	if err != nil {
		return nil, userError("parse %s: %v", path, err)
	}
	return doc, nil
}

// containers returns the forms of doc, or its body when it has none.
func containers(doc *dom.Document) []types.Container {
	var out []types.Container
	for _, f := range doc.Forms() {
		out = append(out, f)
	}
	if len(out) == 0 {
		if body := doc.Body(); body != nil {
			out = append(out, body)
		}
	}
	return out
}

// failed wraps a store failure for the exit code: a missing key is the
// user's problem, anything else the environment's.
func failed(err error, what string) error {
	if errors.Is(err, types.ErrNotFound) {
		return userError("%s: %v", what, err)
	}
	return sysError("%s: %v", what, err)
}
