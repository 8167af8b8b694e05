package form

import (
	"context"
	"fmt"

	"github.com/go-kit/log"
	"github.com/go-kit/log/level"
	"go.uber.org/multierr"

	"github.com/mesh-intelligence/formprefill/internal/fragment"
	"github.com/mesh-intelligence/formprefill/internal/store"
	"github.com/mesh-intelligence/formprefill/pkg/types"
)

// Options configure Attach. Config is required; the rest is optional.
type Options struct {
	Config types.Config

	// Host supplies the named backends of Config.Stores.
	Host types.Host
	// Stores replaces Config.Stores when set; entries may carry literal
	// Store values.
	Stores []types.StoreSpec

	// Document receives document-level events.
	Document fragment.Dispatcher
	// Location is the page URL whose fragment is imported and cleaned.
	Location types.Location

	Adapter types.ValueAdapter
	Logger  log.Logger

	// SkipRead leaves the fields as authored: no initial prefill runs.
	SkipRead bool
}

// Page is the result of Attach.
type Page struct {
	stores *store.Set
	forms  []*Form
	imp    *fragment.Import
	ready  chan struct{}
	err    error
}

// Attach builds one store set for all containers, imports the URL
// fragment, binds every field and prefills the fields. The prefill runs in
// the background after the fragment values are stored; Ready is closed
// when it completes.
//
// Events, in order: EventStoresInitialized on the document (detail: the
// store set), EventHashStored on the document when a fragment import
// settles, EventStoresFilled on the document, then per-field prefill events.
func Attach(ctx context.Context, opts Options, containers ...types.Container) (*Page, error) {
	cfg := opts.Config.Clone()
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}
	logger := opts.Logger
	if logger == nil {
		logger = log.NewNopLogger()
	}
	if opts.Adapter == nil {
		return nil, fmt.Errorf("attach: value adapter is required")
	}

	var (
		set *store.Set
		err error
	)
	if opts.Stores != nil {
		set, err = store.FromSpecs(ctx, cfg, opts.Host, opts.Stores, logger)
	} else {
		set, err = store.FromConfig(ctx, cfg, opts.Host, logger)
	}
	if err != nil {
		return nil, err
	}
	dispatch(opts.Document, types.EventStoresInitialized, set)

	p := &Page{stores: set, ready: make(chan struct{})}
	if opts.Location != nil {
		original := opts.Location.Fragment()
		p.imp = fragment.Start(ctx, original, set, opts.Document, logger)
		if p.imp.Fragment != original {
			opts.Location.SetFragment(p.imp.Fragment)
		}
	}

	for _, c := range containers {
		p.forms = append(p.forms, New(c, cfg, set, opts.Adapter, logger))
	}
	level.Debug(logger).Log("msg", "attached", "forms", len(p.forms), "stores", set.Len())

	go func() {
		defer close(p.ready)
		if p.imp != nil {
			select {
			case <-p.imp.Done():
			case <-ctx.Done():
				p.err = ctx.Err()
				return
			}
		}
		dispatch(opts.Document, types.EventStoresFilled, set)
		if opts.SkipRead {
			return
		}
		for _, f := range p.forms {
			p.err = multierr.Append(p.err, f.ReadAll(ctx))
		}
	}()
	return p, nil
}

// Stores returns the shared store set.
func (p *Page) Stores() *store.Set { return p.stores }

// Forms returns one Form per attached container, in order.
func (p *Page) Forms() []*Form { return p.forms }

// Import returns the fragment import, or nil when no location was given.
func (p *Page) Import() *fragment.Import { return p.imp }

// Ready is closed when the initial prefill has finished.
func (p *Page) Ready() <-chan struct{} { return p.ready }

// Wait blocks until the initial prefill has finished and returns its
// combined errors (ErrNotFound excluded).
func (p *Page) Wait(ctx context.Context) error {
	select {
	case <-p.ready:
		return p.err
	case <-ctx.Done():
		return ctx.Err()
	}
}

// WriteAll writes every form.
func (p *Page) WriteAll(ctx context.Context) error {
	var errs error
	for _, f := range p.forms {
		errs = multierr.Append(errs, f.WriteAll(ctx))
	}
	return errs
}

// RemoveAll clears every form.
func (p *Page) RemoveAll(ctx context.Context, opts RemoveOptions) error {
	var errs error
	for _, f := range p.forms {
		errs = multierr.Append(errs, f.RemoveAll(ctx, opts))
	}
	return errs
}

// Close releases the backends the store set opened.
func (p *Page) Close() error {
	return p.stores.Close()
}

func dispatch(d fragment.Dispatcher, event string, detail any) {
	if d != nil {
		d.Dispatch(event, detail)
	}
}
