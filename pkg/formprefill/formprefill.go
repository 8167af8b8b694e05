// Package formprefill is the public entry point: it attaches to the forms of
// a page, persists their values across the configured stores and prefills
// them again, including values passed in the URL fragment.
//
// Example:
//
//	doc, _ := dom.Parse(r)
//	page, err := formprefill.Attach(ctx, formprefill.Options{
//	    Config:   types.DefaultConfig(),
//	    Host:     host,
//	    Document: doc,
//	    Location: doc,
//	    Adapter:  dom.Adapter{},
//	}, doc.Body())
//	defer page.Close()
//	err = page.Wait(ctx)
package formprefill

import (
	"context"

	"github.com/mesh-intelligence/formprefill/internal/form"
	"github.com/mesh-intelligence/formprefill/pkg/types"
)

// Version is the release version, set at build time.
var Version = "dev"

type (
	// Options configure Attach.
	Options = form.Options
	// Page is an attached page.
	Page = form.Page
	// Form is the batch API of one container.
	Form = form.Form
	// RemoveOptions modify RemoveAll.
	RemoveOptions = form.RemoveOptions
)

// Attach binds the fields of containers and starts the initial prefill.
func Attach(ctx context.Context, opts Options, containers ...types.Container) (*Page, error) {
	return form.Attach(ctx, opts, containers...)
}
