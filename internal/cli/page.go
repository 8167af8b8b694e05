package cli

import (
	"fmt"

	"github.com/go-kit/log/level"
	"github.com/spf13/cobra"

	"github.com/mesh-intelligence/formprefill/pkg/dom"
	"github.com/mesh-intelligence/formprefill/pkg/formprefill"
)

// pageFlags are the flags of the commands operating on an HTML page.
type pageFlags struct {
	fragment string
	keep     bool
}

// attachPage parses path and attaches formprefill to its forms. The caller
// must call the returned cleanup function.
func (a *app) attachPage(cmd *cobra.Command, path, fragment string, read bool) (*dom.Document, *formprefill.Page, func(), error) {
	doc, err := readPage(path)
	if err != nil {
		return nil, nil, nil, err
	}
	doc.SetFragment(fragment)

	cfg, host, detach, err := a.attachHost()
	if err != nil {
		return nil, nil, nil, err
	}
	page, err := formprefill.Attach(cmd.Context(), formprefill.Options{
		Config:   cfg,
		Host:     host,
		Document: doc,
		Location: doc,
		Adapter:  dom.Adapter{},
		Logger:   a.logger,
		SkipRead: !read,
	}, containers(doc)...)
	if err != nil {
		detach()
		return nil, nil, nil, userError("attach: %v", err)
	}
	cleanup := func() {
		page.Close()
		detach()
	}

	// The initial prefill must settle before anything else touches the page.
	if err := page.Wait(cmd.Context()); err != nil {
		level.Warn(a.logger).Log("msg", "prefill incomplete", "err", err)
	}
	return doc, page, cleanup, nil
}

func newFillCmd(a *app) *cobra.Command {
	var f pageFlags
	cmd := &cobra.Command{
		Use:   "fill <page.html>",
		Short: "Prefill the forms of a page and print it",
		Long: "Fill imports the prefill values of --fragment (p:key=value parts), prefills\n" +
			"every form field of the page from the stores and prints the page. The\n" +
			"cleaned fragment is printed to stderr.",
		Example: "  formprefill fill signup.html --fragment 'p:first_name=Ada&last_name=Lovelace;top'",
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			doc, _, cleanup, err := a.attachPage(cmd, args[0], f.fragment, true)
			if err != nil {
				return err
			}
			defer cleanup()

			if err := doc.Render(cmd.OutOrStdout()); err != nil {
				return sysError("render page: %v", err)
			}
			fmt.Fprintln(cmd.OutOrStdout())
			if f.fragment != "" {
				fmt.Fprintf(cmd.ErrOrStderr(), "fragment: #%s\n", doc.Fragment())
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&f.fragment, "fragment", "", "URL fragment to import before filling")
	return cmd
}

func newSaveCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "save <page.html>",
		Short: "Store the values of a page's form fields",
		Long:  "Save writes the value of every form field, as authored in the page, to the stores.",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			_, page, cleanup, err := a.attachPage(cmd, args[0], "", false)
			if err != nil {
				return err
			}
			defer cleanup()

			if err := page.WriteAll(cmd.Context()); err != nil {
				return sysError("save: %v", err)
			}
			fmt.Fprintln(cmd.OutOrStdout(), "saved")
			return nil
		},
	}
}

func newClearCmd(a *app) *cobra.Command {
	var f pageFlags
	cmd := &cobra.Command{
		Use:   "clear <page.html>",
		Short: "Remove the stored values of a page's form fields",
		Long: "Clear removes the entries of every form field from the stores and prints the\n" +
			"page with its fields reset to their authored values.",
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			doc, page, cleanup, err := a.attachPage(cmd, args[0], "", true)
			if err != nil {
				return err
			}
			defer cleanup()

			if err := page.RemoveAll(cmd.Context(), formprefill.RemoveOptions{KeepValues: f.keep}); err != nil {
				return sysError("clear: %v", err)
			}
			if err := doc.Render(cmd.OutOrStdout()); err != nil {
				return sysError("render page: %v", err)
			}
			fmt.Fprintln(cmd.OutOrStdout())
			return nil
		},
	}
	cmd.Flags().BoolVar(&f.keep, "no-reset", false, "keep the prefilled values in the printed page")
	return cmd
}
