package cli

import (
	"encoding/json"
	"fmt"

	"github.com/gobwas/glob"
	"github.com/spf13/cobra"

	"github.com/mesh-intelligence/formprefill/internal/fragment"
)

// keyFlags are the flags of get and set.
type keyFlags struct {
	list bool
}

func newImportCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "import <fragment>",
		Short: "Store the prefill values of a URL fragment",
		Long: "Import stores every p:key=value pair of the fragment, the last value of a key\n" +
			"in string format and all of its values in list format, then prints the\n" +
			"fragment without its prefill parts.",
		Example: "  formprefill import 'p:color=red&color=blue;section-2'",
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, host, detach, err := a.attachHost()
			if err != nil {
				return err
			}
			defer detach()
			set, err := a.openStores(cmd.Context(), cfg, host)
			if err != nil {
				return err
			}
			defer set.Close()

			imp := fragment.Start(cmd.Context(), args[0], set, nil, a.logger)
			if err := imp.Wait(cmd.Context()); err != nil {
				return sysError("import: %v", err)
			}
			if a.flags.jsonMode {
				return writeJSON(cmd, map[string]any{"fragment": imp.Fragment, "values": imp.Values})
			}
			fmt.Fprintln(cmd.OutOrStdout(), imp.Fragment)
			return nil
		},
	}
}

func newGetCmd(a *app) *cobra.Command {
	var f keyFlags
	cmd := &cobra.Command{
		Use:   "get <key>...",
		Short: "Print the first stored value of the keys",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, host, detach, err := a.attachHost()
			if err != nil {
				return err
			}
			defer detach()
			set, err := a.openStores(cmd.Context(), cfg, host)
			if err != nil {
				return err
			}
			defer set.Close()

			value, err := set.GetFirst(cmd.Context(), set.Prefix(args, f.list))
			if err != nil {
				return failed(err, "get")
			}
			return writeJSON(cmd, value)
		},
	}
	cmd.Flags().BoolVar(&f.list, "list", false, "read the list format")
	return cmd
}

func newSetCmd(a *app) *cobra.Command {
	var f keyFlags
	cmd := &cobra.Command{
		Use:   "set <key> <value>",
		Short: "Store a value under a key in every store",
		Long: "Set stores value under key. A value that is valid JSON is stored decoded,\n" +
			"anything else as a plain string.",
		Example: "  formprefill set first_name Ada\n  formprefill set --list interests '[\"music\",\"math\"]'",
		Args:    cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, host, detach, err := a.attachHost()
			if err != nil {
				return err
			}
			defer detach()
			set, err := a.openStores(cmd.Context(), cfg, host)
			if err != nil {
				return err
			}
			defer set.Close()

			var value any
			if err := json.Unmarshal([]byte(args[1]), &value); err != nil {
				value = args[1]
			}
			if err := set.SetItems(cmd.Context(), set.Prefix(args[:1], f.list), value); err != nil {
				return failed(err, "set")
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&f.list, "list", false, "write the list format")
	return cmd
}

func newKeysCmd(a *app) *cobra.Command {
	var match string
	cmd := &cobra.Command{
		Use:   "keys",
		Short: "List the stored entries of the local and session scopes",
		Long: "Keys lists the stored keys. --match filters them with a glob in which '*'\n" +
			"does not cross ':' (formPrefill:l:* lists every list entry).",
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			var g glob.Glob
			if match != "" {
				var err error
				if g, err = glob.Compile(match, ':'); err != nil {
					return userError("invalid --match pattern: %v", err)
				}
			}

			_, host, detach, err := a.attachHost()
			if err != nil {
				return err
			}
			defer detach()

			entries, err := host.Entries(host.VisibleScopes()...)
			if err != nil {
				return sysError("list entries: %v", err)
			}
			type row struct {
				Scope string `json:"scope"`
				Key   string `json:"key"`
				Value string `json:"value"`
			}
			rows := []row{}
			for _, e := range entries {
				if g != nil && !g.Match(e.Key) {
					continue
				}
				rows = append(rows, row{Scope: e.Scope, Key: e.Key, Value: e.Value})
			}
			if a.flags.jsonMode {
				return writeJSON(cmd, rows)
			}
			for _, r := range rows {
				fmt.Fprintf(cmd.OutOrStdout(), "%s\t%s\t%s\n", r.Scope, r.Key, r.Value)
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&match, "match", "", "glob the keys must match")
	return cmd
}

// writeJSON prints v as JSON on stdout.
func writeJSON(cmd *cobra.Command, v any) error {
	enc := json.NewEncoder(cmd.OutOrStdout())
	if err := enc.Encode(v); err != nil {
		return sysError("encode output: %v", err)
	}
	return nil
}
