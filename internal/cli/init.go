package cli

import (
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/mesh-intelligence/formprefill/internal/paths"
)

func newInitCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "init",
		Short: "Initialize formprefill storage",
		Long:  "Create the configuration and data directories, write a default config.yaml\nand create the storage database.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, _, detach, err := a.attachHost()
			if err != nil {
				return err
			}
			detach()

			configDir, _ := paths.ResolveConfigDir(a.flags.configDir)
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "config: %s\n", filepath.Join(configDir, paths.ConfigFileName))
			fmt.Fprintf(out, "data:   %s\n", cfg.DataDir)
			fmt.Fprintln(out, "formprefill initialized successfully")
			return nil
		},
	}
}
