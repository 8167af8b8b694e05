package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newExportCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "export <file.jsonl>",
		Short: "Write every stored entry to a JSONL file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			_, host, detach, err := a.attachHost()
			if err != nil {
				return err
			}
			defer detach()

			n, err := host.Export(args[0])
			if err != nil {
				return sysError("export: %v", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "exported %d entries\n", n)
			return nil
		},
	}
}

func newRestoreCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "restore <file.jsonl>",
		Short: "Load entries from a JSONL file written by export",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			_, host, detach, err := a.attachHost()
			if err != nil {
				return err
			}
			defer detach()

			n, err := host.Restore(args[0])
			if err != nil {
				return sysError("restore: %v", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "restored %d entries\n", n)
			return nil
		},
	}
}
