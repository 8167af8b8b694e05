package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/mesh-intelligence/formprefill/pkg/formprefill"
)

const modulePath = "github.com/mesh-intelligence/formprefill"

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the formprefill version",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			fmt.Fprintf(cmd.OutOrStdout(), "formprefill %s\nmodule: %s\n", formprefill.Version, modulePath)
			return nil
		},
	}
}
