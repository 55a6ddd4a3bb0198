package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/mesh-intelligence/edgemetrics/pkg/edgemetrics"
)

const modulePath = "github.com/mesh-intelligence/edgemetrics"

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the edgemetrics version",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			fmt.Fprintf(cmd.OutOrStdout(), "edgemetrics v%s\nmodule: %s\n", edgemetrics.Version, modulePath)
			return nil
		},
	}
}
