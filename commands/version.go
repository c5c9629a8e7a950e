package commands

import (
	"fmt"

	"github.com/spf13/cobra"
)

// newVersionCmd creates the "version" subcommand.
func newVersionCmd(cfg Config) *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the version",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, _ []string) {
			fmt.Fprintln(cmd.OutOrStdout(), cfg.Version)
		},
	}
}
