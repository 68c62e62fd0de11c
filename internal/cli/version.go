package cli

import (
	"fmt"
	"runtime"

	"github.com/spf13/cobra"

	"github.com/m3rciful/shopbot/core/buildinfo"
)

// NewVersionCommand prints build information.
func NewVersionCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "shopbot %s (commit %s, built %s, %s)\n",
				buildinfo.Version, buildinfo.Commit, buildinfo.Date, runtime.Version())
		},
	}
}
