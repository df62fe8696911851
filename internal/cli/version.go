package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

// newVersionCmd prints the ldflags build information.
func (a *app) newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			w := cmd.OutOrStdout()
			fmt.Fprintf(w, "timer-ocr-mcp %s\n", a.build.Version)
			fmt.Fprintf(w, "  Build time: %s\n", a.build.BuildTime)
			fmt.Fprintf(w, "  Git commit: %s\n", a.build.GitCommit)
			return nil
		},
	}
}
