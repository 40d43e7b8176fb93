package cmd

import (
	"fmt"
	"runtime/debug"

	"github.com/spf13/cobra"

	"github.com/abhisek/ccgrun/internal/config"
)

// version is set via -ldflags at build time.
var version = "(devel)"

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the build and config format versions",
	Run: func(cmd *cobra.Command, args []string) {
		out := cmd.OutOrStdout()
		fmt.Fprintln(out, "ccgrun", version)
		if verbose, _ := cmd.Flags().GetBool("verbose"); !verbose {
			return
		}
		fmt.Fprintln(out, "config format", config.SupportedMajor)
		if bi, ok := debug.ReadBuildInfo(); ok {
			fmt.Fprintln(out, "go", bi.GoVersion)
		}
	},
}

func init() {
	versionCmd.Flags().BoolP("verbose", "v", false, "Also print the config format and Go versions")
}
