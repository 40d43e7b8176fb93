package cmd

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/abhisek/ccgrun/internal/experiment"
	"github.com/abhisek/ccgrun/internal/logging"
)

var logsCmd = &cobra.Command{
	Use:   "logs",
	Short: "List log namespaces and whether debug output is on for each",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withSession(cmd, func(sess *experiment.Session) error {
			// A round of use registers the namespaces the session touches.
			sess.Game()
			sess.Comprehension(cmd.Context(), "")

			reg := sess.Logs()
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "filters: %s\n\n", strings.Join(reg.Filters(), ","))
			reg.Tree().Walk(func(n *logging.Node, depth int) {
				mark := " "
				if reg.DebugEnabled(n.FullName) {
					mark = "●"
				}
				fmt.Fprintf(out, "%s %s%s\n", mark, strings.Repeat("  ", depth), n.Name)
			})
			return nil
		})
	},
}

func init() {
	logsCmd.Flags().String("pid", "", "Participant id whose session to open (required)")
}
