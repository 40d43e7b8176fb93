package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/abhisek/ccgrun/internal/shuffle"
)

var shuffleCmd = &cobra.Command{
	Use:   "shuffle <seed> <items...>",
	Short: "Print items in the order a seed shuffles them",
	Long: `Print items in the seeded order participants see them.

With --question, the seed is taken as a participant id and combined with
the question id, as option randomization does.`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		seed := args[0]
		if q, _ := cmd.Flags().GetString("question"); q != "" {
			seed = shuffle.SeedFor(seed, q)
		}
		out := cmd.OutOrStdout()
		for _, item := range shuffle.Shuffle(args[1:], seed) {
			fmt.Fprintln(out, item)
		}
		return nil
	},
}

func init() {
	shuffleCmd.Flags().String("question", "", "Question id to combine with the seed")
}
