package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

var resetCmd = &cobra.Command{
	Use:   "reset",
	Short: "Reset participant data",
	Long: `Reset a participant to a fresh start: a new route ledger, no saved
answers or game rounds, and an empty navigation log. The remote uid is
kept so later uploads still match the participant's row.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		pid, _ := cmd.Flags().GetString("pid")
		all, _ := cmd.Flags().GetBool("all")
		if (pid == "") == !all {
			return fmt.Errorf("use exactly one of --pid or --all")
		}

		rt, err := openRuntime(cmd, logStderr)
		if err != nil {
			return err
		}
		defer rt.Close()

		ctx := cmd.Context()
		pids := []string{pid}
		if all {
			if pids, err = rt.store.Scopes(ctx); err != nil {
				return fmt.Errorf("list participants: %w", err)
			}
		}
		for _, p := range pids {
			sess, err := rt.session(ctx, p, "")
			if err != nil {
				return err
			}
			err = sess.Reset(ctx)
			sess.Close()
			if err != nil {
				return fmt.Errorf("reset %s: %w", p, err)
			}
			fmt.Fprintln(cmd.OutOrStdout(), "reset", p)
		}
		return nil
	},
}

func init() {
	resetCmd.Flags().String("pid", "", "Participant id to reset")
	resetCmd.Flags().Bool("all", false, "Reset every participant in the database")
}
