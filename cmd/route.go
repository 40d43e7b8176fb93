package cmd

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/abhisek/ccgrun/internal/experiment"
	"github.com/abhisek/ccgrun/internal/store"
)

var routeCmd = &cobra.Command{
	Use:   "route",
	Short: "Inspect and edit a participant's route ledger",
}

// withSession opens the runtime and the session named by --pid, runs fn,
// and closes both.
func withSession(cmd *cobra.Command, fn func(sess *experiment.Session) error) error {
	pid, _ := cmd.Flags().GetString("pid")
	if pid == "" {
		return fmt.Errorf("--pid is required")
	}
	rt, err := openRuntime(cmd, logStderr)
	if err != nil {
		return err
	}
	defer rt.Close()

	sess, err := rt.session(cmd.Context(), pid, string(experiment.RoleTester))
	if err != nil {
		return err
	}
	defer sess.Close()
	return fn(sess)
}

func check(b bool) string {
	if b {
		return "✓"
	}
	return "·"
}

var routeStatusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show the route ledger",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withSession(cmd, func(sess *experiment.Session) error {
			out := cmd.OutOrStdout()
			tr := sess.Tracker()

			fmt.Fprintf(out, "%-22s  %-8s  %-9s  %-9s  %s\n",
				"Route", "Required", "Permitted", "Completed", "Revisit")
			fmt.Fprintln(out, strings.Repeat("─", 66))
			for _, e := range tr.Entries() {
				fmt.Fprintf(out, "%-22s  %-8s  %-9s  %-9s  %s\n",
					e.Route, check(e.Required), check(e.Permitted), check(e.Completed),
					check(e.RevisitAfterCompleted))
			}
			fmt.Fprintf(out, "\nresume at: %s   finished: %v\n", tr.LatestUncompletedRoute(), tr.Finished())
			return nil
		})
	},
}

var routeNextCmd = &cobra.Command{
	Use:   "next <route>",
	Short: "Permit the route after <route> without completing it",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withSession(cmd, func(sess *experiment.Session) error {
			fmt.Fprintln(cmd.OutOrStdout(), sess.Next(cmd.Context(), args[0]))
			return nil
		})
	},
}

var routeAdvanceCmd = &cobra.Command{
	Use:   "advance <route>",
	Short: "Complete <route> and permit the next one",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withSession(cmd, func(sess *experiment.Session) error {
			fmt.Fprintln(cmd.OutOrStdout(), sess.Advance(cmd.Context(), args[0]))
			return nil
		})
	},
}

var routeCompleteCmd = &cobra.Command{
	Use:   "complete <route>",
	Short: "Mark <route> completed",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withSession(cmd, func(sess *experiment.Session) error {
			if !sess.Complete(cmd.Context(), args[0]) {
				return fmt.Errorf("unknown route %q", args[0])
			}
			return nil
		})
	},
}

var routePermitCmd = &cobra.Command{
	Use:   "permit <route>",
	Short: "Mark <route> permitted",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withSession(cmd, func(sess *experiment.Session) error {
			if !sess.Permit(cmd.Context(), args[0]) {
				return fmt.Errorf("unknown route %q", args[0])
			}
			return nil
		})
	},
}

var routeLogCmd = &cobra.Command{
	Use:   "log",
	Short: "List the participant's navigation events",
	RunE: func(cmd *cobra.Command, args []string) error {
		limit, _ := cmd.Flags().GetInt("limit")
		kind, _ := cmd.Flags().GetString("kind")
		return withSession(cmd, func(sess *experiment.Session) error {
			events, err := sess.Events(cmd.Context(), store.QueryOpts{Limit: limit})
			if err != nil {
				return fmt.Errorf("query events: %w", err)
			}
			out := cmd.OutOrStdout()
			if len(events) == 0 {
				fmt.Fprintln(out, "No events found.")
				return nil
			}

			fmt.Fprintf(out, "%-5s  %-19s  %-9s  %-22s  %s\n",
				"Seq", "Timestamp", "Kind", "Route", "Target")
			fmt.Fprintln(out, strings.Repeat("─", 80))
			for _, e := range events {
				if kind != "" && e.Kind != kind {
					continue
				}
				fmt.Fprintf(out, "%-5d  %-19s  %-9s  %-22s  %s\n",
					e.Sequence,
					e.Timestamp.Local().Format("2006-01-02 15:04:05"),
					e.Kind,
					e.Route,
					e.Target,
				)
			}
			return nil
		})
	},
}

func init() {
	for _, c := range []*cobra.Command{routeStatusCmd, routeNextCmd, routeAdvanceCmd, routeCompleteCmd, routePermitCmd, routeLogCmd} {
		c.Flags().String("pid", "", "Participant id (required)")
		routeCmd.AddCommand(c)
	}
	routeLogCmd.Flags().Int("limit", 50, "Maximum number of events")
	routeLogCmd.Flags().String("kind", "", "Only show events of this kind")
}
