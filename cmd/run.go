package cmd

import (
	"context"
	"os"

	"github.com/spf13/cobra"

	"github.com/abhisek/ccgrun/internal/app"
	"github.com/abhisek/ccgrun/internal/experiment"
)

// runApp opens the store and remote, then launches the TUI.
func runApp(cmd *cobra.Command, args []string) error {
	rt, err := openRuntime(cmd, logFile)
	if err != nil {
		return err
	}
	defer rt.Close()

	pid, _ := cmd.Flags().GetString("pid")
	role, _ := cmd.Flags().GetString("role")
	fromEnv := experiment.Claims{
		ParticipantID: os.Getenv("CCG_PID"),
		Role:          os.Getenv("CCG_ROLE"),
	}
	id := experiment.ResolveIdentity(experiment.Claims{ParticipantID: pid, Role: role}, fromEnv)

	return app.Run(app.Options{
		Config: rt.cfg,
		PID:    id.ParticipantID,
		Open: func(ctx context.Context, pid string) (*experiment.Session, error) {
			return experiment.Open(ctx, experiment.Identity{ParticipantID: pid, Role: id.Role}, rt.deps())
		},
	})
}
