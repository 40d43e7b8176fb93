package experiment

import (
	"context"
	"fmt"
	"io"

	"github.com/abhisek/ccgrun/internal/config"
	"github.com/abhisek/ccgrun/internal/logging"
	"github.com/abhisek/ccgrun/internal/remote"
)

// DSNMemory selects the in-process remote store.
const DSNMemory = "memory"

type nopCloser struct{}

func (nopCloser) Close() error { return nil }

// ConnectRemote opens the remote store named by cfg.DSN and wraps it with
// sign-in retries and logging. An empty DSN returns a nil collaborator:
// the session then runs without remote reporting.
func ConnectRemote(ctx context.Context, cfg config.RemoteConfig, logs *logging.Registry) (remote.Collaborator, io.Closer, error) {
	var (
		c      remote.Collaborator
		closer io.Closer = nopCloser{}
	)
	switch cfg.DSN {
	case "":
		return nil, closer, nil
	case DSNMemory:
		c = remote.NewMemory()
	default:
		pg, err := remote.OpenPostgres(ctx, cfg.DSN)
		if err != nil {
			return nil, nil, fmt.Errorf("connect remote: %w", err)
		}
		if err := pg.Migrate(ctx); err != nil {
			pg.Close()
			return nil, nil, fmt.Errorf("migrate remote: %w", err)
		}
		c, closer = pg, pg
	}
	c = remote.WithSignInRetry(c, cfg.SignInAttempts, cfg.SignInWait)
	if logs != nil {
		c = remote.WithLogging(c, logs.Logger("exp:db"))
	}
	return c, closer, nil
}
