package cmd

import (
	"context"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/abhisek/ccgrun/internal/config"
	"github.com/abhisek/ccgrun/internal/experiment"
	"github.com/abhisek/ccgrun/internal/logging"
	"github.com/abhisek/ccgrun/internal/remote"
	"github.com/abhisek/ccgrun/internal/store"
)

var rootCmd = &cobra.Command{
	Use:          "ccgrun",
	Short:        "Coordination game experiment runner",
	Long:         "ccgrun runs the coordination game experiment in the terminal or serves it over HTTP.",
	SilenceUsage: true,
	RunE:         runApp,
}

func Execute() error {
	return rootCmd.Execute()
}

func init() {
	pf := rootCmd.PersistentFlags()
	pf.String("db", "", "Path to SQLite database file (overrides CCG_DB env var)")
	pf.String("config", "", "Path to YAML config file (overrides CCG_CONFIG env var)")
	pf.StringSlice("debug", nil, `Debug namespace filters, e.g. "exp:*,-exp:db" (overrides CCG_DEBUG)`)

	rootCmd.Flags().String("pid", "", "Participant id (skips the prompt)")
	rootCmd.Flags().String("role", "", "Participant role: tester or participant")

	rootCmd.AddCommand(routeCmd)
	rootCmd.AddCommand(shuffleCmd)
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(resetCmd)
	rootCmd.AddCommand(logsCmd)
	rootCmd.AddCommand(versionCmd)
}

// loadConfig reads the config file named by --config or CCG_CONFIG and
// applies environment and flag overrides.
func loadConfig(cmd *cobra.Command) (config.Config, error) {
	path, _ := cmd.Flags().GetString("config")
	var (
		cfg config.Config
		err error
	)
	if path != "" {
		cfg, err = config.Load(path)
		cfg.ApplyEnv()
	} else {
		cfg, err = config.FromEnv()
	}
	if err != nil {
		return cfg, err
	}
	if debug, _ := cmd.Flags().GetStringSlice("debug"); len(debug) > 0 {
		cfg.Debug = debug
	}
	return cfg, nil
}

// resolveDBPath returns the database path using --db flag (highest priority),
// then the config/CCG_DB value, then the default XDG path.
func resolveDBPath(cmd *cobra.Command, cfg config.Config) (string, error) {
	if p, _ := cmd.Flags().GetString("db"); p != "" {
		return p, store.EnsureDir(p)
	}
	if cfg.DB != "" {
		return cfg.DB, store.EnsureDir(cfg.DB)
	}
	return store.DefaultDBPath()
}

// runtime holds the services a command works with.
type runtime struct {
	cfg    config.Config
	store  *store.Store
	logs   *logging.Registry
	remote remote.Collaborator
	closer io.Closer
}

// logMode selects where a command's logs go.
type logMode int

const (
	logStderr logMode = iota
	// logFile keeps the terminal clean for the TUI: logs go to the
	// configured file, or nowhere.
	logFile
)

func openRuntime(cmd *cobra.Command, mode logMode) (*runtime, error) {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}

	var logs *logging.Registry
	switch {
	case mode == logFile && cfg.LogFile != "":
		logs, err = logging.NewFile(cfg.LogFile, cfg.Debug)
	case mode == logFile:
		logs = logging.NewRegistry(nil, cfg.Debug)
	default:
		logs, err = logging.NewDevelopment(cfg.Debug)
	}
	if err != nil {
		return nil, err
	}

	dbPath, err := resolveDBPath(cmd, cfg)
	if err != nil {
		return nil, fmt.Errorf("resolve DB path: %w", err)
	}
	st, err := store.Open(dbPath)
	if err != nil {
		return nil, fmt.Errorf("open store: %w", err)
	}

	rc, closer, err := experiment.ConnectRemote(cmd.Context(), cfg.Remote, logs)
	if err != nil {
		st.Close()
		return nil, err
	}
	return &runtime{cfg: cfg, store: st, logs: logs, remote: rc, closer: closer}, nil
}

func (r *runtime) deps() experiment.Deps {
	return experiment.Deps{Config: r.cfg, Store: r.store, Remote: r.remote, Logs: r.logs}
}

// session opens the session for pid.
func (r *runtime) session(ctx context.Context, pid, role string) (*experiment.Session, error) {
	return experiment.Open(ctx, experiment.Identity{
		ParticipantID: pid,
		Role:          experiment.ValidateRole(role),
	}, r.deps())
}

func (r *runtime) Close() {
	r.closer.Close()
	r.store.Close()
	_ = r.logs.Sync()
}
