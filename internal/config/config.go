// Package config loads experiment runner settings from YAML and the
// environment.
package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"golang.org/x/mod/semver"
	"gopkg.in/yaml.v3"

	"github.com/abhisek/ccgrun/internal/game"
	"github.com/abhisek/ccgrun/internal/logging"
	"github.com/abhisek/ccgrun/internal/progress"
	"github.com/abhisek/ccgrun/internal/report"
)

// SupportedMajor is the config format major version this build reads.
const SupportedMajor = "v1"

// Config holds all runner configuration.
type Config struct {
	// Version is the semantic version of the config format.
	Version string `yaml:"version"`

	// Experiment names the experiment. Default: "ccg".
	Experiment string `yaml:"experiment"`

	// StorageKey is the key the route ledger is stored under.
	StorageKey string `yaml:"storage_key"`

	// Routes overrides the canonical route table. Flags other than
	// required and revisitAfterCompleted are ignored.
	Routes []progress.RouteEntry `yaml:"routes"`

	// EntryRoutes are the routes a participant may open directly, without
	// arriving from another page. Default: [welcome].
	EntryRoutes []string `yaml:"entry_routes"`

	Report ReportConfig `yaml:"report"`
	Remote RemoteConfig `yaml:"remote"`
	Server ServerConfig `yaml:"server"`
	Game   GameConfig   `yaml:"game"`

	// DB is the SQLite database path. Empty means store.DefaultDBPath.
	DB string `yaml:"db"`

	// Debug holds debug namespace filters such as "exp:*".
	Debug []string `yaml:"debug"`

	// LogFile receives log output while the terminal UI is running.
	LogFile string `yaml:"log_file"`
}

// ReportConfig configures round delivery.
type ReportConfig struct {
	MaxAttempts int           `yaml:"max_attempts"`
	Base        float64       `yaml:"base"`
	Unit        time.Duration `yaml:"unit"`
}

// RemoteConfig configures the remote data store.
type RemoteConfig struct {
	// DSN is a Postgres connection string, "memory" for an in-process
	// store, or empty to run without remote reporting.
	DSN string `yaml:"dsn"`

	// SignInAttempts bounds anonymous sign-in attempts. Default: 3.
	SignInAttempts int `yaml:"sign_in_attempts"`

	// SignInWait is the pause between sign-in attempts. Default: 1s.
	SignInWait time.Duration `yaml:"sign_in_wait"`

	// Timeout bounds each remote call made on a participant's behalf.
	// Default: 10s.
	Timeout time.Duration `yaml:"timeout"`
}

// GameConfig configures the coordination game.
type GameConfig struct {
	// Rounds is the number of rounds per participant. Default: 12.
	Rounds int `yaml:"rounds"`

	// ChoiceSet is "symbols" or "colors". Default: "symbols".
	ChoiceSet string `yaml:"choice_set"`

	Payoffs game.Payoffs `yaml:"payoffs"`
}

// ServerConfig configures the HTTP API.
type ServerConfig struct {
	Addr string `yaml:"addr"`
}

// Default returns a Config with sensible defaults.
func Default() Config {
	rc := report.DefaultConfig()
	return Config{
		Version:     SupportedMajor + ".0.0",
		Experiment:  "ccg",
		StorageKey:  progress.StorageKey,
		EntryRoutes: []string{progress.RouteWelcome},
		Report: ReportConfig{
			MaxAttempts: rc.MaxAttempts,
			Base:        rc.Base,
			Unit:        rc.Unit,
		},
		Remote: RemoteConfig{
			SignInAttempts: 3,
			SignInWait:     time.Second,
			Timeout:        10 * time.Second,
		},
		Server: ServerConfig{Addr: ":8080"},
		Game: GameConfig{
			Rounds:    game.DefaultConfig().Rounds,
			ChoiceSet: "symbols",
			Payoffs:   game.DefaultPayoffs(),
		},
	}
}

// Load reads the YAML file at path over the defaults. A missing file is
// not an error.
func Load(path string) (Config, error) {
	cfg := Default()
	if path == "" {
		return cfg, nil
	}
	raw, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return cfg, nil
	}
	if err != nil {
		return cfg, fmt.Errorf("read config: %w", err)
	}
	if err := yaml.Unmarshal(raw, &cfg); err != nil {
		return cfg, fmt.Errorf("parse config %s: %w", path, err)
	}
	if err := cfg.Validate(); err != nil {
		return cfg, fmt.Errorf("config %s: %w", path, err)
	}
	return cfg, nil
}

// FromEnv loads the file named by CCG_CONFIG, if any, and applies
// environment overrides.
func FromEnv() (Config, error) {
	cfg, err := Load(os.Getenv("CCG_CONFIG"))
	if err != nil {
		return cfg, err
	}
	cfg.ApplyEnv()
	return cfg, nil
}

// ApplyEnv overrides fields from environment variables.
func (c *Config) ApplyEnv() {
	if v := os.Getenv("CCG_DB"); v != "" {
		c.DB = v
	}
	if v := os.Getenv("CCG_REMOTE_DSN"); v != "" {
		c.Remote.DSN = v
	}
	if v := os.Getenv("CCG_DEBUG"); v != "" {
		c.Debug = logging.ParseFilters(v)
	}
	if v := os.Getenv("CCG_ADDR"); v != "" {
		c.Server.Addr = v
	}
	if v := os.Getenv("CCG_LOG_FILE"); v != "" {
		c.LogFile = v
	}
}

// Validate checks the version and route table.
func (c Config) Validate() error {
	if !semver.IsValid(c.Version) {
		return fmt.Errorf("invalid version %q", c.Version)
	}
	if major := semver.Major(c.Version); major != SupportedMajor {
		return fmt.Errorf("unsupported config version %s (want %s.x)", c.Version, SupportedMajor)
	}
	if len(c.Routes) > 0 {
		if _, err := progress.Initial(c.Routes); err != nil {
			return fmt.Errorf("routes: %w", err)
		}
	}
	if c.Report.MaxAttempts < 0 {
		return fmt.Errorf("report.max_attempts must not be negative")
	}
	switch c.Game.ChoiceSet {
	case "", "symbols", "colors":
	default:
		return fmt.Errorf("game.choice_set %q: want symbols or colors", c.Game.ChoiceSet)
	}
	return nil
}

// RouteTable returns the configured route table, or the canonical one.
func (c Config) RouteTable() []progress.RouteEntry {
	if len(c.Routes) == 0 {
		return progress.DefaultRoutes()
	}
	return c.Routes
}

// ReporterConfig converts the delivery settings for the report package.
func (c Config) ReporterConfig() report.Config {
	return report.Config{
		MaxAttempts: c.Report.MaxAttempts,
		Base:        c.Report.Base,
		Unit:        c.Report.Unit,
	}
}

// GameConfig converts the game settings for the game package.
func (c Config) GameConfig() game.Config {
	choices := game.Symbols
	if c.Game.ChoiceSet == "colors" {
		choices = game.Colors
	}
	return game.Config{Rounds: c.Game.Rounds, Choices: choices, Payoffs: c.Game.Payoffs}
}
