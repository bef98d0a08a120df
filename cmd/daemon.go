package cmd

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/jfmyers9/adaptive-eq/internal/daemon"
	"github.com/jfmyers9/adaptive-eq/internal/logging"
	"github.com/jfmyers9/adaptive-eq/internal/player"
	"github.com/jfmyers9/adaptive-eq/internal/profiles"
)

var (
	daemonLogFile  string
	daemonLogLevel string
	daemonRestart  bool
)

// daemonCmd represents the daemon command
var daemonCmd = &cobra.Command{
	Use:   "daemon",
	Short: "Run the adaptive EQ daemon",
	Long: `Run the daemon that follows the MPRIS player and switches EasyEffects presets.

The daemon will:
- Poll the player every few seconds to detect artist changes
- Look the artist up in the profiles database (falling back to the default preset)
- Apply the preset to EasyEffects, forcing a resync when the preset changed
  or the last attempt is older than the refresh interval
- Toggle adaptive mode on SIGUSR1
- Handle graceful shutdown on SIGINT/SIGTERM

Profiles are read once at start; restart the daemon after editing them.
The daemon runs in the foreground and logs to stderr by default.`,
	RunE: runDaemon,
}

func init() {
	rootCmd.AddCommand(daemonCmd)

	daemonCmd.Flags().StringVar(&daemonLogFile, "log-file", "", "Log file path (default: stderr)")
	daemonCmd.Flags().StringVar(&daemonLogLevel, "log-level", "info", "Log level (debug, info, warn, error)")
	daemonCmd.Flags().BoolVar(&daemonRestart, "restart-easyeffects", false, "Restart a running EasyEffects during forced resyncs")
}

func runDaemon(cmd *cobra.Command, args []string) error {
	logger := logging.New(daemonLogFile, daemonLogLevel)

	a, err := newApp(logger, daemonRestart)
	if err != nil {
		return logging.Wrap(logger, "load config", err)
	}
	cfg := a.cfg

	logger.Info().
		Str("version", version).
		Str("player", cfg.Player).
		Msg("Starting adaptive-eq daemon")

	// Snapshot profiles, the store is not held open while running
	store, err := openStore(cfg)
	if err != nil {
		return logging.Wrap(logger, "open profiles", err)
	}
	resolver, err := profiles.NewResolver(context.Background(), store, cfg.DefaultPreset)
	_ = store.Close()
	if err != nil {
		return logging.Wrap(logger, "load profiles", fmt.Errorf("failed to load profiles: %w", err))
	}

	logger.Info().
		Int("profiles", resolver.Len()).
		Str("default_preset", resolver.Default()).
		Strs("presets", a.catalog.List(context.Background())).
		Msg("Loaded profiles")

	d, err := daemon.New(daemon.Config{
		PollInterval:   cfg.PollInterval,
		PollTimeout:    cfg.CallTimeout,
		ResyncInterval: cfg.ResyncInterval,
		StateFile:      cfg.StateFile,
	}, player.NewMPRISClient(cfg.Player), a.applier, resolver, logger)
	if err != nil {
		return logging.Wrap(logger, "create daemon", err)
	}

	// Run daemon (blocks until shutdown signal)
	if err := d.Run(); err != nil {
		return logging.Wrap(logger, "run daemon", fmt.Errorf("daemon error: %w", err))
	}

	return nil
}
