package cmd

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/rs/zerolog"

	"github.com/jfmyers9/adaptive-eq/internal/catalog"
	"github.com/jfmyers9/adaptive-eq/internal/config"
	"github.com/jfmyers9/adaptive-eq/internal/easyeffects"
	"github.com/jfmyers9/adaptive-eq/internal/eq"
	"github.com/jfmyers9/adaptive-eq/internal/logging"
	"github.com/jfmyers9/adaptive-eq/internal/profiles"
)

// app bundles the components shared by the commands
type app struct {
	cfg        *config.Config
	logger     zerolog.Logger
	catalog    *catalog.Resolver
	controller *easyeffects.Controller
	files      *easyeffects.Files
	applier    *eq.Applier
}

// cliLogLevel is used by the one-shot commands; the daemon has its own flag
const cliLogLevel = "warn"

// newApp loads configuration and builds the EasyEffects side of the stack
func newApp(logger zerolog.Logger, restartRunning bool) (*app, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}

	cat := catalog.New(catalog.Locations{
		User:   cfg.EasyEffects.UserDir,
		System: cfg.EasyEffects.SystemDir,
		Legacy: cfg.EasyEffects.LegacyDirs,
	}, logger)

	controller := easyeffects.NewController(cfg.EasyEffects.Binary)
	files := easyeffects.NewFiles(cfg.EasyEffects.ConfigDir)

	applier := eq.NewApplier(cat, controller, files, eq.Options{
		RefreshInterval: cfg.RefreshInterval,
		CallTimeout:     cfg.CallTimeout,
		SettleDelay:     cfg.SettleDelay,
		RestartRunning:  restartRunning,
	}, logger)

	return &app{
		cfg:        cfg,
		logger:     logger,
		catalog:    cat,
		controller: controller,
		files:      files,
		applier:    applier,
	}, nil
}

// newCLIApp is newApp with the quiet command-line logger
func newCLIApp() (*app, error) {
	return newApp(logging.New("", cliLogLevel), false)
}

// openStore opens the profiles database, creating its directory
func openStore(cfg *config.Config) (*profiles.Store, error) {
	if err := os.MkdirAll(filepath.Dir(cfg.ProfilesDB), 0755); err != nil {
		return nil, fmt.Errorf("failed to create data directory: %w", err)
	}
	store, err := profiles.Open(cfg.ProfilesDB)
	if err != nil {
		return nil, fmt.Errorf("failed to open profiles database: %w", err)
	}
	return store, nil
}
