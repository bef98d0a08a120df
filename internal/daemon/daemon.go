package daemon

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/rs/zerolog"

	"github.com/jfmyers9/adaptive-eq/internal/eq"
	"github.com/jfmyers9/adaptive-eq/internal/player"
)

// ToggleSignal switches adaptive mode on and off
const ToggleSignal = syscall.SIGUSR1

// Config holds daemon configuration
type Config struct {
	PollInterval   time.Duration // How often to poll the player
	PollTimeout    time.Duration // Bound for a single poll
	ResyncInterval time.Duration // Periodic UI resync, 0 disables it
	StateFile      string        // Status snapshot for the now command
}

// Applier applies presets to EasyEffects
type Applier interface {
	Apply(ctx context.Context, preset string, force bool) eq.Result
	ForceResync(ctx context.Context) bool
}

// Resolver maps an artist to a preset
type Resolver interface {
	Resolve(artist string) string
}

// Daemon coordinates the player poller, artist tracking and preset application
type Daemon struct {
	config   Config
	applier  Applier
	resolver Resolver
	state    *State
	poller   *Poller
	logger   zerolog.Logger
}

// New creates a new Daemon instance
func New(cfg Config, client player.Client, applier Applier, resolver Resolver, logger zerolog.Logger) (*Daemon, error) {
	if cfg.PollInterval <= 0 {
		return nil, fmt.Errorf("poll interval must be positive, got %s", cfg.PollInterval)
	}

	return &Daemon{
		config:   cfg,
		applier:  applier,
		resolver: resolver,
		state:    NewState(cfg.StateFile),
		poller:   NewPoller(client, cfg.PollInterval, cfg.PollTimeout, logger),
		logger:   logger.With().Str("component", "daemon").Logger(),
	}, nil
}

// Run starts the daemon and blocks until shutdown signal received
func (d *Daemon) Run() error {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(sigChan)

	toggleChan := make(chan os.Signal, 1)
	signal.Notify(toggleChan, ToggleSignal)
	defer signal.Stop(toggleChan)

	// Handle first signal gracefully, second signal forces exit
	go func() {
		<-sigChan
		d.logger.Info().Msg("Shutdown signal received, initiating graceful shutdown")
		cancel()

		<-sigChan
		d.logger.Warn().Msg("Second shutdown signal received, forcing exit")
		os.Exit(1)
	}()

	go func() {
		for {
			select {
			case <-ctx.Done():
				return
			case <-toggleChan:
				d.Toggle()
			}
		}
	}()

	if err := d.run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}

	return nil
}

// run is the main daemon loop
func (d *Daemon) run(ctx context.Context) error {
	d.logger.Info().
		Dur("poll_interval", d.config.PollInterval).
		Dur("resync_interval", d.config.ResyncInterval).
		Msg("Starting daemon")

	var wg sync.WaitGroup

	// Unbuffered so one update is fully handled before the next poll lands
	updates := make(chan TrackUpdate)

	wg.Add(1)
	go func() {
		defer wg.Done()
		if err := d.poller.Run(ctx, updates); err != nil && !errors.Is(err, context.Canceled) {
			d.logger.Error().Err(err).Msg("Poller error")
		}
	}()

	if d.config.ResyncInterval > 0 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			d.resyncLoop(ctx)
		}()
	}

	wg.Add(1)
	go func() {
		defer wg.Done()
		d.handleUpdates(ctx, updates)
	}()

	wg.Wait()

	d.logger.Info().Msg("Daemon stopped")
	return nil
}

// handleUpdates processes track updates from the poller
func (d *Daemon) handleUpdates(ctx context.Context, updates <-chan TrackUpdate) {
	for {
		select {
		case <-ctx.Done():
			return
		case update := <-updates:
			if update.Err != nil {
				d.logger.Debug().Err(update.Err).Msg("Track update error")
				continue
			}

			// The applier logs its own failures
			if err := d.handleTrackUpdate(ctx, update.Track); err != nil {
				d.logger.Debug().Err(err).Msg("Track update not applied")
			}
		}
	}
}

// handleTrackUpdate applies the preset for a newly observed artist
func (d *Daemon) handleTrackUpdate(ctx context.Context, track *player.Track) error {
	if !d.state.Observe(track) {
		return nil
	}

	d.logger.Info().
		Str("artist", track.Artist).
		Str("track", track.Title).
		Msg("Artist changed")

	if d.state.Paused() {
		d.logger.Debug().Str("artist", track.Artist).Msg("Adaptive mode paused, not applying")
		return nil
	}

	preset := d.resolver.Resolve(track.Artist)
	res := d.applier.Apply(ctx, preset, false)

	if err := d.state.SetApplied(preset, res.Outcome.String()); err != nil {
		d.logger.Warn().Err(err).Msg("Failed to write status")
	}

	return res.Err()
}

// resyncLoop periodically refreshes the EasyEffects UI
func (d *Daemon) resyncLoop(ctx context.Context) {
	ticker := time.NewTicker(d.config.ResyncInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if d.state.Paused() {
				continue
			}
			if !d.applier.ForceResync(ctx) {
				d.logger.Debug().Msg("Periodic resync skipped, EasyEffects not running")
			}
		}
	}
}

// Pause stops applying presets. Artist changes are still tracked.
func (d *Daemon) Pause() {
	if err := d.state.SetPaused(true); err != nil {
		d.logger.Warn().Err(err).Msg("Failed to write status")
	}
	d.logger.Info().Msg("Adaptive mode paused")
}

// Resume turns adaptive mode back on. The next playing track is applied.
func (d *Daemon) Resume() {
	if err := d.state.SetPaused(false); err != nil {
		d.logger.Warn().Err(err).Msg("Failed to write status")
	}
	d.logger.Info().Msg("Adaptive mode resumed")
}

// Toggle flips adaptive mode
func (d *Daemon) Toggle() {
	if d.state.Paused() {
		d.Resume()
		return
	}
	d.Pause()
}

// Status returns the current status snapshot
func (d *Daemon) Status() Status {
	return d.state.Status()
}
