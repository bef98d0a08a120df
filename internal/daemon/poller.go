package daemon

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"github.com/jfmyers9/adaptive-eq/internal/player"
)

// TrackUpdate represents an update from the player client
type TrackUpdate struct {
	Track *player.Track // Current track (nil if stopped/no player)
	Err   error         // Error from player client
}

// Poller polls the player client at regular intervals
type Poller struct {
	client   player.Client
	interval time.Duration
	timeout  time.Duration
	logger   zerolog.Logger
}

// NewPoller creates a new Poller instance. Each poll is bounded by timeout
// when it is positive.
func NewPoller(client player.Client, interval, timeout time.Duration, logger zerolog.Logger) *Poller {
	return &Poller{
		client:   client,
		interval: interval,
		timeout:  timeout,
		logger:   logger.With().Str("component", "poller").Logger(),
	}
}

// Run starts the polling loop and sends updates to the provided channel.
// Blocks until context is cancelled.
func (p *Poller) Run(ctx context.Context, updates chan<- TrackUpdate) error {
	p.logger.Info().
		Dur("interval", p.interval).
		Msg("Starting poller")

	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	// Poll immediately on start
	p.poll(ctx, updates)

	for {
		select {
		case <-ctx.Done():
			p.logger.Info().Msg("Poller stopped")
			return ctx.Err()
		case <-ticker.C:
			p.poll(ctx, updates)
		}
	}
}

// poll queries the player and sends an update
func (p *Poller) poll(ctx context.Context, updates chan<- TrackUpdate) {
	pollCtx := ctx
	if p.timeout > 0 {
		var cancel context.CancelFunc
		pollCtx, cancel = context.WithTimeout(ctx, p.timeout)
		defer cancel()
	}

	track, err := p.client.CurrentTrack(pollCtx)
	if err != nil {
		p.logger.Debug().Err(err).Msg("Error getting current track")
		select {
		case updates <- TrackUpdate{Err: err}:
		case <-ctx.Done():
		}
		return
	}

	select {
	case updates <- TrackUpdate{Track: track}:
		if track != nil {
			p.logger.Debug().
				Str("track", track.Title).
				Str("artist", track.Artist).
				Str("state", track.State.String()).
				Msg("Poll update")
		}
	case <-ctx.Done():
	}
}
