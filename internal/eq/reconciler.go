package eq

import (
	"context"
	"syscall"
	"time"

	"github.com/rs/zerolog"

	"github.com/jfmyers9/adaptive-eq/internal/easyeffects"
)

// Reconciler decides when the running EasyEffects may have drifted from the
// applied setting and performs the lightweight UI refresh.
type Reconciler struct {
	host     easyeffects.Host
	interval time.Duration
	timeout  time.Duration
	now      func() time.Time
	logger   zerolog.Logger
}

// ShouldForce reports whether applying preset given the last attempt rec
// must escalate to a resync: the preset changed, or the last attempt is
// older than the refresh interval. Nothing has drifted before the first
// attempt.
func (r *Reconciler) ShouldForce(rec Record, preset string) bool {
	if rec.IsZero() {
		return false
	}
	if preset != rec.Preset {
		return true
	}
	return r.now().Sub(rec.At) > r.interval
}

// ForceResync sends the reload signal to every instance and flips the reload
// trigger. UI instances also get the lighter UI signal so the window picks
// up the change without disturbing the audio service. Returns false without
// signalling anything when EasyEffects is not running.
func (r *Reconciler) ForceResync(ctx context.Context) bool {
	callCtx, cancel := context.WithTimeout(ctx, r.timeout)
	procs, err := r.host.Processes(callCtx)
	cancel()
	if err != nil {
		r.logger.Warn().Err(err).Msg("Failed to list EasyEffects processes")
		return false
	}
	if len(procs) == 0 {
		r.logger.Debug().Msg("EasyEffects not running, nothing to resync")
		return false
	}

	signalProcesses(r.host, procs, easyeffects.ReloadSignal, r.logger)

	reloadCtx, cancel := context.WithTimeout(ctx, r.timeout)
	if err := r.host.ReloadPresets(reloadCtx); err != nil {
		r.logger.Warn().Err(err).Msg("Reload trigger failed")
	}
	cancel()

	var ui []easyeffects.Process
	for _, p := range procs {
		if !p.IsService() {
			ui = append(ui, p)
		}
	}
	signalProcesses(r.host, ui, easyeffects.UISignal, r.logger)

	r.logger.Info().
		Int("instances", len(procs)).
		Int("ui_instances", len(ui)).
		Msg("Forced EasyEffects resync")
	return true
}

// signalProcesses sends sig to each process and returns how many were reached
func signalProcesses(host easyeffects.Host, procs []easyeffects.Process, sig syscall.Signal, logger zerolog.Logger) int {
	sent := 0
	for _, p := range procs {
		if err := host.Signal(p, sig); err != nil {
			logger.Warn().Err(err).Int("pid", p.PID).Msg("Failed to signal EasyEffects")
			continue
		}
		sent++
	}
	return sent
}
