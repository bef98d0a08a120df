// Package eq applies EasyEffects presets reliably.
//
// EasyEffects exposes several loosely coupled control surfaces and is known
// to accept a new setting without updating what is heard or shown. Applier
// tries the surfaces in a fixed order and escalates to a full resync when
// the preset changed or the last attempt is stale. Reconciler owns that
// escalation rule and the standalone UI refresh.
package eq

import (
	"context"
	"fmt"
	"sync"
	"syscall"
	"time"

	"github.com/rs/zerolog"

	"github.com/jfmyers9/adaptive-eq/internal/easyeffects"
)

// Catalog is the subset of catalog.Resolver the chain needs
type Catalog interface {
	List(ctx context.Context) []string
	SourceFile(name string) (string, bool)
}

// Options tunes the application chain
type Options struct {
	RefreshInterval time.Duration // Force a resync once the last attempt is this old
	CallTimeout     time.Duration // Bound for each external call
	SettleDelay     time.Duration // Wait after (re)starting EasyEffects
	RestartRunning  bool          // Resync restarts an already running instance
}

// DefaultOptions returns the standard timings
func DefaultOptions() Options {
	return Options{
		RefreshInterval: 30 * time.Second,
		CallTimeout:     3 * time.Second,
		SettleDelay:     1 * time.Second,
	}
}

// Applier runs the preset application chain. Apply and ForceResync are
// serialized; the attempt record is only touched with mu held.
type Applier struct {
	mu     sync.Mutex
	record Record

	catalog    Catalog
	host       easyeffects.Host
	files      *easyeffects.Files
	reconciler *Reconciler
	opts       Options
	logger     zerolog.Logger

	now   func() time.Time
	sleep func(ctx context.Context, d time.Duration)
}

// NewApplier creates an Applier
func NewApplier(catalog Catalog, host easyeffects.Host, files *easyeffects.Files, opts Options, logger zerolog.Logger) *Applier {
	if opts.RefreshInterval <= 0 {
		opts.RefreshInterval = DefaultOptions().RefreshInterval
	}
	if opts.CallTimeout <= 0 {
		opts.CallTimeout = DefaultOptions().CallTimeout
	}

	a := &Applier{
		catalog: catalog,
		host:    host,
		files:   files,
		opts:    opts,
		logger:  logger.With().Str("component", "eq").Logger(),
		now:     time.Now,
		sleep:   sleepContext,
	}
	a.reconciler = &Reconciler{
		host:     host,
		interval: opts.RefreshInterval,
		timeout:  opts.CallTimeout,
		now:      func() time.Time { return a.now() },
		logger:   logger.With().Str("component", "reconciler").Logger(),
	}
	return a
}

// Record returns the most recent attempt
func (a *Applier) Record() Record {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.record
}

// ShouldForce reports whether applying preset now would force a resync
func (a *Applier) ShouldForce(preset string) bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.reconciler.ShouldForce(a.record, preset)
}

// ForceResync refreshes a running EasyEffects without changing the preset.
// It returns false when no instance is running.
func (a *Applier) ForceResync(ctx context.Context) bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.reconciler.ForceResync(ctx)
}

// Apply applies preset. A preset missing from the catalog is rejected
// without side effects. Otherwise property, bus and file methods run in
// order and the first success returns early, unless force was requested or
// implied by the reconciler, in which case the resync method always runs.
func (a *Applier) Apply(ctx context.Context, preset string, force bool) Result {
	a.mu.Lock()
	defer a.mu.Unlock()

	res := Result{Preset: preset, Outcome: FailedAllMethods}

	if !contains(a.catalog.List(ctx), preset) {
		res.Outcome = RejectedNotFound
		a.logger.Warn().Str("preset", preset).Msg("Preset not found in catalog")
		return res
	}

	res.Forced = force || a.reconciler.ShouldForce(a.record, preset)
	startedAt := a.now()

	a.logger.Debug().
		Str("preset", preset).
		Bool("forced", res.Forced).
		Msg("Applying preset")

	best := FailedAllMethods
	steps := []struct {
		method Method
		fn     func(context.Context, string) (Outcome, error)
	}{
		{MethodProperty, a.applyProperty},
		{MethodBus, a.applyBus},
		{MethodFile, a.applyFile},
	}

	for _, step := range steps {
		mr := a.attempt(ctx, step.method, preset, step.fn)
		res.Methods = append(res.Methods, mr)
		best = better(best, mr.Outcome)

		if !res.Forced && mr.Outcome == AppliedConfirmed {
			res.Outcome = AppliedConfirmed
			a.finish(preset, startedAt, res)
			return res
		}
	}

	// Either forced, or none of the cheaper methods confirmed
	mr := a.attempt(ctx, MethodResync, preset, a.resync)
	res.Methods = append(res.Methods, mr)
	if mr.Err == nil {
		res.Outcome = AppliedConfirmed
	} else {
		res.Outcome = best
	}

	a.finish(preset, startedAt, res)
	return res
}

// attempt runs one method, containing any error or panic it produces
func (a *Applier) attempt(ctx context.Context, m Method, preset string, fn func(context.Context, string) (Outcome, error)) (mr MethodResult) {
	mr.Method = m
	defer func() {
		if r := recover(); r != nil {
			mr.Outcome = FailedAllMethods
			mr.Err = fmt.Errorf("panic: %v", r)
			a.logger.Warn().Err(mr.Err).Str("method", m.String()).Msg("Method panicked")
		}
	}()

	outcome, err := fn(ctx, preset)
	if err != nil {
		a.logger.Warn().
			Err(err).
			Str("method", m.String()).
			Str("preset", preset).
			Msg("Method failed")
		return MethodResult{Method: m, Outcome: FailedAllMethods, Err: err}
	}

	a.logger.Debug().
		Str("method", m.String()).
		Str("preset", preset).
		Str("outcome", outcome.String()).
		Msg("Method completed")
	return MethodResult{Method: m, Outcome: outcome}
}

// finish updates the attempt record and logs the result. The timestamp is
// the attempt start so the refresh interval counts from the last try,
// successful or not.
func (a *Applier) finish(preset string, at time.Time, res Result) {
	last := MethodNone
	if n := len(res.Methods); n > 0 {
		last = res.Methods[n-1].Method
	}
	a.record = Record{Preset: preset, At: at, Method: last, Outcome: res.Outcome}

	if res.Outcome == FailedAllMethods {
		a.logger.Error().
			Err(res.Err()).
			Str("preset", preset).
			Bool("forced", res.Forced).
			Msg("Failed to apply preset")
		return
	}

	a.logger.Info().
		Str("preset", preset).
		Str("outcome", res.Outcome.String()).
		Str("method", last.String()).
		Bool("forced", res.Forced).
		Msg("Applied preset")
}

// applyProperty points the output preset setting at preset
func (a *Applier) applyProperty(ctx context.Context, preset string) (Outcome, error) {
	callCtx, cancel := context.WithTimeout(ctx, a.opts.CallTimeout)
	defer cancel()

	if err := a.host.SetOutputPreset(callCtx, preset); err != nil {
		return FailedAllMethods, err
	}
	return AppliedConfirmed, nil
}

// applyBus asks the running instance to load preset
func (a *Applier) applyBus(ctx context.Context, preset string) (Outcome, error) {
	callCtx, cancel := context.WithTimeout(ctx, a.opts.CallTimeout)
	defer cancel()

	if err := a.host.LoadPreset(callCtx, preset); err != nil {
		return FailedAllMethods, err
	}
	return AppliedConfirmed, nil
}

// applyFile writes the preset definition to the current preset file, then
// signals every instance and flips the reload trigger. Without a running
// instance to signal the write cannot be confirmed.
func (a *Applier) applyFile(ctx context.Context, preset string) (Outcome, error) {
	src, ok := a.catalog.SourceFile(preset)
	if !ok {
		return FailedAllMethods, fmt.Errorf("%w: %s", easyeffects.ErrPresetFileNotFound, preset)
	}
	if err := a.files.MaterializePreset(src); err != nil {
		return FailedAllMethods, err
	}

	signalled := a.signalAll(ctx, easyeffects.ReloadSignal)
	a.reloadPresets(ctx)

	if signalled == 0 {
		return AppliedUnconfirmed, nil
	}
	return AppliedConfirmed, nil
}

// resync rewrites the configuration document with preset embedded, starts
// EasyEffects when it is not running (or restarts it when configured to),
// and reissues the property set and reload trigger.
func (a *Applier) resync(ctx context.Context, preset string) (Outcome, error) {
	if err := a.files.MergeConfig(preset); err != nil {
		return FailedAllMethods, fmt.Errorf("write config: %w", err)
	}

	procs, err := a.processes(ctx)
	if err != nil {
		a.logger.Warn().Err(err).Msg("Failed to list EasyEffects processes")
	}

	switch {
	case len(procs) == 0:
		a.logger.Info().Msg("EasyEffects is not running, starting it")
		if err := a.start(ctx); err != nil {
			return FailedAllMethods, err
		}
	case a.opts.RestartRunning:
		a.logger.Info().Int("instances", len(procs)).Msg("Restarting EasyEffects")
		stopCtx, cancel := context.WithTimeout(ctx, a.opts.CallTimeout)
		if err := a.host.Stop(stopCtx); err != nil {
			a.logger.Warn().Err(err).Msg("Failed to stop EasyEffects")
		}
		cancel()
		a.sleep(ctx, a.opts.SettleDelay)
		if err := a.start(ctx); err != nil {
			return FailedAllMethods, err
		}
	}

	callCtx, cancel := context.WithTimeout(ctx, a.opts.CallTimeout)
	defer cancel()
	if err := a.host.SetOutputPreset(callCtx, preset); err != nil {
		a.logger.Warn().Err(err).Msg("Resync property set failed")
	}
	a.reloadPresets(ctx)

	return AppliedConfirmed, nil
}

func (a *Applier) start(ctx context.Context) error {
	startCtx, cancel := context.WithTimeout(ctx, a.opts.CallTimeout)
	defer cancel()
	if err := a.host.Start(startCtx); err != nil {
		return fmt.Errorf("start easyeffects: %w", err)
	}
	a.sleep(ctx, a.opts.SettleDelay)

	procs, err := a.processes(ctx)
	if err != nil || len(procs) == 0 {
		a.logger.Warn().Err(err).Msg("EasyEffects not visible after start")
	}
	return nil
}

func (a *Applier) processes(ctx context.Context) ([]easyeffects.Process, error) {
	callCtx, cancel := context.WithTimeout(ctx, a.opts.CallTimeout)
	defer cancel()
	return a.host.Processes(callCtx)
}

// signalAll sends sig to every instance and returns how many received it
func (a *Applier) signalAll(ctx context.Context, sig syscall.Signal) int {
	procs, err := a.processes(ctx)
	if err != nil {
		a.logger.Warn().Err(err).Msg("Failed to list EasyEffects processes")
		return 0
	}
	return signalProcesses(a.host, procs, sig, a.logger)
}

func (a *Applier) reloadPresets(ctx context.Context) {
	callCtx, cancel := context.WithTimeout(ctx, a.opts.CallTimeout)
	defer cancel()
	if err := a.host.ReloadPresets(callCtx); err != nil {
		a.logger.Warn().Err(err).Msg("Reload trigger failed")
	}
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}

func sleepContext(ctx context.Context, d time.Duration) {
	if d <= 0 {
		return
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
	case <-t.C:
	}
}
