// Package doctor inspects the EasyEffects control surfaces used by the
// preset chain and reports which of them are usable.
package doctor

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/godbus/dbus/v5/introspect"
	"golang.org/x/sys/unix"

	"github.com/jfmyers9/adaptive-eq/internal/catalog"
	"github.com/jfmyers9/adaptive-eq/internal/easyeffects"
	"github.com/jfmyers9/adaptive-eq/internal/eq"
)

// Status is the result of a single check
type Status int

const (
	Pass Status = iota
	Warn
	Fail
)

// String returns the label printed for a status
func (s Status) String() string {
	switch s {
	case Pass:
		return "ok"
	case Warn:
		return "warn"
	case Fail:
		return "fail"
	default:
		return "unknown"
	}
}

// Check is one diagnostic result
type Check struct {
	Name   string
	Status Status
	Detail string
}

// Host is the read-only part of the EasyEffects controller
type Host interface {
	Processes(ctx context.Context) ([]easyeffects.Process, error)
	OutputPreset(ctx context.Context) (string, error)
	Introspect(ctx context.Context) (*introspect.Node, error)
}

// Catalog exposes the preset locations and their contents
type Catalog interface {
	Locations() catalog.Locations
	List(ctx context.Context) []string
}

// Applier applies a single preset
type Applier interface {
	Apply(ctx context.Context, preset string, force bool) eq.Result
}

// Doctor runs the diagnostic checks
type Doctor struct {
	host    Host
	catalog Catalog
	files   *easyeffects.Files
	timeout time.Duration

	// writable reports whether dir accepts new files
	writable func(dir string) bool
}

// New creates a Doctor. Each external call is bounded by timeout.
func New(host Host, cat Catalog, files *easyeffects.Files, timeout time.Duration) *Doctor {
	if timeout <= 0 {
		timeout = eq.DefaultOptions().CallTimeout
	}
	return &Doctor{
		host:     host,
		catalog:  cat,
		files:    files,
		timeout:  timeout,
		writable: func(dir string) bool { return unix.Access(dir, unix.W_OK) == nil },
	}
}

// Run performs every check in order
func (d *Doctor) Run(ctx context.Context) []Check {
	return []Check{
		d.checkProcesses(ctx),
		d.checkSchema(ctx),
		d.checkBus(ctx),
		d.checkPresets(ctx),
		d.checkConfigDir(),
	}
}

// Failed counts the checks with status Fail
func Failed(checks []Check) int {
	n := 0
	for _, c := range checks {
		if c.Status == Fail {
			n++
		}
	}
	return n
}

func (d *Doctor) checkProcesses(ctx context.Context) Check {
	c := Check{Name: "easyeffects running"}

	callCtx, cancel := context.WithTimeout(ctx, d.timeout)
	defer cancel()
	procs, err := d.host.Processes(callCtx)
	switch {
	case err != nil:
		c.Status, c.Detail = Fail, fmt.Sprintf("cannot list processes: %v", err)
	case len(procs) == 0:
		c.Status, c.Detail = Warn, "not running; the resync method starts it"
	default:
		parts := make([]string, 0, len(procs))
		for _, p := range procs {
			kind := "window"
			if p.IsService() {
				kind = "service"
			}
			parts = append(parts, fmt.Sprintf("pid %d (%s)", p.PID, kind))
		}
		c.Status, c.Detail = Pass, strings.Join(parts, ", ")
	}
	return c
}

func (d *Doctor) checkSchema(ctx context.Context) Check {
	c := Check{Name: "gsettings schema"}

	callCtx, cancel := context.WithTimeout(ctx, d.timeout)
	defer cancel()
	preset, err := d.host.OutputPreset(callCtx)
	if err != nil {
		c.Status, c.Detail = Fail, fmt.Sprintf("%s unavailable: %v", easyeffects.Schema, err)
		return c
	}
	c.Status, c.Detail = Pass, fmt.Sprintf("%s = %q", easyeffects.OutputPresetKey, preset)
	return c
}

// checkBus warns rather than fails: the chain falls back past the bus method
func (d *Doctor) checkBus(ctx context.Context) Check {
	c := Check{Name: "dbus interface"}

	callCtx, cancel := context.WithTimeout(ctx, d.timeout)
	defer cancel()
	node, err := d.host.Introspect(callCtx)
	if err != nil {
		c.Status, c.Detail = Warn, fmt.Sprintf("%s unavailable: %v", easyeffects.BusName, err)
		return c
	}
	if !exportsMethod(node, easyeffects.BusInterface, easyeffects.BusMethodName) {
		c.Status, c.Detail = Warn, fmt.Sprintf("%s does not export %s", easyeffects.BusPath, easyeffects.BusMethod)
		return c
	}
	c.Status, c.Detail = Pass, easyeffects.BusMethod
	return c
}

func (d *Doctor) checkPresets(ctx context.Context) Check {
	c := Check{Name: "preset files"}

	presets := d.catalog.List(ctx)
	if len(presets) == 0 {
		loc := d.catalog.Locations()
		dirs := append([]string{loc.User, loc.System}, loc.Legacy...)
		c.Status, c.Detail = Fail, "no presets in "+strings.Join(dirs, ", ")
		return c
	}

	const shown = 5
	names := presets
	more := ""
	if len(names) > shown {
		names = names[:shown]
		more = fmt.Sprintf(" and %d more", len(presets)-shown)
	}
	c.Status, c.Detail = Pass, fmt.Sprintf("%d presets: %s%s", len(presets), strings.Join(names, ", "), more)
	return c
}

func (d *Doctor) checkConfigDir() Check {
	c := Check{Name: "config directory"}
	dir := d.files.Dir()

	info, err := os.Stat(dir)
	switch {
	case errors.Is(err, os.ErrNotExist):
		c.Status, c.Detail = Warn, dir+" does not exist; it is created on the next resync"
		return c
	case err != nil:
		c.Status, c.Detail = Fail, err.Error()
		return c
	case !info.IsDir():
		c.Status, c.Detail = Fail, dir+" is not a directory"
		return c
	case !d.writable(dir):
		c.Status, c.Detail = Fail, dir+" is not writable"
		return c
	}

	if _, err := d.files.ReadConfig(); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			c.Status, c.Detail = Warn, "config.json missing; it is written on the next resync"
		} else {
			c.Status, c.Detail = Warn, fmt.Sprintf("config.json unreadable (%v); it is replaced on the next resync", err)
		}
		return c
	}

	c.Status, c.Detail = Pass, d.files.ConfigPath()
	return c
}

// exportsMethod reports whether node declares method on iface
func exportsMethod(node *introspect.Node, iface, method string) bool {
	if node == nil {
		return false
	}
	for _, i := range node.Interfaces {
		if i.Name != iface {
			continue
		}
		for _, m := range i.Methods {
			if m.Name == method {
				return true
			}
		}
	}
	return false
}

// Cycle applies each preset in turn and waits delay between them, calling
// report after every attempt. It returns the number of presets that were
// not applied and stops early when ctx ends.
func Cycle(ctx context.Context, applier Applier, presets []string, delay time.Duration, report func(eq.Result)) int {
	failed := 0
	for i, preset := range presets {
		if ctx.Err() != nil {
			return failed + len(presets) - i
		}

		res := applier.Apply(ctx, preset, false)
		if !res.Outcome.Applied() {
			failed++
		}
		report(res)

		if i == len(presets)-1 || delay <= 0 {
			continue
		}
		t := time.NewTimer(delay)
		select {
		case <-ctx.Done():
			t.Stop()
		case <-t.C:
		}
	}
	return failed
}
