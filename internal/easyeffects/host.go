// Package easyeffects drives the control surfaces exposed by EasyEffects:
// its GSettings schema, its D-Bus service, its dconf keys, process signals
// and the JSON files under its configuration directory.
package easyeffects

import (
	"context"
	"errors"
	"strings"
	"syscall"
)

// Well-known names used by EasyEffects
const (
	Schema          = "com.github.wwmm.easyeffects"
	OutputPresetKey = "last-used-output-preset"
	InputPresetKey  = "last-used-input-preset"
	ReloadKeyPath   = "/com/github/wwmm/easyeffects/reload-presets"

	BusName       = "com.github.wwmm.easyeffects"
	BusPath       = "/com/github/wwmm/easyeffects"
	BusInterface  = "com.github.wwmm.easyeffects"
	BusMethodName = "load_preset"
	BusMethod     = BusInterface + "." + BusMethodName

	ServiceFlag = "--gapplication-service"
)

// Signals sent to running instances
const (
	ReloadSignal = syscall.SIGHUP
	UISignal     = syscall.SIGUSR1
)

var (
	// ErrNotRunning is returned when an operation needs a running instance
	ErrNotRunning = errors.New("easyeffects is not running")

	// ErrPresetFileNotFound is returned when no definition file exists for a preset
	ErrPresetFileNotFound = errors.New("preset file not found")
)

// Process is a running EasyEffects instance
type Process struct {
	PID     int
	Cmdline string
}

// IsService reports whether the instance runs as the background service
// rather than the interactive window
func (p Process) IsService() bool {
	return strings.Contains(p.Cmdline, ServiceFlag)
}

// Host is the set of operations used to steer EasyEffects. Every call is
// blocking and should be bounded by the caller's context.
type Host interface {
	// SetOutputPreset points the active output preset setting at name
	SetOutputPreset(ctx context.Context, name string) error

	// LoadPreset asks the running instance to load name over D-Bus
	LoadPreset(ctx context.Context, name string) error

	// ReloadPresets flips the reload trigger in the settings store
	ReloadPresets(ctx context.Context) error

	// Processes lists running instances; an empty list is not an error
	Processes(ctx context.Context) ([]Process, error)

	// Signal delivers sig to a single instance
	Signal(p Process, sig syscall.Signal) error

	// Start launches EasyEffects as a background service
	Start(ctx context.Context) error

	// Stop terminates every running instance
	Stop(ctx context.Context) error
}
