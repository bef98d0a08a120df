package easyeffects

import (
	"bytes"
	"context"
	"encoding/xml"
	"errors"
	"fmt"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"
	"syscall"

	"github.com/godbus/dbus/v5"
	"github.com/godbus/dbus/v5/introspect"
	"golang.org/x/sys/unix"
)

const introspectMethod = "org.freedesktop.DBus.Introspectable.Introspect"

// Controller implements Host using gsettings, dconf, pgrep and the session bus
type Controller struct {
	binary string

	// connect returns the shared session bus connection. It is called on
	// every use so a dropped connection is replaced.
	connect func() (*dbus.Conn, error)
}

// NewController creates a Controller for the given EasyEffects binary
func NewController(binary string) *Controller {
	if binary == "" {
		binary = "easyeffects"
	}
	return &Controller{binary: binary, connect: dbus.SessionBus}
}

// SetOutputPreset runs gsettings set on the output preset key
func (c *Controller) SetOutputPreset(ctx context.Context, name string) error {
	if err := run(ctx, "gsettings", "set", Schema, OutputPresetKey, name); err != nil {
		return fmt.Errorf("gsettings set %s: %w", OutputPresetKey, err)
	}
	return nil
}

// OutputPreset reads the output preset key back from gsettings
func (c *Controller) OutputPreset(ctx context.Context) (string, error) {
	out, err := output(ctx, "gsettings", "get", Schema, OutputPresetKey)
	if err != nil {
		return "", fmt.Errorf("gsettings get %s: %w", OutputPresetKey, err)
	}
	return strings.Trim(strings.TrimSpace(out), "'"), nil
}

// LoadPreset calls load_preset on the EasyEffects bus object
func (c *Controller) LoadPreset(ctx context.Context, name string) error {
	conn, err := c.connect()
	if err != nil {
		return fmt.Errorf("connect session bus: %w", err)
	}

	obj := conn.Object(BusName, dbus.ObjectPath(BusPath))
	call := obj.CallWithContext(ctx, BusMethod, 0, name)
	if call.Err != nil {
		return fmt.Errorf("dbus %s: %w", BusMethod, call.Err)
	}
	return nil
}

// ReloadPresets writes true to the reload-presets dconf key
func (c *Controller) ReloadPresets(ctx context.Context) error {
	if err := run(ctx, "dconf", "write", ReloadKeyPath, "true"); err != nil {
		return fmt.Errorf("dconf write %s: %w", ReloadKeyPath, err)
	}
	return nil
}

// Processes lists instances whose process name matches the binary
func (c *Controller) Processes(ctx context.Context) ([]Process, error) {
	out, err := output(ctx, "pgrep", "-a", "-x", processName(c.binary))
	if err != nil {
		// pgrep exits 1 when nothing matched
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) && exitErr.ExitCode() == 1 {
			return nil, nil
		}
		return nil, fmt.Errorf("pgrep %s: %w", c.binary, err)
	}
	return parseProcesses(out), nil
}

// Signal sends sig to p
func (c *Controller) Signal(p Process, sig syscall.Signal) error {
	if err := unix.Kill(p.PID, sig); err != nil {
		return fmt.Errorf("signal %s to pid %d: %w", unix.SignalName(sig), p.PID, err)
	}
	return nil
}

// Start launches the service in its own session and reaps it in the background
func (c *Controller) Start(ctx context.Context) error {
	cmd := exec.Command(c.binary, ServiceFlag)
	cmd.SysProcAttr = &syscall.SysProcAttr{Setsid: true}
	if err := cmd.Start(); err != nil {
		return fmt.Errorf("start %s: %w", c.binary, err)
	}
	go func() { _ = cmd.Wait() }()
	return nil
}

// Stop sends SIGTERM to every running instance
func (c *Controller) Stop(ctx context.Context) error {
	procs, err := c.Processes(ctx)
	if err != nil {
		return err
	}
	var errs []error
	for _, p := range procs {
		if err := c.Signal(p, syscall.SIGTERM); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Introspect returns the description of the EasyEffects bus object
func (c *Controller) Introspect(ctx context.Context) (*introspect.Node, error) {
	conn, err := c.connect()
	if err != nil {
		return nil, fmt.Errorf("connect session bus: %w", err)
	}

	var data string
	obj := conn.Object(BusName, dbus.ObjectPath(BusPath))
	if err := obj.CallWithContext(ctx, introspectMethod, 0).Store(&data); err != nil {
		return nil, fmt.Errorf("introspect %s: %w", BusName, err)
	}

	var node introspect.Node
	if err := xml.Unmarshal([]byte(data), &node); err != nil {
		return nil, fmt.Errorf("parse introspection data: %w", err)
	}
	return &node, nil
}

// parseProcesses parses "PID cmdline" lines from pgrep -a
func parseProcesses(out string) []Process {
	var procs []Process
	for _, line := range strings.Split(out, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		pidStr, cmdline, _ := strings.Cut(line, " ")
		pid, err := strconv.Atoi(pidStr)
		if err != nil || pid <= 0 {
			continue
		}
		procs = append(procs, Process{PID: pid, Cmdline: strings.TrimSpace(cmdline)})
	}
	return procs
}

// processName returns the kernel process name pgrep -x matches against,
// which is truncated to 15 bytes
func processName(binary string) string {
	name := filepath.Base(binary)
	if len(name) > 15 {
		name = name[:15]
	}
	return name
}

func run(ctx context.Context, name string, args ...string) error {
	_, err := output(ctx, name, args...)
	return err
}

func output(ctx context.Context, name string, args ...string) (string, error) {
	var stderr bytes.Buffer
	cmd := exec.CommandContext(ctx, name, args...)
	cmd.Stderr = &stderr
	out, err := cmd.Output()
	if err != nil {
		if msg := strings.TrimSpace(stderr.String()); msg != "" {
			return "", fmt.Errorf("%w: %s", err, msg)
		}
		return "", err
	}
	return string(out), nil
}
