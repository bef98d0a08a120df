package cmd

import (
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/jfmyers9/adaptive-eq/internal/daemon"
)

// installCmd represents the install command
var installCmd = &cobra.Command{
	Use:   "install",
	Short: "Install the daemon as a systemd user service",
	Long: `Install the adaptive-eq daemon as a systemd user service that starts with
the graphical session.

This command will:
  - Generate a unit file for the adaptive-eq daemon
  - Install it to ~/.config/systemd/user/
  - Enable and start it with systemctl --user

Logs go to the journal: journalctl --user -u adaptive-eq.`,
	RunE: runInstall,
}

func init() {
	rootCmd.AddCommand(installCmd)

	installCmd.Flags().String("log-level", "", "Log level for the service (default: info)")
}

func runInstall(cmd *cobra.Command, args []string) error {
	binaryPath, err := os.Executable()
	if err != nil {
		return fmt.Errorf("failed to get executable path: %w", err)
	}

	// Resolve symlinks to get the actual binary path
	binaryPath, err = filepath.EvalSymlinks(binaryPath)
	if err != nil {
		return fmt.Errorf("failed to resolve executable path: %w", err)
	}

	home, err := os.UserHomeDir()
	if err != nil {
		return fmt.Errorf("failed to get home directory: %w", err)
	}

	logLevel, _ := cmd.Flags().GetString("log-level")
	unit, err := daemon.GenerateUnit(daemon.UnitConfig{
		BinaryPath:       binaryPath,
		WorkingDirectory: home,
		LogLevel:         logLevel,
	})
	if err != nil {
		return err
	}

	unitPath := daemon.GetUnitPath()
	if err := os.MkdirAll(filepath.Dir(unitPath), 0755); err != nil {
		return fmt.Errorf("failed to create unit directory: %w", err)
	}

	if _, err := os.Stat(unitPath); err == nil {
		fmt.Println("Service is already installed. Replacing it...")
		if err := systemctl("disable", "--now", daemon.UnitName); err != nil {
			fmt.Printf("Warning: failed to stop existing service: %v\n", err)
		}
	}

	if err := os.WriteFile(unitPath, []byte(unit), 0644); err != nil {
		return fmt.Errorf("failed to write unit file: %w", err)
	}
	fmt.Printf("✓ Installed unit to %s\n", unitPath)

	if err := systemctl("daemon-reload"); err != nil {
		return err
	}
	if err := systemctl("enable", "--now", daemon.UnitName); err != nil {
		return err
	}

	fmt.Println("✓ Service enabled and started")
	fmt.Println("\nYou can check the service status with:")
	fmt.Println("  systemctl --user status adaptive-eq")
	fmt.Println("\nTo uninstall, run:")
	fmt.Println("  adaptive-eq uninstall")

	return nil
}

// systemctl runs systemctl --user with args
func systemctl(args ...string) error {
	cmd := exec.Command("systemctl", append([]string{"--user"}, args...)...)
	output, err := cmd.CombinedOutput()
	if err != nil {
		if msg := strings.TrimSpace(string(output)); msg != "" {
			return fmt.Errorf("systemctl %s: %s", strings.Join(args, " "), msg)
		}
		return fmt.Errorf("systemctl %s: %w", strings.Join(args, " "), err)
	}
	return nil
}
