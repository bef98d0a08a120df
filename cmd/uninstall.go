package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/jfmyers9/adaptive-eq/internal/daemon"
)

// uninstallCmd represents the uninstall command
var uninstallCmd = &cobra.Command{
	Use:   "uninstall",
	Short: "Remove the systemd user service",
	Long: `Stop and disable the adaptive-eq service and remove its unit file.

After uninstalling, the daemon will no longer start with the session.
Profiles and configuration are left in place.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		unitPath := daemon.GetUnitPath()

		if _, err := os.Stat(unitPath); os.IsNotExist(err) {
			fmt.Println("Service is not installed (unit file not found)")
			return nil
		}

		fmt.Println("Stopping service...")
		if err := systemctl("disable", "--now", daemon.UnitName); err != nil {
			fmt.Printf("Warning: failed to stop service: %v\n", err)
			fmt.Println("Continuing with unit removal...")
		} else {
			fmt.Println("✓ Service stopped")
		}

		if err := os.Remove(unitPath); err != nil {
			return fmt.Errorf("failed to remove unit file: %w", err)
		}
		fmt.Printf("✓ Removed unit from %s\n", unitPath)

		if err := systemctl("daemon-reload"); err != nil {
			fmt.Printf("Warning: %v\n", err)
		}

		fmt.Println("\nThe adaptive-eq service has been uninstalled.")
		fmt.Println("\nTo reinstall, run:")
		fmt.Println("  adaptive-eq install")

		return nil
	},
}

func init() {
	rootCmd.AddCommand(uninstallCmd)
}
