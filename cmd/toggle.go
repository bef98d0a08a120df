package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
	"golang.org/x/sys/unix"

	"github.com/jfmyers9/adaptive-eq/internal/daemon"
)

// toggleCmd represents the toggle command
var toggleCmd = &cobra.Command{
	Use:   "toggle",
	Short: "Pause or resume adaptive mode in the running daemon",
	Long: `Pause or resume adaptive mode by sending SIGUSR1 to the daemon.

While paused the daemon keeps following the player but does not change
presets. On resume the current artist's preset is applied.

By default the systemd service is signalled; use --pid for a daemon
started by hand.`,
	Args: cobra.NoArgs,
	RunE: runToggle,
}

func init() {
	rootCmd.AddCommand(toggleCmd)

	toggleCmd.Flags().Int("pid", 0, "Signal this process instead of the systemd service")
}

func runToggle(cmd *cobra.Command, args []string) error {
	pid, _ := cmd.Flags().GetInt("pid")
	if pid > 0 {
		if err := unix.Kill(pid, daemon.ToggleSignal); err != nil {
			return fmt.Errorf("failed to signal %d: %w", pid, err)
		}
	} else if err := systemctl("kill", "--signal="+unix.SignalName(daemon.ToggleSignal), daemon.UnitName); err != nil {
		return err
	}

	fmt.Fprintln(cmd.OutOrStdout(), "✓ Adaptive mode toggled")
	return nil
}
