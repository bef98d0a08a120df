package cmd

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/jfmyers9/adaptive-eq/internal/easyeffects"
)

// resyncCmd represents the resync command
var resyncCmd = &cobra.Command{
	Use:   "resync",
	Short: "Force EasyEffects to reload its presets",
	Long: `Signal every running EasyEffects instance to reload presets and refresh
its window, without changing the selected preset.

Exit codes:
  0 - EasyEffects was signalled
  1 - EasyEffects is not running`,
	Args: cobra.NoArgs,
	RunE: runResync,
}

func init() {
	rootCmd.AddCommand(resyncCmd)
}

func runResync(cmd *cobra.Command, args []string) error {
	a, err := newCLIApp()
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(context.Background(), commandTimeout(a))
	defer cancel()

	if !a.applier.ForceResync(ctx) {
		return easyeffects.ErrNotRunning
	}

	fmt.Fprintln(cmd.OutOrStdout(), "✓ EasyEffects resynced")
	return nil
}

// commandTimeout bounds a one-shot command: enough for every method of the
// chain plus a start of EasyEffects
func commandTimeout(a *app) time.Duration {
	return 8*a.cfg.CallTimeout + 2*a.cfg.SettleDelay
}
