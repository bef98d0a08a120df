package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

// Version information (set via ldflags during build)
var (
	version   = "dev"
	commit    = "unknown"
	buildDate = "unknown"
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "adaptive-eq",
	Short: "Per-artist EasyEffects presets for the desktop music player",
	Long: `adaptive-eq switches EasyEffects output presets to match the artist
that is currently playing.

It runs as a background daemon that watches the MPRIS player (Spotify by
default), maps the artist to a preset using the profiles database and
applies the preset to EasyEffects, escalating to a full resync when
EasyEffects does not pick the change up.

The remaining commands apply presets by hand, manage artist profiles and
show what is playing, which is handy for status bars.`,
	Version:       fmt.Sprintf("%s (commit: %s, built: %s)", version, commit, buildDate),
	SilenceUsage:  true,
	SilenceErrors: false,
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
