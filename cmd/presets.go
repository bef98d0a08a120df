package cmd

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"
)

// presetsCmd represents the presets command
var presetsCmd = &cobra.Command{
	Use:   "presets",
	Short: "List available EasyEffects output presets",
	Long: `List the output presets adaptive-eq can apply.

User presets come first, followed by system presets not shadowed by a user
preset of the same name. The preset EasyEffects reports as last used is
marked with '*'.`,
	Args: cobra.NoArgs,
	RunE: runPresets,
}

func init() {
	rootCmd.AddCommand(presetsCmd)

	presetsCmd.Flags().BoolP("paths", "p", false, "Show the file each preset is loaded from")
}

func runPresets(cmd *cobra.Command, args []string) error {
	a, err := newCLIApp()
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	names := a.catalog.List(ctx)
	if len(names) == 0 {
		loc := a.catalog.Locations()
		return fmt.Errorf("no presets found (looked in %s and %s)", loc.User, loc.System)
	}

	// Best effort: gsettings may be missing
	current, _ := a.controller.OutputPreset(ctx)
	showPaths, _ := cmd.Flags().GetBool("paths")

	out := cmd.OutOrStdout()
	for _, name := range names {
		marker := " "
		if name == current {
			marker = "*"
		}
		if showPaths {
			path, _ := a.catalog.SourceFile(name)
			fmt.Fprintf(out, "%s %s\t%s\n", marker, name, path)
			continue
		}
		fmt.Fprintf(out, "%s %s\n", marker, name)
	}
	return nil
}
