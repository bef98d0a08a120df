package cmd

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"strings"
	"text/template"
	"time"

	"github.com/mattn/go-runewidth"
	"github.com/spf13/cobra"

	"github.com/jfmyers9/adaptive-eq/internal/config"
	"github.com/jfmyers9/adaptive-eq/internal/daemon"
	"github.com/jfmyers9/adaptive-eq/internal/player"
)

// nowCmd represents the now command
var nowCmd = &cobra.Command{
	Use:   "now",
	Short: "Display the current track and its preset",
	Long: `Query the MPRIS player and display the currently playing track.

The output format can be customized in ~/.config/adaptive-eq/config.yaml
using a Go template. Available fields: .Title, .Artist, .Album, .Duration,
.Preset (as applied by the daemon) and .Paused (adaptive mode off).

Exit codes:
  0 - Track is currently playing
  1 - No track playing, paused, or player not running`,
	RunE: runNow,
}

func init() {
	rootCmd.AddCommand(nowCmd)

	nowCmd.Flags().StringP("format", "f", "", "Output format template (overrides config)")
	nowCmd.Flags().IntP("width", "w", 0, "Fixed output width (0=disabled, overrides config)")
}

// nowView is the template data for the now command
type nowView struct {
	*player.Track
	Preset string
	Paused bool
}

func runNow(cmd *cobra.Command, args []string) error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	if formatFlag, _ := cmd.Flags().GetString("format"); formatFlag != "" {
		cfg.OutputFormat = formatFlag
	}

	client := player.NewMPRISClient(cfg.Player)
	track, err := client.CurrentTrack(ctx)
	if err != nil {
		return fmt.Errorf("failed to get current track: %w", err)
	}

	if track == nil || track.State != player.StatePlaying {
		os.Exit(1)
		return nil
	}

	view := nowView{Track: track}
	// The daemon may not be running; the preset is then left empty
	if st, err := daemon.ReadStatus(cfg.StateFile); err == nil {
		view.Paused = st.Paused
		if st.Artist == track.Artist {
			view.Preset = st.Preset
		}
	}

	output, err := formatTrack(view, cfg.OutputFormat)
	if err != nil {
		return fmt.Errorf("failed to format output: %w", err)
	}

	width, _ := cmd.Flags().GetInt("width")
	if width == 0 {
		width = cfg.OutputWidth
	}
	output = padToWidth(output, width)

	fmt.Fprintln(cmd.OutOrStdout(), output)
	return nil
}

// formatTrack applies the template to the view
func formatTrack(view nowView, templateStr string) (string, error) {
	tmpl, err := template.New("output").Parse(templateStr)
	if err != nil {
		return "", fmt.Errorf("invalid template: %w", err)
	}

	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, view); err != nil {
		return "", fmt.Errorf("template execution failed: %w", err)
	}

	return buf.String(), nil
}

// padToWidth pads or truncates text to a fixed display width measured in
// terminal columns. Truncated text ends in "...". Width <= 0 disables it.
func padToWidth(text string, width int) string {
	if width <= 0 {
		return text
	}

	const ellipsis = "..."
	if runewidth.StringWidth(text) > width {
		if width <= runewidth.StringWidth(ellipsis) {
			return runewidth.Truncate(ellipsis, width, "")
		}
		text = runewidth.Truncate(text, width-runewidth.StringWidth(ellipsis), "") + ellipsis
	}

	// Wide runes can leave truncated text a column short
	if w := runewidth.StringWidth(text); w < width {
		text += strings.Repeat(" ", width-w)
	}
	return text
}
