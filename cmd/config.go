package cmd

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/jfmyers9/adaptive-eq/internal/config"
)

// configCmd groups the configuration commands
var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Inspect or create the configuration file",
}

var configPathCmd = &cobra.Command{
	Use:   "path",
	Short: "Print the configuration and data directories",
	Args:  cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "config: %s\n", config.GetConfigDir())
		fmt.Fprintf(out, "data:   %s\n", config.GetDataDir())
	},
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Print the effective configuration",
	Long: `Print the effective configuration after defaults, the config file and
ADAPTIVE_EQ_* environment variables are applied. With --file, only the
given file and the defaults are used.`,
	Args: cobra.NoArgs,
	RunE: runConfigShow,
}

var configInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Write the effective configuration to config.yaml",
	Args:  cobra.NoArgs,
	RunE:  runConfigInit,
}

func init() {
	rootCmd.AddCommand(configCmd)
	configCmd.AddCommand(configPathCmd, configShowCmd, configInitCmd)

	configShowCmd.Flags().String("file", "", "Read this config file instead")
	configInitCmd.Flags().Bool("force", false, "Overwrite an existing config file")
}

func runConfigShow(cmd *cobra.Command, args []string) error {
	var (
		cfg *config.Config
		err error
	)
	if file, _ := cmd.Flags().GetString("file"); file != "" {
		cfg, err = config.LoadFile(file)
	} else {
		cfg, err = config.Load()
	}
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	rows := [][]string{
		{"poll_interval", cfg.PollInterval.String()},
		{"refresh_interval", cfg.RefreshInterval.String()},
		{"call_timeout", cfg.CallTimeout.String()},
		{"resync_interval", cfg.ResyncInterval.String()},
		{"settle_delay", cfg.SettleDelay.String()},
		{"default_preset", cfg.DefaultPreset},
		{"player", cfg.Player},
		{"profiles_db", cfg.ProfilesDB},
		{"state_file", cfg.StateFile},
		{"output_format", cfg.OutputFormat},
		{"output_width", fmt.Sprint(cfg.OutputWidth)},
		{"easyeffects.user_dir", cfg.EasyEffects.UserDir},
		{"easyeffects.system_dir", cfg.EasyEffects.SystemDir},
		{"easyeffects.legacy_dirs", strings.Join(cfg.EasyEffects.LegacyDirs, ", ")},
		{"easyeffects.config_dir", cfg.EasyEffects.ConfigDir},
		{"easyeffects.binary", cfg.EasyEffects.Binary},
	}
	return writeTable(cmd.OutOrStdout(), rows)
}

func runConfigInit(cmd *cobra.Command, args []string) error {
	path := filepath.Join(config.GetConfigDir(), "config.yaml")

	force, _ := cmd.Flags().GetBool("force")
	if _, err := os.Stat(path); err == nil && !force {
		return fmt.Errorf("%s already exists (use --force to overwrite)", path)
	}

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}
	if err := cfg.Save(); err != nil {
		return fmt.Errorf("failed to save configuration: %w", err)
	}

	fmt.Fprintf(cmd.OutOrStdout(), "✓ Wrote %s\n", path)
	return nil
}
