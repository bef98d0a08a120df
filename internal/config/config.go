package config

import (
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/adrg/xdg"
	"github.com/spf13/viper"
)

const appName = "adaptive-eq"

// Config holds application configuration
type Config struct {
	// Output format template for the now command
	// Default: "{{.Artist}} - {{.Title}}"
	OutputFormat string

	// Fixed display width for the now command (0 disables padding)
	OutputWidth int

	// How often the daemon polls the player
	PollInterval time.Duration

	// A preset is reapplied with a forced refresh once this much time has
	// passed since the last attempt
	RefreshInterval time.Duration

	// Upper bound for every external call (gsettings, D-Bus, signals)
	CallTimeout time.Duration

	// Periodic UI resync, 0 disables it
	ResyncInterval time.Duration

	// Wait after starting EasyEffects before talking to it
	SettleDelay time.Duration

	// Preset used for artists without a mapping
	DefaultPreset string

	// MPRIS player name (org.mpris.MediaPlayer2.<Player>)
	Player string

	// SQLite database holding artist to preset mappings
	ProfilesDB string

	// Daemon status snapshot read by the now command
	StateFile string

	EasyEffects EasyEffectsConfig
}

// EasyEffectsConfig holds the locations and binary of the audio-effects host
type EasyEffectsConfig struct {
	UserDir    string
	SystemDir  string
	LegacyDirs []string
	ConfigDir  string
	Binary     string
}

// Load reads configuration from file and environment
func Load() (*Config, error) {
	v := viper.New()

	v.SetConfigName("config")
	v.SetConfigType("yaml")

	// Config file locations (in order of precedence)
	v.AddConfigPath(getConfigDir())
	v.AddConfigPath(".")

	setDefaults(v)

	// Read config file (optional - don't fail if missing)
	_ = v.ReadInConfig()

	v.SetEnvPrefix("ADAPTIVE_EQ")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	return fromViper(v), nil
}

func setDefaults(v *viper.Viper) {
	eeConfig := filepath.Join(xdg.ConfigHome, "easyeffects")

	v.SetDefault("output_format", "{{.Artist}} - {{.Title}}")
	v.SetDefault("output_width", 0)
	v.SetDefault("poll_interval", 5*time.Second)
	v.SetDefault("refresh_interval", 30*time.Second)
	v.SetDefault("call_timeout", 3*time.Second)
	v.SetDefault("resync_interval", time.Duration(0))
	v.SetDefault("settle_delay", 1*time.Second)
	v.SetDefault("default_preset", "default")
	v.SetDefault("player", "spotify")
	v.SetDefault("profiles_db", filepath.Join(xdg.DataHome, appName, "profiles.db"))
	v.SetDefault("state_file", filepath.Join(xdg.StateHome, appName, "state.json"))
	v.SetDefault("easyeffects.user_dir", filepath.Join(eeConfig, "output"))
	v.SetDefault("easyeffects.system_dir", "/usr/share/easyeffects/output")
	v.SetDefault("easyeffects.legacy_dirs", []string{
		filepath.Join(xdg.ConfigHome, "PulseEffects", "output"),
		"/usr/share/pulseeffects/presets/output",
	})
	v.SetDefault("easyeffects.config_dir", eeConfig)
	v.SetDefault("easyeffects.binary", "easyeffects")
}

func fromViper(v *viper.Viper) *Config {
	return &Config{
		OutputFormat:    v.GetString("output_format"),
		OutputWidth:     v.GetInt("output_width"),
		PollInterval:    v.GetDuration("poll_interval"),
		RefreshInterval: v.GetDuration("refresh_interval"),
		CallTimeout:     v.GetDuration("call_timeout"),
		ResyncInterval:  v.GetDuration("resync_interval"),
		SettleDelay:     v.GetDuration("settle_delay"),
		DefaultPreset:   v.GetString("default_preset"),
		Player:          v.GetString("player"),
		ProfilesDB:      expandPath(v.GetString("profiles_db")),
		StateFile:       expandPath(v.GetString("state_file")),
		EasyEffects: EasyEffectsConfig{
			UserDir:    expandPath(v.GetString("easyeffects.user_dir")),
			SystemDir:  expandPath(v.GetString("easyeffects.system_dir")),
			LegacyDirs: expandPaths(v.GetStringSlice("easyeffects.legacy_dirs")),
			ConfigDir:  expandPath(v.GetString("easyeffects.config_dir")),
			Binary:     v.GetString("easyeffects.binary"),
		},
	}
}

// getConfigDir returns the configuration directory path
// Creates the directory if it doesn't exist
func getConfigDir() string {
	configDir := filepath.Join(xdg.ConfigHome, appName)

	_ = os.MkdirAll(configDir, 0755)

	return configDir
}

// GetConfigDir returns the configuration directory path (public helper)
func GetConfigDir() string {
	return getConfigDir()
}

// GetDataDir returns the data directory used for the profiles database and logs
func GetDataDir() string {
	return filepath.Join(xdg.DataHome, appName)
}

func expandPath(path string) string {
	if path != "" && path[0] == '~' {
		if home, err := os.UserHomeDir(); err == nil {
			return filepath.Join(home, path[1:])
		}
	}
	return path
}

func expandPaths(paths []string) []string {
	out := make([]string, 0, len(paths))
	for _, p := range paths {
		out = append(out, expandPath(p))
	}
	return out
}

// Save writes configuration to file
func (c *Config) Save() error {
	return c.SaveTo(filepath.Join(getConfigDir(), "config.yaml"))
}

// SaveTo writes configuration to the given path
func (c *Config) SaveTo(path string) error {
	v := viper.New()

	v.Set("output_format", c.OutputFormat)
	v.Set("output_width", c.OutputWidth)
	v.Set("poll_interval", c.PollInterval.String())
	v.Set("refresh_interval", c.RefreshInterval.String())
	v.Set("call_timeout", c.CallTimeout.String())
	v.Set("resync_interval", c.ResyncInterval.String())
	v.Set("settle_delay", c.SettleDelay.String())
	v.Set("default_preset", c.DefaultPreset)
	v.Set("player", c.Player)
	v.Set("profiles_db", c.ProfilesDB)
	v.Set("state_file", c.StateFile)
	v.Set("easyeffects.user_dir", c.EasyEffects.UserDir)
	v.Set("easyeffects.system_dir", c.EasyEffects.SystemDir)
	v.Set("easyeffects.legacy_dirs", c.EasyEffects.LegacyDirs)
	v.Set("easyeffects.config_dir", c.EasyEffects.ConfigDir)
	v.Set("easyeffects.binary", c.EasyEffects.Binary)

	return v.WriteConfigAs(path)
}

// LoadFile reads a single config file with defaults applied, ignoring the
// environment
func LoadFile(path string) (*Config, error) {
	v := viper.New()
	v.SetConfigFile(path)
	setDefaults(v)
	if err := v.ReadInConfig(); err != nil {
		return nil, err
	}
	return fromViper(v), nil
}
