package daemon

import (
	"bytes"
	"fmt"
	"path/filepath"
	"text/template"

	"github.com/adrg/xdg"
)

// UnitName is the systemd user unit installed by the install command
const UnitName = "adaptive-eq.service"

const unitTemplate = `[Unit]
Description=Adaptive EQ: apply EasyEffects presets per artist
After=graphical-session.target
PartOf=graphical-session.target

[Service]
Type=simple
ExecStart={{.BinaryPath}} daemon
WorkingDirectory={{.WorkingDirectory}}
Restart=on-failure
RestartSec=5
Environment=PATH=/usr/local/bin:/usr/bin:/bin
{{- if .LogLevel}}
Environment=ADAPTIVE_EQ_LOG_LEVEL={{.LogLevel}}
{{- end}}

[Install]
WantedBy=graphical-session.target
`

// UnitConfig holds the configuration for generating a systemd unit
type UnitConfig struct {
	BinaryPath       string
	WorkingDirectory string
	LogLevel         string
}

// GenerateUnit generates a systemd user unit from the template
func GenerateUnit(config UnitConfig) (string, error) {
	tmpl, err := template.New("unit").Parse(unitTemplate)
	if err != nil {
		return "", fmt.Errorf("failed to parse unit template: %w", err)
	}

	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, config); err != nil {
		return "", fmt.Errorf("failed to execute unit template: %w", err)
	}

	return buf.String(), nil
}

// GetUnitPath returns the path where the unit should be installed
func GetUnitPath() string {
	return filepath.Join(xdg.ConfigHome, "systemd", "user", UnitName)
}
