package easyeffects

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
)

const (
	currentPresetFile = "current_preset.json"
	configFile        = "config.json"
)

// Files manages the JSON documents EasyEffects reads from its config directory
type Files struct {
	dir string
}

// NewFiles creates a Files rooted at the EasyEffects config directory
func NewFiles(dir string) *Files {
	return &Files{dir: dir}
}

// Dir is the EasyEffects config directory
func (f *Files) Dir() string {
	return f.dir
}

// CurrentPresetPath is the file EasyEffects is expected to reread on reload
func (f *Files) CurrentPresetPath() string {
	return filepath.Join(f.dir, currentPresetFile)
}

// ConfigPath is the minimal configuration document
func (f *Files) ConfigPath() string {
	return filepath.Join(f.dir, configFile)
}

// MaterializePreset copies the preset definition at src to the current
// preset file. The content must be valid JSON and is written verbatim.
func (f *Files) MaterializePreset(src string) error {
	data, err := os.ReadFile(src)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return fmt.Errorf("%w: %s", ErrPresetFileNotFound, src)
		}
		return fmt.Errorf("read preset: %w", err)
	}
	if !json.Valid(data) {
		return fmt.Errorf("preset %s is not valid JSON", src)
	}
	return writeAtomic(f.CurrentPresetPath(), data)
}

// MinimalConfig returns the configuration document written when nothing
// exists yet
func MinimalConfig(preset string) map[string]any {
	return map[string]any{
		"spectrum": map[string]any{
			"show": "true",
		},
		InputPresetKey:   "default",
		OutputPresetKey:  preset,
		"use-dark-theme": "true",
	}
}

// MergeConfig embeds preset into config.json. Keys already present are kept,
// except the output preset which is always overwritten. An unreadable or
// invalid document is replaced.
func (f *Files) MergeConfig(preset string) error {
	doc := map[string]any{}
	if data, err := os.ReadFile(f.ConfigPath()); err == nil {
		if err := json.Unmarshal(data, &doc); err != nil || doc == nil {
			doc = map[string]any{}
		}
	}

	for k, v := range MinimalConfig(preset) {
		if _, ok := doc[k]; !ok {
			doc[k] = v
		}
	}
	doc[OutputPresetKey] = preset

	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return fmt.Errorf("encode config: %w", err)
	}
	return writeAtomic(f.ConfigPath(), data)
}

// ReadConfig returns the decoded configuration document
func (f *Files) ReadConfig() (map[string]any, error) {
	data, err := os.ReadFile(f.ConfigPath())
	if err != nil {
		return nil, err
	}
	doc := map[string]any{}
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, err
	}
	return doc, nil
}

// writeAtomic writes via temp file + rename
func writeAtomic(path string, data []byte) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return err
	}
	tmpPath := path + ".tmp"
	if err := os.WriteFile(tmpPath, data, 0644); err != nil {
		return err
	}
	return os.Rename(tmpPath, path)
}
