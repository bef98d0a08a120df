package easyeffects

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/godbus/dbus/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseProcesses(t *testing.T) {
	out := "1234 easyeffects --gapplication-service\n" +
		"5678 easyeffects\n" +
		"\n" +
		"garbage line\n" +
		"91011 /usr/bin/easyeffects -w\n"

	got := parseProcesses(out)
	require.Len(t, got, 3)

	assert.Equal(t, Process{PID: 1234, Cmdline: "easyeffects --gapplication-service"}, got[0])
	assert.True(t, got[0].IsService())
	assert.Equal(t, 5678, got[1].PID)
	assert.False(t, got[1].IsService())
	assert.Equal(t, "/usr/bin/easyeffects -w", got[2].Cmdline)
}

func TestParseProcesses_Empty(t *testing.T) {
	assert.Empty(t, parseProcesses(""))
}

func TestProcessName(t *testing.T) {
	assert.Equal(t, "easyeffects", processName("/usr/bin/easyeffects"))
	assert.Equal(t, "a-very-long-pro", processName("a-very-long-process-name"))
}

func TestMaterializePreset(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "rock.json")
	content := []byte("{\n  \"output\": {\"equalizer#0\": {\"mode\": \"IIR\"}}\n}\n")
	require.NoError(t, os.WriteFile(src, content, 0o600))

	f := NewFiles(filepath.Join(dir, "easyeffects"))
	require.NoError(t, f.MaterializePreset(src))

	got, err := os.ReadFile(f.CurrentPresetPath())
	require.NoError(t, err)
	assert.Equal(t, content, got, "preset must be written verbatim")
}

func TestMaterializePreset_Missing(t *testing.T) {
	f := NewFiles(t.TempDir())
	err := f.MaterializePreset(filepath.Join(t.TempDir(), "nope.json"))
	assert.True(t, errors.Is(err, ErrPresetFileNotFound))

	_, statErr := os.Stat(f.CurrentPresetPath())
	assert.True(t, os.IsNotExist(statErr))
}

func TestMaterializePreset_InvalidJSON(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "broken.json")
	require.NoError(t, os.WriteFile(src, []byte("{not json"), 0o600))

	f := NewFiles(dir)
	assert.Error(t, f.MaterializePreset(src))
}

func TestMergeConfig_CreatesMinimalDocument(t *testing.T) {
	f := NewFiles(filepath.Join(t.TempDir(), "easyeffects"))
	require.NoError(t, f.MergeConfig("rock"))

	doc, err := f.ReadConfig()
	require.NoError(t, err)
	assert.Equal(t, "rock", doc[OutputPresetKey])
	assert.Equal(t, "default", doc[InputPresetKey])
	assert.Equal(t, "true", doc["use-dark-theme"])
	assert.Equal(t, map[string]any{"show": "true"}, doc["spectrum"])
}

func TestMergeConfig_PreservesExistingKeys(t *testing.T) {
	dir := t.TempDir()
	f := NewFiles(dir)
	existing := `{"last-used-output-preset":"jazz","last-used-input-preset":"mic","use-dark-theme":"false","custom":1}`
	require.NoError(t, os.WriteFile(f.ConfigPath(), []byte(existing), 0o600))

	require.NoError(t, f.MergeConfig("rock"))

	doc, err := f.ReadConfig()
	require.NoError(t, err)
	assert.Equal(t, "rock", doc[OutputPresetKey])
	assert.Equal(t, "mic", doc[InputPresetKey])
	assert.Equal(t, "false", doc["use-dark-theme"])
	assert.Equal(t, float64(1), doc["custom"])
	assert.Contains(t, doc, "spectrum")
}

func TestMergeConfig_ReplacesInvalidDocument(t *testing.T) {
	dir := t.TempDir()
	f := NewFiles(dir)
	require.NoError(t, os.WriteFile(f.ConfigPath(), []byte("garbage"), 0o600))

	require.NoError(t, f.MergeConfig("pop"))

	doc, err := f.ReadConfig()
	require.NoError(t, err)
	assert.Equal(t, "pop", doc[OutputPresetKey])
}

func TestController_RetriesBusAfterFailure(t *testing.T) {
	c := NewController("")
	attempts := 0
	c.connect = func() (*dbus.Conn, error) {
		attempts++
		return nil, errors.New("no session bus")
	}
	ctx := context.Background()

	require.Error(t, c.LoadPreset(ctx, "rock"))
	require.Error(t, c.LoadPreset(ctx, "rock"))
	_, err := c.Introspect(ctx)
	require.Error(t, err)

	assert.Equal(t, 3, attempts, "a failed connection must not be cached")
}

func TestController_ProcessesIntegration(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping integration test in short mode")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	c := NewController("easyeffects-does-not-exist")
	procs, err := c.Processes(ctx)
	if err != nil {
		t.Skipf("pgrep unavailable: %v", err)
	}
	assert.Empty(t, procs)
}
