package cmd

import (
	"testing"
	"time"

	"github.com/mattn/go-runewidth"

	"github.com/jfmyers9/adaptive-eq/internal/player"
)

func TestPadToWidth(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		width    int
		expected string
	}{
		{
			name:     "no padding when width is 0",
			input:    "Queen - Bohemian Rhapsody",
			width:    0,
			expected: "Queen - Bohemian Rhapsody",
		},
		{
			name:     "no padding when width is negative",
			input:    "Queen",
			width:    -1,
			expected: "Queen",
		},
		{
			name:     "pad short text with spaces",
			input:    "Hi",
			width:    10,
			expected: "Hi        ",
		},
		{
			name:     "exact width unchanged",
			input:    "Adele",
			width:    5,
			expected: "Adele",
		},
		{
			name:     "truncate long text with ellipsis",
			input:    "Queen - Bohemian Rhapsody [rock]",
			width:    20,
			expected: "Queen - Bohemian ...",
		},
		{
			name:     "emoji counts as two columns",
			input:    "🎵 Music",
			width:    15,
			expected: "🎵 Music       ",
		},
		{
			name:     "wide runes padded after truncation",
			input:    "日本語とても長いテキスト",
			width:    10,
			expected: "日本語... ",
		},
		{
			name:     "empty string padding",
			input:    "",
			width:    5,
			expected: "     ",
		},
		{
			name:     "minimum width for truncation",
			input:    "Hello",
			width:    3,
			expected: "...",
		},
		{
			name:     "width below ellipsis",
			input:    "Hello",
			width:    2,
			expected: "..",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := padToWidth(tt.input, tt.width)
			if result != tt.expected {
				t.Errorf("padToWidth(%q, %d) = %q, expected %q",
					tt.input, tt.width, result, tt.expected)
			}

			if tt.width > 0 {
				if w := runewidth.StringWidth(result); w != tt.width {
					t.Errorf("padToWidth(%q, %d) produced width %d, expected %d",
						tt.input, tt.width, w, tt.width)
				}
			}
		})
	}
}

func TestFormatTrack(t *testing.T) {
	view := nowView{
		Track: &player.Track{
			Title:    "Hello",
			Artist:   "Adele",
			Album:    "25",
			Duration: 295 * time.Second,
			State:    player.StatePlaying,
		},
		Preset: "vocal",
	}

	tests := []struct {
		name     string
		template string
		want     string
		wantErr  bool
	}{
		{"default format", "{{.Artist}} - {{.Title}}", "Adele - Hello", false},
		{"with preset", "{{.Title}} [{{.Preset}}]", "Hello [vocal]", false},
		{"paused marker", "{{if .Paused}}off{{else}}on{{end}}", "on", false},
		{"duration", "{{.Duration}}", "4m55s", false},
		{"invalid template", "{{.Artist", "", true},
		{"unknown field", "{{.Nope}}", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := formatTrack(view, tt.template)
			if (err != nil) != tt.wantErr {
				t.Fatalf("formatTrack() error = %v, wantErr %v", err, tt.wantErr)
			}
			if got != tt.want {
				t.Errorf("formatTrack() = %q, want %q", got, tt.want)
			}
		})
	}
}
