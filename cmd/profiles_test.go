package cmd

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/mattn/go-runewidth"

	"github.com/jfmyers9/adaptive-eq/internal/eq"
	"github.com/jfmyers9/adaptive-eq/internal/profiles"
)

type recordingApplier struct {
	outcome eq.Outcome
	presets []string
	forced  []bool
}

func (r *recordingApplier) Apply(_ context.Context, preset string, force bool) eq.Result {
	r.presets = append(r.presets, preset)
	r.forced = append(r.forced, force)
	return eq.Result{
		Preset:  preset,
		Outcome: r.outcome,
		Forced:  force,
		Methods: []eq.MethodResult{{Method: eq.MethodProperty, Outcome: r.outcome}},
	}
}

type setCatalog map[string]bool

func (c setCatalog) Contains(_ context.Context, name string) bool {
	return c[name]
}

func TestProfileTest(t *testing.T) {
	resolver := profiles.NewStaticResolver(map[string]string{"Queen": "rock", "Adele": "vocal"}, "default")
	catalog := setCatalog{"rock": true, "default": true}

	tests := []struct {
		name        string
		artist      string
		dryRun      bool
		force       bool
		outcome     eq.Outcome
		wantApplied []string
		wantOutput  []string
		wantErr     error
	}{
		{
			name:        "profile preset is applied",
			artist:      "Queen",
			outcome:     eq.AppliedConfirmed,
			wantApplied: []string{"rock"},
			wantOutput:  []string{"Queen → rock (profile)", "rock: applied-confirmed"},
		},
		{
			name:        "unknown artist applies default",
			artist:      "Nobody",
			outcome:     eq.AppliedConfirmed,
			wantApplied: []string{"default"},
			wantOutput:  []string{"Nobody → default (default)"},
		},
		{
			name:       "dry run applies nothing",
			artist:     "Queen",
			dryRun:     true,
			wantOutput: []string{"Queen → rock (profile)"},
		},
		{
			name:       "dry run warns about missing preset",
			artist:     "Adele",
			dryRun:     true,
			wantOutput: []string{"Adele → vocal (profile)", `preset "vocal" is not in the catalog`},
		},
		{
			name:        "rejected preset returns error",
			artist:      "Adele",
			outcome:     eq.RejectedNotFound,
			wantApplied: []string{"vocal"},
			wantOutput:  []string{"vocal: rejected-not-found"},
			wantErr:     eq.ErrPresetNotFound,
		},
		{
			name:        "all methods failing returns error",
			artist:      "Queen",
			force:       true,
			outcome:     eq.FailedAllMethods,
			wantApplied: []string{"rock"},
			wantErr:     eq.ErrAllMethodsFailed,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			applier := &recordingApplier{outcome: tt.outcome}
			pt := profileTest{
				resolver: resolver,
				catalog:  catalog,
				applier:  applier,
				dryRun:   tt.dryRun,
				force:    tt.force,
			}

			var out bytes.Buffer
			err := pt.run(context.Background(), &out, tt.artist)

			if tt.wantErr == nil && err != nil {
				t.Fatalf("run() error = %v", err)
			}
			if tt.wantErr != nil && !errors.Is(err, tt.wantErr) {
				t.Fatalf("run() error = %v, want %v", err, tt.wantErr)
			}
			if strings.Join(applier.presets, ",") != strings.Join(tt.wantApplied, ",") {
				t.Errorf("applied %v, want %v", applier.presets, tt.wantApplied)
			}
			for _, f := range applier.forced {
				if f != tt.force {
					t.Errorf("force = %v, want %v", f, tt.force)
				}
			}
			for _, want := range tt.wantOutput {
				if !strings.Contains(out.String(), want) {
					t.Errorf("output missing %q:\n%s", want, out.String())
				}
			}
		})
	}
}

func TestProfileRowsAlignWideNames(t *testing.T) {
	list := []profiles.Profile{
		{Artist: "Queen", Preset: "rock", UpdatedAt: time.Now()},
		{Artist: "坂本龍一", Preset: "ambient", UpdatedAt: time.Now()},
		{Artist: "Björk", Preset: "vocal", UpdatedAt: time.Now()},
	}

	lines := alignColumns(profileRows(list))
	if len(lines) != 4 {
		t.Fatalf("got %d lines, want 4", len(lines))
	}

	presets := []string{"PRESET", "rock", "ambient", "vocal"}
	want := -1
	for i, line := range lines {
		idx := strings.Index(line, presets[i])
		if idx < 0 {
			t.Fatalf("line %q missing %q", line, presets[i])
		}
		col := runewidth.StringWidth(line[:idx])
		if want < 0 {
			want = col
		}
		if col != want {
			t.Errorf("preset column starts at %d in %q, want %d", col, line, want)
		}
	}
}
