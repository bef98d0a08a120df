package daemon

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/jfmyers9/adaptive-eq/internal/eq"
	"github.com/jfmyers9/adaptive-eq/internal/player"
	"github.com/jfmyers9/adaptive-eq/internal/profiles"
)

type fakeApplier struct {
	mu      sync.Mutex
	applied []string
	resyncs int
	outcome eq.Outcome
}

func (f *fakeApplier) Apply(_ context.Context, preset string, _ bool) eq.Result {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.applied = append(f.applied, preset)
	return eq.Result{Preset: preset, Outcome: f.outcome}
}

func (f *fakeApplier) ForceResync(context.Context) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.resyncs++
	return true
}

func (f *fakeApplier) presets() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.applied...)
}

// scriptedClient returns tracks in order, repeating the last one
type scriptedClient struct {
	mu     sync.Mutex
	tracks []*player.Track
	errs   []error
	calls  int
}

func (c *scriptedClient) CurrentTrack(context.Context) (*player.Track, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	i := c.calls
	if i >= len(c.tracks) {
		i = len(c.tracks) - 1
	}
	c.calls++
	var err error
	if i < len(c.errs) {
		err = c.errs[i]
	}
	return c.tracks[i], err
}

func (c *scriptedClient) IsRunning(context.Context) (bool, error) {
	return true, nil
}

func newTestDaemon(t *testing.T, client player.Client, applier *fakeApplier) *Daemon {
	t.Helper()
	resolver := profiles.NewStaticResolver(map[string]string{
		"Queen": "rock",
		"Adele": "vocal",
	}, "default")
	d, err := New(Config{PollInterval: time.Second}, client, applier, resolver, zerolog.Nop())
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return d
}

func TestNew_RejectsZeroInterval(t *testing.T) {
	_, err := New(Config{}, &scriptedClient{}, &fakeApplier{}, profiles.NewStaticResolver(nil, ""), zerolog.Nop())
	if err == nil {
		t.Error("expected error for zero poll interval")
	}
}

func TestHandleTrackUpdate(t *testing.T) {
	applier := &fakeApplier{outcome: eq.AppliedConfirmed}
	d := newTestDaemon(t, &scriptedClient{}, applier)
	ctx := context.Background()

	sequence := []*player.Track{
		playing("Queen", "Bohemian Rhapsody"),
		playing("Queen", "Somebody to Love"),
		nil,
		playing("Queen", "Killer Queen"),
		playing("Adele", "Hello"),
		playing("Unknown Band", "Song"),
	}
	for _, track := range sequence {
		if err := d.handleTrackUpdate(ctx, track); err != nil {
			t.Fatalf("handleTrackUpdate: %v", err)
		}
	}

	want := []string{"rock", "vocal", "default"}
	if got := applier.presets(); strings.Join(got, ",") != strings.Join(want, ",") {
		t.Errorf("applied = %v, want %v", got, want)
	}

	st := d.Status()
	if st.Artist != "Unknown Band" || st.Preset != "default" || st.Outcome != "applied-confirmed" {
		t.Errorf("Status() = %+v", st)
	}
}

func TestHandleTrackUpdate_FailureReturnsError(t *testing.T) {
	applier := &fakeApplier{outcome: eq.FailedAllMethods}
	d := newTestDaemon(t, &scriptedClient{}, applier)

	err := d.handleTrackUpdate(context.Background(), playing("Queen", "Bohemian Rhapsody"))
	if !errors.Is(err, eq.ErrAllMethodsFailed) {
		t.Errorf("handleTrackUpdate() error = %v, want ErrAllMethodsFailed", err)
	}

	// the artist is still considered handled
	if err := d.handleTrackUpdate(context.Background(), playing("Queen", "Another One")); err != nil {
		t.Errorf("second update: %v", err)
	}
	if n := len(applier.presets()); n != 1 {
		t.Errorf("applied %d times, want 1", n)
	}
}

func TestHandleUpdates_ApplyFailureNotLoggedAsError(t *testing.T) {
	var buf bytes.Buffer
	resolver := profiles.NewStaticResolver(map[string]string{"Queen": "rock"}, "default")
	d, err := New(Config{PollInterval: time.Second}, &scriptedClient{}, &fakeApplier{outcome: eq.FailedAllMethods}, resolver, zerolog.New(&buf))
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	updates := make(chan TrackUpdate)
	done := make(chan struct{})
	go func() {
		defer close(done)
		d.handleUpdates(ctx, updates)
	}()

	updates <- TrackUpdate{Track: playing("Queen", "Bohemian Rhapsody")}
	// The second send only completes once the first update was handled
	updates <- TrackUpdate{Track: playing("Queen", "Bohemian Rhapsody")}
	cancel()
	<-done

	if strings.Contains(buf.String(), `"level":"error"`) {
		t.Errorf("daemon logged the apply failure at error level:\n%s", buf.String())
	}
	if !strings.Contains(buf.String(), "Track update not applied") {
		t.Errorf("expected a debug entry for the failed update:\n%s", buf.String())
	}
}

func TestPauseResume(t *testing.T) {
	applier := &fakeApplier{outcome: eq.AppliedConfirmed}
	d := newTestDaemon(t, &scriptedClient{}, applier)
	ctx := context.Background()

	d.Toggle()
	if !d.Status().Paused {
		t.Fatal("expected paused after toggle")
	}

	_ = d.handleTrackUpdate(ctx, playing("Queen", "Bohemian Rhapsody"))
	if n := len(applier.presets()); n != 0 {
		t.Fatalf("applied %d presets while paused", n)
	}

	d.Toggle()
	if d.Status().Paused {
		t.Fatal("expected resumed after second toggle")
	}

	_ = d.handleTrackUpdate(ctx, playing("Queen", "Bohemian Rhapsody"))
	if got := applier.presets(); len(got) != 1 || got[0] != "rock" {
		t.Errorf("applied = %v, want [rock]", got)
	}
}

func TestRun_AppliesOnArtistChange(t *testing.T) {
	applier := &fakeApplier{outcome: eq.AppliedConfirmed}
	client := &scriptedClient{
		tracks: []*player.Track{
			playing("Queen", "Bohemian Rhapsody"),
			nil,
			playing("Adele", "Hello"),
		},
		errs: []error{nil, errors.New("bus hiccup")},
	}
	d := newTestDaemon(t, client, applier)
	d.poller.interval = 10 * time.Millisecond

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- d.run(ctx) }()

	deadline := time.After(2 * time.Second)
	for len(applier.presets()) < 2 {
		select {
		case <-deadline:
			cancel()
			t.Fatalf("timed out, applied = %v", applier.presets())
		case <-time.After(5 * time.Millisecond):
		}
	}
	cancel()

	select {
	case err := <-done:
		if err != nil {
			t.Errorf("run() = %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("daemon did not stop")
	}

	if got := applier.presets(); got[0] != "rock" || got[1] != "vocal" {
		t.Errorf("applied = %v, want [rock vocal ...]", got)
	}
}

func TestRun_PeriodicResync(t *testing.T) {
	applier := &fakeApplier{outcome: eq.AppliedConfirmed}
	client := &scriptedClient{tracks: []*player.Track{nil}}
	d := newTestDaemon(t, client, applier)
	d.config.ResyncInterval = 10 * time.Millisecond

	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()
	_ = d.run(ctx)

	applier.mu.Lock()
	defer applier.mu.Unlock()
	if applier.resyncs == 0 {
		t.Error("expected at least one periodic resync")
	}
}

func TestGenerateUnit(t *testing.T) {
	unit, err := GenerateUnit(UnitConfig{
		BinaryPath:       "/usr/local/bin/adaptive-eq",
		WorkingDirectory: "/home/user",
		LogLevel:         "debug",
	})
	if err != nil {
		t.Fatalf("GenerateUnit: %v", err)
	}

	for _, want := range []string{
		"ExecStart=/usr/local/bin/adaptive-eq daemon",
		"WorkingDirectory=/home/user",
		"Environment=ADAPTIVE_EQ_LOG_LEVEL=debug",
		"WantedBy=graphical-session.target",
	} {
		if !strings.Contains(unit, want) {
			t.Errorf("unit missing %q:\n%s", want, unit)
		}
	}

	plain, err := GenerateUnit(UnitConfig{BinaryPath: "/bin/x", WorkingDirectory: "/"})
	if err != nil {
		t.Fatalf("GenerateUnit: %v", err)
	}
	if strings.Contains(plain, "ADAPTIVE_EQ_LOG_LEVEL") {
		t.Error("log level line should be omitted when unset")
	}
}

func TestGetUnitPath(t *testing.T) {
	if !strings.HasSuffix(GetUnitPath(), "systemd/user/"+UnitName) {
		t.Errorf("GetUnitPath() = %q", GetUnitPath())
	}
}
