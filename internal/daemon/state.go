package daemon

import (
	"encoding/json"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/jfmyers9/adaptive-eq/internal/player"
)

// Status is the daemon's view of the last observed artist change
type Status struct {
	Artist    string    `json:"artist,omitempty"`
	Title     string    `json:"title,omitempty"`
	Preset    string    `json:"preset,omitempty"`
	Outcome   string    `json:"outcome,omitempty"`
	Paused    bool      `json:"paused"`
	UpdatedAt time.Time `json:"updated_at"`
}

// State tracks the last artist and adaptive mode. The status snapshot is
// written to filePath on every change but never read back by the daemon.
type State struct {
	mu         sync.RWMutex
	lastArtist string
	paused     bool
	status     Status
	filePath   string
	now        func() time.Time
}

// NewState creates a new State. An empty filePath disables persistence.
func NewState(filePath string) *State {
	return &State{
		filePath: filePath,
		now:      time.Now,
	}
}

// Observe records track and reports whether the artist changed. Nothing
// playing, a paused track or a track without an artist leaves the last
// artist untouched, so resuming the same artist is not a change.
func (s *State) Observe(track *player.Track) bool {
	if track == nil || track.State != player.StatePlaying || track.Artist == "" {
		return false
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if track.Artist == s.lastArtist {
		return false
	}
	s.lastArtist = track.Artist
	s.status.Artist = track.Artist
	s.status.Title = track.Title
	s.status.Preset = ""
	s.status.Outcome = ""
	return true
}

// LastArtist returns the most recently observed artist
func (s *State) LastArtist() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.lastArtist
}

// SetApplied records the preset resolved for the current artist
func (s *State) SetApplied(preset, outcome string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.status.Preset = preset
	s.status.Outcome = outcome
	return s.persist()
}

// Paused reports whether adaptive mode is off
func (s *State) Paused() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.paused
}

// SetPaused turns adaptive mode off (true) or on (false). Resuming forgets
// the last artist so the next playing update is applied.
func (s *State) SetPaused(paused bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.paused == paused {
		return nil
	}
	s.paused = paused
	if !paused {
		s.lastArtist = ""
	}
	return s.persist()
}

// Status returns a copy of the current status
func (s *State) Status() Status {
	s.mu.RLock()
	defer s.mu.RUnlock()

	st := s.status
	st.Paused = s.paused
	return st
}

// persist saves the status snapshot to disk.
// Must be called with lock held.
func (s *State) persist() error {
	if s.filePath == "" {
		return nil
	}

	st := s.status
	st.Paused = s.paused
	st.UpdatedAt = s.now()
	s.status.UpdatedAt = st.UpdatedAt

	data, err := json.MarshalIndent(st, "", "  ")
	if err != nil {
		return err
	}

	if err := os.MkdirAll(filepath.Dir(s.filePath), 0755); err != nil {
		return err
	}

	// Write atomically via temp file + rename
	tmpPath := s.filePath + ".tmp"
	if err := os.WriteFile(tmpPath, data, 0644); err != nil {
		return err
	}

	return os.Rename(tmpPath, s.filePath)
}

// ReadStatus loads a status snapshot written by a running daemon
func ReadStatus(filePath string) (Status, error) {
	var st Status

	data, err := os.ReadFile(filePath)
	if err != nil {
		return st, err
	}
	if err := json.Unmarshal(data, &st); err != nil {
		return st, err
	}
	return st, nil
}
