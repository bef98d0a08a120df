// Package player reads what the desktop music player is currently playing.
package player

import (
	"context"
	"time"
)

// Track represents a music track with its metadata and current state
type Track struct {
	Title    string        // Track title
	Artist   string        // First listed artist
	Album    string        // Album name
	ID       string        // Player track id
	URI      string        // Track URL as reported by the player
	Duration time.Duration // Total track duration, zero when unknown
	State    PlayState     // Current playback state
}

// PlayState represents the current playback state of the music player
type PlayState int

const (
	StateStopped PlayState = iota // No track playing
	StatePlaying                  // Track is currently playing
	StatePaused                   // Track is paused
)

// String returns a human-readable representation of the PlayState
func (s PlayState) String() string {
	switch s {
	case StateStopped:
		return "stopped"
	case StatePlaying:
		return "playing"
	case StatePaused:
		return "paused"
	default:
		return "unknown"
	}
}

// Client defines the interface for reading the music player
type Client interface {
	// CurrentTrack returns the playing or paused track, or nil when the
	// player is stopped or not running
	CurrentTrack(ctx context.Context) (*Track, error)

	// IsRunning checks if the player is present on the session bus
	IsRunning(ctx context.Context) (bool, error)
}
