package player

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/godbus/dbus/v5"
	"github.com/quarckster/go-mpris-server/pkg/types"
)

const (
	mprisPrefix    = "org.mpris.MediaPlayer2."
	mprisPath      = "/org/mpris/MediaPlayer2"
	mprisInterface = "org.mpris.MediaPlayer2.Player"
	propertiesGet  = "org.freedesktop.DBus.Properties.Get"
	nameHasOwner   = "org.freedesktop.DBus.NameHasOwner"
	listNames      = "org.freedesktop.DBus.ListNames"
)

// MPRISClient implements Client over the MPRIS D-Bus interface
type MPRISClient struct {
	player string

	// connect returns the shared session bus connection. It is called on
	// every poll so a dropped connection is replaced.
	connect func() (*dbus.Conn, error)
}

// NewMPRISClient creates a client for the named player (e.g. "spotify").
// An empty name picks the first MPRIS player on the bus.
func NewMPRISClient(player string) *MPRISClient {
	return &MPRISClient{player: player, connect: dbus.SessionBus}
}

// BusName returns the well-known bus name for player
func BusName(player string) string {
	return mprisPrefix + player
}

// IsRunning checks whether the player owns its bus name
func (c *MPRISClient) IsRunning(ctx context.Context) (bool, error) {
	name, err := c.busName(ctx)
	if err != nil {
		return false, err
	}
	return name != "", nil
}

// CurrentTrack reads PlaybackStatus and Metadata from the player
func (c *MPRISClient) CurrentTrack(ctx context.Context) (*Track, error) {
	name, err := c.busName(ctx)
	if err != nil {
		return nil, err
	}
	if name == "" {
		return nil, nil
	}

	conn, err := c.connect()
	if err != nil {
		return nil, fmt.Errorf("connect session bus: %w", err)
	}
	obj := conn.Object(name, mprisPath)

	var status dbus.Variant
	if err := obj.CallWithContext(ctx, propertiesGet, 0, mprisInterface, "PlaybackStatus").Store(&status); err != nil {
		return nil, fmt.Errorf("failed to read playback status: %w", err)
	}
	state := parseStatus(status.Value())
	if state == StateStopped {
		return nil, nil
	}

	var metadata dbus.Variant
	if err := obj.CallWithContext(ctx, propertiesGet, 0, mprisInterface, "Metadata").Store(&metadata); err != nil {
		return nil, fmt.Errorf("failed to read metadata: %w", err)
	}
	fields, ok := metadata.Value().(map[string]dbus.Variant)
	if !ok {
		return nil, fmt.Errorf("unexpected metadata type %s", metadata.Signature())
	}

	return trackFromMetadata(fields, state), nil
}

// busName resolves the bus name to query, or "" when no player is present
func (c *MPRISClient) busName(ctx context.Context) (string, error) {
	conn, err := c.connect()
	if err != nil {
		return "", fmt.Errorf("connect session bus: %w", err)
	}

	if c.player != "" {
		name := BusName(c.player)
		var owned bool
		if err := conn.BusObject().CallWithContext(ctx, nameHasOwner, 0, name).Store(&owned); err != nil {
			return "", fmt.Errorf("failed to query %s: %w", name, err)
		}
		if !owned {
			return "", nil
		}
		return name, nil
	}

	var names []string
	if err := conn.BusObject().CallWithContext(ctx, listNames, 0).Store(&names); err != nil {
		return "", fmt.Errorf("failed to list bus names: %w", err)
	}
	return firstPlayer(names), nil
}

// firstPlayer returns the first MPRIS name in names, or ""
func firstPlayer(names []string) string {
	for _, n := range names {
		if strings.HasPrefix(n, mprisPrefix) {
			return n
		}
	}
	return ""
}

// parseStatus maps an MPRIS PlaybackStatus value to a PlayState
func parseStatus(v any) PlayState {
	s, _ := v.(string)
	switch types.PlaybackStatus(s) {
	case types.PlaybackStatusPlaying:
		return StatePlaying
	case types.PlaybackStatusPaused:
		return StatePaused
	default:
		return StateStopped
	}
}

// decodeMetadata extracts the xesam/mpris fields we use into types.Metadata
func decodeMetadata(fields map[string]dbus.Variant) types.Metadata {
	var meta types.Metadata

	switch id := variantValue(fields, "mpris:trackid").(type) {
	case dbus.ObjectPath:
		meta.TrackId = id
	case string:
		meta.TrackId = dbus.ObjectPath(id)
	}

	switch length := variantValue(fields, "mpris:length").(type) {
	case int64:
		meta.Length = types.Microseconds(length)
	case uint64:
		meta.Length = types.Microseconds(length)
	case int32:
		meta.Length = types.Microseconds(length)
	}

	meta.Title, _ = variantValue(fields, "xesam:title").(string)
	meta.Album, _ = variantValue(fields, "xesam:album").(string)

	switch artist := variantValue(fields, "xesam:artist").(type) {
	case []string:
		meta.Artist = artist
	case string:
		meta.Artist = []string{artist}
	}

	return meta
}

// trackFromMetadata builds a Track. Only the first artist is kept.
func trackFromMetadata(fields map[string]dbus.Variant, state PlayState) *Track {
	meta := decodeMetadata(fields)

	track := &Track{
		Title:    meta.Title,
		Album:    meta.Album,
		ID:       string(meta.TrackId),
		Duration: time.Duration(meta.Length) * time.Microsecond,
		State:    state,
	}
	if len(meta.Artist) > 0 {
		track.Artist = meta.Artist[0]
	}
	track.URI, _ = variantValue(fields, "xesam:url").(string)
	return track
}

func variantValue(fields map[string]dbus.Variant, key string) any {
	v, ok := fields[key]
	if !ok {
		return nil
	}
	return v.Value()
}
