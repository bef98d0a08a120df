// Package catalog discovers which EasyEffects output presets are available.
//
// Presets are JSON documents named <preset>.json. They may live in a
// user-scope directory, a system-scope directory, or one of several legacy
// directories left behind by PulseEffects. The catalog is rebuilt on every
// query and is never cached.
package catalog

import (
	"context"
	"os"
	"path/filepath"
	"strings"

	"github.com/rs/zerolog"
)

const presetExt = ".json"

// Locations lists preset directories in priority order
type Locations struct {
	User   string   // Primary user-scope directory
	System string   // System-scope directory
	Legacy []string // Read-only fallbacks, consulted in order
}

// Resolver lists preset names from a set of Locations
type Resolver struct {
	locations Locations
	logger    zerolog.Logger
}

// New creates a Resolver for the given locations
func New(locations Locations, logger zerolog.Logger) *Resolver {
	return &Resolver{
		locations: locations,
		logger:    logger.With().Str("component", "catalog").Logger(),
	}
}

// Locations returns the directories this resolver scans
func (r *Resolver) Locations() Locations {
	return r.locations
}

// List returns the preset names currently discoverable.
//
// When the user directory exists it is authoritative, even if empty, and
// system presets not already present are appended after it. When it does
// not exist, the system directory and then each legacy directory is tried,
// and the first non-empty result wins. Scan errors never escape: a failing
// location is logged and skipped.
func (r *Resolver) List(ctx context.Context) []string {
	if exists(r.locations.User) {
		presets, err := scan(r.locations.User)
		if err != nil {
			r.logger.Warn().Err(err).Str("dir", r.locations.User).Msg("Failed to scan user presets")
			presets = nil
		}
		return merge(presets, r.scanOptional(ctx, r.locations.System))
	}

	r.logger.Debug().Str("dir", r.locations.User).Msg("User preset directory not found")

	candidates := append([]string{r.locations.System}, r.locations.Legacy...)
	for _, dir := range candidates {
		if ctx.Err() != nil {
			return []string{}
		}
		if presets := r.scanOptional(ctx, dir); len(presets) > 0 {
			r.logger.Debug().Str("dir", dir).Int("count", len(presets)).Msg("Using fallback preset location")
			return presets
		}
	}

	return []string{}
}

// Contains reports whether name is in the current catalog
func (r *Resolver) Contains(ctx context.Context, name string) bool {
	for _, p := range r.List(ctx) {
		if p == name {
			return true
		}
	}
	return false
}

// SourceFile returns the definition file for name, preferring user scope
func (r *Resolver) SourceFile(name string) (string, bool) {
	for _, dir := range []string{r.locations.User, r.locations.System} {
		if dir == "" {
			continue
		}
		path := filepath.Join(dir, name+presetExt)
		if info, err := os.Stat(path); err == nil && info.Mode().IsRegular() {
			return path, true
		}
	}
	return "", false
}

// scanOptional scans dir if it exists, treating errors as empty
func (r *Resolver) scanOptional(ctx context.Context, dir string) []string {
	if ctx.Err() != nil || !exists(dir) {
		return nil
	}
	presets, err := scan(dir)
	if err != nil {
		r.logger.Warn().Err(err).Str("dir", dir).Msg("Failed to scan presets")
		return nil
	}
	return presets
}

// scan lists preset names in dir in directory order
func scan(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}

	presets := make([]string, 0, len(entries))
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), presetExt) {
			continue
		}
		name := strings.TrimSuffix(e.Name(), presetExt)
		if name == "" {
			continue
		}
		presets = append(presets, name)
	}
	return presets, nil
}

// merge appends extra names not already in base, keeping base order
func merge(base, extra []string) []string {
	seen := make(map[string]struct{}, len(base)+len(extra))
	out := make([]string, 0, len(base)+len(extra))
	for _, list := range [][]string{base, extra} {
		for _, name := range list {
			if _, ok := seen[name]; ok {
				continue
			}
			seen[name] = struct{}{}
			out = append(out, name)
		}
	}
	return out
}

func exists(dir string) bool {
	if dir == "" {
		return false
	}
	_, err := os.Stat(dir)
	return err == nil
}
