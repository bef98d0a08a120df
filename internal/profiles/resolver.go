package profiles

import (
	"context"
	"sort"
)

// DefaultPreset is used for artists without a profile
const DefaultPreset = "default"

// Lister is the read side of Store
type Lister interface {
	All(ctx context.Context) (map[string]string, error)
}

// Resolver maps an artist to a preset from a snapshot of the store
type Resolver struct {
	mappings      map[string]string
	defaultPreset string
}

// NewResolver snapshots the store. Changes made afterwards are not seen.
func NewResolver(ctx context.Context, store Lister, defaultPreset string) (*Resolver, error) {
	mappings, err := store.All(ctx)
	if err != nil {
		return nil, err
	}
	return NewStaticResolver(mappings, defaultPreset), nil
}

// NewStaticResolver builds a Resolver from an in-memory map
func NewStaticResolver(mappings map[string]string, defaultPreset string) *Resolver {
	if defaultPreset == "" {
		defaultPreset = DefaultPreset
	}
	m := make(map[string]string, len(mappings))
	for k, v := range mappings {
		m[k] = v
	}
	return &Resolver{mappings: m, defaultPreset: defaultPreset}
}

// Resolve returns the preset for artist, or the default preset
func (r *Resolver) Resolve(artist string) string {
	preset, _ := r.Lookup(artist)
	return preset
}

// Lookup is Resolve that also reports whether artist has its own profile
func (r *Resolver) Lookup(artist string) (preset string, matched bool) {
	if preset, ok := r.mappings[artist]; ok {
		return preset, true
	}
	return r.defaultPreset, false
}

// Default returns the fallback preset
func (r *Resolver) Default() string {
	return r.defaultPreset
}

// Len returns the number of mapped artists
func (r *Resolver) Len() int {
	return len(r.mappings)
}

// GroupByPreset groups artists under their preset, artists sorted
func GroupByPreset(profiles []Profile) map[string][]string {
	groups := make(map[string][]string)
	for _, p := range profiles {
		groups[p.Preset] = append(groups[p.Preset], p.Artist)
	}
	for _, artists := range groups {
		sort.Strings(artists)
	}
	return groups
}
