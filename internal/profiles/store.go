// Package profiles maps artists to EasyEffects presets.
package profiles

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"time"

	_ "modernc.org/sqlite"
)

// Profile is a single artist to preset mapping
type Profile struct {
	Artist    string
	Preset    string
	UpdatedAt time.Time
}

// Store persists profiles using SQLite
type Store struct {
	db  *sql.DB
	now func() time.Time
}

// Open opens (or creates) the profile database at dbPath
func Open(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// Single connection keeps :memory: databases consistent
	db.SetMaxOpenConns(1)

	pragmas := []string{
		"PRAGMA busy_timeout = 10000",
		"PRAGMA synchronous = NORMAL",
		"PRAGMA journal_mode = WAL",
		"PRAGMA temp_store = MEMORY",
	}

	for _, pragma := range pragmas {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, fmt.Errorf("failed to set pragma: %w", err)
		}
	}

	schema := `
		CREATE TABLE IF NOT EXISTS profiles (
			artist TEXT PRIMARY KEY,
			preset TEXT NOT NULL,
			updated_at INTEGER NOT NULL DEFAULT (strftime('%s', 'now'))
		);

		CREATE INDEX IF NOT EXISTS idx_preset ON profiles(preset);
	`

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create schema: %w", err)
	}

	return &Store{db: db, now: time.Now}, nil
}

// Close closes the database connection
func (s *Store) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

// Get returns the preset mapped to artist. Matching is exact.
func (s *Store) Get(ctx context.Context, artist string) (string, bool, error) {
	var preset string
	err := s.db.QueryRowContext(ctx, "SELECT preset FROM profiles WHERE artist = ?", artist).Scan(&preset)
	if errors.Is(err, sql.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("failed to get profile: %w", err)
	}
	return preset, true, nil
}

// Set maps artist to preset, replacing any existing mapping
func (s *Store) Set(ctx context.Context, artist, preset string) error {
	if artist == "" {
		return errors.New("artist must not be empty")
	}
	if preset == "" {
		return errors.New("preset must not be empty")
	}

	query := `
		INSERT INTO profiles (artist, preset, updated_at)
		VALUES (?, ?, ?)
		ON CONFLICT(artist) DO UPDATE SET preset = excluded.preset, updated_at = excluded.updated_at
	`

	if _, err := s.db.ExecContext(ctx, query, artist, preset, s.now().Unix()); err != nil {
		return fmt.Errorf("failed to set profile: %w", err)
	}
	return nil
}

// Remove deletes the mapping for artist and reports whether one existed
func (s *Store) Remove(ctx context.Context, artist string) (bool, error) {
	result, err := s.db.ExecContext(ctx, "DELETE FROM profiles WHERE artist = ?", artist)
	if err != nil {
		return false, fmt.Errorf("failed to remove profile: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to get rows affected: %w", err)
	}
	return rows > 0, nil
}

// List returns every profile ordered by artist
func (s *Store) List(ctx context.Context) ([]Profile, error) {
	rows, err := s.db.QueryContext(ctx, "SELECT artist, preset, updated_at FROM profiles ORDER BY artist ASC")
	if err != nil {
		return nil, fmt.Errorf("failed to query profiles: %w", err)
	}
	defer rows.Close()

	var profiles []Profile
	for rows.Next() {
		var p Profile
		var updatedUnix int64
		if err := rows.Scan(&p.Artist, &p.Preset, &updatedUnix); err != nil {
			return nil, fmt.Errorf("failed to scan profile: %w", err)
		}
		p.UpdatedAt = time.Unix(updatedUnix, 0)
		profiles = append(profiles, p)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating profiles: %w", err)
	}

	return profiles, nil
}

// Import upserts every mapping in a single transaction and returns how many
// were written
func (s *Store) Import(ctx context.Context, mappings map[string]string) (int, error) {
	if len(mappings) == 0 {
		return 0, nil
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO profiles (artist, preset, updated_at)
		VALUES (?, ?, ?)
		ON CONFLICT(artist) DO UPDATE SET preset = excluded.preset, updated_at = excluded.updated_at
	`)
	if err != nil {
		return 0, fmt.Errorf("failed to prepare statement: %w", err)
	}
	defer stmt.Close()

	now := s.now().Unix()
	count := 0
	for artist, preset := range mappings {
		if artist == "" || preset == "" {
			continue
		}
		if _, err := stmt.ExecContext(ctx, artist, preset, now); err != nil {
			return 0, fmt.Errorf("failed to import %q: %w", artist, err)
		}
		count++
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("failed to commit transaction: %w", err)
	}

	return count, nil
}

// All returns the store contents as an artist to preset map
func (s *Store) All(ctx context.Context) (map[string]string, error) {
	profiles, err := s.List(ctx)
	if err != nil {
		return nil, err
	}
	m := make(map[string]string, len(profiles))
	for _, p := range profiles {
		m[p.Artist] = p.Preset
	}
	return m, nil
}

// LoadJSON reads a flat {"artist": "preset"} document
func LoadJSON(path string) (map[string]string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read profiles: %w", err)
	}

	var raw map[string]any
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("failed to parse profiles: %w", err)
	}

	mappings := make(map[string]string, len(raw))
	for artist, v := range raw {
		preset, ok := v.(string)
		if !ok {
			return nil, fmt.Errorf("profile %q: preset must be a string", artist)
		}
		mappings[artist] = preset
	}
	return mappings, nil
}
