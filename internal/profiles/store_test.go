package profiles

import (
	"context"
	"os"
	"path/filepath"
	"reflect"
	"testing"
	"time"
)

// createTestStore creates an in-memory SQLite store for testing
func createTestStore(t *testing.T) *Store {
	t.Helper()

	store, err := Open(":memory:")
	if err != nil {
		t.Fatalf("failed to create test store: %v", err)
	}

	t.Cleanup(func() {
		_ = store.Close()
	})

	return store
}

func TestOpen(t *testing.T) {
	t.Run("in-memory database", func(t *testing.T) {
		store, err := Open(":memory:")
		if err != nil {
			t.Fatalf("failed to open in-memory store: %v", err)
		}
		defer func() { _ = store.Close() }()

		if store.db == nil {
			t.Error("store database is nil")
		}
	})

	t.Run("file-based database persists", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "profiles.db")
		ctx := context.Background()

		store, err := Open(path)
		if err != nil {
			t.Fatalf("failed to open store: %v", err)
		}
		if err := store.Set(ctx, "Daft Punk", "electronic"); err != nil {
			t.Fatalf("failed to set: %v", err)
		}
		_ = store.Close()

		reopened, err := Open(path)
		if err != nil {
			t.Fatalf("failed to reopen store: %v", err)
		}
		defer func() { _ = reopened.Close() }()

		preset, ok, err := reopened.Get(ctx, "Daft Punk")
		if err != nil || !ok || preset != "electronic" {
			t.Errorf("Get() = %q, %v, %v; want electronic, true, nil", preset, ok, err)
		}
	})
}

func TestStoreGetSet(t *testing.T) {
	store := createTestStore(t)
	ctx := context.Background()

	if _, ok, err := store.Get(ctx, "Metallica"); err != nil || ok {
		t.Fatalf("Get() on empty store = ok %v, err %v", ok, err)
	}

	if err := store.Set(ctx, "Metallica", "metal"); err != nil {
		t.Fatalf("failed to set: %v", err)
	}
	if err := store.Set(ctx, "Metallica", "rock"); err != nil {
		t.Fatalf("failed to overwrite: %v", err)
	}

	preset, ok, err := store.Get(ctx, "Metallica")
	if err != nil {
		t.Fatalf("failed to get: %v", err)
	}
	if !ok || preset != "rock" {
		t.Errorf("Get() = %q, %v; want rock, true", preset, ok)
	}

	// artist matching is exact
	if _, ok, _ := store.Get(ctx, "metallica"); ok {
		t.Error("Get() matched artist with different case")
	}
}

func TestStoreSetValidation(t *testing.T) {
	store := createTestStore(t)
	ctx := context.Background()

	if err := store.Set(ctx, "", "rock"); err == nil {
		t.Error("expected error for empty artist")
	}
	if err := store.Set(ctx, "Metallica", ""); err == nil {
		t.Error("expected error for empty preset")
	}
}

func TestStoreRemove(t *testing.T) {
	store := createTestStore(t)
	ctx := context.Background()

	if err := store.Set(ctx, "Adele", "vocal"); err != nil {
		t.Fatalf("failed to set: %v", err)
	}

	removed, err := store.Remove(ctx, "Adele")
	if err != nil || !removed {
		t.Fatalf("Remove() = %v, %v; want true, nil", removed, err)
	}

	removed, err = store.Remove(ctx, "Adele")
	if err != nil || removed {
		t.Errorf("second Remove() = %v, %v; want false, nil", removed, err)
	}
}

func TestStoreListOrdered(t *testing.T) {
	store := createTestStore(t)
	ctx := context.Background()
	fixed := time.Unix(1700000000, 0)
	store.now = func() time.Time { return fixed }

	for artist, preset := range map[string]string{"Miles Davis": "jazz", "Adele": "vocal", "Metallica": "metal"} {
		if err := store.Set(ctx, artist, preset); err != nil {
			t.Fatalf("failed to set: %v", err)
		}
	}

	profiles, err := store.List(ctx)
	if err != nil {
		t.Fatalf("failed to list: %v", err)
	}

	var artists []string
	for _, p := range profiles {
		artists = append(artists, p.Artist)
		if !p.UpdatedAt.Equal(fixed) {
			t.Errorf("UpdatedAt = %v, want %v", p.UpdatedAt, fixed)
		}
	}
	want := []string{"Adele", "Metallica", "Miles Davis"}
	if !reflect.DeepEqual(artists, want) {
		t.Errorf("List() artists = %v, want %v", artists, want)
	}
}

func TestStoreImport(t *testing.T) {
	store := createTestStore(t)
	ctx := context.Background()

	if err := store.Set(ctx, "Adele", "pop"); err != nil {
		t.Fatalf("failed to set: %v", err)
	}

	n, err := store.Import(ctx, map[string]string{
		"Adele":     "vocal",
		"Metallica": "metal",
		"":          "ignored",
		"Nobody":    "",
	})
	if err != nil {
		t.Fatalf("failed to import: %v", err)
	}
	if n != 2 {
		t.Errorf("Import() = %d, want 2", n)
	}

	all, err := store.All(ctx)
	if err != nil {
		t.Fatalf("failed to read all: %v", err)
	}
	want := map[string]string{"Adele": "vocal", "Metallica": "metal"}
	if !reflect.DeepEqual(all, want) {
		t.Errorf("All() = %v, want %v", all, want)
	}
}

func TestStoreImportEmpty(t *testing.T) {
	store := createTestStore(t)

	n, err := store.Import(context.Background(), nil)
	if err != nil || n != 0 {
		t.Errorf("Import(nil) = %d, %v; want 0, nil", n, err)
	}
}

func TestLoadJSON(t *testing.T) {
	dir := t.TempDir()

	tests := []struct {
		name    string
		content string
		want    map[string]string
		wantErr bool
	}{
		{
			name:    "flat mapping",
			content: `{"Daft Punk": "electronic", "Miles Davis": "jazz"}`,
			want:    map[string]string{"Daft Punk": "electronic", "Miles Davis": "jazz"},
		},
		{
			name:    "empty object",
			content: `{}`,
			want:    map[string]string{},
		},
		{
			name:    "non-string preset",
			content: `{"Daft Punk": 3}`,
			wantErr: true,
		},
		{
			name:    "invalid json",
			content: `{"Daft Punk": `,
			wantErr: true,
		},
	}

	for i, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := filepath.Join(dir, "profiles"+string(rune('a'+i))+".json")
			if err := os.WriteFile(path, []byte(tt.content), 0o600); err != nil {
				t.Fatalf("failed to write fixture: %v", err)
			}

			got, err := LoadJSON(path)
			if (err != nil) != tt.wantErr {
				t.Fatalf("LoadJSON() error = %v, wantErr %v", err, tt.wantErr)
			}
			if !tt.wantErr && !reflect.DeepEqual(got, tt.want) {
				t.Errorf("LoadJSON() = %v, want %v", got, tt.want)
			}
		})
	}

	t.Run("missing file", func(t *testing.T) {
		if _, err := LoadJSON(filepath.Join(dir, "nope.json")); err == nil {
			t.Error("expected error for missing file")
		}
	})
}
