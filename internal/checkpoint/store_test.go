package checkpoint

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
)

func TestSaveLoadRoundTrip(t *testing.T) {
	ctx := context.Background()
	store, err := Open(ctx, filepath.Join(t.TempDir(), "checkpoints.db"))
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	defer store.Close() //nolint:errcheck

	if err := store.Save(ctx, "http://localhost:7799", "a1", "41"); err != nil {
		t.Fatalf("save: %v", err)
	}
	cursor, err := store.Load(ctx, "http://localhost:7799", "a1")
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cursor != "41" {
		t.Fatalf("expected cursor 41, got %q", cursor)
	}
}

func TestSaveOverwrites(t *testing.T) {
	ctx := context.Background()
	store, err := Open(ctx, filepath.Join(t.TempDir(), "checkpoints.db"))
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	defer store.Close() //nolint:errcheck

	if err := store.Save(ctx, "ep", "", "1"); err != nil {
		t.Fatalf("save: %v", err)
	}
	if err := store.Save(ctx, "ep", "", "2"); err != nil {
		t.Fatalf("second save: %v", err)
	}
	cursor, err := store.Load(ctx, "ep", "")
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cursor != "2" {
		t.Fatalf("expected latest cursor, got %q", cursor)
	}
}

func TestEmptyCursorDoesNotClobber(t *testing.T) {
	ctx := context.Background()
	store, err := Open(ctx, filepath.Join(t.TempDir(), "checkpoints.db"))
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	defer store.Close() //nolint:errcheck

	if err := store.Save(ctx, "ep", "", "7"); err != nil {
		t.Fatalf("save: %v", err)
	}
	if err := store.Save(ctx, "ep", "", ""); err != nil {
		t.Fatalf("empty save: %v", err)
	}
	cursor, err := store.Load(ctx, "ep", "")
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cursor != "7" {
		t.Fatalf("empty save must not clobber, got %q", cursor)
	}
}

func TestLoadMissingReturnsNotFound(t *testing.T) {
	ctx := context.Background()
	store, err := Open(ctx, filepath.Join(t.TempDir(), "checkpoints.db"))
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	defer store.Close() //nolint:errcheck

	if _, err := store.Load(ctx, "ep", "none"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestCheckpointsIsolatedByEndpointAndFilter(t *testing.T) {
	ctx := context.Background()
	store, err := Open(ctx, filepath.Join(t.TempDir(), "checkpoints.db"))
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	defer store.Close() //nolint:errcheck

	if err := store.Save(ctx, "ep1", "a1", "10"); err != nil {
		t.Fatalf("save: %v", err)
	}
	if err := store.Save(ctx, "ep1", "a2", "20"); err != nil {
		t.Fatalf("save: %v", err)
	}
	if err := store.Save(ctx, "ep2", "a1", "30"); err != nil {
		t.Fatalf("save: %v", err)
	}
	for _, tc := range []struct {
		endpoint, filter, want string
	}{
		{"ep1", "a1", "10"},
		{"ep1", "a2", "20"},
		{"ep2", "a1", "30"},
	} {
		cursor, err := store.Load(ctx, tc.endpoint, tc.filter)
		if err != nil {
			t.Fatalf("load %s/%s: %v", tc.endpoint, tc.filter, err)
		}
		if cursor != tc.want {
			t.Fatalf("%s/%s: expected %q, got %q", tc.endpoint, tc.filter, tc.want, cursor)
		}
	}
}

func TestClearRemovesCheckpoint(t *testing.T) {
	ctx := context.Background()
	store, err := Open(ctx, filepath.Join(t.TempDir(), "checkpoints.db"))
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	defer store.Close() //nolint:errcheck

	if err := store.Save(ctx, "ep", "", "5"); err != nil {
		t.Fatalf("save: %v", err)
	}
	if err := store.Clear(ctx, "ep", ""); err != nil {
		t.Fatalf("clear: %v", err)
	}
	if _, err := store.Load(ctx, "ep", ""); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound after clear, got %v", err)
	}
}
