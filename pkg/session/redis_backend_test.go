package session

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

func setupMiniredis(t *testing.T) (*miniredis.Miniredis, *RedisBackend) {
	t.Helper()

	mr := miniredis.RunT(t)

	client := redis.NewClient(&redis.Options{
		Addr: mr.Addr(),
	})

	backend := NewRedisBackendFromClient(client, "test:", 0)

	t.Cleanup(func() {
		_ = backend.Close()
	})

	return mr, backend
}

func TestRedisBackend_SaveAndLoadTranscript(t *testing.T) {
	_, backend := setupMiniredis(t)
	ctx := context.Background()

	meta := &TranscriptMetadata{
		ID:        "tr-123",
		UserID:    "user-456",
		CreatedAt: time.Now().UTC(),
		UpdatedAt: time.Now().UTC(),
	}

	if err := backend.SaveTranscript(ctx, meta); err != nil {
		t.Fatalf("SaveTranscript failed: %v", err)
	}

	loaded, err := backend.LoadTranscript(ctx, "tr-123")
	if err != nil {
		t.Fatalf("LoadTranscript failed: %v", err)
	}
	if loaded.ID != meta.ID {
		t.Errorf("ID mismatch: got %s, want %s", loaded.ID, meta.ID)
	}
	if loaded.UserID != meta.UserID {
		t.Errorf("UserID mismatch: got %s, want %s", loaded.UserID, meta.UserID)
	}

	if _, err := backend.LoadTranscript(ctx, "missing"); err != ErrTranscriptNotFound {
		t.Errorf("expected ErrTranscriptNotFound, got %v", err)
	}
}

func TestRedisBackend_Turns(t *testing.T) {
	_, backend := setupMiniredis(t)
	ctx := context.Background()

	turns := []*Turn{
		{ID: "1", Role: "user", Text: "hi", Intent: "greet"},
		{ID: "2", Role: "assistant", Text: "Hello!", State: "idle"},
	}
	for _, turn := range turns {
		if err := backend.AppendTurn(ctx, "tr-1", turn); err != nil {
			t.Fatalf("AppendTurn failed: %v", err)
		}
	}

	loaded, err := backend.LoadTurns(ctx, "tr-1")
	if err != nil {
		t.Fatalf("LoadTurns failed: %v", err)
	}
	if len(loaded) != 2 {
		t.Fatalf("expected 2 turns, got %d", len(loaded))
	}
	if loaded[0].Text != "hi" || loaded[1].Text != "Hello!" {
		t.Errorf("turns out of order: %v, %v", loaded[0].Text, loaded[1].Text)
	}
}

func TestRedisBackend_DeleteTranscript(t *testing.T) {
	_, backend := setupMiniredis(t)
	ctx := context.Background()

	meta := &TranscriptMetadata{ID: "tr-1", CreatedAt: time.Now().UTC(), UpdatedAt: time.Now().UTC()}
	if err := backend.SaveTranscript(ctx, meta); err != nil {
		t.Fatal(err)
	}
	if err := backend.AppendTurn(ctx, "tr-1", &Turn{ID: "1", Role: "user", Text: "hi"}); err != nil {
		t.Fatal(err)
	}

	if err := backend.DeleteTranscript(ctx, "tr-1"); err != nil {
		t.Fatalf("DeleteTranscript failed: %v", err)
	}
	if _, err := backend.LoadTranscript(ctx, "tr-1"); err != ErrTranscriptNotFound {
		t.Errorf("expected ErrTranscriptNotFound, got %v", err)
	}
	turns, err := backend.LoadTurns(ctx, "tr-1")
	if err != nil {
		t.Fatal(err)
	}
	if len(turns) != 0 {
		t.Errorf("expected turns removed, got %d", len(turns))
	}

	if err := backend.DeleteTranscript(ctx, "tr-1"); err != ErrTranscriptNotFound {
		t.Errorf("expected ErrTranscriptNotFound on second delete, got %v", err)
	}
}

func TestRedisBackend_ListTranscripts(t *testing.T) {
	_, backend := setupMiniredis(t)
	ctx := context.Background()

	now := time.Now().UTC()
	for i, id := range []string{"tr-1", "tr-2", "tr-3"} {
		user := "alice"
		if id == "tr-2" {
			user = "bob"
		}
		meta := &TranscriptMetadata{
			ID:        id,
			UserID:    user,
			CreatedAt: now,
			UpdatedAt: now.Add(time.Duration(i) * time.Minute),
		}
		if err := backend.SaveTranscript(ctx, meta); err != nil {
			t.Fatal(err)
		}
	}

	all, err := backend.ListTranscripts(ctx, ListOptions{})
	if err != nil {
		t.Fatal(err)
	}
	if len(all) != 3 {
		t.Fatalf("expected 3 transcripts, got %d", len(all))
	}
	// Newest first.
	if all[0].ID != "tr-3" {
		t.Errorf("expected tr-3 first, got %s", all[0].ID)
	}

	alice, err := backend.ListTranscripts(ctx, ListOptions{UserID: "alice"})
	if err != nil {
		t.Fatal(err)
	}
	if len(alice) != 2 {
		t.Errorf("expected 2 transcripts for alice, got %d", len(alice))
	}
}

func TestRedisBackend_Closed(t *testing.T) {
	_, backend := setupMiniredis(t)
	ctx := context.Background()

	if err := backend.Close(); err != nil {
		t.Fatal(err)
	}
	meta := &TranscriptMetadata{ID: "tr-1"}
	if err := backend.SaveTranscript(ctx, meta); err != ErrStorageClosed {
		t.Errorf("expected ErrStorageClosed, got %v", err)
	}
}
