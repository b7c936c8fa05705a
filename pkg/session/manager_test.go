package session

import (
	"context"
	"testing"
)

func newTestManager(t *testing.T) *Manager {
	t.Helper()
	backend, err := NewFileBackend(t.TempDir())
	if err != nil {
		t.Fatalf("failed to create backend: %v", err)
	}
	m := NewManager(backend)
	t.Cleanup(func() { _ = m.Close() })
	return m
}

func TestManagerStartAndRecord(t *testing.T) {
	m := newTestManager(t)
	ctx := context.Background()

	meta, err := m.Start(ctx, "user-1")
	if err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	if meta.ID == "" {
		t.Fatal("expected a generated transcript ID")
	}
	if meta.TurnCount != 0 {
		t.Errorf("expected 0 turns, got %d", meta.TurnCount)
	}

	if err := m.Record(ctx, meta.ID, &Turn{Role: "user", Text: "hi", Intent: "greet"}); err != nil {
		t.Fatalf("Record failed: %v", err)
	}
	if err := m.Record(ctx, meta.ID, &Turn{Role: "assistant", Text: "Hello!", State: "idle"}); err != nil {
		t.Fatalf("Record failed: %v", err)
	}

	updated, err := m.Get(ctx, meta.ID)
	if err != nil {
		t.Fatal(err)
	}
	if updated.TurnCount != 2 {
		t.Errorf("expected 2 turns, got %d", updated.TurnCount)
	}
	if updated.LastState != "idle" {
		t.Errorf("expected last state idle, got %s", updated.LastState)
	}

	history, err := m.History(ctx, meta.ID)
	if err != nil {
		t.Fatal(err)
	}
	if len(history) != 2 {
		t.Fatalf("expected 2 turns, got %d", len(history))
	}
	if history[0].ID == "" || history[0].Timestamp.IsZero() {
		t.Error("expected turn ID and timestamp to be filled in")
	}
}

func TestManagerRecordUnknownTranscript(t *testing.T) {
	m := newTestManager(t)
	err := m.Record(context.Background(), "nope", &Turn{Role: "user", Text: "hi"})
	if err != ErrTranscriptNotFound {
		t.Errorf("expected ErrTranscriptNotFound, got %v", err)
	}
}

func TestManagerDelete(t *testing.T) {
	m := newTestManager(t)
	ctx := context.Background()

	meta, err := m.Start(ctx, "")
	if err != nil {
		t.Fatal(err)
	}
	if err := m.Delete(ctx, meta.ID); err != nil {
		t.Fatalf("Delete failed: %v", err)
	}
	if _, err := m.History(ctx, meta.ID); err != ErrTranscriptNotFound {
		t.Errorf("expected ErrTranscriptNotFound, got %v", err)
	}
}
