package session

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Manager manages transcript lifecycle.
// Manager is safe for concurrent use.
type Manager struct {
	backend StorageBackend
}

// NewManager creates a new transcript manager with the given storage backend.
func NewManager(backend StorageBackend) *Manager {
	return &Manager{backend: backend}
}

// Start creates a new transcript, optionally tied to a user.
func (m *Manager) Start(ctx context.Context, userID string) (*TranscriptMetadata, error) {
	now := time.Now().UTC()
	meta := &TranscriptMetadata{
		ID:        uuid.New().String(),
		UserID:    userID,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := m.backend.SaveTranscript(ctx, meta); err != nil {
		return nil, fmt.Errorf("save transcript: %w", err)
	}
	return meta, nil
}

// Backend returns the underlying storage backend.
func (m *Manager) Backend() StorageBackend {
	return m.backend
}

// Record appends a turn and bumps the transcript metadata.
func (m *Manager) Record(ctx context.Context, transcriptID string, turn *Turn) error {
	meta, err := m.backend.LoadTranscript(ctx, transcriptID)
	if err != nil {
		return err
	}

	if turn.ID == "" {
		turn.ID = uuid.New().String()
	}
	if turn.Timestamp.IsZero() {
		turn.Timestamp = time.Now().UTC()
	}

	if err := m.backend.AppendTurn(ctx, transcriptID, turn); err != nil {
		return fmt.Errorf("append turn: %w", err)
	}

	meta.TurnCount++
	meta.UpdatedAt = turn.Timestamp
	if turn.State != "" {
		meta.LastState = turn.State
	}
	if err := m.backend.SaveTranscript(ctx, meta); err != nil {
		return fmt.Errorf("update transcript metadata: %w", err)
	}
	return nil
}

// History returns all turns of a transcript in order.
func (m *Manager) History(ctx context.Context, transcriptID string) ([]*Turn, error) {
	if _, err := m.backend.LoadTranscript(ctx, transcriptID); err != nil {
		return nil, err
	}
	return m.backend.LoadTurns(ctx, transcriptID)
}

// Get retrieves transcript metadata by ID.
func (m *Manager) Get(ctx context.Context, transcriptID string) (*TranscriptMetadata, error) {
	return m.backend.LoadTranscript(ctx, transcriptID)
}

// List returns transcripts matching the filter options.
func (m *Manager) List(ctx context.Context, opts ListOptions) ([]*TranscriptMetadata, error) {
	return m.backend.ListTranscripts(ctx, opts)
}

// Delete removes a transcript and all its turns.
func (m *Manager) Delete(ctx context.Context, transcriptID string) error {
	return m.backend.DeleteTranscript(ctx, transcriptID)
}

// Close releases resources held by the manager.
func (m *Manager) Close() error {
	return m.backend.Close()
}
