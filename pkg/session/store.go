package session

import (
	"context"
	"errors"
)

// Common errors for storage operations.
var (
	// ErrTranscriptNotFound is returned when a transcript doesn't exist.
	ErrTranscriptNotFound = errors.New("transcript not found")
	// ErrStorageClosed is returned when operating on a closed storage backend.
	ErrStorageClosed = errors.New("storage backend is closed")
)

// StorageBackend abstracts transcript persistence.
// Implementations must be safe for concurrent use.
type StorageBackend interface {
	// SaveTranscript creates or updates transcript metadata.
	SaveTranscript(ctx context.Context, meta *TranscriptMetadata) error

	// LoadTranscript retrieves transcript metadata by ID.
	// Returns ErrTranscriptNotFound if the transcript doesn't exist.
	LoadTranscript(ctx context.Context, transcriptID string) (*TranscriptMetadata, error)

	// DeleteTranscript removes a transcript and all its turns.
	DeleteTranscript(ctx context.Context, transcriptID string) error

	// ListTranscripts returns transcripts matching the filter options.
	ListTranscripts(ctx context.Context, opts ListOptions) ([]*TranscriptMetadata, error)

	// AppendTurn adds a turn to a transcript (append-only).
	AppendTurn(ctx context.Context, transcriptID string, turn *Turn) error

	// LoadTurns retrieves all turns for a transcript in order.
	LoadTurns(ctx context.Context, transcriptID string) ([]*Turn, error)

	// Close releases any resources held by the backend.
	Close() error
}

// ListOptions provides filtering for transcript listing.
type ListOptions struct {
	// UserID filters transcripts by user.
	UserID string
	// Limit caps the number of results.
	Limit int
	// Offset skips the first N results.
	Offset int
}
