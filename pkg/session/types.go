// Package session persists conversation transcripts. A transcript is a
// sequence of (role, text) turns plus summary metadata kept separately
// so transcripts can be listed without loading every turn.
package session

import (
	"time"
)

// Turn is a single transcript entry. Turns are append-only and
// immutable once written.
type Turn struct {
	// ID is the unique identifier for this turn.
	ID string `json:"id"`
	// Timestamp is when the turn was recorded.
	Timestamp time.Time `json:"timestamp"`
	// Role is "user" or "assistant".
	Role string `json:"role"`
	// Text is the turn content.
	Text string `json:"text"`
	// Intent is the classified intent for user turns, if any.
	Intent string `json:"intent,omitempty"`
	// State is the dialogue state after the turn, if any.
	State string `json:"state,omitempty"`
}

// TranscriptMetadata holds transcript summary information.
type TranscriptMetadata struct {
	// ID is the unique transcript identifier.
	ID string `json:"id"`
	// UserID identifies the user (optional).
	UserID string `json:"userId,omitempty"`
	// CreatedAt is when the transcript was created.
	CreatedAt time.Time `json:"createdAt"`
	// UpdatedAt is when the transcript was last modified.
	UpdatedAt time.Time `json:"updatedAt"`
	// TurnCount is the number of turns in the transcript.
	TurnCount int `json:"turnCount"`
	// LastState is the dialogue state after the latest turn.
	LastState string `json:"lastState,omitempty"`
}
