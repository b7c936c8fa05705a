package session

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
)

// ErrInvalidPathComponent is returned when a path component contains unsafe characters.
var ErrInvalidPathComponent = errors.New("invalid path component: contains path separator or traversal sequence")

// validatePathComponent checks that a string is safe to use as a path component.
// It rejects empty strings, path separators, and traversal sequences.
func validatePathComponent(s string) error {
	if s == "" {
		return errors.New("path component cannot be empty")
	}
	if strings.ContainsAny(s, `/\`) || strings.Contains(s, "..") {
		return ErrInvalidPathComponent
	}
	return nil
}

// FileBackend implements StorageBackend using JSONL files.
// Storage layout:
//
//	~/.shopbot/transcripts/
//	  ├── transcripts.json      # Transcript index
//	  └── <transcript-id>.jsonl # Transcript turns
type FileBackend struct {
	baseDir string
	mu      sync.RWMutex
	closed  bool
}

// NewFileBackend creates a new file-based storage backend.
// If baseDir is empty, uses ~/.shopbot/transcripts.
func NewFileBackend(baseDir string) (*FileBackend, error) {
	if baseDir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("get home directory: %w", err)
		}
		baseDir = filepath.Join(home, ".shopbot", "transcripts")
	}

	if err := os.MkdirAll(baseDir, 0700); err != nil {
		return nil, fmt.Errorf("create base directory: %w", err)
	}

	return &FileBackend{
		baseDir: baseDir,
	}, nil
}

// SaveTranscript creates or updates transcript metadata.
func (f *FileBackend) SaveTranscript(ctx context.Context, meta *TranscriptMetadata) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.closed {
		return ErrStorageClosed
	}
	if err := validatePathComponent(meta.ID); err != nil {
		return fmt.Errorf("invalid transcript ID: %w", err)
	}

	index, err := f.loadIndex()
	if err != nil {
		return err
	}
	index[meta.ID] = meta
	return f.writeIndex(index)
}

// LoadTranscript retrieves transcript metadata by ID.
func (f *FileBackend) LoadTranscript(ctx context.Context, transcriptID string) (*TranscriptMetadata, error) {
	f.mu.RLock()
	defer f.mu.RUnlock()

	if f.closed {
		return nil, ErrStorageClosed
	}

	index, err := f.loadIndex()
	if err != nil {
		return nil, err
	}
	meta, ok := index[transcriptID]
	if !ok {
		return nil, ErrTranscriptNotFound
	}
	return meta, nil
}

// DeleteTranscript removes a transcript and all its turns.
func (f *FileBackend) DeleteTranscript(ctx context.Context, transcriptID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.closed {
		return ErrStorageClosed
	}
	if err := validatePathComponent(transcriptID); err != nil {
		return fmt.Errorf("invalid transcript ID: %w", err)
	}

	index, err := f.loadIndex()
	if err != nil {
		return err
	}
	if _, ok := index[transcriptID]; !ok {
		return ErrTranscriptNotFound
	}
	delete(index, transcriptID)
	if err := f.writeIndex(index); err != nil {
		return err
	}

	turnsPath := filepath.Join(f.baseDir, transcriptID+".jsonl")
	if err := os.Remove(turnsPath); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("remove turns file: %w", err)
	}
	return nil
}

// ListTranscripts returns transcripts matching the filter options,
// newest first.
func (f *FileBackend) ListTranscripts(ctx context.Context, opts ListOptions) ([]*TranscriptMetadata, error) {
	f.mu.RLock()
	defer f.mu.RUnlock()

	if f.closed {
		return nil, ErrStorageClosed
	}

	index, err := f.loadIndex()
	if err != nil {
		return nil, err
	}

	results := make([]*TranscriptMetadata, 0, len(index))
	for _, meta := range index {
		if opts.UserID != "" && meta.UserID != opts.UserID {
			continue
		}
		results = append(results, meta)
	}

	sort.Slice(results, func(i, j int) bool {
		return results[i].UpdatedAt.After(results[j].UpdatedAt)
	})

	return paginate(results, opts), nil
}

// AppendTurn adds a turn to a transcript's JSONL file.
func (f *FileBackend) AppendTurn(ctx context.Context, transcriptID string, turn *Turn) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.closed {
		return ErrStorageClosed
	}
	if err := validatePathComponent(transcriptID); err != nil {
		return fmt.Errorf("invalid transcript ID: %w", err)
	}

	data, err := json.Marshal(turn)
	if err != nil {
		return fmt.Errorf("marshal turn: %w", err)
	}

	turnsPath := filepath.Join(f.baseDir, transcriptID+".jsonl")
	file, err := os.OpenFile(turnsPath, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0600) // #nosec G304 - transcript ID validated
	if err != nil {
		return fmt.Errorf("open turns file: %w", err)
	}
	defer func() { _ = file.Close() }()

	if _, err := file.Write(append(data, '\n')); err != nil {
		return fmt.Errorf("write turn: %w", err)
	}
	return nil
}

// LoadTurns retrieves all turns for a transcript in order.
func (f *FileBackend) LoadTurns(ctx context.Context, transcriptID string) ([]*Turn, error) {
	f.mu.RLock()
	defer f.mu.RUnlock()

	if f.closed {
		return nil, ErrStorageClosed
	}
	if err := validatePathComponent(transcriptID); err != nil {
		return nil, fmt.Errorf("invalid transcript ID: %w", err)
	}

	turnsPath := filepath.Join(f.baseDir, transcriptID+".jsonl")
	file, err := os.Open(turnsPath) // #nosec G304 - transcript ID validated
	if err != nil {
		if os.IsNotExist(err) {
			return []*Turn{}, nil
		}
		return nil, fmt.Errorf("open turns file: %w", err)
	}
	defer func() { _ = file.Close() }()

	var turns []*Turn
	scanner := bufio.NewScanner(file)
	for scanner.Scan() {
		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}
		var turn Turn
		if err := json.Unmarshal(line, &turn); err != nil {
			return nil, fmt.Errorf("parse turn: %w", err)
		}
		turns = append(turns, &turn)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("scan turns file: %w", err)
	}
	return turns, nil
}

// Close marks the backend as closed.
func (f *FileBackend) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.closed = true
	return nil
}

// loadIndex reads the transcript index. Caller holds the lock.
func (f *FileBackend) loadIndex() (map[string]*TranscriptMetadata, error) {
	index := make(map[string]*TranscriptMetadata)
	indexPath := filepath.Join(f.baseDir, "transcripts.json")

	data, err := os.ReadFile(indexPath) // #nosec G304 - baseDir is operator-controlled
	if err != nil {
		if os.IsNotExist(err) {
			return index, nil
		}
		return nil, fmt.Errorf("read transcript index: %w", err)
	}
	if err := json.Unmarshal(data, &index); err != nil {
		return nil, fmt.Errorf("parse transcript index: %w", err)
	}
	return index, nil
}

// writeIndex persists the transcript index. Caller holds the lock.
func (f *FileBackend) writeIndex(index map[string]*TranscriptMetadata) error {
	data, err := json.MarshalIndent(index, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal transcript index: %w", err)
	}
	indexPath := filepath.Join(f.baseDir, "transcripts.json")
	if err := os.WriteFile(indexPath, data, 0600); err != nil {
		return fmt.Errorf("write transcript index: %w", err)
	}
	return nil
}

func paginate(results []*TranscriptMetadata, opts ListOptions) []*TranscriptMetadata {
	if opts.Offset > 0 {
		if opts.Offset >= len(results) {
			return []*TranscriptMetadata{}
		}
		results = results[opts.Offset:]
	}
	if opts.Limit > 0 && len(results) > opts.Limit {
		results = results[:opts.Limit]
	}
	return results
}
