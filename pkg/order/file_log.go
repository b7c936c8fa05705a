package order

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
)

// FileLog implements Log as a JSON-lines file: one order record per
// line, appended under an exclusive lock. Status updates rewrite the
// full file with one record changed.
type FileLog struct {
	path   string
	mu     sync.Mutex
	closed bool
}

// NewFileLog creates a file-backed order log at the given path,
// creating parent directories as needed.
func NewFileLog(path string) (*FileLog, error) {
	if path == "" {
		return nil, fmt.Errorf("order log path is required")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return nil, fmt.Errorf("create log directory: %w", err)
	}
	return &FileLog{path: path}, nil
}

// Append writes one order record to the end of the log.
func (f *FileLog) Append(ctx context.Context, o *Order) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.closed {
		return ErrLogClosed
	}

	file, err := os.OpenFile(f.path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o600)
	if err != nil {
		return fmt.Errorf("open order log: %w", err)
	}
	defer func() { _ = file.Close() }()

	data, err := json.Marshal(o)
	if err != nil {
		return fmt.Errorf("marshal order: %w", err)
	}

	if _, err := file.Write(append(data, '\n')); err != nil {
		return fmt.Errorf("write order: %w", err)
	}

	// A lost order is unrecoverable, so flush before reporting success.
	if err := file.Sync(); err != nil {
		return fmt.Errorf("sync order log: %w", err)
	}

	return nil
}

// List returns all records in append order.
func (f *FileLog) List(ctx context.Context) ([]*Order, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.closed {
		return nil, ErrLogClosed
	}

	return f.readAll()
}

// Get returns the record with the given order ID.
func (f *FileLog) Get(ctx context.Context, orderID string) (*Order, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.closed {
		return nil, ErrLogClosed
	}

	orders, err := f.readAll()
	if err != nil {
		return nil, err
	}
	for _, o := range orders {
		if o.ID == orderID {
			return o, nil
		}
	}
	return nil, ErrOrderNotFound
}

// UpdateStatus rewrites the log with one record's status changed.
func (f *FileLog) UpdateStatus(ctx context.Context, orderID, status string) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.closed {
		return ErrLogClosed
	}

	orders, err := f.readAll()
	if err != nil {
		return err
	}

	found := false
	for _, o := range orders {
		if o.ID == orderID {
			o.Status = status
			found = true
			break
		}
	}
	if !found {
		return ErrOrderNotFound
	}

	// Write to a temp file and rename so a crash mid-rewrite cannot
	// truncate the log.
	tmp := f.path + ".tmp"
	file, err := os.OpenFile(tmp, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, 0o600)
	if err != nil {
		return fmt.Errorf("open temp log: %w", err)
	}

	w := bufio.NewWriter(file)
	for _, o := range orders {
		data, err := json.Marshal(o)
		if err != nil {
			_ = file.Close()
			return fmt.Errorf("marshal order: %w", err)
		}
		if _, err := w.Write(append(data, '\n')); err != nil {
			_ = file.Close()
			return fmt.Errorf("write order: %w", err)
		}
	}
	if err := w.Flush(); err != nil {
		_ = file.Close()
		return fmt.Errorf("flush temp log: %w", err)
	}
	if err := file.Close(); err != nil {
		return fmt.Errorf("close temp log: %w", err)
	}

	if err := os.Rename(tmp, f.path); err != nil {
		return fmt.Errorf("replace order log: %w", err)
	}

	return nil
}

// Close marks the log closed. Further operations return ErrLogClosed.
func (f *FileLog) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.closed = true
	return nil
}

// readAll loads every record. Caller must hold the lock.
func (f *FileLog) readAll() ([]*Order, error) {
	file, err := os.Open(f.path)
	if err != nil {
		if os.IsNotExist(err) {
			return []*Order{}, nil
		}
		return nil, fmt.Errorf("open order log: %w", err)
	}
	defer func() { _ = file.Close() }()

	var orders []*Order
	scanner := bufio.NewScanner(file)
	for scanner.Scan() {
		var o Order
		if err := json.Unmarshal(scanner.Bytes(), &o); err != nil {
			return nil, fmt.Errorf("parse order record: %w", err)
		}
		orders = append(orders, &o)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("scan order log: %w", err)
	}

	return orders, nil
}
