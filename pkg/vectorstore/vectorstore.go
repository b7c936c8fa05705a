// Package vectorstore defines the nearest-neighbour search interface
// the retrieval layer is built on. Providers register themselves by
// name; the flat provider adds durable persistence for offline-built
// indexes.
package vectorstore

import (
	"context"
	"fmt"
	"sync"
	"time"
)

// VectorStore is the main interface for vector index operations.
type VectorStore interface {
	// Upsert inserts or updates documents with embeddings
	Upsert(ctx context.Context, documents []Document) error

	// Search performs similarity search and returns the nearest
	// documents in ascending distance order
	Search(ctx context.Context, query SearchQuery) ([]SearchResult, error)

	// Count returns the number of stored documents
	Count() int

	// Close closes the store
	Close() error
}

// Document represents a document with an embedding and metadata.
type Document struct {
	// ID is the unique identifier for the document
	ID string `json:"id"`

	// Content is the text that was embedded
	Content string `json:"content"`

	// Embedding is the vector representation of the content
	Embedding []float32 `json:"embedding"`

	// Metadata carries the source record payload
	Metadata map[string]any `json:"metadata,omitempty"`

	// CreatedAt is when the document was indexed
	CreatedAt time.Time `json:"created_at"`
}

// SearchQuery defines the parameters for a similarity search.
type SearchQuery struct {
	// Embedding is the query vector to search for
	Embedding []float32

	// TopK is the number of results to return
	TopK int
}

// SearchResult is a single search result.
type SearchResult struct {
	// Document is the matched document
	Document Document

	// Distance is the L2 distance to the query (lower is closer)
	Distance float32
}

// ValidateDocument checks if a document is valid before storage.
func ValidateDocument(doc *Document) error {
	if doc.ID == "" {
		return fmt.Errorf("document ID cannot be empty")
	}
	if doc.Content == "" {
		return fmt.Errorf("document content cannot be empty")
	}
	if len(doc.Embedding) == 0 {
		return fmt.Errorf("document embedding cannot be empty")
	}
	for i, val := range doc.Embedding {
		if val != val {
			return fmt.Errorf("embedding contains NaN at index %d", i)
		}
	}
	return nil
}

// Config describes a vector store to construct.
type Config struct {
	// Provider selects the registered implementation, e.g. "flat".
	Provider string `yaml:"provider"`

	// EmbeddingDimensions is the fixed vector dimension; documents and
	// queries of any other dimension are rejected.
	EmbeddingDimensions int `yaml:"embedding_dimensions"`

	// DefaultTopK is used when a query does not set TopK.
	DefaultTopK int `yaml:"default_top_k"`
}

// Factory creates a VectorStore from a Config.
type Factory func(config Config) (VectorStore, error)

var (
	registry = make(map[string]Factory)
	mu       sync.RWMutex
)

// Register adds a provider to the registry.
func Register(name string, factory Factory) {
	mu.Lock()
	defer mu.Unlock()

	if factory == nil {
		panic("vectorstore: Register factory is nil")
	}
	if _, dup := registry[name]; dup {
		panic("vectorstore: Register called twice for provider " + name)
	}
	registry[name] = factory
}

// New constructs the configured provider.
func New(config Config) (VectorStore, error) {
	mu.RLock()
	factory, ok := registry[config.Provider]
	mu.RUnlock()

	if !ok {
		return nil, fmt.Errorf("unknown vector store provider: %s", config.Provider)
	}
	return factory(config)
}
