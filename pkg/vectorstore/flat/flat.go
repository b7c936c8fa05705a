// Package flat implements a brute-force vector store with durable
// persistence: the vectors are written as an opaque gob blob and the
// documents as a parallel JSON metadata file. The i-th vector in the
// blob always corresponds to the i-th document in the metadata file;
// preserving that alignment is the package's core invariant.
package flat

import (
	"context"
	"encoding/gob"
	"encoding/json"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"sort"
	"sync"

	"github.com/shopbot-dev/shopbot/pkg/vectorstore"
)

// Store is a flat (exhaustive-search) vector store.
// Safe for concurrent use.
type Store struct {
	dims        int
	defaultTopK int

	mu      sync.RWMutex
	vectors [][]float32
	docs    []vectorstore.Document
}

func init() {
	vectorstore.Register("flat", func(config vectorstore.Config) (vectorstore.VectorStore, error) {
		return New(config)
	})
}

// New creates an empty flat store for the configured dimensions.
func New(config vectorstore.Config) (*Store, error) {
	if config.EmbeddingDimensions <= 0 {
		return nil, fmt.Errorf("embedding dimensions must be greater than 0, got %d", config.EmbeddingDimensions)
	}

	topK := config.DefaultTopK
	if topK <= 0 {
		topK = 3
	}

	return &Store{
		dims:        config.EmbeddingDimensions,
		defaultTopK: topK,
	}, nil
}

// Upsert appends documents to the store. A document whose ID is
// already present replaces the prior vector and metadata in place so
// positional alignment is never disturbed.
func (s *Store) Upsert(ctx context.Context, documents []vectorstore.Document) error {
	if len(documents) == 0 {
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	for i := range documents {
		if err := vectorstore.ValidateDocument(&documents[i]); err != nil {
			return fmt.Errorf("invalid document at index %d: %w", i, err)
		}
		if len(documents[i].Embedding) != s.dims {
			return fmt.Errorf("document %s embedding dimension mismatch: expected %d, got %d",
				documents[i].ID, s.dims, len(documents[i].Embedding))
		}
	}

	for _, doc := range documents {
		doc = copyDocument(doc)
		if idx, ok := s.indexOf(doc.ID); ok {
			s.vectors[idx] = doc.Embedding
			s.docs[idx] = doc
			continue
		}
		s.vectors = append(s.vectors, doc.Embedding)
		s.docs = append(s.docs, doc)
	}

	return nil
}

// Search returns up to TopK documents in ascending distance order.
// An empty store yields an empty result, never an error.
func (s *Store) Search(ctx context.Context, query vectorstore.SearchQuery) ([]vectorstore.SearchResult, error) {
	topK := query.TopK
	if topK <= 0 {
		topK = s.defaultTopK
	}
	if len(query.Embedding) != s.dims {
		return nil, fmt.Errorf("query embedding dimension mismatch: expected %d, got %d",
			s.dims, len(query.Embedding))
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	if len(s.vectors) == 0 {
		return []vectorstore.SearchResult{}, nil
	}

	results := make([]vectorstore.SearchResult, 0, len(s.vectors))
	for i, vec := range s.vectors {
		results = append(results, vectorstore.SearchResult{
			Document: copyDocument(s.docs[i]),
			Distance: l2Distance(query.Embedding, vec),
		})
	}

	sort.SliceStable(results, func(i, j int) bool {
		return results[i].Distance < results[j].Distance
	})

	if len(results) > topK {
		results = results[:topK]
	}
	return results, nil
}

// Count returns the number of stored documents.
func (s *Store) Count() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.docs)
}

// Close is a no-op for the flat store.
func (s *Store) Close() error {
	return nil
}

// Save persists the store: vectors as a gob blob at indexPath and the
// documents as a JSON array at metaPath. The write fully replaces any
// prior index.
func (s *Store) Save(indexPath, metaPath string) error {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if err := os.MkdirAll(filepath.Dir(indexPath), 0o700); err != nil {
		return fmt.Errorf("create index directory: %w", err)
	}

	blob, err := os.OpenFile(indexPath, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, 0o600)
	if err != nil {
		return fmt.Errorf("open index blob: %w", err)
	}
	if err := gob.NewEncoder(blob).Encode(s.vectors); err != nil {
		_ = blob.Close()
		return fmt.Errorf("encode index blob: %w", err)
	}
	if err := blob.Close(); err != nil {
		return fmt.Errorf("close index blob: %w", err)
	}

	meta, err := json.MarshalIndent(s.docs, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal metadata: %w", err)
	}
	if err := os.WriteFile(metaPath, meta, 0o600); err != nil {
		return fmt.Errorf("write metadata: %w", err)
	}

	return nil
}

// Load replaces the store contents from a previously saved index.
// A missing index leaves the store empty and returns nil; retrieval
// over an unbuilt index is a "no results" outcome, not a failure.
func (s *Store) Load(indexPath, metaPath string) error {
	blob, err := os.Open(indexPath)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("open index blob: %w", err)
	}
	defer func() { _ = blob.Close() }()

	var vectors [][]float32
	if err := gob.NewDecoder(blob).Decode(&vectors); err != nil {
		return fmt.Errorf("decode index blob: %w", err)
	}

	metaData, err := os.ReadFile(metaPath)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("read metadata: %w", err)
	}

	var docs []vectorstore.Document
	if err := json.Unmarshal(metaData, &docs); err != nil {
		return fmt.Errorf("parse metadata: %w", err)
	}

	if len(vectors) != len(docs) {
		return fmt.Errorf("index/metadata misaligned: %d vectors, %d records", len(vectors), len(docs))
	}
	for i, vec := range vectors {
		if len(vec) != s.dims {
			return fmt.Errorf("vector %d dimension mismatch: expected %d, got %d", i, s.dims, len(vec))
		}
	}

	s.mu.Lock()
	s.vectors = vectors
	s.docs = docs
	s.mu.Unlock()

	return nil
}

// indexOf returns the position of a document ID. Caller holds the lock.
func (s *Store) indexOf(id string) (int, bool) {
	for i := range s.docs {
		if s.docs[i].ID == id {
			return i, true
		}
	}
	return 0, false
}

func l2Distance(a, b []float32) float32 {
	var sum float32
	for i := range a {
		diff := a[i] - b[i]
		sum += diff * diff
	}
	return float32(math.Sqrt(float64(sum)))
}

func copyDocument(doc vectorstore.Document) vectorstore.Document {
	embedding := make([]float32, len(doc.Embedding))
	copy(embedding, doc.Embedding)

	var metadata map[string]any
	if doc.Metadata != nil {
		metadata = make(map[string]any, len(doc.Metadata))
		for k, v := range doc.Metadata {
			metadata[k] = v
		}
	}

	return vectorstore.Document{
		ID:        doc.ID,
		Content:   doc.Content,
		Embedding: embedding,
		Metadata:  metadata,
		CreatedAt: doc.CreatedAt,
	}
}
