// Package retrieval provides embedding-backed search over the product
// catalog and FAQ set. Two flat indexes live side by side on disk, each
// a vector blob plus a JSON metadata file; the builder rebuilds them
// from scratch and the retriever answers top-k queries against them.
package retrieval

import (
	"context"
	"encoding/json"
	"fmt"
	"path/filepath"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/shopbot-dev/shopbot/pkg/catalog"
	"github.com/shopbot-dev/shopbot/pkg/observability"
	"github.com/shopbot-dev/shopbot/pkg/embeddings"
	"github.com/shopbot-dev/shopbot/pkg/vectorstore"
	"github.com/shopbot-dev/shopbot/pkg/vectorstore/flat"
)

const (
	productIndexFile = "products.idx"
	productMetaFile  = "products.meta.json"
	faqIndexFile     = "faqs.idx"
	faqMetaFile      = "faqs.meta.json"

	recordKey = "record"
)

// ProductHit is a product matched by a retrieval query.
type ProductHit struct {
	Product  catalog.Product
	Distance float32
}

// FAQHit is a FAQ entry matched by a retrieval query.
type FAQHit struct {
	FAQ      catalog.FAQ
	Distance float32
}

// Retriever answers similarity queries over the built indexes.
type Retriever struct {
	embedder embeddings.EmbeddingService
	products *flat.Store
	faqs     *flat.Store
}

// NewRetriever loads the indexes under indexDir. Missing index files
// leave the corresponding store empty; queries then return no results
// rather than failing.
func NewRetriever(embedder embeddings.EmbeddingService, indexDir string) (*Retriever, error) {
	products, err := newStore(embedder.Dimensions())
	if err != nil {
		return nil, err
	}
	faqs, err := newStore(embedder.Dimensions())
	if err != nil {
		return nil, err
	}

	if err := products.Load(filepath.Join(indexDir, productIndexFile), filepath.Join(indexDir, productMetaFile)); err != nil {
		return nil, fmt.Errorf("load product index: %w", err)
	}
	if err := faqs.Load(filepath.Join(indexDir, faqIndexFile), filepath.Join(indexDir, faqMetaFile)); err != nil {
		return nil, fmt.Errorf("load faq index: %w", err)
	}

	return &Retriever{
		embedder: embedder,
		products: products,
		faqs:     faqs,
	}, nil
}

// SearchProducts returns up to k products closest to the query text.
func (r *Retriever) SearchProducts(ctx context.Context, query string, k int) ([]ProductHit, error) {
	results, err := r.search(ctx, r.products, "products", query, k)
	if err != nil {
		return nil, err
	}

	hits := make([]ProductHit, 0, len(results))
	for _, res := range results {
		var p catalog.Product
		if err := decodeRecord(res.Document, &p); err != nil {
			return nil, err
		}
		hits = append(hits, ProductHit{Product: p, Distance: res.Distance})
	}
	return hits, nil
}

// SearchFAQ returns up to k FAQ entries closest to the query text.
func (r *Retriever) SearchFAQ(ctx context.Context, query string, k int) ([]FAQHit, error) {
	results, err := r.search(ctx, r.faqs, "faqs", query, k)
	if err != nil {
		return nil, err
	}

	hits := make([]FAQHit, 0, len(results))
	for _, res := range results {
		var f catalog.FAQ
		if err := decodeRecord(res.Document, &f); err != nil {
			return nil, err
		}
		hits = append(hits, FAQHit{FAQ: f, Distance: res.Distance})
	}
	return hits, nil
}

// ProductCount returns the number of indexed products.
func (r *Retriever) ProductCount() int {
	return r.products.Count()
}

// FAQCount returns the number of indexed FAQ entries.
func (r *Retriever) FAQCount() int {
	return r.faqs.Count()
}

func (r *Retriever) search(ctx context.Context, store *flat.Store, index, query string, k int) ([]vectorstore.SearchResult, error) {
	if store.Count() == 0 {
		return nil, nil
	}

	ctx, span := observability.StartSpan(ctx, "retrieval.search",
		trace.WithAttributes(attribute.String("retrieval.index", index)))
	defer span.End()

	start := time.Now()
	defer func() { observability.RecordRetrieval(index, time.Since(start)) }()

	embedding, err := r.embedder.Embed(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("embed query: %w", err)
	}

	return store.Search(ctx, vectorstore.SearchQuery{Embedding: embedding, TopK: k})
}

func newStore(dims int) (*flat.Store, error) {
	store, err := flat.New(vectorstore.Config{
		Provider:            "flat",
		EmbeddingDimensions: dims,
	})
	if err != nil {
		return nil, fmt.Errorf("create vector store: %w", err)
	}
	return store, nil
}

func decodeRecord(doc vectorstore.Document, out any) error {
	raw, ok := doc.Metadata[recordKey].(string)
	if !ok {
		return fmt.Errorf("document %s has no %s metadata", doc.ID, recordKey)
	}
	if err := json.Unmarshal([]byte(raw), out); err != nil {
		return fmt.Errorf("decode document %s: %w", doc.ID, err)
	}
	return nil
}
