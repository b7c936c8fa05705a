package retrieval

import (
	"context"
	"encoding/json"
	"fmt"
	"path/filepath"

	"golang.org/x/sync/errgroup"

	"github.com/shopbot-dev/shopbot/pkg/catalog"
	"github.com/shopbot-dev/shopbot/pkg/embeddings"
	"github.com/shopbot-dev/shopbot/pkg/vectorstore"
)

const (
	defaultBatchSize   = 64
	defaultConcurrency = 4
)

// Builder constructs the on-disk retrieval indexes from the catalog.
type Builder struct {
	embedder    embeddings.EmbeddingService
	batchSize   int
	concurrency int
}

// NewBuilder creates an index builder using the given embedder.
func NewBuilder(embedder embeddings.EmbeddingService) *Builder {
	return &Builder{
		embedder:    embedder,
		batchSize:   defaultBatchSize,
		concurrency: defaultConcurrency,
	}
}

// BuildStats reports what an index build produced.
type BuildStats struct {
	Products int
	FAQs     int
}

// Build embeds the full catalog and writes both indexes under indexDir,
// replacing whatever was there. Rebuilding from the same inputs yields
// equivalent indexes, so the operation is safe to run on a schedule.
func (b *Builder) Build(ctx context.Context, products []catalog.Product, faqs []catalog.FAQ, indexDir string) (BuildStats, error) {
	productDocs, err := b.buildProductDocs(ctx, products)
	if err != nil {
		return BuildStats{}, fmt.Errorf("build product index: %w", err)
	}
	faqDocs, err := b.buildFAQDocs(ctx, faqs)
	if err != nil {
		return BuildStats{}, fmt.Errorf("build faq index: %w", err)
	}

	if err := b.save(ctx, productDocs, filepath.Join(indexDir, productIndexFile), filepath.Join(indexDir, productMetaFile)); err != nil {
		return BuildStats{}, fmt.Errorf("save product index: %w", err)
	}
	if err := b.save(ctx, faqDocs, filepath.Join(indexDir, faqIndexFile), filepath.Join(indexDir, faqMetaFile)); err != nil {
		return BuildStats{}, fmt.Errorf("save faq index: %w", err)
	}

	return BuildStats{Products: len(productDocs), FAQs: len(faqDocs)}, nil
}

func (b *Builder) buildProductDocs(ctx context.Context, products []catalog.Product) ([]vectorstore.Document, error) {
	texts := make([]string, len(products))
	for i, p := range products {
		texts[i] = p.EmbedText()
	}

	vectors, err := b.embedAll(ctx, texts)
	if err != nil {
		return nil, err
	}

	docs := make([]vectorstore.Document, len(products))
	for i, p := range products {
		record, err := json.Marshal(p)
		if err != nil {
			return nil, fmt.Errorf("encode product %s: %w", p.ID, err)
		}
		docs[i] = vectorstore.Document{
			ID:        p.ID,
			Content:   texts[i],
			Embedding: vectors[i],
			Metadata:  map[string]any{recordKey: string(record)},
		}
	}
	return docs, nil
}

func (b *Builder) buildFAQDocs(ctx context.Context, faqs []catalog.FAQ) ([]vectorstore.Document, error) {
	texts := make([]string, len(faqs))
	for i, f := range faqs {
		texts[i] = f.EmbedText()
	}

	vectors, err := b.embedAll(ctx, texts)
	if err != nil {
		return nil, err
	}

	docs := make([]vectorstore.Document, len(faqs))
	for i, f := range faqs {
		record, err := json.Marshal(f)
		if err != nil {
			return nil, fmt.Errorf("encode faq %d: %w", i, err)
		}
		docs[i] = vectorstore.Document{
			ID:        fmt.Sprintf("faq-%d", i),
			Content:   texts[i],
			Embedding: vectors[i],
			Metadata:  map[string]any{recordKey: string(record)},
		}
	}
	return docs, nil
}

// embedAll embeds texts in batches with bounded concurrency, writing
// each batch result back into its slot so the output order matches the
// input order.
func (b *Builder) embedAll(ctx context.Context, texts []string) ([][]float32, error) {
	vectors := make([][]float32, len(texts))
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(b.concurrency)

	for start := 0; start < len(texts); start += b.batchSize {
		start := start
		end := start + b.batchSize
		if end > len(texts) {
			end = len(texts)
		}

		g.Go(func() error {
			batch, err := b.embedder.EmbedBatch(ctx, texts[start:end])
			if err != nil {
				return fmt.Errorf("embed batch [%d:%d]: %w", start, end, err)
			}
			if len(batch) != end-start {
				return fmt.Errorf("embed batch [%d:%d]: expected %d vectors, got %d", start, end, end-start, len(batch))
			}
			copy(vectors[start:end], batch)
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return vectors, nil
}

func (b *Builder) save(ctx context.Context, docs []vectorstore.Document, indexPath, metaPath string) error {
	store, err := newStore(b.embedder.Dimensions())
	if err != nil {
		return err
	}
	if err := store.Upsert(ctx, docs); err != nil {
		return err
	}
	return store.Save(indexPath, metaPath)
}
