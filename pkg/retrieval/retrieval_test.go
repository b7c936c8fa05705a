package retrieval

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shopbot-dev/shopbot/pkg/catalog"
)

// fakeEmbedder returns fixed vectors per text so tests are
// deterministic and need no network.
type fakeEmbedder struct {
	vectors map[string][]float32
	dims    int
	calls   int
	failOn  string
}

func (f *fakeEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	f.calls++
	if f.failOn != "" && text == f.failOn {
		return nil, fmt.Errorf("embedding failed for %q", text)
	}
	if vec, ok := f.vectors[text]; ok {
		return vec, nil
	}
	// Unknown texts land far from everything in the fixture space.
	return []float32{99, 99, 99, 99}[:f.dims], nil
}

func (f *fakeEmbedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	for i, text := range texts {
		vec, err := f.Embed(ctx, text)
		if err != nil {
			return nil, err
		}
		out[i] = vec
	}
	return out, nil
}

func (f *fakeEmbedder) Dimensions() int   { return f.dims }
func (f *fakeEmbedder) ModelName() string { return "fake" }
func (f *fakeEmbedder) Close() error      { return nil }

func testProducts() []catalog.Product {
	return []catalog.Product{
		{ID: "p1", Name: "Gaming Mouse", Price: 500, Description: "wired optical mouse", Category: "peripherals"},
		{ID: "p2", Name: "Mechanical Keyboard", Price: 1200, Description: "tenkeyless", Category: "peripherals"},
		{ID: "p3", Name: "USB Hub", Price: 300, Description: "4 port", Category: "accessories"},
	}
}

func testFAQs() []catalog.FAQ {
	return []catalog.FAQ{
		{Question: "What is your return policy?", Answer: "Returns accepted within 30 days."},
		{Question: "Do you ship internationally?", Answer: "We ship to selected countries."},
	}
}

func newFakeEmbedder() *fakeEmbedder {
	products := testProducts()
	faqs := testFAQs()
	return &fakeEmbedder{
		dims: 4,
		vectors: map[string][]float32{
			products[0].EmbedText(): {1, 0, 0, 0},
			products[1].EmbedText(): {0, 1, 0, 0},
			products[2].EmbedText(): {0, 0, 1, 0},
			faqs[0].EmbedText():     {0, 0, 0, 1},
			faqs[1].EmbedText():     {0, 0, 1, 1},
			"gaming mouse":          {0.9, 0.1, 0, 0},
			"keyboard":              {0.1, 0.9, 0, 0},
			"returns":               {0, 0, 0.1, 0.9},
		},
	}
}

func buildTestIndex(t *testing.T, embedder *fakeEmbedder) string {
	t.Helper()
	dir := t.TempDir()
	builder := NewBuilder(embedder)
	stats, err := builder.Build(context.Background(), testProducts(), testFAQs(), dir)
	require.NoError(t, err)
	require.Equal(t, 3, stats.Products)
	require.Equal(t, 2, stats.FAQs)
	return dir
}

func TestSearchProducts(t *testing.T) {
	embedder := newFakeEmbedder()
	dir := buildTestIndex(t, embedder)

	r, err := NewRetriever(embedder, dir)
	require.NoError(t, err)
	assert.Equal(t, 3, r.ProductCount())
	assert.Equal(t, 2, r.FAQCount())

	hits, err := r.SearchProducts(context.Background(), "gaming mouse", 2)
	require.NoError(t, err)
	require.Len(t, hits, 2)
	assert.Equal(t, "p1", hits[0].Product.ID)
	assert.Equal(t, "Gaming Mouse", hits[0].Product.Name)
	assert.Equal(t, 500.0, hits[0].Product.Price)
	assert.LessOrEqual(t, hits[0].Distance, hits[1].Distance)
}

func TestSearchFAQ(t *testing.T) {
	embedder := newFakeEmbedder()
	dir := buildTestIndex(t, embedder)

	r, err := NewRetriever(embedder, dir)
	require.NoError(t, err)

	hits, err := r.SearchFAQ(context.Background(), "returns", 1)
	require.NoError(t, err)
	require.Len(t, hits, 1)
	assert.Equal(t, "What is your return policy?", hits[0].FAQ.Question)
	assert.Equal(t, "Returns accepted within 30 days.", hits[0].FAQ.Answer)
}

func TestSearchWithoutIndex(t *testing.T) {
	embedder := newFakeEmbedder()
	r, err := NewRetriever(embedder, t.TempDir())
	require.NoError(t, err)

	hits, err := r.SearchProducts(context.Background(), "anything", 3)
	require.NoError(t, err)
	assert.Empty(t, hits)

	faqHits, err := r.SearchFAQ(context.Background(), "anything", 3)
	require.NoError(t, err)
	assert.Empty(t, faqHits)

	// No embedding calls on empty stores.
	assert.Equal(t, 0, embedder.calls)
}

func TestBuildEmptyCatalog(t *testing.T) {
	embedder := newFakeEmbedder()
	dir := t.TempDir()
	stats, err := NewBuilder(embedder).Build(context.Background(), nil, nil, dir)
	require.NoError(t, err)
	assert.Equal(t, 0, stats.Products)
	assert.Equal(t, 0, stats.FAQs)

	r, err := NewRetriever(embedder, dir)
	require.NoError(t, err)
	assert.Equal(t, 0, r.ProductCount())
}

func TestBuildReplacesPriorIndex(t *testing.T) {
	embedder := newFakeEmbedder()
	dir := buildTestIndex(t, embedder)

	// Rebuild with a single product; the old index must be gone.
	smaller := testProducts()[:1]
	stats, err := NewBuilder(embedder).Build(context.Background(), smaller, nil, dir)
	require.NoError(t, err)
	assert.Equal(t, 1, stats.Products)
	assert.Equal(t, 0, stats.FAQs)

	r, err := NewRetriever(embedder, dir)
	require.NoError(t, err)
	assert.Equal(t, 1, r.ProductCount())
	assert.Equal(t, 0, r.FAQCount())
}

func TestBuildEmbeddingFailure(t *testing.T) {
	embedder := newFakeEmbedder()
	embedder.failOn = testProducts()[1].EmbedText()

	_, err := NewBuilder(embedder).Build(context.Background(), testProducts(), testFAQs(), t.TempDir())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "build product index")
}
