package vectordb

import (
	"context"
	"fmt"
	"strconv"

	chromem "github.com/philippgille/chromem-go"

	"github.com/bizassist/bizassist/internal/embeddings"
	"github.com/bizassist/bizassist/internal/rag"
)

const collectionName = "passages"

// ChromemIndex implements Index on a chromem-go collection. Vectors are
// stored precomputed; the collection's embedding func is only used if a
// caller queries by text.
type ChromemIndex struct {
	db         *chromem.DB
	collection *chromem.Collection
}

// NewChromemIndex creates an in-memory chromem collection.
func NewChromemIndex(embedder embeddings.Embedder) (*ChromemIndex, error) {
	db := chromem.NewDB()
	var ef chromem.EmbeddingFunc
	if embedder != nil {
		ef = embeddings.ToChromemFunc(embedder)
	}
	col, err := db.GetOrCreateCollection(collectionName, nil, ef)
	if err != nil {
		return nil, fmt.Errorf("create collection: %w", err)
	}
	return &ChromemIndex{db: db, collection: col}, nil
}

func (c *ChromemIndex) Add(ctx context.Context, passages []rag.Passage, vectors [][]float32) error {
	if err := checkAdd(passages, vectors, 0); err != nil {
		return err
	}
	if len(passages) == 0 {
		return nil
	}
	docs := make([]chromem.Document, len(passages))
	for i, p := range passages {
		docs[i] = chromem.Document{
			ID:        strconv.Itoa(p.Ordinal),
			Content:   p.Text,
			Embedding: vectors[i],
			Metadata: map[string]string{
				"ordinal": strconv.Itoa(p.Ordinal),
				"page":    strconv.Itoa(p.Page),
			},
		}
	}
	if err := c.collection.AddDocuments(ctx, docs, 1); err != nil {
		return fmt.Errorf("chromem add: %w", err)
	}
	return nil
}

// Query asks chromem for every document and re-ranks them, since chromem's
// own ordering of equal similarities is unspecified.
func (c *ChromemIndex) Query(ctx context.Context, vector []float32, k int) ([]Hit, error) {
	count := c.collection.Count()
	if count == 0 {
		return nil, rag.ErrNotIndexed
	}
	results, err := c.collection.QueryEmbedding(ctx, vector, count, nil, nil)
	if err != nil {
		return nil, fmt.Errorf("chromem query: %w", err)
	}
	hits := make([]Hit, 0, len(results))
	for _, r := range results {
		ord, err := strconv.Atoi(r.Metadata["ordinal"])
		if err != nil {
			return nil, fmt.Errorf("chromem document %q: bad ordinal: %w", r.ID, err)
		}
		hits = append(hits, Hit{Ordinal: ord, Score: r.Similarity})
	}
	return Rank(hits, k), nil
}

func (c *ChromemIndex) Len() int {
	return c.collection.Count()
}
