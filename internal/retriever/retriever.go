// Package retriever selects the passages most relevant to a query.
package retriever

import (
	"context"
	"fmt"
	"strings"

	"github.com/bizassist/bizassist/internal/indexer"
	"github.com/bizassist/bizassist/internal/rag"
	"github.com/bizassist/bizassist/internal/vectordb"
)

// DefaultK is the number of passages retrieved when k is zero.
const DefaultK = 3

// Strategy names accepted by New.
const (
	StrategyVector  = "vector"
	StrategyLexical = "lexical"
)

// Strategy ranks a corpus's passages against a query. Implementations
// return at most k results ordered by descending score, lower ordinal
// first on ties.
type Strategy interface {
	Name() string
	Rank(ctx context.Context, query string, corpus *indexer.Corpus, k int) ([]vectordb.Result, error)
}

// New returns the named strategy.
func New(name string) (Strategy, error) {
	switch name {
	case "", StrategyVector:
		return Vector{}, nil
	case StrategyLexical:
		return Lexical{}, nil
	default:
		return nil, fmt.Errorf("unknown retrieval strategy %q", name)
	}
}

// Search validates its inputs and runs strategy. An empty query or a
// negative k fails with rag.ErrInvalidInput; k == 0 means DefaultK. A nil
// or empty corpus fails with rag.ErrNotIndexed. Asking for more passages
// than exist returns all of them.
func Search(ctx context.Context, strategy Strategy, query string, corpus *indexer.Corpus, k int) ([]vectordb.Result, error) {
	if strings.TrimSpace(query) == "" {
		return nil, rag.Invalid("empty query")
	}
	if k < 0 {
		return nil, rag.Invalid("k must be at least 1, got %d", k)
	}
	if k == 0 {
		k = DefaultK
	}
	if corpus.Len() == 0 {
		return nil, rag.ErrNotIndexed
	}
	return strategy.Rank(ctx, query, corpus, k)
}

// Passages strips scores from results.
func Passages(results []vectordb.Result) []rag.Passage {
	out := make([]rag.Passage, len(results))
	for i, r := range results {
		out[i] = r.Passage
	}
	return out
}

// Texts returns the passage texts of results in order.
func Texts(results []vectordb.Result) []string {
	return rag.Texts(Passages(results))
}

// Vector embeds the query with the corpus's embedder and queries its index.
type Vector struct{}

func (Vector) Name() string { return StrategyVector }

func (Vector) Rank(ctx context.Context, query string, corpus *indexer.Corpus, k int) ([]vectordb.Result, error) {
	if corpus.Index == nil || corpus.Embedder == nil || corpus.Index.Len() == 0 {
		return nil, rag.ErrNotIndexed
	}
	vecs, err := corpus.Embedder.Embed(ctx, []string{query})
	if err != nil {
		return nil, fmt.Errorf("embed query: %w", err)
	}
	if len(vecs) != 1 {
		return nil, fmt.Errorf("embedder returned %d vectors for one query", len(vecs))
	}
	hits, err := corpus.Index.Query(ctx, vecs[0], k)
	if err != nil {
		return nil, err
	}
	out := make([]vectordb.Result, 0, len(hits))
	for _, h := range hits {
		if h.Ordinal < 0 || h.Ordinal >= len(corpus.Passages) {
			return nil, fmt.Errorf("index returned ordinal %d outside corpus of %d", h.Ordinal, len(corpus.Passages))
		}
		out = append(out, vectordb.Result{Passage: corpus.Passages[h.Ordinal], Score: h.Score})
	}
	return out, nil
}

// Lexical scores each passage by how many query words appear in it,
// case-insensitively. It needs no vector index.
type Lexical struct{}

func (Lexical) Name() string { return StrategyLexical }

func (Lexical) Rank(_ context.Context, query string, corpus *indexer.Corpus, k int) ([]vectordb.Result, error) {
	words := strings.Fields(strings.ToLower(query))
	hits := make([]vectordb.Hit, len(corpus.Passages))
	for i, p := range corpus.Passages {
		text := strings.ToLower(p.Text)
		score := 0
		for _, w := range words {
			if strings.Contains(text, w) {
				score++
			}
		}
		hits[i] = vectordb.Hit{Ordinal: p.Ordinal, Score: float32(score)}
	}
	hits = vectordb.Rank(hits, k)
	out := make([]vectordb.Result, len(hits))
	for i, h := range hits {
		out[i] = vectordb.Result{Passage: corpus.Passages[h.Ordinal], Score: h.Score}
	}
	return out, nil
}
