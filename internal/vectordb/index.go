// Package vectordb holds the searchable vector indexes built over a
// document's passages.
package vectordb

import (
	"context"
	"fmt"
	"math"
	"sort"
	"sync"

	"github.com/bizassist/bizassist/internal/embeddings"
	"github.com/bizassist/bizassist/internal/rag"
)

// Backend names accepted by New.
const (
	BackendFlat    = "flat"
	BackendChromem = "chromem"
)

// Index maps passage ordinals to unit vectors and answers inner-product
// nearest-neighbour queries. An index is built once and read-only after.
type Index interface {
	// Add stores one vector per passage. Vectors must already be normalised.
	Add(ctx context.Context, passages []rag.Passage, vectors [][]float32) error

	// Query returns up to k hits ordered by descending score, lower ordinal
	// first on equal scores.
	Query(ctx context.Context, vector []float32, k int) ([]Hit, error)

	// Len returns the number of indexed vectors.
	Len() int
}

// Hit is one query match.
type Hit struct {
	Ordinal int
	Score   float32
}

// New returns an empty index for the named backend.
func New(backend string, embedder embeddings.Embedder) (Index, error) {
	switch backend {
	case "", BackendFlat:
		return NewFlatIndex(), nil
	case BackendChromem:
		return NewChromemIndex(embedder)
	default:
		return nil, fmt.Errorf("unknown index backend %q", backend)
	}
}

// scoreScale quantises scores so float noise between backends does not
// reorder passages that are equally similar.
const scoreScale = 1e6

func quantise(s float32) float64 {
	if math.IsNaN(float64(s)) {
		return 0
	}
	return math.Round(float64(s)*scoreScale) / scoreScale
}

// Rank orders hits by descending quantised score, breaking ties by
// ascending ordinal, and truncates to k.
func Rank(hits []Hit, k int) []Hit {
	for i := range hits {
		hits[i].Score = float32(quantise(hits[i].Score))
	}
	sort.SliceStable(hits, func(i, j int) bool {
		if hits[i].Score != hits[j].Score {
			return hits[i].Score > hits[j].Score
		}
		return hits[i].Ordinal < hits[j].Ordinal
	})
	if k >= 0 && k < len(hits) {
		hits = hits[:k]
	}
	return hits
}

func checkAdd(passages []rag.Passage, vectors [][]float32, dims int) error {
	if len(passages) != len(vectors) {
		return fmt.Errorf("%d passages but %d vectors", len(passages), len(vectors))
	}
	for i, v := range vectors {
		if dims > 0 && len(v) != dims {
			return fmt.Errorf("vector %d has %d dimensions, want %d", i, len(v), dims)
		}
	}
	return nil
}

// FlatIndex is a brute-force in-memory index.
type FlatIndex struct {
	mu       sync.RWMutex
	dims     int
	ordinals []int
	vectors  [][]float32
}

func NewFlatIndex() *FlatIndex { return &FlatIndex{} }

func (f *FlatIndex) Add(_ context.Context, passages []rag.Passage, vectors [][]float32) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.dims == 0 && len(vectors) > 0 {
		f.dims = len(vectors[0])
	}
	if err := checkAdd(passages, vectors, f.dims); err != nil {
		return err
	}
	for i, p := range passages {
		f.ordinals = append(f.ordinals, p.Ordinal)
		f.vectors = append(f.vectors, vectors[i])
	}
	return nil
}

func (f *FlatIndex) Query(_ context.Context, vector []float32, k int) ([]Hit, error) {
	f.mu.RLock()
	defer f.mu.RUnlock()
	if len(f.vectors) == 0 {
		return nil, rag.ErrNotIndexed
	}
	if len(vector) != f.dims {
		return nil, fmt.Errorf("query has %d dimensions, index has %d", len(vector), f.dims)
	}
	hits := make([]Hit, len(f.vectors))
	for i, v := range f.vectors {
		hits[i] = Hit{Ordinal: f.ordinals[i], Score: embeddings.Dot(v, vector)}
	}
	return Rank(hits, k), nil
}

func (f *FlatIndex) Len() int {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return len(f.vectors)
}
