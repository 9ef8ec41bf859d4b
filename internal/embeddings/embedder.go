package embeddings

import (
	"context"
	"math"
)

// Embedder defines the interface for generating text embeddings.
type Embedder interface {
	// Embed generates embeddings for one or more texts.
	Embed(ctx context.Context, texts []string) ([][]float32, error)

	// Dimensions returns the number of dimensions in the embedding vectors.
	Dimensions() int

	// Name returns the name/identifier of the embedding model.
	Name() string
}

// Fitter produces an Embedder for a specific corpus. Corpus-dependent
// vectorizers such as TF-IDF learn their vocabulary here; hosted models
// ignore the corpus.
type Fitter interface {
	Fit(ctx context.Context, corpus []string) (Embedder, error)
	Name() string
}

// Fixed adapts a corpus-independent Embedder to the Fitter interface.
func Fixed(e Embedder) Fitter { return fixed{e} }

type fixed struct{ e Embedder }

func (f fixed) Fit(context.Context, []string) (Embedder, error) { return f.e, nil }
func (f fixed) Name() string                                     { return f.e.Name() }

// Normalize scales v to unit length in place. Zero vectors are left as is.
func Normalize(v []float32) []float32 {
	var sum float64
	for _, x := range v {
		sum += float64(x) * float64(x)
	}
	if sum == 0 {
		return v
	}
	norm := math.Sqrt(sum)
	for i := range v {
		v[i] = float32(float64(v[i]) / norm)
	}
	return v
}

// Dot returns the inner product of a and b over their common length.
func Dot(a, b []float32) float32 {
	n := min(len(a), len(b))
	var s float32
	for i := 0; i < n; i++ {
		s += a[i] * b[i]
	}
	return s
}
