package vectordb

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/bizassist/bizassist/internal/embeddings"
	"github.com/bizassist/bizassist/internal/rag"
)

func passages(texts ...string) []rag.Passage {
	out := make([]rag.Passage, len(texts))
	for i, t := range texts {
		out[i] = rag.Passage{Text: t, Ordinal: i}
	}
	return out
}

// fitted builds a TF-IDF embedder over texts and returns it with the
// passage vectors.
func fitted(t *testing.T, texts []string) (embeddings.Embedder, [][]float32) {
	t.Helper()
	ctx := context.Background()
	e, err := embeddings.NewTFIDF(0).Fit(ctx, texts)
	if err != nil {
		t.Fatalf("Fit: %v", err)
	}
	vecs, err := e.Embed(ctx, texts)
	if err != nil {
		t.Fatalf("Embed: %v", err)
	}
	return e, vecs
}

func backends(t *testing.T, e embeddings.Embedder) map[string]Index {
	t.Helper()
	out := map[string]Index{}
	for _, name := range []string{BackendFlat, BackendChromem} {
		idx, err := New(name, e)
		if err != nil {
			t.Fatalf("New(%s): %v", name, err)
		}
		out[name] = idx
	}
	return out
}

func TestIndex_SelfSimilarityFirst(t *testing.T) {
	ctx := context.Background()
	texts := []string{
		"The authentication module handles user login and session management",
		"Database connection pooling and query execution",
		"Quarterly revenue grew strongly in the northern region",
	}
	e, vecs := fitted(t, texts)

	for name, idx := range backends(t, e) {
		t.Run(name, func(t *testing.T) {
			if err := idx.Add(ctx, passages(texts...), vecs); err != nil {
				t.Fatalf("Add: %v", err)
			}
			if idx.Len() != 3 {
				t.Fatalf("Len: got %d, want 3", idx.Len())
			}
			for i := range texts {
				hits, err := idx.Query(ctx, vecs[i], 1)
				if err != nil {
					t.Fatalf("Query: %v", err)
				}
				if len(hits) != 1 || hits[0].Ordinal != i {
					t.Errorf("query %d: got %+v, want ordinal %d first", i, hits, i)
				}
			}
		})
	}
}

func TestIndex_KLargerThanCorpus(t *testing.T) {
	ctx := context.Background()
	texts := []string{"alpha beta", "gamma beta", "delta epsilon"}
	e, vecs := fitted(t, texts)
	q, _ := e.Embed(ctx, []string{"beta"})

	for name, idx := range backends(t, e) {
		t.Run(name, func(t *testing.T) {
			if err := idx.Add(ctx, passages(texts...), vecs); err != nil {
				t.Fatalf("Add: %v", err)
			}
			hits, err := idx.Query(ctx, q[0], 10)
			if err != nil {
				t.Fatalf("Query: %v", err)
			}
			if len(hits) != 3 {
				t.Fatalf("got %d hits, want 3", len(hits))
			}
			seen := map[int]bool{}
			for i, h := range hits {
				if seen[h.Ordinal] {
					t.Errorf("duplicate ordinal %d", h.Ordinal)
				}
				seen[h.Ordinal] = true
				if i > 0 && h.Score > hits[i-1].Score {
					t.Errorf("hits not ordered by score: %+v", hits)
				}
			}
			// "alpha beta" and "gamma beta" score equally; lower ordinal wins.
			if hits[0].Ordinal != 0 || hits[1].Ordinal != 1 || hits[2].Ordinal != 2 {
				t.Errorf("unexpected order: %+v", hits)
			}
		})
	}
}

func TestIndex_ZeroQueryKeepsPassageOrder(t *testing.T) {
	ctx := context.Background()
	texts := []string{"revenue report", "costs report", "headcount report"}
	e, vecs := fitted(t, texts)
	q, _ := e.Embed(ctx, []string{"weather"})

	for name, idx := range backends(t, e) {
		t.Run(name, func(t *testing.T) {
			if err := idx.Add(ctx, passages(texts...), vecs); err != nil {
				t.Fatalf("Add: %v", err)
			}
			hits, err := idx.Query(ctx, q[0], 3)
			if err != nil {
				t.Fatalf("Query: %v", err)
			}
			for i, h := range hits {
				if h.Ordinal != i || h.Score != 0 {
					t.Errorf("hit %d: got %+v", i, h)
				}
			}
		})
	}
}

func TestIndex_EmptyIsNotIndexed(t *testing.T) {
	for name, idx := range backends(t, nil) {
		t.Run(name, func(t *testing.T) {
			_, err := idx.Query(context.Background(), []float32{1}, 3)
			if !errors.Is(err, rag.ErrNotIndexed) {
				t.Errorf("got %v, want ErrNotIndexed", err)
			}
		})
	}
}

func TestIndex_AddMismatch(t *testing.T) {
	for name, idx := range backends(t, nil) {
		t.Run(name, func(t *testing.T) {
			err := idx.Add(context.Background(), passages("a", "b"), [][]float32{{1}})
			if err == nil {
				t.Error("expected error for passage/vector count mismatch")
			}
		})
	}
}

func TestNew_UnknownBackend(t *testing.T) {
	if _, err := New("faiss", nil); err == nil {
		t.Error("expected error for unknown backend")
	}
}

func TestRank(t *testing.T) {
	hits := []Hit{
		{Ordinal: 3, Score: 0.5},
		{Ordinal: 1, Score: 0.5000000001},
		{Ordinal: 0, Score: 0.2},
		{Ordinal: 2, Score: 0.9},
	}
	got := Rank(hits, 3)
	want := []int{2, 1, 3}
	if len(got) != len(want) {
		t.Fatalf("got %d hits, want %d", len(got), len(want))
	}
	for i, h := range got {
		if h.Ordinal != want[i] {
			t.Errorf("position %d: got ordinal %d, want %d", i, h.Ordinal, want[i])
		}
	}
}

func TestFormatResults(t *testing.T) {
	results := []Result{
		{Passage: rag.Passage{Text: "Revenue grew in Q1.", Ordinal: 0, Page: 0}, Score: 0.9123},
		{Passage: rag.Passage{Text: "Costs fell in Q2.", Ordinal: 4, Page: 1}, Score: 0.5},
	}

	output := FormatResults(results)

	checks := []string{
		"Found 2 result(s)",
		"Result 1",
		"0.9123",
		"Passage: 4, page 2",
		"Revenue grew in Q1.",
		"Costs fell in Q2.",
	}
	for _, check := range checks {
		if !strings.Contains(output, check) {
			t.Errorf("FormatResults output missing %q", check)
		}
	}
}

func TestFormatResults_Empty(t *testing.T) {
	output := FormatResults(nil)
	if output != "No results found." {
		t.Errorf("expected 'No results found.', got %q", output)
	}
}
