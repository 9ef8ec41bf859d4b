package indexer

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bizassist/bizassist/internal/embeddings"
	"github.com/bizassist/bizassist/internal/rag"
	"github.com/bizassist/bizassist/internal/vectordb"
)

func passages(texts ...string) []rag.Passage {
	out := make([]rag.Passage, len(texts))
	for i, t := range texts {
		out[i] = rag.Passage{Text: t, Ordinal: i}
	}
	return out
}

// countingFitter wraps TF-IDF and counts Fit calls.
type countingFitter struct {
	calls atomic.Int32
	delay time.Duration
	err   error
}

func (f *countingFitter) Name() string { return "counting" }

func (f *countingFitter) Fit(ctx context.Context, corpus []string) (embeddings.Embedder, error) {
	f.calls.Add(1)
	if f.delay > 0 {
		time.Sleep(f.delay)
	}
	if f.err != nil {
		return nil, f.err
	}
	return embeddings.NewTFIDF(0).Fit(ctx, corpus)
}

type recordingReporter struct {
	total   int
	updates []int
	done    bool
}

func (r *recordingReporter) Start(total int)         { r.total = total }
func (r *recordingReporter) Update(cur int, _ string) { r.updates = append(r.updates, cur) }
func (r *recordingReporter) Finish()                 { r.done = true }

func TestBuild_EmptyCorpus(t *testing.T) {
	b := NewBuilder(embeddings.NewTFIDF(0))
	corpus, err := b.Build(context.Background(), nil)
	assert.ErrorIs(t, err, rag.ErrEmptyCorpus)
	assert.Nil(t, corpus)
}

func TestBuild_RejectsNonContiguousOrdinals(t *testing.T) {
	b := NewBuilder(embeddings.NewTFIDF(0))
	ps := []rag.Passage{{Text: "a b", Ordinal: 0}, {Text: "c d", Ordinal: 2}}
	_, err := b.Build(context.Background(), ps)
	assert.ErrorIs(t, err, rag.ErrInvalidInput)
}

func TestBuild_SelfSimilarity(t *testing.T) {
	ctx := context.Background()
	texts := []string{
		"Revenue grew in Q1 thanks to enterprise deals.",
		"Costs fell in Q2 after renegotiating suppliers.",
		"Hiring was paused for the remainder of the year.",
		"Customer churn dropped below two percent.",
	}
	for _, backend := range []string{vectordb.BackendFlat, vectordb.BackendChromem} {
		t.Run(backend, func(t *testing.T) {
			rep := &recordingReporter{}
			b := NewBuilder(embeddings.NewTFIDF(0), WithBackend(backend), WithBatchSize(3), WithReporter(rep))
			corpus, err := b.Build(ctx, passages(texts...))
			require.NoError(t, err)
			assert.Equal(t, len(texts), corpus.Len())
			assert.Equal(t, len(texts), corpus.Index.Len())

			assert.Equal(t, 4, rep.total)
			assert.Equal(t, []int{3, 4}, rep.updates)
			assert.True(t, rep.done)

			for i, text := range texts {
				q, err := corpus.Embedder.Embed(ctx, []string{text})
				require.NoError(t, err)
				hits, err := corpus.Index.Query(ctx, q[0], 1)
				require.NoError(t, err)
				require.Len(t, hits, 1)
				assert.Equal(t, i, hits[0].Ordinal)
			}
		})
	}
}

func TestBuild_UnknownBackend(t *testing.T) {
	b := NewBuilder(embeddings.NewTFIDF(0), WithBackend("annoy"))
	_, err := b.Build(context.Background(), passages("x y"))
	assert.Error(t, err)
}

func TestCache_HitAndInvalidate(t *testing.T) {
	ctx := context.Background()
	f := &countingFitter{}
	c := NewCache(NewBuilder(f), 4)
	key := c.Key("hash", 500, 50)
	ps := passages("revenue grew", "costs fell")

	first, hit, err := c.Build(ctx, key, ps)
	require.NoError(t, err)
	assert.False(t, hit)

	second, hit, err := c.Build(ctx, key, ps)
	require.NoError(t, err)
	assert.True(t, hit)
	assert.Same(t, first, second)
	assert.EqualValues(t, 1, f.calls.Load())

	c.Invalidate(key)
	assert.Equal(t, 0, c.Len())
	_, hit, err = c.Build(ctx, key, ps)
	require.NoError(t, err)
	assert.False(t, hit)
	assert.EqualValues(t, 2, f.calls.Load())
}

func TestCache_KeyDependsOnSettings(t *testing.T) {
	c := NewCache(NewBuilder(embeddings.NewTFIDF(0)), 1)
	assert.NotEqual(t, c.Key("h", 500, 50), c.Key("h", 400, 50))
	assert.NotEqual(t, c.Key("h", 500, 50), c.Key("other", 500, 50))
	assert.Equal(t, c.Key("h", 500, 50), c.Key("h", 500, 50))

	flat := NewCache(NewBuilder(embeddings.NewTFIDF(0), WithBackend(vectordb.BackendChromem)), 1)
	assert.NotEqual(t, c.Key("h", 500, 50), flat.Key("h", 500, 50))
}

func TestCache_EvictsOldest(t *testing.T) {
	ctx := context.Background()
	c := NewCache(NewBuilder(embeddings.NewTFIDF(0)), 2)
	ps := passages("alpha beta")

	for _, k := range []string{"a", "b", "c"} {
		_, _, err := c.Build(ctx, k, ps)
		require.NoError(t, err)
	}
	assert.Equal(t, 2, c.Len())
	_, ok := c.get("a")
	assert.False(t, ok)
	_, ok = c.get("c")
	assert.True(t, ok)
}

func TestCache_FailedBuildNotCached(t *testing.T) {
	ctx := context.Background()
	boom := errors.New("boom")
	f := &countingFitter{err: boom}
	c := NewCache(NewBuilder(f), 2)

	_, _, err := c.Build(ctx, "k", passages("a b"))
	assert.ErrorIs(t, err, boom)
	assert.Equal(t, 0, c.Len())

	_, _, err = c.Build(ctx, "k", nil)
	assert.ErrorIs(t, err, rag.ErrEmptyCorpus)
	assert.Equal(t, 0, c.Len())
}

func TestCache_CoalescesConcurrentBuilds(t *testing.T) {
	ctx := context.Background()
	f := &countingFitter{delay: 50 * time.Millisecond}
	c := NewCache(NewBuilder(f), 2)
	ps := passages("revenue grew", "costs fell")

	var wg sync.WaitGroup
	results := make([]*Corpus, 8)
	for i := range results {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			corpus, _, err := c.Build(ctx, "same", ps)
			assert.NoError(t, err)
			results[i] = corpus
		}(i)
	}
	wg.Wait()

	assert.EqualValues(t, 1, f.calls.Load())
	for _, r := range results {
		assert.Same(t, results[0], r)
	}
}
