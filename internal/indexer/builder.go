// Package indexer turns a document's passages into a searchable corpus.
package indexer

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/bizassist/bizassist/internal/embeddings"
	"github.com/bizassist/bizassist/internal/logging"
	"github.com/bizassist/bizassist/internal/progress"
	"github.com/bizassist/bizassist/internal/rag"
	"github.com/bizassist/bizassist/internal/vectordb"
)

const defaultBatchSize = 64

// Corpus is a document's passages together with the index built over them.
// It is read-only once built and may be shared between sessions.
type Corpus struct {
	Passages []rag.Passage
	Index    vectordb.Index
	Embedder embeddings.Embedder
	BuiltAt  time.Time
}

// Len returns the number of passages.
func (c *Corpus) Len() int {
	if c == nil {
		return 0
	}
	return len(c.Passages)
}

// Builder embeds passages and loads them into a vector index.
type Builder struct {
	fitter    embeddings.Fitter
	backend   string
	batchSize int
	reporter  progress.Reporter
	logger    *slog.Logger
}

// Option configures a Builder.
type Option func(*Builder)

// WithBackend selects the vectordb backend ("flat" or "chromem").
func WithBackend(name string) Option {
	return func(b *Builder) { b.backend = name }
}

// WithBatchSize sets how many passages are embedded per call.
func WithBatchSize(n int) Option {
	return func(b *Builder) {
		if n > 0 {
			b.batchSize = n
		}
	}
}

// WithReporter reports embedding progress.
func WithReporter(r progress.Reporter) Option {
	return func(b *Builder) { b.reporter = r }
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(b *Builder) { b.logger = l }
}

// NewBuilder returns a Builder using fitter to vectorize passages.
func NewBuilder(fitter embeddings.Fitter, opts ...Option) *Builder {
	b := &Builder{
		fitter:    fitter,
		backend:   vectordb.BackendFlat,
		batchSize: defaultBatchSize,
		reporter:  progress.Nop{},
	}
	for _, opt := range opts {
		opt(b)
	}
	b.logger = logging.OrDiscard(b.logger)
	return b
}

// Signature identifies the vectorization settings, for cache keys.
func (b *Builder) Signature() string {
	return b.fitter.Name() + "@" + b.backend
}

// Build vectorizes passages and indexes them. It fails with
// rag.ErrEmptyCorpus when passages is empty and with rag.ErrInvalidInput
// when ordinals are not exactly 0..n-1 in order.
func (b *Builder) Build(ctx context.Context, passages []rag.Passage) (*Corpus, error) {
	if len(passages) == 0 {
		return nil, rag.ErrEmptyCorpus
	}
	for i, p := range passages {
		if p.Ordinal != i {
			return nil, rag.Invalid("passage %d has ordinal %d", i, p.Ordinal)
		}
	}

	start := time.Now()
	texts := rag.Texts(passages)

	embedder, err := b.fitter.Fit(ctx, texts)
	if err != nil {
		return nil, fmt.Errorf("fit embedder: %w", err)
	}

	vectors := make([][]float32, 0, len(texts))
	b.reporter.Start(len(texts))
	for i := 0; i < len(texts); i += b.batchSize {
		end := min(i+b.batchSize, len(texts))
		batch, err := embedder.Embed(ctx, texts[i:end])
		if err != nil {
			b.reporter.Finish()
			return nil, fmt.Errorf("embed passages %d-%d: %w", i, end-1, err)
		}
		if len(batch) != end-i {
			b.reporter.Finish()
			return nil, fmt.Errorf("embedder %s returned %d vectors for %d passages", embedder.Name(), len(batch), end-i)
		}
		vectors = append(vectors, batch...)
		b.reporter.Update(end, "Embedding passages")
	}
	b.reporter.Finish()

	idx, err := vectordb.New(b.backend, embedder)
	if err != nil {
		return nil, err
	}
	if err := idx.Add(ctx, passages, vectors); err != nil {
		return nil, fmt.Errorf("index passages: %w", err)
	}
	if idx.Len() != len(passages) {
		return nil, fmt.Errorf("index holds %d vectors for %d passages", idx.Len(), len(passages))
	}

	b.logger.Debug("corpus built",
		"passages", len(passages),
		"embedder", embedder.Name(),
		"dimensions", embedder.Dimensions(),
		"backend", b.backend,
		"elapsed", time.Since(start))

	return &Corpus{
		Passages: passages,
		Index:    idx,
		Embedder: embedder,
		BuiltAt:  time.Now(),
	}, nil
}
