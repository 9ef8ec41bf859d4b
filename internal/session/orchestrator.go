package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/bizassist/bizassist/internal/chunker"
	"github.com/bizassist/bizassist/internal/conversation"
	"github.com/bizassist/bizassist/internal/document"
	"github.com/bizassist/bizassist/internal/indexer"
	"github.com/bizassist/bizassist/internal/llm"
	"github.com/bizassist/bizassist/internal/logging"
	"github.com/bizassist/bizassist/internal/prompt"
	"github.com/bizassist/bizassist/internal/rag"
	"github.com/bizassist/bizassist/internal/retriever"
	"github.com/bizassist/bizassist/internal/vectordb"
)

const (
	// DefaultHistoryWindow is how many prior turns accompany each query.
	DefaultHistoryWindow = 6

	// briefPassages is how many leading passages feed the meeting brief.
	briefPassages = 10
)

// Orchestrator runs document loading and chat queries against sessions.
// It holds no per-session state; distinct sessions share only the
// read-only corpora in the index cache.
type Orchestrator struct {
	provider llm.Provider
	store    conversation.Store
	cache    *indexer.Cache
	splitter *chunker.Splitter
	strategy retriever.Strategy
	system   string
	topK     int
	window   int

	model       string
	maxTokens   int
	temperature float64

	logger *slog.Logger
}

// Option configures an Orchestrator.
type Option func(*Orchestrator)

// WithSystemPrompt overrides the document assistant instruction.
func WithSystemPrompt(s string) Option {
	return func(o *Orchestrator) { o.system = s }
}

// WithTopK sets how many passages are retrieved per query.
func WithTopK(k int) Option {
	return func(o *Orchestrator) { o.topK = k }
}

// WithHistoryWindow sets how many prior turns are sent with each query.
func WithHistoryWindow(n int) Option {
	return func(o *Orchestrator) { o.window = n }
}

// WithStrategy selects the retrieval strategy.
func WithStrategy(s retriever.Strategy) Option {
	return func(o *Orchestrator) { o.strategy = s }
}

// WithSplitter sets the chunker used on load.
func WithSplitter(s *chunker.Splitter) Option {
	return func(o *Orchestrator) { o.splitter = s }
}

// WithModel sets the completion parameters passed to the provider. Zero
// values leave the provider defaults.
func WithModel(model string, maxTokens int, temperature float64) Option {
	return func(o *Orchestrator) {
		o.model = model
		o.maxTokens = maxTokens
		o.temperature = temperature
	}
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(o *Orchestrator) { o.logger = l }
}

// NewOrchestrator wires the pipeline. The cache decides how passages are
// vectorized and indexed.
func NewOrchestrator(provider llm.Provider, store conversation.Store, cache *indexer.Cache, opts ...Option) (*Orchestrator, error) {
	if provider == nil || store == nil || cache == nil {
		return nil, rag.Invalid("orchestrator needs a provider, a store and an index cache")
	}
	o := &Orchestrator{
		provider: provider,
		store:    store,
		cache:    cache,
		strategy: retriever.Vector{},
		system:   prompt.DocumentAssistant,
		topK:     retriever.DefaultK,
		window:   DefaultHistoryWindow,
	}
	for _, opt := range opts {
		opt(o)
	}
	if o.splitter == nil {
		s, err := chunker.New()
		if err != nil {
			return nil, err
		}
		o.splitter = s
	}
	if o.topK < 1 {
		return nil, rag.Invalid("top k must be at least 1, got %d", o.topK)
	}
	if o.window < 0 {
		return nil, rag.Invalid("history window must not be negative, got %d", o.window)
	}
	o.logger = logging.OrDiscard(o.logger)
	return o, nil
}

// LoadResult describes a completed document load.
type LoadResult struct {
	Document string `json:"document"`
	Passages int    `json:"passages"`
	Cached   bool   `json:"cached"`
}

// LoadDocument chunks and indexes doc and binds it to s, replacing any
// previously loaded document. Conversation history is kept. On failure the
// session is left exactly as it was.
func (o *Orchestrator) LoadDocument(ctx context.Context, s *Session, doc *document.Document) (*LoadResult, error) {
	if doc == nil {
		return nil, rag.Invalid("no document")
	}
	s.run.Lock()
	defer s.run.Unlock()

	passages := o.splitter.Split(doc.Pages)
	if len(passages) == 0 {
		return nil, fmt.Errorf("loading %s: %w", doc.Name, rag.ErrEmptyCorpus)
	}

	key := o.cache.Key(doc.Hash, o.splitter.ChunkSize(), o.splitter.Overlap())
	corpus, hit, err := o.cache.Build(ctx, key, passages)
	if err != nil {
		return nil, fmt.Errorf("loading %s: %w", doc.Name, err)
	}
	s.bind(corpus, doc.Name, doc.Hash)

	o.logger.Info("document loaded",
		"session", s.ID(), "document", doc.Name, "passages", corpus.Len(), "cached", hit)
	return &LoadResult{Document: doc.Name, Passages: corpus.Len(), Cached: hit}, nil
}

// Reindex drops any cached index for doc and loads it again. Use it when
// the embedder behind the cache may have changed for the same content.
func (o *Orchestrator) Reindex(ctx context.Context, s *Session, doc *document.Document) (*LoadResult, error) {
	if doc == nil {
		return nil, rag.Invalid("no document")
	}
	o.cache.Invalidate(o.cache.Key(doc.Hash, o.splitter.ChunkSize(), o.splitter.Overlap()))
	return o.LoadDocument(ctx, s, doc)
}

// Reply is the assistant's answer to one query.
type Reply struct {
	Text    string            `json:"reply"`
	Sources []vectordb.Result `json:"sources"`
	Model   string            `json:"model,omitempty"`
}

// SubmitQuery answers query from the session's document and recent history.
// On success the user turn and then the assistant turn are appended. When
// the provider fails only the user turn is appended and the failure, which
// matches rag.ErrAdapterFailure, is returned. Invalid input and an idle
// session are rejected before anything is stored.
func (o *Orchestrator) SubmitQuery(ctx context.Context, s *Session, query string) (*Reply, error) {
	if strings.TrimSpace(query) == "" {
		return nil, rag.Invalid("empty query")
	}
	s.run.Lock()
	defer s.run.Unlock()

	corpus, ok := s.loaded()
	if !ok {
		return nil, rag.ErrNotIndexed
	}

	results, err := retriever.Search(ctx, o.strategy, query, corpus, o.topK)
	if err != nil {
		return nil, fmt.Errorf("retrieving context: %w", err)
	}
	history, err := o.store.RecentWindow(ctx, s.ID(), o.window)
	if err != nil {
		return nil, fmt.Errorf("loading history: %w", err)
	}

	msgs := prompt.Compose(o.system, retriever.Texts(results), history, query)
	o.logger.Debug("submitting query",
		"session", s.ID(), "passages", len(results), "history", len(history), "strategy", o.strategy.Name())

	resp, callErr := o.provider.Complete(ctx, o.request(msgs))

	if err := o.store.Append(ctx, s.ID(), conversation.Turn{Role: conversation.RoleUser, Text: query}); err != nil {
		if callErr != nil {
			return nil, errors.Join(o.adapterFailure(callErr), fmt.Errorf("storing user turn: %w", err))
		}
		return nil, fmt.Errorf("storing user turn: %w", err)
	}
	if callErr != nil {
		o.logger.Warn("completion failed", "session", s.ID(), "provider", o.provider.Name(), "error", callErr)
		return nil, o.adapterFailure(callErr)
	}

	s.record(resp)
	if err := o.store.Append(ctx, s.ID(), conversation.Turn{Role: conversation.RoleAssistant, Text: resp.Content}); err != nil {
		return nil, fmt.Errorf("storing assistant turn: %w", err)
	}
	return &Reply{Text: resp.Content, Sources: results, Model: resp.Model}, nil
}

// Search retrieves passages without calling the provider or touching
// history. k == 0 uses the configured top k; a negative k is invalid.
func (o *Orchestrator) Search(ctx context.Context, s *Session, query string, k int) ([]vectordb.Result, error) {
	if k == 0 {
		k = o.topK
	}
	corpus, ok := s.loaded()
	if strings.TrimSpace(query) != "" && !ok {
		return nil, rag.ErrNotIndexed
	}
	return retriever.Search(ctx, o.strategy, query, corpus, k)
}

// ClearSession empties the session's conversation history. The loaded
// document stays bound.
func (o *Orchestrator) ClearSession(ctx context.Context, s *Session) error {
	s.run.Lock()
	defer s.run.Unlock()
	if err := o.store.Clear(ctx, s.ID()); err != nil {
		return fmt.Errorf("clearing session: %w", err)
	}
	return nil
}

// DeleteSession removes everything the store keeps for s. Stores without
// per-session records only have their turns cleared.
func (o *Orchestrator) DeleteSession(ctx context.Context, s *Session) error {
	s.run.Lock()
	defer s.run.Unlock()
	if d, ok := o.store.(conversation.Deleter); ok {
		if err := d.DeleteSession(ctx, s.ID()); err != nil {
			return fmt.Errorf("deleting session: %w", err)
		}
		return nil
	}
	if err := o.store.Clear(ctx, s.ID()); err != nil {
		return fmt.Errorf("deleting session: %w", err)
	}
	return nil
}

// History returns the full conversation of s, oldest first.
func (o *Orchestrator) History(ctx context.Context, s *Session) ([]conversation.Turn, error) {
	return o.store.History(ctx, s.ID())
}

// Brief is a pre-meeting summary of the loaded document.
type Brief struct {
	Summary   string `json:"summary"`
	Questions string `json:"questions"`
}

// Brief asks for key takeaways and questions to raise, built from the
// leading passages of the loaded document. History is not touched.
func (o *Orchestrator) Brief(ctx context.Context, s *Session) (*Brief, error) {
	s.run.Lock()
	defer s.run.Unlock()

	corpus, ok := s.loaded()
	if !ok {
		return nil, rag.ErrNotIndexed
	}
	lead := corpus.Passages
	if len(lead) > briefPassages {
		lead = lead[:briefPassages]
	}
	report := strings.Join(rag.Texts(lead), " ")

	questions, err := o.ask(ctx, s, prompt.BriefQuestionsSystem, prompt.BriefQuestions(report))
	if err != nil {
		return nil, err
	}
	summary, err := o.ask(ctx, s, prompt.BriefSummarySystem, prompt.BriefSummary(report))
	if err != nil {
		return nil, err
	}

	b := &Brief{Summary: summary, Questions: questions}
	s.mu.Lock()
	s.lastBrief = b
	s.mu.Unlock()
	return b, nil
}

func (o *Orchestrator) ask(ctx context.Context, s *Session, system, user string) (string, error) {
	resp, err := o.provider.Complete(ctx, o.request([]llm.Message{
		{Role: llm.RoleSystem, Content: system},
		{Role: llm.RoleUser, Content: user},
	}))
	if err != nil {
		return "", o.adapterFailure(err)
	}
	s.record(resp)
	return resp.Content, nil
}

func (o *Orchestrator) request(msgs []llm.Message) llm.CompletionRequest {
	return llm.CompletionRequest{
		Model:       o.model,
		Messages:    msgs,
		MaxTokens:   o.maxTokens,
		Temperature: o.temperature,
	}
}

// adapterFailure ensures provider errors match rag.ErrAdapterFailure even
// when a custom Provider returns a plain error.
func (o *Orchestrator) adapterFailure(err error) error {
	if errors.Is(err, rag.ErrAdapterFailure) {
		return err
	}
	return &rag.AdapterError{Provider: o.provider.Name(), Err: err}
}
