package session

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bizassist/bizassist/internal/chunker"
	"github.com/bizassist/bizassist/internal/conversation"
	"github.com/bizassist/bizassist/internal/document"
	"github.com/bizassist/bizassist/internal/embeddings"
	"github.com/bizassist/bizassist/internal/indexer"
	"github.com/bizassist/bizassist/internal/llm"
	"github.com/bizassist/bizassist/internal/prompt"
	"github.com/bizassist/bizassist/internal/rag"
	"github.com/bizassist/bizassist/internal/retriever"
)

// recordingProvider replies with a numbered answer and records requests.
// Errors queued in errs are returned first, one per call.
type recordingProvider struct {
	mu    sync.Mutex
	calls []llm.CompletionRequest
	errs  []error
}

func (p *recordingProvider) Name() string { return "recording" }

func (p *recordingProvider) Complete(_ context.Context, req llm.CompletionRequest) (*llm.CompletionResponse, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.calls = append(p.calls, req)
	if len(p.errs) > 0 {
		err := p.errs[0]
		p.errs = p.errs[1:]
		if err != nil {
			return nil, err
		}
	}
	return &llm.CompletionResponse{
		Content:      fmt.Sprintf("answer %d", len(p.calls)),
		InputTokens:  10,
		OutputTokens: 5,
		Model:        llm.DefaultModel,
	}, nil
}

func (p *recordingProvider) last() llm.CompletionRequest {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.calls[len(p.calls)-1]
}

func (p *recordingProvider) count() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.calls)
}

type fixture struct {
	orch     *Orchestrator
	provider *recordingProvider
	store    conversation.Store
	cache    *indexer.Cache
}

func newFixture(t *testing.T, opts ...Option) *fixture {
	t.Helper()
	provider := &recordingProvider{}
	store := conversation.NewMemoryStore()
	cache := indexer.NewCache(indexer.NewBuilder(embeddings.NewTFIDF(0)), 4)
	orch, err := NewOrchestrator(provider, store, cache, opts...)
	require.NoError(t, err)
	return &fixture{orch: orch, provider: provider, store: store, cache: cache}
}

var report = document.FromText("q1.txt",
	"Revenue grew twelve percent in the first quarter.",
	"Operating costs fell after the supplier contract was renegotiated.",
	"The northern region missed its revenue target.",
)

func roles(ts []conversation.Turn) []conversation.Role {
	out := make([]conversation.Role, len(ts))
	for i, t := range ts {
		out[i] = t.Role
	}
	return out
}

func TestSubmitQuery_AppendsUserThenAssistant(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	s := New("s1")

	_, err := f.orch.LoadDocument(ctx, s, report)
	require.NoError(t, err)
	assert.Equal(t, StateDocumentLoaded, s.State())

	reply, err := f.orch.SubmitQuery(ctx, s, "How did revenue change?")
	require.NoError(t, err)
	assert.Equal(t, "answer 1", reply.Text)
	assert.NotEmpty(t, reply.Sources)

	history, err := f.orch.History(ctx, s)
	require.NoError(t, err)
	require.Len(t, history, 2)
	assert.Equal(t, []conversation.Role{conversation.RoleUser, conversation.RoleAssistant}, roles(history))
	assert.Equal(t, "How did revenue change?", history[0].Text)
	assert.Equal(t, "answer 1", history[1].Text)

	msgs := f.provider.last().Messages
	require.Len(t, msgs, 2)
	assert.Equal(t, llm.RoleSystem, msgs[0].Role)
	assert.True(t, strings.HasPrefix(msgs[0].Content, prompt.DocumentAssistant+"\n"))
	assert.Equal(t, llm.Message{Role: llm.RoleUser, Content: "How did revenue change?"}, msgs[1])
}

func TestSubmitQuery_AdapterFailureKeepsUserTurn(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	s := New("s1")
	_, err := f.orch.LoadDocument(ctx, s, report)
	require.NoError(t, err)

	f.provider.errs = []error{errors.New("connection reset")}
	_, err = f.orch.SubmitQuery(ctx, s, "What about costs?")
	require.Error(t, err)
	assert.ErrorIs(t, err, rag.ErrAdapterFailure)

	var ae *rag.AdapterError
	require.ErrorAs(t, err, &ae)
	assert.Equal(t, "recording", ae.Provider)

	history, err := f.orch.History(ctx, s)
	require.NoError(t, err)
	require.Len(t, history, 1)
	assert.Equal(t, conversation.RoleUser, history[0].Role)
	assert.Equal(t, "What about costs?", history[0].Text)
}

func TestSubmitQuery_AdapterErrorPassesThrough(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	s := New("s1")
	_, err := f.orch.LoadDocument(ctx, s, report)
	require.NoError(t, err)

	cause := &rag.AdapterError{Provider: "groq", Err: &llm.StatusError{StatusCode: 401, Body: "invalid key"}}
	f.provider.errs = []error{cause}
	_, err = f.orch.SubmitQuery(ctx, s, "revenue")
	assert.Same(t, cause, err)
}

func TestSubmitQuery_IdleIsNotIndexed(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	s := New("s1")

	_, err := f.orch.SubmitQuery(ctx, s, "revenue")
	assert.ErrorIs(t, err, rag.ErrNotIndexed)

	history, err := f.orch.History(ctx, s)
	require.NoError(t, err)
	assert.Empty(t, history)
	assert.Zero(t, f.provider.count())
}

func TestSubmitQuery_EmptyQueryRejectedFirst(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	s := New("s1")

	for _, q := range []string{"", "   \n"} {
		_, err := f.orch.SubmitQuery(ctx, s, q)
		assert.ErrorIs(t, err, rag.ErrInvalidInput)
	}

	_, err := f.orch.LoadDocument(ctx, s, report)
	require.NoError(t, err)
	_, err = f.orch.SubmitQuery(ctx, s, "")
	assert.ErrorIs(t, err, rag.ErrInvalidInput)

	history, err := f.orch.History(ctx, s)
	require.NoError(t, err)
	assert.Empty(t, history)
}

func TestSubmitQuery_SendsRecentWindow(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	s := New("s1")
	_, err := f.orch.LoadDocument(ctx, s, report)
	require.NoError(t, err)

	for i := 0; i < 5; i++ {
		_, err := f.orch.SubmitQuery(ctx, s, fmt.Sprintf("question %d", i))
		require.NoError(t, err)
	}
	_, err = f.orch.SubmitQuery(ctx, s, "question 5")
	require.NoError(t, err)

	msgs := f.provider.last().Messages
	// system + 6 history turns + the new question
	require.Len(t, msgs, 8)
	assert.Equal(t, "question 2", msgs[1].Content)
	assert.Equal(t, "answer 3", msgs[2].Content)
	assert.Equal(t, "answer 5", msgs[6].Content)
	assert.Equal(t, "question 5", msgs[7].Content)
}

func TestLoadDocument_EmptyCorpusStaysIdle(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	s := New("s1")

	for _, doc := range []*document.Document{document.FromText("none"), document.FromText("blank", "")} {
		_, err := f.orch.LoadDocument(ctx, s, doc)
		assert.ErrorIs(t, err, rag.ErrEmptyCorpus)
		assert.Equal(t, StateIdle, s.State())
	}

	_, err := f.orch.SubmitQuery(ctx, s, "revenue")
	assert.ErrorIs(t, err, rag.ErrNotIndexed)
}

func TestLoadDocument_FailureKeepsPreviousDocument(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	s := New("s1")
	_, err := f.orch.LoadDocument(ctx, s, report)
	require.NoError(t, err)

	_, err = f.orch.LoadDocument(ctx, s, document.FromText("empty", ""))
	require.ErrorIs(t, err, rag.ErrEmptyCorpus)

	info := s.Info()
	assert.Equal(t, StateDocumentLoaded, info.State)
	assert.Equal(t, "q1.txt", info.Document)
}

func TestLoadDocument_ReplaceKeepsHistory(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	s := New("s1")
	_, err := f.orch.LoadDocument(ctx, s, report)
	require.NoError(t, err)
	_, err = f.orch.SubmitQuery(ctx, s, "revenue")
	require.NoError(t, err)

	other := document.FromText("supply.txt", "Deliveries from NordParts were late in March.")
	res, err := f.orch.LoadDocument(ctx, s, other)
	require.NoError(t, err)
	assert.False(t, res.Cached)
	assert.Equal(t, "supply.txt", s.Info().Document)

	history, err := f.orch.History(ctx, s)
	require.NoError(t, err)
	assert.Len(t, history, 2)

	reply, err := f.orch.SubmitQuery(ctx, s, "late deliveries")
	require.NoError(t, err)
	require.Len(t, reply.Sources, 1)
	assert.Contains(t, reply.Sources[0].Passage.Text, "NordParts")
}

func TestLoadDocument_SameContentHitsCache(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	res, err := f.orch.LoadDocument(ctx, New("a"), report)
	require.NoError(t, err)
	assert.False(t, res.Cached)

	res, err = f.orch.LoadDocument(ctx, New("b"), document.FromText("copy.txt", report.Pages...))
	require.NoError(t, err)
	assert.True(t, res.Cached)
	assert.Equal(t, 1, f.cache.Len())
}

func TestReindex_RebuildsCachedDocument(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	s := New("a")

	_, err := f.orch.LoadDocument(ctx, s, report)
	require.NoError(t, err)
	_, err = f.orch.SubmitQuery(ctx, s, "revenue")
	require.NoError(t, err)

	res, err := f.orch.Reindex(ctx, s, report)
	require.NoError(t, err)
	assert.False(t, res.Cached)
	assert.Equal(t, 1, f.cache.Len())

	history, err := f.orch.History(ctx, s)
	require.NoError(t, err)
	assert.Len(t, history, 2)

	_, err = f.orch.Reindex(ctx, s, nil)
	assert.ErrorIs(t, err, rag.ErrInvalidInput)
}

// deletingStore records DeleteSession calls on top of a memory store.
type deletingStore struct {
	*conversation.MemoryStore
	deleted []string
}

func (d *deletingStore) DeleteSession(ctx context.Context, sessionID string) error {
	d.deleted = append(d.deleted, sessionID)
	return d.Clear(ctx, sessionID)
}

func TestDeleteSession(t *testing.T) {
	ctx := context.Background()
	cache := indexer.NewCache(indexer.NewBuilder(embeddings.NewTFIDF(0)), 4)

	t.Run("store with session records", func(t *testing.T) {
		store := &deletingStore{MemoryStore: conversation.NewMemoryStore()}
		orch, err := NewOrchestrator(&recordingProvider{}, store, cache)
		require.NoError(t, err)
		s := New("s1")
		_, err = orch.LoadDocument(ctx, s, report)
		require.NoError(t, err)
		_, err = orch.SubmitQuery(ctx, s, "revenue")
		require.NoError(t, err)

		require.NoError(t, orch.DeleteSession(ctx, s))
		assert.Equal(t, []string{"s1"}, store.deleted)
		history, err := orch.History(ctx, s)
		require.NoError(t, err)
		assert.Empty(t, history)
	})

	t.Run("plain store is cleared", func(t *testing.T) {
		f := newFixture(t)
		s := New("s2")
		_, err := f.orch.LoadDocument(ctx, s, report)
		require.NoError(t, err)
		_, err = f.orch.SubmitQuery(ctx, s, "revenue")
		require.NoError(t, err)

		require.NoError(t, f.orch.DeleteSession(ctx, s))
		history, err := f.store.History(ctx, "s2")
		require.NoError(t, err)
		assert.Empty(t, history)
	})
}

func TestTwoPageDocument(t *testing.T) {
	ctx := context.Background()
	splitter, err := chunker.New(chunker.WithChunkSize(20), chunker.WithOverlap(5))
	require.NoError(t, err)
	f := newFixture(t, WithSplitter(splitter))
	s := New("s1")

	res, err := f.orch.LoadDocument(ctx, s, document.FromText("two.pdf", "Revenue grew in Q1.", "Costs fell in Q2."))
	require.NoError(t, err)
	assert.Equal(t, 3, res.Passages)

	results, err := f.orch.Search(ctx, s, "revenue", 0)
	require.NoError(t, err)
	require.Len(t, results, 3)
	assert.Equal(t, 0, results[0].Passage.Ordinal)
	assert.Equal(t, 0, results[0].Passage.Page)
}

// smallSplitter cuts report into several passages.
func smallSplitter(t *testing.T) Option {
	t.Helper()
	sp, err := chunker.New(chunker.WithChunkSize(60), chunker.WithOverlap(10))
	require.NoError(t, err)
	return WithSplitter(sp)
}

func TestSearch_DoesNotTouchHistory(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, WithStrategy(retriever.Lexical{}), WithTopK(2), smallSplitter(t))
	s := New("s1")

	_, err := f.orch.Search(ctx, s, "revenue", 0)
	assert.ErrorIs(t, err, rag.ErrNotIndexed)

	res, err := f.orch.LoadDocument(ctx, s, report)
	require.NoError(t, err)
	require.Greater(t, res.Passages, 2)

	results, err := f.orch.Search(ctx, s, "revenue", 0)
	require.NoError(t, err)
	require.Len(t, results, 2)
	for _, r := range results {
		assert.Contains(t, strings.ToLower(r.Passage.Text), "revenue")
	}
	assert.Less(t, results[0].Passage.Ordinal, results[1].Passage.Ordinal)

	history, err := f.orch.History(ctx, s)
	require.NoError(t, err)
	assert.Empty(t, history)
	assert.Zero(t, f.provider.count())
}

func TestSearch_NegativeKIsInvalid(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, smallSplitter(t))
	s := New("s1")
	_, err := f.orch.LoadDocument(ctx, s, report)
	require.NoError(t, err)

	_, err = f.orch.Search(ctx, s, "revenue", -5)
	assert.ErrorIs(t, err, rag.ErrInvalidInput)

	results, err := f.orch.Search(ctx, s, "revenue", 1)
	require.NoError(t, err)
	assert.Len(t, results, 1)
}

func TestClearSession_KeepsDocument(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	s := New("s1")
	_, err := f.orch.LoadDocument(ctx, s, report)
	require.NoError(t, err)
	_, err = f.orch.SubmitQuery(ctx, s, "revenue")
	require.NoError(t, err)

	require.NoError(t, f.orch.ClearSession(ctx, s))
	history, err := f.orch.History(ctx, s)
	require.NoError(t, err)
	assert.Empty(t, history)
	assert.Equal(t, StateDocumentLoaded, s.State())

	_, err = f.orch.SubmitQuery(ctx, s, "costs")
	assert.NoError(t, err)
}

func TestBrief(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	s := New("s1")

	_, err := f.orch.Brief(ctx, s)
	assert.ErrorIs(t, err, rag.ErrNotIndexed)

	_, err = f.orch.LoadDocument(ctx, s, report)
	require.NoError(t, err)
	b, err := f.orch.Brief(ctx, s)
	require.NoError(t, err)
	assert.Equal(t, "answer 1", b.Questions)
	assert.Equal(t, "answer 2", b.Summary)
	assert.Same(t, b, s.LastBrief())
	assert.Equal(t, 2, s.Info().Usage.Calls)

	questions := f.provider.calls[0].Messages
	require.Len(t, questions, 2)
	assert.Equal(t, prompt.BriefQuestionsSystem, questions[0].Content)
	assert.Contains(t, questions[1].Content, "Revenue grew twelve percent in the first quarter.")

	history, err := f.orch.History(ctx, s)
	require.NoError(t, err)
	assert.Empty(t, history)
}

func TestBrief_AdapterFailure(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	s := New("s1")
	_, err := f.orch.LoadDocument(ctx, s, report)
	require.NoError(t, err)

	f.provider.errs = []error{nil, errors.New("rate limited")}
	_, err = f.orch.Brief(ctx, s)
	assert.ErrorIs(t, err, rag.ErrAdapterFailure)
	assert.Nil(t, s.LastBrief())
}

func TestSessionsAreIsolated(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	a, b := New("a"), New("b")
	_, err := f.orch.LoadDocument(ctx, a, report)
	require.NoError(t, err)

	var wg sync.WaitGroup
	for i := 0; i < 4; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, _ = f.orch.SubmitQuery(ctx, a, "revenue")
		}()
	}
	wg.Wait()

	ha, err := f.orch.History(ctx, a)
	require.NoError(t, err)
	assert.Len(t, ha, 8)
	for i := 0; i < len(ha); i += 2 {
		assert.Equal(t, conversation.RoleUser, ha[i].Role)
		assert.Equal(t, conversation.RoleAssistant, ha[i+1].Role)
	}

	hb, err := f.orch.History(ctx, b)
	require.NoError(t, err)
	assert.Empty(t, hb)
	assert.Equal(t, StateIdle, b.State())
}

func TestNewOrchestrator_Validation(t *testing.T) {
	store := conversation.NewMemoryStore()
	cache := indexer.NewCache(indexer.NewBuilder(embeddings.NewTFIDF(0)), 0)

	_, err := NewOrchestrator(nil, store, cache)
	assert.ErrorIs(t, err, rag.ErrInvalidInput)
	_, err = NewOrchestrator(&recordingProvider{}, store, cache, WithTopK(0))
	assert.ErrorIs(t, err, rag.ErrInvalidInput)
	_, err = NewOrchestrator(&recordingProvider{}, store, cache, WithHistoryWindow(-1))
	assert.ErrorIs(t, err, rag.ErrInvalidInput)
}

func TestWithModelIsForwarded(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, WithModel("llama-3.1-8b-instant", 512, 0.2))
	s := New("s1")
	_, err := f.orch.LoadDocument(ctx, s, report)
	require.NoError(t, err)
	_, err = f.orch.SubmitQuery(ctx, s, "revenue")
	require.NoError(t, err)

	req := f.provider.last()
	assert.Equal(t, "llama-3.1-8b-instant", req.Model)
	assert.Equal(t, 512, req.MaxTokens)
	assert.InDelta(t, 0.2, req.Temperature, 1e-9)
}

func TestManager(t *testing.T) {
	m := NewManager()
	a := m.Create()
	b := m.Create()
	assert.NotEqual(t, a.ID(), b.ID())

	got, ok := m.Get(a.ID())
	require.True(t, ok)
	assert.Same(t, a, got)

	assert.Same(t, a, m.GetOrCreate(a.ID()))
	c := m.GetOrCreate("named")
	assert.Equal(t, "named", c.ID())

	assert.Len(t, m.List(), 3)
	assert.True(t, m.Delete(a.ID()))
	assert.False(t, m.Delete(a.ID()))
	_, ok = m.Get(a.ID())
	assert.False(t, ok)
	assert.Len(t, m.List(), 2)
}
