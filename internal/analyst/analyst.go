// Package analyst aggregates sales and supply-chain CSVs into summary
// tables and asks the language model for insights about them.
package analyst

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/bizassist/bizassist/internal/conversation"
	"github.com/bizassist/bizassist/internal/llm"
	"github.com/bizassist/bizassist/internal/logging"
	"github.com/bizassist/bizassist/internal/prompt"
	"github.com/bizassist/bizassist/internal/rag"
)

// System prompts.
const (
	SalesAnalystSystem  = "You are a senior business analyst. Provide sharp, actionable insights from sales data. Be specific, identify patterns, flag risks, suggest actions. Use bullet points."
	SalesChatSystem     = "You are a senior business analyst. Answer questions about this sales data with specific numbers and actionable recommendations:"
	SupplyAnalystSystem = "You are a senior supply chain analyst. Provide sharp, specific insights with clear recommendations. Use bullet points."
	SupplyChatSystem    = "You are a senior supply chain analyst:"
)

const defaultHistoryWindow = 6

// Dataset is an aggregated table set the analyst can reason about.
type Dataset interface {
	Name() string
	Len() int
	// AnalysisPrompt returns the one-shot insight request.
	AnalysisPrompt() (system, user string)
	// ChatContext returns the chat instruction and the data it refers to.
	ChatContext() (system, data string)
}

// Analyst asks the model about datasets.
type Analyst struct {
	provider llm.Provider
	store    conversation.Store
	window   int
	model    string
	logger   *slog.Logger
}

// Option configures an Analyst.
type Option func(*Analyst)

// WithHistoryWindow sets how many prior turns accompany a data question.
func WithHistoryWindow(n int) Option {
	return func(a *Analyst) { a.window = n }
}

// WithModel overrides the provider's default model.
func WithModel(model string) Option {
	return func(a *Analyst) { a.model = model }
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(a *Analyst) { a.logger = l }
}

// New returns an Analyst. store may be nil when only Analyze is used.
func New(provider llm.Provider, store conversation.Store, opts ...Option) *Analyst {
	a := &Analyst{provider: provider, store: store, window: defaultHistoryWindow}
	for _, opt := range opts {
		opt(a)
	}
	a.logger = logging.OrDiscard(a.logger)
	return a
}

// Analyze asks for the five most important insights in ds.
func (a *Analyst) Analyze(ctx context.Context, ds Dataset) (string, error) {
	if ds.Len() == 0 {
		return "", rag.Invalid("no %s records match the filters", ds.Name())
	}
	system, user := ds.AnalysisPrompt()
	resp, err := a.provider.Complete(ctx, llm.CompletionRequest{
		Model: a.model,
		Messages: []llm.Message{
			{Role: llm.RoleSystem, Content: system},
			{Role: llm.RoleUser, Content: user},
		},
	})
	if err != nil {
		return "", a.adapterFailure(err)
	}
	a.logger.Info("analysis complete", "dataset", ds.Name(), "records", ds.Len())
	return resp.Content, nil
}

// Ask answers a question about ds within the conversation sessionID. The
// user turn is stored even when the provider fails.
func (a *Analyst) Ask(ctx context.Context, sessionID string, ds Dataset, question string) (string, error) {
	if strings.TrimSpace(question) == "" {
		return "", rag.Invalid("empty question")
	}
	if a.store == nil {
		return "", errors.New("analyst: no conversation store")
	}
	history, err := a.store.RecentWindow(ctx, sessionID, a.window)
	if err != nil {
		return "", fmt.Errorf("loading history: %w", err)
	}
	system, data := ds.ChatContext()
	msgs := prompt.Compose(system, []string{data}, history, question)

	resp, callErr := a.provider.Complete(ctx, llm.CompletionRequest{Model: a.model, Messages: msgs})
	if err := a.store.Append(ctx, sessionID, conversation.Turn{Role: conversation.RoleUser, Text: question}); err != nil {
		return "", fmt.Errorf("storing user turn: %w", err)
	}
	if callErr != nil {
		return "", a.adapterFailure(callErr)
	}
	if err := a.store.Append(ctx, sessionID, conversation.Turn{Role: conversation.RoleAssistant, Text: resp.Content}); err != nil {
		return "", fmt.Errorf("storing assistant turn: %w", err)
	}
	return resp.Content, nil
}

func (a *Analyst) adapterFailure(err error) error {
	if errors.Is(err, rag.ErrAdapterFailure) {
		return err
	}
	return &rag.AdapterError{Provider: a.provider.Name(), Err: err}
}
