package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/bizassist/bizassist/internal/chunker"
	"github.com/bizassist/bizassist/internal/config"
	"github.com/bizassist/bizassist/internal/conversation"
	"github.com/bizassist/bizassist/internal/db"
	"github.com/bizassist/bizassist/internal/document"
	"github.com/bizassist/bizassist/internal/embeddings"
	"github.com/bizassist/bizassist/internal/indexer"
	"github.com/bizassist/bizassist/internal/llm"
	"github.com/bizassist/bizassist/internal/logging"
	"github.com/bizassist/bizassist/internal/progress"
	"github.com/bizassist/bizassist/internal/retriever"
	"github.com/bizassist/bizassist/internal/session"
)

// loadConfig loads and validates the config, providing a user-friendly error.
func loadConfig() (*config.Config, error) {
	cfg, err := config.Load(cfgFile)
	if err != nil {
		return nil, fmt.Errorf("loading config: %w\nRun `bizassist init` to create a config file", err)
	}
	if verbose {
		cfg.Log.Level = "debug"
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config %s: %w", cfgFile, err)
	}
	return cfg, nil
}

// newLogger builds the structured logger. Logs always go to w, which is
// stderr for every command so stdout stays clean for output and MCP frames.
func newLogger(cfg *config.Config, w io.Writer) (*slog.Logger, error) {
	return logging.New(cfg.Log.Level, cfg.Log.Format, w)
}

// createLLMProviderFromConfig creates the completion provider.
func createLLMProviderFromConfig(cfg *config.Config) (llm.Provider, error) {
	return llm.NewProvider(cfg.ProviderOptions())
}

// createFitterFromConfig returns the vectoriser fitted per document. TF-IDF
// learns its vocabulary from each corpus; API embedders are fixed.
func createFitterFromConfig(cfg *config.Config) (embeddings.Fitter, error) {
	r := cfg.Retrieval
	switch r.Embedder {
	case config.EmbedderTFIDF:
		return embeddings.NewTFIDF(r.MaxFeatures), nil
	case config.EmbedderOpenAI:
		apiKey := os.Getenv(llm.APIKeyEnv(llm.ProviderOpenAI))
		if apiKey == "" {
			return nil, fmt.Errorf("%s environment variable is required for OpenAI embeddings", llm.APIKeyEnv(llm.ProviderOpenAI))
		}
		return embeddings.Fixed(embeddings.NewOpenAIEmbedder(apiKey, embeddings.OpenAIModel(r.EmbeddingModel), r.EmbeddingBaseURL)), nil
	case config.EmbedderOllama:
		return embeddings.Fixed(embeddings.NewOllamaEmbedder(r.EmbeddingModel, 0, r.EmbeddingBaseURL)), nil
	default:
		return nil, fmt.Errorf("unknown embedder %q", r.Embedder)
	}
}

// createHistoryStore opens the configured conversation store. The returned
// close function is never nil.
func createHistoryStore(cfg *config.Config) (conversation.Store, func() error, error) {
	if cfg.Storage.History != config.HistorySQLite {
		return conversation.NewMemoryStore(), func() error { return nil }, nil
	}
	database, err := db.Open(cfg.HistoryDBPath())
	if err != nil {
		return nil, nil, fmt.Errorf("opening history database: %w", err)
	}
	return conversation.NewSQLiteStore(database), database.Close, nil
}

// app bundles the wired chat stack for one command invocation.
type app struct {
	cfg      *config.Config
	logger   *slog.Logger
	provider llm.Provider
	store    conversation.Store
	orch     *session.Orchestrator
	close    func() error
}

// appOptions tweak newApp for individual commands.
type appOptions struct {
	strategy string // overrides retrieval.strategy when set
	topK     int    // overrides retrieval.top_k when > 0
	progress bool   // show an indexing progress bar
}

// newApp wires config, logger, provider, index cache, history store and
// orchestrator.
func newApp(opts appOptions) (*app, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, err
	}
	if opts.strategy != "" {
		cfg.Retrieval.Strategy = opts.strategy
	}
	if opts.topK > 0 {
		cfg.Retrieval.TopK = opts.topK
	}

	logger, err := newLogger(cfg, os.Stderr)
	if err != nil {
		return nil, err
	}
	provider, err := createLLMProviderFromConfig(cfg)
	if err != nil {
		return nil, fmt.Errorf("creating LLM provider: %w", err)
	}
	fitter, err := createFitterFromConfig(cfg)
	if err != nil {
		return nil, fmt.Errorf("creating embedder: %w", err)
	}
	strategy, err := retriever.New(cfg.Retrieval.Strategy)
	if err != nil {
		return nil, err
	}
	splitter, err := chunker.New(
		chunker.WithChunkSize(cfg.Retrieval.ChunkSize),
		chunker.WithOverlap(cfg.Retrieval.Overlap),
	)
	if err != nil {
		return nil, err
	}

	builderOpts := []indexer.Option{
		indexer.WithBackend(cfg.Retrieval.Backend),
		indexer.WithLogger(logger),
	}
	if opts.progress {
		builderOpts = append(builderOpts, indexer.WithReporter(progress.NewReporter("Indexing")))
	}
	cache := indexer.NewCache(indexer.NewBuilder(fitter, builderOpts...), cfg.Retrieval.CacheEntries)

	store, closeStore, err := createHistoryStore(cfg)
	if err != nil {
		return nil, err
	}

	orch, err := session.NewOrchestrator(provider, store, cache,
		session.WithTopK(cfg.Retrieval.TopK),
		session.WithHistoryWindow(cfg.Retrieval.HistoryWindow),
		session.WithStrategy(strategy),
		session.WithSplitter(splitter),
		session.WithModel(cfg.LLM.Model, cfg.LLM.MaxTokens, cfg.LLM.Temperature),
		session.WithLogger(logger),
	)
	if err != nil {
		closeStore()
		return nil, err
	}

	return &app{
		cfg:      cfg,
		logger:   logger,
		provider: provider,
		store:    store,
		orch:     orch,
		close:    closeStore,
	}, nil
}

// loadDocuments reads every path, walking directories with the configured
// include and exclude patterns, and merges the result into one document.
func (a *app) loadDocuments(ctx context.Context, paths []string) (*document.Document, error) {
	loader := document.NewLoader()
	var docs []*document.Document
	for _, p := range paths {
		info, err := os.Stat(p)
		if err != nil {
			return nil, err
		}
		if !info.IsDir() {
			d, err := loader.Load(ctx, p)
			if err != nil {
				return nil, err
			}
			docs = append(docs, d)
			continue
		}
		found, err := loader.LoadAll(ctx, p, a.cfg.Documents.Include, a.cfg.Documents.Exclude)
		if err != nil {
			return nil, err
		}
		docs = append(docs, found...)
	}
	switch len(docs) {
	case 0:
		return nil, errors.New("no supported documents found (pdf, txt, md)")
	case 1:
		return docs[0], nil
	default:
		return document.Merge(fmt.Sprintf("%d documents", len(docs)), docs...), nil
	}
}

// openSession creates a session with paths loaded into it.
func (a *app) openSession(ctx context.Context, id string, paths []string) (*session.Session, error) {
	doc, err := a.loadDocuments(ctx, paths)
	if err != nil {
		return nil, err
	}
	sess := session.New(id)
	res, err := a.orch.LoadDocument(ctx, sess, doc)
	if err != nil {
		return nil, err
	}
	a.logger.Debug("session ready", "document", res.Document, "passages", res.Passages)
	return sess, nil
}

func displayName(paths []string) string {
	if len(paths) == 1 {
		return filepath.Base(paths[0])
	}
	return fmt.Sprintf("%d sources", len(paths))
}
