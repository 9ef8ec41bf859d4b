package config

import (
	"github.com/bizassist/bizassist/internal/chunker"
	"github.com/bizassist/bizassist/internal/embeddings"
	"github.com/bizassist/bizassist/internal/llm"
	"github.com/bizassist/bizassist/internal/retriever"
	"github.com/bizassist/bizassist/internal/vectordb"
)

// DefaultPath is the config file looked up in the working directory.
const DefaultPath = ".bizassist.yml"

// defaultModels maps each provider to the chat model the wizard suggests.
var defaultModels = map[string]string{
	llm.ProviderGroq:       llm.DefaultModel,
	llm.ProviderOpenAI:     "gpt-4o-mini",
	llm.ProviderOpenRouter: "meta-llama/llama-3.3-70b-instruct",
	llm.ProviderAnthropic:  "claude-haiku-4-5-20251001",
	llm.ProviderOllama:     "llama3",
}

// DefaultModel returns the suggested chat model for provider.
func DefaultModel(provider string) string {
	if m, ok := defaultModels[provider]; ok {
		return m
	}
	return llm.DefaultModel
}

// DefaultConfig returns a Config with the standard chat settings: Groq,
// 500/50 chunks, top 3 passages, a six-turn window.
func DefaultConfig() *Config {
	return &Config{
		LLM: LLMConfig{
			Provider:    llm.ProviderGroq,
			Model:       llm.DefaultModel,
			TimeoutSecs: 120,
		},
		Retrieval: RetrievalConfig{
			ChunkSize:      chunker.DefaultChunkSize,
			Overlap:        chunker.DefaultOverlap,
			TopK:           retriever.DefaultK,
			HistoryWindow:  6,
			Strategy:       retriever.StrategyVector,
			MaxFeatures:    embeddings.DefaultMaxFeatures,
			Embedder:       EmbedderTFIDF,
			EmbeddingModel: string(embeddings.ModelTextEmbedding3Small),
			Backend:        vectordb.BackendFlat,
			CacheEntries:   16,
		},
		Documents: DocumentsConfig{
			Include: []string{"**"},
		},
		Storage: StorageConfig{
			DataDir:     ".bizassist",
			History:     HistoryMemory,
			TrackerFile: "applications.json",
		},
		Server: ServerConfig{
			Port: 8080,
		},
		Log: LogConfig{
			Level:  "info",
			Format: "text",
		},
	}
}
