package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/manifoldco/promptui"

	"github.com/bizassist/bizassist/internal/llm"
	"github.com/bizassist/bizassist/internal/retriever"
)

// RunWizard runs an interactive configuration wizard, saves the result to
// path and returns it.
func RunWizard(path string) (*Config, error) {
	fmt.Println("Welcome to bizassist! Let's configure your assistant.")
	fmt.Println()

	cfg := DefaultConfig()

	// 1. Provider selection.
	providerPrompt := promptui.Select{
		Label: "Select LLM provider",
		Items: llm.SupportedProviders(),
	}
	_, provider, err := providerPrompt.Run()
	if err != nil {
		return nil, fmt.Errorf("provider selection: %w", err)
	}
	cfg.LLM.Provider = provider

	// 2. Model.
	modelPrompt := promptui.Prompt{
		Label:   "Chat model",
		Default: DefaultModel(provider),
	}
	if cfg.LLM.Model, err = modelPrompt.Run(); err != nil {
		return nil, fmt.Errorf("model: %w", err)
	}

	// 3. Retrieval strategy.
	strategyPrompt := promptui.Select{
		Label: "Select retrieval strategy",
		Items: []string{
			"vector  - TF-IDF or embedding similarity",
			"lexical - count query words found in each passage",
		},
	}
	strategyIdx, _, err := strategyPrompt.Run()
	if err != nil {
		return nil, fmt.Errorf("strategy selection: %w", err)
	}
	cfg.Retrieval.Strategy = []string{retriever.StrategyVector, retriever.StrategyLexical}[strategyIdx]

	// 4. Embedder, only meaningful for vector retrieval.
	if cfg.Retrieval.Strategy == retriever.StrategyVector {
		embedderPrompt := promptui.Select{
			Label: "Select embedder",
			Items: []string{EmbedderTFIDF, EmbedderOpenAI, EmbedderOllama},
		}
		if _, cfg.Retrieval.Embedder, err = embedderPrompt.Run(); err != nil {
			return nil, fmt.Errorf("embedder selection: %w", err)
		}
		if cfg.Retrieval.Embedder == EmbedderOllama {
			cfg.Retrieval.EmbeddingModel = "nomic-embed-text"
		}
	}

	// 5. Chunk size.
	chunkPrompt := promptui.Prompt{
		Label:    "Passage size in characters",
		Default:  strconv.Itoa(cfg.Retrieval.ChunkSize),
		Validate: positiveInt,
	}
	chunkStr, err := chunkPrompt.Run()
	if err != nil {
		return nil, fmt.Errorf("chunk size: %w", err)
	}
	cfg.Retrieval.ChunkSize, _ = strconv.Atoi(strings.TrimSpace(chunkStr))
	if cfg.Retrieval.Overlap >= cfg.Retrieval.ChunkSize {
		cfg.Retrieval.Overlap = cfg.Retrieval.ChunkSize / 10
	}

	// 6. History persistence.
	historyPrompt := promptui.Select{
		Label: "Where should chat history live?",
		Items: []string{
			"memory - forgotten when the process exits",
			"sqlite - kept in the data directory",
		},
	}
	historyIdx, _, err := historyPrompt.Run()
	if err != nil {
		return nil, fmt.Errorf("history selection: %w", err)
	}
	cfg.Storage.History = []string{HistoryMemory, HistorySQLite}[historyIdx]

	// 7. Document patterns.
	includePrompt := promptui.Prompt{
		Label:   "Document include patterns (comma-separated globs)",
		Default: strings.Join(cfg.Documents.Include, ","),
	}
	includeStr, err := includePrompt.Run()
	if err != nil {
		return nil, fmt.Errorf("include patterns: %w", err)
	}
	cfg.Documents.Include = splitAndTrim(includeStr)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	// Check for API key.
	if envVar := llm.APIKeyEnv(provider); envVar != "" && os.Getenv(envVar) == "" {
		fmt.Printf("\nNote: Set %s in your environment or a .env file before chatting.\n", envVar)
	}

	if err := cfg.Save(path); err != nil {
		return nil, fmt.Errorf("saving config: %w", err)
	}

	fmt.Printf("\nConfiguration saved to %s\n", path)
	return cfg, nil
}

func positiveInt(s string) error {
	n, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil || n <= 0 {
		return fmt.Errorf("enter a positive whole number")
	}
	return nil
}

// splitAndTrim splits a comma-separated string and trims whitespace,
// dropping empty entries.
func splitAndTrim(s string) []string {
	var result []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			result = append(result, part)
		}
	}
	return result
}
