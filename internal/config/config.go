package config

import (
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"time"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
	yamlv3 "gopkg.in/yaml.v3"

	"github.com/bizassist/bizassist/internal/llm"
	"github.com/bizassist/bizassist/internal/logging"
	"github.com/bizassist/bizassist/internal/retriever"
	"github.com/bizassist/bizassist/internal/vectordb"
)

// EnvPrefix prefixes environment overrides. Nested keys are joined with a
// double underscore: BIZASSIST_LLM__MODEL sets llm.model.
const EnvPrefix = "BIZASSIST_"

// Load reads configuration from the given YAML file, then overlays
// environment variable overrides. A missing file yields the defaults.
func Load(path string) (*Config, error) {
	k := koanf.New(".")

	// Start from defaults.
	cfg := DefaultConfig()

	// Load YAML file if it exists.
	if _, err := os.Stat(path); err == nil {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("reading config %s: %w", path, err)
		}
	} else if !os.IsNotExist(err) {
		return nil, fmt.Errorf("accessing config %s: %w", path, err)
	}

	if err := k.Load(env.Provider(EnvPrefix, ".", envKey), nil); err != nil {
		return nil, fmt.Errorf("loading env overrides: %w", err)
	}

	if err := k.Unmarshal("", cfg); err != nil {
		return nil, fmt.Errorf("unmarshalling config: %w", err)
	}

	return cfg, nil
}

// envKey maps BIZASSIST_RETRIEVAL__TOP_K to retrieval.top_k.
func envKey(s string) string {
	s = strings.ToLower(strings.TrimPrefix(s, EnvPrefix))
	return strings.ReplaceAll(s, "__", ".")
}

// Save writes the configuration to the given YAML file path.
func (c *Config) Save(path string) error {
	data, err := yamlv3.Marshal(c)
	if err != nil {
		return fmt.Errorf("marshalling config: %w", err)
	}
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("creating config dir: %w", err)
		}
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("writing config to %s: %w", path, err)
	}
	return nil
}

var (
	validEmbedders  = []string{EmbedderTFIDF, EmbedderOpenAI, EmbedderOllama}
	validStrategies = []string{retriever.StrategyVector, retriever.StrategyLexical}
	validBackends   = []string{vectordb.BackendFlat, vectordb.BackendChromem}
	validHistories  = []string{HistoryMemory, HistorySQLite}
)

// Validate checks that the configuration contains valid values.
func (c *Config) Validate() error {
	if c.LLM.Provider == "" {
		return fmt.Errorf("llm.provider is required")
	}
	if !slices.Contains(llm.SupportedProviders(), c.LLM.Provider) {
		return fmt.Errorf("invalid llm.provider %q: must be one of %s",
			c.LLM.Provider, strings.Join(llm.SupportedProviders(), ", "))
	}
	if c.LLM.Model == "" {
		return fmt.Errorf("llm.model is required")
	}
	if c.LLM.MaxTokens < 0 {
		return fmt.Errorf("llm.max_tokens must be non-negative")
	}
	if c.LLM.Temperature < 0 || c.LLM.Temperature > 2 {
		return fmt.Errorf("llm.temperature must be between 0 and 2")
	}
	if c.LLM.RequestsPerMinute < 0 {
		return fmt.Errorf("llm.requests_per_minute must be non-negative")
	}
	if c.LLM.MaxRetries < 0 {
		return fmt.Errorf("llm.max_retries must be non-negative")
	}

	r := c.Retrieval
	if r.ChunkSize <= 0 {
		return fmt.Errorf("retrieval.chunk_size must be positive")
	}
	if r.Overlap < 0 || r.Overlap >= r.ChunkSize {
		return fmt.Errorf("retrieval.overlap must be in [0, chunk_size)")
	}
	if r.TopK < 1 {
		return fmt.Errorf("retrieval.top_k must be at least 1")
	}
	if r.HistoryWindow < 0 {
		return fmt.Errorf("retrieval.history_window must be non-negative")
	}
	if !slices.Contains(validStrategies, r.Strategy) {
		return fmt.Errorf("invalid retrieval.strategy %q: must be one of %s", r.Strategy, strings.Join(validStrategies, ", "))
	}
	if !slices.Contains(validEmbedders, r.Embedder) {
		return fmt.Errorf("invalid retrieval.embedder %q: must be one of %s", r.Embedder, strings.Join(validEmbedders, ", "))
	}
	if !slices.Contains(validBackends, r.Backend) {
		return fmt.Errorf("invalid retrieval.backend %q: must be one of %s", r.Backend, strings.Join(validBackends, ", "))
	}
	if r.CacheEntries < 0 {
		return fmt.Errorf("retrieval.cache_entries must be non-negative")
	}

	if c.Storage.DataDir == "" {
		return fmt.Errorf("storage.data_dir is required")
	}
	if !slices.Contains(validHistories, c.Storage.History) {
		return fmt.Errorf("invalid storage.history %q: must be one of %s", c.Storage.History, strings.Join(validHistories, ", "))
	}

	if c.Server.Port < 0 || c.Server.Port > 65535 {
		return fmt.Errorf("server.port must be between 0 and 65535")
	}

	if _, err := logging.ParseLevel(c.Log.Level); err != nil {
		return fmt.Errorf("log.level: %w", err)
	}
	if c.Log.Format != "text" && c.Log.Format != "json" {
		return fmt.Errorf("invalid log.format %q: must be text or json", c.Log.Format)
	}

	return nil
}

// Timeout returns the completion timeout.
func (c *Config) Timeout() time.Duration {
	return time.Duration(c.LLM.TimeoutSecs) * time.Second
}

// ProviderOptions converts the llm section for llm.NewProvider.
func (c *Config) ProviderOptions() llm.Options {
	return llm.Options{
		Type:              c.LLM.Provider,
		Model:             c.LLM.Model,
		BaseURL:           c.LLM.BaseURL,
		Timeout:           c.Timeout(),
		RequestsPerMinute: c.LLM.RequestsPerMinute,
		MaxRetries:        c.LLM.MaxRetries,
	}
}

// HistoryDBPath is the SQLite file used when storage.history is sqlite.
func (c *Config) HistoryDBPath() string {
	return filepath.Join(c.Storage.DataDir, "history.db")
}

// TrackerPath resolves storage.tracker_file against the data directory
// unless it is absolute.
func (c *Config) TrackerPath() string {
	if filepath.IsAbs(c.Storage.TrackerFile) {
		return c.Storage.TrackerFile
	}
	return filepath.Join(c.Storage.DataDir, c.Storage.TrackerFile)
}
