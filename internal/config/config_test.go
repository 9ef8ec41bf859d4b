package config

import (
	"path/filepath"
	"testing"
	"time"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()
	if cfg.LLM.Provider != "groq" {
		t.Errorf("expected default provider groq, got %q", cfg.LLM.Provider)
	}
	if cfg.LLM.Model != "llama-3.3-70b-versatile" {
		t.Errorf("expected default model, got %q", cfg.LLM.Model)
	}
	r := cfg.Retrieval
	if r.ChunkSize != 500 || r.Overlap != 50 || r.TopK != 3 || r.HistoryWindow != 6 || r.MaxFeatures != 384 {
		t.Errorf("unexpected retrieval defaults: %+v", r)
	}
	if cfg.LLM.MaxRetries != 0 || cfg.LLM.RequestsPerMinute != 0 {
		t.Errorf("adapter wrappers should be off by default: %+v", cfg.LLM)
	}
}

func TestSaveAndLoad(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "nested", "test.bizassist.yml")

	original := DefaultConfig()
	original.LLM.Provider = "openai"
	original.LLM.Model = "gpt-4o"
	original.LLM.Temperature = 0.3
	original.Retrieval.Strategy = "lexical"
	original.Retrieval.Backend = "chromem"
	original.Documents.Include = []string{"**/*.pdf", "reports/**"}
	original.Storage.History = "sqlite"

	if err := original.Save(path); err != nil {
		t.Fatalf("Save failed: %v", err)
	}

	loaded, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if loaded.LLM != original.LLM {
		t.Errorf("llm: got %+v, want %+v", loaded.LLM, original.LLM)
	}
	if loaded.Retrieval != original.Retrieval {
		t.Errorf("retrieval: got %+v, want %+v", loaded.Retrieval, original.Retrieval)
	}
	if loaded.Storage != original.Storage {
		t.Errorf("storage: got %+v, want %+v", loaded.Storage, original.Storage)
	}
	if len(loaded.Documents.Include) != 2 || loaded.Documents.Include[1] != "reports/**" {
		t.Errorf("include: got %v", loaded.Documents.Include)
	}
}

func TestLoadMissingFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nonexistent.yml")

	// Loading a missing file should return defaults, not an error.
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load should not fail for missing file: %v", err)
	}
	if cfg.Retrieval.TopK != 3 {
		t.Errorf("expected default top_k, got %d", cfg.Retrieval.TopK)
	}
}

func TestLoadEnvOverride(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "test.yml")

	if err := DefaultConfig().Save(path); err != nil {
		t.Fatalf("Save failed: %v", err)
	}

	t.Setenv("BIZASSIST_LLM__MODEL", "llama-3.1-8b-instant")
	t.Setenv("BIZASSIST_RETRIEVAL__TOP_K", "5")
	t.Setenv("BIZASSIST_SERVER__ALLOW_ALL_ORIGINS", "true")

	loaded, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if loaded.LLM.Model != "llama-3.1-8b-instant" {
		t.Errorf("env override failed: got %q", loaded.LLM.Model)
	}
	if loaded.Retrieval.TopK != 5 {
		t.Errorf("top_k override failed: got %d", loaded.Retrieval.TopK)
	}
	if !loaded.Server.AllowAllOrigins {
		t.Error("allow_all_origins override failed")
	}
	if loaded.LLM.Provider != "groq" {
		t.Errorf("provider should be untouched, got %q", loaded.LLM.Provider)
	}
}

func TestEnvKey(t *testing.T) {
	tests := map[string]string{
		"BIZASSIST_LLM__MODEL":            "llm.model",
		"BIZASSIST_RETRIEVAL__CHUNK_SIZE": "retrieval.chunk_size",
		"BIZASSIST_LOG__LEVEL":            "log.level",
	}
	for in, want := range tests {
		if got := envKey(in); got != want {
			t.Errorf("envKey(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestValidateValid(t *testing.T) {
	if err := DefaultConfig().Validate(); err != nil {
		t.Errorf("DefaultConfig should be valid, got: %v", err)
	}
}

func TestValidateRejects(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"empty provider", func(c *Config) { c.LLM.Provider = "" }},
		{"unknown provider", func(c *Config) { c.LLM.Provider = "gemini" }},
		{"empty model", func(c *Config) { c.LLM.Model = "" }},
		{"temperature", func(c *Config) { c.LLM.Temperature = 3 }},
		{"negative retries", func(c *Config) { c.LLM.MaxRetries = -1 }},
		{"zero chunk size", func(c *Config) { c.Retrieval.ChunkSize = 0 }},
		{"overlap equals chunk", func(c *Config) { c.Retrieval.Overlap = c.Retrieval.ChunkSize }},
		{"negative overlap", func(c *Config) { c.Retrieval.Overlap = -1 }},
		{"zero top k", func(c *Config) { c.Retrieval.TopK = 0 }},
		{"negative window", func(c *Config) { c.Retrieval.HistoryWindow = -1 }},
		{"strategy", func(c *Config) { c.Retrieval.Strategy = "bm25" }},
		{"embedder", func(c *Config) { c.Retrieval.Embedder = "google" }},
		{"backend", func(c *Config) { c.Retrieval.Backend = "faiss" }},
		{"history", func(c *Config) { c.Storage.History = "redis" }},
		{"data dir", func(c *Config) { c.Storage.DataDir = "" }},
		{"port", func(c *Config) { c.Server.Port = 70000 }},
		{"log level", func(c *Config) { c.Log.Level = "verbose" }},
		{"log format", func(c *Config) { c.Log.Format = "xml" }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(cfg)
			if err := cfg.Validate(); err == nil {
				t.Errorf("expected validation error for %s", tt.name)
			}
		})
	}
}

func TestProviderOptions(t *testing.T) {
	cfg := DefaultConfig()
	cfg.LLM.RequestsPerMinute = 30
	cfg.LLM.MaxRetries = 2
	cfg.LLM.TimeoutSecs = 45

	opts := cfg.ProviderOptions()
	if opts.Type != "groq" || opts.Model != cfg.LLM.Model {
		t.Errorf("unexpected options %+v", opts)
	}
	if opts.Timeout != 45*time.Second || opts.RequestsPerMinute != 30 || opts.MaxRetries != 2 {
		t.Errorf("unexpected wrapper options %+v", opts)
	}
}

func TestPaths(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Storage.DataDir = "/var/lib/bizassist"
	if got := cfg.HistoryDBPath(); got != filepath.Join("/var/lib/bizassist", "history.db") {
		t.Errorf("HistoryDBPath() = %q", got)
	}
	if got := cfg.TrackerPath(); got != filepath.Join("/var/lib/bizassist", "applications.json") {
		t.Errorf("TrackerPath() = %q", got)
	}
	cfg.Storage.TrackerFile = "/tmp/apps.json"
	if got := cfg.TrackerPath(); got != "/tmp/apps.json" {
		t.Errorf("absolute TrackerPath() = %q", got)
	}
}

func TestDefaultModel(t *testing.T) {
	if DefaultModel("groq") != "llama-3.3-70b-versatile" {
		t.Errorf("groq default: %q", DefaultModel("groq"))
	}
	if DefaultModel("anthropic") != "claude-haiku-4-5-20251001" {
		t.Errorf("anthropic default: %q", DefaultModel("anthropic"))
	}
	if DefaultModel("unknown") != "llama-3.3-70b-versatile" {
		t.Errorf("fallback: %q", DefaultModel("unknown"))
	}
}

func TestSplitAndTrim(t *testing.T) {
	tests := []struct {
		input string
		want  []string
	}{
		{"a,b,c", []string{"a", "b", "c"}},
		{" a , b , c ", []string{"a", "b", "c"}},
		{"**/*.pdf", []string{"**/*.pdf"}},
		{"", nil},
		{"  ,  , ", nil},
	}
	for _, tt := range tests {
		got := splitAndTrim(tt.input)
		if len(got) != len(tt.want) {
			t.Errorf("splitAndTrim(%q) len = %d, want %d", tt.input, len(got), len(tt.want))
			continue
		}
		for i, v := range got {
			if v != tt.want[i] {
				t.Errorf("splitAndTrim(%q)[%d] = %q, want %q", tt.input, i, v, tt.want[i])
			}
		}
	}
}

func TestPositiveInt(t *testing.T) {
	if positiveInt("500") != nil {
		t.Error("500 should be valid")
	}
	for _, s := range []string{"0", "-3", "abc", ""} {
		if positiveInt(s) == nil {
			t.Errorf("%q should be invalid", s)
		}
	}
}
