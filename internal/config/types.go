package config

// Config is the top-level bizassist configuration, corresponding to
// .bizassist.yml.
type Config struct {
	LLM       LLMConfig       `yaml:"llm" koanf:"llm"`
	Retrieval RetrievalConfig `yaml:"retrieval" koanf:"retrieval"`
	Documents DocumentsConfig `yaml:"documents" koanf:"documents"`
	Storage   StorageConfig   `yaml:"storage" koanf:"storage"`
	Server    ServerConfig    `yaml:"server" koanf:"server"`
	Log       LogConfig       `yaml:"log" koanf:"log"`
}

// LLMConfig selects the completion provider.
type LLMConfig struct {
	Provider          string  `yaml:"provider" koanf:"provider"`
	Model             string  `yaml:"model" koanf:"model"`
	BaseURL           string  `yaml:"base_url,omitempty" koanf:"base_url"`
	MaxTokens         int     `yaml:"max_tokens" koanf:"max_tokens"`
	Temperature       float64 `yaml:"temperature" koanf:"temperature"`
	RequestsPerMinute int     `yaml:"requests_per_minute" koanf:"requests_per_minute"`
	MaxRetries        int     `yaml:"max_retries" koanf:"max_retries"`
	TimeoutSecs       int     `yaml:"timeout_secs" koanf:"timeout_secs"`
}

// RetrievalConfig shapes chunking, indexing and retrieval.
type RetrievalConfig struct {
	ChunkSize        int    `yaml:"chunk_size" koanf:"chunk_size"`
	Overlap          int    `yaml:"overlap" koanf:"overlap"`
	TopK             int    `yaml:"top_k" koanf:"top_k"`
	HistoryWindow    int    `yaml:"history_window" koanf:"history_window"`
	Strategy         string `yaml:"strategy" koanf:"strategy"`
	MaxFeatures      int    `yaml:"max_features" koanf:"max_features"`
	Embedder         string `yaml:"embedder" koanf:"embedder"`
	EmbeddingModel   string `yaml:"embedding_model,omitempty" koanf:"embedding_model"`
	EmbeddingBaseURL string `yaml:"embedding_base_url,omitempty" koanf:"embedding_base_url"`
	Backend          string `yaml:"backend" koanf:"backend"`
	CacheEntries     int    `yaml:"cache_entries" koanf:"cache_entries"`
}

// DocumentsConfig filters document discovery in directories.
type DocumentsConfig struct {
	Include []string `yaml:"include" koanf:"include"`
	Exclude []string `yaml:"exclude" koanf:"exclude"`
}

// StorageConfig locates persistent state.
type StorageConfig struct {
	DataDir     string `yaml:"data_dir" koanf:"data_dir"`
	History     string `yaml:"history" koanf:"history"`
	TrackerFile string `yaml:"tracker_file" koanf:"tracker_file"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Port            int  `yaml:"port" koanf:"port"`
	AllowAllOrigins bool `yaml:"allow_all_origins" koanf:"allow_all_origins"`
}

// LogConfig holds logging settings.
type LogConfig struct {
	Level  string `yaml:"level" koanf:"level"`
	Format string `yaml:"format" koanf:"format"`
}

// Embedder names.
const (
	EmbedderTFIDF  = "tfidf"
	EmbedderOpenAI = "openai"
	EmbedderOllama = "ollama"
)

// History store names.
const (
	HistoryMemory = "memory"
	HistorySQLite = "sqlite"
)
