package llm

import (
	"fmt"
	"os"
	"time"
)

// Provider type names accepted by NewProvider.
const (
	ProviderGroq       = "groq"
	ProviderOpenAI     = "openai"
	ProviderOpenRouter = "openrouter"
	ProviderAnthropic  = "anthropic"
	ProviderOllama     = "ollama"
)

// DefaultModel is the chat model used when none is configured.
const DefaultModel = "llama-3.3-70b-versatile"

var compatibleEndpoints = map[string]struct {
	baseURL string
	keyEnv  string
}{
	ProviderGroq:       {"https://api.groq.com/openai/v1", "GROQ_API_KEY"},
	ProviderOpenAI:     {"", "OPENAI_API_KEY"},
	ProviderOpenRouter: {"https://openrouter.ai/api/v1", "OPENROUTER_API_KEY"},
}

// Options configures NewProvider.
type Options struct {
	Type    string
	Model   string
	BaseURL string
	Timeout time.Duration
	// RequestsPerMinute > 0 wraps the provider in a rate limiter.
	RequestsPerMinute int
	// MaxRetries > 0 retries transient failures with backoff.
	MaxRetries int
}

// SupportedProviders lists the accepted provider types.
func SupportedProviders() []string {
	return []string{ProviderGroq, ProviderOpenAI, ProviderOpenRouter, ProviderAnthropic, ProviderOllama}
}

// APIKeyEnv returns the environment variable holding the API key for a
// provider type, or "" when none is needed.
func APIKeyEnv(providerType string) string {
	if ep, ok := compatibleEndpoints[providerType]; ok {
		return ep.keyEnv
	}
	if providerType == ProviderAnthropic {
		return "ANTHROPIC_API_KEY"
	}
	return ""
}

// NewProvider creates a provider from opts, reading API keys from the
// environment. Groq is reached through its OpenAI-compatible endpoint.
func NewProvider(opts Options) (Provider, error) {
	p, err := newBase(opts)
	if err != nil {
		return nil, err
	}
	if opts.MaxRetries > 0 {
		p = NewRetryProvider(p, opts.MaxRetries, time.Second)
	}
	if opts.RequestsPerMinute > 0 {
		p = NewRateLimitedProvider(p, opts.RequestsPerMinute)
	}
	return p, nil
}

func newBase(opts Options) (Provider, error) {
	model := opts.Model
	if model == "" {
		model = DefaultModel
	}

	if ep, ok := compatibleEndpoints[opts.Type]; ok {
		apiKey := os.Getenv(ep.keyEnv)
		if apiKey == "" {
			return nil, fmt.Errorf("%s environment variable is not set", ep.keyEnv)
		}
		baseURL := opts.BaseURL
		if baseURL == "" {
			baseURL = ep.baseURL
		}
		return NewOpenAIProvider(apiKey, model, OpenAIOptions{
			Name:    opts.Type,
			BaseURL: baseURL,
			Timeout: opts.Timeout,
		}), nil
	}

	switch opts.Type {
	case ProviderAnthropic:
		apiKey := os.Getenv("ANTHROPIC_API_KEY")
		if apiKey == "" {
			return nil, fmt.Errorf("ANTHROPIC_API_KEY environment variable is not set")
		}
		return NewAnthropicProvider(apiKey, model, opts.BaseURL, opts.Timeout), nil

	case ProviderOllama:
		host := opts.BaseURL
		if host == "" {
			host = os.Getenv("OLLAMA_HOST")
		}
		if host == "" {
			host = "http://localhost:11434"
		}
		return NewOllamaProvider(host, model, opts.Timeout), nil

	default:
		return nil, fmt.Errorf("unsupported provider type: %s", opts.Type)
	}
}
