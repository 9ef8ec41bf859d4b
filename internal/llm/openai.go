package llm

import (
	"context"
	"net/http"
	"time"

	openai "github.com/sashabaranov/go-openai"
)

// OpenAIProvider implements Provider using the OpenAI Chat Completions API
// or any compatible endpoint (Groq, OpenRouter).
type OpenAIProvider struct {
	client *openai.Client
	model  string
	name   string
}

// OpenAIOptions configures an OpenAI-compatible provider.
type OpenAIOptions struct {
	// Name identifies the provider in errors and logs. Defaults to "openai".
	Name    string
	BaseURL string
	Timeout time.Duration
}

// NewOpenAIProvider creates a provider for model.
func NewOpenAIProvider(apiKey string, model string, opts OpenAIOptions) *OpenAIProvider {
	cfg := openai.DefaultConfig(apiKey)
	if opts.BaseURL != "" {
		cfg.BaseURL = opts.BaseURL
	}
	if opts.Timeout > 0 {
		cfg.HTTPClient = &http.Client{Timeout: opts.Timeout}
	}
	name := opts.Name
	if name == "" {
		name = "openai"
	}
	return &OpenAIProvider{
		client: openai.NewClientWithConfig(cfg),
		model:  model,
		name:   name,
	}
}

func (p *OpenAIProvider) Name() string {
	return p.name
}

func (p *OpenAIProvider) Complete(ctx context.Context, req CompletionRequest) (*CompletionResponse, error) {
	model := req.Model
	if model == "" {
		model = p.model
	}

	messages := make([]openai.ChatCompletionMessage, 0, len(req.Messages))
	for _, msg := range req.Messages {
		messages = append(messages, openai.ChatCompletionMessage{
			Role:    string(msg.Role),
			Content: msg.Content,
		})
	}

	apiReq := openai.ChatCompletionRequest{
		Model:       model,
		Messages:    messages,
		MaxTokens:   req.MaxTokens,
		Temperature: float32(req.Temperature),
	}

	resp, err := p.client.CreateChatCompletion(ctx, apiReq)
	if err != nil {
		return nil, adapterError(p.name, err)
	}
	if len(resp.Choices) == 0 {
		return nil, adapterError(p.name, errEmptyReply)
	}

	choice := resp.Choices[0]
	if err := checkReply(p.name, choice.Message.Content); err != nil {
		return nil, err
	}

	return &CompletionResponse{
		Content:      choice.Message.Content,
		InputTokens:  resp.Usage.PromptTokens,
		OutputTokens: resp.Usage.CompletionTokens,
		Model:        resp.Model,
		FinishReason: string(choice.FinishReason),
	}, nil
}
