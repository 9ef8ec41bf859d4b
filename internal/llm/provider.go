package llm

import (
	"context"
	"errors"
	"fmt"

	"github.com/bizassist/bizassist/internal/rag"
)

// Provider defines the interface for LLM providers. Complete makes one
// synchronous call; failures are returned as *rag.AdapterError.
type Provider interface {
	// Complete sends a completion request and returns the response.
	Complete(ctx context.Context, req CompletionRequest) (*CompletionResponse, error)
	// Name returns the name of this provider.
	Name() string
}

// errEmptyReply marks a response that carried no text.
var errEmptyReply = errors.New("malformed response: no reply text")

// adapterError wraps err as a *rag.AdapterError unless it already is one.
func adapterError(provider string, err error) error {
	var ae *rag.AdapterError
	if errors.As(err, &ae) {
		return err
	}
	return &rag.AdapterError{Provider: provider, Err: err}
}

// Ask sends a single system + user exchange and returns the reply text.
// An empty system prompt sends the user message alone.
func Ask(ctx context.Context, p Provider, system, user string) (string, error) {
	var msgs []Message
	if system != "" {
		msgs = append(msgs, Message{Role: RoleSystem, Content: system})
	}
	msgs = append(msgs, Message{Role: RoleUser, Content: user})
	resp, err := p.Complete(ctx, CompletionRequest{Messages: msgs})
	if err != nil {
		return "", err
	}
	return resp.Content, nil
}

// checkReply rejects responses without text.
func checkReply(provider string, content string) error {
	if content == "" {
		return adapterError(provider, errEmptyReply)
	}
	return nil
}

// StatusError is a non-200 reply from a provider's HTTP API.
type StatusError struct {
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("status %d: %s", e.StatusCode, e.Body)
}

func statusError(provider string, status int, body []byte) error {
	return adapterError(provider, &StatusError{StatusCode: status, Body: truncate(string(body), 512)})
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
