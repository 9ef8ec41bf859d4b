// Package prompt assembles the message lists sent to the language model.
package prompt

import (
	"strings"

	"github.com/bizassist/bizassist/internal/conversation"
	"github.com/bizassist/bizassist/internal/llm"
)

// Compose returns one system message (system followed by the retrieved
// context joined by newlines), then history in order, then a final user
// message with newUserText. The system message is present even when
// context is empty.
func Compose(system string, context []string, history []conversation.Turn, newUserText string) []llm.Message {
	msgs := make([]llm.Message, 0, len(history)+2)
	msgs = append(msgs, llm.Message{
		Role:    llm.RoleSystem,
		Content: system + "\n" + strings.Join(context, "\n"),
	})
	for _, t := range history {
		msgs = append(msgs, llm.Message{Role: llm.Role(t.Role), Content: t.Text})
	}
	msgs = append(msgs, llm.Message{Role: llm.RoleUser, Content: newUserText})
	return msgs
}
