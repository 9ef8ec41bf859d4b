package mcp

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/bizassist/bizassist/internal/rag"
	"github.com/bizassist/bizassist/internal/vectordb"
)

const notLoadedHint = "No document is loaded. Start the server with `bizassist mcp <document>`."

// handleSearchDocument retrieves passages without calling the completion
// provider.
func (s *Server) handleSearchDocument(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	query, err := request.RequireString("query")
	if err != nil || strings.TrimSpace(query) == "" {
		return mcp.NewToolResultError("missing required parameter: query"), nil
	}

	limit := request.GetInt("limit", 0)
	results, err := s.orch.Search(ctx, s.session, query, limit)
	if err != nil {
		return toolError("search failed", err), nil
	}
	if len(results) == 0 {
		return mcp.NewToolResultText("No passages matched the query."), nil
	}

	return mcp.NewToolResultText(vectordb.FormatResults(results)), nil
}

// handleAskDocument answers a question through the chat session, so later
// questions see earlier ones.
func (s *Server) handleAskDocument(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	question, err := request.RequireString("question")
	if err != nil {
		return mcp.NewToolResultError("missing required parameter: question"), nil
	}

	reply, err := s.orch.SubmitQuery(ctx, s.session, question)
	if err != nil {
		return toolError("question failed", err), nil
	}

	var sb strings.Builder
	sb.WriteString(reply.Text)
	if len(reply.Sources) > 0 {
		sb.WriteString("\n\nSources:")
		for _, r := range reply.Sources {
			fmt.Fprintf(&sb, "\n- page %d, passage %d (score %.3f)", r.Passage.Page+1, r.Passage.Ordinal, r.Score)
		}
	}
	return mcp.NewToolResultText(sb.String()), nil
}

func (s *Server) handleClearConversation(ctx context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	if err := s.orch.ClearSession(ctx, s.session); err != nil {
		return toolError("clear failed", err), nil
	}
	return mcp.NewToolResultText("Conversation cleared."), nil
}

func toolError(action string, err error) *mcp.CallToolResult {
	if errors.Is(err, rag.ErrNotIndexed) {
		return mcp.NewToolResultError(notLoadedHint)
	}
	return mcp.NewToolResultError(fmt.Sprintf("%s: %v", action, err))
}
