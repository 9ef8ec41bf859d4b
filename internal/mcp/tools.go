package mcp

import "github.com/mark3labs/mcp-go/mcp"

// searchDocumentTool defines the search_document MCP tool.
var searchDocumentTool = mcp.NewTool("search_document",
	mcp.WithDescription("Search the loaded business document. Returns the most relevant passages with their page numbers and scores."),
	mcp.WithString("query",
		mcp.Required(),
		mcp.Description("Natural language search query"),
	),
	mcp.WithNumber("limit",
		mcp.Description("Maximum number of passages to return (default 3)"),
	),
)

// askDocumentTool defines the ask_document MCP tool.
var askDocumentTool = mcp.NewTool("ask_document",
	mcp.WithDescription("Ask a question about the loaded document. The answer is grounded in retrieved passages and earlier questions in this conversation."),
	mcp.WithString("question",
		mcp.Required(),
		mcp.Description("The question to answer"),
	),
)

// clearConversationTool defines the clear_conversation MCP tool.
var clearConversationTool = mcp.NewTool("clear_conversation",
	mcp.WithDescription("Forget earlier questions and answers. The document stays loaded."),
)
