package mcp

import (
	"github.com/mark3labs/mcp-go/server"

	"github.com/bizassist/bizassist/internal/session"
)

// Version is set via ldflags at build time.
var Version = "dev"

// Server wraps an MCP server that answers questions about one loaded
// document. All tool calls share a single chat session.
type Server struct {
	orch    *session.Orchestrator
	session *session.Session
	mcp     *server.MCPServer
}

// NewServer creates a new MCP server over sess, which should already have
// a document loaded.
func NewServer(orch *session.Orchestrator, sess *session.Session) *Server {
	s := &Server{
		orch:    orch,
		session: sess,
	}

	s.mcp = server.NewMCPServer(
		"bizassist",
		Version,
		server.WithToolCapabilities(false),
	)

	s.registerTools()

	return s
}

// registerTools adds all tool definitions and their handlers to the MCP server.
func (s *Server) registerTools() {
	s.mcp.AddTool(searchDocumentTool, s.handleSearchDocument)
	s.mcp.AddTool(askDocumentTool, s.handleAskDocument)
	s.mcp.AddTool(clearConversationTool, s.handleClearConversation)
}

// Serve starts the MCP server on stdio. Stdout is used for MCP protocol
// messages; all logging must go to stderr.
func (s *Server) Serve() error {
	return server.ServeStdio(s.mcp)
}
