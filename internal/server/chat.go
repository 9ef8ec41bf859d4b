package server

import (
	"encoding/json"
	"net/http"

	"github.com/gorilla/websocket"

	"github.com/bizassist/bizassist/internal/document"
	"github.com/bizassist/bizassist/internal/session"
	"github.com/bizassist/bizassist/internal/vectordb"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

// chatRequest is the incoming WebSocket message format.
type chatRequest struct {
	Type      string   `json:"type"` // "message", "document" or "clear"
	SessionID string   `json:"session_id"`
	Content   string   `json:"content"`
	Name      string   `json:"name,omitempty"`
	Pages     []string `json:"pages,omitempty"`
}

// chatResponse is the outgoing WebSocket message format.
type chatResponse struct {
	Type        string            `json:"type"` // "response", "loaded", "cleared" or "error"
	SessionID   string            `json:"session_id"`
	Content     string            `json:"content"`
	ContentHTML string            `json:"content_html,omitempty"`
	Sources     []vectordb.Result `json:"sources,omitempty"`
	Passages    int               `json:"passages,omitempty"`
}

// handleWebSocket runs one chat loop per connection. A message without a
// session_id starts a new session whose ID is echoed back.
func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Warn("websocket upgrade", "error", err)
		return
	}
	defer conn.Close()

	for {
		_, msg, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				s.logger.Warn("websocket read", "error", err)
			}
			return
		}

		var req chatRequest
		if err := json.Unmarshal(msg, &req); err != nil {
			s.sendError(conn, "", "invalid message format")
			continue
		}

		var sess *session.Session
		if req.SessionID == "" {
			sess = s.sessions.Create()
		} else {
			sess = s.sessions.GetOrCreate(req.SessionID)
		}

		ctx := r.Context()
		switch req.Type {
		case "message":
			reply, err := s.orch.SubmitQuery(ctx, sess, req.Content)
			if err != nil {
				s.sendError(conn, sess.ID(), err.Error())
				continue
			}
			out := s.messageResponse(reply)
			s.send(conn, chatResponse{
				Type:        "response",
				SessionID:   sess.ID(),
				Content:     out.Reply,
				ContentHTML: out.ReplyHTML,
				Sources:     out.Sources,
			})
		case "document":
			name := req.Name
			if name == "" {
				name = "document"
			}
			res, err := s.orch.LoadDocument(ctx, sess, document.FromText(name, req.Pages...))
			if err != nil {
				s.sendError(conn, sess.ID(), err.Error())
				continue
			}
			s.send(conn, chatResponse{Type: "loaded", SessionID: sess.ID(), Content: res.Document, Passages: res.Passages})
		case "clear":
			if err := s.orch.ClearSession(ctx, sess); err != nil {
				s.sendError(conn, sess.ID(), err.Error())
				continue
			}
			s.send(conn, chatResponse{Type: "cleared", SessionID: sess.ID()})
		default:
			s.sendError(conn, sess.ID(), "unknown message type: "+req.Type)
		}
	}
}

func (s *Server) send(conn *websocket.Conn, resp chatResponse) {
	if err := conn.WriteJSON(resp); err != nil {
		s.logger.Warn("websocket write", "error", err)
	}
}

func (s *Server) sendError(conn *websocket.Conn, sessionID, message string) {
	s.send(conn, chatResponse{Type: "error", SessionID: sessionID, Content: message})
}
