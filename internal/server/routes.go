package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/bizassist/bizassist/internal/document"
	"github.com/bizassist/bizassist/internal/rag"
	"github.com/bizassist/bizassist/internal/session"
	"github.com/bizassist/bizassist/internal/vectordb"
)

// registerRoutes mounts the session API on r.
func (s *Server) registerRoutes(r chi.Router) {
	r.Get("/api/sessions", s.listSessionsHandler)
	r.Post("/api/sessions", s.createSessionHandler)
	r.Route("/api/sessions/{id}", func(r chi.Router) {
		r.Get("/", s.withSession(s.getSessionHandler))
		r.Delete("/", s.withSession(s.deleteSessionHandler))
		r.Post("/document", s.withSession(s.loadDocumentHandler))
		r.Post("/messages", s.withSession(s.postMessageHandler))
		r.Get("/messages", s.withSession(s.historyHandler))
		r.Delete("/messages", s.withSession(s.clearHandler))
		r.Get("/search", s.withSession(s.searchHandler))
		r.Post("/brief", s.withSession(s.briefHandler))
	})
}

type sessionHandler func(w http.ResponseWriter, r *http.Request, sess *session.Session)

// withSession resolves the {id} URL parameter, answering 404 when unknown.
func (s *Server) withSession(h sessionHandler) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		sess, ok := s.sessions.Get(chi.URLParam(r, "id"))
		if !ok {
			writeError(w, http.StatusNotFound, "session not found")
			return
		}
		h(w, r, sess)
	}
}

func (s *Server) listSessionsHandler(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.sessions.List())
}

func (s *Server) createSessionHandler(w http.ResponseWriter, r *http.Request) {
	sess := s.sessions.Create()
	s.logger.Debug("session created", "session", sess.ID())
	writeJSON(w, http.StatusCreated, sess.Info())
}

func (s *Server) getSessionHandler(w http.ResponseWriter, r *http.Request, sess *session.Session) {
	writeJSON(w, http.StatusOK, sess.Info())
}

func (s *Server) deleteSessionHandler(w http.ResponseWriter, r *http.Request, sess *session.Session) {
	if err := s.orch.DeleteSession(r.Context(), sess); err != nil {
		s.fail(w, err)
		return
	}
	s.sessions.Delete(sess.ID())
	w.WriteHeader(http.StatusNoContent)
}

// documentRequest is the JSON form of a document upload.
type documentRequest struct {
	Name  string   `json:"name"`
	Pages []string `json:"pages"`
}

func (s *Server) loadDocumentHandler(w http.ResponseWriter, r *http.Request, sess *session.Session) {
	var (
		doc *document.Document
		err error
	)
	r.Body = http.MaxBytesReader(w, r.Body, s.cfg.MaxUploadBytes)
	if strings.HasPrefix(r.Header.Get("Content-Type"), "application/json") {
		doc, err = decodeDocument(r.Body)
	} else {
		doc, err = s.readUpload(r)
	}
	if err != nil {
		s.fail(w, err)
		return
	}

	load := s.orch.LoadDocument
	if reindex, _ := strconv.ParseBool(r.URL.Query().Get("reindex")); reindex {
		load = s.orch.Reindex
	}
	res, err := load(r.Context(), sess, doc)
	if err != nil {
		s.fail(w, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func decodeDocument(body io.Reader) (*document.Document, error) {
	var req documentRequest
	if err := json.NewDecoder(body).Decode(&req); err != nil {
		if tooLarge(err) {
			return nil, fmt.Errorf("decoding document: %w", err)
		}
		return nil, rag.Invalid("invalid request body")
	}
	if req.Name == "" {
		req.Name = "document"
	}
	return document.FromText(req.Name, req.Pages...), nil
}

// readUpload stores the multipart "file" field in a temporary file so the
// loader can dispatch on its extension.
func (s *Server) readUpload(r *http.Request) (*document.Document, error) {
	if err := r.ParseMultipartForm(s.cfg.MaxUploadBytes); err != nil {
		if tooLarge(err) {
			return nil, fmt.Errorf("reading upload: %w", err)
		}
		return nil, rag.Invalid("expected a JSON body or a multipart file upload")
	}
	file, header, err := r.FormFile("file")
	if err != nil {
		return nil, rag.Invalid("multipart field \"file\" is required")
	}
	defer file.Close()

	tmp, err := os.CreateTemp("", "bizassist-*"+filepath.Ext(header.Filename))
	if err != nil {
		return nil, fmt.Errorf("creating upload file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := io.Copy(tmp, file); err != nil {
		tmp.Close()
		return nil, fmt.Errorf("saving upload: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return nil, fmt.Errorf("saving upload: %w", err)
	}

	doc, err := s.loader.Load(r.Context(), tmp.Name())
	if err != nil {
		return nil, err
	}
	doc.Name = filepath.Base(header.Filename)
	doc.Path = ""
	return doc, nil
}

type messageRequest struct {
	Text string `json:"text"`
}

type messageResponse struct {
	Reply     string            `json:"reply"`
	ReplyHTML string            `json:"reply_html"`
	Sources   []vectordb.Result `json:"sources"`
	Model     string            `json:"model,omitempty"`
}

func (s *Server) postMessageHandler(w http.ResponseWriter, r *http.Request, sess *session.Session) {
	var req messageRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	reply, err := s.orch.SubmitQuery(r.Context(), sess, req.Text)
	if err != nil {
		s.fail(w, err)
		return
	}
	writeJSON(w, http.StatusOK, s.messageResponse(reply))
}

func (s *Server) messageResponse(reply *session.Reply) messageResponse {
	html, err := s.renderer.HTML(reply.Text)
	if err != nil {
		s.logger.Warn("rendering reply", "error", err)
	}
	sources := reply.Sources
	if sources == nil {
		sources = []vectordb.Result{}
	}
	return messageResponse{
		Reply:     reply.Text,
		ReplyHTML: html,
		Sources:   sources,
		Model:     reply.Model,
	}
}

func (s *Server) historyHandler(w http.ResponseWriter, r *http.Request, sess *session.Session) {
	turns, err := s.orch.History(r.Context(), sess)
	if err != nil {
		s.fail(w, err)
		return
	}
	if turns == nil {
		writeJSON(w, http.StatusOK, []struct{}{})
		return
	}
	writeJSON(w, http.StatusOK, turns)
}

func (s *Server) clearHandler(w http.ResponseWriter, r *http.Request, sess *session.Session) {
	if err := s.orch.ClearSession(r.Context(), sess); err != nil {
		s.fail(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) searchHandler(w http.ResponseWriter, r *http.Request, sess *session.Session) {
	q := r.URL.Query().Get("q")
	k := 0
	if raw := r.URL.Query().Get("k"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil {
			writeError(w, http.StatusBadRequest, "k must be an integer")
			return
		}
		k = n
	}

	results, err := s.orch.Search(r.Context(), sess, q, k)
	if err != nil {
		s.fail(w, err)
		return
	}
	if results == nil {
		results = []vectordb.Result{}
	}
	writeJSON(w, http.StatusOK, results)
}

type briefResponse struct {
	Summary       string `json:"summary"`
	SummaryHTML   string `json:"summary_html"`
	Questions     string `json:"questions"`
	QuestionsHTML string `json:"questions_html"`
}

func (s *Server) briefHandler(w http.ResponseWriter, r *http.Request, sess *session.Session) {
	brief, err := s.orch.Brief(r.Context(), sess)
	if err != nil {
		s.fail(w, err)
		return
	}
	summary, _ := s.renderer.HTML(brief.Summary)
	questions, _ := s.renderer.HTML(brief.Questions)
	writeJSON(w, http.StatusOK, briefResponse{
		Summary:       brief.Summary,
		SummaryHTML:   summary,
		Questions:     brief.Questions,
		QuestionsHTML: questions,
	})
}

// statusFor maps the error taxonomy to HTTP status codes.
func tooLarge(err error) bool {
	var mbe *http.MaxBytesError
	return errors.As(err, &mbe)
}

func statusFor(err error) int {
	switch {
	case tooLarge(err):
		return http.StatusRequestEntityTooLarge
	case errors.Is(err, rag.ErrInvalidInput):
		return http.StatusBadRequest
	case errors.Is(err, document.ErrUnsupportedFormat):
		return http.StatusUnsupportedMediaType
	case errors.Is(err, rag.ErrEmptyCorpus):
		return http.StatusUnprocessableEntity
	case errors.Is(err, rag.ErrNotIndexed):
		return http.StatusConflict
	case errors.Is(err, rag.ErrAdapterFailure):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

func (s *Server) fail(w http.ResponseWriter, err error) {
	status := statusFor(err)
	if status >= http.StatusInternalServerError {
		s.logger.Error("request failed", "status", status, "error", err)
	}
	writeError(w, status, err.Error())
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
