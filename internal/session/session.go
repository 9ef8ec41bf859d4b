// Package session binds a loaded document and a conversation into a chat
// session and runs the retrieve, compose, complete and store pipeline.
package session

import (
	"sync"
	"time"

	"github.com/bizassist/bizassist/internal/indexer"
	"github.com/bizassist/bizassist/internal/llm"
)

// State is the lifecycle position of a session.
type State string

const (
	StateIdle           State = "idle"
	StateDocumentLoaded State = "document_loaded"
)

// Session is the unit of document and conversation isolation. Orchestrator
// calls on the same session run one at a time.
type Session struct {
	id        string
	createdAt time.Time

	// run serialises orchestrator operations; mu guards the fields below.
	run sync.Mutex
	mu  sync.RWMutex

	state     State
	corpus    *indexer.Corpus
	docName   string
	docHash   string
	usage     llm.Usage
	lastBrief *Brief
}

// New returns an idle session with the given ID.
func New(id string) *Session {
	return &Session{id: id, createdAt: time.Now().UTC(), state: StateIdle}
}

// ID returns the session identifier used as the conversation key.
func (s *Session) ID() string { return s.id }

// State returns the current lifecycle state.
func (s *Session) State() State {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state
}

// Info is a point-in-time snapshot of a session.
type Info struct {
	ID        string    `json:"id"`
	State     State     `json:"state"`
	Document  string    `json:"document,omitempty"`
	Hash      string    `json:"document_hash,omitempty"`
	Passages  int       `json:"passages"`
	CreatedAt time.Time `json:"created_at"`
	Usage     llm.Usage `json:"usage"`
}

// Info returns a snapshot of the session.
func (s *Session) Info() Info {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return Info{
		ID:        s.id,
		State:     s.state,
		Document:  s.docName,
		Hash:      s.docHash,
		Passages:  s.corpus.Len(),
		CreatedAt: s.createdAt,
		Usage:     s.usage,
	}
}

// LastBrief returns the most recent meeting brief, if any.
func (s *Session) LastBrief() *Brief {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.lastBrief
}

func (s *Session) loaded() (*indexer.Corpus, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.corpus, s.state == StateDocumentLoaded
}

func (s *Session) bind(corpus *indexer.Corpus, name, hash string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.corpus = corpus
	s.docName = name
	s.docHash = hash
	s.state = StateDocumentLoaded
	s.lastBrief = nil
}

func (s *Session) record(resp *llm.CompletionResponse) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.usage.Add(resp)
}
