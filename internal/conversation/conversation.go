// Package conversation stores the ordered turn history of chat sessions.
package conversation

import (
	"context"
	"time"

	"github.com/bizassist/bizassist/internal/rag"
)

// Role tags who produced a turn.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
	RoleSystem    Role = "system"
)

// Valid reports whether r is one of the known roles.
func (r Role) Valid() bool {
	switch r {
	case RoleUser, RoleAssistant, RoleSystem:
		return true
	}
	return false
}

// Turn is one message in a conversation. Turns are never mutated after
// they are appended.
type Turn struct {
	ID        string    `json:"id,omitempty"`
	Role      Role      `json:"role"`
	Text      string    `json:"text"`
	CreatedAt time.Time `json:"created_at"`
}

// Store holds per-session turn sequences. Sessions never see each other's
// turns.
type Store interface {
	// Append adds turn to the end of the session's history.
	Append(ctx context.Context, sessionID string, turn Turn) error

	// RecentWindow returns the last maxTurns turns, oldest first. Fewer
	// turns are returned when the history is shorter.
	RecentWindow(ctx context.Context, sessionID string, maxTurns int) ([]Turn, error)

	// History returns every turn of the session, oldest first.
	History(ctx context.Context, sessionID string) ([]Turn, error)

	// Clear resets the session's history to empty.
	Clear(ctx context.Context, sessionID string) error
}

// Deleter is implemented by stores that keep per-session records beyond
// the turns themselves.
type Deleter interface {
	DeleteSession(ctx context.Context, sessionID string) error
}

func validateTurn(turn Turn) error {
	if !turn.Role.Valid() {
		return rag.Invalid("unknown role %q", turn.Role)
	}
	return nil
}

func validateWindow(maxTurns int) error {
	if maxTurns < 0 {
		return rag.Invalid("window must not be negative, got %d", maxTurns)
	}
	return nil
}

// tail returns the last n turns of ts.
func tail(ts []Turn, n int) []Turn {
	if n >= len(ts) {
		return ts
	}
	return ts[len(ts)-n:]
}
