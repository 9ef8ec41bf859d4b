package conversation

import (
	"context"
	"fmt"
	"slices"
	"time"

	"github.com/google/uuid"

	"github.com/bizassist/bizassist/internal/db"
)

// SQLiteStore persists histories in the chat tables of a db.DB.
type SQLiteStore struct {
	db *db.DB
}

func NewSQLiteStore(d *db.DB) *SQLiteStore {
	return &SQLiteStore{db: d}
}

func (s *SQLiteStore) Append(ctx context.Context, sessionID string, turn Turn) error {
	if err := validateTurn(turn); err != nil {
		return err
	}
	if turn.ID == "" {
		turn.ID = uuid.New().String()
	}
	if turn.CreatedAt.IsZero() {
		turn.CreatedAt = time.Now().UTC()
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx,
		`INSERT INTO chat_sessions (id, created_at, updated_at) VALUES (?, ?, ?)
		 ON CONFLICT(id) DO UPDATE SET updated_at = excluded.updated_at`,
		sessionID, turn.CreatedAt, turn.CreatedAt,
	); err != nil {
		return fmt.Errorf("upserting session: %w", err)
	}

	if _, err := tx.ExecContext(ctx,
		`INSERT INTO chat_messages (id, session_id, seq, role, content, created_at)
		 VALUES (?, ?, (SELECT COALESCE(MAX(seq), 0) + 1 FROM chat_messages WHERE session_id = ?), ?, ?, ?)`,
		turn.ID, sessionID, sessionID, string(turn.Role), turn.Text, turn.CreatedAt,
	); err != nil {
		return fmt.Errorf("adding message: %w", err)
	}
	return tx.Commit()
}

func (s *SQLiteStore) RecentWindow(ctx context.Context, sessionID string, maxTurns int) ([]Turn, error) {
	if err := validateWindow(maxTurns); err != nil {
		return nil, err
	}
	if maxTurns == 0 {
		return []Turn{}, nil
	}
	turns, err := s.query(ctx,
		`SELECT id, role, content, created_at FROM chat_messages
		 WHERE session_id = ? ORDER BY seq DESC LIMIT ?`,
		sessionID, maxTurns,
	)
	if err != nil {
		return nil, err
	}
	slices.Reverse(turns)
	return turns, nil
}

func (s *SQLiteStore) History(ctx context.Context, sessionID string) ([]Turn, error) {
	return s.query(ctx,
		`SELECT id, role, content, created_at FROM chat_messages
		 WHERE session_id = ? ORDER BY seq ASC`,
		sessionID,
	)
}

func (s *SQLiteStore) Clear(ctx context.Context, sessionID string) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM chat_messages WHERE session_id = ?`, sessionID); err != nil {
		return fmt.Errorf("clearing messages: %w", err)
	}
	return nil
}

// DeleteSession removes the session row and its messages.
func (s *SQLiteStore) DeleteSession(ctx context.Context, sessionID string) error {
	if err := s.Clear(ctx, sessionID); err != nil {
		return err
	}
	if _, err := s.db.ExecContext(ctx, `DELETE FROM chat_sessions WHERE id = ?`, sessionID); err != nil {
		return fmt.Errorf("deleting session: %w", err)
	}
	return nil
}

func (s *SQLiteStore) query(ctx context.Context, q string, args ...any) ([]Turn, error) {
	rows, err := s.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("querying messages: %w", err)
	}
	defer rows.Close()

	turns := []Turn{}
	for rows.Next() {
		var t Turn
		var role string
		if err := rows.Scan(&t.ID, &role, &t.Text, &t.CreatedAt); err != nil {
			return nil, fmt.Errorf("scanning message: %w", err)
		}
		t.Role = Role(role)
		turns = append(turns, t)
	}
	return turns, rows.Err()
}
