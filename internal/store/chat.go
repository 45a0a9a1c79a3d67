package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"
)

const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

type Message struct {
	Role      string
	Content   string
	CreatedAt time.Time
}

func (s *Store) CreateConversation(ctx context.Context, userID, title string) (string, error) {
	id := newID()
	now := s.stamp()
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO ai_conversations (id, user_id, title, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?)`, id, userID, title, now, now)
	if err != nil {
		return "", fmt.Errorf("create conversation: %w", err)
	}
	return id, nil
}

// ConversationOwnedBy reports whether conversation id exists and belongs
// to userID.
func (s *Store) ConversationOwnedBy(ctx context.Context, id, userID string) (bool, error) {
	var one int
	err := s.db.QueryRowContext(ctx,
		`SELECT 1 FROM ai_conversations WHERE id = ? AND user_id = ?`, id, userID).Scan(&one)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("check conversation %s: %w", id, err)
	}
	return true, nil
}

func (s *Store) AddMessage(ctx context.Context, conversationID, role, content string) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO ai_messages (conversation_id, role, content, created_at)
		VALUES (?, ?, ?, ?)`, conversationID, role, content, s.stamp())
	if err != nil {
		return fmt.Errorf("add %s message: %w", role, err)
	}
	return nil
}

// History returns the last limit messages of a conversation, oldest first.
func (s *Store) History(ctx context.Context, conversationID string, limit int) ([]Message, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT role, content, created_at FROM (
			SELECT id, role, content, created_at FROM ai_messages
			WHERE conversation_id = ?
			ORDER BY created_at DESC, id DESC
			LIMIT ?
		) ORDER BY created_at, id`, conversationID, limit)
	if err != nil {
		return nil, fmt.Errorf("load history of %s: %w", conversationID, err)
	}
	defer rows.Close()

	var out []Message
	for rows.Next() {
		var (
			m       Message
			created sql.NullString
		)
		if err := rows.Scan(&m.Role, &m.Content, &created); err != nil {
			return nil, err
		}
		if t := parseTime(created); t != nil {
			m.CreatedAt = *t
		}
		out = append(out, m)
	}
	return out, rows.Err()
}

func (s *Store) TouchConversation(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE ai_conversations SET updated_at = ? WHERE id = ?`, s.stamp(), id)
	if err != nil {
		return fmt.Errorf("touch conversation %s: %w", id, err)
	}
	return requireRow(res)
}

// CountUserMessagesSince counts the user-role messages userID sent across
// all of their conversations since the given instant.
func (s *Store) CountUserMessagesSince(ctx context.Context, userID string, since time.Time) (int, error) {
	var n int
	err := s.db.QueryRowContext(ctx, `
		SELECT COUNT(*) FROM ai_messages m
		JOIN ai_conversations c ON c.id = m.conversation_id
		WHERE c.user_id = ? AND m.role = ? AND m.created_at >= ?`,
		userID, RoleUser, formatTime(since)).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("count messages of %s: %w", userID, err)
	}
	return n, nil
}
