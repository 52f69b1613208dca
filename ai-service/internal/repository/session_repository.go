package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/pennywise/finance/shared/errs"
	"github.com/pennywise/finance/shared/models"
)

// SessionRepository stores chat sessions and their messages.
type SessionRepository struct {
	db *sql.DB
}

func NewSessionRepository(db *sql.DB) *SessionRepository {
	return &SessionRepository{db: db}
}

func (r *SessionRepository) Create(ctx context.Context, s *models.AiSession) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO ai_sessions (id, user_id, title, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5)
	`, s.ID, s.UserID, s.Title, s.CreatedAt, s.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to create session: %w", err)
	}
	return nil
}

func (r *SessionRepository) GetByID(ctx context.Context, id string) (*models.AiSession, error) {
	var s models.AiSession
	err := r.db.QueryRowContext(ctx, `
		SELECT id, user_id, title, created_at, updated_at FROM ai_sessions WHERE id = $1
	`, id).Scan(&s.ID, &s.UserID, &s.Title, &s.CreatedAt, &s.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, errs.ErrSessionNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get session: %w", err)
	}
	return &s, nil
}

// ListByUser returns the user's sessions, most recently active first.
func (r *SessionRepository) ListByUser(ctx context.Context, userID string) ([]models.AiSession, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, user_id, title, created_at, updated_at
		FROM ai_sessions WHERE user_id = $1
		ORDER BY updated_at DESC
	`, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list sessions: %w", err)
	}
	defer rows.Close()

	sessions := []models.AiSession{}
	for rows.Next() {
		var s models.AiSession
		if err := rows.Scan(&s.ID, &s.UserID, &s.Title, &s.CreatedAt, &s.UpdatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan session: %w", err)
		}
		sessions = append(sessions, s)
	}
	return sessions, rows.Err()
}

// Delete removes a session; its messages go with it via ON DELETE CASCADE.
func (r *SessionRepository) Delete(ctx context.Context, id string) error {
	result, err := r.db.ExecContext(ctx, `DELETE FROM ai_sessions WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete session: %w", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check rows affected: %w", err)
	}
	if n == 0 {
		return errs.ErrSessionNotFound
	}
	return nil
}

// Messages returns the last limit messages of a session in chronological
// order. A limit of zero or less returns all of them.
func (r *SessionRepository) Messages(ctx context.Context, sessionID string, limit int) ([]models.AiMessage, error) {
	query := `
		SELECT id, session_id, role, content, created_at FROM (
			SELECT id, session_id, role, content, created_at
			FROM ai_messages WHERE session_id = $1
			ORDER BY created_at DESC, id DESC
			LIMIT $2
		) recent ORDER BY created_at, id
	`
	var bound any
	if limit > 0 {
		bound = limit
	}
	rows, err := r.db.QueryContext(ctx, query, sessionID, bound)
	if err != nil {
		return nil, fmt.Errorf("failed to list messages: %w", err)
	}
	defer rows.Close()

	messages := []models.AiMessage{}
	for rows.Next() {
		var m models.AiMessage
		if err := rows.Scan(&m.ID, &m.SessionID, &m.Role, &m.Content, &m.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan message: %w", err)
		}
		messages = append(messages, m)
	}
	return messages, rows.Err()
}

// AddMessages appends messages to a session and bumps its updated_at in one
// transaction.
func (r *SessionRepository) AddMessages(ctx context.Context, sessionID string, messages ...models.AiMessage) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	var last time.Time
	for _, m := range messages {
		_, err := tx.ExecContext(ctx, `
			INSERT INTO ai_messages (id, session_id, role, content, created_at)
			VALUES ($1, $2, $3, $4, $5)
		`, m.ID, sessionID, m.Role, m.Content, m.CreatedAt)
		if err != nil {
			return fmt.Errorf("failed to insert message: %w", err)
		}
		if m.CreatedAt.After(last) {
			last = m.CreatedAt
		}
	}

	result, err := tx.ExecContext(ctx, `UPDATE ai_sessions SET updated_at = $2 WHERE id = $1`, sessionID, last)
	if err != nil {
		return fmt.Errorf("failed to touch session: %w", err)
	}
	if n, _ := result.RowsAffected(); n == 0 {
		return errs.ErrSessionNotFound
	}
	return tx.Commit()
}
