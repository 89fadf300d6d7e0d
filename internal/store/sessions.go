package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"
)

// CreateSession inserts a new active session for the user.
func (s *Store) CreateSession(ctx context.Context, sessionID, userID, dataJSON string) (*Session, error) {
	if s == nil || s.db == nil {
		return nil, fmt.Errorf("store not initialized")
	}
	if sessionID == "" || userID == "" {
		return nil, fmt.Errorf("session id and user id required")
	}

	now := time.Now().Unix()
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO sessions (id, user_id, session_json, is_active, created_at, last_activity)
		VALUES (?, ?, ?, 1, ?, ?)
	`, sessionID, userID, dataJSON, now, now)
	if err != nil {
		return nil, err
	}

	return s.GetSession(ctx, sessionID)
}

// GetSession returns the session with the given id, or nil when absent.
func (s *Store) GetSession(ctx context.Context, sessionID string) (*Session, error) {
	if s == nil || s.db == nil {
		return nil, fmt.Errorf("store not initialized")
	}

	var sess Session
	var active int
	var created, lastActivity int64
	err := s.db.QueryRowContext(ctx, `
		SELECT id, user_id, COALESCE(session_json, ''), is_active, created_at, last_activity
		FROM sessions WHERE id = ? LIMIT 1
	`, sessionID).Scan(&sess.ID, &sess.UserID, &sess.Data, &active, &created, &lastActivity)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	sess.IsActive = active != 0
	sess.CreatedAt = time.Unix(created, 0)
	sess.LastActivity = time.Unix(lastActivity, 0)
	return &sess, nil
}

// TouchSession bumps the session's last-activity timestamp.
func (s *Store) TouchSession(ctx context.Context, sessionID string) error {
	if s == nil || s.db == nil {
		return fmt.Errorf("store not initialized")
	}

	_, err := s.db.ExecContext(ctx, `
		UPDATE sessions SET last_activity = strftime('%s', 'now') WHERE id = ?
	`, sessionID)
	return err
}

// EndSession marks the session inactive.
func (s *Store) EndSession(ctx context.Context, sessionID string) error {
	if s == nil || s.db == nil {
		return fmt.Errorf("store not initialized")
	}

	_, err := s.db.ExecContext(ctx, `
		UPDATE sessions SET is_active = 0, last_activity = strftime('%s', 'now') WHERE id = ?
	`, sessionID)
	return err
}

// ActiveSessions returns the user's active sessions, most recent first.
func (s *Store) ActiveSessions(ctx context.Context, userID string) ([]*Session, error) {
	if s == nil || s.db == nil {
		return nil, fmt.Errorf("store not initialized")
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, user_id, COALESCE(session_json, ''), is_active, created_at, last_activity
		FROM sessions
		WHERE user_id = ? AND is_active = 1
		ORDER BY last_activity DESC
	`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var sessions []*Session
	for rows.Next() {
		var sess Session
		var active int
		var created, lastActivity int64
		if err := rows.Scan(&sess.ID, &sess.UserID, &sess.Data, &active, &created, &lastActivity); err != nil {
			return nil, err
		}
		sess.IsActive = active != 0
		sess.CreatedAt = time.Unix(created, 0)
		sess.LastActivity = time.Unix(lastActivity, 0)
		sessions = append(sessions, &sess)
	}
	return sessions, rows.Err()
}
