package store

import (
	"context"
	"fmt"
	"time"
)

// SaveCommand records a processed command and its response.
func (s *Store) SaveCommand(ctx context.Context, rec *CommandRecord) (int64, error) {
	if s == nil || s.db == nil {
		return 0, fmt.Errorf("store not initialized")
	}
	if rec == nil || rec.UserID == "" || rec.Command == "" {
		return 0, fmt.Errorf("user id and command required")
	}

	commandType := rec.CommandType
	if commandType == "" {
		commandType = "text"
	}

	res, err := s.db.ExecContext(ctx, `
		INSERT INTO command_history
			(user_id, session_id, command_text, command_type, ai_response, actions_json, confidence, model_used, created_at)
		VALUES (?, NULLIF(?, ''), ?, ?, ?, ?, ?, ?, ?)
	`, rec.UserID, rec.SessionID, rec.Command, commandType, rec.Response, rec.Actions,
		rec.Confidence, rec.ModelUsed, time.Now().Unix())
	if err != nil {
		return 0, err
	}
	return res.LastInsertId()
}

// RecentCommands returns the user's most recent commands, newest first.
func (s *Store) RecentCommands(ctx context.Context, userID string, limit int) ([]*CommandRecord, error) {
	if s == nil || s.db == nil {
		return nil, fmt.Errorf("store not initialized")
	}
	if limit <= 0 {
		limit = 50
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, user_id, COALESCE(session_id, ''), command_text, command_type,
		       COALESCE(ai_response, ''), COALESCE(actions_json, ''), confidence,
		       COALESCE(model_used, ''), created_at
		FROM command_history
		WHERE user_id = ?
		ORDER BY created_at DESC, id DESC
		LIMIT ?
	`, userID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var records []*CommandRecord
	for rows.Next() {
		var rec CommandRecord
		var created int64
		if err := rows.Scan(&rec.ID, &rec.UserID, &rec.SessionID, &rec.Command, &rec.CommandType,
			&rec.Response, &rec.Actions, &rec.Confidence, &rec.ModelUsed, &created); err != nil {
			return nil, err
		}
		rec.CreatedAt = time.Unix(created, 0)
		records = append(records, &rec)
	}
	return records, rows.Err()
}

// PruneHistory deletes history rows beyond the newest keep entries per user.
func (s *Store) PruneHistory(ctx context.Context, userID string, keep int) error {
	if s == nil || s.db == nil {
		return fmt.Errorf("store not initialized")
	}
	if keep <= 0 {
		return fmt.Errorf("keep must be positive")
	}

	_, err := s.db.ExecContext(ctx, `
		DELETE FROM command_history
		WHERE user_id = ? AND id NOT IN (
			SELECT id FROM command_history
			WHERE user_id = ?
			ORDER BY created_at DESC, id DESC
			LIMIT ?
		)
	`, userID, userID, keep)
	return err
}
