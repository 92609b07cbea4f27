package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/certilink/certilink-api/internal/models"
)

// SessionRepository provides database access for bearer-token sessions.
type SessionRepository struct {
	db *sqlx.DB
}

// NewSessionRepository creates a new instance of SessionRepository.
func NewSessionRepository(db *sqlx.DB) *SessionRepository {
	return &SessionRepository{db: db}
}

// Create inserts a session row binding a token to its principal.
func (r *SessionRepository) Create(ctx context.Context, session *models.Session) error {
	if session.ID == "" {
		session.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	if session.CreatedAt.IsZero() {
		session.CreatedAt = now
	}
	if session.LastSeenAt.IsZero() {
		session.LastSeenAt = now
	}

	const query = `INSERT INTO sessions (id, token, principal_id, role, expires_at, created_at, last_seen_at) VALUES (:id, :token, :principal_id, :role, :expires_at, :created_at, :last_seen_at)`
	if _, err := r.db.NamedExecContext(ctx, query, session); err != nil {
		return fmt.Errorf("create session: %w", err)
	}
	return nil
}

// Find returns the session matching token, principal and role.
func (r *SessionRepository) Find(ctx context.Context, token, principalID string, role models.Role) (*models.Session, error) {
	const query = `SELECT id, token, principal_id, role, expires_at, created_at, last_seen_at FROM sessions WHERE token = $1 AND principal_id = $2 AND role = $3 LIMIT 1`
	var session models.Session
	if err := r.db.GetContext(ctx, &session, query, token, principalID, role); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("find session: %w", err)
	}
	return &session, nil
}

// Touch updates the session's last-activity timestamp.
func (r *SessionRepository) Touch(ctx context.Context, id string, seenAt time.Time) error {
	const query = `UPDATE sessions SET last_seen_at = $2 WHERE id = $1`
	if _, err := r.db.ExecContext(ctx, query, id, seenAt); err != nil {
		return fmt.Errorf("touch session: %w", err)
	}
	return nil
}

// Delete removes a session, forcing logout for its token.
func (r *SessionRepository) Delete(ctx context.Context, id string) error {
	const query = `DELETE FROM sessions WHERE id = $1`
	if _, err := r.db.ExecContext(ctx, query, id); err != nil {
		return fmt.Errorf("delete session: %w", err)
	}
	return nil
}

// DeleteExpired removes sessions whose expiry has passed.
func (r *SessionRepository) DeleteExpired(ctx context.Context, now time.Time) (int64, error) {
	const query = `DELETE FROM sessions WHERE expires_at < $1`
	res, err := r.db.ExecContext(ctx, query, now)
	if err != nil {
		return 0, fmt.Errorf("delete expired sessions: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("delete expired sessions: %w", err)
	}
	return affected, nil
}
