package sqlstore

import (
	"context"
	"strings"
	"time"

	"github.com/example/court-reservations/internal/persistence"
)

type sessionRow struct {
	ID        string     `db:"id"`
	UserID    int64      `db:"user_id"`
	ExpiresAt dbTime     `db:"expires_at"`
	CreatedAt dbTime     `db:"created_at"`
	RevokedAt nullDBTime `db:"revoked_at"`
}

func (r sessionRow) model() persistence.Session {
	return persistence.Session{
		ID:        r.ID,
		UserID:    r.UserID,
		ExpiresAt: r.ExpiresAt.Time(),
		CreatedAt: r.CreatedAt.Time(),
		RevokedAt: r.RevokedAt.Ptr(),
	}
}

// CreateSession stores a new session for a user.
func (s *Storage) CreateSession(ctx context.Context, session persistence.Session) (persistence.Session, error) {
	if strings.TrimSpace(session.ID) == "" || session.UserID == 0 || session.ExpiresAt.IsZero() {
		return persistence.Session{}, persistence.ErrConstraintViolation
	}
	if session.CreatedAt.IsZero() {
		session.CreatedAt = s.nowUTC()
	}

	_, err := s.db.ExecContext(ctx, s.db.Rebind(`
		INSERT INTO sessions (id, user_id, expires_at, created_at, revoked_at)
		VALUES (?, ?, ?, ?, ?)
	`),
		session.ID,
		session.UserID,
		s.timestamp(session.ExpiresAt),
		s.timestamp(session.CreatedAt),
		s.nullableTimestamp(session.RevokedAt),
	)
	if err != nil {
		return persistence.Session{}, s.mapError(err)
	}

	return s.GetSession(ctx, session.ID)
}

// GetSession retrieves a session by id.
func (s *Storage) GetSession(ctx context.Context, id string) (persistence.Session, error) {
	var row sessionRow
	err := s.db.GetContext(ctx, &row, s.db.Rebind(`
		SELECT id, user_id, expires_at, created_at, revoked_at FROM sessions WHERE id = ?
	`), id)
	if err != nil {
		return persistence.Session{}, s.mapError(err)
	}
	return row.model(), nil
}

// RevokeSession marks a session revoked. Revoking twice keeps the first timestamp.
func (s *Storage) RevokeSession(ctx context.Context, id string, revokedAt time.Time) (persistence.Session, error) {
	result, err := s.db.ExecContext(ctx, s.db.Rebind(`
		UPDATE sessions SET revoked_at = COALESCE(revoked_at, ?) WHERE id = ?
	`), s.timestamp(revokedAt), id)
	if err != nil {
		return persistence.Session{}, s.mapError(err)
	}
	if affected, err := result.RowsAffected(); err == nil && affected == 0 {
		return persistence.Session{}, persistence.ErrNotFound
	}
	return s.GetSession(ctx, id)
}

// DeleteExpiredSessions removes sessions that expired at or before reference.
func (s *Storage) DeleteExpiredSessions(ctx context.Context, reference time.Time) error {
	if _, err := s.db.ExecContext(ctx, s.db.Rebind(`DELETE FROM sessions WHERE expires_at <= ?`), s.timestamp(reference)); err != nil {
		return s.mapError(err)
	}
	return nil
}
