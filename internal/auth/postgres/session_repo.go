// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Personal Workstation Contributors

package postgres

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/samber/oops"

	"github.com/lixiaoblack/personal-workstation-sub002/internal/auth"
)

// SessionRepository implements auth.SessionRepository using PostgreSQL.
// Every read filters on expires_at, so an expired row is invisible the
// moment its deadline passes, whether or not a sweep has removed it yet.
type SessionRepository struct {
	pool Pool
}

// NewSessionRepository creates a new SessionRepository.
func NewSessionRepository(pool Pool) *SessionRepository {
	return &SessionRepository{pool: pool}
}

var _ auth.SessionRepository = (*SessionRepository)(nil)

// Create stores a new session.
func (r *SessionRepository) Create(ctx context.Context, session *auth.Session) error {
	_, err := dbFrom(ctx, r.pool).Exec(ctx, `
		INSERT INTO sessions (token, user_id, expires_at, created_at)
		VALUES ($1, $2, $3, $4)
	`,
		session.Token,
		session.UserID,
		session.ExpiresAt,
		session.CreatedAt,
	)
	if err != nil {
		return oops.Code("SESSION_CREATE_FAILED").
			With("operation", "insert session").
			With("user_id", session.UserID).
			Wrap(err)
	}
	return nil
}

// GetByToken retrieves a live session by token. An unknown or expired
// token surfaces as an error wrapping auth.ErrNotFound.
func (r *SessionRepository) GetByToken(ctx context.Context, token string) (*auth.Session, error) {
	row := dbFrom(ctx, r.pool).QueryRow(ctx, `
		SELECT token, user_id, expires_at, created_at
		FROM sessions
		WHERE token = $1 AND expires_at > $2
	`, token, time.Now())

	session, err := r.scanSession(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, oops.Code("SESSION_NOT_FOUND").Wrap(auth.ErrNotFound)
	}
	if err != nil {
		return nil, oops.Code("SESSION_GET_BY_TOKEN_FAILED").
			With("operation", "get session by token").
			Wrap(err)
	}
	return session, nil
}

// ListByUser retrieves all live sessions for a user, newest first.
func (r *SessionRepository) ListByUser(ctx context.Context, userID int64) ([]*auth.Session, error) {
	rows, err := dbFrom(ctx, r.pool).Query(ctx, `
		SELECT token, user_id, expires_at, created_at
		FROM sessions
		WHERE user_id = $1 AND expires_at > $2
		ORDER BY created_at DESC
	`, userID, time.Now())
	if err != nil {
		return nil, oops.Code("SESSION_LIST_BY_USER_FAILED").
			With("operation", "list sessions by user").
			With("user_id", userID).
			Wrap(err)
	}
	defer rows.Close()

	var sessions []*auth.Session
	for rows.Next() {
		session, err := r.scanSession(rows)
		if err != nil {
			return nil, oops.Code("SESSION_SCAN_FAILED").
				With("operation", "scan session row").
				Wrap(err)
		}
		sessions = append(sessions, session)
	}

	if err := rows.Err(); err != nil {
		return nil, oops.Code("SESSION_ROWS_ERROR").
			With("operation", "iterate session rows").
			Wrap(err)
	}

	return sessions, nil
}

// DeleteByToken removes a session by token. Deleting a token that does not
// exist is not an error; logout stays idempotent.
func (r *SessionRepository) DeleteByToken(ctx context.Context, token string) error {
	_, err := dbFrom(ctx, r.pool).Exec(ctx, `
		DELETE FROM sessions WHERE token = $1
	`, token)
	if err != nil {
		return oops.Code("SESSION_DELETE_FAILED").
			With("operation", "delete session").
			Wrap(err)
	}
	return nil
}

// DeleteByUser removes all sessions for a user and returns the count.
func (r *SessionRepository) DeleteByUser(ctx context.Context, userID int64) (int64, error) {
	result, err := dbFrom(ctx, r.pool).Exec(ctx, `
		DELETE FROM sessions WHERE user_id = $1
	`, userID)
	if err != nil {
		return 0, oops.Code("SESSION_DELETE_BY_USER_FAILED").
			With("operation", "delete sessions by user").
			With("user_id", userID).
			Wrap(err)
	}
	return result.RowsAffected(), nil
}

// DeleteExpired removes all expired sessions and returns the count.
func (r *SessionRepository) DeleteExpired(ctx context.Context) (int64, error) {
	result, err := dbFrom(ctx, r.pool).Exec(ctx, `
		DELETE FROM sessions WHERE expires_at <= $1
	`, time.Now())
	if err != nil {
		return 0, oops.Code("SESSION_DELETE_EXPIRED_FAILED").
			With("operation", "delete expired sessions").
			Wrap(err)
	}
	return result.RowsAffected(), nil
}

// scanSession scans a single row into a Session.
// Callers are responsible for handling pgx.ErrNoRows.
func (r *SessionRepository) scanSession(row pgx.Row) (*auth.Session, error) {
	var session auth.Session
	err := row.Scan(
		&session.Token,
		&session.UserID,
		&session.ExpiresAt,
		&session.CreatedAt,
	)
	if err != nil {
		// Propagate pgx.ErrNoRows unchanged for callers to handle with context.
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, err //nolint:wrapcheck // Callers wrap with context-specific info
		}
		return nil, oops.Code("SESSION_SCAN_FAILED").
			With("operation", "scan session").
			Wrap(err)
	}
	return &session, nil
}
