// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Personal Workstation Contributors

package auth

import (
	"context"
	"time"

	"github.com/samber/oops"
)

// SessionTTL is the fixed session lifetime. Not configurable per call:
// every session created by login or registration expires exactly this far
// in the future.
const SessionTTL = 7 * 24 * time.Hour

// Session is a proof-of-authentication record. The opaque token is the
// primary key and is stored as issued; resolving a token is a plain lookup
// filtered by expiry. A session past ExpiresAt is treated as non-existent
// by every reader even while the row is still physically present.
type Session struct {
	Token     string
	UserID    int64
	ExpiresAt time.Time
	CreatedAt time.Time
}

// NewSession creates a session for the user with a freshly issued token
// and an expiry of now plus SessionTTL.
func NewSession(userID int64) (*Session, error) {
	if userID <= 0 {
		return nil, oops.Code("SESSION_INVALID_USER").Errorf("user ID must be positive, got %d", userID)
	}

	token, err := GenerateSessionToken()
	if err != nil {
		return nil, err
	}

	now := time.Now()
	return &Session{
		Token:     token,
		UserID:    userID,
		ExpiresAt: now.Add(SessionTTL),
		CreatedAt: now,
	}, nil
}

// IsExpired returns true if the session has expired.
func (s *Session) IsExpired() bool {
	return s.IsExpiredAt(time.Now())
}

// IsExpiredAt returns true if the session would be expired at the given time.
// Useful for testing with deterministic time values.
func (s *Session) IsExpiredAt(t time.Time) bool {
	return t.After(s.ExpiresAt)
}

// SessionRepository manages session persistence.
type SessionRepository interface {
	// Create stores a new session.
	Create(ctx context.Context, session *Session) error

	// GetByToken retrieves a live session by token. Expired rows are
	// filtered at read time; an expired or unknown token surfaces as an
	// error wrapping ErrNotFound.
	GetByToken(ctx context.Context, token string) (*Session, error)

	// ListByUser retrieves all live sessions for a user, newest first.
	ListByUser(ctx context.Context, userID int64) ([]*Session, error)

	// DeleteByToken removes a session by token. Deleting a token that
	// does not exist is not an error.
	DeleteByToken(ctx context.Context, token string) error

	// DeleteByUser removes all sessions for a user and returns the count
	// of deleted records.
	DeleteByUser(ctx context.Context, userID int64) (int64, error)

	// DeleteExpired removes all expired sessions and returns the count
	// of deleted records.
	DeleteExpired(ctx context.Context) (int64, error)
}

// Transactor runs a function inside a single store transaction. Repository
// calls made with the context it passes to fn join that transaction.
type Transactor interface {
	// InTransaction begins a transaction and calls fn. If fn returns nil
	// the transaction commits; otherwise it rolls back.
	InTransaction(ctx context.Context, fn func(ctx context.Context) error) error
}
