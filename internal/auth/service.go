// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Personal Workstation Contributors

package auth

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/samber/oops"

	"github.com/lixiaoblack/personal-workstation-sub002/internal/observability"
)

// Service provides the authentication operations. All session mutation goes
// through here; callers hold tokens, never sessions.
type Service struct {
	users    UserRepository
	sessions SessionRepository
	tx       Transactor
	hasher   PasswordHasher
	logger   *slog.Logger
}

// NewService creates a Service with the default logger.
func NewService(users UserRepository, sessions SessionRepository, tx Transactor, hasher PasswordHasher) (*Service, error) {
	return NewServiceWithLogger(users, sessions, tx, hasher, slog.Default())
}

// NewServiceWithLogger creates a Service with an explicit logger.
func NewServiceWithLogger(users UserRepository, sessions SessionRepository, tx Transactor, hasher PasswordHasher, logger *slog.Logger) (*Service, error) {
	if users == nil {
		return nil, oops.Errorf("users repository is required")
	}
	if sessions == nil {
		return nil, oops.Errorf("sessions repository is required")
	}
	if tx == nil {
		return nil, oops.Errorf("transactor is required")
	}
	if hasher == nil {
		return nil, oops.Errorf("password hasher is required")
	}
	if logger == nil {
		return nil, oops.Errorf("logger is required")
	}
	return &Service{
		users:    users,
		sessions: sessions,
		tx:       tx,
		hasher:   hasher,
		logger:   logger,
	}, nil
}

// Register creates a new account and logs it in. The user insert and the
// first session insert happen in one transaction: both succeed or both are
// visibly absent. Returns the sanitized user and the plaintext token.
func (s *Service) Register(ctx context.Context, username, password string, nickname *string) (*User, string, error) {
	if err := ValidateUsername(username); err != nil {
		return nil, "", err
	}

	hash, err := s.hasher.Hash(password)
	if err != nil {
		return nil, "", err
	}

	user, err := NewUser(username, hash, nickname)
	if err != nil {
		return nil, "", err
	}

	var session *Session
	err = s.tx.InTransaction(ctx, func(ctx context.Context) error {
		if err := s.users.Create(ctx, user); err != nil {
			return err
		}
		sess, err := NewSession(user.ID)
		if err != nil {
			return err
		}
		if err := s.sessions.Create(ctx, sess); err != nil {
			return err
		}
		session = sess
		return nil
	})
	if err != nil {
		if errors.Is(err, ErrDuplicateUsername) {
			return nil, "", oops.Code("AUTH_DUPLICATE_USERNAME").
				With("username", username).
				Wrap(err)
		}
		return nil, "", oops.Code("AUTH_REGISTER_FAILED").
			With("operation", "create user and session").
			With("username", username).
			Wrap(err)
	}

	return user.Sanitized(), session.Token, nil
}

// Login authenticates a user and creates a new session. Prior sessions are
// left untouched: multiple concurrent sessions per user are supported.
// Unknown usernames and wrong passwords fail with distinct codes.
func (s *Service) Login(ctx context.Context, username, password string) (*User, string, error) {
	s.sweepExpired(ctx)

	user, err := s.users.GetByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, "", oops.Code("AUTH_USER_NOT_FOUND").
				With("username", username).
				Errorf("no account with that username")
		}
		return nil, "", oops.Code("AUTH_LOGIN_FAILED").
			With("operation", "get user by username").
			Wrap(err)
	}

	if !s.hasher.Verify(password, user.PasswordHash) {
		return nil, "", oops.Code("AUTH_INVALID_CREDENTIALS").Errorf("incorrect password")
	}

	session, err := NewSession(user.ID)
	if err != nil {
		return nil, "", oops.Code("AUTH_LOGIN_FAILED").
			With("operation", "create session").
			Wrap(err)
	}
	if err := s.sessions.Create(ctx, session); err != nil {
		return nil, "", oops.Code("AUTH_SESSION_CREATE_FAILED").
			With("operation", "persist session").
			Wrap(err)
	}

	// Best effort: login succeeds even if the bookkeeping write fails.
	now := time.Now()
	if err := s.users.UpdateLastLogin(ctx, user.ID, now); err != nil {
		s.logger.Warn("failed to record last login", "user_id", user.ID, "error", err)
	} else {
		user.LastLoginAt = &now
	}

	return user.Sanitized(), session.Token, nil
}

// Logout deletes the session for the token. Idempotent: an unknown or
// already-deleted token still reports success.
func (s *Service) Logout(ctx context.Context, token string) error {
	if err := s.sessions.DeleteByToken(ctx, token); err != nil {
		return oops.Code("AUTH_LOGOUT_FAILED").
			With("operation", "delete session").
			Wrap(err)
	}
	return nil
}

// ValidateToken resolves a token to its owning user. An absent, expired,
// or revoked token yields (nil, nil): not being authenticated is a state,
// not an error. This is the gate every privileged operation passes through.
func (s *Service) ValidateToken(ctx context.Context, token string) (*User, error) {
	if token == "" {
		return nil, nil
	}

	s.sweepExpired(ctx)

	session, err := s.sessions.GetByToken(ctx, token)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, nil
		}
		return nil, oops.Code("SESSION_VALIDATE_FAILED").
			With("operation", "get session by token").
			Wrap(err)
	}

	user, err := s.users.GetByID(ctx, session.UserID)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			// Session without an owner. Users are never hard-deleted, so
			// this indicates manual store surgery; treat as unauthenticated.
			return nil, nil
		}
		return nil, oops.Code("SESSION_VALIDATE_FAILED").
			With("operation", "get session owner").
			With("user_id", session.UserID).
			Wrap(err)
	}

	return user.Sanitized(), nil
}

// UpdateProfile applies a partial profile update: only the fields set in
// upd are written, the rest are untouched. Sessions are not affected.
func (s *Service) UpdateProfile(ctx context.Context, userID int64, upd ProfileUpdate) (*User, error) {
	if upd.IsEmpty() {
		user, err := s.users.GetByID(ctx, userID)
		if err != nil {
			if errors.Is(err, ErrNotFound) {
				return nil, oops.Code("AUTH_USER_NOT_FOUND").
					With("user_id", userID).
					Wrap(err)
			}
			return nil, oops.Code("AUTH_PROFILE_UPDATE_FAILED").
				With("operation", "get user by id").
				Wrap(err)
		}
		return user.Sanitized(), nil
	}

	user, err := s.users.UpdateProfile(ctx, userID, upd)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, oops.Code("AUTH_USER_NOT_FOUND").
				With("user_id", userID).
				Wrap(err)
		}
		return nil, oops.Code("AUTH_PROFILE_UPDATE_FAILED").
			With("operation", "update profile").
			With("user_id", userID).
			Wrap(err)
	}
	return user.Sanitized(), nil
}

// UpdatePassword verifies the old password, stores a new hash, and deletes
// every session for the user, all in one transaction. A crash cannot leave
// a changed password with still-valid sessions. Callers must log in again
// on every device.
func (s *Service) UpdatePassword(ctx context.Context, userID int64, oldPassword, newPassword string) error {
	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return oops.Code("AUTH_USER_NOT_FOUND").
				With("user_id", userID).
				Wrap(err)
		}
		return oops.Code("AUTH_PASSWORD_UPDATE_FAILED").
			With("operation", "get user by id").
			Wrap(err)
	}

	if !s.hasher.Verify(oldPassword, user.PasswordHash) {
		return oops.Code("AUTH_WRONG_OLD_PASSWORD").Errorf("old password does not match")
	}

	return s.replacePassword(ctx, user.ID, newPassword, "password_change")
}

// ResetPassword replaces a password looked up by username, without the old
// password (the forgot-password flow). The hash update and the session
// purge share one transaction, same as UpdatePassword.
func (s *Service) ResetPassword(ctx context.Context, username, newPassword string) error {
	user, err := s.users.GetByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return oops.Code("AUTH_USER_NOT_FOUND").
				With("username", username).
				Errorf("no account with that username")
		}
		return oops.Code("AUTH_PASSWORD_RESET_FAILED").
			With("operation", "get user by username").
			Wrap(err)
	}

	return s.replacePassword(ctx, user.ID, newPassword, "password_reset")
}

// replacePassword re-hashes the credential and purges the user's sessions
// in a single transaction, forcing re-authentication everywhere.
func (s *Service) replacePassword(ctx context.Context, userID int64, newPassword, reason string) error {
	hash, err := s.hasher.Hash(newPassword)
	if err != nil {
		return err
	}

	var revoked int64
	err = s.tx.InTransaction(ctx, func(ctx context.Context) error {
		if err := s.users.UpdatePassword(ctx, userID, hash); err != nil {
			return err
		}
		n, err := s.sessions.DeleteByUser(ctx, userID)
		if err != nil {
			return err
		}
		revoked = n
		return nil
	})
	if err != nil {
		return oops.Code("AUTH_PASSWORD_UPDATE_FAILED").
			With("operation", "replace password and purge sessions").
			With("user_id", userID).
			Wrap(err)
	}

	observability.RecordSessionsRevoked(reason, revoked)
	s.logger.Info("password replaced, sessions revoked",
		"user_id", userID,
		"reason", reason,
		"revoked", revoked,
	)
	return nil
}

// IsInitialized reports whether at least one account exists. The UI uses
// this to default to registration on first run.
func (s *Service) IsInitialized(ctx context.Context) (bool, error) {
	count, err := s.users.Count(ctx)
	if err != nil {
		return false, oops.Code("AUTH_INIT_CHECK_FAILED").
			With("operation", "count users").
			Wrap(err)
	}
	return count > 0, nil
}

// CheckUsernameExists reports whether the username is taken. No session
// interaction.
func (s *Service) CheckUsernameExists(ctx context.Context, username string) (bool, error) {
	exists, err := s.users.ExistsByUsername(ctx, username)
	if err != nil {
		return false, oops.Code("AUTH_USERNAME_CHECK_FAILED").
			With("operation", "check username exists").
			With("username", username).
			Wrap(err)
	}
	return exists, nil
}

// sweepExpired garbage-collects expired sessions. Called opportunistically
// at the start of login and token validation, never on a timer. Correctness
// does not depend on it (GetByToken filters by expiry), so a failed sweep
// is logged and ignored.
func (s *Service) sweepExpired(ctx context.Context) {
	n, err := s.sessions.DeleteExpired(ctx)
	if err != nil {
		s.logger.Warn("expired session sweep failed", "error", err)
		return
	}
	if n > 0 {
		observability.RecordSessionsSwept(n)
		s.logger.Debug("swept expired sessions", "count", n)
	}
}
