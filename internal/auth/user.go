// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Personal Workstation Contributors

package auth

import (
	"context"
	"regexp"
	"time"

	"github.com/samber/oops"
)

// Username validation constraints.
const (
	MinUsernameLength = 3
	MaxUsernameLength = 30
)

// usernameRegex matches usernames that:
// - Start with a letter (a-z, A-Z)
// - Contain only letters, numbers, and underscores
var usernameRegex = regexp.MustCompile(`^[a-zA-Z][a-zA-Z0-9_]*$`)

// User represents an account. The numeric ID is assigned by the store and
// immutable; the username is immutable after creation. PasswordHash is
// write-only: Sanitized strips it before a User crosses the boundary.
// Accounts are never hard-deleted by this subsystem.
type User struct {
	ID           int64
	Username     string
	PasswordHash string
	Nickname     *string
	Avatar       *string
	Email        *string
	Phone        *string
	Birthday     *string
	Gender       *string
	Bio          *string
	CreatedAt    time.Time
	UpdatedAt    time.Time
	LastLoginAt  *time.Time
}

// NewUser creates a validated User instance with a hashed credential.
// The nickname is optional and may be nil. The ID is zero until the
// repository assigns one.
func NewUser(username, passwordHash string, nickname *string) (*User, error) {
	if err := ValidateUsername(username); err != nil {
		return nil, err
	}
	if passwordHash == "" {
		return nil, oops.Code("AUTH_INVALID_HASH").Errorf("password hash cannot be empty")
	}

	now := time.Now()
	return &User{
		Username:     username,
		PasswordHash: passwordHash,
		Nickname:     nickname,
		CreatedAt:    now,
		UpdatedAt:    now,
	}, nil
}

// Sanitized returns a copy of the user with the password hash removed.
// Every value returned across the boundary goes through this.
func (u *User) Sanitized() *User {
	if u == nil {
		return nil
	}
	c := *u
	c.PasswordHash = ""
	return &c
}

// ValidateUsername validates a username against rules.
// Username requirements:
// - Length: MinUsernameLength to MaxUsernameLength characters
// - Must start with a letter
// - Can contain only letters (a-z, A-Z), numbers (0-9), and underscores (_)
func ValidateUsername(username string) error {
	if username == "" {
		return oops.Code("AUTH_INVALID_USERNAME").Errorf("username cannot be empty")
	}
	if len(username) < MinUsernameLength {
		return oops.Code("AUTH_INVALID_USERNAME").
			With("min", MinUsernameLength).
			Errorf("username must be at least %d characters", MinUsernameLength)
	}
	if len(username) > MaxUsernameLength {
		return oops.Code("AUTH_INVALID_USERNAME").
			With("max", MaxUsernameLength).
			Errorf("username must be at most %d characters", MaxUsernameLength)
	}
	if !usernameRegex.MatchString(username) {
		return oops.Code("AUTH_INVALID_USERNAME").
			Errorf("username must start with a letter and contain only letters, numbers, and underscores")
	}
	return nil
}

// ProfileUpdate describes a partial profile change. A nil field is left
// untouched; a non-nil field is written as given, so a pointer to an empty
// string clears the stored value. The username and password hash are not
// updatable through this type.
type ProfileUpdate struct {
	Nickname *string
	Avatar   *string
	Email    *string
	Phone    *string
	Birthday *string
	Gender   *string
	Bio      *string
}

// IsEmpty returns true if no field is set.
func (p ProfileUpdate) IsEmpty() bool {
	return p.Nickname == nil &&
		p.Avatar == nil &&
		p.Email == nil &&
		p.Phone == nil &&
		p.Birthday == nil &&
		p.Gender == nil &&
		p.Bio == nil
}

// UserRepository manages user persistence.
type UserRepository interface {
	// Create stores a new user and assigns its ID. A taken username
	// surfaces as an error wrapping ErrDuplicateUsername.
	Create(ctx context.Context, user *User) error

	// GetByID retrieves a user by ID.
	GetByID(ctx context.Context, id int64) (*User, error)

	// GetByUsername retrieves a user by exact username.
	GetByUsername(ctx context.Context, username string) (*User, error)

	// UpdateProfile writes only the fields set in upd, bumps updated_at,
	// and returns the stored row.
	UpdateProfile(ctx context.Context, id int64, upd ProfileUpdate) (*User, error)

	// UpdatePassword updates only the password hash for a user.
	UpdatePassword(ctx context.Context, id int64, passwordHash string) error

	// UpdateLastLogin records a successful login timestamp.
	UpdateLastLogin(ctx context.Context, id int64, at time.Time) error

	// Count returns the total number of user rows.
	Count(ctx context.Context) (int64, error)

	// ExistsByUsername reports whether a user with the username exists.
	ExistsByUsername(ctx context.Context, username string) (bool, error)
}
