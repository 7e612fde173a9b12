// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Personal Workstation Contributors

package postgres

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/samber/oops"

	"github.com/lixiaoblack/personal-workstation-sub002/internal/auth"
)

// UserRepository implements auth.UserRepository using PostgreSQL.
type UserRepository struct {
	pool Pool
}

// NewUserRepository creates a new UserRepository.
func NewUserRepository(pool Pool) *UserRepository {
	return &UserRepository{pool: pool}
}

var _ auth.UserRepository = (*UserRepository)(nil)

// Create stores a new user and fills in the assigned ID. A username already
// held by another row surfaces as an error wrapping auth.ErrDuplicateUsername.
func (r *UserRepository) Create(ctx context.Context, user *auth.User) error {
	err := dbFrom(ctx, r.pool).QueryRow(ctx, `
		INSERT INTO users (username, password_hash, nickname, avatar, email, phone, birthday, gender, bio, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		RETURNING id
	`,
		user.Username,
		user.PasswordHash,
		user.Nickname,
		user.Avatar,
		user.Email,
		user.Phone,
		user.Birthday,
		user.Gender,
		user.Bio,
		user.CreatedAt,
		user.UpdatedAt,
	).Scan(&user.ID)
	if err != nil {
		if isUniqueViolation(err) {
			return oops.Code("USER_DUPLICATE").
				With("username", user.Username).
				Wrap(auth.ErrDuplicateUsername)
		}
		return oops.Code("USER_CREATE_FAILED").
			With("operation", "insert user").
			With("username", user.Username).
			Wrap(err)
	}
	return nil
}

// GetByID retrieves a user by ID.
func (r *UserRepository) GetByID(ctx context.Context, id int64) (*auth.User, error) {
	row := dbFrom(ctx, r.pool).QueryRow(ctx, `
		SELECT id, username, password_hash, nickname, avatar, email, phone, birthday, gender, bio, created_at, updated_at, last_login_at
		FROM users
		WHERE id = $1
	`, id)

	user, err := r.scanUser(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, oops.Code("USER_NOT_FOUND").
			With("id", id).
			Wrap(auth.ErrNotFound)
	}
	if err != nil {
		return nil, oops.Code("USER_GET_BY_ID_FAILED").
			With("operation", "get user by id").
			With("id", id).
			Wrap(err)
	}
	return user, nil
}

// GetByUsername retrieves a user by exact username.
func (r *UserRepository) GetByUsername(ctx context.Context, username string) (*auth.User, error) {
	row := dbFrom(ctx, r.pool).QueryRow(ctx, `
		SELECT id, username, password_hash, nickname, avatar, email, phone, birthday, gender, bio, created_at, updated_at, last_login_at
		FROM users
		WHERE username = $1
	`, username)

	user, err := r.scanUser(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, oops.Code("USER_NOT_FOUND").
			With("username", username).
			Wrap(auth.ErrNotFound)
	}
	if err != nil {
		return nil, oops.Code("USER_GET_BY_USERNAME_FAILED").
			With("operation", "get user by username").
			With("username", username).
			Wrap(err)
	}
	return user, nil
}

// UpdateProfile writes only the fields set in upd, bumps updated_at, and
// returns the stored row. An empty string clears a field to NULL so it
// reads back as absent.
func (r *UserRepository) UpdateProfile(ctx context.Context, id int64, upd auth.ProfileUpdate) (*auth.User, error) {
	sets := make([]string, 0, 8)
	args := make([]any, 0, 9)
	args = append(args, id)

	set := func(column string, value *string) {
		if value == nil {
			return
		}
		if *value == "" {
			args = append(args, nil)
		} else {
			args = append(args, *value)
		}
		sets = append(sets, fmt.Sprintf("%s = $%d", column, len(args)))
	}
	set("nickname", upd.Nickname)
	set("avatar", upd.Avatar)
	set("email", upd.Email)
	set("phone", upd.Phone)
	set("birthday", upd.Birthday)
	set("gender", upd.Gender)
	set("bio", upd.Bio)

	args = append(args, time.Now())
	sets = append(sets, fmt.Sprintf("updated_at = $%d", len(args)))

	row := dbFrom(ctx, r.pool).QueryRow(ctx, fmt.Sprintf(`
		UPDATE users SET %s
		WHERE id = $1
		RETURNING id, username, password_hash, nickname, avatar, email, phone, birthday, gender, bio, created_at, updated_at, last_login_at
	`, strings.Join(sets, ", ")), args...)

	user, err := r.scanUser(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, oops.Code("USER_NOT_FOUND").
			With("id", id).
			Wrap(auth.ErrNotFound)
	}
	if err != nil {
		return nil, oops.Code("USER_UPDATE_PROFILE_FAILED").
			With("operation", "update user profile").
			With("id", id).
			Wrap(err)
	}
	return user, nil
}

// UpdatePassword updates only the password hash for a user.
func (r *UserRepository) UpdatePassword(ctx context.Context, id int64, passwordHash string) error {
	result, err := dbFrom(ctx, r.pool).Exec(ctx, `
		UPDATE users SET password_hash = $2, updated_at = $3
		WHERE id = $1
	`, id, passwordHash, time.Now())
	if err != nil {
		return oops.Code("USER_UPDATE_PASSWORD_FAILED").
			With("operation", "update password hash").
			With("id", id).
			Wrap(err)
	}
	if result.RowsAffected() == 0 {
		return oops.Code("USER_NOT_FOUND").
			With("id", id).
			Wrap(auth.ErrNotFound)
	}
	return nil
}

// UpdateLastLogin records a successful login timestamp.
func (r *UserRepository) UpdateLastLogin(ctx context.Context, id int64, at time.Time) error {
	result, err := dbFrom(ctx, r.pool).Exec(ctx, `
		UPDATE users SET last_login_at = $2
		WHERE id = $1
	`, id, at)
	if err != nil {
		return oops.Code("USER_UPDATE_LAST_LOGIN_FAILED").
			With("operation", "update last_login_at").
			With("id", id).
			Wrap(err)
	}
	if result.RowsAffected() == 0 {
		return oops.Code("USER_NOT_FOUND").
			With("id", id).
			Wrap(auth.ErrNotFound)
	}
	return nil
}

// Count returns the total number of user rows.
func (r *UserRepository) Count(ctx context.Context) (int64, error) {
	var count int64
	err := dbFrom(ctx, r.pool).QueryRow(ctx, `SELECT COUNT(*) FROM users`).Scan(&count)
	if err != nil {
		return 0, oops.Code("USER_COUNT_FAILED").
			With("operation", "count users").
			Wrap(err)
	}
	return count, nil
}

// ExistsByUsername reports whether a user with the username exists.
func (r *UserRepository) ExistsByUsername(ctx context.Context, username string) (bool, error) {
	var exists bool
	err := dbFrom(ctx, r.pool).QueryRow(ctx, `
		SELECT EXISTS(SELECT 1 FROM users WHERE username = $1)
	`, username).Scan(&exists)
	if err != nil {
		return false, oops.Code("USER_EXISTS_FAILED").
			With("operation", "check username exists").
			With("username", username).
			Wrap(err)
	}
	return exists, nil
}

// scanUser scans a single row into a User.
// Callers are responsible for handling pgx.ErrNoRows.
func (r *UserRepository) scanUser(row pgx.Row) (*auth.User, error) {
	var user auth.User
	err := row.Scan(
		&user.ID,
		&user.Username,
		&user.PasswordHash,
		&user.Nickname,
		&user.Avatar,
		&user.Email,
		&user.Phone,
		&user.Birthday,
		&user.Gender,
		&user.Bio,
		&user.CreatedAt,
		&user.UpdatedAt,
		&user.LastLoginAt,
	)
	if err != nil {
		// Propagate pgx.ErrNoRows unchanged for callers to handle with context.
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, err //nolint:wrapcheck // Callers wrap with context-specific info
		}
		return nil, oops.Code("USER_SCAN_FAILED").
			With("operation", "scan user").
			Wrap(err)
	}
	return &user, nil
}

// isUniqueViolation reports whether err is a PostgreSQL unique constraint
// violation (SQLSTATE 23505).
func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == pgerrcode.UniqueViolation
}
