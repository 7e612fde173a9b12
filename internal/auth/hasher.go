// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Personal Workstation Contributors

package auth

import (
	"github.com/samber/oops"
	"golang.org/x/crypto/bcrypt"
)

// PasswordHashCost is the bcrypt work factor for all stored credentials.
// It is a constant, not a configuration knob.
const PasswordHashCost = 12

// ErrEmptyPassword is returned when attempting to hash an empty password.
var ErrEmptyPassword = oops.Code("AUTH_EMPTY_PASSWORD").Errorf("password cannot be empty")

// PasswordHasher provides password hashing and verification.
type PasswordHasher interface {
	// Hash produces a salted one-way hash of the password.
	Hash(password string) (string, error)

	// Verify reports whether the password matches the stored hash.
	// A malformed or unparseable stored hash verifies as false, never as
	// an error: a corrupted credential must fail closed.
	Verify(password, hash string) bool
}

// BcryptHasher implements PasswordHasher using bcrypt at PasswordHashCost.
type BcryptHasher struct{}

// NewBcryptHasher creates a new BcryptHasher.
func NewBcryptHasher() *BcryptHasher {
	return &BcryptHasher{}
}

// Hash produces a bcrypt hash of the password. The salt is generated
// internally; two hashes of the same password never match.
func (h *BcryptHasher) Hash(password string) (string, error) {
	if password == "" {
		return "", ErrEmptyPassword
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), PasswordHashCost)
	if err != nil {
		// bcrypt rejects passwords over 72 bytes and invalid costs.
		return "", oops.Code("AUTH_HASH_FAILED").Wrap(err)
	}
	return string(hash), nil
}

// Verify reports whether the password matches the stored hash. Mismatches
// and malformed hashes both return false.
func (h *BcryptHasher) Verify(password, hash string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)) == nil
}

// Compile-time interface check.
var _ PasswordHasher = (*BcryptHasher)(nil)
