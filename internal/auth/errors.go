// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Personal Workstation Contributors

package auth

import "errors"

// Sentinel errors wrapped by repository and service error codes. Callers
// match them with errors.Is.
var (
	// ErrNotFound is returned when a requested entity does not exist.
	ErrNotFound = errors.New("not found")

	// ErrDuplicateUsername is returned when creating a user whose username
	// is already taken. Repositories map the store's unique-constraint
	// violation to this sentinel.
	ErrDuplicateUsername = errors.New("duplicate username")
)
