// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Personal Workstation Contributors

package auth

import (
	"crypto/rand"
	"encoding/hex"

	"github.com/samber/oops"
)

// SessionTokenBytes is the entropy width of a session token.
// 32 bytes hex-encode to 64 characters.
const SessionTokenBytes = 32

// GenerateSessionToken creates a secure random opaque token. The token has
// no structural relationship to any user id, username, or time, and is not
// checked against the store for collisions: uniqueness is guaranteed
// probabilistically by the entropy width.
func GenerateSessionToken() (string, error) {
	tokenBytes := make([]byte, SessionTokenBytes)
	if _, err := rand.Read(tokenBytes); err != nil {
		return "", oops.Code("SESSION_TOKEN_GENERATE_FAILED").
			With("operation", "crypto/rand.Read").
			With("requested_bytes", SessionTokenBytes).
			Wrap(err)
	}
	return hex.EncodeToString(tokenBytes), nil
}
