// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Personal Workstation Contributors

package auth_test

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/lixiaoblack/personal-workstation-sub002/internal/auth"
	"github.com/lixiaoblack/personal-workstation-sub002/pkg/errutil"
)

func TestBcryptHasher_Hash(t *testing.T) {
	hasher := auth.NewBcryptHasher()

	t.Run("produces bcrypt hash at the fixed cost", func(t *testing.T) {
		hash, err := hasher.Hash("password123")
		require.NoError(t, err)
		assert.True(t, strings.HasPrefix(hash, "$2a$"))

		cost, err := bcrypt.Cost([]byte(hash))
		require.NoError(t, err)
		assert.Equal(t, auth.PasswordHashCost, cost)
	})

	t.Run("same password produces different hashes (salt)", func(t *testing.T) {
		hash1, err := hasher.Hash("samepassword")
		require.NoError(t, err)
		hash2, err := hasher.Hash("samepassword")
		require.NoError(t, err)
		assert.NotEqual(t, hash1, hash2)
	})

	t.Run("rejects empty password", func(t *testing.T) {
		_, err := hasher.Hash("")
		require.Error(t, err)
		errutil.AssertErrorCode(t, err, "AUTH_EMPTY_PASSWORD")
	})

	t.Run("rejects password over 72 bytes", func(t *testing.T) {
		_, err := hasher.Hash(strings.Repeat("x", 73))
		require.Error(t, err)
		errutil.AssertErrorCode(t, err, "AUTH_HASH_FAILED")
	})
}

func TestBcryptHasher_Verify(t *testing.T) {
	hasher := auth.NewBcryptHasher()

	hash, err := hasher.Hash("correctpassword")
	require.NoError(t, err)

	t.Run("correct password verifies", func(t *testing.T) {
		assert.True(t, hasher.Verify("correctpassword", hash))
	})

	t.Run("incorrect password fails", func(t *testing.T) {
		assert.False(t, hasher.Verify("wrongpassword", hash))
	})

	t.Run("malformed hash fails closed", func(t *testing.T) {
		assert.False(t, hasher.Verify("correctpassword", "not-a-valid-hash"))
	})

	t.Run("empty hash fails closed", func(t *testing.T) {
		assert.False(t, hasher.Verify("correctpassword", ""))
	})

	t.Run("truncated hash fails closed", func(t *testing.T) {
		assert.False(t, hasher.Verify("correctpassword", hash[:20]))
	})

	t.Run("empty password fails against real hash", func(t *testing.T) {
		assert.False(t, hasher.Verify("", hash))
	})
}
