// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Personal Workstation Contributors

package auth_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lixiaoblack/personal-workstation-sub002/internal/auth"
	"github.com/lixiaoblack/personal-workstation-sub002/pkg/errutil"
)

func TestNewSession(t *testing.T) {
	t.Run("creates session with fresh token and fixed TTL", func(t *testing.T) {
		before := time.Now()
		session, err := auth.NewSession(42)
		require.NoError(t, err)

		assert.Len(t, session.Token, 64) // 32 bytes hex-encoded
		assert.Equal(t, int64(42), session.UserID)
		assert.WithinDuration(t, before.Add(auth.SessionTTL), session.ExpiresAt, 5*time.Second)
		assert.WithinDuration(t, before, session.CreatedAt, 5*time.Second)
	})

	t.Run("each session gets its own token", func(t *testing.T) {
		s1, err := auth.NewSession(42)
		require.NoError(t, err)
		s2, err := auth.NewSession(42)
		require.NoError(t, err)
		assert.NotEqual(t, s1.Token, s2.Token)
	})

	t.Run("rejects non-positive user ID", func(t *testing.T) {
		for _, id := range []int64{0, -1} {
			_, err := auth.NewSession(id)
			require.Error(t, err)
			errutil.AssertErrorCode(t, err, "SESSION_INVALID_USER")
		}
	})
}

func TestSession_IsExpiredAt(t *testing.T) {
	session, err := auth.NewSession(42)
	require.NoError(t, err)

	t.Run("fresh session is live", func(t *testing.T) {
		assert.False(t, session.IsExpiredAt(time.Now()))
		assert.False(t, session.IsExpired())
	})

	t.Run("expired after the deadline", func(t *testing.T) {
		assert.True(t, session.IsExpiredAt(session.ExpiresAt.Add(time.Nanosecond)))
	})

	t.Run("live exactly at the deadline", func(t *testing.T) {
		assert.False(t, session.IsExpiredAt(session.ExpiresAt))
	})
}
