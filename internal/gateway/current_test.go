// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Personal Workstation Contributors

package gateway

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCurrentSession_EmptySlot(t *testing.T) {
	var c CurrentSession

	token, ok := c.Get()
	assert.False(t, ok)
	assert.Empty(t, token)
}

func TestCurrentSession_SetGet(t *testing.T) {
	var c CurrentSession

	c.Set("abc123")
	token, ok := c.Get()
	assert.True(t, ok)
	assert.Equal(t, "abc123", token)
}

func TestCurrentSession_SetReplaces(t *testing.T) {
	var c CurrentSession

	c.Set("first")
	c.Set("second")
	token, _ := c.Get()
	assert.Equal(t, "second", token)
}

func TestCurrentSession_Clear(t *testing.T) {
	var c CurrentSession

	c.Set("abc123")
	c.Clear()
	_, ok := c.Get()
	assert.False(t, ok)
}

func TestCurrentSession_SetEmptyIsClear(t *testing.T) {
	var c CurrentSession

	c.Set("abc123")
	c.Set("")
	_, ok := c.Get()
	assert.False(t, ok)
}

// The slot must be safe for concurrent access; the race detector is the
// real assertion here.
func TestCurrentSession_Concurrent(t *testing.T) {
	var c CurrentSession
	var wg sync.WaitGroup

	for range 10 {
		wg.Add(3)
		go func() {
			defer wg.Done()
			c.Set("token")
		}()
		go func() {
			defer wg.Done()
			c.Get()
		}()
		go func() {
			defer wg.Done()
			c.Clear()
		}()
	}
	wg.Wait()
}
