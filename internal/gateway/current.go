// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Personal Workstation Contributors

package gateway

import "sync"

// CurrentSession is the single in-memory slot for the active session token.
// Privileged operations capture the token once at entry and use the
// captured value throughout. The mutex guarantees memory safety, not
// freedom from logical races with a concurrent logout; capture-once is the
// mitigation for those.
type CurrentSession struct {
	mu    sync.Mutex
	token string
}

// Get returns the stored token. ok is false when the slot is empty.
func (c *CurrentSession) Get() (token string, ok bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.token, c.token != ""
}

// Set stores token as the active session.
func (c *CurrentSession) Set(token string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.token = token
}

// Clear empties the slot.
func (c *CurrentSession) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.token = ""
}
