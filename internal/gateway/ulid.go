// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Personal Workstation Contributors

package gateway

import (
	"crypto/rand"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"
)

var (
	entropy     = ulid.Monotonic(rand.Reader, 0)
	entropyLock sync.Mutex
)

// newCallID generates a ULID correlating all log lines of one gateway call.
func newCallID() string {
	entropyLock.Lock()
	defer entropyLock.Unlock()
	return ulid.MustNew(ulid.Timestamp(time.Now()), entropy).String()
}
