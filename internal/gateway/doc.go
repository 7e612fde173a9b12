// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Personal Workstation Contributors

// Package gateway is the in-process boundary in front of the auth service.
// It converts service errors into typed results, owns the single
// active-session slot, and records call metrics. Nothing here is exposed
// over a wire protocol.
package gateway
