// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Personal Workstation Contributors

// Package auth implements the authentication and session lifecycle core:
// durable user accounts, opaque session tokens, and the operations that
// connect them.
//
// # Domain Types
//
// Domain types (User, Session) should be created using their constructors:
//   - NewUser - creates a User with a validated username and password hash
//   - NewSession - creates a Session with a fresh token and fixed expiry
//
// Direct struct initialization bypasses validation and may create invalid
// state. Repository implementations receive pre-validated types from these
// constructors.
//
// # Service
//
// Service orchestrates registration, login, logout, token validation,
// profile updates, and password changes. Register inserts the user and its
// first session in one transaction; password changes re-hash the credential
// and purge every session for the user in one transaction, forcing
// re-authentication on all devices.
//
// Session expiry is lazy: GetByToken never returns an expired row, and
// expired rows are garbage-collected opportunistically at the start of
// login and token validation rather than on a timer.
package auth
