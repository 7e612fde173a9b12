// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Personal Workstation Contributors

package gateway

import (
	"context"
	"log/slog"

	"github.com/samber/oops"

	"github.com/lixiaoblack/personal-workstation-sub002/internal/auth"
	"github.com/lixiaoblack/personal-workstation-sub002/internal/observability"
	"github.com/lixiaoblack/personal-workstation-sub002/pkg/errutil"
)

// AuthService is the slice of the auth service the gateway drives.
type AuthService interface {
	Register(ctx context.Context, username, password string, nickname *string) (*auth.User, string, error)
	Login(ctx context.Context, username, password string) (*auth.User, string, error)
	Logout(ctx context.Context, token string) error
	ValidateToken(ctx context.Context, token string) (*auth.User, error)
	UpdateProfile(ctx context.Context, userID int64, upd auth.ProfileUpdate) (*auth.User, error)
	UpdatePassword(ctx context.Context, userID int64, oldPassword, newPassword string) error
	ResetPassword(ctx context.Context, username, newPassword string) error
	IsInitialized(ctx context.Context) (bool, error)
	CheckUsernameExists(ctx context.Context, username string) (bool, error)
}

var _ AuthService = (*auth.Service)(nil)

// AuthResult reports the outcome of an operation that yields a user and,
// on register or login, a session token. Code and Message are set only on
// failure; the user never carries a password hash.
type AuthResult struct {
	Success bool
	Code    string
	Message string
	User    *auth.User
	Token   string
}

// SessionState reports whether a token resolves to a live session. Not
// being authenticated is a state, never a failure code.
type SessionState struct {
	Authenticated bool
	User          *auth.User
}

// Result reports success or a coded failure for operations with no payload.
type Result struct {
	Success bool
	Code    string
	Message string
}

// BoolResult carries a yes/no answer or the failure preventing one.
type BoolResult struct {
	Success bool
	Code    string
	Message string
	Value   bool
}

// Gateway converts auth service calls into typed results for the embedding
// caller. It owns the active-session slot and never lets a store error
// escape raw.
type Gateway struct {
	service AuthService
	metrics *observability.Metrics
	current *CurrentSession
	logger  *slog.Logger
}

// New creates a Gateway with the default logger.
func New(service AuthService, metrics *observability.Metrics) (*Gateway, error) {
	return NewWithLogger(service, metrics, slog.Default())
}

// NewWithLogger creates a Gateway with an explicit logger.
func NewWithLogger(service AuthService, metrics *observability.Metrics, logger *slog.Logger) (*Gateway, error) {
	if service == nil {
		return nil, oops.Errorf("auth service is required")
	}
	if metrics == nil {
		return nil, oops.Errorf("metrics are required")
	}
	if logger == nil {
		return nil, oops.Errorf("logger is required")
	}
	return &Gateway{
		service: service,
		metrics: metrics,
		current: &CurrentSession{},
		logger:  logger,
	}, nil
}

// Current returns the active-session slot.
func (g *Gateway) Current() *CurrentSession {
	return g.current
}

// Register creates an account, stores its first session token in the slot,
// and returns the new user.
func (g *Gateway) Register(ctx context.Context, username, password string, nickname *string) AuthResult {
	log := g.opLogger("register")

	user, token, err := g.service.Register(ctx, username, password, nickname)
	if err != nil {
		code, message := failure(err)
		g.metrics.RegistrationsTotal.WithLabelValues(registerOutcome(code)).Inc()
		errutil.LogError(log, "registration failed", err)
		return AuthResult{Code: code, Message: message}
	}

	g.metrics.RegistrationsTotal.WithLabelValues("success").Inc()
	g.metrics.SessionsIssuedTotal.Inc()
	g.current.Set(token)
	log.Info("user registered", "user_id", user.ID, "username", user.Username)
	return AuthResult{Success: true, User: user, Token: token}
}

// Login authenticates credentials and stores the new session token in the
// slot. The remember flag is accepted for callers that send it, but the
// session lifetime is fixed and does not change with it.
func (g *Gateway) Login(ctx context.Context, username, password string, remember bool) AuthResult {
	log := g.opLogger("login")
	if remember {
		log.Debug("remember flag set, session lifetime is fixed")
	}

	user, token, err := g.service.Login(ctx, username, password)
	if err != nil {
		code, message := failure(err)
		g.metrics.LoginsTotal.WithLabelValues(loginOutcome(code)).Inc()
		errutil.LogError(log, "login failed", err)
		return AuthResult{Code: code, Message: message}
	}

	g.metrics.LoginsTotal.WithLabelValues("success").Inc()
	g.metrics.SessionsIssuedTotal.Inc()
	g.current.Set(token)
	log.Info("user logged in", "user_id", user.ID, "username", user.Username)
	return AuthResult{Success: true, User: user, Token: token}
}

// Logout deletes the captured session and always clears the slot, even
// when the store delete fails. Logging out without a session succeeds.
func (g *Gateway) Logout(ctx context.Context) Result {
	log := g.opLogger("logout")

	token, ok := g.current.Get()
	g.current.Clear()
	if !ok {
		return Result{Success: true}
	}

	if err := g.service.Logout(ctx, token); err != nil {
		code, message := failure(err)
		errutil.LogError(log, "logout failed", err)
		return Result{Code: code, Message: message}
	}

	log.Info("user logged out")
	return Result{Success: true}
}

// GetCurrentUser resolves the captured token. A stale slot yields an
// unauthenticated state and is left in place.
func (g *Gateway) GetCurrentUser(ctx context.Context) SessionState {
	log := g.opLogger("get_current_user")

	token, ok := g.current.Get()
	if !ok {
		g.metrics.TokenValidationsTotal.WithLabelValues("invalid").Inc()
		return SessionState{}
	}

	user, err := g.service.ValidateToken(ctx, token)
	if err != nil {
		g.metrics.TokenValidationsTotal.WithLabelValues("error").Inc()
		errutil.LogError(log, "session lookup failed", err)
		return SessionState{}
	}
	if user == nil {
		g.metrics.TokenValidationsTotal.WithLabelValues("invalid").Inc()
		return SessionState{}
	}

	g.metrics.TokenValidationsTotal.WithLabelValues("valid").Inc()
	log.Debug("session resolved", "user_id", user.ID)
	return SessionState{Authenticated: true, User: user}
}

// ValidateToken checks an explicit token, for callers restoring a session
// they persisted themselves. A valid token becomes the captured session;
// an invalid one leaves the slot untouched.
func (g *Gateway) ValidateToken(ctx context.Context, token string) SessionState {
	log := g.opLogger("validate_token")

	user, err := g.service.ValidateToken(ctx, token)
	if err != nil {
		g.metrics.TokenValidationsTotal.WithLabelValues("error").Inc()
		errutil.LogError(log, "token validation failed", err)
		return SessionState{}
	}
	if user == nil {
		g.metrics.TokenValidationsTotal.WithLabelValues("invalid").Inc()
		return SessionState{}
	}

	g.metrics.TokenValidationsTotal.WithLabelValues("valid").Inc()
	g.current.Set(token)
	log.Debug("token validated", "user_id", user.ID)
	return SessionState{Authenticated: true, User: user}
}

// UpdateProfile applies a partial profile update to the captured session's
// user. Sessions are untouched; the slot is never cleared here.
func (g *Gateway) UpdateProfile(ctx context.Context, upd auth.ProfileUpdate) AuthResult {
	log := g.opLogger("update_profile")

	user, ok := g.authenticatedUser(ctx, log)
	if !ok {
		return AuthResult{Code: "NOT_AUTHENTICATED", Message: "not authenticated"}
	}

	updated, err := g.service.UpdateProfile(ctx, user.ID, upd)
	if err != nil {
		code, message := failure(err)
		errutil.LogError(log, "profile update failed", err)
		return AuthResult{Code: code, Message: message}
	}

	log.Info("profile updated", "user_id", updated.ID)
	return AuthResult{Success: true, User: updated}
}

// UpdatePassword changes the captured session's password and clears the
// slot on success: the change revokes every session, this one included.
func (g *Gateway) UpdatePassword(ctx context.Context, oldPassword, newPassword string) Result {
	log := g.opLogger("update_password")

	user, ok := g.authenticatedUser(ctx, log)
	if !ok {
		return Result{Code: "NOT_AUTHENTICATED", Message: "not authenticated"}
	}

	if err := g.service.UpdatePassword(ctx, user.ID, oldPassword, newPassword); err != nil {
		code, message := failure(err)
		errutil.LogError(log, "password update failed", err)
		return Result{Code: code, Message: message}
	}

	g.current.Clear()
	log.Info("password updated", "user_id", user.ID)
	return Result{Success: true}
}

// ResetPassword replaces a password by username without the old one (the
// forgot-password flow). The slot is untouched: the caller may well be
// resetting an account other than the one in the slot.
func (g *Gateway) ResetPassword(ctx context.Context, username, newPassword string) Result {
	log := g.opLogger("reset_password")

	if err := g.service.ResetPassword(ctx, username, newPassword); err != nil {
		code, message := failure(err)
		errutil.LogError(log, "password reset failed", err)
		return Result{Code: code, Message: message}
	}

	log.Info("password reset", "username", username)
	return Result{Success: true}
}

// IsInitialized reports whether any account exists yet.
func (g *Gateway) IsInitialized(ctx context.Context) BoolResult {
	log := g.opLogger("is_initialized")

	initialized, err := g.service.IsInitialized(ctx)
	if err != nil {
		code, message := failure(err)
		errutil.LogError(log, "initialization check failed", err)
		return BoolResult{Code: code, Message: message}
	}
	return BoolResult{Success: true, Value: initialized}
}

// CheckUsernameExists reports whether a username is taken.
func (g *Gateway) CheckUsernameExists(ctx context.Context, username string) BoolResult {
	log := g.opLogger("check_username_exists")

	exists, err := g.service.CheckUsernameExists(ctx, username)
	if err != nil {
		code, message := failure(err)
		errutil.LogError(log, "username check failed", err)
		return BoolResult{Code: code, Message: message}
	}
	return BoolResult{Success: true, Value: exists}
}

// authenticatedUser resolves the captured token once at entry. ok is false
// when the slot is empty, the token is stale, or the lookup failed; the
// slot is left as-is in every one of those cases.
func (g *Gateway) authenticatedUser(ctx context.Context, log *slog.Logger) (*auth.User, bool) {
	token, ok := g.current.Get()
	if !ok {
		return nil, false
	}

	user, err := g.service.ValidateToken(ctx, token)
	if err != nil {
		errutil.LogError(log, "session lookup failed", err)
		return nil, false
	}
	if user == nil {
		return nil, false
	}
	return user, true
}

// opLogger returns a logger scoped to one gateway call.
func (g *Gateway) opLogger(op string) *slog.Logger {
	return g.logger.With("call_id", newCallID(), "op", op)
}

// validationMessages maps failure codes to canonical user-facing text.
var validationMessages = map[string]string{
	"AUTH_DUPLICATE_USERNAME":  "username is already taken",
	"AUTH_USER_NOT_FOUND":      "no account with that username",
	"AUTH_INVALID_CREDENTIALS": "incorrect password",
	"AUTH_WRONG_OLD_PASSWORD":  "old password does not match",
}

// passthroughCodes are validation failures whose own message is already
// user-facing.
var passthroughCodes = map[string]bool{
	"AUTH_INVALID_USERNAME": true,
	"AUTH_EMPTY_PASSWORD":   true,
}

// failure converts a service error into a stable code and a user-facing
// message. Internal failures keep their code for operators but show a
// generic message.
func failure(err error) (code, message string) {
	code = "AUTH_INTERNAL"
	oopsErr, ok := oops.AsOops(err)
	if ok && oopsErr.Code() != "" {
		code = oopsErr.Code()
	}
	if msg, ok := validationMessages[code]; ok {
		return code, msg
	}
	if passthroughCodes[code] {
		return code, err.Error()
	}
	return code, "internal error, please try again"
}

// loginOutcome maps a login failure code to its metric label.
func loginOutcome(code string) string {
	switch code {
	case "AUTH_USER_NOT_FOUND":
		return "unknown_user"
	case "AUTH_INVALID_CREDENTIALS":
		return "bad_password"
	default:
		return "error"
	}
}

// registerOutcome maps a registration failure code to its metric label.
func registerOutcome(code string) string {
	switch code {
	case "AUTH_DUPLICATE_USERNAME":
		return "duplicate_username"
	case "AUTH_INVALID_USERNAME", "AUTH_EMPTY_PASSWORD":
		return "rejected"
	default:
		return "error"
	}
}
