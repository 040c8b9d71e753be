// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package session

import (
	"context"
	"sync"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/jeranaias/parley-tui/internal/model"
)

// =============================================================================
// ERRORS
// =============================================================================

// SessionError represents a session-level error.
type SessionError struct {
	Message string
}

// Error implements the error interface.
func (e *SessionError) Error() string {
	return e.Message
}

// Is implements errors.Is support for comparing session errors.
func (e *SessionError) Is(target error) bool {
	t, ok := target.(*SessionError)
	if !ok {
		return false
	}
	return e.Message == t.Message
}

// ErrNotAuthenticated is returned when an operation requires a signed-in
// user and there is none.
var ErrNotAuthenticated = &SessionError{Message: "not authenticated"}

// ErrAlreadyAuthenticated is returned when Login is called while a user
// is already signed in.
var ErrAlreadyAuthenticated = &SessionError{Message: "already authenticated"}

// =============================================================================
// AUTHENTICATOR
// =============================================================================

// Authenticator exchanges credentials for a user identity and bearer
// token. Implemented by the API client.
type Authenticator interface {
	// Login authenticates with email and password.
	Login(ctx context.Context, email, password string) (*model.User, string, error)

	// LoginWithGoogle authenticates with a Google OAuth authorization code.
	LoginWithGoogle(ctx context.Context, code string) (*model.User, string, error)
}

// =============================================================================
// CONFIGURATION
// =============================================================================

// Config holds configuration for the session store.
type Config struct {
	// Timeout is the inactivity duration before automatic sign-out
	// (default: 15 minutes)
	Timeout time.Duration

	// WarningBefore is how long before sign-out to warn (default: 2 minutes)
	WarningBefore time.Duration
}

// DefaultConfig returns the default session configuration.
func DefaultConfig() Config {
	return Config{
		Timeout:       15 * time.Minute,
		WarningBefore: 2 * time.Minute,
	}
}

// =============================================================================
// SESSION STORE
// =============================================================================

// Store tracks the authenticated user and the inactivity timeout.
// All methods are safe for concurrent use.
type Store struct {
	mu sync.Mutex

	auth  Authenticator
	user  *model.User
	token string

	// Activity tracking
	startTime    time.Time
	lastActivity time.Time

	// Timeout configuration
	timeout       time.Duration
	warningBefore time.Duration
	warningShown  bool

	// Callbacks
	onLogout    []func()
	subscribers map[string]func(*model.User)

	logger *zap.Logger
}

// NewStore creates a session store. The authenticator may be nil in
// tests that never sign in.
func NewStore(auth Authenticator, cfg Config, logger *zap.Logger) *Store {
	if logger == nil {
		logger = zap.NewNop()
	}
	now := time.Now()
	return &Store{
		auth:          auth,
		startTime:     now,
		lastActivity:  now,
		timeout:       cfg.Timeout,
		warningBefore: cfg.WarningBefore,
		subscribers:   make(map[string]func(*model.User)),
		logger:        logger,
	}
}

// =============================================================================
// AUTHENTICATION
// =============================================================================

// Login authenticates with email and password. On success the store
// holds the user and bearer token until Logout or inactivity sign-out.
func (s *Store) Login(ctx context.Context, email, password string) (*model.User, error) {
	s.mu.Lock()
	if s.user != nil {
		s.mu.Unlock()
		return nil, ErrAlreadyAuthenticated
	}
	auth := s.auth
	s.mu.Unlock()

	user, token, err := auth.Login(ctx, email, password)
	if err != nil {
		return nil, err
	}

	s.adopt(user, token)
	return user, nil
}

// LoginWithGoogle authenticates with a Google OAuth authorization code.
func (s *Store) LoginWithGoogle(ctx context.Context, code string) (*model.User, error) {
	s.mu.Lock()
	if s.user != nil {
		s.mu.Unlock()
		return nil, ErrAlreadyAuthenticated
	}
	auth := s.auth
	s.mu.Unlock()

	user, token, err := auth.LoginWithGoogle(ctx, code)
	if err != nil {
		return nil, err
	}

	s.adopt(user, token)
	return user, nil
}

// adopt installs a freshly authenticated identity.
func (s *Store) adopt(user *model.User, token string) {
	s.mu.Lock()
	s.user = user
	s.token = token
	s.lastActivity = time.Now()
	s.warningShown = false
	subs := s.subscriberListLocked()
	s.mu.Unlock()

	s.logger.Info("user signed in",
		zap.String("user_id", user.ID),
		zap.String("provider", string(user.Provider)))

	for _, fn := range subs {
		fn(user)
	}
}

// Logout clears the identity and runs the registered logout hooks
// (conversation wipe, notification clear). Logging out while signed out
// is a no-op.
func (s *Store) Logout() {
	s.mu.Lock()
	if s.user == nil {
		s.mu.Unlock()
		return
	}
	userID := s.user.ID
	s.user = nil
	s.token = ""
	s.warningShown = false
	hooks := append([]func(){}, s.onLogout...)
	subs := s.subscriberListLocked()
	s.mu.Unlock()

	s.logger.Info("user signed out", zap.String("user_id", userID))

	for _, fn := range hooks {
		fn()
	}
	for _, fn := range subs {
		fn(nil)
	}
}

// OnLogout registers a hook that runs after the identity is cleared.
func (s *Store) OnLogout(fn func()) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.onLogout = append(s.onLogout, fn)
}

// Subscribe registers a listener for identity changes. The listener
// receives the new user, or nil on sign-out.
func (s *Store) Subscribe(fn func(*model.User)) string {
	s.mu.Lock()
	defer s.mu.Unlock()

	token := uuid.NewString()
	s.subscribers[token] = fn
	return token
}

// Unsubscribe removes a listener. Unknown tokens are ignored.
func (s *Store) Unsubscribe(token string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.subscribers, token)
}

func (s *Store) subscriberListLocked() []func(*model.User) {
	subs := make([]func(*model.User), 0, len(s.subscribers))
	for _, fn := range s.subscribers {
		subs = append(subs, fn)
	}
	return subs
}

// =============================================================================
// IDENTITY READS
// =============================================================================

// CurrentUser returns a copy of the signed-in user, or nil.
func (s *Store) CurrentUser() *model.User {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.user == nil {
		return nil
	}
	u := *s.user
	return &u
}

// IsAuthenticated returns true if a user is signed in.
func (s *Store) IsAuthenticated() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.user != nil
}

// Token returns the bearer token for the current session, or
// ErrNotAuthenticated.
func (s *Store) Token() (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.user == nil {
		return "", ErrNotAuthenticated
	}
	return s.token, nil
}

// =============================================================================
// ACTIVITY TRACKING
// =============================================================================

// RecordActivity updates the last activity timestamp. Called on user
// input.
func (s *Store) RecordActivity() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.lastActivity = time.Now()
	s.warningShown = false
}

// IdleTime returns how long since last activity.
func (s *Store) IdleTime() time.Duration {
	s.mu.Lock()
	defer s.mu.Unlock()
	return time.Since(s.lastActivity)
}

// RemainingTime returns time until inactivity sign-out.
func (s *Store) RemainingTime() time.Duration {
	s.mu.Lock()
	defer s.mu.Unlock()
	remaining := s.timeout - time.Since(s.lastActivity)
	if remaining < 0 {
		return 0
	}
	return remaining
}

// IsExpired returns true if the session has been idle past the timeout.
func (s *Store) IsExpired() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return time.Since(s.lastActivity) >= s.timeout
}

// SetTimeout updates the inactivity timeout.
func (s *Store) SetTimeout(d time.Duration) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.timeout = d
}

// =============================================================================
// TIMEOUT CHECKING
// =============================================================================

// Check evaluates the inactivity state, fires the warning callback once
// per idle period, and signs the user out on expiry. Returns true while
// the session is still valid.
func (s *Store) Check(onWarning func(remaining time.Duration)) bool {
	s.mu.Lock()
	if s.user == nil {
		s.mu.Unlock()
		return true
	}

	idle := time.Since(s.lastActivity)
	expired := idle >= s.timeout

	shouldWarn := false
	var remaining time.Duration
	if !s.warningShown && !expired && idle >= s.timeout-s.warningBefore {
		shouldWarn = true
		remaining = s.timeout - idle
		s.warningShown = true
	}
	s.mu.Unlock()

	if shouldWarn && onWarning != nil {
		onWarning(remaining)
	}

	if expired {
		s.logger.Warn("session expired after inactivity",
			zap.Duration("idle", idle))
		s.Logout()
	}

	return !expired
}

// =============================================================================
// BUBBLE TEA INTEGRATION
// =============================================================================

// TickMsg is sent periodically to check session state.
type TickMsg struct {
	Time time.Time
}

// TimeoutWarningMsg indicates the session is about to sign out.
type TimeoutWarningMsg struct {
	Remaining time.Duration
}

// TimeoutMsg indicates the session was signed out for inactivity.
type TimeoutMsg struct{}

// TickCmd returns a command that ticks once per second.
func TickCmd() tea.Cmd {
	return tea.Tick(time.Second, func(t time.Time) tea.Msg {
		return TickMsg{Time: t}
	})
}

// HandleTick processes a tick and returns timeout-related messages.
func (s *Store) HandleTick() tea.Cmd {
	var cmds []tea.Cmd

	var warning *TimeoutWarningMsg
	valid := s.Check(func(remaining time.Duration) {
		warning = &TimeoutWarningMsg{Remaining: remaining}
	})

	if warning != nil {
		msg := *warning
		cmds = append(cmds, func() tea.Msg { return msg })
	}
	if !valid {
		cmds = append(cmds, func() tea.Msg { return TimeoutMsg{} })
	}

	cmds = append(cmds, TickCmd())
	return tea.Batch(cmds...)
}
