// Package session owns the authenticated identity of the CLI and console.
//
// The Manager is the only writer of the bearer credential. It validates a
// persisted token at start-up, exchanges credentials for a new one, and
// drops everything when the server answers 401 to any request.
package session

import (
	"context"
	"encoding/hex"
	stderrors "errors"
	"sync"

	"github.com/zeebo/blake3"

	"github.com/richmansdream/crmdesk/internal/api"
	"github.com/richmansdream/crmdesk/internal/errors"
	"github.com/richmansdream/crmdesk/internal/log"
	"github.com/richmansdream/crmdesk/internal/model"
)

// LoginFailedMessage is reported when the server gave no usable message
const LoginFailedMessage = "Login failed"

// State is the lifecycle state of a session
type State int

const (
	StateUninitialized State = iota
	StateValidating
	StateAuthenticated
	StateAnonymous
)

// String returns the lowercase state name
func (s State) String() string {
	switch s {
	case StateValidating:
		return "validating"
	case StateAuthenticated:
		return "authenticated"
	case StateAnonymous:
		return "anonymous"
	default:
		return "uninitialized"
	}
}

// Authenticator is the subset of the API client the manager needs.
// *api.Client implements it.
type Authenticator interface {
	Login(ctx context.Context, email, password string) (*api.LoginResponse, error)
	WhoAmI(ctx context.Context, credential string) (*model.User, error)
	Logout(ctx context.Context, credential string) error
	OnUnauthorized(h api.UnauthorizedHandler)
}

// Snapshot is a copy of the session state
type Snapshot struct {
	State   State
	User    *model.User
	Loading bool
}

// Authenticated reports whether a server-accepted identity is held
func (s Snapshot) Authenticated() bool {
	return s.User != nil
}

// Result is the outcome of a login attempt
type Result struct {
	Success bool
	// Error is the human-readable failure message
	Error   string
	// Err carries the coded cause of a failure
	Err     error
}

// Observer is notified with a fresh snapshot after every state change
type Observer func(Snapshot)

// Manager holds the session state
type Manager struct {
	auth   Authenticator
	store  TokenStore
	key    string
	logger *log.Logger

	mu        sync.Mutex
	state     State
	user      *model.User
	token     string
	inflight  int
	observers []Observer
}

// Option configures a Manager
type Option func(*Manager)

// WithLogger sets the manager logger
func WithLogger(l *log.Logger) Option {
	return func(m *Manager) {
		if l != nil {
			m.logger = l
		}
	}
}

// WithKey overrides the storage key (TokenKey by default)
func WithKey(key string) Option {
	return func(m *Manager) {
		if key != "" {
			m.key = key
		}
	}
}

// NewManager creates a manager and registers its 401 handler on auth
func NewManager(auth Authenticator, store TokenStore, opts ...Option) *Manager {
	m := &Manager{
		auth:   auth,
		store:  store,
		key:    TokenKey,
		logger: log.Discard(),
		state:  StateUninitialized,
	}
	for _, opt := range opts {
		opt(m)
	}
	auth.OnUnauthorized(m.handleUnauthorized)
	return m
}

// OnChange registers an observer of state changes
func (m *Manager) OnChange(o Observer) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.observers = append(m.observers, o)
}

// Snapshot returns the current state
func (m *Manager) Snapshot() Snapshot {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.snapshotLocked()
}

// User returns the current identity, nil when anonymous
func (m *Manager) User() *model.User {
	return m.Snapshot().User
}

// Credential returns the active bearer token, "" when anonymous
func (m *Manager) Credential() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.token
}

func (m *Manager) snapshotLocked() Snapshot {
	var user *model.User
	if m.user != nil {
		u := *m.user
		user = &u
	}
	return Snapshot{
		State:   m.state,
		User:    user,
		Loading: m.state == StateValidating || m.inflight > 0,
	}
}

// update applies fn under the lock and then notifies observers
func (m *Manager) update(fn func()) {
	m.mu.Lock()
	fn()
	snap := m.snapshotLocked()
	observers := make([]Observer, len(m.observers))
	copy(observers, m.observers)
	m.mu.Unlock()

	for _, o := range observers {
		o(snap)
	}
}

// Initialize validates a persisted token, if any. It runs once; later calls
// return the current snapshot unchanged.
func (m *Manager) Initialize(ctx context.Context) Snapshot {
	m.mu.Lock()
	if m.state != StateUninitialized {
		snap := m.snapshotLocked()
		m.mu.Unlock()
		return snap
	}
	m.mu.Unlock()

	m.update(func() { m.state = StateValidating })

	token, err := m.store.Get(ctx, m.key)
	if err != nil {
		if !stderrors.Is(err, ErrTokenNotFound) {
			m.logger.WithError(err).Warn("failed to read stored token")
		}
		m.update(func() { m.state = StateAnonymous })
		return m.Snapshot()
	}

	user, err := m.auth.WhoAmI(ctx, token)
	if err != nil {
		m.logger.WithError(err).Info("stored token rejected", "token", Fingerprint(token))
		if derr := m.store.Delete(ctx, m.key); derr != nil {
			m.logger.WithError(derr).Warn("failed to remove stored token")
		}
		m.update(func() {
			m.state = StateAnonymous
			m.user = nil
			m.token = ""
		})
		return m.Snapshot()
	}

	m.logger.Debug("session restored", "user_id", user.ID, "token", Fingerprint(token))
	m.update(func() {
		m.state = StateAuthenticated
		m.user = user
		m.token = token
	})
	return m.Snapshot()
}

func (m *Manager) ready() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state == StateAuthenticated || m.state == StateAnonymous
}

func (m *Manager) begin() {
	m.update(func() { m.inflight++ })
}

func (m *Manager) end(fn func()) {
	m.update(func() {
		if fn != nil {
			fn()
		}
		m.inflight--
	})
}

// Login exchanges credentials for a token. On failure nothing about the
// current session changes apart from what a 401 clears.
func (m *Manager) Login(ctx context.Context, email, password string) Result {
	if !m.ready() {
		err := errors.NewSessionNotReadyError()
		return Result{Error: err.Message, Err: err}
	}
	if email == "" || password == "" {
		err := errors.NewInvalidCredentialsError()
		return Result{Error: err.Message, Err: err}
	}

	m.begin()

	resp, err := m.auth.Login(ctx, email, password)
	if err != nil {
		msg := api.ServerMessage(err)
		if msg == "" {
			msg = LoginFailedMessage
		}
		m.logger.WithError(err).Info("login failed", "email", email)
		m.end(nil)
		return Result{Error: msg, Err: err}
	}

	if resp.User == nil {
		user, err := m.auth.WhoAmI(ctx, resp.Token)
		if err != nil {
			m.logger.WithError(err).Info("login returned a token that cannot be resolved", "token", Fingerprint(resp.Token))
			m.end(nil)
			return Result{Error: LoginFailedMessage, Err: err}
		}
		resp.User = user
	}

	prior := m.Credential()
	if err := m.store.Set(ctx, m.key, resp.Token); err != nil {
		m.rollbackStore(ctx, prior)
		storeErr := errors.NewTokenStoreError("write", err)
		m.logger.WithError(storeErr).Error("failed to persist token")
		m.end(nil)
		return Result{Error: LoginFailedMessage, Err: storeErr}
	}

	m.logger.Info("logged in", "user_id", resp.User.ID, "token", Fingerprint(resp.Token))
	user := *resp.User
	m.end(func() {
		m.state = StateAuthenticated
		m.user = &user
		m.token = resp.Token
	})
	return Result{Success: true}
}

// Logout notifies the server and clears the session whatever it answers.
// The only error returned is for a manager that has not been initialized.
func (m *Manager) Logout(ctx context.Context) error {
	if !m.ready() {
		return errors.NewSessionNotReadyError()
	}

	m.begin()
	token := m.Credential()
	if token != "" {
		if err := m.auth.Logout(ctx, token); err != nil {
			m.logger.WithError(err).Warn("logout request failed", "token", Fingerprint(token))
		}
	}

	m.clearStore(ctx)
	m.end(m.clearLocked)
	m.logger.Info("logged out")
	return nil
}

// handleUnauthorized runs for every 401 answered to any request
func (m *Manager) handleUnauthorized(ctx context.Context, credential string) {
	m.logger.Info("credential rejected, clearing session", "token", Fingerprint(credential))
	m.clearStore(ctx)
	m.update(m.clearLocked)
}

// rollbackStore puts back the token held before a failed write, or removes
// the entry when there was none.
func (m *Manager) rollbackStore(ctx context.Context, prior string) {
	var err error
	if prior != "" {
		err = m.store.Set(ctx, m.key, prior)
	} else {
		err = m.store.Delete(ctx, m.key)
	}
	if err != nil {
		m.logger.WithError(err).Warn("failed to roll back stored token")
	}
}

func (m *Manager) clearStore(ctx context.Context) {
	if err := m.store.Delete(context.WithoutCancel(ctx), m.key); err != nil {
		m.logger.WithError(errors.NewTokenStoreError("delete", err)).Warn("failed to remove stored token")
	}
}

func (m *Manager) clearLocked() {
	m.user = nil
	m.token = ""
	if m.state == StateAuthenticated {
		m.state = StateAnonymous
	}
}

// Fingerprint returns a short, non-reversible identifier for a token so
// logs can correlate sessions without exposing the credential.
func Fingerprint(token string) string {
	if token == "" {
		return ""
	}
	sum := blake3.Sum256([]byte(token))
	return hex.EncodeToString(sum[:6])
}
