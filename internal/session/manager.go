// Package session owns the client's identity state: the bearer token,
// the current user, and the anonymous/authenticated state machine.
package session

import (
	"context"
	"errors"
	"sync"

	"go.uber.org/zap"

	"github.com/chemviz/chemviz/internal/api"
)

// API defines the service operations the manager needs. *api.Client
// satisfies it.
type API interface {
	// Login exchanges credentials for a bearer token.
	Login(ctx context.Context, username, password string) (string, error)
	// Profile fetches the identity for an explicit token.
	Profile(ctx context.Context, token string) (api.User, error)
	// Register creates an account without establishing a session.
	Register(ctx context.Context, username, password, email string) (api.RegisterResponse, error)
	// RequestPasswordReset triggers the out-of-band reset flow.
	RequestPasswordReset(ctx context.Context, email string) (api.ResetResponse, error)
	// SetToken updates the token used by data-plane requests.
	SetToken(token string)
}

// State is the session lifecycle state.
type State int

const (
	// StateUninitialized means Initialize has not run yet.
	StateUninitialized State = iota
	// StateLoading means the startup token verification is in flight.
	StateLoading
	// StateAnonymous means no verified identity is present.
	StateAnonymous
	// StateAuthenticated means token and user are present and the token
	// was verified in this process lifetime.
	StateAuthenticated
)

func (s State) String() string {
	switch s {
	case StateUninitialized:
		return "uninitialized"
	case StateLoading:
		return "loading"
	case StateAnonymous:
		return "anonymous"
	case StateAuthenticated:
		return "authenticated"
	}
	return "unknown"
}

// ErrSuperseded is returned when an identity operation resolved after a
// newer operation (such as logout) already took over the session state.
// Its result was discarded.
var ErrSuperseded = errors.New("session: operation superseded")

// Manager is the single source of truth for identity and the bearer
// token. Identity-mutating operations carry a generation counter: a
// result is applied only if no newer operation started in the meantime,
// so a logout issued while a verify is in flight always wins.
type Manager struct {
	api   API
	store TokenStore
	log   *zap.Logger

	mu    sync.Mutex
	gen   uint64
	state State
	token string
	user  *api.User
}

// NewManager constructs a Manager. log may be nil.
func NewManager(client API, store TokenStore, log *zap.Logger) *Manager {
	if log == nil {
		log = zap.NewNop()
	}
	return &Manager{
		api:   client,
		store: store,
		log:   log,
		state: StateUninitialized,
	}
}

// begin starts a new identity-mutating operation, invalidating the
// results of all operations still in flight. Returns the operation's
// generation.
func (m *Manager) begin(state State) uint64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.gen++
	m.state = state
	return m.gen
}

// commit applies an operation's result unless a newer operation has
// superseded it. Reports whether the result was applied. The client
// token is updated under the same lock so it never diverges from the
// manager's token.
func (m *Manager) commit(gen uint64, state State, token string, user *api.User) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	if gen != m.gen {
		return false
	}
	m.state = state
	m.token = token
	m.user = user
	m.api.SetToken(token)
	return true
}

// reconcileStore rewrites durable storage from the current in-memory
// token. Called when an operation discovers it was superseded after
// already touching the store: its write may have landed after the
// superseding operation's, so the store is brought back in line with
// the authoritative state.
func (m *Manager) reconcileStore() {
	m.mu.Lock()
	token := m.token
	m.mu.Unlock()

	var err error
	if token == "" {
		err = m.store.Clear()
	} else {
		err = m.store.Save(token)
	}
	if err != nil {
		m.log.Warn("reconciling persisted token", zap.Error(err))
	}
}

// Initialize runs once at startup: it loads the persisted token and, if
// one exists, verifies it against the service. It never returns an
// error; verification failure degrades silently to the anonymous state.
// The loading state is guaranteed to resolve on every exit path.
func (m *Manager) Initialize(ctx context.Context) {
	gen := m.begin(StateLoading)

	token, err := m.store.Load()
	if err != nil {
		m.log.Warn("reading persisted token", zap.Error(err))
	}
	if token == "" {
		m.commit(gen, StateAnonymous, "", nil)
		return
	}
	m.verify(ctx, gen, token)
}

// verify checks token against the profile endpoint. On success the
// session becomes authenticated; on any failure the token is cleared
// from memory and durable storage together. Failures are logged, never
// surfaced.
func (m *Manager) verify(ctx context.Context, gen uint64, token string) {
	user, err := m.api.Profile(ctx, token)
	if err != nil {
		m.log.Info("token verification failed", zap.Error(err))
		if m.commit(gen, StateAnonymous, "", nil) {
			if err := m.store.Clear(); err != nil {
				m.log.Warn("clearing persisted token", zap.Error(err))
			}
		}
		return
	}
	m.commit(gen, StateAuthenticated, token, &user)
}

// Login exchanges credentials for a token, persists it, and hydrates
// the user via a profile fetch. Rejected credentials surface as
// *api.AuthError. If the profile fetch fails after a successful
// exchange, the token is retained and the session stays anonymous;
// the next Initialize resolves it.
func (m *Manager) Login(ctx context.Context, username, password string) error {
	gen := m.begin(StateAnonymous)

	token, err := m.api.Login(ctx, username, password)
	if err != nil {
		return err
	}

	// The token is persisted before hydration so a crash between the
	// two steps does not lose the credential.
	applied := func() bool {
		m.mu.Lock()
		defer m.mu.Unlock()
		if gen != m.gen {
			return false
		}
		m.token = token
		m.api.SetToken(token)
		return true
	}()
	if !applied {
		return ErrSuperseded
	}
	if err := m.store.Save(token); err != nil {
		m.log.Warn("persisting token", zap.Error(err))
	}

	// A logout that interleaved with the save had its Clear overwritten
	// by the Save above; detect that and rewrite the store from the
	// authoritative state before giving up.
	superseded := func() bool {
		m.mu.Lock()
		defer m.mu.Unlock()
		return gen != m.gen
	}()
	if superseded {
		m.reconcileStore()
		return ErrSuperseded
	}

	user, err := m.api.Profile(ctx, token)
	if err != nil {
		m.log.Warn("profile fetch after login failed", zap.Error(err))
		if !m.commit(gen, StateAnonymous, token, nil) {
			return ErrSuperseded
		}
		return nil
	}
	if !m.commit(gen, StateAuthenticated, token, &user) {
		return ErrSuperseded
	}
	m.log.Info("logged in", zap.String("username", user.Username))
	return nil
}

// Register creates an account. It does not log the user in.
func (m *Manager) Register(ctx context.Context, username, password, email string) (api.RegisterResponse, error) {
	return m.api.Register(ctx, username, password, email)
}

// RequestPasswordReset triggers the reset flow for email. Rate limiting
// of repeated submissions is the caller's concern.
func (m *Manager) RequestPasswordReset(ctx context.Context, email string) (api.ResetResponse, error) {
	return m.api.RequestPasswordReset(ctx, email)
}

// Logout clears the persisted token and all in-memory identity state.
// It is synchronous, idempotent, and makes no network call. Results of
// in-flight identity operations are discarded.
func (m *Manager) Logout() {
	m.mu.Lock()
	m.gen++
	m.state = StateAnonymous
	m.token = ""
	m.user = nil
	m.api.SetToken("")
	m.mu.Unlock()

	if err := m.store.Clear(); err != nil {
		m.log.Warn("clearing persisted token", zap.Error(err))
	}
}

// State returns the current lifecycle state.
func (m *Manager) State() State {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state
}

// IsAuthenticated reports whether a verified identity is present.
func (m *Manager) IsAuthenticated() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state == StateAuthenticated && m.token != "" && m.user != nil
}

// Loading reports whether the startup verification is still in flight.
func (m *Manager) Loading() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state == StateLoading
}

// Token returns the current bearer token, or an empty string.
func (m *Manager) Token() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.token
}

// User returns a copy of the current user, or nil when anonymous.
func (m *Manager) User() *api.User {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.user == nil {
		return nil
	}
	u := *m.user
	return &u
}
