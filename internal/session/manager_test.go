package session

import (
	"context"
	"errors"
	"testing"

	"github.com/chemviz/chemviz/internal/api"
)

type fakeAPI struct {
	loginFunc   func(ctx context.Context, username, password string) (string, error)
	profileFunc func(ctx context.Context, token string) (api.User, error)

	profileCalls int
	lastSetToken string
	setTokenSeen bool
}

func (f *fakeAPI) Login(ctx context.Context, username, password string) (string, error) {
	if f.loginFunc == nil {
		return "", errors.New("unexpected Login call")
	}
	return f.loginFunc(ctx, username, password)
}

func (f *fakeAPI) Profile(ctx context.Context, token string) (api.User, error) {
	f.profileCalls++
	if f.profileFunc == nil {
		return api.User{}, errors.New("unexpected Profile call")
	}
	return f.profileFunc(ctx, token)
}

func (f *fakeAPI) Register(ctx context.Context, username, password, email string) (api.RegisterResponse, error) {
	return api.RegisterResponse{ID: 1, Username: username}, nil
}

func (f *fakeAPI) RequestPasswordReset(ctx context.Context, email string) (api.ResetResponse, error) {
	return api.ResetResponse{Message: "sent"}, nil
}

func (f *fakeAPI) SetToken(token string) {
	f.lastSetToken = token
	f.setTokenSeen = true
}

type memStore struct {
	token  string
	saves  int
	clears int
}

func (s *memStore) Load() (string, error) { return s.token, nil }

func (s *memStore) Save(token string) error {
	s.token = token
	s.saves++
	return nil
}

func (s *memStore) Clear() error {
	s.token = ""
	s.clears++
	return nil
}

func TestInitialize_NoStoredToken(t *testing.T) {
	f := &fakeAPI{}
	m := NewManager(f, &memStore{}, nil)

	m.Initialize(context.Background())

	if got := m.State(); got != StateAnonymous {
		t.Errorf("state = %v; want anonymous", got)
	}
	if m.IsAuthenticated() {
		t.Error("IsAuthenticated() = true; want false")
	}
	if f.profileCalls != 0 {
		t.Errorf("profile called %d times; want 0", f.profileCalls)
	}
}

func TestInitialize_ValidToken(t *testing.T) {
	f := &fakeAPI{
		profileFunc: func(ctx context.Context, token string) (api.User, error) {
			if token != "tok-123" {
				t.Errorf("verified token = %q; want %q", token, "tok-123")
			}
			return api.User{ID: 1, Username: "demo"}, nil
		},
	}
	m := NewManager(f, &memStore{token: "tok-123"}, nil)

	m.Initialize(context.Background())

	if !m.IsAuthenticated() {
		t.Fatal("IsAuthenticated() = false; want true")
	}
	if got := m.Token(); got != "tok-123" {
		t.Errorf("Token() = %q; want %q", got, "tok-123")
	}
	if user := m.User(); user == nil || user.Username != "demo" {
		t.Errorf("User() = %+v; want demo", user)
	}
	if f.lastSetToken != "tok-123" {
		t.Errorf("client token = %q; want %q", f.lastSetToken, "tok-123")
	}
}

func TestInitialize_StaleToken(t *testing.T) {
	f := &fakeAPI{
		profileFunc: func(ctx context.Context, token string) (api.User, error) {
			return api.User{}, errors.New("401 unauthorized")
		},
	}
	store := &memStore{token: "expired"}
	m := NewManager(f, store, nil)

	m.Initialize(context.Background())

	if got := m.State(); got != StateAnonymous {
		t.Errorf("state = %v; want anonymous", got)
	}
	if m.Token() != "" {
		t.Errorf("Token() = %q; want empty", m.Token())
	}
	if store.clears != 1 {
		t.Errorf("store cleared %d times; want 1", store.clears)
	}
	if !f.setTokenSeen || f.lastSetToken != "" {
		t.Errorf("client token = %q; want cleared", f.lastSetToken)
	}
	if m.Loading() {
		t.Error("Loading() = true after Initialize returned")
	}
}

func TestLogin_RejectedCredentials(t *testing.T) {
	f := &fakeAPI{
		loginFunc: func(ctx context.Context, username, password string) (string, error) {
			return "", &api.AuthError{Message: "Invalid credentials"}
		},
	}
	store := &memStore{}
	m := NewManager(f, store, nil)

	err := m.Login(context.Background(), "demo", "wrong")
	var authErr *api.AuthError
	if !errors.As(err, &authErr) {
		t.Fatalf("Login() error = %v; want *api.AuthError", err)
	}
	if m.IsAuthenticated() {
		t.Error("IsAuthenticated() = true after rejected login")
	}
	if store.saves != 0 {
		t.Errorf("store saved %d times; want 0", store.saves)
	}
}

func TestLogin_Success(t *testing.T) {
	f := &fakeAPI{
		loginFunc: func(ctx context.Context, username, password string) (string, error) {
			return "tok-456", nil
		},
		profileFunc: func(ctx context.Context, token string) (api.User, error) {
			return api.User{ID: 2, Username: "demo", Email: "demo@example.com"}, nil
		},
	}
	store := &memStore{}
	m := NewManager(f, store, nil)

	if err := m.Login(context.Background(), "demo", "secret"); err != nil {
		t.Fatalf("Login() error = %v", err)
	}
	if !m.IsAuthenticated() {
		t.Fatal("IsAuthenticated() = false; want true")
	}
	if store.token != "tok-456" || store.saves != 1 {
		t.Errorf("store = %+v; want token persisted once", store)
	}
	if f.lastSetToken != "tok-456" {
		t.Errorf("client token = %q; want %q", f.lastSetToken, "tok-456")
	}
	if user := m.User(); user == nil || user.Email != "demo@example.com" {
		t.Errorf("User() = %+v", user)
	}
}

func TestLogin_ProfileFailureKeepsToken(t *testing.T) {
	f := &fakeAPI{
		loginFunc: func(ctx context.Context, username, password string) (string, error) {
			return "tok-789", nil
		},
		profileFunc: func(ctx context.Context, token string) (api.User, error) {
			return api.User{}, errors.New("temporary failure")
		},
	}
	store := &memStore{}
	m := NewManager(f, store, nil)

	if err := m.Login(context.Background(), "demo", "secret"); err != nil {
		t.Fatalf("Login() error = %v; profile failure must not surface", err)
	}
	if m.IsAuthenticated() {
		t.Error("IsAuthenticated() = true without a user record")
	}
	if got := m.Token(); got != "tok-789" {
		t.Errorf("Token() = %q; want retained token", got)
	}
	if store.token != "tok-789" {
		t.Errorf("persisted token = %q; want retained", store.token)
	}
	if user := m.User(); user != nil {
		t.Errorf("User() = %+v; want nil", user)
	}
}

func TestLogout_Idempotent(t *testing.T) {
	f := &fakeAPI{
		loginFunc: func(ctx context.Context, username, password string) (string, error) {
			return "tok-1", nil
		},
		profileFunc: func(ctx context.Context, token string) (api.User, error) {
			return api.User{ID: 1, Username: "demo"}, nil
		},
	}
	store := &memStore{}
	m := NewManager(f, store, nil)

	if err := m.Login(context.Background(), "demo", "secret"); err != nil {
		t.Fatal(err)
	}

	m.Logout()
	m.Logout()

	if m.IsAuthenticated() {
		t.Error("IsAuthenticated() = true after logout")
	}
	if m.Token() != "" || m.User() != nil {
		t.Errorf("state not cleared: token=%q user=%+v", m.Token(), m.User())
	}
	if store.token != "" {
		t.Errorf("persisted token = %q; want cleared", store.token)
	}
	if f.lastSetToken != "" {
		t.Errorf("client token = %q; want cleared", f.lastSetToken)
	}
}

// A logout issued while the startup verification is still in flight must
// win: the verification result arrives afterwards and is discarded.
func TestLogoutDuringVerification(t *testing.T) {
	entered := make(chan struct{})
	release := make(chan struct{})
	f := &fakeAPI{
		profileFunc: func(ctx context.Context, token string) (api.User, error) {
			close(entered)
			<-release
			return api.User{ID: 1, Username: "demo"}, nil
		},
	}
	store := &memStore{token: "tok-racing"}
	m := NewManager(f, store, nil)

	done := make(chan struct{})
	go func() {
		defer close(done)
		m.Initialize(context.Background())
	}()

	<-entered
	m.Logout()
	close(release)
	<-done

	if m.IsAuthenticated() {
		t.Error("stale verification result won over logout")
	}
	if got := m.State(); got != StateAnonymous {
		t.Errorf("state = %v; want anonymous", got)
	}
	if m.Token() != "" {
		t.Errorf("Token() = %q; want empty", m.Token())
	}
	if store.token != "" {
		t.Errorf("persisted token = %q; want cleared", store.token)
	}
}

// blockingStore parks Save until released so a logout can be
// interleaved while a login is persisting its token.
type blockingStore struct {
	memStore
	entered chan struct{}
	release chan struct{}
}

func (s *blockingStore) Save(token string) error {
	close(s.entered)
	<-s.release
	return s.memStore.Save(token)
}

// A logout issued while a login is saving its token must win durably:
// the login's save lands after the logout's clear, and the login is
// responsible for undoing it. Without that, the next Initialize would
// re-verify the surviving token and silently re-authenticate.
func TestLogoutDuringLoginPersistence(t *testing.T) {
	f := &fakeAPI{
		loginFunc: func(ctx context.Context, username, password string) (string, error) {
			return "tok-race", nil
		},
	}
	store := &blockingStore{
		entered: make(chan struct{}),
		release: make(chan struct{}),
	}
	m := NewManager(f, store, nil)

	errCh := make(chan error, 1)
	go func() {
		errCh <- m.Login(context.Background(), "demo", "secret")
	}()

	<-store.entered
	m.Logout()
	close(store.release)

	if err := <-errCh; !errors.Is(err, ErrSuperseded) {
		t.Fatalf("Login() error = %v; want ErrSuperseded", err)
	}
	if m.IsAuthenticated() {
		t.Error("IsAuthenticated() = true after logout")
	}
	if m.Token() != "" {
		t.Errorf("Token() = %q; want empty", m.Token())
	}
	if got, _ := store.Load(); got != "" {
		t.Errorf("persisted token = %q; want cleared", got)
	}
	if f.lastSetToken != "" {
		t.Errorf("client token = %q; want cleared", f.lastSetToken)
	}
}

func TestStateString(t *testing.T) {
	cases := map[State]string{
		StateUninitialized: "uninitialized",
		StateLoading:       "loading",
		StateAnonymous:     "anonymous",
		StateAuthenticated: "authenticated",
		State(99):          "unknown",
	}
	for state, want := range cases {
		if got := state.String(); got != want {
			t.Errorf("State(%d).String() = %q; want %q", state, got, want)
		}
	}
}
