package session

import (
	"context"
	"encoding/json"
	stderrors "errors"
	"net"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/richmansdream/crmdesk/internal/api"
	"github.com/richmansdream/crmdesk/internal/errors"
)

// newTestServer starts an HTTP server bound to IPv4-only loopback so tests work
// inside restricted sandboxes that forbid IPv6 listeners.
func newTestServer(t *testing.T, handler http.Handler) *httptest.Server {
	t.Helper()

	listener, err := net.Listen("tcp4", "127.0.0.1:0")
	if err != nil {
		t.Skipf("unable to start test server: %v", err)
	}

	server := &httptest.Server{
		Listener: listener,
		Config:   &http.Server{Handler: handler},
	}
	server.Start()
	t.Cleanup(server.Close)
	return server
}

// stubBackend answers the auth endpoints and records bearer headers
type stubBackend struct {
	mu         sync.Mutex
	validToken string
	loginBody  map[string]any
	logoutFail bool
	auths      []string
	logins     int
}

func (s *stubBackend) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	s.auths = append(s.auths, r.Header.Get("Authorization"))
	s.mu.Unlock()

	write := func(status int, v any) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_ = json.NewEncoder(w).Encode(v)
	}

	switch r.URL.Path {
	case "/auth/login":
		s.mu.Lock()
		s.logins++
		body := s.loginBody
		s.mu.Unlock()
		write(http.StatusOK, body)
	case "/auth/logout":
		if s.logoutFail {
			write(http.StatusInternalServerError, map[string]string{"detail": "down"})
			return
		}
		write(http.StatusOK, map[string]string{"message": "ok"})
	default:
		if r.Header.Get("Authorization") != "Bearer "+s.validToken {
			write(http.StatusUnauthorized, map[string]string{"detail": "Could not validate credentials"})
			return
		}
		write(http.StatusOK, map[string]string{"id": "u1", "name": "Ana Admin", "email": "ana@example.com", "role": "admin"})
	}
}

func (s *stubBackend) lastAuth() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.auths[len(s.auths)-1]
}

func successLogin(token string) map[string]any {
	return map[string]any{
		"success": true,
		"token":   token,
		"user":    map[string]string{"id": "u1", "name": "Ana Admin", "email": "ana@example.com", "role": "admin"},
	}
}

func newManager(t *testing.T, backend *stubBackend, store TokenStore) (*Manager, *api.Client) {
	t.Helper()
	srv := newTestServer(t, backend)
	client := api.NewClient(srv.URL)
	return NewManager(client, store), client
}

func TestInitialize_NoStoredToken(t *testing.T) {
	m, _ := newManager(t, &stubBackend{}, NewMemoryStore())

	snap := m.Initialize(context.Background())
	assert.Equal(t, StateAnonymous, snap.State)
	assert.Nil(t, snap.User)
	assert.False(t, snap.Loading)
}

func TestInitialize_ValidStoredToken(t *testing.T) {
	store := NewMemoryStore()
	require.NoError(t, store.Set(context.Background(), TokenKey, "good"))
	backend := &stubBackend{validToken: "good"}
	m, _ := newManager(t, backend, store)

	snap := m.Initialize(context.Background())
	assert.Equal(t, StateAuthenticated, snap.State)
	require.NotNil(t, snap.User)
	assert.Equal(t, "Ana Admin", snap.User.Name)
	assert.False(t, snap.Loading)
	assert.Equal(t, "good", m.Credential())
	assert.Equal(t, "Bearer good", backend.lastAuth())
}

func TestInitialize_RejectedStoredToken(t *testing.T) {
	store := NewMemoryStore()
	require.NoError(t, store.Set(context.Background(), TokenKey, "expired"))
	m, _ := newManager(t, &stubBackend{validToken: "other"}, store)

	var seen []Snapshot
	m.OnChange(func(s Snapshot) { seen = append(seen, s) })

	snap := m.Initialize(context.Background())
	assert.Equal(t, StateAnonymous, snap.State)
	assert.Nil(t, snap.User)
	assert.False(t, snap.Loading)
	assert.Empty(t, m.Credential())

	_, err := store.Get(context.Background(), TokenKey)
	assert.ErrorIs(t, err, ErrTokenNotFound)

	// loading goes true once and false once
	require.NotEmpty(t, seen)
	assert.True(t, seen[0].Loading)
	assert.False(t, seen[len(seen)-1].Loading)
	loadingEnds := 0
	for i := 1; i < len(seen); i++ {
		if seen[i-1].Loading && !seen[i].Loading {
			loadingEnds++
		}
	}
	assert.Equal(t, 1, loadingEnds)
}

func TestInitialize_RunsOnce(t *testing.T) {
	m, _ := newManager(t, &stubBackend{}, NewMemoryStore())
	first := m.Initialize(context.Background())
	second := m.Initialize(context.Background())
	assert.Equal(t, first, second)
}

func TestLogin_BeforeInitialize(t *testing.T) {
	backend := &stubBackend{loginBody: successLogin("t")}
	m, _ := newManager(t, backend, NewMemoryStore())

	res := m.Login(context.Background(), "ana@example.com", "pw")
	assert.False(t, res.Success)
	assert.Equal(t, errors.ErrCodeSessionNotReady, errors.CodeOf(res.Err))
	assert.Equal(t, 0, backend.logins)

	err := m.Logout(context.Background())
	assert.ErrorIs(t, err, errors.ErrSessionNotReady)
}

func TestLogin_Success(t *testing.T) {
	backend := &stubBackend{validToken: "fresh", loginBody: successLogin("fresh")}
	store := NewMemoryStore()
	m, client := newManager(t, backend, store)
	m.Initialize(context.Background())

	res := m.Login(context.Background(), "ana@example.com", "pw")
	require.True(t, res.Success, res.Error)

	snap := m.Snapshot()
	assert.Equal(t, StateAuthenticated, snap.State)
	require.NotNil(t, snap.User)
	assert.Equal(t, "u1", snap.User.ID)
	assert.False(t, snap.Loading)

	stored, err := store.Get(context.Background(), TokenKey)
	require.NoError(t, err)
	assert.Equal(t, "fresh", stored)

	// The token is attached to the next request
	_, err = client.WhoAmI(context.Background(), m.Credential())
	require.NoError(t, err)
	assert.Equal(t, "Bearer fresh", backend.lastAuth())
}

func TestLogin_Repeated(t *testing.T) {
	backend := &stubBackend{loginBody: successLogin("one")}
	m, _ := newManager(t, backend, NewMemoryStore())
	m.Initialize(context.Background())

	require.True(t, m.Login(context.Background(), "a@b.c", "pw").Success)
	backend.mu.Lock()
	backend.loginBody = successLogin("two")
	backend.mu.Unlock()
	require.True(t, m.Login(context.Background(), "a@b.c", "pw").Success)

	assert.Equal(t, "two", m.Credential())
	assert.Equal(t, StateAuthenticated, m.Snapshot().State)
}

func TestLogin_ApplicationFailure(t *testing.T) {
	backend := &stubBackend{loginBody: map[string]any{"success": false, "error": "X"}}
	store := NewMemoryStore()
	m, _ := newManager(t, backend, store)
	m.Initialize(context.Background())

	res := m.Login(context.Background(), "ana@example.com", "pw")
	assert.False(t, res.Success)
	assert.Equal(t, "X", res.Error)
	assert.Nil(t, m.User())
	assert.Empty(t, m.Credential())

	_, err := store.Get(context.Background(), TokenKey)
	assert.ErrorIs(t, err, ErrTokenNotFound)
}

func TestLogin_FallbackMessage(t *testing.T) {
	srv := newTestServer(t, http.NotFoundHandler())
	base := srv.URL
	srv.Close()

	m := NewManager(api.NewClient(base), NewMemoryStore())
	m.Initialize(context.Background())

	res := m.Login(context.Background(), "ana@example.com", "pw")
	assert.False(t, res.Success)
	assert.Equal(t, LoginFailedMessage, res.Error)
	assert.Equal(t, errors.ErrCodeTransport, errors.CodeOf(res.Err))
	assert.False(t, m.Snapshot().Loading)
}

func TestLogin_EmptyCredentialsSendNothing(t *testing.T) {
	backend := &stubBackend{loginBody: successLogin("t")}
	m, _ := newManager(t, backend, NewMemoryStore())
	m.Initialize(context.Background())

	for _, tc := range [][2]string{{"", "pw"}, {"a@b.c", ""}, {"", ""}} {
		res := m.Login(context.Background(), tc[0], tc[1])
		assert.False(t, res.Success)
		assert.Equal(t, "Invalid credentials", res.Error)
	}
	assert.Equal(t, 0, backend.logins)
}

// failingStore accepts the first allow writes and fails the rest
type failingStore struct {
	*MemoryStore
	allow   int
	deletes int
}

func (f *failingStore) Set(ctx context.Context, key, value string) error {
	if f.allow > 0 {
		f.allow--
		return f.MemoryStore.Set(ctx, key, value)
	}
	return stderrors.New("disk full")
}

func (f *failingStore) Delete(ctx context.Context, key string) error {
	f.deletes++
	return f.MemoryStore.Delete(ctx, key)
}

func TestLogin_PersistFailureLeavesNoToken(t *testing.T) {
	backend := &stubBackend{loginBody: successLogin("t")}
	store := &failingStore{MemoryStore: NewMemoryStore()}
	m, _ := newManager(t, backend, store)
	m.Initialize(context.Background())

	res := m.Login(context.Background(), "a@b.c", "pw")
	assert.False(t, res.Success)
	assert.Equal(t, errors.ErrCodeTokenStore, errors.CodeOf(res.Err))
	assert.Nil(t, m.User())
	assert.Empty(t, m.Credential())
	assert.Equal(t, 1, store.deletes)
}

func TestLogin_PersistFailureKeepsPriorToken(t *testing.T) {
	backend := &stubBackend{loginBody: successLogin("one")}
	store := &failingStore{MemoryStore: NewMemoryStore(), allow: 1}
	m, _ := newManager(t, backend, store)
	m.Initialize(context.Background())
	require.True(t, m.Login(context.Background(), "a@b.c", "pw").Success)

	backend.mu.Lock()
	backend.loginBody = successLogin("two")
	backend.mu.Unlock()

	res := m.Login(context.Background(), "a@b.c", "pw")
	assert.False(t, res.Success)
	assert.Equal(t, errors.ErrCodeTokenStore, errors.CodeOf(res.Err))

	// Memory and store still agree on the first session
	assert.Equal(t, StateAuthenticated, m.Snapshot().State)
	assert.Equal(t, "one", m.Credential())
	assert.Zero(t, store.deletes)
	stored, err := store.Get(context.Background(), TokenKey)
	require.NoError(t, err)
	assert.Equal(t, "one", stored)
}

func TestLogout_AlwaysClears(t *testing.T) {
	for _, fail := range []bool{false, true} {
		backend := &stubBackend{loginBody: successLogin("t"), logoutFail: fail}
		store := NewMemoryStore()
		m, _ := newManager(t, backend, store)
		m.Initialize(context.Background())
		require.True(t, m.Login(context.Background(), "a@b.c", "pw").Success)

		require.NoError(t, m.Logout(context.Background()))

		snap := m.Snapshot()
		assert.Nil(t, snap.User)
		assert.Equal(t, StateAnonymous, snap.State)
		assert.False(t, snap.Loading)
		_, err := store.Get(context.Background(), TokenKey)
		assert.ErrorIs(t, err, ErrTokenNotFound)
	}
}

func TestUnauthorizedClearsSession(t *testing.T) {
	backend := &stubBackend{validToken: "good", loginBody: successLogin("good")}
	store := NewMemoryStore()
	m, client := newManager(t, backend, store)
	m.Initialize(context.Background())
	require.True(t, m.Login(context.Background(), "a@b.c", "pw").Success)

	var changes []Snapshot
	m.OnChange(func(s Snapshot) { changes = append(changes, s) })

	// The server revokes the token
	backend.mu.Lock()
	backend.validToken = "rotated"
	backend.mu.Unlock()

	_, err := client.WhoAmI(context.Background(), m.Credential())
	require.Error(t, err)
	assert.Equal(t, errors.ErrCodeUnauthorized, errors.CodeOf(err))

	// Cleared before the failing call returned
	assert.Nil(t, m.User())
	assert.Empty(t, m.Credential())
	assert.Equal(t, StateAnonymous, m.Snapshot().State)
	require.NotEmpty(t, changes)
	assert.Nil(t, changes[len(changes)-1].User)

	_, err = store.Get(context.Background(), TokenKey)
	assert.ErrorIs(t, err, ErrTokenNotFound)
}

func TestFingerprint(t *testing.T) {
	assert.Empty(t, Fingerprint(""))
	fp := Fingerprint("secret-token")
	assert.Len(t, fp, 12)
	assert.NotContains(t, fp, "secret")
	assert.Equal(t, fp, Fingerprint("secret-token"))
	assert.NotEqual(t, fp, Fingerprint("secret-token2"))
}
