package session

import (
	"context"
	"sync"

	"github.com/raine/storefront/internal/auth"
)

// mockCall records a method call for test assertions.
type mockCall struct {
	Method string
	Args   []any
}

// memMirror is an in-memory Mirror. Each method can be overridden.
type memMirror struct {
	LoadTokensFunc   func(ctx context.Context) (auth.TokenPair, bool, error)
	SaveTokensFunc   func(ctx context.Context, pair auth.TokenPair) error
	DeleteTokensFunc func(ctx context.Context) error

	mu      sync.Mutex
	pair    auth.TokenPair
	present bool
	Calls   []mockCall
}

var _ Mirror = (*memMirror)(nil)

func newMemMirror(pair *auth.TokenPair) *memMirror {
	m := &memMirror{}
	if pair != nil {
		m.pair = *pair
		m.present = true
	}
	return m
}

func (m *memMirror) LoadTokens(ctx context.Context) (auth.TokenPair, bool, error) {
	m.mu.Lock()
	m.Calls = append(m.Calls, mockCall{Method: "LoadTokens"})
	fn := m.LoadTokensFunc
	pair, present := m.pair, m.present
	m.mu.Unlock()

	if fn != nil {
		return fn(ctx)
	}
	return pair, present, nil
}

func (m *memMirror) SaveTokens(ctx context.Context, pair auth.TokenPair) error {
	m.mu.Lock()
	m.Calls = append(m.Calls, mockCall{Method: "SaveTokens", Args: []any{pair}})
	fn := m.SaveTokensFunc
	m.mu.Unlock()

	if fn != nil {
		if err := fn(ctx, pair); err != nil {
			return err
		}
	}
	m.mu.Lock()
	m.pair, m.present = pair, true
	m.mu.Unlock()
	return nil
}

func (m *memMirror) DeleteTokens(ctx context.Context) error {
	m.mu.Lock()
	m.Calls = append(m.Calls, mockCall{Method: "DeleteTokens"})
	fn := m.DeleteTokensFunc
	m.mu.Unlock()

	if fn != nil {
		if err := fn(ctx); err != nil {
			return err
		}
	}
	m.mu.Lock()
	m.pair, m.present = auth.TokenPair{}, false
	m.mu.Unlock()
	return nil
}

func (m *memMirror) snapshot() (auth.TokenPair, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.pair, m.present
}

// mockAuthenticator is a test double for Authenticator.
type mockAuthenticator struct {
	ObtainTokensFunc  func(ctx context.Context, creds auth.Credentials) (auth.TokenPair, error)
	RefreshAccessFunc func(ctx context.Context, refreshToken string) (string, error)
	RegisterFunc      func(ctx context.Context, reg auth.Registration) error

	mu    sync.Mutex
	Calls []mockCall
}

var _ Authenticator = (*mockAuthenticator)(nil)

func (m *mockAuthenticator) ObtainTokens(ctx context.Context, creds auth.Credentials) (auth.TokenPair, error) {
	m.mu.Lock()
	m.Calls = append(m.Calls, mockCall{Method: "ObtainTokens", Args: []any{creds.Username}})
	fn := m.ObtainTokensFunc
	m.mu.Unlock()

	if fn != nil {
		return fn(ctx, creds)
	}
	return auth.TokenPair{Access: "mock-access", Refresh: "mock-refresh"}, nil
}

func (m *mockAuthenticator) RefreshAccess(ctx context.Context, refreshToken string) (string, error) {
	m.mu.Lock()
	m.Calls = append(m.Calls, mockCall{Method: "RefreshAccess", Args: []any{refreshToken}})
	fn := m.RefreshAccessFunc
	m.mu.Unlock()

	if fn != nil {
		return fn(ctx, refreshToken)
	}
	return "mock-access-2", nil
}

func (m *mockAuthenticator) Register(ctx context.Context, reg auth.Registration) error {
	m.mu.Lock()
	m.Calls = append(m.Calls, mockCall{Method: "Register", Args: []any{reg.Username}})
	fn := m.RegisterFunc
	m.mu.Unlock()

	if fn != nil {
		return fn(ctx, reg)
	}
	return nil
}

func (m *mockAuthenticator) count(method string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for _, c := range m.Calls {
		if c.Method == method {
			n++
		}
	}
	return n
}

type notification struct {
	Level Level
	Msg   string
}

// recorder implements Navigator and Notifier.
type recorder struct {
	mu            sync.Mutex
	routes        []Route
	notifications []notification
}

func (r *recorder) Navigate(to Route) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.routes = append(r.routes, to)
}

func (r *recorder) Notify(level Level, msg string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.notifications = append(r.notifications, notification{Level: level, Msg: msg})
}

func (r *recorder) Routes() []Route {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Route(nil), r.routes...)
}

func (r *recorder) Notifications() []notification {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]notification(nil), r.notifications...)
}
