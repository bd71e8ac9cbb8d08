package session

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
	"golang.org/x/sync/singleflight"

	"github.com/raine/storefront/internal/auth"
)

const (
	DefaultRefreshTimeout = 15 * time.Second

	msgLoginSuccess       = "Logged in successfully"
	msgLoginFailed        = "Invalid credentials"
	msgRegisterSuccess    = "Registration successful. Logging in..."
	msgRegisterFailed     = "Could not register user"
	msgLoggedOut          = "Session closed"
	msgTokenRenewed       = "Session renewed"
	msgSessionExpired     = "Your session has expired. Please log in again."
	refreshSingleFlightID = "refresh"
)

// Authenticator talks to the token and registration endpoints.
type Authenticator interface {
	ObtainTokens(ctx context.Context, creds auth.Credentials) (auth.TokenPair, error)
	RefreshAccess(ctx context.Context, refreshToken string) (string, error)
	Register(ctx context.Context, reg auth.Registration) error
}

// Change is delivered to subscribers after every login, refresh and logout.
type Change struct {
	LoggedIn bool
	Session  *auth.Session
}

// ManagerOpts configures a Manager. Nil collaborators are replaced by no-ops.
type ManagerOpts struct {
	Navigator      Navigator
	Notifier       Notifier
	RefreshTimeout time.Duration
}

// Manager owns the session lifecycle. It is the only writer of the Store and
// the only place a Session is derived.
type Manager struct {
	store          *Store
	authn          Authenticator
	nav            Navigator
	notifier       Notifier
	refreshTimeout time.Duration
	refreshGroup   singleflight.Group

	mu         sync.RWMutex
	session    *auth.Session
	generation uint64 // bumped on login and logout; stale refreshes are dropped
	listeners  []func(Change)
}

// NewManager creates a manager for store and derives the session from any
// pair seeded from the durable mirror.
func NewManager(store *Store, authn Authenticator, opts ManagerOpts) *Manager {
	m := &Manager{
		store:          store,
		authn:          authn,
		nav:            opts.Navigator,
		notifier:       opts.Notifier,
		refreshTimeout: opts.RefreshTimeout,
	}
	if m.nav == nil {
		m.nav = nopNavigator{}
	}
	if m.notifier == nil {
		m.notifier = nopNotifier{}
	}
	if m.refreshTimeout <= 0 {
		m.refreshTimeout = DefaultRefreshTimeout
	}

	if pair, ok := store.Get(); ok {
		m.session = derive(pair.Access)
		log.Info().Bool("session", m.session != nil).Msg("restored persisted tokens")
	}
	return m
}

// Session returns the current session, or nil when logged out or when the
// access token cannot be decoded.
func (m *Manager) Session() *auth.Session {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.session
}

// LoggedIn returns true if a token pair is stored.
func (m *Manager) LoggedIn() bool {
	_, ok := m.store.Get()
	return ok
}

// AccessToken returns the current access token, or "" when logged out.
func (m *Manager) AccessToken() string {
	pair, _ := m.store.Get()
	return pair.Access
}

// Subscribe registers fn to be called after every session change. fn is
// called synchronously and must not block.
func (m *Manager) Subscribe(fn func(Change)) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.listeners = append(m.listeners, fn)
}

// Login exchanges credentials for a token pair and starts a session.
func (m *Manager) Login(ctx context.Context, username, password string) error {
	pair, err := m.authn.ObtainTokens(ctx, auth.Credentials{Username: username, Password: password})
	if err != nil {
		log.Error().Err(err).Str("username", username).Msg("login failed")
		m.notifier.Notify(LevelError, msgLoginFailed)
		return err
	}

	m.mu.Lock()
	if err := m.store.Set(ctx, pair); err != nil {
		m.mu.Unlock()
		log.Error().Err(err).Msg("failed to store tokens")
		m.notifier.Notify(LevelError, msgLoginFailed)
		return err
	}
	m.generation++
	m.session = derive(pair.Access)
	change := m.changeLocked()
	m.mu.Unlock()

	m.emit(change)
	log.Info().Str("username", username).Bool("privileged", change.Session != nil && change.Session.IsPrivileged).
		Msg("user logged in")
	m.notifier.Notify(LevelSuccess, msgLoginSuccess)
	m.nav.Navigate(RouteProducts)
	return nil
}

// Register creates an account and logs into it.
func (m *Manager) Register(ctx context.Context, reg auth.Registration) error {
	if err := m.authn.Register(ctx, reg); err != nil {
		log.Error().Err(err).Str("username", reg.Username).Msg("registration failed")
		m.notifier.Notify(LevelError, userMessage(err, msgRegisterFailed))
		return err
	}
	m.notifier.Notify(LevelSuccess, msgRegisterSuccess)
	return m.Login(ctx, reg.Username, reg.Password)
}

// Logout ends the session at the user's request.
func (m *Manager) Logout(ctx context.Context) error {
	if err := m.teardown(ctx); err != nil {
		return err
	}
	log.Info().Msg("user logged out")
	m.notifier.Notify(LevelInfo, msgLoggedOut)
	m.nav.Navigate(RouteLogin)
	return nil
}

// Refresh renews the access token. Concurrent callers share one request and
// its result. Any failure other than ErrSessionChanged logs the session out
// and redirects to the login route.
func (m *Manager) Refresh(ctx context.Context) (string, error) {
	v, err, shared := m.refreshGroup.Do(refreshSingleFlightID, func() (any, error) {
		// Detached so one caller's cancellation does not fail the others
		ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), m.refreshTimeout)
		defer cancel()
		return m.refresh(ctx)
	})
	if shared {
		log.Debug().Msg("joined in-flight token refresh")
	}
	if err != nil {
		return "", err
	}
	return v.(string), nil
}

func (m *Manager) refresh(ctx context.Context) (string, error) {
	m.mu.RLock()
	generation := m.generation
	m.mu.RUnlock()

	pair, ok := m.store.Get()
	if !ok || pair.Refresh == "" {
		err := &RefreshError{Err: ErrNoRefreshToken}
		// A guest never had a session, so there is nothing to warn about
		err.Notified = m.endSession(ctx, err, ok)
		return "", err
	}

	log.Info().Msg("refreshing access token")
	access, err := m.authn.RefreshAccess(ctx, pair.Refresh)
	if err != nil {
		rerr := &RefreshError{Err: err}
		if m.currentGeneration() != generation {
			return "", &RefreshError{Err: ErrSessionChanged}
		}
		rerr.Notified = m.endSession(ctx, rerr, true)
		return "", rerr
	}

	m.mu.Lock()
	if m.generation != generation {
		m.mu.Unlock()
		log.Info().Msg("discarding refreshed token, session changed meanwhile")
		return "", &RefreshError{Err: ErrSessionChanged}
	}
	if err := m.store.SetAccess(ctx, access); err != nil {
		m.mu.Unlock()
		rerr := &RefreshError{Err: err}
		rerr.Notified = m.endSession(ctx, rerr, true)
		return "", rerr
	}
	m.session = derive(access)
	change := m.changeLocked()
	m.mu.Unlock()

	m.emit(change)
	log.Info().Msg("access token refreshed")
	m.notifier.Notify(LevelInfo, msgTokenRenewed)
	return access, nil
}

// ForceLogout ends the session because it can no longer be used, e.g. the
// access token cannot be decoded.
func (m *Manager) ForceLogout(ctx context.Context, reason error) {
	m.endSession(ctx, reason, true)
}

// endSession clears the tokens and redirects to the login route, warning the
// user that the session expired when warn is set. It returns whether the
// warning was shown.
func (m *Manager) endSession(ctx context.Context, reason error, warn bool) bool {
	log.Warn().Err(reason).Bool("warn", warn).Msg("forcing logout")
	if err := m.teardown(ctx); err != nil {
		return false
	}
	if warn {
		m.notifier.Notify(LevelWarning, msgSessionExpired)
	}
	m.nav.Navigate(RouteLogin)
	return warn
}

func (m *Manager) teardown(ctx context.Context) error {
	m.mu.Lock()
	if err := m.store.Clear(ctx); err != nil {
		m.mu.Unlock()
		log.Error().Err(err).Msg("failed to clear tokens")
		return err
	}
	m.generation++
	m.session = nil
	change := m.changeLocked()
	m.mu.Unlock()

	m.emit(change)
	return nil
}

func (m *Manager) currentGeneration() uint64 {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.generation
}

// changeLocked snapshots the state for subscribers. Caller holds m.mu.
func (m *Manager) changeLocked() Change {
	_, ok := m.store.Get()
	return Change{LoggedIn: ok, Session: m.session}
}

func (m *Manager) emit(change Change) {
	m.mu.RLock()
	listeners := append([]func(Change){}, m.listeners...)
	m.mu.RUnlock()

	for _, fn := range listeners {
		fn(change)
	}
}

// derive decodes access, logging and returning nil on failure.
func derive(access string) *auth.Session {
	s, err := auth.Derive(access)
	if err != nil {
		log.Warn().Err(err).Msg("access token could not be decoded, treating as no session")
		return nil
	}
	return s
}

// userMessage returns the message an error carries for the user, if any.
func userMessage(err error, fallback string) string {
	var um interface{ UserMessage() string }
	if errors.As(err, &um) && um.UserMessage() != "" {
		return um.UserMessage()
	}
	return fallback
}
