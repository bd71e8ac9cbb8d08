package session

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/raine/storefront/internal/auth"
	"github.com/raine/storefront/internal/auth/authtest"
)

type managerFixture struct {
	mirror *memMirror
	store  *Store
	authn  *mockAuthenticator
	rec    *recorder
	mgr    *Manager
}

func newManagerFixture(t *testing.T, seed *auth.TokenPair) *managerFixture {
	t.Helper()
	f := &managerFixture{
		mirror: newMemMirror(seed),
		authn:  &mockAuthenticator{},
		rec:    &recorder{},
	}
	f.store = NewStore(context.Background(), f.mirror)
	f.mgr = NewManager(f.store, f.authn, ManagerOpts{
		Navigator:      f.rec,
		Notifier:       f.rec,
		RefreshTimeout: time.Second,
	})
	return f
}

func TestManager_NoTokensMeansNoSession(t *testing.T) {
	f := newManagerFixture(t, nil)

	assert.Nil(t, f.mgr.Session())
	assert.False(t, f.mgr.LoggedIn())
	assert.Empty(t, f.mgr.AccessToken())
	assert.False(t, RequireAuthenticated.Check(f.mgr.Session()).Allowed)
	assert.False(t, RequirePrivileged.Check(f.mgr.Session()).Allowed)
}

func TestManager_RestoresSessionFromMirror(t *testing.T) {
	access := authtest.Access(t, 3, true, time.Now().Add(time.Hour))
	f := newManagerFixture(t, &auth.TokenPair{Access: access, Refresh: "r1"})

	s := f.mgr.Session()
	require.NotNil(t, s)
	assert.Equal(t, "3", s.UserID)
	assert.True(t, s.IsPrivileged)
}

func TestManager_LoginStaff(t *testing.T) {
	ctx := context.Background()
	f := newManagerFixture(t, nil)
	access := authtest.Access(t, 1, true, time.Now().Add(5*time.Minute))
	f.authn.ObtainTokensFunc = func(ctx context.Context, creds auth.Credentials) (auth.TokenPair, error) {
		assert.Equal(t, "admin", creds.Username)
		assert.Equal(t, "secret", creds.Password)
		return auth.TokenPair{Access: access, Refresh: "r1"}, nil
	}

	require.NoError(t, f.mgr.Login(ctx, "admin", "secret"))

	pair, ok := f.store.Get()
	assert.True(t, ok)
	assert.Equal(t, access, pair.Access)
	assert.Equal(t, "r1", pair.Refresh)

	s := f.mgr.Session()
	require.NotNil(t, s)
	assert.True(t, s.IsPrivileged)
	assert.True(t, RequireAuthenticated.Check(s).Allowed)
	assert.True(t, RequirePrivileged.Check(s).Allowed)

	assert.Equal(t, []Route{RouteProducts}, f.rec.Routes())
	assert.Equal(t, LevelSuccess, f.rec.Notifications()[0].Level)
}

func TestManager_LoginCustomerIsNotPrivileged(t *testing.T) {
	f := newManagerFixture(t, nil)
	f.authn.ObtainTokensFunc = func(ctx context.Context, creds auth.Credentials) (auth.TokenPair, error) {
		return auth.TokenPair{Access: authtest.Access(t, 9, false, time.Now().Add(time.Hour)), Refresh: "r"}, nil
	}

	require.NoError(t, f.mgr.Login(context.Background(), "ana", "pw"))

	assert.False(t, f.mgr.Session().IsPrivileged)
	assert.Equal(t, RouteHome, RequirePrivileged.Check(f.mgr.Session()).Redirect)
}

func TestManager_LoginFailure(t *testing.T) {
	f := newManagerFixture(t, nil)
	f.authn.ObtainTokensFunc = func(ctx context.Context, creds auth.Credentials) (auth.TokenPair, error) {
		return auth.TokenPair{}, errors.New("401 unauthorized")
	}

	err := f.mgr.Login(context.Background(), "ana", "wrong")

	assert.Error(t, err)
	assert.False(t, f.mgr.LoggedIn())
	assert.Empty(t, f.rec.Routes())
	require.Len(t, f.rec.Notifications(), 1)
	assert.Equal(t, notification{Level: LevelError, Msg: msgLoginFailed}, f.rec.Notifications()[0])
}

func TestManager_LoginWithUndecodableToken(t *testing.T) {
	f := newManagerFixture(t, nil)
	f.authn.ObtainTokensFunc = func(ctx context.Context, creds auth.Credentials) (auth.TokenPair, error) {
		return auth.TokenPair{Access: "garbage", Refresh: "r"}, nil
	}

	require.NoError(t, f.mgr.Login(context.Background(), "ana", "pw"))

	assert.True(t, f.mgr.LoggedIn())
	assert.Nil(t, f.mgr.Session(), "undecodable token is treated as no session")
}

type userMessageError struct{ msg string }

func (e *userMessageError) Error() string       { return "bad request: " + e.msg }
func (e *userMessageError) UserMessage() string { return e.msg }

func TestManager_Register(t *testing.T) {
	t.Run("registers then logs in", func(t *testing.T) {
		f := newManagerFixture(t, nil)
		f.authn.ObtainTokensFunc = func(ctx context.Context, creds auth.Credentials) (auth.TokenPair, error) {
			assert.Equal(t, "new", creds.Username)
			assert.Equal(t, "pw12345678", creds.Password)
			return auth.TokenPair{Access: authtest.Access(t, 5, false, time.Now().Add(time.Hour)), Refresh: "r"}, nil
		}

		err := f.mgr.Register(context.Background(), auth.Registration{Username: "new", Password: "pw12345678", Password2: "pw12345678"})

		require.NoError(t, err)
		assert.True(t, f.mgr.LoggedIn())
		assert.Equal(t, 1, f.authn.count("Register"))
		assert.Equal(t, 1, f.authn.count("ObtainTokens"))
	})

	t.Run("surfaces the API message", func(t *testing.T) {
		f := newManagerFixture(t, nil)
		f.authn.RegisterFunc = func(ctx context.Context, reg auth.Registration) error {
			return &userMessageError{msg: "A user with that username already exists."}
		}

		err := f.mgr.Register(context.Background(), auth.Registration{Username: "taken"})

		assert.Error(t, err)
		assert.False(t, f.mgr.LoggedIn())
		assert.Equal(t, 0, f.authn.count("ObtainTokens"))
		assert.Equal(t, "A user with that username already exists.", f.rec.Notifications()[0].Msg)
	})
}

func TestManager_Logout(t *testing.T) {
	access := authtest.Access(t, 3, false, time.Now().Add(time.Hour))
	f := newManagerFixture(t, &auth.TokenPair{Access: access, Refresh: "r1"})

	var changes []Change
	f.mgr.Subscribe(func(c Change) { changes = append(changes, c) })

	require.NoError(t, f.mgr.Logout(context.Background()))

	assert.False(t, f.mgr.LoggedIn())
	assert.Nil(t, f.mgr.Session())
	_, present := f.mirror.snapshot()
	assert.False(t, present)
	assert.Equal(t, []Route{RouteLogin}, f.rec.Routes())
	require.Len(t, changes, 1)
	assert.False(t, changes[0].LoggedIn)
}

func TestManager_RefreshSuccess(t *testing.T) {
	old := authtest.Access(t, 3, false, time.Now().Add(10*time.Second))
	fresh := authtest.Access(t, 3, true, time.Now().Add(5*time.Minute))
	f := newManagerFixture(t, &auth.TokenPair{Access: old, Refresh: "r1"})
	f.authn.RefreshAccessFunc = func(ctx context.Context, refreshToken string) (string, error) {
		assert.Equal(t, "r1", refreshToken)
		return fresh, nil
	}

	got, err := f.mgr.Refresh(context.Background())

	require.NoError(t, err)
	assert.Equal(t, fresh, got)
	pair, _ := f.store.Get()
	assert.Equal(t, auth.TokenPair{Access: fresh, Refresh: "r1"}, pair)
	durable, _ := f.mirror.snapshot()
	assert.Equal(t, pair, durable)
	assert.True(t, f.mgr.Session().IsPrivileged, "session is re-derived from the new token")
	assert.Equal(t, notification{Level: LevelInfo, Msg: msgTokenRenewed}, f.rec.Notifications()[0])
}

func TestManager_RefreshWithoutRefreshToken(t *testing.T) {
	f := newManagerFixture(t, nil)

	_, err := f.mgr.Refresh(context.Background())

	assert.ErrorIs(t, err, ErrRefresh)
	assert.ErrorIs(t, err, ErrNoRefreshToken)
	assert.Equal(t, 0, f.authn.count("RefreshAccess"), "no network call without a refresh token")
	assert.Equal(t, []Route{RouteLogin}, f.rec.Routes())
	assert.Empty(t, f.rec.Notifications(), "a guest has no session to expire")
	assert.False(t, Notified(err))
}

func TestManager_RefreshRejected(t *testing.T) {
	access := authtest.Access(t, 3, false, time.Now().Add(10*time.Second))
	f := newManagerFixture(t, &auth.TokenPair{Access: access, Refresh: "r1"})
	f.authn.RefreshAccessFunc = func(ctx context.Context, refreshToken string) (string, error) {
		return "", errors.New("token is blacklisted")
	}

	_, err := f.mgr.Refresh(context.Background())

	var rerr *RefreshError
	require.ErrorAs(t, err, &rerr)
	assert.False(t, f.mgr.LoggedIn())
	assert.Nil(t, f.mgr.Session())
	_, present := f.mirror.snapshot()
	assert.False(t, present)
	assert.Equal(t, []Route{RouteLogin}, f.rec.Routes())
	assert.Equal(t, []notification{{Level: LevelWarning, Msg: msgSessionExpired}}, f.rec.Notifications())
	assert.True(t, Notified(err))
}

func TestManager_ConcurrentRefreshesShareOneRequest(t *testing.T) {
	access := authtest.Access(t, 3, false, time.Now().Add(10*time.Second))
	fresh := authtest.Access(t, 3, false, time.Now().Add(5*time.Minute))
	f := newManagerFixture(t, &auth.TokenPair{Access: access, Refresh: "r1"})

	started := make(chan struct{})
	release := make(chan struct{})
	var calls atomic.Int32
	f.authn.RefreshAccessFunc = func(ctx context.Context, refreshToken string) (string, error) {
		if calls.Add(1) == 1 {
			close(started)
		}
		<-release
		return fresh, nil
	}

	const callers = 8
	var wg sync.WaitGroup
	results := make([]string, callers)
	errs := make([]error, callers)

	wg.Add(1)
	go func() {
		defer wg.Done()
		results[0], errs[0] = f.mgr.Refresh(context.Background())
	}()
	<-started
	for i := 1; i < callers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			results[i], errs[i] = f.mgr.Refresh(context.Background())
		}(i)
	}
	// Give the joiners a moment to attach to the in-flight call
	time.Sleep(50 * time.Millisecond)
	close(release)
	wg.Wait()

	assert.Equal(t, int32(1), calls.Load())
	for i := range callers {
		assert.NoError(t, errs[i])
		assert.Equal(t, fresh, results[i])
	}
}

func TestManager_RefreshSurvivesCallerCancellation(t *testing.T) {
	access := authtest.Access(t, 3, false, time.Now().Add(10*time.Second))
	f := newManagerFixture(t, &auth.TokenPair{Access: access, Refresh: "r1"})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	f.authn.RefreshAccessFunc = func(reqCtx context.Context, refreshToken string) (string, error) {
		assert.NoError(t, reqCtx.Err())
		return "fresh", nil
	}

	got, err := f.mgr.Refresh(ctx)

	require.NoError(t, err)
	assert.Equal(t, "fresh", got)
}

func TestManager_RefreshDiscardedAfterLogout(t *testing.T) {
	access := authtest.Access(t, 3, false, time.Now().Add(10*time.Second))
	f := newManagerFixture(t, &auth.TokenPair{Access: access, Refresh: "r1"})

	started := make(chan struct{})
	release := make(chan struct{})
	f.authn.RefreshAccessFunc = func(ctx context.Context, refreshToken string) (string, error) {
		close(started)
		<-release
		return "late-access", nil
	}

	errCh := make(chan error, 1)
	go func() {
		_, err := f.mgr.Refresh(context.Background())
		errCh <- err
	}()

	<-started
	require.NoError(t, f.mgr.Logout(context.Background()))
	close(release)

	err := <-errCh
	assert.ErrorIs(t, err, ErrSessionChanged)
	assert.False(t, f.mgr.LoggedIn(), "late refresh must not resurrect the session")
	_, present := f.mirror.snapshot()
	assert.False(t, present)
}

// The session always reflects the current access token.
func TestManager_SessionTracksStore(t *testing.T) {
	ctx := context.Background()
	f := newManagerFixture(t, nil)

	check := func() {
		t.Helper()
		pair, ok := f.store.Get()
		if !ok {
			assert.Nil(t, f.mgr.Session())
			return
		}
		want, err := auth.Derive(pair.Access)
		require.NoError(t, err)
		assert.Equal(t, want, f.mgr.Session())
	}

	f.authn.ObtainTokensFunc = func(ctx context.Context, creds auth.Credentials) (auth.TokenPair, error) {
		return auth.TokenPair{Access: authtest.Access(t, 4, false, time.Now().Add(time.Minute)), Refresh: "r"}, nil
	}
	require.NoError(t, f.mgr.Login(ctx, "u", "p"))
	check()

	f.authn.RefreshAccessFunc = func(ctx context.Context, refreshToken string) (string, error) {
		return authtest.Access(t, 4, true, time.Now().Add(time.Hour)), nil
	}
	_, err := f.mgr.Refresh(ctx)
	require.NoError(t, err)
	check()

	require.NoError(t, f.mgr.Logout(ctx))
	check()
}
