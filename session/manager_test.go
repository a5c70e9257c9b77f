package session_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/jrsteele09/go-hr-client/credentials"
	credentialsrepofake "github.com/jrsteele09/go-hr-client/credentials/repofake"
	"github.com/jrsteele09/go-hr-client/gateway"
	"github.com/jrsteele09/go-hr-client/hrapi"
	apperrors "github.com/jrsteele09/go-hr-client/internal/errors"
	"github.com/jrsteele09/go-hr-client/internal/hrfake"
	"github.com/jrsteele09/go-hr-client/leave"
	"github.com/jrsteele09/go-hr-client/profile"
	"github.com/jrsteele09/go-hr-client/session"
	"github.com/stretchr/testify/require"
)

type testFixture struct {
	fake    *hrfake.Server
	server  *httptest.Server
	repo    *credentialsrepofake.FakeCredentialsRepo
	store   *credentials.Store
	manager *session.Manager

	hookLock  sync.Mutex
	loggedOut []string
}

func (f *testFixture) logoutOwners() []string {
	f.hookLock.Lock()
	defer f.hookLock.Unlock()
	return append([]string(nil), f.loggedOut...)
}

func setupTestFixture(t *testing.T) *testFixture {
	t.Helper()
	f := &testFixture{fake: hrfake.New()}
	require.NoError(t, f.fake.AddEmployee(hrfake.Employee{
		Profile: profile.Profile{
			ID:         "1",
			EmployeeID: "E1",
			Name:       "Tomas Berg",
			Email:      "tomas.berg@example.com",
			Department: "Finance",
		},
		Password: "p",
		Balance:  leave.Balance{AnnualLeaveBalance: 20, SickLeaveBalance: 10},
	}))
	f.server = httptest.NewServer(f.fake)
	t.Cleanup(f.server.Close)

	f.repo = credentialsrepofake.NewFakeCredentialsRepo()
	f.store = credentials.NewStore(f.repo)
	f.manager = f.newManager()
	return f
}

// newManager builds a manager over the fixture's store, as a fresh process would.
func (f *testFixture) newManager() *session.Manager {
	gw := gateway.New(f.server.URL+"/api", f.store)
	mgr := session.NewManager(hrapi.New(gw), f.store, session.WithLogoutHook(func(_ context.Context, ownerID string) {
		f.hookLock.Lock()
		f.loggedOut = append(f.loggedOut, ownerID)
		f.hookLock.Unlock()
	}))
	gw.OnSessionExpired(mgr.HandleSessionExpired)
	return mgr
}

func requireSessionInvariant(t *testing.T, s session.State) {
	t.Helper()
	require.Equal(t, s.Token != "", s.Status == session.Authenticated, "token present iff authenticated: %+v", s)
}

func TestManager_Login(t *testing.T) {
	f := setupTestFixture(t)
	ctx := context.Background()

	require.NoError(t, f.manager.Login(ctx, hrapi.Credentials{EmployeeID: "E1", Password: "p"}))

	state := f.manager.State()
	requireSessionInvariant(t, state)
	require.Equal(t, session.Authenticated, state.Status)
	require.False(t, state.Loading)
	require.NotNil(t, state.Profile)
	require.Equal(t, profile.ID("1"), state.Profile.ID)
	require.Equal(t, "tomas.berg@example.com", state.Profile.Email, "full profile fetched after login")

	access, err := f.store.AccessToken(ctx)
	require.NoError(t, err)
	require.Equal(t, state.Token, access)
	refresh, err := f.store.RefreshToken(ctx)
	require.NoError(t, err)
	require.NotEmpty(t, refresh)

	cached, err := f.store.Profile(ctx)
	require.NoError(t, err)
	require.Equal(t, "Finance", cached.Department)
	require.Equal(t, "1", f.manager.OwnerID())
}

func TestManager_LoginFailure(t *testing.T) {
	f := setupTestFixture(t)

	err := f.manager.Login(context.Background(), hrapi.Credentials{EmployeeID: "E1", Password: "wrong"})
	require.Error(t, err)
	require.Equal(t, "Invalid employee ID or password", apperrors.UserMessage(err, "Login failed"))

	state := f.manager.State()
	requireSessionInvariant(t, state)
	require.Equal(t, session.Unauthenticated, state.Status)
	require.False(t, state.Loading)
}

func TestManager_LoginWithoutRefreshTokenStoresNothing(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /api/login", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"accessToken": "a1", "user": {"id": 1, "employee_id": "E1", "name": "Tomas Berg"}}`))
	})
	ts := httptest.NewServer(mux)
	defer ts.Close()

	store := credentials.NewStore(credentialsrepofake.NewFakeCredentialsRepo())
	mgr := session.NewManager(hrapi.New(gateway.New(ts.URL+"/api", store)), store)
	ctx := context.Background()

	require.Error(t, mgr.Login(ctx, hrapi.Credentials{EmployeeID: "E1", Password: "p"}))

	state := mgr.State()
	requireSessionInvariant(t, state)
	require.Equal(t, session.Unauthenticated, state.Status)

	access, err := store.AccessToken(ctx)
	require.NoError(t, err)
	require.Empty(t, access)
	refresh, err := store.RefreshToken(ctx)
	require.NoError(t, err)
	require.Empty(t, refresh)
}

func TestManager_LoginKeepsPartialProfileWhenProfileFetchFails(t *testing.T) {
	f := setupTestFixture(t)
	f.fake.FailNext(http.MethodGet, hrapi.PathProfile, http.StatusInternalServerError)

	require.NoError(t, f.manager.Login(context.Background(), hrapi.Credentials{EmployeeID: "E1", Password: "p"}))
	state := f.manager.State()
	require.Equal(t, session.Authenticated, state.Status)
	require.Equal(t, profile.ID("1"), state.Profile.ID)
	require.Empty(t, state.Profile.Email)
}

func TestManager_Logout(t *testing.T) {
	f := setupTestFixture(t)
	ctx := context.Background()
	require.NoError(t, f.manager.Login(ctx, hrapi.Credentials{EmployeeID: "E1", Password: "p"}))

	f.manager.Logout(ctx)

	state := f.manager.State()
	requireSessionInvariant(t, state)
	require.Equal(t, session.Unauthenticated, state.Status)
	require.Empty(t, state.Token)
	require.Nil(t, state.Profile)
	require.False(t, state.Loading)

	p, err := f.store.Profile(ctx)
	require.NoError(t, err)
	require.Nil(t, p)
	access, err := f.store.AccessToken(ctx)
	require.NoError(t, err)
	require.Empty(t, access)

	require.Equal(t, []string{"1"}, f.logoutOwners())
}

func TestManager_LogoutNeverFails(t *testing.T) {
	f := setupTestFixture(t)
	ctx := context.Background()
	require.NoError(t, f.manager.Login(ctx, hrapi.Credentials{EmployeeID: "E1", Password: "p"}))

	f.repo.FailWith(context.DeadlineExceeded)
	f.manager.Logout(ctx)
	require.Equal(t, session.Unauthenticated, f.manager.State().Status)
}

func TestManager_Bootstrap(t *testing.T) {
	t.Run("no stored token", func(t *testing.T) {
		f := setupTestFixture(t)
		require.True(t, f.manager.State().Loading)

		require.NoError(t, f.manager.Bootstrap(context.Background()))
		state := f.manager.State()
		requireSessionInvariant(t, state)
		require.Equal(t, session.Unauthenticated, state.Status)
		require.False(t, state.Loading)
	})

	t.Run("restores and revalidates", func(t *testing.T) {
		f := setupTestFixture(t)
		ctx := context.Background()
		require.NoError(t, f.manager.Login(ctx, hrapi.Credentials{EmployeeID: "E1", Password: "p"}))
		require.NoError(t, f.store.SaveProfile(ctx, &profile.Profile{ID: "1", Name: "Old Name"}))

		restarted := f.newManager()
		require.NoError(t, restarted.Bootstrap(ctx))

		state := restarted.State()
		requireSessionInvariant(t, state)
		require.Equal(t, session.Authenticated, state.Status)
		require.False(t, state.Loading)
		require.Equal(t, "Tomas Berg", state.Profile.Name)
	})

	t.Run("keeps cached session offline", func(t *testing.T) {
		f := setupTestFixture(t)
		ctx := context.Background()
		require.NoError(t, f.manager.Login(ctx, hrapi.Credentials{EmployeeID: "E1", Password: "p"}))
		f.server.Close()

		restarted := f.newManager()
		require.NoError(t, restarted.Bootstrap(ctx))

		state := restarted.State()
		require.Equal(t, session.Authenticated, state.Status)
		require.False(t, state.Loading)
		require.Equal(t, "Tomas Berg", state.Profile.Name)
	})

	t.Run("owner from token subject without profile", func(t *testing.T) {
		f := setupTestFixture(t)
		ctx := context.Background()
		require.NoError(t, f.manager.Login(ctx, hrapi.Credentials{EmployeeID: "E1", Password: "p"}))
		require.NoError(t, f.repo.Delete(ctx, credentials.KeyProfile))
		f.server.Close()

		restarted := f.newManager()
		require.NoError(t, restarted.Bootstrap(ctx))
		require.Nil(t, restarted.State().Profile)
		require.Equal(t, "1", restarted.OwnerID())
	})

	t.Run("revoked refresh token logs out", func(t *testing.T) {
		f := setupTestFixture(t)
		ctx := context.Background()
		require.NoError(t, f.manager.Login(ctx, hrapi.Credentials{EmployeeID: "E1", Password: "p"}))
		f.fake.ExpireAccessTokens()
		f.fake.RevokeRefreshTokens()

		restarted := f.newManager()
		require.NoError(t, restarted.Bootstrap(ctx))

		state := restarted.State()
		requireSessionInvariant(t, state)
		require.Equal(t, session.Unauthenticated, state.Status)
		require.False(t, state.Loading)
		access, err := f.store.AccessToken(ctx)
		require.NoError(t, err)
		require.Empty(t, access)
	})

	t.Run("storage failure", func(t *testing.T) {
		f := setupTestFixture(t)
		f.repo.FailWith(context.DeadlineExceeded)

		require.Error(t, f.manager.Bootstrap(context.Background()))
		require.False(t, f.manager.State().Loading)
		require.Equal(t, session.Unauthenticated, f.manager.State().Status)
	})
}

func TestManager_RefreshAndSetProfile(t *testing.T) {
	t.Run("expired token is refreshed transparently", func(t *testing.T) {
		f := setupTestFixture(t)
		ctx := context.Background()
		require.NoError(t, f.manager.Login(ctx, hrapi.Credentials{EmployeeID: "E1", Password: "p"}))
		f.fake.ExpireAccessTokens()

		p, err := f.manager.RefreshAndSetProfile(ctx)
		require.NoError(t, err)
		require.Equal(t, "Tomas Berg", p.Name)
		require.Equal(t, session.Authenticated, f.manager.State().Status)
	})

	t.Run("401 after retry logs out once", func(t *testing.T) {
		f := setupTestFixture(t)
		ctx := context.Background()
		require.NoError(t, f.manager.Login(ctx, hrapi.Credentials{EmployeeID: "E1", Password: "p"}))
		f.fake.FailNext(http.MethodGet, hrapi.PathProfile, http.StatusUnauthorized)
		f.fake.FailNext(http.MethodGet, hrapi.PathProfile, http.StatusUnauthorized)

		_, err := f.manager.RefreshAndSetProfile(ctx)
		require.ErrorIs(t, err, apperrors.ErrAuthenticationExpired)
		require.Equal(t, session.Unauthenticated, f.manager.State().Status)
		require.Equal(t, 1, f.fake.Calls(http.MethodPost, hrapi.PathRefreshToken))
		require.Len(t, f.logoutOwners(), 1)
	})

	t.Run("refresh failure logs out through the gateway", func(t *testing.T) {
		f := setupTestFixture(t)
		ctx := context.Background()
		require.NoError(t, f.manager.Login(ctx, hrapi.Credentials{EmployeeID: "E1", Password: "p"}))
		f.fake.ExpireAccessTokens()
		f.fake.RevokeRefreshTokens()

		_, err := f.manager.RefreshAndSetProfile(ctx)
		require.ErrorIs(t, err, apperrors.ErrRefreshFailed)
		require.Equal(t, session.Unauthenticated, f.manager.State().Status)
		require.Len(t, f.logoutOwners(), 1)
	})
}

func TestManager_UpdateProfile(t *testing.T) {
	f := setupTestFixture(t)
	ctx := context.Background()
	require.NoError(t, f.manager.Login(ctx, hrapi.Credentials{EmployeeID: "E1", Password: "p"}))

	_, err := f.manager.UpdateProfile(ctx, profile.Update{Name: "", Email: "tomas@example.com"})
	require.ErrorIs(t, err, apperrors.ErrValidation)

	p, err := f.manager.UpdateProfile(ctx, profile.Update{Name: "Tomas B. Berg", Email: "tomas@example.com"})
	require.NoError(t, err)
	require.Equal(t, "Tomas B. Berg", p.Name)
	require.Equal(t, "Tomas B. Berg", f.manager.State().Profile.Name)

	cached, err := f.store.Profile(ctx)
	require.NoError(t, err)
	require.Equal(t, "tomas@example.com", cached.Email)
}

func TestManager_Subscribe(t *testing.T) {
	f := setupTestFixture(t)
	states, unsubscribe := f.manager.Subscribe()
	defer unsubscribe()

	initial := <-states
	require.True(t, initial.Loading)

	require.NoError(t, f.manager.Login(context.Background(), hrapi.Credentials{EmployeeID: "E1", Password: "p"}))

	require.Eventually(t, func() bool {
		select {
		case s := <-states:
			return s.Status == session.Authenticated && !s.Loading
		default:
			return false
		}
	}, time.Second, 10*time.Millisecond)

	f.manager.Close()
	_, open := <-states
	require.False(t, open)
}
