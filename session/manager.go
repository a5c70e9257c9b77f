package session

import (
	"context"
	"sync"

	"github.com/jrsteele09/go-hr-client/credentials"
	"github.com/jrsteele09/go-hr-client/hrapi"
	apperrors "github.com/jrsteele09/go-hr-client/internal/errors"
	"github.com/jrsteele09/go-hr-client/profile"
	"github.com/pkg/errors"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// LogoutHook runs after the credentials are cleared. ownerID is the identity
// the session belonged to, so per-user data can be dropped.
type LogoutHook func(ctx context.Context, ownerID string)

// Manager owns the authentication state and is the only writer of credentials
// apart from the gateway persisting a refreshed access token.
//
// The lock is never held across a network or storage call: the gateway calls
// back into Logout from inside requests issued here.
type Manager struct {
	api    *hrapi.Client
	store  *credentials.Store
	logger zerolog.Logger

	lock        sync.Mutex
	state       State
	subscribers map[int]chan State
	nextSubID   int
	logoutHooks []LogoutHook
	closed      bool
}

type Option func(*Manager)

func WithLogger(logger zerolog.Logger) Option {
	return func(m *Manager) {
		m.logger = logger
	}
}

// WithLogoutHook registers a hook run on every logout.
func WithLogoutHook(hook LogoutHook) Option {
	return func(m *Manager) {
		m.logoutHooks = append(m.logoutHooks, hook)
	}
}

// NewManager creates a manager in the loading state. Call Bootstrap to restore
// a persisted session.
func NewManager(api *hrapi.Client, store *credentials.Store, options ...Option) *Manager {
	m := &Manager{
		api:         api,
		store:       store,
		logger:      log.Logger,
		state:       State{Status: Unauthenticated, Loading: true},
		subscribers: make(map[int]chan State),
	}
	for _, opt := range options {
		opt(m)
	}
	return m
}

// State returns the current snapshot.
func (m *Manager) State() State {
	m.lock.Lock()
	defer m.lock.Unlock()
	return m.state
}

// Subscribe delivers every state change. Slow readers only see the latest
// state. The returned func unsubscribes and closes the channel.
func (m *Manager) Subscribe() (<-chan State, func()) {
	m.lock.Lock()
	defer m.lock.Unlock()

	ch := make(chan State, 1)
	if m.closed {
		close(ch)
		return ch, func() {}
	}
	id := m.nextSubID
	m.nextSubID++
	m.subscribers[id] = ch
	ch <- m.state

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			m.lock.Lock()
			defer m.lock.Unlock()
			if sub, ok := m.subscribers[id]; ok {
				delete(m.subscribers, id)
				close(sub)
			}
		})
	}
}

// Close ends every subscription. The manager keeps working for direct calls.
func (m *Manager) Close() {
	m.lock.Lock()
	defer m.lock.Unlock()
	for id, ch := range m.subscribers {
		delete(m.subscribers, id)
		close(ch)
	}
	m.closed = true
}

// Bootstrap restores the persisted session. With a stored access token the
// session becomes authenticated immediately with the cached profile, then the
// profile is revalidated against the server. Loading clears once that attempt
// completes, whatever its outcome.
func (m *Manager) Bootstrap(ctx context.Context) error {
	defer m.update(func(s *State) { s.Loading = false })

	token, err := m.store.AccessToken(ctx)
	if err != nil {
		m.update(func(s *State) { *s = State{Status: Unauthenticated, Loading: true} })
		return errors.Wrap(err, "restore access token")
	}
	cached, err := m.store.Profile(ctx)
	if err != nil {
		m.logger.Warn().Err(err).Msg("Failed to read cached profile")
	}

	if token == "" {
		m.update(func(s *State) { *s = State{Status: Unauthenticated, Loading: true} })
		return nil
	}

	m.update(func(s *State) {
		*s = State{Status: Authenticated, Token: token, Profile: cached, Loading: true}
	})
	if _, err := m.RefreshAndSetProfile(ctx); err != nil {
		m.logger.Warn().Err(err).Msg("Could not revalidate profile, keeping cached session")
	}
	return nil
}

// Login authenticates, persists both tokens and loads the full profile.
// Errors are returned to the caller; the session stays unauthenticated.
func (m *Manager) Login(ctx context.Context, creds hrapi.Credentials) error {
	m.update(func(s *State) {
		*s = State{Status: Authenticating, Loading: true}
	})

	result, err := m.api.Login(ctx, creds)
	if err == nil {
		err = m.store.SaveTokens(ctx, result.AccessToken, result.RefreshToken)
	}
	if err != nil {
		m.logger.Warn().Err(err).Str("employee_id", creds.EmployeeID).Msg("Login failed")
		if clearErr := m.store.Clear(ctx); clearErr != nil {
			m.logger.Error().Err(clearErr).Msg("Failed to clear credentials after failed login")
		}
		m.update(func(s *State) { *s = State{Status: Unauthenticated} })
		return err
	}

	user := result.User
	m.update(func(s *State) {
		*s = State{Status: Authenticated, Token: result.AccessToken, Profile: &user, Loading: true}
	})

	// The login response only carries part of the profile.
	if _, err := m.RefreshAndSetProfile(ctx); err != nil {
		m.logger.Warn().Err(err).Msg("Could not load full profile after login")
		if !m.State().IsAuthenticated() {
			return err
		}
		if saveErr := m.store.SaveProfile(ctx, &user); saveErr != nil {
			m.logger.Warn().Err(saveErr).Msg("Failed to cache login profile")
		}
	}

	m.update(func(s *State) { s.Loading = false })
	return nil
}

// Logout clears credentials and the cached profile. It never fails; storage
// errors are logged.
func (m *Manager) Logout(ctx context.Context) {
	m.lock.Lock()
	ownerID := m.ownerIDLocked()
	m.lock.Unlock()

	m.update(func(s *State) { s.Loading = true })

	if err := m.store.Clear(ctx); err != nil {
		m.logger.Error().Err(err).Msg("Failed to clear credentials on logout")
	}
	for _, hook := range m.logoutHooks {
		hook(ctx, ownerID)
	}

	m.update(func(s *State) { *s = State{Status: Unauthenticated} })
	m.logger.Info().Msg("Logged out")
}

// HandleSessionExpired is registered with the gateway, which calls it when the
// refresh token is missing or rejected.
func (m *Manager) HandleSessionExpired(ctx context.Context, cause error) {
	m.logger.Info().Err(cause).Msg("Session expired, logging out")
	m.Logout(ctx)
}

// RefreshAndSetProfile fetches the profile, caches it and publishes it. A 401
// that survives the gateway's single retry ends the session; refresh failures
// have already been handled by the gateway.
func (m *Manager) RefreshAndSetProfile(ctx context.Context) (*profile.Profile, error) {
	p, err := m.api.GetProfile(ctx)
	if err != nil {
		if errors.Is(err, apperrors.ErrAuthenticationExpired) &&
			!errors.Is(err, apperrors.ErrRefreshFailed) &&
			!errors.Is(err, apperrors.ErrSessionExpired) {
			m.logger.Info().Msg("Token rejected after retry, logging out")
			m.Logout(ctx)
		}
		return nil, err
	}

	if err := m.store.SaveProfile(ctx, p); err != nil {
		m.logger.Warn().Err(err).Msg("Failed to cache profile")
	}
	m.update(func(s *State) {
		if s.Status == Authenticated {
			s.Profile = p
		}
	})
	return p, nil
}

// UpdateProfile saves the editable fields and reloads the full profile.
func (m *Manager) UpdateProfile(ctx context.Context, update profile.Update) (*profile.Profile, error) {
	if _, err := m.api.UpdateProfile(ctx, update); err != nil {
		return nil, err
	}
	return m.RefreshAndSetProfile(ctx)
}

// OwnerID identifies the signed-in user: the profile ID when known, otherwise
// the access token's subject. Empty when signed out.
func (m *Manager) OwnerID() string {
	m.lock.Lock()
	defer m.lock.Unlock()
	return m.ownerIDLocked()
}

func (m *Manager) ownerIDLocked() string {
	if m.state.Status != Authenticated {
		return ""
	}
	if m.state.Profile != nil && m.state.Profile.ID != "" {
		return m.state.Profile.ID.String()
	}
	claims, err := credentials.ParseClaims(m.state.Token)
	if err != nil {
		return ""
	}
	return claims.Subject
}

func (m *Manager) update(mutate func(s *State)) {
	m.lock.Lock()
	defer m.lock.Unlock()
	mutate(&m.state)
	if m.closed {
		return
	}
	for _, ch := range m.subscribers {
		select {
		case <-ch:
		default:
		}
		ch <- m.state
	}
}
