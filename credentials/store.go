package credentials

import (
	"context"
	"errors"

	apperrors "github.com/jrsteele09/go-hr-client/internal/errors"
	"github.com/jrsteele09/go-hr-client/profile"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"golang.org/x/oauth2"
)

// Store is the Persistent Credential Store. Every read goes to the Repo so a
// token written by a refresh is visible to the next request without any
// in-memory copy.
type Store struct {
	repo   Repo
	logger zerolog.Logger
}

type StoreOption func(*Store)

func WithLogger(logger zerolog.Logger) StoreOption {
	return func(s *Store) {
		s.logger = logger
	}
}

func NewStore(repo Repo, options ...StoreOption) *Store {
	s := &Store{repo: repo, logger: log.Logger}
	for _, opt := range options {
		opt(s)
	}
	return s
}

// AccessToken returns "" when no token is stored.
func (s *Store) AccessToken(ctx context.Context) (string, error) {
	return s.optional(ctx, KeyAccessToken)
}

// RefreshToken returns "" when no token is stored.
func (s *Store) RefreshToken(ctx context.Context) (string, error) {
	return s.optional(ctx, KeyRefreshToken)
}

// SaveTokens persists both tokens after a successful login.
func (s *Store) SaveTokens(ctx context.Context, accessToken, refreshToken string) error {
	if err := s.repo.Set(ctx, KeyAccessToken, accessToken); err != nil {
		return err
	}
	return s.repo.Set(ctx, KeyRefreshToken, refreshToken)
}

// SaveAccessToken persists a refreshed access token.
func (s *Store) SaveAccessToken(ctx context.Context, accessToken string) error {
	return s.repo.Set(ctx, KeyAccessToken, accessToken)
}

// BearerToken returns the current access token as an OAuth2 bearer credential.
func (s *Store) BearerToken(ctx context.Context) (*oauth2.Token, error) {
	accessToken, err := s.AccessToken(ctx)
	if err != nil {
		return nil, err
	}
	if accessToken == "" {
		return nil, apperrors.ErrNotAuthenticated
	}
	return &oauth2.Token{AccessToken: accessToken, TokenType: "Bearer"}, nil
}

// Profile returns the last known profile snapshot, or nil when there is none.
// A snapshot that no longer decodes is dropped rather than failing bootstrap.
func (s *Store) Profile(ctx context.Context) (*profile.Profile, error) {
	raw, err := s.optional(ctx, KeyProfile)
	if err != nil || raw == "" {
		return nil, err
	}
	p, err := profile.Decode(raw)
	if err != nil {
		s.logger.Warn().Err(err).Msg("Discarding unreadable cached profile")
		if delErr := s.repo.Delete(ctx, KeyProfile); delErr != nil {
			s.logger.Error().Err(delErr).Msg("Failed to delete unreadable cached profile")
		}
		return nil, nil
	}
	return p, nil
}

func (s *Store) SaveProfile(ctx context.Context, p *profile.Profile) error {
	raw, err := p.Encode()
	if err != nil {
		return err
	}
	return s.repo.Set(ctx, KeyProfile, raw)
}

// Clear removes both tokens and the profile snapshot.
func (s *Store) Clear(ctx context.Context) error {
	return s.repo.Delete(ctx, KeyAccessToken, KeyRefreshToken, KeyProfile)
}

func (s *Store) optional(ctx context.Context, key string) (string, error) {
	v, err := s.repo.Get(ctx, key)
	if errors.Is(err, apperrors.ErrNotFound) {
		return "", nil
	}
	return v, err
}
