package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/jrsteele09/go-hr-client/credentials"
	apperrors "github.com/jrsteele09/go-hr-client/internal/errors"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"golang.org/x/oauth2"
	"golang.org/x/sync/singleflight"
)

const (
	// RefreshPath is the token refresh endpoint, called outside the retry protocol
	RefreshPath = "/refresh_token"

	defaultTimeout  = 10 * time.Second
	maxResponseSize = 10 << 20
)

// SessionExpiredHandler is invoked when the refresh token is missing or the
// refresh call fails. The session manager registers its logout here.
type SessionExpiredHandler func(ctx context.Context, cause error)

// Gateway is the single chokepoint for HR API calls. It decorates requests
// with the stored access token and, on a 401, refreshes the token and
// re-issues the request exactly once.
type Gateway struct {
	baseURL  string
	client   *http.Client
	timeout  time.Duration
	store    *credentials.Store
	logger   zerolog.Logger
	coalesce bool

	refreshGroup singleflight.Group

	handlerLock      sync.RWMutex
	onSessionExpired SessionExpiredHandler
}

// Option configures a Gateway.
type Option func(*Gateway)

// WithHTTPClient replaces the default client. Its Timeout is kept unless
// WithTimeout is also given.
func WithHTTPClient(client *http.Client) Option {
	return func(g *Gateway) {
		g.client = client
	}
}

// WithTimeout bounds each HTTP call. It applies to a copy of the client, so a
// shared client passed to WithHTTPClient is left untouched.
func WithTimeout(timeout time.Duration) Option {
	return func(g *Gateway) {
		g.timeout = timeout
	}
}

func WithLogger(logger zerolog.Logger) Option {
	return func(g *Gateway) {
		g.logger = logger
	}
}

// WithRefreshCoalescing shares one in-flight /refresh_token call between
// concurrent requests that hit a 401 with the same refresh token.
func WithRefreshCoalescing(enabled bool) Option {
	return func(g *Gateway) {
		g.coalesce = enabled
	}
}

func WithSessionExpiredHandler(handler SessionExpiredHandler) Option {
	return func(g *Gateway) {
		g.onSessionExpired = handler
	}
}

// New creates a gateway for the API rooted at baseURL (e.g. "https://hr.example.com/api").
func New(baseURL string, store *credentials.Store, options ...Option) *Gateway {
	g := &Gateway{
		baseURL:  strings.TrimRight(baseURL, "/"),
		client:   &http.Client{Timeout: defaultTimeout},
		store:    store,
		logger:   log.Logger,
		coalesce: true,
	}
	for _, opt := range options {
		opt(g)
	}
	if g.timeout > 0 {
		client := *g.client
		client.Timeout = g.timeout
		g.client = &client
	}
	return g
}

// OnSessionExpired sets the handler after construction, for components that
// are themselves built on top of the gateway.
func (g *Gateway) OnSessionExpired(handler SessionExpiredHandler) {
	g.handlerLock.Lock()
	defer g.handlerLock.Unlock()
	g.onSessionExpired = handler
}

// Do sends an authenticated request. Errors other than a 401 are returned
// unchanged and never retried.
func (g *Gateway) Do(ctx context.Context, req *Request) (*Response, error) {
	token, err := g.currentToken(ctx)
	if err != nil {
		return nil, err
	}
	return g.do(ctx, req, token)
}

// DoAnonymous sends a request without credentials and without the refresh
// protocol. Used for /login and /refresh_token.
func (g *Gateway) DoAnonymous(ctx context.Context, req *Request) (*Response, error) {
	return g.send(ctx, req, nil)
}

func (g *Gateway) do(ctx context.Context, req *Request, token *oauth2.Token) (*Response, error) {
	resp, err := g.send(ctx, req, token)
	if err == nil {
		return resp, nil
	}
	if !errors.Is(err, apperrors.ErrAuthenticationExpired) {
		return nil, err
	}
	if req.retry {
		g.logger.Warn().Str("method", req.Method).Str("path", req.Path).Msg("Retried request rejected again, not refreshing")
		return nil, err
	}

	newToken, err := g.tokenForRetry(ctx, token)
	if err != nil {
		return nil, err
	}

	retry := *req
	retry.retry = true
	return g.do(ctx, &retry, newToken)
}

// tokenForRetry returns the access token to re-issue a rejected request with.
func (g *Gateway) tokenForRetry(ctx context.Context, used *oauth2.Token) (*oauth2.Token, error) {
	if g.coalesce && used != nil {
		// Another request may already have refreshed while this one was in flight.
		if current, err := g.store.AccessToken(ctx); err == nil && current != "" && current != used.AccessToken {
			g.logger.Debug().Msg("Access token already refreshed, retrying with stored token")
			return bearer(current), nil
		}
	}

	refreshToken, err := g.store.RefreshToken(ctx)
	if err != nil {
		return nil, fmt.Errorf("read refresh token: %w", err)
	}
	if refreshToken == "" {
		g.logger.Info().Msg("No refresh token found, logging out")
		g.expire(ctx, apperrors.ErrSessionExpired)
		return nil, apperrors.ErrSessionExpired
	}

	if !g.coalesce {
		accessToken, err := g.refresh(ctx, refreshToken)
		if err != nil {
			return nil, err
		}
		return bearer(accessToken), nil
	}

	// The shared call outlives any single waiter; each waiter still honours its own ctx.
	ch := g.refreshGroup.DoChan(refreshToken, func() (any, error) {
		return g.refresh(context.WithoutCancel(ctx), refreshToken)
	})
	select {
	case <-ctx.Done():
		return nil, fmt.Errorf("waiting for token refresh: %w", ctx.Err())
	case res := <-ch:
		if res.Err != nil {
			return nil, res.Err
		}
		if res.Shared {
			g.logger.Debug().Msg("Joined in-flight token refresh")
		}
		return bearer(res.Val.(string)), nil
	}
}

// refresh exchanges the refresh token for a new access token and persists it.
// A failure logs the user out unless it was caused by ctx ending.
func (g *Gateway) refresh(ctx context.Context, refreshToken string) (string, error) {
	resp, err := g.DoAnonymous(ctx, Post(RefreshPath, map[string]string{"refreshToken": refreshToken}))
	var accessToken string
	if err == nil {
		accessToken, err = DecodeAccessToken(resp)
	}
	if err == nil {
		err = g.store.SaveAccessToken(ctx, accessToken)
	}
	if err != nil && ctx.Err() != nil {
		g.logger.Debug().Err(err).Msg("Token refresh abandoned")
		return "", fmt.Errorf("token refresh: %w", ctx.Err())
	}
	if err != nil {
		refreshErr := fmt.Errorf("%w: %w", apperrors.ErrRefreshFailed, err)
		g.logger.Error().Err(err).Msg("Error refreshing token")
		g.expire(ctx, refreshErr)
		return "", refreshErr
	}

	g.logger.Debug().Msg("Access token refreshed")
	return accessToken, nil
}

// DecodeAccessToken reads the accessToken field of a login or refresh response.
func DecodeAccessToken(resp *Response) (string, error) {
	var body struct {
		AccessToken string `json:"accessToken"`
	}
	if err := resp.DecodeJSON(&body); err != nil {
		return "", err
	}
	if body.AccessToken == "" {
		return "", errors.New("response missing accessToken")
	}
	return body.AccessToken, nil
}

func (g *Gateway) expire(ctx context.Context, cause error) {
	g.handlerLock.RLock()
	handler := g.onSessionExpired
	g.handlerLock.RUnlock()
	if handler != nil {
		handler(context.WithoutCancel(ctx), cause)
	}
}

func (g *Gateway) currentToken(ctx context.Context) (*oauth2.Token, error) {
	token, err := g.store.BearerToken(ctx)
	if errors.Is(err, apperrors.ErrNotAuthenticated) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read access token: %w", err)
	}
	return token, nil
}

func (g *Gateway) send(ctx context.Context, req *Request, token *oauth2.Token) (*Response, error) {
	var body io.Reader
	if req.Body != nil {
		b, err := json.Marshal(req.Body)
		if err != nil {
			return nil, fmt.Errorf("encode %s %s: %w", req.Method, req.Path, err)
		}
		body = bytes.NewReader(b)
	}

	httpReq, err := http.NewRequestWithContext(ctx, req.Method, g.baseURL+req.Path, body)
	if err != nil {
		return nil, fmt.Errorf("build %s %s: %w", req.Method, req.Path, err)
	}
	if len(req.Query) > 0 {
		httpReq.URL.RawQuery = req.Query.Encode()
	}
	httpReq.Header.Set("Accept", "application/json")
	if body != nil {
		httpReq.Header.Set("Content-Type", "application/json")
	}
	if token != nil {
		token.SetAuthHeader(httpReq)
	}

	start := time.Now()
	httpResp, err := g.client.Do(httpReq)
	if err != nil {
		if errors.Is(err, context.Canceled) {
			return nil, fmt.Errorf("%s %s: %w", req.Method, req.Path, err)
		}
		return nil, fmt.Errorf("%w: %s %s: %w", apperrors.ErrNetworkUnavailable, req.Method, req.Path, err)
	}
	defer httpResp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(httpResp.Body, maxResponseSize))
	if err != nil {
		return nil, fmt.Errorf("%w: read %s %s: %w", apperrors.ErrNetworkUnavailable, req.Method, req.Path, err)
	}

	g.logger.Debug().
		Str("method", req.Method).
		Str("path", req.Path).
		Int("status", httpResp.StatusCode).
		Bool("retry", req.retry).
		Dur("elapsed", time.Since(start)).
		Msg("HR API call")

	if httpResp.StatusCode >= http.StatusBadRequest {
		return nil, apperrors.NewAPIError(httpResp.StatusCode, serverMessage(data))
	}

	return &Response{StatusCode: httpResp.StatusCode, Header: httpResp.Header, Body: data}, nil
}

// serverMessage extracts the error text from {"error": "..."} or {"message": "..."}.
func serverMessage(data []byte) string {
	var body struct {
		Error   any    `json:"error"`
		Message string `json:"message"`
	}
	if err := json.Unmarshal(data, &body); err != nil {
		return ""
	}
	if s, ok := body.Error.(string); ok && s != "" {
		return s
	}
	return body.Message
}

func bearer(accessToken string) *oauth2.Token {
	return &oauth2.Token{AccessToken: accessToken, TokenType: "Bearer"}
}
