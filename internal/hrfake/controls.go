package hrfake

import (
	"strings"
	"time"
)

// ExpireAccessTokens invalidates every access token issued so far.
func (s *Server) ExpireAccessTokens() {
	s.lock.Lock()
	defer s.lock.Unlock()
	s.tokenGen++
}

// RevokeRefreshTokens invalidates every refresh token issued so far.
func (s *Server) RevokeRefreshTokens() {
	s.lock.Lock()
	defer s.lock.Unlock()
	s.refreshTokens = make(map[string]string)
}

// FailNext makes the next call to method+path answer with status instead of
// being handled. Calls queue up: FailNext twice fails the next two calls.
func (s *Server) FailNext(method, path string, status int) {
	s.lock.Lock()
	defer s.lock.Unlock()
	key := routeKey(method, path)
	s.failures[key] = append(s.failures[key], status)
}

// Calls returns how many requests reached method+path, including injected failures.
func (s *Server) Calls(method, path string) int {
	s.lock.Lock()
	defer s.lock.Unlock()
	return s.calls[routeKey(method, path)]
}

// AuthorizationHeaders returns the Authorization header of every call to method+path, in order.
func (s *Server) AuthorizationHeaders(method, path string) []string {
	s.lock.Lock()
	defer s.lock.Unlock()
	return append([]string(nil), s.authHeaders[routeKey(method, path)]...)
}

// SetBareLeaveList switches GET /leave_requests between {"requests": [...]} and a bare array.
func (s *Server) SetBareLeaveList(bare bool) {
	s.lock.Lock()
	defer s.lock.Unlock()
	s.bareList = bare
}

// SetLatency delays every response.
func (s *Server) SetLatency(d time.Duration) {
	s.lock.Lock()
	defer s.lock.Unlock()
	s.latency = d
}

// SetRouteLatency delays responses to method+path only, overriding SetLatency.
func (s *Server) SetRouteLatency(method, path string, d time.Duration) {
	s.lock.Lock()
	defer s.lock.Unlock()
	s.routeLatency[routeKey(method, path)] = d
}

func routeKey(method, path string) string {
	return strings.ToUpper(method) + " " + path
}
