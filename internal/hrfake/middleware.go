package hrfake

import (
	"context"
	"net/http"
	"strings"
	"time"
)

type contextKey string

const contextKeyEmployee contextKey = "employee"

func ChainMiddleware(routeFunction http.HandlerFunc, mw ...func(http.HandlerFunc) http.HandlerFunc) http.HandlerFunc {
	chainedHandler := routeFunction
	// Apply middleware in reverse order
	for i := len(mw) - 1; i >= 0; i-- {
		chainedHandler = mw[i](chainedHandler)
	}
	return chainedHandler
}

func (s *Server) APIMiddleware(mw ...func(http.HandlerFunc) http.HandlerFunc) []func(http.HandlerFunc) http.HandlerFunc {
	chained := []func(http.HandlerFunc) http.HandlerFunc{
		s.LoggingMiddleware,
		s.RecordingMiddleware,
		s.FaultMiddleware,
	}
	return append(chained, mw...)
}

func (s *Server) LoggingMiddleware(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if s.logRequest {
			logRoute(r.Method, r.URL.Path)
		}
		next(w, r)
	}
}

// RecordingMiddleware counts calls and keeps the Authorization header per route.
func (s *Server) RecordingMiddleware(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		key := routeKey(r.Method, strings.TrimPrefix(r.URL.Path, s.prefix))
		s.lock.Lock()
		s.calls[key]++
		s.authHeaders[key] = append(s.authHeaders[key], r.Header.Get("Authorization"))
		latency, ok := s.routeLatency[key]
		if !ok {
			latency = s.latency
		}
		s.lock.Unlock()

		if latency > 0 {
			select {
			case <-time.After(latency):
			case <-r.Context().Done():
				return
			}
		}
		next(w, r)
	}
}

// FaultMiddleware answers with a queued status from FailNext.
func (s *Server) FaultMiddleware(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		key := routeKey(r.Method, strings.TrimPrefix(r.URL.Path, s.prefix))
		s.lock.Lock()
		queued := s.failures[key]
		var status int
		if len(queued) > 0 {
			status = queued[0]
			s.failures[key] = queued[1:]
		}
		s.lock.Unlock()

		if status != 0 {
			writeError(w, status, http.StatusText(status))
			return
		}
		next(w, r)
	}
}

// RequireAuth validates the Bearer access token and injects the employee.
func (s *Server) RequireAuth(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		authHeader := r.Header.Get("Authorization")
		if authHeader == "" {
			writeError(w, http.StatusUnauthorized, "Missing Authorization header")
			return
		}

		parts := strings.SplitN(authHeader, " ", 2)
		if len(parts) != 2 || strings.ToLower(parts[0]) != "bearer" || parts[1] == "" {
			writeError(w, http.StatusUnauthorized, "Invalid Authorization header format")
			return
		}

		s.lock.Lock()
		emp, err := s.verifyAccessToken(parts[1])
		s.lock.Unlock()
		if err != nil {
			writeError(w, http.StatusUnauthorized, "Token is invalid or expired")
			return
		}

		next(w, r.WithContext(context.WithValue(r.Context(), contextKeyEmployee, emp)))
	}
}

func employeeFrom(r *http.Request) *employee {
	emp, _ := r.Context().Value(contextKeyEmployee).(*employee)
	return emp
}
