package hrfake

import (
	"fmt"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/jrsteele09/go-hr-client/leave"
	"github.com/rs/zerolog/log"
)

// Server is an in-process HR REST API with the endpoints the mobile client
// consumes. It backs the integration tests and the hrfake dev server.
type Server struct {
	mux        *http.ServeMux
	routes     []string
	prefix     string
	secret     []byte
	accessTTL  time.Duration
	logRequest bool
	nowTime    func() time.Time

	lock          sync.Mutex
	employees     map[string]*employee // keyed by employee_id (login identifier)
	refreshTokens map[string]string    // refresh token -> employee_id
	tokenGen      int                  // access tokens from older generations are rejected
	leaveTypes    []leave.Type
	nextLeaveID   int64
	bareList      bool
	latency       time.Duration
	routeLatency  map[string]time.Duration
	failures      map[string][]int
	calls         map[string]int
	authHeaders   map[string][]string
}

// Option configures a Server.
type Option func(*Server)

func WithSecret(secret string) Option {
	return func(s *Server) {
		s.secret = []byte(secret)
	}
}

// WithAccessTokenTTL sets the lifetime of issued access tokens.
func WithAccessTokenTTL(ttl time.Duration) Option {
	return func(s *Server) {
		s.accessTTL = ttl
	}
}

// WithPrefix sets the path all endpoints are mounted under (default "/api").
func WithPrefix(prefix string) Option {
	return func(s *Server) {
		s.prefix = strings.TrimRight(prefix, "/")
	}
}

// WithRequestLogging prints each request, coloured by method.
func WithRequestLogging(enabled bool) Option {
	return func(s *Server) {
		s.logRequest = enabled
	}
}

func WithNowTime(nowFunc func() time.Time) Option {
	return func(s *Server) {
		s.nowTime = nowFunc
	}
}

func New(options ...Option) *Server {
	s := &Server{
		mux:           http.NewServeMux(),
		prefix:        "/api",
		secret:        []byte("hrfake-secret"),
		accessTTL:     15 * time.Minute,
		nowTime:       time.Now,
		employees:     make(map[string]*employee),
		refreshTokens: make(map[string]string),
		leaveTypes: []leave.Type{
			{ID: 1, Name: "Annual Leave"},
			{ID: 2, Name: "Sick Leave"},
			{ID: 3, Name: "Unpaid Leave"},
		},
		nextLeaveID:  1,
		routeLatency: make(map[string]time.Duration),
		failures:     make(map[string][]int),
		calls:        make(map[string]int),
		authHeaders:  make(map[string][]string),
	}
	for _, opt := range options {
		opt(s)
	}

	s.initRoutes()
	if s.logRequest {
		s.logRoutes()
	}
	return s
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.mux.ServeHTTP(w, r)
}

func (s *Server) RegisterRouteFunc(method, path string, handler http.HandlerFunc) {
	pattern := method + " " + s.prefix + path
	s.routes = append(s.routes, pattern)
	s.mux.HandleFunc(pattern, handler)
}

func (s *Server) logRoutes() {
	for _, route := range s.routes {
		parts := strings.SplitN(route, " ", 2)
		logRoute(parts[0], parts[1])
	}
}

func logRoute(method, path string) {
	displayMethod := fmt.Sprintf(" %-7s", method)
	if color, ok := methodColors[method]; ok {
		displayMethod = color + displayMethod + ResetColor
	}
	log.Info().Msgf("[%-19s] %s", displayMethod, path)
}
