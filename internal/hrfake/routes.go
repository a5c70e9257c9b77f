package hrfake

import "net/http"

const (
	RouteStatus        = "/status"
	RouteLogin         = "/login"
	RouteRefreshToken  = "/refresh_token"
	RouteProfile       = "/profile"
	RouteLeaveBalance  = "/leave_balance"
	RouteLeaveTypes    = "/leave_types"
	RouteLeaveRequests = "/leave_requests"
	RouteLeaveRequest  = "/leave_requests/{id}"
)

func (s *Server) initRoutes() {
	s.RegisterRouteFunc(http.MethodGet, RouteStatus, ChainMiddleware(s.StatusHandler(), s.APIMiddleware()...))

	s.RegisterRouteFunc(http.MethodPost, RouteLogin, ChainMiddleware(s.LoginHandler(), s.APIMiddleware()...))
	s.RegisterRouteFunc(http.MethodPost, RouteRefreshToken, ChainMiddleware(s.RefreshTokenHandler(), s.APIMiddleware()...))

	s.RegisterRouteFunc(http.MethodGet, RouteProfile, ChainMiddleware(s.GetProfileHandler(), s.APIMiddleware(s.RequireAuth)...))
	s.RegisterRouteFunc(http.MethodPut, RouteProfile, ChainMiddleware(s.UpdateProfileHandler(), s.APIMiddleware(s.RequireAuth)...))

	s.RegisterRouteFunc(http.MethodGet, RouteLeaveBalance, ChainMiddleware(s.LeaveBalanceHandler(), s.APIMiddleware(s.RequireAuth)...))
	s.RegisterRouteFunc(http.MethodGet, RouteLeaveTypes, ChainMiddleware(s.LeaveTypesHandler(), s.APIMiddleware(s.RequireAuth)...))
	s.RegisterRouteFunc(http.MethodGet, RouteLeaveRequests, ChainMiddleware(s.ListLeaveRequestsHandler(), s.APIMiddleware(s.RequireAuth)...))
	s.RegisterRouteFunc(http.MethodPost, RouteLeaveRequests, ChainMiddleware(s.SubmitLeaveRequestHandler(), s.APIMiddleware(s.RequireAuth)...))
	s.RegisterRouteFunc(http.MethodDelete, RouteLeaveRequest, ChainMiddleware(s.CancelLeaveRequestHandler(), s.APIMiddleware(s.RequireAuth)...))
}
