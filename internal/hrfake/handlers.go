package hrfake

import (
	"encoding/json"
	"errors"
	"math"
	"net/http"
	"strconv"

	apperrors "github.com/jrsteele09/go-hr-client/internal/errors"
	"github.com/jrsteele09/go-hr-client/leave"
	"github.com/jrsteele09/go-hr-client/profile"
	"github.com/rs/zerolog/log"
	"golang.org/x/crypto/bcrypt"
)

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Err(err).Msg("Failed to encode response")
	}
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}

func (s *Server) StatusHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "HR Management System API is running"})
	}
}

func (s *Server) LoginHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var body struct {
			EmployeeID string `json:"employee_id"`
			Password   string `json:"password"`
		}
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil || body.EmployeeID == "" {
			writeError(w, http.StatusBadRequest, "employee_id and password are required")
			return
		}

		s.lock.Lock()
		defer s.lock.Unlock()

		emp, ok := s.employees[body.EmployeeID]
		if !ok || bcrypt.CompareHashAndPassword(emp.passwordHash, []byte(body.Password)) != nil {
			writeError(w, http.StatusUnauthorized, "Invalid employee ID or password")
			return
		}

		accessToken, err := s.issueAccessToken(emp)
		if err != nil {
			writeError(w, http.StatusInternalServerError, "Could not issue token")
			return
		}

		// The login response only carries a partial user; clients fetch /profile for the rest.
		writeJSON(w, http.StatusOK, map[string]any{
			"accessToken":  accessToken,
			"refreshToken": s.issueRefreshToken(emp),
			"user": map[string]any{
				"id":          emp.profile.ID,
				"employee_id": emp.profile.EmployeeID,
				"name":        emp.profile.Name,
			},
		})
	}
}

func (s *Server) RefreshTokenHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var body struct {
			RefreshToken string `json:"refreshToken"`
		}
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			writeError(w, http.StatusBadRequest, "refreshToken is required")
			return
		}

		s.lock.Lock()
		defer s.lock.Unlock()

		employeeID, ok := s.refreshTokens[body.RefreshToken]
		if !ok {
			writeError(w, http.StatusUnauthorized, "Invalid refresh token")
			return
		}
		accessToken, err := s.issueAccessToken(s.employees[employeeID])
		if err != nil {
			writeError(w, http.StatusInternalServerError, "Could not issue token")
			return
		}
		writeJSON(w, http.StatusOK, map[string]string{"accessToken": accessToken})
	}
}

func (s *Server) GetProfileHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		emp := employeeFrom(r)
		s.lock.Lock()
		p := emp.profile
		s.lock.Unlock()
		writeJSON(w, http.StatusOK, p)
	}
}

func (s *Server) UpdateProfileHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var update profile.Update
		if err := json.NewDecoder(r.Body).Decode(&update); err != nil {
			writeError(w, http.StatusBadRequest, "Invalid profile payload")
			return
		}
		if err := update.Validate(); err != nil {
			writeError(w, http.StatusBadRequest, apperrors.UserMessage(err, "Invalid request"))
			return
		}

		emp := employeeFrom(r)
		s.lock.Lock()
		emp.profile.Name = update.Name
		emp.profile.Email = update.Email
		if update.ContactNumber != "" {
			emp.profile.ContactNumber = update.ContactNumber
		}
		p := emp.profile
		s.lock.Unlock()

		writeJSON(w, http.StatusOK, p)
	}
}

func (s *Server) LeaveBalanceHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		emp := employeeFrom(r)
		s.lock.Lock()
		b := emp.balance
		s.lock.Unlock()
		writeJSON(w, http.StatusOK, b)
	}
}

func (s *Server) LeaveTypesHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		s.lock.Lock()
		types := append([]leave.Type(nil), s.leaveTypes...)
		s.lock.Unlock()
		writeJSON(w, http.StatusOK, types)
	}
}

// ListLeaveRequestsHandler supports ?status=, ?page= and ?per_page= (default: everything on one page).
func (s *Server) ListLeaveRequestsHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		emp := employeeFrom(r)
		s.lock.Lock()
		all := sortedCopy(emp.requests)
		bare := s.bareList
		s.lock.Unlock()

		if status := r.URL.Query().Get("status"); status != "" {
			want := leave.ParseStatus(status)
			filtered := all[:0]
			for _, req := range all {
				if req.Status == want {
					filtered = append(filtered, req)
				}
			}
			all = filtered
		}

		page := queryInt(r, "page", 1)
		perPage := queryInt(r, "per_page", len(all))
		totalPages := 1
		if perPage > 0 && len(all) > 0 {
			totalPages = int(math.Ceil(float64(len(all)) / float64(perPage)))
			start := min((page-1)*perPage, len(all))
			end := min(start+perPage, len(all))
			all = all[start:end]
		}

		if bare {
			writeJSON(w, http.StatusOK, all)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"requests": all, "totalPages": totalPages})
	}
}

func (s *Server) SubmitLeaveRequestHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var body leave.NewRequest
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			writeError(w, http.StatusBadRequest, "Invalid leave request payload")
			return
		}
		if err := body.Validate(); err != nil {
			writeError(w, http.StatusBadRequest, apperrors.UserMessage(err, "Invalid request"))
			return
		}

		emp := employeeFrom(r)
		s.lock.Lock()
		name := s.leaveTypeName(body.LeaveTypeID)
		employeeID := emp.profile.EmployeeID
		s.lock.Unlock()
		if name == "" {
			writeError(w, http.StatusBadRequest, "Unknown leave type")
			return
		}

		created, err := s.AddLeaveRequest(employeeID, leave.Request{
			LeaveTypeID:   body.LeaveTypeID,
			LeaveTypeName: name,
			StartDate:     body.StartDate,
			EndDate:       body.EndDate,
			Reason:        body.Reason,
			Status:        leave.StatusPending,
		})
		if err != nil {
			writeError(w, http.StatusInternalServerError, err.Error())
			return
		}
		writeJSON(w, http.StatusCreated, created)
	}
}

var errNotCancellable = errors.New("Only pending leave requests can be cancelled")

func (s *Server) CancelLeaveRequestHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
		if err != nil {
			writeError(w, http.StatusBadRequest, "Invalid leave request id")
			return
		}

		emp := employeeFrom(r)
		s.lock.Lock()
		err = cancelRequest(emp, id)
		s.lock.Unlock()

		switch {
		case errors.Is(err, errNotCancellable):
			writeError(w, http.StatusBadRequest, err.Error())
		case err != nil:
			writeError(w, http.StatusNotFound, "Leave request not found")
		default:
			writeJSON(w, http.StatusOK, map[string]string{"message": "Leave request cancelled"})
		}
	}
}

func cancelRequest(emp *employee, id int64) error {
	for i := range emp.requests {
		if emp.requests[i].ID != id {
			continue
		}
		if emp.requests[i].Status != leave.StatusPending {
			return errNotCancellable
		}
		emp.requests[i].Status = leave.StatusCancelled
		return nil
	}
	return errors.New("not found")
}

func queryInt(r *http.Request, name string, fallback int) int {
	v, err := strconv.Atoi(r.URL.Query().Get(name))
	if err != nil || v <= 0 {
		return fallback
	}
	return v
}
