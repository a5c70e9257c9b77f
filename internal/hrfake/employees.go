package hrfake

import (
	"fmt"
	"sort"
	"time"

	"github.com/jrsteele09/go-hr-client/leave"
	"github.com/jrsteele09/go-hr-client/profile"
	"golang.org/x/crypto/bcrypt"
)

type employee struct {
	profile      profile.Profile
	passwordHash []byte
	balance      leave.Balance
	requests     []leave.Request
}

// Employee is the seed data for one account.
type Employee struct {
	Profile  profile.Profile
	Password string
	Balance  leave.Balance
}

// AddEmployee registers an account that can log in with Profile.EmployeeID and Password.
func (s *Server) AddEmployee(e Employee) error {
	if e.Profile.EmployeeID == "" || e.Profile.ID == "" {
		return fmt.Errorf("employee_id and id are required")
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(e.Password), bcrypt.MinCost)
	if err != nil {
		return fmt.Errorf("hash password: %w", err)
	}

	s.lock.Lock()
	defer s.lock.Unlock()
	s.employees[e.Profile.EmployeeID] = &employee{
		profile:      e.Profile,
		passwordHash: hash,
		balance:      e.Balance,
	}
	return nil
}

// AddLeaveRequest stores a request for an employee. A zero ID is assigned.
func (s *Server) AddLeaveRequest(employeeID string, r leave.Request) (leave.Request, error) {
	s.lock.Lock()
	defer s.lock.Unlock()

	emp, ok := s.employees[employeeID]
	if !ok {
		return leave.Request{}, fmt.Errorf("unknown employee %s", employeeID)
	}
	if r.ID == 0 {
		r.ID = s.nextLeaveID
	}
	if r.ID >= s.nextLeaveID {
		s.nextLeaveID = r.ID + 1
	}
	if r.Status == "" {
		r.Status = leave.StatusPending
	}
	if r.SubmissionDate.IsZero() {
		r.SubmissionDate = s.nowTime().UTC()
	}
	if r.LeaveTypeName == "" {
		r.LeaveTypeName = s.leaveTypeName(r.LeaveTypeID)
	}
	emp.requests = append(emp.requests, r)
	return r, nil
}

// LeaveRequests returns the server side copy of an employee's requests, newest first.
func (s *Server) LeaveRequests(employeeID string) []leave.Request {
	s.lock.Lock()
	defer s.lock.Unlock()
	emp, ok := s.employees[employeeID]
	if !ok {
		return nil
	}
	return sortedCopy(emp.requests)
}

// Seed loads a demo account (E1 / password) with a few requests.
func (s *Server) Seed() error {
	if err := s.AddEmployee(Employee{
		Profile: profile.Profile{
			ID:          "1",
			EmployeeID:  "E1",
			Name:        "Amina Haddad",
			Email:       "amina.haddad@example.com",
			Department:  "Engineering",
			Position:    "Software Engineer",
			JoiningDate: "2022-09-01",
		},
		Password: "password",
		Balance:  leave.Balance{AnnualLeaveBalance: 18, SickLeaveBalance: 7},
	}); err != nil {
		return err
	}

	now := s.nowTime().UTC()
	seed := []leave.Request{
		{LeaveTypeID: 1, StartDate: leave.NewDate(now.Year(), now.Month(), 1), EndDate: leave.NewDate(now.Year(), now.Month(), 3), Reason: "Family visit", Status: leave.StatusApproved, SubmissionDate: now.Add(-30 * 24 * time.Hour)},
		{LeaveTypeID: 2, StartDate: leave.NewDate(now.Year(), now.Month(), 10), EndDate: leave.NewDate(now.Year(), now.Month(), 10), Reason: "Dentist", Status: leave.StatusRejected, SubmissionDate: now.Add(-10 * 24 * time.Hour)},
		{LeaveTypeID: 1, StartDate: leave.NewDate(now.Year(), now.Month()+1, 20), EndDate: leave.NewDate(now.Year(), now.Month()+1, 24), Reason: "Holiday", Status: leave.StatusPending, SubmissionDate: now.Add(-24 * time.Hour)},
	}
	for _, r := range seed {
		if _, err := s.AddLeaveRequest("E1", r); err != nil {
			return err
		}
	}
	return nil
}

func (s *Server) employeeByProfileID(id string) (*employee, bool) {
	for _, e := range s.employees {
		if e.profile.ID.String() == id {
			return e, true
		}
	}
	return nil, false
}

func (s *Server) leaveTypeName(id int64) string {
	for _, lt := range s.leaveTypes {
		if lt.ID == id {
			return lt.Name
		}
	}
	return ""
}

func sortedCopy(reqs []leave.Request) []leave.Request {
	out := make([]leave.Request, len(reqs))
	copy(out, reqs)
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].SubmissionDate.After(out[j].SubmissionDate)
	})
	return out
}
