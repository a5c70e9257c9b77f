package leave

import (
	"bytes"
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"time"
)

// Status is the approval state of a leave request.
type Status string

const (
	StatusPending   Status = "Pending"
	StatusApproved  Status = "Approved"
	StatusRejected  Status = "Rejected"
	StatusCancelled Status = "Cancelled"
)

// ParseStatus normalizes the casing used by the server ("pending", "PENDING").
// Unknown values are kept verbatim.
func ParseStatus(s string) Status {
	for _, st := range []Status{StatusPending, StatusApproved, StatusRejected, StatusCancelled} {
		if strings.EqualFold(s, string(st)) {
			return st
		}
	}
	if strings.EqualFold(s, "canceled") {
		return StatusCancelled
	}
	return Status(s)
}

// Type is an entry of GET /leave_types.
type Type struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
}

// Balance is the response of GET /leave_balance.
type Balance struct {
	AnnualLeaveBalance float64 `json:"annual_leave_balance"`
	SickLeaveBalance   float64 `json:"sick_leave_balance"`
}

// Request is one leave request as listed by GET /leave_requests and mirrored
// by the local cache.
type Request struct {
	ID             int64     `json:"id"`
	LeaveTypeID    int64     `json:"leave_type_id"`
	LeaveTypeName  string    `json:"leave_type_name"`
	StartDate      Date      `json:"start_date"`
	EndDate        Date      `json:"end_date"`
	Reason         string    `json:"reason"`
	Status         Status    `json:"status"`
	SubmissionDate time.Time `json:"submission_date"`
}

// wireRequest accepts both the flat leave_type_id/leave_type_name fields and
// the nested leave_type object.
type wireRequest struct {
	ID             int64  `json:"id"`
	LeaveTypeID    *int64 `json:"leave_type_id"`
	LeaveTypeName  string `json:"leave_type_name"`
	LeaveType      *Type  `json:"leave_type"`
	StartDate      Date   `json:"start_date"`
	EndDate        Date   `json:"end_date"`
	Reason         string `json:"reason"`
	Status         string `json:"status"`
	SubmissionDate string `json:"submission_date"`
}

func (r *Request) UnmarshalJSON(data []byte) error {
	var w wireRequest
	if err := json.Unmarshal(data, &w); err != nil {
		return err
	}

	*r = Request{
		ID:            w.ID,
		LeaveTypeName: w.LeaveTypeName,
		StartDate:     w.StartDate,
		EndDate:       w.EndDate,
		Reason:        w.Reason,
		Status:        ParseStatus(w.Status),
	}
	if w.LeaveTypeID != nil {
		r.LeaveTypeID = *w.LeaveTypeID
	}
	if w.LeaveType != nil {
		if r.LeaveTypeID == 0 {
			r.LeaveTypeID = w.LeaveType.ID
		}
		if r.LeaveTypeName == "" {
			r.LeaveTypeName = w.LeaveType.Name
		}
	}
	if w.SubmissionDate != "" {
		ts, err := ParseTimestamp(w.SubmissionDate)
		if err != nil {
			return fmt.Errorf("submission_date: %w", err)
		}
		r.SubmissionDate = ts
	}
	return nil
}

// IsPending reports whether the request can still be cancelled.
func (r Request) IsPending() bool {
	return r.Status == StatusPending
}

// ListPage is the paged form of the GET /leave_requests response.
type ListPage struct {
	Requests   []Request `json:"requests"`
	TotalPages int       `json:"totalPages,omitempty"`
}

// DecodeList decodes GET /leave_requests, which is either {"requests": [...]} or a bare array.
func DecodeList(data []byte) (ListPage, error) {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		return ListPage{}, nil
	}
	if data[0] == '[' {
		var reqs []Request
		if err := json.Unmarshal(data, &reqs); err != nil {
			return ListPage{}, err
		}
		return ListPage{Requests: reqs, TotalPages: 1}, nil
	}
	var page ListPage
	if err := json.Unmarshal(data, &page); err != nil {
		return ListPage{}, err
	}
	return page, nil
}

// SortBySubmissionDesc orders most recent first. Ties fall back to descending ID
// so equal inputs always produce the same order.
func SortBySubmissionDesc(reqs []Request) {
	sort.SliceStable(reqs, func(i, j int) bool {
		if !reqs[i].SubmissionDate.Equal(reqs[j].SubmissionDate) {
			return reqs[i].SubmissionDate.After(reqs[j].SubmissionDate)
		}
		return reqs[i].ID > reqs[j].ID
	})
}

// Find returns the request with the given ID.
func Find(reqs []Request, id int64) (Request, bool) {
	for _, r := range reqs {
		if r.ID == id {
			return r, true
		}
	}
	return Request{}, false
}
