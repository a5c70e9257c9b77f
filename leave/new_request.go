package leave

import (
	"strings"

	apperrors "github.com/jrsteele09/go-hr-client/internal/errors"
)

// NewRequest is the body of POST /leave_requests.
type NewRequest struct {
	LeaveTypeID int64  `json:"leave_type_id"`
	StartDate   Date   `json:"start_date"`
	EndDate     Date   `json:"end_date"`
	Reason      string `json:"reason"`
}

// Validate applies the submission form rules before anything is sent.
func (n NewRequest) Validate() error {
	if n.LeaveTypeID <= 0 || n.StartDate.IsZero() || n.EndDate.IsZero() || strings.TrimSpace(n.Reason) == "" {
		return apperrors.ValidationError("please fill in all fields")
	}
	if n.EndDate.Before(n.StartDate) {
		return apperrors.ValidationError("end date cannot be before start date")
	}
	return nil
}
