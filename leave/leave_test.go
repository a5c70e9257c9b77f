package leave_test

import (
	"encoding/json"
	"testing"
	"time"

	apperrors "github.com/jrsteele09/go-hr-client/internal/errors"
	"github.com/jrsteele09/go-hr-client/leave"
	"github.com/stretchr/testify/require"
)

func TestDecodeList_BothShapes(t *testing.T) {
	t.Run("wrapped", func(t *testing.T) {
		page, err := leave.DecodeList([]byte(`{"requests": [{"id": 1, "status": "pending", "start_date": "2026-01-05", "end_date": "2026-01-06"}], "totalPages": 3}`))
		require.NoError(t, err)
		require.Len(t, page.Requests, 1)
		require.Equal(t, 3, page.TotalPages)
		require.Equal(t, leave.StatusPending, page.Requests[0].Status)
	})

	t.Run("bare array", func(t *testing.T) {
		page, err := leave.DecodeList([]byte(` [{"id": 1}, {"id": 2}]`))
		require.NoError(t, err)
		require.Len(t, page.Requests, 2)
	})

	t.Run("empty body", func(t *testing.T) {
		page, err := leave.DecodeList(nil)
		require.NoError(t, err)
		require.Empty(t, page.Requests)
	})

	t.Run("garbage", func(t *testing.T) {
		_, err := leave.DecodeList([]byte(`"nope"`))
		require.Error(t, err)
	})
}

func TestRequest_UnmarshalNestedLeaveType(t *testing.T) {
	var r leave.Request
	err := json.Unmarshal([]byte(`{
		"id": 9,
		"leave_type": {"id": 2, "name": "Sick Leave"},
		"start_date": "2026-03-01T00:00:00Z",
		"end_date": "2026-03-02",
		"reason": "flu",
		"status": "APPROVED",
		"submission_date": "2026-02-27 08:30:00"
	}`), &r)
	require.NoError(t, err)

	require.Equal(t, int64(2), r.LeaveTypeID)
	require.Equal(t, "Sick Leave", r.LeaveTypeName)
	require.Equal(t, "2026-03-01", r.StartDate.String())
	require.Equal(t, "2026-03-02", r.EndDate.String())
	require.Equal(t, leave.StatusApproved, r.Status)
	require.Equal(t, time.Date(2026, 2, 27, 8, 30, 0, 0, time.UTC), r.SubmissionDate)
	require.False(t, r.IsPending())
}

func TestRequest_FlatFieldsWin(t *testing.T) {
	var r leave.Request
	require.NoError(t, json.Unmarshal([]byte(`{"id": 1, "leave_type_id": 5, "leave_type_name": "Annual", "leave_type": {"id": 2, "name": "Sick"}}`), &r))
	require.Equal(t, int64(5), r.LeaveTypeID)
	require.Equal(t, "Annual", r.LeaveTypeName)
}

func TestSortBySubmissionDesc(t *testing.T) {
	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	reqs := []leave.Request{
		{ID: 1, SubmissionDate: base},
		{ID: 2, SubmissionDate: base.Add(48 * time.Hour)},
		{ID: 3, SubmissionDate: base},
		{ID: 4, SubmissionDate: base.Add(24 * time.Hour)},
	}
	leave.SortBySubmissionDesc(reqs)

	ids := make([]int64, 0, len(reqs))
	for _, r := range reqs {
		ids = append(ids, r.ID)
	}
	require.Equal(t, []int64{2, 4, 3, 1}, ids)
}

func TestParseStatus(t *testing.T) {
	require.Equal(t, leave.StatusCancelled, leave.ParseStatus("canceled"))
	require.Equal(t, leave.StatusRejected, leave.ParseStatus("rejected"))
	require.Equal(t, leave.Status("Escalated"), leave.ParseStatus("Escalated"))
}

func TestNewRequest_Validate(t *testing.T) {
	valid := leave.NewRequest{
		LeaveTypeID: 1,
		StartDate:   leave.NewDate(2026, 5, 1),
		EndDate:     leave.NewDate(2026, 5, 3),
		Reason:      "holiday",
	}
	require.NoError(t, valid.Validate())

	sameDay := valid
	sameDay.EndDate = sameDay.StartDate
	require.NoError(t, sameDay.Validate())

	backwards := valid
	backwards.EndDate = leave.NewDate(2026, 4, 30)
	err := backwards.Validate()
	require.ErrorIs(t, err, apperrors.ErrValidation)
	require.Contains(t, err.Error(), "end date cannot be before start date")

	missing := valid
	missing.Reason = " "
	require.ErrorIs(t, missing.Validate(), apperrors.ErrValidation)

	b, err := json.Marshal(valid)
	require.NoError(t, err)
	require.JSONEq(t, `{"leave_type_id": 1, "start_date": "2026-05-01", "end_date": "2026-05-03", "reason": "holiday"}`, string(b))
}
