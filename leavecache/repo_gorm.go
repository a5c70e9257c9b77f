package leavecache

import (
	"context"
	"fmt"
	"time"

	"github.com/jrsteele09/go-hr-client/leave"
	"gorm.io/gorm"
)

// CachedLeaveRequest is one row of the leave_requests table.
type CachedLeaveRequest struct {
	OwnerID        string `gorm:"primaryKey;column:owner_id;index:idx_leave_owner_submitted,priority:1"`
	ID             int64  `gorm:"primaryKey;autoIncrement:false;column:id"`
	LeaveTypeID    int64  `gorm:"column:leave_type_id"`
	LeaveTypeName  string `gorm:"column:leave_type_name"`
	StartDate      string `gorm:"column:start_date"` // YYYY-MM-DD
	EndDate        string `gorm:"column:end_date"`   // YYYY-MM-DD
	Reason         string `gorm:"column:reason"`
	Status         string `gorm:"column:status"`
	SubmissionDate int64  `gorm:"column:submission_date;index:idx_leave_owner_submitted,priority:2"` // unix nanoseconds
}

func (CachedLeaveRequest) TableName() string {
	return "leave_requests"
}

func fromRequest(ownerID string, r leave.Request) CachedLeaveRequest {
	return CachedLeaveRequest{
		OwnerID:        ownerID,
		ID:             r.ID,
		LeaveTypeID:    r.LeaveTypeID,
		LeaveTypeName:  r.LeaveTypeName,
		StartDate:      r.StartDate.String(),
		EndDate:        r.EndDate.String(),
		Reason:         r.Reason,
		Status:         string(r.Status),
		SubmissionDate: r.SubmissionDate.UnixNano(),
	}
}

func (c CachedLeaveRequest) toRequest() (leave.Request, error) {
	start, err := leave.ParseDate(c.StartDate)
	if err != nil {
		return leave.Request{}, err
	}
	end, err := leave.ParseDate(c.EndDate)
	if err != nil {
		return leave.Request{}, err
	}
	return leave.Request{
		ID:             c.ID,
		LeaveTypeID:    c.LeaveTypeID,
		LeaveTypeName:  c.LeaveTypeName,
		StartDate:      start,
		EndDate:        end,
		Reason:         c.Reason,
		Status:         leave.ParseStatus(c.Status),
		SubmissionDate: time.Unix(0, c.SubmissionDate).UTC(),
	}, nil
}

var _ Repo = (*GormRepo)(nil)

// GormRepo stores the cache in the device database.
type GormRepo struct {
	db *gorm.DB
}

// NewGormRepo migrates the leave_requests table.
func NewGormRepo(ctx context.Context, db *gorm.DB) (*GormRepo, error) {
	if err := db.WithContext(ctx).AutoMigrate(&CachedLeaveRequest{}); err != nil {
		return nil, fmt.Errorf("failed to migrate leave cache: %w", err)
	}
	return &GormRepo{db: db}, nil
}

func (r *GormRepo) ReadAll(ctx context.Context, ownerID string) ([]leave.Request, error) {
	var rows []CachedLeaveRequest
	err := r.db.WithContext(ctx).
		Where("owner_id = ?", ownerID).
		Order("submission_date desc").
		Order("id desc").
		Find(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("failed to read leave cache: %w", err)
	}

	reqs := make([]leave.Request, 0, len(rows))
	for _, row := range rows {
		req, err := row.toRequest()
		if err != nil {
			return nil, fmt.Errorf("failed to decode cached leave request %d: %w", row.ID, err)
		}
		reqs = append(reqs, req)
	}
	return reqs, nil
}

func (r *GormRepo) ReplaceAll(ctx context.Context, ownerID string, reqs []leave.Request) error {
	if len(reqs) == 0 {
		return nil
	}
	reqs = dedupe(reqs)
	rows := make([]CachedLeaveRequest, 0, len(reqs))
	for _, req := range reqs {
		rows = append(rows, fromRequest(ownerID, req))
	}

	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("owner_id = ?", ownerID).Delete(&CachedLeaveRequest{}).Error; err != nil {
			return err
		}
		return tx.CreateInBatches(rows, 100).Error
	})
	if err != nil {
		return fmt.Errorf("failed to replace leave cache: %w", err)
	}
	return nil
}

func (r *GormRepo) Clear(ctx context.Context, ownerID string) error {
	if err := r.db.WithContext(ctx).Where("owner_id = ?", ownerID).Delete(&CachedLeaveRequest{}).Error; err != nil {
		return fmt.Errorf("failed to clear leave cache: %w", err)
	}
	return nil
}
