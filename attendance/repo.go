package attendance

import (
	"context"
	"errors"
	"fmt"
	"time"

	apperrors "github.com/jrsteele09/go-hr-client/internal/errors"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Repo stores the tag registry and the attendance log.
type Repo interface {
	UpsertEmployee(ctx context.Context, e Employee) error
	// FindByTag returns errors.ErrNotFound for an unregistered tag
	FindByTag(ctx context.Context, tagID string) (*Employee, error)
	Insert(ctx context.Context, r Record) error
	// Log returns the newest records first. limit <= 0 means no limit.
	Log(ctx context.Context, employeeID string, limit int) ([]Record, error)
}

type employeeRow struct {
	ID     string `gorm:"primaryKey;column:id"`
	Name   string `gorm:"column:name;not null"`
	NFCTag string `gorm:"column:nfc_tag;uniqueIndex;not null"`
}

func (employeeRow) TableName() string {
	return "employees"
}

type recordRow struct {
	ID         string   `gorm:"primaryKey;column:id"`
	EmployeeID string   `gorm:"column:employee_id;index:idx_attendance_employee_time,priority:1;not null"`
	Type       string   `gorm:"column:type;not null"`
	Timestamp  int64    `gorm:"column:timestamp;index:idx_attendance_employee_time,priority:2"` // unix nanoseconds
	Latitude   *float64 `gorm:"column:latitude"`
	Longitude  *float64 `gorm:"column:longitude"`
}

func (recordRow) TableName() string {
	return "attendance"
}

var _ Repo = (*GormRepo)(nil)

type GormRepo struct {
	db *gorm.DB
}

// NewGormRepo migrates the employees and attendance tables.
func NewGormRepo(ctx context.Context, db *gorm.DB) (*GormRepo, error) {
	if err := db.WithContext(ctx).AutoMigrate(&employeeRow{}, &recordRow{}); err != nil {
		return nil, fmt.Errorf("failed to migrate attendance tables: %w", err)
	}
	return &GormRepo{db: db}, nil
}

// UpsertEmployee creates or renames an employee and (re)assigns the tag.
func (r *GormRepo) UpsertEmployee(ctx context.Context, e Employee) error {
	row := employeeRow{ID: e.ID, Name: e.Name, NFCTag: e.NFCTag}
	err := r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "id"}},
		DoUpdates: clause.AssignmentColumns([]string{"name", "nfc_tag"}),
	}).Create(&row).Error
	if err != nil {
		return fmt.Errorf("failed to save employee %s: %w", e.ID, err)
	}
	return nil
}

func (r *GormRepo) FindByTag(ctx context.Context, tagID string) (*Employee, error) {
	var row employeeRow
	err := r.db.WithContext(ctx).Where("nfc_tag = ?", tagID).First(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, apperrors.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to look up tag: %w", err)
	}
	return &Employee{ID: row.ID, Name: row.Name, NFCTag: row.NFCTag}, nil
}

func (r *GormRepo) Insert(ctx context.Context, rec Record) error {
	row := recordRow{
		ID:         rec.ID,
		EmployeeID: rec.EmployeeID,
		Type:       string(rec.Type),
		Timestamp:  rec.Timestamp.UnixNano(),
		Latitude:   rec.Latitude,
		Longitude:  rec.Longitude,
	}
	if err := r.db.WithContext(ctx).Create(&row).Error; err != nil {
		return fmt.Errorf("failed to record attendance: %w", err)
	}
	return nil
}

func (r *GormRepo) Log(ctx context.Context, employeeID string, limit int) ([]Record, error) {
	q := r.db.WithContext(ctx).Where("employee_id = ?", employeeID).Order("timestamp desc")
	if limit > 0 {
		q = q.Limit(limit)
	}
	var rows []recordRow
	if err := q.Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("failed to read attendance log: %w", err)
	}

	records := make([]Record, 0, len(rows))
	for _, row := range rows {
		records = append(records, Record{
			ID:         row.ID,
			EmployeeID: row.EmployeeID,
			Type:       Mode(row.Type),
			Timestamp:  time.Unix(0, row.Timestamp).UTC(),
			Latitude:   row.Latitude,
			Longitude:  row.Longitude,
		})
	}
	return records, nil
}
