package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/kursadbilgin/workshop-checkin/internal/domain"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type AttendanceRepository interface {
	InsertIfAbsent(ctx context.Context, record *domain.AttendanceRecord) (*domain.AttendanceRecord, bool, error)
	GetByAttendeeID(ctx context.Context, attendeeID string) (*domain.AttendanceRecord, error)
	CountCheckedIn(ctx context.Context) (int64, error)
}

type GormAttendanceRepo struct {
	db *gorm.DB
}

func NewGormAttendanceRepo(db *gorm.DB) *GormAttendanceRepo {
	return &GormAttendanceRepo{db: db}
}

// InsertIfAbsent creates the attendance record unless one already exists for
// the attendee. It returns the stored record and whether this call created it.
// A single ON CONFLICT DO NOTHING statement keeps concurrent scans race-free.
func (r *GormAttendanceRepo) InsertIfAbsent(ctx context.Context, record *domain.AttendanceRecord) (*domain.AttendanceRecord, bool, error) {
	model := attendanceModelFromDomain(record)
	if model == nil {
		return nil, false, fmt.Errorf("%w: attendance record is required", domain.ErrValidation)
	}

	result := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "attendee_id"}},
			DoNothing: true,
		}).
		Create(model)
	if result.Error != nil {
		return nil, false, result.Error
	}
	if result.RowsAffected == 1 {
		return attendanceModelToDomain(model), true, nil
	}

	existing, err := r.GetByAttendeeID(ctx, record.AttendeeID)
	if err != nil {
		return nil, false, err
	}
	return existing, false, nil
}

func (r *GormAttendanceRepo) GetByAttendeeID(ctx context.Context, attendeeID string) (*domain.AttendanceRecord, error) {
	var model AttendanceModel
	err := r.db.WithContext(ctx).
		Where("attendee_id = ?", attendeeID).
		First(&model).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("attendance for %q: %w", attendeeID, domain.ErrNotFound)
	}
	if err != nil {
		return nil, err
	}
	return attendanceModelToDomain(&model), nil
}

func (r *GormAttendanceRepo) CountCheckedIn(ctx context.Context) (int64, error) {
	var count int64
	if err := r.db.WithContext(ctx).Model(&AttendanceModel{}).Count(&count).Error; err != nil {
		return 0, err
	}
	return count, nil
}
