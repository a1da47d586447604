package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/kursadbilgin/workshop-checkin/internal/domain"
	"gorm.io/gorm"
)

type AttendeeRepository interface {
	Create(ctx context.Context, a *domain.Attendee) error
	CreateBatch(ctx context.Context, attendees []*domain.Attendee) error
	GetByID(ctx context.Context, id string) (*domain.Attendee, error)
	GetByCredentialToken(ctx context.Context, token string) (*domain.Attendee, error)
	UpdateDeliveryStatus(ctx context.Context, id string, status domain.DeliveryStatus) error
	GetDeliveryStatus(ctx context.Context, id string) (domain.DeliveryStatus, error)
	ListIncomplete(ctx context.Context, limit int) ([]domain.Attendee, error)
	DeliverySummary(ctx context.Context) ([]domain.DeliverySummaryRow, error)
}

type GormAttendeeRepo struct {
	db *gorm.DB
}

func NewGormAttendeeRepo(db *gorm.DB) *GormAttendeeRepo {
	return &GormAttendeeRepo{db: db}
}

func (r *GormAttendeeRepo) Create(ctx context.Context, a *domain.Attendee) error {
	model := attendeeModelFromDomain(a)
	if model == nil {
		return fmt.Errorf("%w: attendee is required", domain.ErrValidation)
	}
	if err := r.db.WithContext(ctx).Create(model).Error; err != nil {
		return translateWriteError(err)
	}
	*a = *attendeeModelToDomain(model)
	return nil
}

// CreateBatch inserts every attendee or none.
func (r *GormAttendeeRepo) CreateBatch(ctx context.Context, attendees []*domain.Attendee) error {
	models := make([]AttendeeModel, 0, len(attendees))
	modelIndexes := make([]int, 0, len(attendees))
	for i, a := range attendees {
		model := attendeeModelFromDomain(a)
		if model != nil {
			models = append(models, *model)
			modelIndexes = append(modelIndexes, i)
		}
	}

	if len(models) == 0 {
		return nil
	}

	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return tx.CreateInBatches(&models, 100).Error
	})
	if err != nil {
		return translateWriteError(err)
	}

	for i := range models {
		*attendees[modelIndexes[i]] = *attendeeModelToDomain(&models[i])
	}
	return nil
}

func (r *GormAttendeeRepo) GetByID(ctx context.Context, id string) (*domain.Attendee, error) {
	var model AttendeeModel
	err := r.db.WithContext(ctx).First(&model, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("attendee %q: %w", id, domain.ErrNotFound)
	}
	if err != nil {
		return nil, err
	}
	return attendeeModelToDomain(&model), nil
}

func (r *GormAttendeeRepo) GetByCredentialToken(ctx context.Context, token string) (*domain.Attendee, error) {
	var model AttendeeModel
	err := r.db.WithContext(ctx).
		Where("credential_token = ?", token).
		First(&model).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("credential token: %w", domain.ErrNotFound)
	}
	if err != nil {
		return nil, err
	}
	return attendeeModelToDomain(&model), nil
}

// UpdateDeliveryStatus overwrites the delivery columns in place.
func (r *GormAttendeeRepo) UpdateDeliveryStatus(ctx context.Context, id string, status domain.DeliveryStatus) error {
	result := r.db.WithContext(ctx).
		Model(&AttendeeModel{}).
		Where("id = ?", id).
		Updates(map[string]any{
			"email_status":     status.EmailStatus,
			"messaging_status": status.MessagingStatus,
			"last_attempt_at":  status.LastAttemptAt,
			"last_error":       status.LastError,
			"updated_at":       time.Now().UTC(),
		})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return fmt.Errorf("attendee %q: %w", id, domain.ErrNotFound)
	}
	return nil
}

func (r *GormAttendeeRepo) GetDeliveryStatus(ctx context.Context, id string) (domain.DeliveryStatus, error) {
	var model AttendeeModel
	err := r.db.WithContext(ctx).
		Select("id", "email_status", "messaging_status", "last_attempt_at", "last_error").
		First(&model, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return domain.DeliveryStatus{}, fmt.Errorf("attendee %q: %w", id, domain.ErrNotFound)
	}
	if err != nil {
		return domain.DeliveryStatus{}, err
	}
	return deliveryStatusFromModel(&model), nil
}

// ListIncomplete returns up to limit attendees with at least one channel not
// sent, oldest first.
func (r *GormAttendeeRepo) ListIncomplete(ctx context.Context, limit int) ([]domain.Attendee, error) {
	if limit <= 0 {
		return []domain.Attendee{}, nil
	}

	var models []AttendeeModel
	err := r.db.WithContext(ctx).
		Where("email_status <> ? OR messaging_status <> ?", domain.ChannelStatusSent, domain.ChannelStatusSent).
		Order("created_at ASC").
		Order("id ASC").
		Limit(limit).
		Find(&models).Error
	if err != nil {
		return nil, err
	}

	attendees := make([]domain.Attendee, 0, len(models))
	for i := range models {
		attendees = append(attendees, *attendeeModelToDomain(&models[i]))
	}
	return attendees, nil
}

type deliverySummaryScan struct {
	EmailStatus     domain.ChannelStatus `gorm:"column:email_status"`
	MessagingStatus domain.ChannelStatus `gorm:"column:messaging_status"`
	Count           int64                `gorm:"column:count"`
}

func (r *GormAttendeeRepo) DeliverySummary(ctx context.Context) ([]domain.DeliverySummaryRow, error) {
	var scanned []deliverySummaryScan
	err := r.db.WithContext(ctx).
		Model(&AttendeeModel{}).
		Select("email_status, messaging_status, COUNT(*) as count").
		Group("email_status, messaging_status").
		Order("email_status, messaging_status").
		Scan(&scanned).Error
	if err != nil {
		return nil, err
	}

	rows := make([]domain.DeliverySummaryRow, 0, len(scanned))
	for _, s := range scanned {
		rows = append(rows, domain.DeliverySummaryRow{
			EmailStatus:     s.EmailStatus,
			MessagingStatus: s.MessagingStatus,
			Count:           s.Count,
		})
	}
	return rows, nil
}

func translateWriteError(err error) error {
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return fmt.Errorf("%w: %v", domain.ErrConflict, err)
	}
	return err
}
