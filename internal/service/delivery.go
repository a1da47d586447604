package service

import (
	"context"
	"fmt"

	"github.com/kursadbilgin/workshop-checkin/internal/domain"
	"github.com/kursadbilgin/workshop-checkin/internal/repository"
)

// DeliveryQueryService serves read-only delivery state for dashboards.
type DeliveryQueryService struct {
	attendees  repository.AttendeeRepository
	attendance repository.AttendanceRepository
}

func NewDeliveryQueryService(attendees repository.AttendeeRepository, attendance repository.AttendanceRepository) (*DeliveryQueryService, error) {
	if attendees == nil || attendance == nil {
		return nil, fmt.Errorf("attendee and attendance repositories are required")
	}
	return &DeliveryQueryService{attendees: attendees, attendance: attendance}, nil
}

func (s *DeliveryQueryService) Status(ctx context.Context, attendeeID string) (domain.DeliveryStatus, error) {
	return s.attendees.GetDeliveryStatus(ctx, attendeeID)
}

func (s *DeliveryQueryService) Summary(ctx context.Context) (*domain.DeliverySummary, error) {
	rows, err := s.attendees.DeliverySummary(ctx)
	if err != nil {
		return nil, fmt.Errorf("delivery summary: %w", err)
	}
	checkedIn, err := s.attendance.CountCheckedIn(ctx)
	if err != nil {
		return nil, fmt.Errorf("count checked in: %w", err)
	}

	summary := &domain.DeliverySummary{CheckedIn: checkedIn, Rows: rows}
	for _, row := range rows {
		summary.TotalAttendees += row.Count
		if row.EmailStatus == domain.ChannelStatusSent && row.MessagingStatus == domain.ChannelStatusSent {
			summary.FullyDelivered += row.Count
		}
	}
	return summary, nil
}
