package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/kursadbilgin/workshop-checkin/internal/domain"
	"github.com/kursadbilgin/workshop-checkin/internal/observability"
	"github.com/kursadbilgin/workshop-checkin/internal/queue"
	"github.com/kursadbilgin/workshop-checkin/internal/repository"
	"go.uber.org/zap"
)

// CheckInService turns a scanned credential into a single attendance record.
// Only the scan that creates the record triggers the entry message.
type CheckInService struct {
	attendees  repository.AttendeeRepository
	attendance repository.AttendanceRepository
	dispatcher Dispatcher
	publisher  queue.Publisher
	location   *time.Location
	logger     *zap.Logger
	metrics    *observability.Metrics
	now        func() time.Time
	newID      func() string
}

func NewCheckInService(
	attendees repository.AttendeeRepository,
	attendance repository.AttendanceRepository,
	dispatcher Dispatcher,
	location *time.Location,
	logger *zap.Logger,
) (*CheckInService, error) {
	if attendees == nil || attendance == nil {
		return nil, fmt.Errorf("attendee and attendance repositories are required")
	}
	if dispatcher == nil {
		return nil, fmt.Errorf("dispatcher is required")
	}
	if location == nil {
		location = time.UTC
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	return &CheckInService{
		attendees:  attendees,
		attendance: attendance,
		dispatcher: dispatcher,
		publisher:  queue.NopPublisher{},
		location:   location,
		logger:     logger,
		now:        time.Now,
		newID:      uuid.NewString,
	}, nil
}

func (s *CheckInService) SetMetrics(metrics *observability.Metrics) {
	if s == nil {
		return
	}
	s.metrics = metrics
}

func (s *CheckInService) SetPublisher(publisher queue.Publisher) {
	if s == nil {
		return
	}
	if publisher == nil {
		publisher = queue.NopPublisher{}
	}
	s.publisher = publisher
}

// CheckIn is idempotent: repeated scans of the same token return
// CheckInAlreadyMarked with the stored entry time and send nothing.
func (s *CheckInService) CheckIn(ctx context.Context, token string) (*domain.CheckInResult, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		return nil, fmt.Errorf("%w: credential token is required", domain.ErrValidation)
	}

	attendee, err := s.attendees.GetByCredentialToken(ctx, token)
	if err != nil {
		return nil, err
	}

	logger := observability.WithContextLogger(s.logger, ctx).With(zap.String("attendeeId", attendee.ID))

	stored, inserted, err := s.attendance.InsertIfAbsent(ctx, &domain.AttendanceRecord{
		ID:         s.newID(),
		AttendeeID: attendee.ID,
		EntryTime:  s.now().In(s.location),
	})
	if err != nil {
		return nil, fmt.Errorf("record attendance: %w", err)
	}

	entryTime := stored.EntryTime.In(s.location)
	if !inserted {
		s.metrics.IncCheckIn(string(domain.CheckInAlreadyMarked))
		logger.Info("attendance already marked", zap.Time("entryTime", entryTime))
		return &domain.CheckInResult{
			State:     domain.CheckInAlreadyMarked,
			Attendee:  *attendee,
			EntryTime: entryTime,
		}, nil
	}

	s.metrics.IncCheckIn(string(domain.CheckInMarked))
	logger.Info("attendance marked", zap.Time("entryTime", entryTime))

	outcome := s.dispatcher.DispatchJob(ctx, DispatchJob{
		Attendee:  *attendee,
		Kind:      domain.MessageKindEntry,
		EntryTime: &entryTime,
	})
	attendee.Delivery = outcome.Status

	event := queue.NewCheckedInEvent(attendee.ID, entryTime)
	if requestID, ok := observability.RequestIDFromContext(ctx); ok {
		event.RequestID = requestID
	}
	if err := s.publisher.Publish(context.WithoutCancel(ctx), event); err != nil {
		s.metrics.IncEventPublished(event.RoutingKey, "failed")
		logger.Warn("event publish failed", zap.String("event", event.RoutingKey), zap.Error(err))
	} else {
		s.metrics.IncEventPublished(event.RoutingKey, "published")
	}

	return &domain.CheckInResult{
		State:     domain.CheckInMarked,
		Attendee:  *attendee,
		EntryTime: entryTime,
	}, nil
}
