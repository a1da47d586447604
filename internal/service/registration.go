package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/kursadbilgin/workshop-checkin/internal/domain"
	"github.com/kursadbilgin/workshop-checkin/internal/repository"
	"go.uber.org/zap"
)

const maxBulkRegistrations = 1000

type RegisterInput struct {
	Name    string
	Email   string
	Contact string
	Batch   string
}

// RegistrationService creates attendees and sends their credential.
type RegistrationService struct {
	attendees  repository.AttendeeRepository
	dispatcher Dispatcher
	logger     *zap.Logger
	now        func() time.Time
	newID      func() string
}

func NewRegistrationService(
	attendees repository.AttendeeRepository,
	dispatcher Dispatcher,
	logger *zap.Logger,
) (*RegistrationService, error) {
	if attendees == nil {
		return nil, fmt.Errorf("attendee repository is required")
	}
	if dispatcher == nil {
		return nil, fmt.Errorf("dispatcher is required")
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	return &RegistrationService{
		attendees:  attendees,
		dispatcher: dispatcher,
		logger:     logger,
		now:        time.Now,
		newID:      uuid.NewString,
	}, nil
}

// Register stores the attendee, then dispatches the registration message. The
// call succeeds once the attendee exists, whatever the delivery outcome.
func (s *RegistrationService) Register(ctx context.Context, input RegisterInput) (*domain.Attendee, error) {
	attendee, err := s.newAttendee(input)
	if err != nil {
		return nil, err
	}
	if err := s.attendees.Create(ctx, attendee); err != nil {
		return nil, fmt.Errorf("create attendee: %w", err)
	}

	outcome := s.dispatcher.DispatchJob(ctx, DispatchJob{Attendee: *attendee, Kind: domain.MessageKindRegistration})
	attendee.Delivery = outcome.Status

	s.logger.Info("attendee registered",
		zap.String("attendeeId", attendee.ID),
		zap.Bool("delivered", outcome.Delivered),
	)
	return attendee, nil
}

// RegisterBulk validates every input first, stores all attendees in one
// transaction, then dispatches to all of them concurrently.
func (s *RegistrationService) RegisterBulk(ctx context.Context, inputs []RegisterInput) ([]domain.Attendee, BatchResult, error) {
	if len(inputs) == 0 {
		return nil, BatchResult{}, fmt.Errorf("%w: at least one attendee is required", domain.ErrValidation)
	}
	if len(inputs) > maxBulkRegistrations {
		return nil, BatchResult{}, fmt.Errorf("%w: at most %d attendees per request", domain.ErrValidation, maxBulkRegistrations)
	}

	attendees := make([]*domain.Attendee, 0, len(inputs))
	for i, input := range inputs {
		attendee, err := s.newAttendee(input)
		if err != nil {
			return nil, BatchResult{}, fmt.Errorf("attendee %d: %w", i, err)
		}
		attendees = append(attendees, attendee)
	}

	if err := s.attendees.CreateBatch(ctx, attendees); err != nil {
		return nil, BatchResult{}, fmt.Errorf("create attendees: %w", err)
	}

	jobs := make([]DispatchJob, 0, len(attendees))
	for _, attendee := range attendees {
		jobs = append(jobs, DispatchJob{Attendee: *attendee, Kind: domain.MessageKindRegistration})
	}
	result := s.dispatcher.DispatchJobs(ctx, jobs)

	created := make([]domain.Attendee, 0, len(attendees))
	for i, attendee := range attendees {
		if i < len(result.Outcomes) {
			attendee.Delivery = result.Outcomes[i].Status
		}
		created = append(created, *attendee)
	}

	s.logger.Info("bulk registration completed",
		zap.Int("attempted", result.Attempted),
		zap.Int("succeeded", result.Succeeded),
		zap.Int("failed", result.Failed),
	)
	return created, result, nil
}

func (s *RegistrationService) newAttendee(input RegisterInput) (*domain.Attendee, error) {
	id := s.newID()
	now := s.now().UTC()
	attendee := &domain.Attendee{
		ID:              id,
		Name:            strings.TrimSpace(input.Name),
		Email:           strings.TrimSpace(input.Email),
		Contact:         strings.TrimSpace(input.Contact),
		Batch:           strings.TrimSpace(input.Batch),
		CredentialToken: domain.CredentialToken(id),
		Delivery:        domain.PendingDeliveryStatus(),
		CreatedAt:       now,
		UpdatedAt:       now,
	}
	if err := attendee.Validate(); err != nil {
		return nil, err
	}
	return attendee, nil
}
