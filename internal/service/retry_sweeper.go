package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/kursadbilgin/workshop-checkin/internal/domain"
	"github.com/kursadbilgin/workshop-checkin/internal/observability"
	"github.com/kursadbilgin/workshop-checkin/internal/repository"
	"go.uber.org/zap"
)

const (
	defaultRetrySweepInterval = time.Minute
	defaultRetrySweepLimit    = 200
)

type SweepResult struct {
	Attempted int `json:"attempted"`
	Succeeded int `json:"succeeded"`
	Failed    int `json:"failed"`
}

// RetrySweeper re-dispatches the latest message to attendees whose delivery
// is incomplete: the entry confirmation for checked-in attendees, the
// registration message otherwise. Only channels not yet sent are attempted again.
type RetrySweeper struct {
	attendees  repository.AttendeeRepository
	attendance repository.AttendanceRepository
	dispatcher Dispatcher
	logger     *zap.Logger
	metrics    *observability.Metrics
	interval   time.Duration
	limit      int
}

func NewRetrySweeper(
	attendees repository.AttendeeRepository,
	attendance repository.AttendanceRepository,
	dispatcher Dispatcher,
	interval time.Duration,
	limit int,
	logger *zap.Logger,
) (*RetrySweeper, error) {
	if attendees == nil {
		return nil, fmt.Errorf("attendee repository is required")
	}
	if attendance == nil {
		return nil, fmt.Errorf("attendance repository is required")
	}
	if dispatcher == nil {
		return nil, fmt.Errorf("dispatcher is required")
	}
	if interval <= 0 {
		interval = defaultRetrySweepInterval
	}
	if limit <= 0 {
		limit = defaultRetrySweepLimit
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	return &RetrySweeper{
		attendees:  attendees,
		attendance: attendance,
		dispatcher: dispatcher,
		logger:     logger,
		interval:   interval,
		limit:      limit,
	}, nil
}

func (s *RetrySweeper) SetMetrics(metrics *observability.Metrics) {
	if s == nil {
		return
	}
	s.metrics = metrics
}

// DefaultLimit is used when a caller passes a non-positive limit.
func (s *RetrySweeper) DefaultLimit() int {
	return s.limit
}

// ResendPending selects up to limit incomplete attendees, oldest first, and
// dispatches to each of them concurrently.
func (s *RetrySweeper) ResendPending(ctx context.Context, limit int) (SweepResult, error) {
	if limit <= 0 {
		limit = s.limit
	}

	pending, err := s.attendees.ListIncomplete(ctx, limit)
	if err != nil {
		return SweepResult{}, fmt.Errorf("list incomplete attendees: %w", err)
	}
	if len(pending) == 0 {
		return SweepResult{}, nil
	}

	jobs := make([]DispatchJob, 0, len(pending))
	for _, attendee := range pending {
		job, err := s.resendJob(ctx, attendee)
		if err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return SweepResult{}, ctxErr
			}
			observability.WithContextLogger(s.logger, ctx).Warn("skipping attendee, attendance lookup failed",
				zap.String("attendeeId", attendee.ID), zap.Error(err))
			continue
		}
		jobs = append(jobs, job)
	}
	if len(jobs) == 0 {
		return SweepResult{}, nil
	}

	batch := s.dispatcher.DispatchJobs(ctx, jobs)
	result := SweepResult{
		Attempted: batch.Attempted,
		Succeeded: batch.Succeeded,
		Failed:    batch.Failed,
	}

	s.metrics.ObserveSweep(result.Succeeded, result.Failed)
	observability.WithContextLogger(s.logger, ctx).Info("retry sweep completed",
		zap.Int("attempted", result.Attempted),
		zap.Int("succeeded", result.Succeeded),
		zap.Int("failed", result.Failed),
	)
	return result, nil
}

// resendJob picks the message kind from the attendee's attendance record. The
// entry dispatch writes the same delivery status as registration, so a
// checked-in attendee with an incomplete status is owed the entry message.
func (s *RetrySweeper) resendJob(ctx context.Context, attendee domain.Attendee) (DispatchJob, error) {
	job := DispatchJob{
		Attendee: attendee,
		Kind:     domain.MessageKindRegistration,
		Channels: attendee.Delivery.OutstandingChannels(),
	}

	record, err := s.attendance.GetByAttendeeID(ctx, attendee.ID)
	if errors.Is(err, domain.ErrNotFound) {
		return job, nil
	}
	if err != nil {
		return DispatchJob{}, err
	}

	entryTime := record.EntryTime
	job.Kind = domain.MessageKindEntry
	job.EntryTime = &entryTime
	return job, nil
}

// Start sweeps on every interval tick until ctx is done.
func (s *RetrySweeper) Start(ctx context.Context) error {
	if ctx == nil {
		ctx = context.Background()
	}

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			if _, err := s.ResendPending(ctx, s.limit); err != nil {
				if ctx.Err() != nil {
					return nil
				}
				s.logger.Error("retry sweep failed", zap.Error(err))
			}
		}
	}
}
