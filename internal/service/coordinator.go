package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/kursadbilgin/workshop-checkin/internal/domain"
	"github.com/kursadbilgin/workshop-checkin/internal/observability"
	"github.com/kursadbilgin/workshop-checkin/internal/phone"
	"github.com/kursadbilgin/workshop-checkin/internal/provider"
	"github.com/kursadbilgin/workshop-checkin/internal/queue"
	"github.com/kursadbilgin/workshop-checkin/internal/ratelimit"
	"github.com/kursadbilgin/workshop-checkin/internal/repository"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

const lastErrorSeparator = " | "

// DispatchJob is one attendee/message pair. It lives only for the duration of
// a dispatch. Channels limits the attempt to a subset; empty means all.
type DispatchJob struct {
	Attendee  domain.Attendee
	Kind      domain.MessageKind
	EntryTime *time.Time
	Channels  []domain.Channel
}

func (j DispatchJob) entryTime() time.Time {
	if j.EntryTime == nil {
		return time.Now()
	}
	return *j.EntryTime
}

func (j DispatchJob) channels() []domain.Channel {
	if len(j.Channels) == 0 {
		return domain.Channels()
	}
	return j.Channels
}

// DeliveryOutcome is the result of one dispatch.
type DeliveryOutcome struct {
	AttendeeID string
	Kind       domain.MessageKind
	Status     domain.DeliveryStatus
	// Delivered is true only when every channel of the attendee is sent.
	Delivered bool
}

// BatchResult summarises a bulk dispatch.
type BatchResult struct {
	Attempted int
	Succeeded int
	Failed    int
	Outcomes  []DeliveryOutcome
}

// Dispatcher runs dispatch jobs.
type Dispatcher interface {
	DispatchJob(ctx context.Context, job DispatchJob) DeliveryOutcome
	DispatchJobs(ctx context.Context, jobs []DispatchJob) BatchResult
}

var _ Dispatcher = (*Coordinator)(nil)

// Coordinator sends one attendee's message on every channel under a shared
// concurrency gate, then records the delivery status and one audit entry.
// Channel failures never escape a dispatch.
type Coordinator struct {
	attendees          repository.AttendeeRepository
	audit              repository.AuditRepository
	email              provider.EmailSender
	messaging          provider.MessagingSender
	composer           *Composer
	gate               *ratelimit.Gate
	rateLimiter        ratelimit.RateLimiter
	publisher          queue.Publisher
	defaultCountryCode string
	logger             *zap.Logger
	metrics            *observability.Metrics
	now                func() time.Time
}

func NewCoordinator(
	attendees repository.AttendeeRepository,
	audit repository.AuditRepository,
	email provider.EmailSender,
	messaging provider.MessagingSender,
	composer *Composer,
	gate *ratelimit.Gate,
	defaultCountryCode string,
	logger *zap.Logger,
) (*Coordinator, error) {
	if attendees == nil {
		return nil, fmt.Errorf("attendee repository is required")
	}
	if audit == nil {
		return nil, fmt.Errorf("audit repository is required")
	}
	if email == nil || messaging == nil {
		return nil, fmt.Errorf("email and messaging senders are required")
	}
	if composer == nil {
		return nil, fmt.Errorf("composer is required")
	}
	if gate == nil {
		return nil, fmt.Errorf("dispatch gate is required")
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	return &Coordinator{
		attendees:          attendees,
		audit:              audit,
		email:              email,
		messaging:          messaging,
		composer:           composer,
		gate:               gate,
		publisher:          queue.NopPublisher{},
		defaultCountryCode: defaultCountryCode,
		logger:             logger,
		now:                time.Now,
	}, nil
}

func (c *Coordinator) SetMetrics(metrics *observability.Metrics) {
	if c == nil {
		return
	}
	c.metrics = metrics
}

// SetRateLimiter throttles provider calls per channel. nil disables it.
func (c *Coordinator) SetRateLimiter(limiter ratelimit.RateLimiter) {
	if c == nil {
		return
	}
	c.rateLimiter = limiter
}

func (c *Coordinator) SetPublisher(publisher queue.Publisher) {
	if c == nil {
		return
	}
	if publisher == nil {
		publisher = queue.NopPublisher{}
	}
	c.publisher = publisher
}

// Dispatch sends kind to attendee on both channels.
func (c *Coordinator) Dispatch(ctx context.Context, attendee domain.Attendee, kind domain.MessageKind) DeliveryOutcome {
	return c.DispatchJob(ctx, DispatchJob{Attendee: attendee, Kind: kind})
}

// DispatchAll dispatches kind to every attendee concurrently. Each dispatch
// competes for the gate independently.
func (c *Coordinator) DispatchAll(ctx context.Context, attendees []domain.Attendee, kind domain.MessageKind) BatchResult {
	jobs := make([]DispatchJob, 0, len(attendees))
	for _, attendee := range attendees {
		jobs = append(jobs, DispatchJob{Attendee: attendee, Kind: kind})
	}
	return c.DispatchJobs(ctx, jobs)
}

func (c *Coordinator) DispatchJobs(ctx context.Context, jobs []DispatchJob) BatchResult {
	outcomes := make([]DeliveryOutcome, len(jobs))

	var g errgroup.Group
	for i := range jobs {
		g.Go(func() error {
			outcomes[i] = c.DispatchJob(ctx, jobs[i])
			return nil
		})
	}
	_ = g.Wait()

	result := BatchResult{Attempted: len(jobs), Outcomes: outcomes}
	for _, outcome := range outcomes {
		if outcome.Delivered {
			result.Succeeded++
		} else {
			result.Failed++
		}
	}
	return result
}

func (c *Coordinator) DispatchJob(ctx context.Context, job DispatchJob) DeliveryOutcome {
	logger := observability.WithContextLogger(c.logger, ctx).With(
		zap.String("attendeeId", job.Attendee.ID),
		zap.String("kind", job.Kind.String()),
	)

	status := job.Attendee.Delivery
	if !status.EmailStatus.IsValid() {
		status.EmailStatus = domain.ChannelStatusPending
	}
	if !status.MessagingStatus.IsValid() {
		status.MessagingStatus = domain.ChannelStatusPending
	}

	channels := job.channels()
	failures := make([]string, 0, len(channels))

	if err := c.gate.Acquire(ctx); err != nil {
		logger.Warn("dispatch gate not acquired, channels marked failed", zap.Error(err))
		for _, channel := range channels {
			setChannelStatus(&status, channel, domain.ChannelStatusFailed)
			failures = append(failures, fmt.Sprintf("%s: dispatch gate: %v", channelLabel(channel), err))
			c.metrics.IncChannelOutcome(channelLabel(channel), domain.ChannelStatusFailed.String(), "gate")
		}
	} else {
		failures = c.sendHoldingSlot(ctx, logger, job, channels, &status)
	}

	attemptedAt := c.now().UTC()
	status.LastAttemptAt = &attemptedAt
	status.LastError = nil
	if len(failures) > 0 {
		joined := strings.Join(failures, lastErrorSeparator)
		status.LastError = &joined
	}

	// Persistence outlives the caller so a dropped request still records what
	// was sent.
	persistCtx := context.WithoutCancel(ctx)
	if err := c.attendees.UpdateDeliveryStatus(persistCtx, job.Attendee.ID, status); err != nil {
		logger.Error("failed to store delivery status", zap.Error(err))
	}
	c.recordAudit(persistCtx, logger, job, status)

	outcome := DeliveryOutcome{
		AttendeeID: job.Attendee.ID,
		Kind:       job.Kind,
		Status:     status,
		Delivered:  status.Complete(),
	}
	c.metrics.IncDispatch(job.Kind.String(), dispatchOutcomeLabel(status))
	c.publish(persistCtx, logger, queue.NewDeliveryCompletedEvent(job.Attendee.ID, job.Kind, status, attemptedAt))

	return outcome
}

// sendHoldingSlot attempts each channel in order and releases the gate slot
// acquired by the caller, even if a sender panics.
func (c *Coordinator) sendHoldingSlot(ctx context.Context, logger *zap.Logger, job DispatchJob, channels []domain.Channel, status *domain.DeliveryStatus) []string {
	defer c.gate.Release()

	failures := make([]string, 0, len(channels))
	for _, channel := range channels {
		err := c.sendChannel(ctx, job, channel)
		if err == nil {
			setChannelStatus(status, channel, domain.ChannelStatusSent)
			logger.Info("channel delivered", zap.String("channel", channelLabel(channel)))
			continue
		}

		setChannelStatus(status, channel, domain.ChannelStatusFailed)
		failures = append(failures, fmt.Sprintf("%s: %v", channelLabel(channel), err))
		logger.Warn("channel delivery failed",
			zap.String("channel", channelLabel(channel)),
			zap.String("reason", provider.FailureReason(err)),
			zap.Error(err),
		)
	}
	return failures
}

func (c *Coordinator) sendChannel(ctx context.Context, job DispatchJob, channel domain.Channel) error {
	label := channelLabel(channel)

	if c.rateLimiter != nil {
		if err := c.rateLimiter.Wait(ctx, label); err != nil {
			c.metrics.IncChannelOutcome(label, domain.ChannelStatusFailed.String(), "throttle")
			return fmt.Errorf("rate limiter wait failed: %w", err)
		}
	}

	start := c.now()
	var err error
	switch channel {
	case domain.ChannelEmail:
		var email provider.Email
		email, err = c.composer.Email(job)
		if err == nil {
			err = c.email.Send(ctx, email)
		}
	case domain.ChannelMessaging:
		recipient := phone.Normalize(job.Attendee.Contact, c.defaultCountryCode)
		err = c.messaging.SendTemplate(ctx, c.composer.Template(job, recipient))
	default:
		err = fmt.Errorf("unsupported channel %q", channel)
	}
	c.metrics.ObserveChannelSendDuration(label, c.now().Sub(start))

	if err != nil {
		c.metrics.IncChannelOutcome(label, domain.ChannelStatusFailed.String(), provider.FailureReason(err))
		return err
	}
	c.metrics.IncChannelOutcome(label, domain.ChannelStatusSent.String(), "")
	return nil
}

// recordAudit appends exactly one entry per dispatch. Failures are logged only.
func (c *Coordinator) recordAudit(ctx context.Context, logger *zap.Logger, job DispatchJob, status domain.DeliveryStatus) {
	attendeeID := job.Attendee.ID
	emailStatus := status.EmailStatus
	messagingStatus := status.MessagingStatus

	entry := &domain.AuditLogEntry{
		Action:          job.Kind.AuditAction(),
		AttendeeID:      &attendeeID,
		EmailStatus:     &emailStatus,
		MessagingStatus: &messagingStatus,
		LastError:       status.LastError,
		CreatedAt:       c.now().UTC(),
	}
	if token := job.Attendee.CredentialToken; token != "" {
		entry.Subject = &token
	}
	if staff, ok := domain.StaffIdentityFromContext(ctx); ok {
		staffID := staff.ID
		entry.StaffID = &staffID
	}

	if err := c.audit.Record(ctx, entry); err != nil {
		logger.Warn("audit log insert failed", zap.String("action", entry.Action.String()), zap.Error(err))
	}
}

func (c *Coordinator) publish(ctx context.Context, logger *zap.Logger, event queue.Event) {
	if requestID, ok := observability.RequestIDFromContext(ctx); ok {
		event.RequestID = requestID
	}
	if err := c.publisher.Publish(ctx, event); err != nil {
		c.metrics.IncEventPublished(event.RoutingKey, "failed")
		logger.Warn("event publish failed", zap.String("event", event.RoutingKey), zap.Error(err))
		return
	}
	c.metrics.IncEventPublished(event.RoutingKey, "published")
}

func setChannelStatus(status *domain.DeliveryStatus, channel domain.Channel, value domain.ChannelStatus) {
	switch channel {
	case domain.ChannelEmail:
		status.EmailStatus = value
	case domain.ChannelMessaging:
		status.MessagingStatus = value
	}
}

func channelLabel(channel domain.Channel) string {
	return strings.ToLower(channel.String())
}

func dispatchOutcomeLabel(status domain.DeliveryStatus) string {
	switch {
	case status.Complete():
		return "delivered"
	case status.EmailStatus == domain.ChannelStatusSent || status.MessagingStatus == domain.ChannelStatusSent:
		return "partial"
	default:
		return "failed"
	}
}
