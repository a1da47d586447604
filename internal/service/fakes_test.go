package service

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/kursadbilgin/workshop-checkin/internal/domain"
	"github.com/kursadbilgin/workshop-checkin/internal/provider"
	"github.com/kursadbilgin/workshop-checkin/internal/queue"
)

// memoryAttendeeRepo keeps attendees in a map and mirrors the gorm repo's
// not-found and ordering behaviour.
type memoryAttendeeRepo struct {
	mu        sync.Mutex
	attendees map[string]domain.Attendee
	updates   int

	createFn       func(ctx context.Context, a *domain.Attendee) error
	createBatchFn  func(ctx context.Context, attendees []*domain.Attendee) error
	updateStatusFn func(ctx context.Context, id string, status domain.DeliveryStatus) error
}

func newMemoryAttendeeRepo(attendees ...domain.Attendee) *memoryAttendeeRepo {
	repo := &memoryAttendeeRepo{attendees: make(map[string]domain.Attendee)}
	for _, a := range attendees {
		repo.attendees[a.ID] = a
	}
	return repo
}

func (f *memoryAttendeeRepo) Create(ctx context.Context, a *domain.Attendee) error {
	if f.createFn != nil {
		if err := f.createFn(ctx, a); err != nil {
			return err
		}
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.attendees[a.ID] = *a
	return nil
}

func (f *memoryAttendeeRepo) CreateBatch(ctx context.Context, attendees []*domain.Attendee) error {
	if f.createBatchFn != nil {
		if err := f.createBatchFn(ctx, attendees); err != nil {
			return err
		}
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, a := range attendees {
		f.attendees[a.ID] = *a
	}
	return nil
}

func (f *memoryAttendeeRepo) GetByID(ctx context.Context, id string) (*domain.Attendee, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	a, ok := f.attendees[id]
	if !ok {
		return nil, fmt.Errorf("attendee %q: %w", id, domain.ErrNotFound)
	}
	return &a, nil
}

func (f *memoryAttendeeRepo) GetByCredentialToken(ctx context.Context, token string) (*domain.Attendee, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, a := range f.attendees {
		if a.CredentialToken == token {
			found := a
			return &found, nil
		}
	}
	return nil, fmt.Errorf("credential token: %w", domain.ErrNotFound)
}

func (f *memoryAttendeeRepo) UpdateDeliveryStatus(ctx context.Context, id string, status domain.DeliveryStatus) error {
	if f.updateStatusFn != nil {
		if err := f.updateStatusFn(ctx, id, status); err != nil {
			return err
		}
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	a, ok := f.attendees[id]
	if !ok {
		return fmt.Errorf("attendee %q: %w", id, domain.ErrNotFound)
	}
	a.Delivery = status
	f.attendees[id] = a
	f.updates++
	return nil
}

func (f *memoryAttendeeRepo) GetDeliveryStatus(ctx context.Context, id string) (domain.DeliveryStatus, error) {
	a, err := f.GetByID(ctx, id)
	if err != nil {
		return domain.DeliveryStatus{}, err
	}
	return a.Delivery, nil
}

func (f *memoryAttendeeRepo) ListIncomplete(ctx context.Context, limit int) ([]domain.Attendee, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	incomplete := make([]domain.Attendee, 0)
	for _, a := range f.attendees {
		if !a.Delivery.Complete() {
			incomplete = append(incomplete, a)
		}
	}
	sort.Slice(incomplete, func(i, j int) bool {
		return incomplete[i].CreatedAt.Before(incomplete[j].CreatedAt)
	})
	if len(incomplete) > limit {
		incomplete = incomplete[:limit]
	}
	return incomplete, nil
}

func (f *memoryAttendeeRepo) DeliverySummary(ctx context.Context) ([]domain.DeliverySummaryRow, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	counts := map[[2]domain.ChannelStatus]int64{}
	for _, a := range f.attendees {
		counts[[2]domain.ChannelStatus{a.Delivery.EmailStatus, a.Delivery.MessagingStatus}]++
	}
	rows := make([]domain.DeliverySummaryRow, 0, len(counts))
	for key, count := range counts {
		rows = append(rows, domain.DeliverySummaryRow{EmailStatus: key[0], MessagingStatus: key[1], Count: count})
	}
	return rows, nil
}

func (f *memoryAttendeeRepo) get(id string) domain.Attendee {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.attendees[id]
}

type memoryAttendanceRepo struct {
	mu      sync.Mutex
	records map[string]domain.AttendanceRecord

	insertFn func(ctx context.Context, record *domain.AttendanceRecord) error
}

func newMemoryAttendanceRepo() *memoryAttendanceRepo {
	return &memoryAttendanceRepo{records: make(map[string]domain.AttendanceRecord)}
}

func (f *memoryAttendanceRepo) InsertIfAbsent(ctx context.Context, record *domain.AttendanceRecord) (*domain.AttendanceRecord, bool, error) {
	if f.insertFn != nil {
		if err := f.insertFn(ctx, record); err != nil {
			return nil, false, err
		}
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if existing, ok := f.records[record.AttendeeID]; ok {
		return &existing, false, nil
	}
	f.records[record.AttendeeID] = *record
	stored := *record
	return &stored, true, nil
}

func (f *memoryAttendanceRepo) GetByAttendeeID(ctx context.Context, attendeeID string) (*domain.AttendanceRecord, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	r, ok := f.records[attendeeID]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return &r, nil
}

func (f *memoryAttendanceRepo) CountCheckedIn(ctx context.Context) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return int64(len(f.records)), nil
}

type fakeAuditRepo struct {
	mu       sync.Mutex
	entries  []domain.AuditLogEntry
	recordFn func(ctx context.Context, entry *domain.AuditLogEntry) error
}

func (f *fakeAuditRepo) Record(ctx context.Context, entry *domain.AuditLogEntry) error {
	f.mu.Lock()
	f.entries = append(f.entries, *entry)
	f.mu.Unlock()
	if f.recordFn != nil {
		return f.recordFn(ctx, entry)
	}
	return nil
}

func (f *fakeAuditRepo) recorded() []domain.AuditLogEntry {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]domain.AuditLogEntry(nil), f.entries...)
}

type fakeEmailSender struct {
	mu     sync.Mutex
	sent   []provider.Email
	sendFn func(ctx context.Context, email provider.Email) error
}

func (f *fakeEmailSender) Send(ctx context.Context, email provider.Email) error {
	f.mu.Lock()
	f.sent = append(f.sent, email)
	f.mu.Unlock()
	if f.sendFn != nil {
		return f.sendFn(ctx, email)
	}
	return nil
}

func (f *fakeEmailSender) calls() []provider.Email {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]provider.Email(nil), f.sent...)
}

type fakeMessagingSender struct {
	mu     sync.Mutex
	sent   []provider.TemplateMessage
	sendFn func(ctx context.Context, msg provider.TemplateMessage) error
}

func (f *fakeMessagingSender) SendTemplate(ctx context.Context, msg provider.TemplateMessage) error {
	f.mu.Lock()
	f.sent = append(f.sent, msg)
	f.mu.Unlock()
	if f.sendFn != nil {
		return f.sendFn(ctx, msg)
	}
	return nil
}

func (f *fakeMessagingSender) calls() []provider.TemplateMessage {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]provider.TemplateMessage(nil), f.sent...)
}

type fakeRateLimiter struct {
	allowFn func(ctx context.Context, channel string) (bool, error)
	waitFn  func(ctx context.Context, channel string) error
}

func (f *fakeRateLimiter) Allow(ctx context.Context, channel string) (bool, error) {
	if f.allowFn != nil {
		return f.allowFn(ctx, channel)
	}
	return true, nil
}

func (f *fakeRateLimiter) Wait(ctx context.Context, channel string) error {
	if f.waitFn != nil {
		return f.waitFn(ctx, channel)
	}
	return nil
}

type fakePublisher struct {
	mu        sync.Mutex
	events    []queue.Event
	publishFn func(ctx context.Context, event queue.Event) error
}

func (f *fakePublisher) Publish(ctx context.Context, event queue.Event) error {
	f.mu.Lock()
	f.events = append(f.events, event)
	f.mu.Unlock()
	if f.publishFn != nil {
		return f.publishFn(ctx, event)
	}
	return nil
}

func (f *fakePublisher) Close() error { return nil }

func (f *fakePublisher) published() []queue.Event {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]queue.Event(nil), f.events...)
}

type fakeDispatcher struct {
	mu   sync.Mutex
	jobs []DispatchJob

	dispatchJobFn func(ctx context.Context, job DispatchJob) DeliveryOutcome
}

func (f *fakeDispatcher) DispatchJob(ctx context.Context, job DispatchJob) DeliveryOutcome {
	f.mu.Lock()
	f.jobs = append(f.jobs, job)
	f.mu.Unlock()
	if f.dispatchJobFn != nil {
		return f.dispatchJobFn(ctx, job)
	}
	status := job.Attendee.Delivery
	status.EmailStatus = domain.ChannelStatusSent
	status.MessagingStatus = domain.ChannelStatusSent
	return DeliveryOutcome{AttendeeID: job.Attendee.ID, Kind: job.Kind, Status: status, Delivered: true}
}

func (f *fakeDispatcher) DispatchJobs(ctx context.Context, jobs []DispatchJob) BatchResult {
	result := BatchResult{Attempted: len(jobs)}
	for _, job := range jobs {
		outcome := f.DispatchJob(ctx, job)
		result.Outcomes = append(result.Outcomes, outcome)
		if outcome.Delivered {
			result.Succeeded++
		} else {
			result.Failed++
		}
	}
	return result
}

func (f *fakeDispatcher) dispatched() []DispatchJob {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]DispatchJob(nil), f.jobs...)
}
