package repository

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/kursadbilgin/workshop-checkin/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newAttendee(name string, createdAt time.Time) *domain.Attendee {
	id := uuid.NewString()
	return &domain.Attendee{
		ID:              id,
		Name:            name,
		Email:           name + "@example.com",
		Contact:         "9876543210",
		Batch:           "Batch A",
		CredentialToken: domain.CredentialToken(id),
		Delivery:        domain.PendingDeliveryStatus(),
		CreatedAt:       createdAt,
	}
}

func TestGormAttendeeRepoCreateAndGet(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	repo := NewGormAttendeeRepo(newTestDB(t))

	attendee := newAttendee("asha", time.Now().UTC())
	require.NoError(t, repo.Create(ctx, attendee))

	got, err := repo.GetByID(ctx, attendee.ID)
	require.NoError(t, err)
	assert.Equal(t, "asha", got.Name)
	assert.Equal(t, domain.ChannelStatusPending, got.Delivery.EmailStatus)
	assert.Equal(t, domain.ChannelStatusPending, got.Delivery.MessagingStatus)
	assert.Nil(t, got.Delivery.LastAttemptAt)

	byToken, err := repo.GetByCredentialToken(ctx, attendee.CredentialToken)
	require.NoError(t, err)
	assert.Equal(t, attendee.ID, byToken.ID)

	_, err = repo.GetByID(ctx, uuid.NewString())
	assert.ErrorIs(t, err, domain.ErrNotFound)

	_, err = repo.GetByCredentialToken(ctx, "WORKSHOP_ATTENDEE:unknown")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestGormAttendeeRepoDuplicateCredentialIsConflict(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	repo := NewGormAttendeeRepo(newTestDB(t))

	first := newAttendee("asha", time.Now().UTC())
	require.NoError(t, repo.Create(ctx, first))

	second := newAttendee("ravi", time.Now().UTC())
	second.CredentialToken = first.CredentialToken
	assert.ErrorIs(t, repo.Create(ctx, second), domain.ErrConflict)
}

func TestGormAttendeeRepoCreateBatch(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	repo := NewGormAttendeeRepo(newTestDB(t))

	now := time.Now().UTC()
	attendees := []*domain.Attendee{newAttendee("a", now), newAttendee("b", now), nil}
	require.NoError(t, repo.CreateBatch(ctx, attendees))

	for _, a := range attendees[:2] {
		_, err := repo.GetByID(ctx, a.ID)
		require.NoError(t, err)
	}
}

func TestGormAttendeeRepoUpdateAndGetDeliveryStatus(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	repo := NewGormAttendeeRepo(newTestDB(t))

	attendee := newAttendee("asha", time.Now().UTC())
	require.NoError(t, repo.Create(ctx, attendee))

	attemptedAt := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	lastErr := "messaging: provider returned status 500"
	require.NoError(t, repo.UpdateDeliveryStatus(ctx, attendee.ID, domain.DeliveryStatus{
		EmailStatus:     domain.ChannelStatusSent,
		MessagingStatus: domain.ChannelStatusFailed,
		LastAttemptAt:   &attemptedAt,
		LastError:       &lastErr,
	}))

	status, err := repo.GetDeliveryStatus(ctx, attendee.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.ChannelStatusSent, status.EmailStatus)
	assert.Equal(t, domain.ChannelStatusFailed, status.MessagingStatus)
	require.NotNil(t, status.LastAttemptAt)
	assert.True(t, attemptedAt.Equal(*status.LastAttemptAt))
	require.NotNil(t, status.LastError)
	assert.Equal(t, lastErr, *status.LastError)

	err = repo.UpdateDeliveryStatus(ctx, uuid.NewString(), domain.PendingDeliveryStatus())
	assert.ErrorIs(t, err, domain.ErrNotFound)

	_, err = repo.GetDeliveryStatus(ctx, uuid.NewString())
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestGormAttendeeRepoListIncompleteOldestFirst(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	repo := NewGormAttendeeRepo(newTestDB(t))

	base := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	statuses := []domain.DeliveryStatus{
		{EmailStatus: domain.ChannelStatusSent, MessagingStatus: domain.ChannelStatusSent},
		{EmailStatus: domain.ChannelStatusSent, MessagingStatus: domain.ChannelStatusFailed},
		{EmailStatus: domain.ChannelStatusSent, MessagingStatus: domain.ChannelStatusSent},
		{EmailStatus: domain.ChannelStatusPending, MessagingStatus: domain.ChannelStatusPending},
		{EmailStatus: domain.ChannelStatusSent, MessagingStatus: domain.ChannelStatusSent},
	}

	ids := make([]string, len(statuses))
	for i, status := range statuses {
		attendee := newAttendee("a", base.Add(time.Duration(i)*time.Minute))
		attendee.Delivery = status
		require.NoError(t, repo.Create(ctx, attendee))
		ids[i] = attendee.ID
	}

	incomplete, err := repo.ListIncomplete(ctx, 10)
	require.NoError(t, err)
	require.Len(t, incomplete, 2)
	assert.Equal(t, ids[1], incomplete[0].ID)
	assert.Equal(t, ids[3], incomplete[1].ID)

	limited, err := repo.ListIncomplete(ctx, 1)
	require.NoError(t, err)
	require.Len(t, limited, 1)
	assert.Equal(t, ids[1], limited[0].ID)

	none, err := repo.ListIncomplete(ctx, 0)
	require.NoError(t, err)
	assert.Empty(t, none)
}

func TestGormAttendeeRepoDeliverySummary(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	repo := NewGormAttendeeRepo(newTestDB(t))

	now := time.Now().UTC()
	for i := 0; i < 3; i++ {
		a := newAttendee("sent", now)
		a.Delivery = domain.DeliveryStatus{EmailStatus: domain.ChannelStatusSent, MessagingStatus: domain.ChannelStatusSent}
		require.NoError(t, repo.Create(ctx, a))
	}
	require.NoError(t, repo.Create(ctx, newAttendee("pending", now)))

	rows, err := repo.DeliverySummary(ctx)
	require.NoError(t, err)
	require.Len(t, rows, 2)

	counts := map[domain.ChannelStatus]int64{}
	for _, row := range rows {
		assert.Equal(t, row.EmailStatus, row.MessagingStatus)
		counts[row.EmailStatus] = row.Count
	}
	assert.Equal(t, int64(3), counts[domain.ChannelStatusSent])
	assert.Equal(t, int64(1), counts[domain.ChannelStatusPending])
}
