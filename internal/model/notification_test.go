package model

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "github.com/jwalitptl/notify-api/pkg/errors"
)

func newTestNotification(t *testing.T, scheduledAt time.Time, expiresAt *time.Time) *Notification {
	t.Helper()
	tmpl, err := NewMessageTemplate("subject", "content", nil)
	require.NoError(t, err)
	return NewNotification(NewNotificationID(), NewUserID(), tmpl, PriorityNormal, scheduledAt, expiresAt)
}

func TestNotificationReadiness(t *testing.T) {
	n := newTestNotification(t, time.Time{}, nil)
	assert.True(t, n.IsReadyToSend(), "zero scheduledAt means now")

	future := newTestNotification(t, time.Now().UTC().Add(time.Hour), nil)
	assert.False(t, future.IsReadyToSend())

	past := time.Now().UTC().Add(-time.Minute)
	expired := newTestNotification(t, time.Time{}, &past)
	assert.True(t, expired.IsExpired())
	assert.False(t, expired.IsReadyToSend())
}

func TestNotificationCancelIsIdempotent(t *testing.T) {
	n := newTestNotification(t, time.Time{}, nil)
	n.Cancel()
	assert.True(t, n.Cancelled)
	assert.False(t, n.IsReadyToSend())

	updated := n.UpdatedAt
	n.Cancel()
	assert.Equal(t, updated, n.UpdatedAt)
}

func TestNotificationReschedule(t *testing.T) {
	n := newTestNotification(t, time.Time{}, nil)

	err := n.Reschedule(time.Now().UTC().Add(-time.Hour))
	require.Error(t, err)
	assert.True(t, apperrors.IsCode(err, apperrors.ErrBadRequest))

	at := time.Now().UTC().Add(time.Hour)
	require.NoError(t, n.Reschedule(at))
	assert.Equal(t, at, n.ScheduledAt)
	assert.False(t, n.IsReadyToSend())

	n.Cancel()
	err = n.Reschedule(time.Now().UTC().Add(2 * time.Hour))
	assert.True(t, apperrors.IsCode(err, apperrors.ErrInvalidState))
}

func TestCancelledNotificationRejectsMutation(t *testing.T) {
	n := newTestNotification(t, time.Time{}, nil)
	n.Cancel()

	assert.Error(t, n.UpdatePriority(PriorityHigh))
	assert.Error(t, n.SetMetadata("k", "v"))
	assert.Error(t, n.RemoveMetadata("k"))
}

func TestNotificationMetadata(t *testing.T) {
	n := newTestNotification(t, time.Time{}, nil)

	require.NoError(t, n.SetMetadata("campaign", "spring"))
	assert.Equal(t, "spring", n.Metadata["campaign"])

	require.NoError(t, n.RemoveMetadata("campaign"))
	_, ok := n.Metadata["campaign"]
	assert.False(t, ok)
}
