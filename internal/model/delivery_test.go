package model

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "github.com/jwalitptl/notify-api/pkg/errors"
)

func newTestDelivery(t *testing.T, strategy Strategy) *Delivery {
	t.Helper()
	user, err := NewUser(NewUserID(), "Alice", "alice@example.com", "+15551234567", "")
	require.NoError(t, err)
	n := newTestNotification(t, time.Time{}, nil)
	n.RecipientID = user.ID
	return NewDelivery(NewDeliveryID(), n, user, strategy, DefaultRetryPolicy())
}

func TestDeliveryStartHappyPath(t *testing.T) {
	d := newTestDelivery(t, StrategyFirstSuccess)
	assert.Equal(t, StatusPending, d.Status)

	require.NoError(t, d.Start())
	assert.Equal(t, StatusSent, d.Status)
	assert.NotNil(t, d.StartedAt)

	err := d.Start()
	assert.True(t, apperrors.IsCode(err, apperrors.ErrInvalidState))
}

func TestDeliveryStartInactiveUserFailsWithoutAttempts(t *testing.T) {
	d := newTestDelivery(t, StrategyFirstSuccess)
	d.User.Deactivate()

	require.NoError(t, d.Start())
	assert.Equal(t, StatusFailed, d.Status)
	assert.Empty(t, d.Attempts)
	require.NotNil(t, d.FinalResult)
	assert.Equal(t, CodeUserInactive, d.FinalResult.Error.Code)
	assert.Equal(t, "system", d.FinalResult.Provider)
}

func TestDeliveryStartNotReadyNotification(t *testing.T) {
	d := newTestDelivery(t, StrategyFirstSuccess)
	d.Notification.Cancel()

	require.NoError(t, d.Start())
	assert.Equal(t, StatusFailed, d.Status)
	assert.Empty(t, d.Attempts)
	assert.Equal(t, CodeNotificationNotReady, d.FinalResult.Error.Code)
}

func TestDeliverySuccessfulAttemptCompletes(t *testing.T) {
	d := newTestDelivery(t, StrategyFirstSuccess)
	require.NoError(t, d.Start())

	require.NoError(t, d.AddAttempt("smtp_email", ChannelEmail, SuccessResult("smtp_email", "sent")))
	assert.Equal(t, StatusDelivered, d.Status)
	assert.NotNil(t, d.CompletedAt)
	assert.True(t, d.IsCompleted())
	assert.Len(t, d.SuccessfulAttempts(), 1)

	// Terminal deliveries reject further attempts.
	err := d.AddAttempt("sms_gateway", ChannelSMS, SuccessResult("sms_gateway", "sent"))
	assert.True(t, apperrors.IsCode(err, apperrors.ErrInvalidState))
}

func TestDeliveryFirstSuccessFailsAtRetryBudget(t *testing.T) {
	d := newTestDelivery(t, StrategyFirstSuccess)
	require.NoError(t, d.Start())

	fail := FailureResult("smtp_email", "boom", CodeProviderError)
	require.NoError(t, d.AddAttempt("smtp_email", ChannelEmail, fail))
	assert.Equal(t, StatusSent, d.Status, "budget not spent yet")

	require.NoError(t, d.AddAttempt("smtp_email", ChannelEmail, fail))
	assert.Equal(t, StatusSent, d.Status)

	require.NoError(t, d.AddAttempt("smtp_email", ChannelEmail, fail))
	assert.Equal(t, StatusFailed, d.Status)
	assert.Len(t, d.FailedAttempts(), 3)
}

func TestDeliveryFailFastFailsImmediately(t *testing.T) {
	d := newTestDelivery(t, StrategyFailFast)
	require.NoError(t, d.Start())

	require.NoError(t, d.AddAttempt("smtp_email", ChannelEmail, FailureResult("smtp_email", "boom", CodeNetworkError)))
	assert.Equal(t, StatusFailed, d.Status)
	assert.Equal(t, CodeNetworkError, d.FinalResult.Error.Code)
}

func TestDeliveryTryAllFailsOnceAllChannelsAttempted(t *testing.T) {
	d := newTestDelivery(t, StrategyTryAll)
	require.NoError(t, d.Start())
	require.Len(t, d.User.AvailableChannels(), 2)

	fail := FailureResult("p", "boom", CodeProviderError)
	require.NoError(t, d.AddAttempt("smtp_email", ChannelEmail, fail))
	assert.Equal(t, StatusSent, d.Status, "one of two channels attempted")

	// A second provider on the same channel does not finish the run.
	require.NoError(t, d.AddAttempt("backup_email", ChannelEmail, fail))
	assert.Equal(t, StatusSent, d.Status)

	require.NoError(t, d.AddAttempt("sms_gateway", ChannelSMS, fail))
	assert.Equal(t, StatusFailed, d.Status)
}

func TestDeliveryRetryOnlyFromFailed(t *testing.T) {
	d := newTestDelivery(t, StrategyFailFast)
	err := d.Retry()
	assert.True(t, apperrors.IsCode(err, apperrors.ErrInvalidState))

	require.NoError(t, d.Start())
	require.NoError(t, d.AddAttempt("smtp_email", ChannelEmail, FailureResult("smtp_email", "boom", CodeProviderError)))
	require.Equal(t, StatusFailed, d.Status)

	require.NoError(t, d.Retry())
	assert.Equal(t, StatusRetrying, d.Status)

	// A retried delivery accepts attempts again.
	require.NoError(t, d.AddAttempt("smtp_email", ChannelEmail, SuccessResult("smtp_email", "sent")))
	assert.Equal(t, StatusDelivered, d.Status)
}

func TestDeliveryRetryExhausted(t *testing.T) {
	d := newTestDelivery(t, StrategyFirstSuccess)
	require.NoError(t, d.Start())

	fail := FailureResult("smtp_email", "boom", CodeProviderError)
	for i := 0; i < 3; i++ {
		require.NoError(t, d.AddAttempt("smtp_email", ChannelEmail, fail))
	}
	require.Equal(t, StatusFailed, d.Status)

	err := d.Retry()
	assert.True(t, apperrors.IsCode(err, apperrors.ErrRetryExhausted))
}

func TestDeliveryCancel(t *testing.T) {
	d := newTestDelivery(t, StrategyFirstSuccess)
	require.NoError(t, d.Start())

	require.NoError(t, d.Cancel())
	assert.Equal(t, StatusFailed, d.Status)
	assert.Equal(t, CodeCancelled, d.FinalResult.Error.Code)

	// A racing provider result cannot resurrect the delivery.
	err := d.AddAttempt("smtp_email", ChannelEmail, SuccessResult("smtp_email", "sent"))
	assert.True(t, apperrors.IsCode(err, apperrors.ErrInvalidState))
	assert.Equal(t, StatusFailed, d.Status)

	err = d.Cancel()
	assert.True(t, apperrors.IsCode(err, apperrors.ErrInvalidState))
}

func TestDeliveryTotalDeliveryTime(t *testing.T) {
	d := newTestDelivery(t, StrategyFirstSuccess)
	assert.Nil(t, d.TotalDeliveryTime())

	require.NoError(t, d.Start())
	require.NoError(t, d.AddAttempt("smtp_email", ChannelEmail, SuccessResult("smtp_email", "sent")))

	elapsed := d.TotalDeliveryTime()
	require.NotNil(t, elapsed)
	assert.GreaterOrEqual(t, *elapsed, time.Duration(0))
}

func TestParseStrategyAndStatus(t *testing.T) {
	s, err := ParseStrategy("")
	require.NoError(t, err)
	assert.Equal(t, StrategyFirstSuccess, s)

	_, err = ParseStrategy("best_effort")
	assert.Error(t, err)

	_, err = ParseStatus("unknown")
	assert.Error(t, err)

	st, err := ParseStatus("retrying")
	require.NoError(t, err)
	assert.Equal(t, StatusRetrying, st)
}
