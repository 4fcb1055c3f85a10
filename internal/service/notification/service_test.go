package notification

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jwalitptl/notify-api/internal/model"
	apperrors "github.com/jwalitptl/notify-api/pkg/errors"
)

type memUserRepo struct {
	users map[model.UserID]*model.User
}

func (r *memUserRepo) Get(_ context.Context, id model.UserID) (*model.User, error) {
	u, ok := r.users[id]
	if !ok {
		return nil, apperrors.NotFound("user", nil)
	}
	return u, nil
}

func (r *memUserRepo) Save(_ context.Context, u *model.User) error {
	r.users[u.ID] = u
	return nil
}

func (r *memUserRepo) ListActive(context.Context) ([]*model.User, error) { return nil, nil }
func (r *memUserRepo) Delete(context.Context, model.UserID) error        { return nil }

type memNotificationRepo struct {
	notifications map[model.NotificationID]*model.Notification
}

func (r *memNotificationRepo) Get(_ context.Context, id model.NotificationID) (*model.Notification, error) {
	n, ok := r.notifications[id]
	if !ok {
		return nil, apperrors.NotFound("notification", nil)
	}
	return n, nil
}

func (r *memNotificationRepo) Save(_ context.Context, n *model.Notification) error {
	r.notifications[n.ID] = n
	return nil
}

func (r *memNotificationRepo) ListPending(context.Context, int) ([]*model.Notification, error) {
	var out []*model.Notification
	for _, n := range r.notifications {
		if n.IsReadyToSend() {
			out = append(out, n)
		}
	}
	return out, nil
}

func (r *memNotificationRepo) ListByRecipient(_ context.Context, recipientID model.UserID) ([]*model.Notification, error) {
	var out []*model.Notification
	for _, n := range r.notifications {
		if n.RecipientID == recipientID {
			out = append(out, n)
		}
	}
	return out, nil
}

func (r *memNotificationRepo) Delete(_ context.Context, id model.NotificationID) error {
	if _, ok := r.notifications[id]; !ok {
		return apperrors.NotFound("notification", nil)
	}
	delete(r.notifications, id)
	return nil
}

func newTestService(t *testing.T) (Service, *model.User) {
	t.Helper()
	users := &memUserRepo{users: map[model.UserID]*model.User{}}
	notifications := &memNotificationRepo{notifications: map[model.NotificationID]*model.Notification{}}

	u, err := model.NewUser(model.NewUserID(), "Alice", "alice@example.com", "", "")
	require.NoError(t, err)
	require.NoError(t, users.Save(context.Background(), u))

	return NewService(notifications, users), u
}

func TestCreateNotification(t *testing.T) {
	svc, u := newTestService(t)

	resp := svc.Create(context.Background(), &model.CreateNotificationRequest{
		RecipientID: u.ID.String(),
		Subject:     "subject",
		Content:     "content",
		Priority:    "high",
	})
	require.True(t, resp.Success, resp.Message)

	n := resp.Data.(*model.Notification)
	assert.Equal(t, model.PriorityHigh, n.Priority)
	assert.True(t, n.IsReadyToSend())
}

func TestCreateNotificationUnknownRecipient(t *testing.T) {
	svc, _ := newTestService(t)

	resp := svc.Create(context.Background(), &model.CreateNotificationRequest{
		RecipientID: model.NewUserID().String(),
		Subject:     "s",
		Content:     "c",
	})
	assert.False(t, resp.Success)
	assert.Equal(t, "Recipient not found", resp.Message)
}

func TestCreateScheduledNotificationNotReady(t *testing.T) {
	svc, u := newTestService(t)

	at := time.Now().UTC().Add(time.Hour)
	resp := svc.Create(context.Background(), &model.CreateNotificationRequest{
		RecipientID: u.ID.String(),
		Subject:     "s",
		Content:     "c",
		ScheduledAt: &at,
	})
	require.True(t, resp.Success)
	assert.False(t, resp.Data.(*model.Notification).IsReadyToSend())
}

func TestCancelAndReschedule(t *testing.T) {
	svc, u := newTestService(t)

	resp := svc.Create(context.Background(), &model.CreateNotificationRequest{
		RecipientID: u.ID.String(),
		Subject:     "s",
		Content:     "c",
	})
	require.True(t, resp.Success)
	n := resp.Data.(*model.Notification)

	resched := svc.Reschedule(context.Background(), n.ID.String(), &model.RescheduleRequest{
		ScheduledAt: time.Now().UTC().Add(time.Hour),
	})
	require.True(t, resched.Success, resched.Message)

	cancelResp := svc.Cancel(context.Background(), n.ID.String())
	require.True(t, cancelResp.Success)
	assert.True(t, cancelResp.Data.(*model.Notification).Cancelled)

	// Cancelled notifications cannot be rescheduled.
	resched = svc.Reschedule(context.Background(), n.ID.String(), &model.RescheduleRequest{
		ScheduledAt: time.Now().UTC().Add(time.Hour),
	})
	assert.False(t, resched.Success)
}

func TestRescheduleRejectsPast(t *testing.T) {
	svc, u := newTestService(t)

	resp := svc.Create(context.Background(), &model.CreateNotificationRequest{
		RecipientID: u.ID.String(),
		Subject:     "s",
		Content:     "c",
	})
	require.True(t, resp.Success)
	n := resp.Data.(*model.Notification)

	resched := svc.Reschedule(context.Background(), n.ID.String(), &model.RescheduleRequest{
		ScheduledAt: time.Now().UTC().Add(-time.Hour),
	})
	assert.False(t, resched.Success)
}

func TestGetNotificationNotFound(t *testing.T) {
	svc, _ := newTestService(t)

	resp := svc.Get(context.Background(), model.NewNotificationID().String())
	assert.False(t, resp.Success)
	assert.Equal(t, "Notification not found", resp.Message)
}

func TestDeleteNotification(t *testing.T) {
	svc, u := newTestService(t)

	resp := svc.Create(context.Background(), &model.CreateNotificationRequest{
		RecipientID: u.ID.String(),
		Subject:     "s",
		Content:     "c",
	})
	require.True(t, resp.Success)
	n := resp.Data.(*model.Notification)

	require.True(t, svc.Delete(context.Background(), n.ID.String()).Success)

	second := svc.Delete(context.Background(), n.ID.String())
	assert.False(t, second.Success)
	assert.Equal(t, "Notification not found", second.Message)
}

func TestListByRecipient(t *testing.T) {
	svc, u := newTestService(t)

	for i := 0; i < 3; i++ {
		resp := svc.Create(context.Background(), &model.CreateNotificationRequest{
			RecipientID: u.ID.String(),
			Subject:     "s",
			Content:     "c",
		})
		require.True(t, resp.Success)
	}

	resp := svc.ListByRecipient(context.Background(), u.ID.String())
	require.True(t, resp.Success)
	assert.Len(t, resp.Data.([]*model.Notification), 3)
}
