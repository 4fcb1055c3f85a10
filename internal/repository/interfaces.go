package repository

import (
	"context"

	"github.com/jwalitptl/notify-api/internal/model"
)

// All repository interfaces in one file
type (
	// UserRepository handles recipient persistence.
	UserRepository interface {
		Get(ctx context.Context, id model.UserID) (*model.User, error)
		Save(ctx context.Context, user *model.User) error
		ListActive(ctx context.Context) ([]*model.User, error)
		Delete(ctx context.Context, id model.UserID) error
	}

	// NotificationRepository handles scheduled notifications.
	// ListPending returns sendable notifications sorted by priority
	// (critical first) then scheduled time.
	NotificationRepository interface {
		Get(ctx context.Context, id model.NotificationID) (*model.Notification, error)
		Save(ctx context.Context, notification *model.Notification) error
		ListPending(ctx context.Context, limit int) ([]*model.Notification, error)
		ListByRecipient(ctx context.Context, recipientID model.UserID) ([]*model.Notification, error)
		Delete(ctx context.Context, id model.NotificationID) error
	}

	// DeliveryRepository handles delivery aggregates.
	DeliveryRepository interface {
		Get(ctx context.Context, id model.DeliveryID) (*model.Delivery, error)
		Save(ctx context.Context, delivery *model.Delivery) error
		ListByNotification(ctx context.Context, notificationID model.NotificationID) ([]*model.Delivery, error)
		ListPendingRetries(ctx context.Context) ([]*model.Delivery, error)
		Stats(ctx context.Context, days int) (*model.DeliveryStats, error)
	}
)
