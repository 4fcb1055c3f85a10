package notification

import (
	"context"
	"time"

	"github.com/jwalitptl/notify-api/internal/model"
	"github.com/jwalitptl/notify-api/internal/repository"
	apperrors "github.com/jwalitptl/notify-api/pkg/errors"
)

type Service interface {
	Create(ctx context.Context, req *model.CreateNotificationRequest) *model.OperationResponse
	Get(ctx context.Context, id string) *model.OperationResponse
	Cancel(ctx context.Context, id string) *model.OperationResponse
	Reschedule(ctx context.Context, id string, req *model.RescheduleRequest) *model.OperationResponse
	Delete(ctx context.Context, id string) *model.OperationResponse
	ListPending(ctx context.Context, limit int) *model.OperationResponse
	ListByRecipient(ctx context.Context, recipientID string) *model.OperationResponse
}

type service struct {
	notifications repository.NotificationRepository
	users         repository.UserRepository
}

func NewService(notifications repository.NotificationRepository, users repository.UserRepository) Service {
	return &service{notifications: notifications, users: users}
}

func (s *service) Create(ctx context.Context, req *model.CreateNotificationRequest) *model.OperationResponse {
	recipientID, err := model.ParseUserID(req.RecipientID)
	if err != nil {
		return model.NewErrorResponse("Invalid input data", err.Error())
	}
	if _, err := s.users.Get(ctx, recipientID); err != nil {
		if apperrors.IsCode(err, apperrors.ErrNotFound) {
			return model.NewErrorResponse("Recipient not found", "user with given ID does not exist")
		}
		return model.NewErrorResponse("Failed to create notification", err.Error())
	}

	priority, err := model.ParsePriority(req.Priority)
	if err != nil {
		return model.NewErrorResponse("Invalid input data", err.Error())
	}
	template, err := model.NewMessageTemplate(req.Subject, req.Content, req.TemplateData)
	if err != nil {
		return model.NewErrorResponse("Invalid input data", err.Error())
	}

	scheduledAt := timeOrZero(req.ScheduledAt)
	notification := model.NewNotification(model.NewNotificationID(), recipientID, template, priority, scheduledAt, req.ExpiresAt)
	if err := s.notifications.Save(ctx, notification); err != nil {
		return model.NewErrorResponse("Failed to create notification", err.Error())
	}
	return model.NewSuccessResponse("Notification created", notification)
}

func (s *service) Get(ctx context.Context, id string) *model.OperationResponse {
	notification, err := s.load(ctx, id)
	if err != nil {
		return notFoundOr("Failed to get notification", err)
	}
	return model.NewSuccessResponse("Notification found", notification)
}

func (s *service) Cancel(ctx context.Context, id string) *model.OperationResponse {
	notification, err := s.load(ctx, id)
	if err != nil {
		return notFoundOr("Failed to cancel notification", err)
	}
	notification.Cancel()
	if err := s.notifications.Save(ctx, notification); err != nil {
		return model.NewErrorResponse("Failed to cancel notification", err.Error())
	}
	return model.NewSuccessResponse("Notification cancelled", notification)
}

func (s *service) Reschedule(ctx context.Context, id string, req *model.RescheduleRequest) *model.OperationResponse {
	notification, err := s.load(ctx, id)
	if err != nil {
		return notFoundOr("Failed to reschedule notification", err)
	}
	if err := notification.Reschedule(req.ScheduledAt); err != nil {
		return model.NewErrorResponse("Cannot reschedule notification", err.Error())
	}
	if err := s.notifications.Save(ctx, notification); err != nil {
		return model.NewErrorResponse("Failed to reschedule notification", err.Error())
	}
	return model.NewSuccessResponse("Notification rescheduled", notification)
}

func (s *service) Delete(ctx context.Context, id string) *model.OperationResponse {
	notificationID, err := model.ParseNotificationID(id)
	if err != nil {
		return model.NewErrorResponse("Invalid input data", err.Error())
	}
	if err := s.notifications.Delete(ctx, notificationID); err != nil {
		return notFoundOr("Failed to delete notification", err)
	}
	return model.NewSuccessResponse("Notification deleted", nil)
}

func (s *service) ListPending(ctx context.Context, limit int) *model.OperationResponse {
	notifications, err := s.notifications.ListPending(ctx, limit)
	if err != nil {
		return model.NewErrorResponse("Failed to list pending notifications", err.Error())
	}
	return model.NewSuccessResponse("Pending notifications", notifications)
}

func (s *service) ListByRecipient(ctx context.Context, recipientID string) *model.OperationResponse {
	id, err := model.ParseUserID(recipientID)
	if err != nil {
		return model.NewErrorResponse("Invalid input data", err.Error())
	}
	notifications, err := s.notifications.ListByRecipient(ctx, id)
	if err != nil {
		return model.NewErrorResponse("Failed to list notifications", err.Error())
	}
	return model.NewSuccessResponse("Notifications for recipient", notifications)
}

func (s *service) load(ctx context.Context, id string) (*model.Notification, error) {
	notificationID, err := model.ParseNotificationID(id)
	if err != nil {
		return nil, apperrors.BadRequest("invalid notification ID", err)
	}
	return s.notifications.Get(ctx, notificationID)
}

func notFoundOr(message string, err error) *model.OperationResponse {
	switch {
	case apperrors.IsCode(err, apperrors.ErrNotFound):
		return model.NewErrorResponse("Notification not found", "notification with given ID does not exist")
	case apperrors.IsCode(err, apperrors.ErrBadRequest):
		return model.NewErrorResponse("Invalid input data", err.Error())
	default:
		return model.NewErrorResponse(message, err.Error())
	}
}

func timeOrZero(t *time.Time) time.Time {
	if t == nil {
		return time.Time{}
	}
	return *t
}
