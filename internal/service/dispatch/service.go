package dispatch

import (
	"context"
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/jwalitptl/notify-api/internal/model"
	"github.com/jwalitptl/notify-api/internal/provider"
	"github.com/jwalitptl/notify-api/internal/repository"
	"github.com/jwalitptl/notify-api/internal/service/channel"
	apperrors "github.com/jwalitptl/notify-api/pkg/errors"
	"github.com/jwalitptl/notify-api/pkg/logger"
	"github.com/jwalitptl/notify-api/pkg/messaging"
	"github.com/jwalitptl/notify-api/pkg/metrics"
)

// Service orchestrates notification deliveries: it creates the
// delivery aggregate, runs the strategy loop against the ordered
// provider list, and persists the outcome.
type Service struct {
	users         repository.UserRepository
	notifications repository.NotificationRepository
	deliveries    repository.DeliveryRepository
	channels      *channel.Service
	broker        messaging.Broker
	metrics       *metrics.Metrics
	logger        *logger.Logger
}

func NewService(
	users repository.UserRepository,
	notifications repository.NotificationRepository,
	deliveries repository.DeliveryRepository,
	channels *channel.Service,
	broker messaging.Broker,
	m *metrics.Metrics,
	l *logger.Logger,
) *Service {
	return &Service{
		users:         users,
		notifications: notifications,
		deliveries:    deliveries,
		channels:      channels,
		broker:        broker,
		metrics:       m,
		logger:        l.WithComponent("dispatch"),
	}
}

// Send processes a single-recipient send request end to end.
func (s *Service) Send(ctx context.Context, req *model.SendNotificationRequest) *model.OperationResponse {
	recipientID, err := model.ParseUserID(req.RecipientID)
	if err != nil {
		return model.NewErrorResponse("Invalid input data", err.Error())
	}

	user, err := s.users.Get(ctx, recipientID)
	if err != nil {
		if apperrors.IsCode(err, apperrors.ErrNotFound) {
			return model.NewErrorResponse("Recipient not found", "user with given ID does not exist")
		}
		return model.NewErrorResponse("Failed to send notification", err.Error())
	}
	if !user.CanReceiveNotifications() {
		return model.NewErrorResponse("User cannot receive notifications", "user is inactive or has no available channels")
	}

	priority, err := model.ParsePriority(req.Priority)
	if err != nil {
		return model.NewErrorResponse("Invalid input data", err.Error())
	}
	strategy, err := model.ParseStrategy(req.Strategy)
	if err != nil {
		return model.NewErrorResponse("Invalid input data", err.Error())
	}
	template, err := model.NewMessageTemplate(req.Subject, req.Content, req.TemplateData)
	if err != nil {
		return model.NewErrorResponse("Invalid input data", err.Error())
	}
	// Catch unresolvable templates before the state machine ever runs.
	if _, err := template.Render(nil); err != nil {
		return model.NewErrorResponse("Invalid input data", err.Error())
	}

	notification := model.NewNotification(model.NewNotificationID(), recipientID, template, priority, time.Time{}, nil)
	if err := s.notifications.Save(ctx, notification); err != nil {
		return model.NewErrorResponse("Failed to send notification", err.Error())
	}

	delivery := model.NewDelivery(model.NewDeliveryID(), notification, user, strategy, model.DefaultRetryPolicy())
	report := s.Execute(ctx, delivery)

	if err := s.deliveries.Save(ctx, delivery); err != nil {
		s.logger.Error(err, "failed to save delivery", "delivery_id", delivery.ID.String())
	}

	return &model.OperationResponse{
		Success: report.Success,
		Message: "Notification processed",
		Data:    report,
	}
}

// Execute runs the strategy loop on a PENDING delivery and returns the
// resulting report. Provider failures are converted to failed results
// inside the loop; nothing a provider does can make Execute abandon
// the delivery in a non-terminal state unexpectedly.
func (s *Service) Execute(ctx context.Context, d *model.Delivery) *model.DeliveryReport {
	timer := prometheus.NewTimer(s.metrics.DeliveryDuration)
	defer timer.ObserveDuration()
	defer s.finish(ctx, d)

	if err := d.Start(); err != nil {
		s.logger.Error(err, "delivery start rejected", "delivery_id", d.ID.String())
		return model.NewDeliveryReport(d)
	}
	if d.IsCompleted() {
		// Start failed the delivery (inactive user or notification not
		// ready); no attempts are recorded.
		return model.NewDeliveryReport(d)
	}

	providers := s.channels.OrderedProviders(d.User)
	if len(providers) == 0 {
		return model.NewDeliveryReport(d)
	}

	s.runAttempts(ctx, d, providers)
	return model.NewDeliveryReport(d)
}

// Redeliver re-runs the attempt loop for a delivery that was re-armed
// via Retry(). Used by the retry worker.
func (s *Service) Redeliver(ctx context.Context, d *model.Delivery) (*model.DeliveryReport, error) {
	if d.Status != model.StatusRetrying {
		return nil, apperrors.InvalidState(fmt.Sprintf("cannot redeliver in status %s", d.Status))
	}

	providers := s.channels.OrderedProviders(d.User)
	if len(providers) > 0 {
		s.runAttempts(ctx, d, providers)
	}

	if err := s.deliveries.Save(ctx, d); err != nil {
		return nil, fmt.Errorf("failed to save delivery: %w", err)
	}
	s.finish(ctx, d)
	return model.NewDeliveryReport(d), nil
}

func (s *Service) runAttempts(ctx context.Context, d *model.Delivery, providers []provider.Provider) {
	rendered, err := d.Notification.RenderMessage(nil)
	if err != nil {
		// Templates are validated before dispatch, so this is a logic
		// bug; force a terminal state rather than abandoning the
		// delivery mid-flight.
		s.logger.Error(err, "template render failed mid-dispatch", "delivery_id", d.ID.String())
		if cancelErr := d.Cancel(); cancelErr != nil {
			s.logger.Error(cancelErr, "failed to terminate delivery", "delivery_id", d.ID.String())
		}
		return
	}

	for _, p := range providers {
		result := s.attemptProvider(ctx, p, d.User, rendered)

		if err := d.AddAttempt(p.Name(), p.ChannelType(), result); err != nil {
			// The delivery reached a terminal state between attempts,
			// e.g. a racing cancel. The in-flight result is dropped.
			s.logger.Warn("attempt rejected by state machine",
				"delivery_id", d.ID.String(), "provider", p.Name(), "status", d.Status.String())
			return
		}
		s.metrics.AttemptsTotal.WithLabelValues(p.Name(), resultLabel(result)).Inc()

		if d.Strategy == model.StrategyFirstSuccess && result.Success {
			return
		}
		if d.Strategy == model.StrategyFailFast && !result.Success {
			return
		}
		if d.IsCompleted() {
			return
		}
	}
}

// attemptProvider calls one provider and converts every failure mode,
// including panics, into a failed DeliveryResult.
func (s *Service) attemptProvider(ctx context.Context, p provider.Provider, user *model.User, msg *model.RenderedMessage) (result *model.DeliveryResult) {
	defer func() {
		if r := recover(); r != nil {
			s.logger.Error(fmt.Errorf("%v", r), "provider panicked", "provider", p.Name())
			result = model.FailureResult(p.Name(), fmt.Sprintf("provider panic: %v", r), model.CodeProviderError)
		}
	}()

	res, err := p.Send(ctx, user, msg)
	if err != nil {
		return model.FailureResult(p.Name(), err.Error(), model.CodeProviderError)
	}
	if res == nil {
		return model.FailureResult(p.Name(), "provider returned no result", model.CodeProviderError)
	}
	return res
}

func (s *Service) finish(ctx context.Context, d *model.Delivery) {
	if !d.IsCompleted() {
		return
	}
	s.metrics.DeliveriesTotal.WithLabelValues(d.Status.String(), d.Strategy.String()).Inc()

	event := &messaging.DeliveryEvent{
		DeliveryID:     d.ID.String(),
		NotificationID: d.Notification.ID.String(),
		UserID:         d.User.ID.String(),
		Status:         d.Status.String(),
		Strategy:       d.Strategy.String(),
		Attempts:       len(d.Attempts),
	}
	if err := s.broker.Publish(ctx, messaging.ChannelDeliveries, event); err != nil {
		s.logger.Error(err, "failed to publish delivery event", "delivery_id", d.ID.String())
	}
}

func resultLabel(r *model.DeliveryResult) string {
	if r.Success {
		return "success"
	}
	return "failure"
}

// GetDelivery returns the delivery report for one delivery.
func (s *Service) GetDelivery(ctx context.Context, id model.DeliveryID) (*model.DeliveryReport, error) {
	d, err := s.deliveries.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	return model.NewDeliveryReport(d), nil
}

// ListDeliveries returns reports for every delivery of a notification.
func (s *Service) ListDeliveries(ctx context.Context, notificationID model.NotificationID) ([]*model.DeliveryReport, error) {
	deliveries, err := s.deliveries.ListByNotification(ctx, notificationID)
	if err != nil {
		return nil, err
	}
	reports := make([]*model.DeliveryReport, 0, len(deliveries))
	for _, d := range deliveries {
		reports = append(reports, model.NewDeliveryReport(d))
	}
	return reports, nil
}

// Stats summarizes delivery outcomes over a trailing window of days.
func (s *Service) Stats(ctx context.Context, days int) (*model.DeliveryStats, error) {
	return s.deliveries.Stats(ctx, days)
}

// RetryDelivery re-arms a failed delivery. The actual re-execution is
// picked up by the retry worker once the policy's backoff delay for
// the next attempt has elapsed.
func (s *Service) RetryDelivery(ctx context.Context, id model.DeliveryID) *model.OperationResponse {
	d, err := s.deliveries.Get(ctx, id)
	if err != nil {
		if apperrors.IsCode(err, apperrors.ErrNotFound) {
			return model.NewErrorResponse("Delivery not found", err.Error())
		}
		return model.NewErrorResponse("Failed to retry delivery", err.Error())
	}

	if err := d.Retry(); err != nil {
		return model.NewErrorResponse("Cannot retry delivery", err.Error())
	}
	if err := s.deliveries.Save(ctx, d); err != nil {
		return model.NewErrorResponse("Failed to retry delivery", err.Error())
	}
	return model.NewSuccessResponse("Delivery scheduled for retry", model.NewDeliveryReport(d))
}

// CancelDelivery forces a non-terminal delivery into FAILED.
func (s *Service) CancelDelivery(ctx context.Context, id model.DeliveryID) *model.OperationResponse {
	d, err := s.deliveries.Get(ctx, id)
	if err != nil {
		if apperrors.IsCode(err, apperrors.ErrNotFound) {
			return model.NewErrorResponse("Delivery not found", err.Error())
		}
		return model.NewErrorResponse("Failed to cancel delivery", err.Error())
	}

	if err := d.Cancel(); err != nil {
		return model.NewErrorResponse("Cannot cancel delivery", err.Error())
	}
	if err := s.deliveries.Save(ctx, d); err != nil {
		return model.NewErrorResponse("Failed to cancel delivery", err.Error())
	}
	return model.NewSuccessResponse("Delivery cancelled", model.NewDeliveryReport(d))
}
