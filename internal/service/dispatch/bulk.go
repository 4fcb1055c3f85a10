package dispatch

import (
	"context"
	"fmt"
	"sync"

	"github.com/jwalitptl/notify-api/internal/model"
)

const defaultMaxConcurrent = 10

// SendBulk fans one message out to many recipients with a bounded
// number of in-flight sends. Unknown or unreachable recipients are
// reported as invalid; a failure for one recipient never aborts the
// rest of the batch.
func (s *Service) SendBulk(ctx context.Context, req *model.BulkNotificationRequest) *model.OperationResponse {
	maxConcurrent := req.MaxConcurrent
	if maxConcurrent < 1 {
		maxConcurrent = defaultMaxConcurrent
	}
	if maxConcurrent > 100 {
		maxConcurrent = 100
	}

	var invalid []model.FailedRecipient
	var users []*model.User
	for _, raw := range req.RecipientIDs {
		id, err := model.ParseUserID(raw)
		if err != nil {
			invalid = append(invalid, model.FailedRecipient{UserID: raw, Error: err.Error()})
			continue
		}
		user, err := s.users.Get(ctx, id)
		if err != nil {
			invalid = append(invalid, model.FailedRecipient{UserID: raw, Error: "user does not exist"})
			continue
		}
		if !user.CanReceiveNotifications() {
			invalid = append(invalid, model.FailedRecipient{UserID: raw, Error: "user cannot receive notifications"})
			continue
		}
		users = append(users, user)
	}

	if len(users) == 0 {
		return model.NewErrorResponse("No valid recipients found", "none of the provided recipient IDs can receive notifications")
	}
	s.metrics.BulkBatchSize.Observe(float64(len(users)))

	var (
		mu         sync.Mutex
		wg         sync.WaitGroup
		successful []*model.DeliveryReport
		failed     []model.FailedRecipient
	)
	sem := make(chan struct{}, maxConcurrent)

	for _, user := range users {
		wg.Add(1)
		go func(u *model.User) {
			defer wg.Done()
			sem <- struct{}{}
			defer func() { <-sem }()

			resp := s.sendOne(ctx, req, u)

			mu.Lock()
			defer mu.Unlock()
			if resp.Success {
				if report, ok := resp.Data.(*model.DeliveryReport); ok {
					successful = append(successful, report)
				} else {
					successful = append(successful, nil)
				}
			} else {
				failed = append(failed, model.FailedRecipient{UserID: u.ID.String(), Error: resp.Message})
			}
		}(user)
	}
	wg.Wait()

	rate := float64(len(successful)) / float64(len(users)) * 100
	report := &model.BulkReport{
		TotalRecipients:      len(req.RecipientIDs),
		ValidRecipients:      len(users),
		InvalidRecipients:    invalid,
		SuccessfulDeliveries: successful,
		FailedDeliveries:     failed,
		SuccessRate:          rate,
	}

	return &model.OperationResponse{
		Success: len(successful) > 0,
		Message: fmt.Sprintf("Bulk notification completed. %d successful, %d failed", len(successful), len(failed)),
		Data:    report,
	}
}

// sendOne processes a single recipient of a bulk batch, isolating any
// panic so one recipient cannot take down its siblings.
func (s *Service) sendOne(ctx context.Context, req *model.BulkNotificationRequest, u *model.User) (resp *model.OperationResponse) {
	defer func() {
		if r := recover(); r != nil {
			s.logger.Error(fmt.Errorf("%v", r), "bulk send panicked", "user_id", u.ID.String())
			resp = model.NewErrorResponse(fmt.Sprintf("send panicked: %v", r))
		}
	}()

	data := make(map[string]any, len(req.TemplateData)+2)
	for k, v := range req.TemplateData {
		data[k] = v
	}
	data["user_name"] = u.Name
	data["user_id"] = u.ID.String()

	return s.Send(ctx, &model.SendNotificationRequest{
		RecipientID:  u.ID.String(),
		Subject:      req.Subject,
		Content:      req.Content,
		TemplateData: data,
		Priority:     req.Priority,
		Strategy:     req.Strategy,
	})
}
