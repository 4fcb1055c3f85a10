package model

import "time"

// OperationResponse is the uniform envelope every use case returns.
type OperationResponse struct {
	Success bool     `json:"success"`
	Message string   `json:"message"`
	Data    any      `json:"data,omitempty"`
	Errors  []string `json:"errors,omitempty"`
}

func NewSuccessResponse(message string, data any) *OperationResponse {
	return &OperationResponse{Success: true, Message: message, Data: data}
}

func NewErrorResponse(message string, errs ...string) *OperationResponse {
	return &OperationResponse{Success: false, Message: message, Errors: errs}
}

// SendNotificationRequest asks for a single immediate send.
type SendNotificationRequest struct {
	RecipientID  string         `json:"recipient_id" binding:"required"`
	Subject      string         `json:"subject" binding:"required"`
	Content      string         `json:"content" binding:"required"`
	TemplateData map[string]any `json:"template_data"`
	Priority     string         `json:"priority" binding:"omitempty,oneof=low normal high critical"`
	Strategy     string         `json:"strategy" binding:"omitempty,oneof=first_success try_all fail_fast"`
}

// BulkNotificationRequest fans one message out to many recipients.
type BulkNotificationRequest struct {
	RecipientIDs  []string       `json:"recipient_ids" binding:"required,min=1"`
	Subject       string         `json:"subject" binding:"required"`
	Content       string         `json:"content" binding:"required"`
	TemplateData  map[string]any `json:"template_data"`
	Priority      string         `json:"priority" binding:"omitempty,oneof=low normal high critical"`
	Strategy      string         `json:"strategy" binding:"omitempty,oneof=first_success try_all fail_fast"`
	MaxConcurrent int            `json:"max_concurrent" binding:"omitempty,min=1,max=100"`
}

type CreateUserRequest struct {
	Name        string   `json:"name" binding:"required"`
	Email       string   `json:"email" binding:"omitempty,email"`
	Phone       string   `json:"phone"`
	ChatID      string   `json:"chat_id"`
	Preferences []string `json:"preferences"`
}

type UpdateUserRequest struct {
	Name   *string `json:"name"`
	Email  *string `json:"email" binding:"omitempty,email"`
	Phone  *string `json:"phone"`
	ChatID *string `json:"chat_id"`
}

type CreateNotificationRequest struct {
	RecipientID  string         `json:"recipient_id" binding:"required"`
	Subject      string         `json:"subject" binding:"required"`
	Content      string         `json:"content" binding:"required"`
	TemplateData map[string]any `json:"template_data"`
	Priority     string         `json:"priority" binding:"omitempty,oneof=low normal high critical"`
	ScheduledAt  *time.Time     `json:"scheduled_at"`
	ExpiresAt    *time.Time     `json:"expires_at"`
}

type RescheduleRequest struct {
	ScheduledAt time.Time `json:"scheduled_at" binding:"required"`
}

// DeliveryReport is the per-delivery view returned to callers.
type DeliveryReport struct {
	ID                  DeliveryID         `json:"id"`
	NotificationID      NotificationID     `json:"notification_id"`
	UserID              UserID             `json:"user_id"`
	Status              Status             `json:"status"`
	Strategy            Strategy           `json:"strategy"`
	Attempts            []*DeliveryAttempt `json:"attempts"`
	TotalAttempts       int                `json:"total_attempts"`
	SuccessfulProviders []string           `json:"successful_providers"`
	FailedProviders     []string           `json:"failed_providers"`
	StartedAt           *time.Time         `json:"started_at,omitempty"`
	CompletedAt         *time.Time         `json:"completed_at,omitempty"`
	TotalDeliveryTime   time.Duration      `json:"total_delivery_time"`
	Success             bool               `json:"success"`
}

func NewDeliveryReport(d *Delivery) *DeliveryReport {
	var successful, failed []string
	for _, a := range d.SuccessfulAttempts() {
		successful = append(successful, a.Provider)
	}
	for _, a := range d.FailedAttempts() {
		failed = append(failed, a.Provider)
	}
	var elapsed time.Duration
	if t := d.TotalDeliveryTime(); t != nil {
		elapsed = *t
	}
	return &DeliveryReport{
		ID:                  d.ID,
		NotificationID:      d.Notification.ID,
		UserID:              d.User.ID,
		Status:              d.Status,
		Strategy:            d.Strategy,
		Attempts:            d.Attempts,
		TotalAttempts:       len(d.Attempts),
		SuccessfulProviders: successful,
		FailedProviders:     failed,
		StartedAt:           d.StartedAt,
		CompletedAt:         d.CompletedAt,
		TotalDeliveryTime:   elapsed,
		Success:             len(successful) > 0,
	}
}

// FailedRecipient records one recipient that did not get the message
// during a bulk send.
type FailedRecipient struct {
	UserID string `json:"user_id"`
	Error  string `json:"error"`
}

// BulkReport aggregates a bulk send. Invalid recipients (unknown or
// unreachable users) are reported separately from failed sends.
type BulkReport struct {
	TotalRecipients      int               `json:"total_recipients"`
	ValidRecipients      int               `json:"valid_recipients"`
	InvalidRecipients    []FailedRecipient `json:"invalid_recipients"`
	SuccessfulDeliveries []*DeliveryReport `json:"successful_deliveries"`
	FailedDeliveries     []FailedRecipient `json:"failed_deliveries"`
	SuccessRate          float64           `json:"success_rate"`
}

// DeliveryStats summarizes outcomes over a trailing window.
type DeliveryStats struct {
	Days        int              `json:"days"`
	Total       int64            `json:"total"`
	ByStatus    map[string]int64 `json:"by_status"`
	AvgAttempts float64          `json:"avg_attempts"`
	SuccessRate float64          `json:"success_rate"`
}
