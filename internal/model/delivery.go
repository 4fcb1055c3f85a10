package model

import (
	"fmt"
	"time"

	apperrors "github.com/jwalitptl/notify-api/pkg/errors"
)

// Status is the delivery lifecycle state.
type Status string

const (
	StatusPending   Status = "pending"
	StatusSent      Status = "sent"
	StatusDelivered Status = "delivered"
	StatusFailed    Status = "failed"
	StatusRetrying  Status = "retrying"
)

func ParseStatus(s string) (Status, error) {
	switch Status(s) {
	case StatusPending, StatusSent, StatusDelivered, StatusFailed, StatusRetrying:
		return Status(s), nil
	default:
		return "", fmt.Errorf("unknown delivery status: %q", s)
	}
}

func (s Status) String() string { return string(s) }

// Strategy decides how many providers are attempted and when the loop
// stops.
type Strategy string

const (
	StrategyFirstSuccess Strategy = "first_success"
	StrategyTryAll       Strategy = "try_all"
	StrategyFailFast     Strategy = "fail_fast"
)

// ParseStrategy falls back to StrategyFirstSuccess for empty input.
func ParseStrategy(s string) (Strategy, error) {
	if s == "" {
		return StrategyFirstSuccess, nil
	}
	switch Strategy(s) {
	case StrategyFirstSuccess, StrategyTryAll, StrategyFailFast:
		return Strategy(s), nil
	default:
		return "", fmt.Errorf("unknown delivery strategy: %q", s)
	}
}

func (s Strategy) String() string { return string(s) }

// Delivery is the aggregate that owns every state transition for one
// (notification, user) pair. The notification and user are read-only
// references; Delivery never mutates them. Once DELIVERED or FAILED,
// a delivery accepts no further attempts.
type Delivery struct {
	ID           DeliveryID         `json:"id" db:"id"`
	Notification *Notification      `json:"notification" db:"-"`
	User         *User              `json:"user" db:"-"`
	Strategy     Strategy           `json:"strategy" db:"strategy"`
	RetryPolicy  RetryPolicy        `json:"retry_policy" db:"-"`
	Status       Status             `json:"status" db:"status"`
	Attempts     []*DeliveryAttempt `json:"attempts" db:"-"`
	StartedAt    *time.Time         `json:"started_at,omitempty" db:"started_at"`
	CompletedAt  *time.Time         `json:"completed_at,omitempty" db:"completed_at"`
	FinalResult  *DeliveryResult    `json:"final_result,omitempty" db:"-"`
	CreatedAt    time.Time          `json:"created_at" db:"created_at"`
	UpdatedAt    time.Time          `json:"updated_at" db:"updated_at"`
}

func NewDelivery(id DeliveryID, notification *Notification, user *User, strategy Strategy, policy RetryPolicy) *Delivery {
	now := time.Now().UTC()
	if strategy == "" {
		strategy = StrategyFirstSuccess
	}
	return &Delivery{
		ID:           id,
		Notification: notification,
		User:         user,
		Strategy:     strategy,
		RetryPolicy:  policy,
		Status:       StatusPending,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
}

// Start moves the delivery out of PENDING. A recipient that cannot
// receive notifications, or a notification that is not ready, makes
// the delivery terminally FAILED right away with a system-origin
// result and no recorded attempt.
func (d *Delivery) Start() error {
	if d.Status != StatusPending {
		return apperrors.InvalidState(fmt.Sprintf("cannot start delivery in status %s", d.Status))
	}

	if !d.User.CanReceiveNotifications() {
		d.failWithError(CodeUserInactive, "user cannot receive notifications")
		return nil
	}
	if !d.Notification.IsReadyToSend() {
		d.failWithError(CodeNotificationNotReady, "notification is not ready to send")
		return nil
	}

	now := time.Now().UTC()
	d.Status = StatusSent
	d.StartedAt = &now
	d.touch()
	return nil
}

// AddAttempt records the outcome of one provider call and advances the
// state machine. Success is terminal (DELIVERED). Failure is handled
// per strategy: fail_fast fails immediately, try_all fails once every
// available channel has been attempted, first_success fails once the
// retry budget is spent.
func (d *Delivery) AddAttempt(provider string, channel Channel, result *DeliveryResult) error {
	if d.Status != StatusSent && d.Status != StatusRetrying {
		return apperrors.InvalidState(fmt.Sprintf("cannot add attempt in status %s", d.Status))
	}
	if result == nil {
		return apperrors.BadRequest("attempt result is required", nil)
	}

	d.Attempts = append(d.Attempts, &DeliveryAttempt{
		Provider:    provider,
		Channel:     channel,
		AttemptedAt: time.Now().UTC(),
		Result:      result,
	})

	if result.Success {
		d.complete(result)
	} else {
		d.handleFailedAttempt(result)
	}
	d.touch()
	return nil
}

// Retry re-arms a FAILED delivery for another executor pass. It is the
// only path into RETRYING: in-flight failures never set it.
func (d *Delivery) Retry() error {
	if d.Status != StatusFailed {
		return apperrors.InvalidState(fmt.Sprintf("cannot retry delivery in status %s", d.Status))
	}
	if len(d.Attempts) >= d.RetryPolicy.MaxRetries {
		return apperrors.RetryExhausted("maximum retries exceeded")
	}
	d.Status = StatusRetrying
	d.touch()
	return nil
}

// Cancel forces a non-terminal delivery into FAILED. A provider result
// that races the cancellation is rejected by AddAttempt's status check
// and cannot overwrite the terminal state.
func (d *Delivery) Cancel() error {
	if d.Status == StatusDelivered || d.Status == StatusFailed {
		return apperrors.InvalidState(fmt.Sprintf("cannot cancel delivery in status %s", d.Status))
	}
	d.failWithError(CodeCancelled, "delivery was cancelled")
	d.touch()
	return nil
}

func (d *Delivery) complete(result *DeliveryResult) {
	now := time.Now().UTC()
	d.Status = StatusDelivered
	d.CompletedAt = &now
	d.FinalResult = result
}

func (d *Delivery) handleFailedAttempt(result *DeliveryResult) {
	switch d.Strategy {
	case StrategyFailFast:
		d.failWithResult(result)
	case StrategyTryAll:
		if d.distinctAttemptedChannels() >= len(d.User.AvailableChannels()) {
			d.failWithResult(result)
		}
	default: // first_success
		if len(d.Attempts) >= d.RetryPolicy.MaxRetries {
			d.failWithResult(result)
		}
	}
}

func (d *Delivery) distinctAttemptedChannels() int {
	seen := map[Channel]struct{}{}
	for _, a := range d.Attempts {
		seen[a.Channel] = struct{}{}
	}
	return len(seen)
}

func (d *Delivery) failWithResult(result *DeliveryResult) {
	now := time.Now().UTC()
	d.Status = StatusFailed
	d.CompletedAt = &now
	d.FinalResult = result
}

func (d *Delivery) failWithError(code, message string) {
	d.failWithResult(&DeliveryResult{
		Success:  false,
		Provider: "system",
		Message:  message,
		Error:    &DeliveryError{Code: code, Message: message},
	})
}

func (d *Delivery) SuccessfulAttempts() []*DeliveryAttempt {
	var out []*DeliveryAttempt
	for _, a := range d.Attempts {
		if a.Result.Success {
			out = append(out, a)
		}
	}
	return out
}

func (d *Delivery) FailedAttempts() []*DeliveryAttempt {
	var out []*DeliveryAttempt
	for _, a := range d.Attempts {
		if !a.Result.Success {
			out = append(out, a)
		}
	}
	return out
}

func (d *Delivery) LastAttempt() *DeliveryAttempt {
	if len(d.Attempts) == 0 {
		return nil
	}
	return d.Attempts[len(d.Attempts)-1]
}

// TotalDeliveryTime is elapsed time from start to completion, or to
// now for an in-flight delivery. Nil if never started.
func (d *Delivery) TotalDeliveryTime() *time.Duration {
	if d.StartedAt == nil {
		return nil
	}
	end := time.Now().UTC()
	if d.CompletedAt != nil {
		end = *d.CompletedAt
	}
	elapsed := end.Sub(*d.StartedAt)
	return &elapsed
}

func (d *Delivery) IsCompleted() bool {
	return d.Status == StatusDelivered || d.Status == StatusFailed
}

func (d *Delivery) touch() {
	d.UpdatedAt = time.Now().UTC()
}
