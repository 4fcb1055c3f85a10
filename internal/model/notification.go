package model

import (
	"time"

	apperrors "github.com/jwalitptl/notify-api/pkg/errors"
)

// Notification is a message scheduled for a single recipient. Once
// cancelled it cannot be mutated again.
type Notification struct {
	ID          NotificationID   `json:"id" db:"id"`
	RecipientID UserID           `json:"recipient_id" db:"recipient_id"`
	Template    *MessageTemplate `json:"template" db:"-"`
	Priority    Priority         `json:"priority" db:"priority"`
	ScheduledAt time.Time        `json:"scheduled_at" db:"scheduled_at"`
	ExpiresAt   *time.Time       `json:"expires_at,omitempty" db:"expires_at"`
	Metadata    map[string]any   `json:"metadata,omitempty" db:"-"`
	Cancelled   bool             `json:"is_cancelled" db:"is_cancelled"`
	CreatedAt   time.Time        `json:"created_at" db:"created_at"`
	UpdatedAt   time.Time        `json:"updated_at" db:"updated_at"`
}

// NewNotification schedules a notification. A zero scheduledAt means
// "now".
func NewNotification(id NotificationID, recipientID UserID, template *MessageTemplate, priority Priority, scheduledAt time.Time, expiresAt *time.Time) *Notification {
	now := time.Now().UTC()
	if scheduledAt.IsZero() {
		scheduledAt = now
	}
	return &Notification{
		ID:          id,
		RecipientID: recipientID,
		Template:    template,
		Priority:    priority,
		ScheduledAt: scheduledAt,
		ExpiresAt:   expiresAt,
		Metadata:    map[string]any{},
		CreatedAt:   now,
		UpdatedAt:   now,
	}
}

func (n *Notification) IsExpired() bool {
	return n.ExpiresAt != nil && time.Now().UTC().After(*n.ExpiresAt)
}

func (n *Notification) IsReadyToSend() bool {
	return !n.Cancelled && !n.IsExpired() && !n.ScheduledAt.After(time.Now().UTC())
}

// Cancel is idempotent.
func (n *Notification) Cancel() {
	if !n.Cancelled {
		n.Cancelled = true
		n.touch()
	}
}

func (n *Notification) Reschedule(at time.Time) error {
	if n.Cancelled {
		return apperrors.InvalidState("cannot reschedule cancelled notification")
	}
	if !at.After(time.Now().UTC()) {
		return apperrors.BadRequest("cannot schedule notification in the past", nil)
	}
	n.ScheduledAt = at
	n.touch()
	return nil
}

func (n *Notification) UpdatePriority(p Priority) error {
	if n.Cancelled {
		return apperrors.InvalidState("cannot update cancelled notification")
	}
	n.Priority = p
	n.touch()
	return nil
}

func (n *Notification) SetMetadata(key string, value any) error {
	if n.Cancelled {
		return apperrors.InvalidState("cannot update cancelled notification")
	}
	if n.Metadata == nil {
		n.Metadata = map[string]any{}
	}
	n.Metadata[key] = value
	n.touch()
	return nil
}

func (n *Notification) RemoveMetadata(key string) error {
	if n.Cancelled {
		return apperrors.InvalidState("cannot update cancelled notification")
	}
	delete(n.Metadata, key)
	n.touch()
	return nil
}

// RenderMessage resolves the template with optional extra variables.
func (n *Notification) RenderMessage(extra map[string]any) (*RenderedMessage, error) {
	return n.Template.Render(extra)
}

func (n *Notification) touch() {
	n.UpdatedAt = time.Now().UTC()
}
