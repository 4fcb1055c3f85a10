package model

import (
	"fmt"
	"strings"

	"github.com/google/uuid"
)

// Identifiers are opaque strings. They are validated once at the edge
// and compared by value everywhere else.
type (
	UserID         string
	NotificationID string
	DeliveryID     string
)

func NewUserID() UserID                 { return UserID(uuid.NewString()) }
func NewNotificationID() NotificationID { return NotificationID(uuid.NewString()) }
func NewDeliveryID() DeliveryID         { return DeliveryID(uuid.NewString()) }

func ParseUserID(s string) (UserID, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return "", fmt.Errorf("user ID cannot be empty")
	}
	if len(s) > 100 {
		return "", fmt.Errorf("user ID is too long")
	}
	return UserID(s), nil
}

func ParseNotificationID(s string) (NotificationID, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return "", fmt.Errorf("notification ID cannot be empty")
	}
	return NotificationID(s), nil
}

func ParseDeliveryID(s string) (DeliveryID, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return "", fmt.Errorf("delivery ID cannot be empty")
	}
	return DeliveryID(s), nil
}

func (id UserID) String() string         { return string(id) }
func (id NotificationID) String() string { return string(id) }
func (id DeliveryID) String() string     { return string(id) }
