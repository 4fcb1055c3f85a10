package messaging

import (
	"context"
)

// Broker defines the interface for message brokers
type Broker interface {
	Publish(ctx context.Context, channel string, message interface{}) error
	Subscribe(ctx context.Context, channel string) (<-chan []byte, error)
	Close() error
}

// Channels published by the dispatch layer.
const (
	ChannelDeliveries = "deliveries"
)

// DeliveryEvent is the payload published when a delivery reaches a
// terminal state.
type DeliveryEvent struct {
	DeliveryID     string `json:"delivery_id"`
	NotificationID string `json:"notification_id"`
	UserID         string `json:"user_id"`
	Status         string `json:"status"`
	Strategy       string `json:"strategy"`
	Attempts       int    `json:"attempts"`
}
