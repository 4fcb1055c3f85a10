package model

import "fmt"

// Channel is a notification transport type.
type Channel string

const (
	ChannelEmail Channel = "email"
	ChannelSMS   Channel = "sms"
	ChannelChat  Channel = "chat"
)

// DefaultChannelOrder is the fallback ordering used when a user has no
// explicit preference for a channel.
var DefaultChannelOrder = []Channel{ChannelEmail, ChannelChat, ChannelSMS}

func ParseChannel(s string) (Channel, error) {
	switch Channel(s) {
	case ChannelEmail, ChannelSMS, ChannelChat:
		return Channel(s), nil
	default:
		return "", fmt.Errorf("unknown channel: %q", s)
	}
}

func (c Channel) String() string { return string(c) }

// Priority orders notifications in the pending queue.
type Priority string

const (
	PriorityLow      Priority = "low"
	PriorityNormal   Priority = "normal"
	PriorityHigh     Priority = "high"
	PriorityCritical Priority = "critical"
)

// ParsePriority falls back to PriorityNormal for empty input.
func ParsePriority(s string) (Priority, error) {
	if s == "" {
		return PriorityNormal, nil
	}
	switch Priority(s) {
	case PriorityLow, PriorityNormal, PriorityHigh, PriorityCritical:
		return Priority(s), nil
	default:
		return "", fmt.Errorf("unknown priority: %q", s)
	}
}

// Rank returns a sortable weight, higher means more urgent.
func (p Priority) Rank() int {
	switch p {
	case PriorityCritical:
		return 3
	case PriorityHigh:
		return 2
	case PriorityNormal:
		return 1
	case PriorityLow:
		return 0
	default:
		return 1
	}
}

func (p Priority) String() string { return string(p) }
