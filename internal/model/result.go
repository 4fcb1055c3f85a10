package model

import (
	"fmt"
	"strings"
	"time"
)

// Well-known delivery error codes. Providers map their own failures
// into these; anything unclassified becomes CodeProviderError.
const (
	CodeUserInactive         = "USER_INACTIVE"
	CodeNotificationNotReady = "NOTIFICATION_NOT_READY"
	CodeCancelled            = "CANCELLED"
	CodeUserNotReachable     = "USER_NOT_REACHABLE"
	CodeAuthenticationError  = "AUTHENTICATION_ERROR"
	CodeRateLimitError       = "RATE_LIMIT_ERROR"
	CodeTimeoutError         = "TIMEOUT_ERROR"
	CodeNetworkError         = "NETWORK_ERROR"
	CodeProviderError        = "PROVIDER_ERROR"
)

// DeliveryError describes why an attempt failed.
type DeliveryError struct {
	Code    string         `json:"code"`
	Message string         `json:"message"`
	Details map[string]any `json:"details,omitempty"`
}

func NewDeliveryError(code, message string) (*DeliveryError, error) {
	code = strings.TrimSpace(code)
	message = strings.TrimSpace(message)
	if code == "" {
		return nil, fmt.Errorf("error code cannot be empty")
	}
	if message == "" {
		return nil, fmt.Errorf("error message cannot be empty")
	}
	return &DeliveryError{Code: code, Message: message}, nil
}

func (e *DeliveryError) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// DeliveryResult is the outcome of one provider call. Provider
// failures always arrive here as Success=false with Error set; they
// are never surfaced as Go errors past the executor boundary.
type DeliveryResult struct {
	Success      bool           `json:"success"`
	Provider     string         `json:"provider"`
	Message      string         `json:"message"`
	Error        *DeliveryError `json:"error,omitempty"`
	Metadata     map[string]any `json:"metadata,omitempty"`
	DeliveryTime time.Duration  `json:"delivery_time,omitempty"`
}

func SuccessResult(provider, message string) *DeliveryResult {
	return &DeliveryResult{Success: true, Provider: provider, Message: message}
}

func FailureResult(provider, message, code string) *DeliveryResult {
	return &DeliveryResult{
		Success:  false,
		Provider: provider,
		Message:  message,
		Error:    &DeliveryError{Code: code, Message: message},
	}
}

// DeliveryAttempt records one provider call against a delivery.
// Attempts are append-only and never mutated once recorded.
type DeliveryAttempt struct {
	Provider    string          `json:"provider"`
	Channel     Channel         `json:"channel"`
	AttemptedAt time.Time       `json:"attempted_at"`
	Result      *DeliveryResult `json:"result"`
}
