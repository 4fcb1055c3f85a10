package provider

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/jwalitptl/notify-api/internal/model"
	"github.com/jwalitptl/notify-api/pkg/circuitbreaker"
)

type SMSConfig struct {
	Endpoint string
	APIKey   string
	Sender   string
	Timeout  time.Duration
}

// SMSProvider delivers over an HTTP SMS gateway.
type SMSProvider struct {
	cfg    SMSConfig
	client *http.Client
	cb     *circuitbreaker.CircuitBreaker
}

func NewSMSProvider(cfg SMSConfig) *SMSProvider {
	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = 10 * time.Second
	}
	return &SMSProvider{
		cfg:    cfg,
		client: &http.Client{Timeout: timeout},
		cb: circuitbreaker.New(circuitbreaker.Settings{
			Name:        "sms-provider",
			MaxFailures: 5,
			Timeout:     30 * time.Second,
		}),
	}
}

func (p *SMSProvider) Name() string { return "sms_gateway" }

func (p *SMSProvider) ChannelType() model.Channel { return model.ChannelSMS }

func (p *SMSProvider) CanHandleUser(user *model.User) bool {
	return user.Active && user.HasPhone()
}

func (p *SMSProvider) ValidateConfiguration(_ context.Context) error {
	if p.cfg.Endpoint == "" {
		return fmt.Errorf("sms gateway endpoint is required")
	}
	if p.cfg.APIKey == "" {
		return fmt.Errorf("sms gateway api key is required")
	}
	return nil
}

func (p *SMSProvider) Send(ctx context.Context, user *model.User, msg *model.RenderedMessage) (*model.DeliveryResult, error) {
	if !p.CanHandleUser(user) {
		return model.FailureResult(p.Name(), "user has no phone number", model.CodeUserNotReachable), nil
	}

	payload, err := json.Marshal(map[string]string{
		"to":   user.Phone,
		"from": p.cfg.Sender,
		"body": msg.Content,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal sms payload: %w", err)
	}

	start := time.Now()
	var statusCode int
	err = p.cb.Execute(func() error {
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.cfg.Endpoint, bytes.NewReader(payload))
		if err != nil {
			return err
		}
		req.Header.Set("Content-Type", "application/json")
		req.Header.Set("Authorization", "Bearer "+p.cfg.APIKey)

		resp, err := p.client.Do(req)
		if err != nil {
			return err
		}
		defer resp.Body.Close()
		statusCode = resp.StatusCode
		if resp.StatusCode >= 400 {
			return fmt.Errorf("sms gateway returned status %d", resp.StatusCode)
		}
		return nil
	})
	if err != nil {
		if result := classifyHTTPFailure(p.Name(), statusCode, err); result != nil {
			result.DeliveryTime = time.Since(start)
			return result, nil
		}
		return nil, err
	}

	result := model.SuccessResult(p.Name(), fmt.Sprintf("sms sent to %s", user.Phone))
	result.DeliveryTime = time.Since(start)
	return result, nil
}

// classifyHTTPFailure converts well-understood gateway responses into
// failed results; nil means the caller should surface the raw error.
func classifyHTTPFailure(provider string, status int, err error) *model.DeliveryResult {
	switch {
	case status == http.StatusUnauthorized || status == http.StatusForbidden:
		return model.FailureResult(provider, err.Error(), model.CodeAuthenticationError)
	case status == http.StatusTooManyRequests:
		return model.FailureResult(provider, err.Error(), model.CodeRateLimitError)
	case status >= 400:
		return model.FailureResult(provider, err.Error(), model.CodeProviderError)
	}
	if code, ok := classifyNetworkError(err); ok {
		return model.FailureResult(provider, err.Error(), code)
	}
	return nil
}
