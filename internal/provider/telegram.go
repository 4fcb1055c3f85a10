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

type TelegramConfig struct {
	BotToken string
	BaseURL  string
	Timeout  time.Duration
}

const defaultTelegramBaseURL = "https://api.telegram.org"

// TelegramProvider delivers over the Telegram bot API and serves the
// chat channel.
type TelegramProvider struct {
	cfg    TelegramConfig
	client *http.Client
	cb     *circuitbreaker.CircuitBreaker
}

func NewTelegramProvider(cfg TelegramConfig) *TelegramProvider {
	if cfg.BaseURL == "" {
		cfg.BaseURL = defaultTelegramBaseURL
	}
	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = 10 * time.Second
	}
	return &TelegramProvider{
		cfg:    cfg,
		client: &http.Client{Timeout: timeout},
		cb: circuitbreaker.New(circuitbreaker.Settings{
			Name:        "telegram-provider",
			MaxFailures: 5,
			Timeout:     30 * time.Second,
		}),
	}
}

func (p *TelegramProvider) Name() string { return "telegram_bot" }

func (p *TelegramProvider) ChannelType() model.Channel { return model.ChannelChat }

func (p *TelegramProvider) CanHandleUser(user *model.User) bool {
	return user.Active && user.HasChat()
}

func (p *TelegramProvider) ValidateConfiguration(_ context.Context) error {
	if p.cfg.BotToken == "" {
		return fmt.Errorf("telegram bot token is required")
	}
	return nil
}

func (p *TelegramProvider) Send(ctx context.Context, user *model.User, msg *model.RenderedMessage) (*model.DeliveryResult, error) {
	if !p.CanHandleUser(user) {
		return model.FailureResult(p.Name(), "user has no chat ID", model.CodeUserNotReachable), nil
	}

	payload, err := json.Marshal(map[string]string{
		"chat_id": user.ChatID,
		"text":    fmt.Sprintf("%s\n\n%s", msg.Subject, msg.Content),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal telegram payload: %w", err)
	}

	url := fmt.Sprintf("%s/bot%s/sendMessage", p.cfg.BaseURL, p.cfg.BotToken)

	start := time.Now()
	var statusCode int
	err = p.cb.Execute(func() error {
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
		if err != nil {
			return err
		}
		req.Header.Set("Content-Type", "application/json")

		resp, err := p.client.Do(req)
		if err != nil {
			return err
		}
		defer resp.Body.Close()
		statusCode = resp.StatusCode
		if resp.StatusCode >= 400 {
			return fmt.Errorf("telegram API returned status %d", resp.StatusCode)
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

	result := model.SuccessResult(p.Name(), fmt.Sprintf("chat message sent to %s", user.ChatID))
	result.DeliveryTime = time.Since(start)
	return result, nil
}
