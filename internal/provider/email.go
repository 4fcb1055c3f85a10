package provider

import (
	"context"
	"errors"
	"fmt"
	"net"
	"time"

	"github.com/google/uuid"
	"gopkg.in/gomail.v2"

	"github.com/jwalitptl/notify-api/internal/model"
	"github.com/jwalitptl/notify-api/pkg/circuitbreaker"
)

type EmailConfig struct {
	Host     string
	Port     int
	Username string
	Password string
	From     string
}

// EmailProvider delivers over SMTP.
type EmailProvider struct {
	cfg    EmailConfig
	dialer *gomail.Dialer
	cb     *circuitbreaker.CircuitBreaker
}

func NewEmailProvider(cfg EmailConfig) *EmailProvider {
	return &EmailProvider{
		cfg:    cfg,
		dialer: gomail.NewDialer(cfg.Host, cfg.Port, cfg.Username, cfg.Password),
		cb: circuitbreaker.New(circuitbreaker.Settings{
			Name:        "email-provider",
			MaxFailures: 5,
			Timeout:     30 * time.Second,
		}),
	}
}

func (p *EmailProvider) Name() string { return "smtp_email" }

func (p *EmailProvider) ChannelType() model.Channel { return model.ChannelEmail }

func (p *EmailProvider) CanHandleUser(user *model.User) bool {
	return user.Active && user.HasEmail()
}

func (p *EmailProvider) ValidateConfiguration(_ context.Context) error {
	if p.cfg.Host == "" || p.cfg.Port == 0 {
		return fmt.Errorf("smtp host and port are required")
	}
	if p.cfg.From == "" {
		return fmt.Errorf("smtp from address is required")
	}
	return nil
}

func (p *EmailProvider) Send(ctx context.Context, user *model.User, msg *model.RenderedMessage) (*model.DeliveryResult, error) {
	if !p.CanHandleUser(user) {
		return model.FailureResult(p.Name(), "user has no email address", model.CodeUserNotReachable), nil
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	m := gomail.NewMessage()
	m.SetHeader("From", p.cfg.From)
	m.SetHeader("To", user.Email)
	m.SetHeader("Subject", msg.Subject)
	m.SetBody("text/plain", msg.Content)

	start := time.Now()
	err := p.cb.Execute(func() error {
		return p.dialer.DialAndSend(m)
	})
	if err != nil {
		if code, ok := classifyNetworkError(err); ok {
			result := model.FailureResult(p.Name(), err.Error(), code)
			result.DeliveryTime = time.Since(start)
			return result, nil
		}
		return nil, err
	}

	result := model.SuccessResult(p.Name(), fmt.Sprintf("email sent to %s", user.Email))
	result.DeliveryTime = time.Since(start)
	result.Metadata = map[string]any{"provider_message_id": uuid.NewString()}
	return result, nil
}

// classifyNetworkError maps transport-level failures onto the delivery
// error taxonomy. Anything it cannot classify is left to the executor's
// generic conversion.
func classifyNetworkError(err error) (string, bool) {
	var netErr net.Error
	if errors.As(err, &netErr) {
		if netErr.Timeout() {
			return model.CodeTimeoutError, true
		}
		return model.CodeNetworkError, true
	}
	return "", false
}
