package model

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
)

const (
	maxUserNameLen = 200
	minPhoneDigits = 11
	maxPhoneDigits = 16
)

var (
	validate       = validator.New()
	phoneCleanupRe = regexp.MustCompile(`[^\d+]`)
)

// User is a notification recipient: a name, up to three contact
// channels, and an ordered list of channel preferences.
type User struct {
	ID          UserID    `json:"id" db:"id"`
	Name        string    `json:"name" db:"name"`
	Email       string    `json:"email,omitempty" db:"email"`
	Phone       string    `json:"phone,omitempty" db:"phone"`
	ChatID      string    `json:"chat_id,omitempty" db:"chat_id"`
	Active      bool      `json:"is_active" db:"is_active"`
	Preferences []string  `json:"preferences" db:"-"`
	CreatedAt   time.Time `json:"created_at" db:"created_at"`
	UpdatedAt   time.Time `json:"updated_at" db:"updated_at"`
}

// NewUser validates contacts up front so malformed input never reaches
// the delivery state machine. Empty email/phone/chatID mean "not set".
func NewUser(id UserID, name, email, phone, chatID string) (*User, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, fmt.Errorf("user name cannot be empty")
	}
	if len(name) > maxUserNameLen {
		return nil, fmt.Errorf("user name is too long (max %d characters)", maxUserNameLen)
	}

	if email != "" {
		normalized, err := NormalizeEmail(email)
		if err != nil {
			return nil, err
		}
		email = normalized
	}
	if phone != "" {
		normalized, err := NormalizePhone(phone)
		if err != nil {
			return nil, err
		}
		phone = normalized
	}
	if chatID != "" {
		normalized, err := NormalizeChatID(chatID)
		if err != nil {
			return nil, err
		}
		chatID = normalized
	}

	now := time.Now().UTC()
	return &User{
		ID:        id,
		Name:      name,
		Email:     email,
		Phone:     phone,
		ChatID:    chatID,
		Active:    true,
		CreatedAt: now,
		UpdatedAt: now,
	}, nil
}

func NormalizeEmail(email string) (string, error) {
	email = strings.TrimSpace(email)
	if err := validate.Var(email, "required,email"); err != nil {
		return "", fmt.Errorf("invalid email address: %s", email)
	}
	return email, nil
}

func NormalizePhone(phone string) (string, error) {
	cleaned := phoneCleanupRe.ReplaceAllString(phone, "")
	if cleaned == "" {
		return "", fmt.Errorf("phone number cannot be empty")
	}
	if !strings.HasPrefix(cleaned, "+") {
		return "", fmt.Errorf("phone number must start with country code (+)")
	}
	if len(cleaned) < minPhoneDigits {
		return "", fmt.Errorf("phone number is too short")
	}
	if len(cleaned) > maxPhoneDigits {
		return "", fmt.Errorf("phone number is too long")
	}
	return cleaned, nil
}

func NormalizeChatID(chatID string) (string, error) {
	chatID = strings.TrimSpace(chatID)
	n, err := strconv.ParseInt(chatID, 10, 64)
	if err != nil {
		return "", fmt.Errorf("chat ID must be numeric")
	}
	if n == 0 {
		return "", fmt.Errorf("chat ID cannot be 0")
	}
	return chatID, nil
}

func (u *User) HasEmail() bool { return u.Email != "" }
func (u *User) HasPhone() bool { return u.Phone != "" }
func (u *User) HasChat() bool  { return u.ChatID != "" }

// AvailableChannels lists the channels this user can actually be
// reached on, in default order.
func (u *User) AvailableChannels() []Channel {
	var channels []Channel
	if u.HasEmail() {
		channels = append(channels, ChannelEmail)
	}
	if u.HasChat() {
		channels = append(channels, ChannelChat)
	}
	if u.HasPhone() {
		channels = append(channels, ChannelSMS)
	}
	return channels
}

func (u *User) HasChannel(c Channel) bool {
	switch c {
	case ChannelEmail:
		return u.HasEmail()
	case ChannelSMS:
		return u.HasPhone()
	case ChannelChat:
		return u.HasChat()
	default:
		return false
	}
}

func (u *User) CanReceiveNotifications() bool {
	return u.Active && len(u.AvailableChannels()) > 0
}

func (u *User) Activate() {
	if !u.Active {
		u.Active = true
		u.touch()
	}
}

func (u *User) Deactivate() {
	if u.Active {
		u.Active = false
		u.touch()
	}
}

// AddPreference appends a channel to the preference list. Order is
// kept: earlier preferences win during provider selection.
func (u *User) AddPreference(channel string) {
	for _, p := range u.Preferences {
		if p == channel {
			return
		}
	}
	u.Preferences = append(u.Preferences, channel)
	u.touch()
}

func (u *User) RemovePreference(channel string) {
	for i, p := range u.Preferences {
		if p == channel {
			u.Preferences = append(u.Preferences[:i], u.Preferences[i+1:]...)
			u.touch()
			return
		}
	}
}

func (u *User) UpdateEmail(email string) error {
	if email != "" {
		normalized, err := NormalizeEmail(email)
		if err != nil {
			return err
		}
		email = normalized
	}
	u.Email = email
	u.touch()
	return nil
}

func (u *User) UpdatePhone(phone string) error {
	if phone != "" {
		normalized, err := NormalizePhone(phone)
		if err != nil {
			return err
		}
		phone = normalized
	}
	u.Phone = phone
	u.touch()
	return nil
}

func (u *User) UpdateChatID(chatID string) error {
	if chatID != "" {
		normalized, err := NormalizeChatID(chatID)
		if err != nil {
			return err
		}
		chatID = normalized
	}
	u.ChatID = chatID
	u.touch()
	return nil
}

func (u *User) touch() {
	u.UpdatedAt = time.Now().UTC()
}
