package channel

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jwalitptl/notify-api/internal/model"
	"github.com/jwalitptl/notify-api/internal/provider"
)

type fakeProvider struct {
	name    string
	channel model.Channel
	handles bool
}

func (p *fakeProvider) Send(context.Context, *model.User, *model.RenderedMessage) (*model.DeliveryResult, error) {
	return model.SuccessResult(p.name, "sent"), nil
}
func (p *fakeProvider) CanHandleUser(u *model.User) bool    { return p.handles && u.HasChannel(p.channel) }
func (p *fakeProvider) ChannelType() model.Channel          { return p.channel }
func (p *fakeProvider) ValidateConfiguration(context.Context) error { return nil }
func (p *fakeProvider) Name() string                        { return p.name }

func newTestUser(t *testing.T, prefs ...string) *model.User {
	t.Helper()
	u, err := model.NewUser(model.NewUserID(), "Alice", "alice@example.com", "+15551234567", "777")
	require.NoError(t, err)
	for _, p := range prefs {
		u.AddPreference(p)
	}
	return u
}

func TestPreferredChannelsDefaultOrder(t *testing.T) {
	svc := NewService(provider.NewRegistry())

	user := newTestUser(t)
	assert.Equal(t, []model.Channel{model.ChannelEmail, model.ChannelChat, model.ChannelSMS}, svc.PreferredChannels(user))
}

func TestPreferredChannelsHonorPreferences(t *testing.T) {
	svc := NewService(provider.NewRegistry())

	user := newTestUser(t, "sms", "chat")
	assert.Equal(t, []model.Channel{model.ChannelSMS, model.ChannelChat, model.ChannelEmail}, svc.PreferredChannels(user))
}

func TestPreferredChannelsSkipUnknownAndUnavailable(t *testing.T) {
	svc := NewService(provider.NewRegistry())

	user := newTestUser(t, "pigeon", "sms", "sms")
	require.NoError(t, user.UpdateChatID(""))
	assert.Equal(t, []model.Channel{model.ChannelSMS, model.ChannelEmail}, svc.PreferredChannels(user))
}

func TestOrderedProvidersGroupByChannelPreference(t *testing.T) {
	registry := provider.NewRegistry()
	email1 := &fakeProvider{name: "email-1", channel: model.ChannelEmail, handles: true}
	email2 := &fakeProvider{name: "email-2", channel: model.ChannelEmail, handles: true}
	sms := &fakeProvider{name: "sms-1", channel: model.ChannelSMS, handles: true}
	chat := &fakeProvider{name: "chat-1", channel: model.ChannelChat, handles: false}
	registry.Register(email1)
	registry.Register(email2)
	registry.Register(sms)
	registry.Register(chat)

	svc := NewService(registry)
	user := newTestUser(t, "sms")

	got := svc.OrderedProviders(user)
	names := make([]string, 0, len(got))
	for _, p := range got {
		names = append(names, p.Name())
	}
	// SMS preference first, then default order; chat-1 cannot handle the
	// user and is dropped. Registration order holds within a channel.
	assert.Equal(t, []string{"sms-1", "email-1", "email-2"}, names)
}

func TestOrderedProvidersEmptyWhenNoneMatch(t *testing.T) {
	registry := provider.NewRegistry()
	registry.Register(&fakeProvider{name: "chat-1", channel: model.ChannelChat, handles: true})

	svc := NewService(registry)
	user := newTestUser(t)
	require.NoError(t, user.UpdateChatID(""))

	assert.Empty(t, svc.OrderedProviders(user))
}
