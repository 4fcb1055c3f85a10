package channel

import (
	"github.com/jwalitptl/notify-api/internal/model"
	"github.com/jwalitptl/notify-api/internal/provider"
)

// Service computes, for a user, the ordered list of providers a
// delivery should attempt. It holds no mutable state beyond the
// registry and is safe for concurrent use.
type Service struct {
	registry *provider.Registry
}

func NewService(registry *provider.Registry) *Service {
	return &Service{registry: registry}
}

// PreferredChannels orders a user's available channels: explicit
// preferences first (in preference order, filtered to available,
// de-duplicated), then remaining available channels in the default
// order.
func (s *Service) PreferredChannels(user *model.User) []model.Channel {
	var ordered []model.Channel
	seen := map[model.Channel]struct{}{}

	add := func(c model.Channel) {
		if _, ok := seen[c]; ok {
			return
		}
		if !user.HasChannel(c) {
			return
		}
		seen[c] = struct{}{}
		ordered = append(ordered, c)
	}

	for _, pref := range user.Preferences {
		c, err := model.ParseChannel(pref)
		if err != nil {
			continue // unknown channel names in preferences are skipped
		}
		add(c)
	}
	for _, c := range model.DefaultChannelOrder {
		add(c)
	}
	return ordered
}

// OrderedProviders returns every provider that can reach the user,
// grouped by the user's channel preference. Within one channel,
// providers keep their registration order.
func (s *Service) OrderedProviders(user *model.User) []provider.Provider {
	channels := s.PreferredChannels(user)
	candidates := s.registry.All()

	var ordered []provider.Provider
	for _, c := range channels {
		for _, p := range candidates {
			if p.ChannelType() == c && p.CanHandleUser(user) {
				ordered = append(ordered, p)
			}
		}
	}
	return ordered
}
