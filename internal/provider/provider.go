package provider

import (
	"context"
	"sync"

	"github.com/jwalitptl/notify-api/internal/model"
)

// Provider is a concrete integration that can send a rendered message
// over one channel. Send may return an error; the dispatch layer
// converts it into a failed DeliveryResult so failures never propagate
// as Go errors past the executor.
type Provider interface {
	Send(ctx context.Context, user *model.User, msg *model.RenderedMessage) (*model.DeliveryResult, error)
	CanHandleUser(user *model.User) bool
	ChannelType() model.Channel
	ValidateConfiguration(ctx context.Context) error
	Name() string
}

// Registry holds the registered providers in registration order.
// It is populated at startup and read-only afterwards, so concurrent
// reads from many deliveries are safe.
type Registry struct {
	mu        sync.RWMutex
	providers []Provider
}

func NewRegistry() *Registry {
	return &Registry{}
}

func (r *Registry) Register(p Provider) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.providers = append(r.providers, p)
}

// All returns a copy of the provider list in registration order.
func (r *Registry) All() []Provider {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]Provider, len(r.providers))
	copy(out, r.providers)
	return out
}

// ValidateAll checks every registered provider's configuration and
// returns the names of those that failed.
func (r *Registry) ValidateAll(ctx context.Context) map[string]error {
	failed := map[string]error{}
	for _, p := range r.All() {
		if err := p.ValidateConfiguration(ctx); err != nil {
			failed[p.Name()] = err
		}
	}
	return failed
}
