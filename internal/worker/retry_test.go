package worker

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jwalitptl/notify-api/internal/model"
	"github.com/jwalitptl/notify-api/internal/provider"
	"github.com/jwalitptl/notify-api/internal/service/channel"
	"github.com/jwalitptl/notify-api/internal/service/dispatch"
	apperrors "github.com/jwalitptl/notify-api/pkg/errors"
	"github.com/jwalitptl/notify-api/pkg/logger"
	"github.com/jwalitptl/notify-api/pkg/metrics"
)

// promauto registers on the default registry, so the package shares
// one Metrics instance across all tests.
var testMetrics = metrics.NewMetrics("test", "worker")

type memUserRepo struct {
	mu    sync.Mutex
	users map[model.UserID]*model.User
}

func (r *memUserRepo) Get(_ context.Context, id model.UserID) (*model.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	u, ok := r.users[id]
	if !ok {
		return nil, apperrors.NotFound("user", nil)
	}
	return u, nil
}

func (r *memUserRepo) Save(_ context.Context, u *model.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.users[u.ID] = u
	return nil
}

func (r *memUserRepo) ListActive(context.Context) ([]*model.User, error) { return nil, nil }
func (r *memUserRepo) Delete(context.Context, model.UserID) error        { return nil }

type memNotificationRepo struct {
	mu            sync.Mutex
	notifications map[model.NotificationID]*model.Notification
}

func (r *memNotificationRepo) Get(_ context.Context, id model.NotificationID) (*model.Notification, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	n, ok := r.notifications[id]
	if !ok {
		return nil, apperrors.NotFound("notification", nil)
	}
	return n, nil
}

func (r *memNotificationRepo) Save(_ context.Context, n *model.Notification) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.notifications[n.ID] = n
	return nil
}

func (r *memNotificationRepo) ListPending(context.Context, int) ([]*model.Notification, error) {
	return nil, nil
}

func (r *memNotificationRepo) ListByRecipient(context.Context, model.UserID) ([]*model.Notification, error) {
	return nil, nil
}

func (r *memNotificationRepo) Delete(context.Context, model.NotificationID) error { return nil }

type memDeliveryRepo struct {
	mu         sync.Mutex
	deliveries map[model.DeliveryID]*model.Delivery
	// stale simulates deliveries that reached a terminal state between
	// the listing query and redelivery.
	stale []*model.Delivery
}

func (r *memDeliveryRepo) Get(_ context.Context, id model.DeliveryID) (*model.Delivery, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	d, ok := r.deliveries[id]
	if !ok {
		return nil, apperrors.NotFound("delivery", nil)
	}
	return d, nil
}

func (r *memDeliveryRepo) Save(_ context.Context, d *model.Delivery) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.deliveries[d.ID] = d
	return nil
}

func (r *memDeliveryRepo) ListByNotification(context.Context, model.NotificationID) ([]*model.Delivery, error) {
	return nil, nil
}

func (r *memDeliveryRepo) ListPendingRetries(context.Context) ([]*model.Delivery, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := append([]*model.Delivery{}, r.stale...)
	for _, d := range r.deliveries {
		if d.Status == model.StatusRetrying {
			out = append(out, d)
		}
	}
	return out, nil
}

func (r *memDeliveryRepo) Stats(context.Context, int) (*model.DeliveryStats, error) {
	return &model.DeliveryStats{}, nil
}

type nopBroker struct{}

func (nopBroker) Publish(context.Context, string, interface{}) error { return nil }
func (nopBroker) Subscribe(context.Context, string) (<-chan []byte, error) {
	return nil, nil
}
func (nopBroker) Close() error { return nil }

type fakeProvider struct {
	mu    sync.Mutex
	calls int
	fail  bool
}

func (p *fakeProvider) Send(_ context.Context, _ *model.User, _ *model.RenderedMessage) (*model.DeliveryResult, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.calls++
	if p.fail {
		return model.FailureResult("fake-email", "mailbox unavailable", model.CodeProviderError), nil
	}
	return model.SuccessResult("fake-email", "delivered"), nil
}

func (p *fakeProvider) CanHandleUser(u *model.User) bool { return u.Email != "" }
func (p *fakeProvider) ChannelType() model.Channel       { return model.ChannelEmail }
func (p *fakeProvider) ValidateConfiguration(context.Context) error {
	return nil
}
func (p *fakeProvider) Name() string { return "fake-email" }

type retryEnv struct {
	deliveries *memDeliveryRepo
	dispatcher *dispatch.Service
	provider   *fakeProvider
}

func newRetryEnv(t *testing.T) *retryEnv {
	t.Helper()

	users := &memUserRepo{users: map[model.UserID]*model.User{}}
	notifications := &memNotificationRepo{notifications: map[model.NotificationID]*model.Notification{}}
	deliveries := &memDeliveryRepo{deliveries: map[model.DeliveryID]*model.Delivery{}}

	p := &fakeProvider{}
	registry := provider.NewRegistry()
	registry.Register(p)

	dispatcher := dispatch.NewService(
		users, notifications, deliveries,
		channel.NewService(registry),
		nopBroker{},
		testMetrics,
		logger.NewLogger(nil),
	)

	return &retryEnv{deliveries: deliveries, dispatcher: dispatcher, provider: p}
}

// failedRetryingDelivery builds a delivery that failed once under
// fail_fast and was then marked for retry, with the failed attempt
// backdated so the backoff window has elapsed.
func failedRetryingDelivery(t *testing.T, env *retryEnv) *model.Delivery {
	t.Helper()

	u, err := model.NewUser(model.NewUserID(), "Alice", "alice@example.com", "", "")
	require.NoError(t, err)

	template, err := model.NewMessageTemplate("subject", "content", nil)
	require.NoError(t, err)
	n := model.NewNotification(model.NewNotificationID(), u.ID, template, model.PriorityNormal, time.Time{}, nil)

	policy, err := model.NewRetryPolicy(3, time.Second, false)
	require.NoError(t, err)

	d := model.NewDelivery(model.NewDeliveryID(), n, u, model.StrategyFailFast, policy)
	require.NoError(t, d.Start())
	require.NoError(t, d.AddAttempt("fake-email", model.ChannelEmail,
		model.FailureResult("fake-email", "mailbox unavailable", model.CodeProviderError)))
	require.Equal(t, model.StatusFailed, d.Status)
	require.NoError(t, d.Retry())

	d.Attempts[0].AttemptedAt = time.Now().UTC().Add(-time.Minute)
	require.NoError(t, env.deliveries.Save(context.Background(), d))
	return d
}

func newProcessor(t *testing.T, env *retryEnv, batchSize int) *RetryProcessor {
	t.Helper()
	return NewRetryProcessor(env.deliveries, env.dispatcher, RetryProcessorConfig{
		PollInterval: time.Second,
		BatchSize:    batchSize,
	}, logger.NewLogger(nil), testMetrics)
}

func TestNewRetryProcessorValidatesConfig(t *testing.T) {
	env := newRetryEnv(t)

	assert.Panics(t, func() { newProcessor(t, env, 0) })
	assert.Panics(t, func() {
		NewRetryProcessor(env.deliveries, env.dispatcher, RetryProcessorConfig{
			BatchSize: 1,
		}, logger.NewLogger(nil), testMetrics)
	})
}

func TestProcessRetriesRedelivers(t *testing.T) {
	env := newRetryEnv(t)
	d := failedRetryingDelivery(t, env)

	p := newProcessor(t, env, 10)
	require.NoError(t, p.processRetries(context.Background()))

	stored, err := env.deliveries.Get(context.Background(), d.ID)
	require.NoError(t, err)
	assert.Equal(t, model.StatusDelivered, stored.Status)
	assert.Len(t, stored.Attempts, 2)
	assert.Equal(t, 1, env.provider.calls)
}

func TestProcessRetriesSkipsNotDue(t *testing.T) {
	env := newRetryEnv(t)
	d := failedRetryingDelivery(t, env)
	d.Attempts[0].AttemptedAt = time.Now().UTC()

	p := newProcessor(t, env, 10)
	require.NoError(t, p.processRetries(context.Background()))

	stored, err := env.deliveries.Get(context.Background(), d.ID)
	require.NoError(t, err)
	assert.Equal(t, model.StatusRetrying, stored.Status)
	assert.Equal(t, 0, env.provider.calls)
}

func TestProcessRetriesHonorsBatchSize(t *testing.T) {
	env := newRetryEnv(t)
	for i := 0; i < 3; i++ {
		failedRetryingDelivery(t, env)
	}

	p := newProcessor(t, env, 2)
	require.NoError(t, p.processRetries(context.Background()))

	remaining, err := env.deliveries.ListPendingRetries(context.Background())
	require.NoError(t, err)
	assert.Len(t, remaining, 1)
	assert.Equal(t, 2, env.provider.calls)
}

func TestProcessRetriesContinuesAfterRedeliverError(t *testing.T) {
	env := newRetryEnv(t)
	good := failedRetryingDelivery(t, env)

	// A delivery that completed between listing and redelivery is
	// rejected by Redeliver but must not abort the batch.
	stale := failedRetryingDelivery(t, env)
	stale.Status = model.StatusFailed
	env.deliveries.stale = append(env.deliveries.stale, stale)

	p := newProcessor(t, env, 10)
	require.NoError(t, p.processRetries(context.Background()))

	stored, err := env.deliveries.Get(context.Background(), good.ID)
	require.NoError(t, err)
	assert.Equal(t, model.StatusDelivered, stored.Status)
}

func TestDueUsesPolicyBackoff(t *testing.T) {
	env := newRetryEnv(t)
	d := failedRetryingDelivery(t, env)
	p := newProcessor(t, env, 1)

	d.Attempts[0].AttemptedAt = time.Now().UTC()
	assert.False(t, p.due(d))

	d.Attempts[0].AttemptedAt = time.Now().UTC().Add(-2 * time.Second)
	assert.True(t, p.due(d))
}

func TestDueWithoutAttempts(t *testing.T) {
	env := newRetryEnv(t)
	d := failedRetryingDelivery(t, env)
	p := newProcessor(t, env, 1)

	d.Attempts = nil
	assert.True(t, p.due(d))
}

func TestStartStopsOnContextCancel(t *testing.T) {
	env := newRetryEnv(t)
	p := newProcessor(t, env, 1)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		p.Start(ctx)
		close(done)
	}()

	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("processor did not stop after context cancellation")
	}
}
