package worker

import (
	"context"
	"fmt"
	"time"

	"github.com/jwalitptl/notify-api/internal/model"
	"github.com/jwalitptl/notify-api/internal/repository"
	"github.com/jwalitptl/notify-api/internal/service/dispatch"
	"github.com/jwalitptl/notify-api/pkg/logger"
	"github.com/jwalitptl/notify-api/pkg/metrics"
)

type RetryProcessorConfig struct {
	PollInterval time.Duration
	BatchSize    int
}

// RetryProcessor is the scheduling half of the retry story: Retry()
// marks a delivery RETRYING, and this worker re-executes it once the
// policy's backoff delay since the last attempt has elapsed.
type RetryProcessor struct {
	deliveries repository.DeliveryRepository
	dispatcher *dispatch.Service
	config     RetryProcessorConfig
	logger     *logger.Logger
	metrics    *metrics.Metrics
}

func NewRetryProcessor(
	deliveries repository.DeliveryRepository,
	dispatcher *dispatch.Service,
	config RetryProcessorConfig,
	l *logger.Logger,
	m *metrics.Metrics,
) *RetryProcessor {
	if config.PollInterval <= 0 {
		panic("PollInterval must be greater than 0")
	}
	if config.BatchSize <= 0 {
		panic("BatchSize must be greater than 0")
	}
	return &RetryProcessor{
		deliveries: deliveries,
		dispatcher: dispatcher,
		config:     config,
		logger:     l.WithComponent("retry-processor"),
		metrics:    m,
	}
}

func (p *RetryProcessor) Start(ctx context.Context) {
	ticker := time.NewTicker(p.config.PollInterval)
	defer ticker.Stop()

	p.logger.Info("Starting retry processor")

	for {
		select {
		case <-ctx.Done():
			p.logger.Info("Shutting down retry processor")
			return
		case <-ticker.C:
			if err := p.processRetries(ctx); err != nil {
				p.logger.Error(err, "Failed to process retries")
			}
		}
	}
}

func (p *RetryProcessor) processRetries(ctx context.Context) error {
	pending, err := p.deliveries.ListPendingRetries(ctx)
	if err != nil {
		return fmt.Errorf("failed to list pending retries: %w", err)
	}

	processed := 0
	for _, d := range pending {
		if processed >= p.config.BatchSize {
			break
		}
		if !p.due(d) {
			continue
		}

		report, err := p.dispatcher.Redeliver(ctx, d)
		if err != nil {
			p.metrics.RetriesFailed.Inc()
			p.logger.Error(err, "Failed to redeliver", "delivery_id", d.ID.String())
			continue
		}
		p.metrics.RetriesProcessed.Inc()
		if !report.Success {
			p.metrics.RetriesFailed.Inc()
		}
		p.logger.Info("Redelivered",
			"delivery_id", d.ID.String(),
			"status", string(report.Status),
			"attempts", report.TotalAttempts)
		processed++
	}

	return nil
}

// due reports whether the backoff window for the next attempt has
// passed since the last recorded attempt.
func (p *RetryProcessor) due(d *model.Delivery) bool {
	last := d.LastAttempt()
	if last == nil {
		return true
	}
	delay := d.RetryPolicy.DelayForAttempt(len(d.Attempts) + 1)
	return time.Since(last.AttemptedAt) >= delay
}
