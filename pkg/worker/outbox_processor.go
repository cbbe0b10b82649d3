package worker

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/jwalitptl/mediconnect-api/internal/model"
	"github.com/jwalitptl/mediconnect-api/internal/repository"
	"github.com/jwalitptl/mediconnect-api/pkg/logger"
	"github.com/jwalitptl/mediconnect-api/pkg/messaging"
	"github.com/jwalitptl/mediconnect-api/pkg/metrics"
)

type OutboxProcessorConfig struct {
	BatchSize     int
	PollInterval  time.Duration
	RetryAttempts int
	RetryDelay    time.Duration
	// Retention is how long processed events are kept; zero keeps them.
	Retention time.Duration
	// Channels maps event types to broker channels. Unmapped types publish
	// on their own name.
	Channels map[string]string
}

func (c OutboxProcessorConfig) validate() error {
	if c.BatchSize <= 0 {
		return fmt.Errorf("BatchSize must be greater than 0")
	}
	if c.PollInterval <= 0 {
		return fmt.Errorf("PollInterval must be greater than 0")
	}
	if c.RetryAttempts <= 0 {
		return fmt.Errorf("RetryAttempts must be greater than 0")
	}
	if c.RetryDelay <= 0 {
		return fmt.Errorf("RetryDelay must be greater than 0")
	}
	return nil
}

// OutboxProcessor relays pending outbox events to the broker. An event that
// keeps failing is retried RetryAttempts times, RetryDelay apart, and then
// marked failed.
type OutboxProcessor struct {
	store   repository.Store
	broker  messaging.Broker
	config  OutboxProcessorConfig
	logger  *logger.Logger
	metrics *metrics.Metrics
	now     func() time.Time
}

func NewOutboxProcessor(
	store repository.Store,
	broker messaging.Broker,
	config OutboxProcessorConfig,
	log *logger.Logger,
	m *metrics.Metrics,
) (*OutboxProcessor, error) {
	if err := config.validate(); err != nil {
		return nil, err
	}
	if log == nil {
		log = logger.Nop()
	}

	return &OutboxProcessor{
		store:   store,
		broker:  broker,
		config:  config,
		logger:  log,
		metrics: m,
		now:     time.Now,
	}, nil
}

func (p *OutboxProcessor) Start(ctx context.Context) {
	ticker := time.NewTicker(p.config.PollInterval)
	defer ticker.Stop()

	p.logger.Info("Starting outbox processor")

	for {
		select {
		case <-ctx.Done():
			p.logger.Info("Shutting down outbox processor")
			return
		case <-ticker.C:
			if _, err := p.ProcessBatch(ctx); err != nil {
				p.logger.Error(err, "Failed to process events")
			}
			if _, err := p.Cleanup(ctx); err != nil {
				p.logger.Error(err, "Failed to clean up processed events")
			}
		}
	}
}

// ProcessBatch claims up to BatchSize due events inside one transaction,
// publishes each and records the outcome. It returns the number published.
func (p *OutboxProcessor) ProcessBatch(ctx context.Context) (int, error) {
	if p.metrics != nil {
		timer := prometheus.NewTimer(p.metrics.OutboxProcessingLatency)
		defer timer.ObserveDuration()
	}

	published := 0
	err := p.store.WithTx(ctx, func(tx repository.Store) error {
		events, err := tx.Outbox().GetPendingEventsWithLock(ctx, p.config.BatchSize)
		p.metrics.DatabaseOperation("get_pending_events", err)
		if err != nil {
			return fmt.Errorf("failed to get pending events: %w", err)
		}

		for _, event := range events {
			if err := p.processEvent(ctx, tx.Outbox(), event); err != nil {
				p.logger.Error(err, "Failed to process event",
					"event_id", event.ID.String(),
					"event_type", event.EventType)
				continue
			}
			published++
		}
		return nil
	})
	return published, err
}

func (p *OutboxProcessor) processEvent(ctx context.Context, repo repository.OutboxRepository, event *model.OutboxEvent) error {
	publishErr := p.broker.Publish(ctx, p.channelFor(event.EventType), json.RawMessage(event.Payload))
	if publishErr == nil {
		if err := repo.MarkProcessed(ctx, event.ID); err != nil {
			return fmt.Errorf("failed to mark event processed: %w", err)
		}
		if p.metrics != nil {
			p.metrics.OutboxEventsProcessed.Inc()
		}
		return nil
	}

	var retryAt *time.Time
	if event.RetryCount+1 < p.config.RetryAttempts {
		at := p.now().Add(p.config.RetryDelay)
		retryAt = &at
		if p.metrics != nil {
			p.metrics.OutboxRetries.WithLabelValues(event.EventType).Inc()
		}
	} else if p.metrics != nil {
		p.metrics.OutboxEventsFailed.Inc()
	}

	if err := repo.MarkFailed(ctx, event.ID, publishErr.Error(), retryAt); err != nil {
		p.logger.Error(err, "Failed to update event status", "event_id", event.ID.String())
	}
	return publishErr
}

func (p *OutboxProcessor) channelFor(eventType string) string {
	if ch, ok := p.config.Channels[eventType]; ok {
		return ch
	}
	return eventType
}

// Cleanup deletes processed events older than Retention.
func (p *OutboxProcessor) Cleanup(ctx context.Context) (int64, error) {
	if p.config.Retention <= 0 {
		return 0, nil
	}
	deleted, err := p.store.Outbox().DeleteProcessedBefore(ctx, p.now().Add(-p.config.Retention))
	p.metrics.DatabaseOperation("delete_processed_events", err)
	if err != nil {
		return 0, err
	}
	if deleted > 0 {
		if p.metrics != nil {
			p.metrics.OutboxEventsPurged.Add(float64(deleted))
		}
		p.logger.Debug("Purged processed outbox events", "count", deleted)
	}
	return deleted, nil
}
