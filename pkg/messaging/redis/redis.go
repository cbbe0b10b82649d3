package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/jwalitptl/mediconnect-api/pkg/circuitbreaker"
	"github.com/jwalitptl/mediconnect-api/pkg/messaging"
)

type RedisBroker struct {
	client *redis.Client
	cb     *circuitbreaker.CircuitBreaker
	logger zerolog.Logger
}

var _ messaging.Broker = (*RedisBroker)(nil)

type Config struct {
	URL          string
	MaxRetries   int
	RetryBackoff time.Duration
	PoolSize     int
	MinIdleConns int
}

func NewRedisBroker(config Config, logger zerolog.Logger) (*RedisBroker, error) {
	opts, err := redis.ParseURL(config.URL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse Redis URL: %w", err)
	}

	// Configure connection pooling
	opts.MaxRetries = config.MaxRetries
	opts.MinRetryBackoff = config.RetryBackoff
	opts.PoolSize = config.PoolSize
	opts.MinIdleConns = config.MinIdleConns

	client := redis.NewClient(opts)

	// Test connection
	if err := client.Ping(context.Background()).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	return NewRedisBrokerFromClient(client, logger), nil
}

// NewRedisBrokerFromClient wraps an existing client.
func NewRedisBrokerFromClient(client *redis.Client, logger zerolog.Logger) *RedisBroker {
	return &RedisBroker{
		client: client,
		cb: circuitbreaker.NewCircuitBreaker(circuitbreaker.Settings{
			Name:        "redis-broker",
			MaxFailures: 5,
			Timeout:     5 * time.Second,
		}),
		logger: logger.With().Str("component", "redis-broker").Logger(),
	}
}

func (b *RedisBroker) Publish(ctx context.Context, channel string, message interface{}) error {
	payload, err := json.Marshal(message)
	if err != nil {
		return fmt.Errorf("failed to marshal message: %w", err)
	}
	return b.cb.Execute(func() error {
		return b.client.Publish(ctx, channel, payload).Err()
	})
}

func (b *RedisBroker) Subscribe(ctx context.Context, channel string) (<-chan []byte, error) {
	pubsub := b.client.Subscribe(ctx, channel)
	if _, err := pubsub.Receive(ctx); err != nil {
		_ = pubsub.Close()
		return nil, fmt.Errorf("failed to subscribe to %s: %w", channel, err)
	}
	msgChan := make(chan []byte, 100)

	go func() {
		defer func() {
			pubsub.Close()
			close(msgChan)
		}()

		for {
			msg, err := pubsub.ReceiveMessage(ctx)
			if err != nil {
				if ctx.Err() != nil || errors.Is(err, redis.ErrClosed) {
					return
				}
				b.logger.Warn().Err(err).Str("channel", channel).Msg("receive failed")
				continue
			}
			select {
			case msgChan <- []byte(msg.Payload):
			case <-ctx.Done():
				return
			}
		}
	}()

	return msgChan, nil
}

func (b *RedisBroker) Close() error {
	return b.client.Close()
}
