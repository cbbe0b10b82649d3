package redis

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jwalitptl/mediconnect-api/pkg/circuitbreaker"
)

func TestPublish_OpensCircuitWhenRedisIsDown(t *testing.T) {
	client := redis.NewClient(&redis.Options{
		Addr:        "127.0.0.1:1",
		DialTimeout: 100 * time.Millisecond,
		MaxRetries:  -1,
	})
	broker := NewRedisBrokerFromClient(client, zerolog.Nop())
	defer broker.Close()

	ctx := context.Background()
	for i := 0; i < 5; i++ {
		err := broker.Publish(ctx, "notifications", map[string]string{"n": "1"})
		require.Error(t, err)
		assert.NotErrorIs(t, err, circuitbreaker.ErrOpen)
	}

	err := broker.Publish(ctx, "notifications", map[string]string{"n": "1"})
	assert.ErrorIs(t, err, circuitbreaker.ErrOpen)
}

func TestNewRedisBroker_BadURL(t *testing.T) {
	_, err := NewRedisBroker(Config{URL: "not a url"}, zerolog.Nop())
	assert.Error(t, err)
}

// Needs a live server, e.g. REDIS_URL=redis://localhost:6379/0.
func TestPublishSubscribe(t *testing.T) {
	url := os.Getenv("REDIS_URL")
	if url == "" {
		t.Skip("REDIS_URL not set")
	}

	broker, err := NewRedisBroker(Config{URL: url, MaxRetries: 1, PoolSize: 2}, zerolog.Nop())
	require.NoError(t, err)
	defer broker.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	messages, err := broker.Subscribe(ctx, "mediconnect-test")
	require.NoError(t, err)
	require.NoError(t, broker.Publish(ctx, "mediconnect-test", map[string]int{"id": 7}))

	select {
	case msg := <-messages:
		assert.JSONEq(t, `{"id":7}`, string(msg))
	case <-ctx.Done():
		t.Fatal("no message received")
	}
}
