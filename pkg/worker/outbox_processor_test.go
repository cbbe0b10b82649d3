package worker

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jwalitptl/mediconnect-api/internal/model"
	"github.com/jwalitptl/mediconnect-api/internal/repository"
	"github.com/jwalitptl/mediconnect-api/internal/repository/memory"
	"github.com/jwalitptl/mediconnect-api/pkg/metrics"
)

type published struct {
	channel string
	payload json.RawMessage
}

type fakeBroker struct {
	mu       sync.Mutex
	fail     bool
	messages []published
}

func (b *fakeBroker) Publish(_ context.Context, channel string, message interface{}) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.fail {
		return errors.New("broker unavailable")
	}
	b.messages = append(b.messages, published{channel: channel, payload: message.(json.RawMessage)})
	return nil
}

func (b *fakeBroker) Subscribe(context.Context, string) (<-chan []byte, error) {
	return nil, errors.New("not implemented")
}

func (b *fakeBroker) Close() error { return nil }

func testConfig() OutboxProcessorConfig {
	return OutboxProcessorConfig{
		BatchSize:     10,
		PollInterval:  time.Second,
		RetryAttempts: 3,
		RetryDelay:    time.Minute,
		Retention:     24 * time.Hour,
		Channels:      map[string]string{model.EventNotificationCreated: "notifications"},
	}
}

func seedEvents(t *testing.T, store *memory.Store, n int) {
	t.Helper()
	for i := 0; i < n; i++ {
		payload, err := json.Marshal(model.NotificationCreated{ID: int64(i + 1), UserID: 2, Message: "hello"})
		require.NoError(t, err)
		require.NoError(t, store.Outbox().Create(context.Background(), &model.OutboxEvent{
			EventType: model.EventNotificationCreated,
			Payload:   payload,
		}))
	}
}

func pending(t *testing.T, store *memory.Store) []*model.OutboxEvent {
	t.Helper()
	events, err := store.Outbox().GetPendingEventsWithLock(context.Background(), 0)
	require.NoError(t, err)
	return events
}

func TestNewOutboxProcessor_ValidatesConfig(t *testing.T) {
	cfg := testConfig()
	cfg.BatchSize = 0
	_, err := NewOutboxProcessor(memory.NewStore(), &fakeBroker{}, cfg, nil, nil)
	assert.Error(t, err)

	cfg = testConfig()
	cfg.RetryDelay = 0
	_, err = NewOutboxProcessor(memory.NewStore(), &fakeBroker{}, cfg, nil, nil)
	assert.Error(t, err)
}

func TestProcessBatch_PublishesToMappedChannel(t *testing.T) {
	ctx := context.Background()
	store := memory.NewStore()
	broker := &fakeBroker{}
	m := metrics.New("test", prometheus.NewRegistry())
	seedEvents(t, store, 3)

	p, err := NewOutboxProcessor(store, broker, testConfig(), nil, m)
	require.NoError(t, err)

	n, err := p.ProcessBatch(ctx)
	require.NoError(t, err)
	assert.Equal(t, 3, n)
	assert.Empty(t, pending(t, store))

	require.Len(t, broker.messages, 3)
	assert.Equal(t, "notifications", broker.messages[0].channel)
	var msg model.NotificationCreated
	require.NoError(t, json.Unmarshal(broker.messages[0].payload, &msg))
	assert.Equal(t, int64(1), msg.ID)
	assert.Equal(t, "hello", msg.Message)
	assert.Equal(t, float64(3), testutil.ToFloat64(m.OutboxEventsProcessed))

	// Nothing left to do.
	n, err = p.ProcessBatch(ctx)
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestProcessBatch_RespectsBatchSize(t *testing.T) {
	store := memory.NewStore()
	seedEvents(t, store, 5)
	cfg := testConfig()
	cfg.BatchSize = 2

	p, err := NewOutboxProcessor(store, &fakeBroker{}, cfg, nil, nil)
	require.NoError(t, err)

	n, err := p.ProcessBatch(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, n)
	assert.Len(t, pending(t, store), 3)
}

func TestProcessBatch_RetriesThenFails(t *testing.T) {
	ctx := context.Background()
	store := memory.NewStore()
	broker := &fakeBroker{fail: true}
	m := metrics.New("test", prometheus.NewRegistry())
	seedEvents(t, store, 1)

	p, err := NewOutboxProcessor(store, broker, testConfig(), nil, m)
	require.NoError(t, err)
	// Retries are scheduled in the past so every batch sees them as due.
	p.now = func() time.Time { return time.Now().Add(-time.Hour) }

	for attempt := 1; attempt < 3; attempt++ {
		n, err := p.ProcessBatch(ctx)
		require.NoError(t, err)
		assert.Zero(t, n)

		events := pending(t, store)
		require.Len(t, events, 1, "attempt %d", attempt)
		assert.Equal(t, attempt, events[0].RetryCount)
		require.NotNil(t, events[0].ErrorMessage)
		assert.Equal(t, "broker unavailable", *events[0].ErrorMessage)
	}

	_, err = p.ProcessBatch(ctx)
	require.NoError(t, err)
	assert.Empty(t, pending(t, store), "event should be marked failed")
	assert.Equal(t, float64(2), testutil.ToFloat64(m.OutboxRetries.WithLabelValues(model.EventNotificationCreated)))
	assert.Equal(t, float64(1), testutil.ToFloat64(m.OutboxEventsFailed))
}

func TestProcessBatch_RetryWaitsForDelay(t *testing.T) {
	ctx := context.Background()
	store := memory.NewStore()
	broker := &fakeBroker{fail: true}
	seedEvents(t, store, 1)

	p, err := NewOutboxProcessor(store, broker, testConfig(), nil, nil)
	require.NoError(t, err)

	_, err = p.ProcessBatch(ctx)
	require.NoError(t, err)
	// Retry is a minute away.
	assert.Empty(t, pending(t, store))

	broker.fail = false
	n, err := p.ProcessBatch(ctx)
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestCleanup(t *testing.T) {
	ctx := context.Background()
	store := memory.NewStore()
	seedEvents(t, store, 2)

	p, err := NewOutboxProcessor(store, &fakeBroker{}, testConfig(), nil, nil)
	require.NoError(t, err)
	_, err = p.ProcessBatch(ctx)
	require.NoError(t, err)

	deleted, err := p.Cleanup(ctx)
	require.NoError(t, err)
	assert.Zero(t, deleted, "fresh events are retained")

	p.now = func() time.Time { return time.Now().Add(48 * time.Hour) }
	deleted, err = p.Cleanup(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(2), deleted)

	cfg := testConfig()
	cfg.Retention = 0
	keep, err := NewOutboxProcessor(store, &fakeBroker{}, cfg, nil, nil)
	require.NoError(t, err)
	deleted, err = keep.Cleanup(ctx)
	require.NoError(t, err)
	assert.Zero(t, deleted)
}

func TestStartStopsOnCancel(t *testing.T) {
	store := memory.NewStore()
	broker := &fakeBroker{}
	seedEvents(t, store, 1)
	cfg := testConfig()
	cfg.PollInterval = 10 * time.Millisecond

	p, err := NewOutboxProcessor(store, broker, cfg, nil, nil)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		p.Start(ctx)
		close(done)
	}()

	assert.Eventually(t, func() bool {
		broker.mu.Lock()
		defer broker.mu.Unlock()
		return len(broker.messages) == 1
	}, time.Second, 10*time.Millisecond)

	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("processor did not stop")
	}
}

type unmarkableOutbox struct {
	repository.OutboxRepository
}

func (unmarkableOutbox) MarkProcessed(context.Context, uuid.UUID) error {
	return errors.New("connection reset")
}

func TestProcessEvent_CountsOnlyMarkedEvents(t *testing.T) {
	ctx := context.Background()
	store := memory.NewStore()
	seedEvents(t, store, 1)
	m := metrics.New("test", prometheus.NewRegistry())

	p, err := NewOutboxProcessor(store, &fakeBroker{}, testConfig(), nil, m)
	require.NoError(t, err)

	event := pending(t, store)[0]
	err = p.processEvent(ctx, unmarkableOutbox{OutboxRepository: store.Outbox()}, event)
	require.Error(t, err)
	assert.Zero(t, testutil.ToFloat64(m.OutboxEventsProcessed))
	assert.Len(t, pending(t, store), 1)
}
