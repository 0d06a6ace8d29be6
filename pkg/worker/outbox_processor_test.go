package worker

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	promtest "github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nidahp/portal-api/internal/model"
	"github.com/nidahp/portal-api/internal/repository"
	"github.com/nidahp/portal-api/internal/repository/postgres"
	"github.com/nidahp/portal-api/internal/testutil"
	"github.com/nidahp/portal-api/pkg/logger"
	"github.com/nidahp/portal-api/pkg/messaging"
	"github.com/nidahp/portal-api/pkg/metrics"
)

type fakeBroker struct {
	mu        sync.Mutex
	published []messaging.Message
	channels  []string
	err       error
}

func (b *fakeBroker) Publish(_ context.Context, channel string, msg messaging.Message) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.err != nil {
		return b.err
	}
	b.channels = append(b.channels, channel)
	b.published = append(b.published, msg)
	return nil
}

func (b *fakeBroker) Subscribe(context.Context, string) (<-chan messaging.Message, error) {
	return nil, errors.New("not supported")
}

func (b *fakeBroker) Close() error { return nil }

func setup(t *testing.T, broker messaging.Broker) (*OutboxProcessor, repository.OutboxRepository, *metrics.Metrics) {
	t.Helper()
	db := testutil.NewDB(t)
	repo := postgres.NewOutboxRepository(testutil.Base(db))
	m := metrics.New("test")

	p, err := NewOutboxProcessor(repo, broker, OutboxProcessorConfig{
		BatchSize:     10,
		PollInterval:  time.Second,
		RetryAttempts: 2,
		RetryDelay:    0,
		Channel:       "nidahp.events",
	}, logger.Nop(), m)
	require.NoError(t, err)
	return p, repo, m
}

func TestProcessBatchPublishesAndMarksProcessed(t *testing.T) {
	ctx := context.Background()
	broker := &fakeBroker{}
	p, repo, m := setup(t, broker)

	require.NoError(t, repo.Create(ctx, &model.OutboxEvent{
		EventType: model.EventAssignmentApproved,
		Payload:   json.RawMessage(`{"professional_id":4}`),
	}))

	n, err := p.ProcessBatch(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	require.Len(t, broker.published, 1)
	assert.Equal(t, "nidahp.events", broker.channels[0])
	assert.Equal(t, model.EventAssignmentApproved, broker.published[0].Type)
	assert.JSONEq(t, `{"professional_id":4}`, string(broker.published[0].Payload))
	assert.Equal(t, float64(1), promtest.ToFloat64(m.OutboxEventsProcessed))

	pending, err := repo.GetPendingEvents(ctx, 10)
	require.NoError(t, err)
	assert.Empty(t, pending)
}

func TestProcessBatchRetriesThenFails(t *testing.T) {
	ctx := context.Background()
	broker := &fakeBroker{err: errors.New("redis down")}
	p, repo, m := setup(t, broker)

	require.NoError(t, repo.Create(ctx, &model.OutboxEvent{
		EventType: model.EventInterestExpressed,
		Payload:   json.RawMessage(`{}`),
	}))

	n, err := p.ProcessBatch(ctx)
	require.NoError(t, err)
	assert.Zero(t, n)

	pending, err := repo.GetPendingEvents(ctx, 10)
	require.NoError(t, err)
	require.Len(t, pending, 1)
	assert.Equal(t, model.OutboxStatusRetry, pending[0].Status)
	assert.Equal(t, 1, pending[0].RetryCount)
	require.NotNil(t, pending[0].ErrorMessage)
	assert.Equal(t, "redis down", *pending[0].ErrorMessage)

	_, err = p.ProcessBatch(ctx)
	require.NoError(t, err)

	pending, err = repo.GetPendingEvents(ctx, 10)
	require.NoError(t, err)
	assert.Empty(t, pending)
	assert.Equal(t, float64(1), promtest.ToFloat64(m.OutboxEventsFailed))
	assert.Equal(t, float64(1), promtest.ToFloat64(m.OutboxRetries.WithLabelValues(model.EventInterestExpressed)))
}

func TestNewOutboxProcessorValidatesConfig(t *testing.T) {
	_, err := NewOutboxProcessor(nil, &fakeBroker{}, OutboxProcessorConfig{}, logger.Nop(), metrics.New("test"))
	assert.Error(t, err)
}

func TestCleanupRemovesOldProcessedEvents(t *testing.T) {
	ctx := context.Background()
	broker := &fakeBroker{}
	p, repo, _ := setup(t, broker)

	require.NoError(t, repo.Create(ctx, &model.OutboxEvent{EventType: model.EventNeedDeleted, Payload: json.RawMessage(`{}`)}))
	_, err := p.ProcessBatch(ctx)
	require.NoError(t, err)

	keep := NewOutboxCleanupWorker(repo, time.Hour, time.Minute, logger.Nop())
	rows, err := keep.Cleanup(ctx)
	require.NoError(t, err)
	assert.Zero(t, rows)

	purge := NewOutboxCleanupWorker(repo, -time.Hour, time.Minute, logger.Nop())
	rows, err = purge.Cleanup(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), rows)
}
