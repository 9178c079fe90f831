package kafka

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeReader serves queued messages, then blocks until ctx is canceled.
type fakeReader struct {
	mu        sync.Mutex
	queue     []kafka.Message
	committed []kafka.Message
	closes    int
}

func (r *fakeReader) FetchMessage(ctx context.Context) (kafka.Message, error) {
	r.mu.Lock()
	if len(r.queue) > 0 {
		msg := r.queue[0]
		r.queue = r.queue[1:]
		r.mu.Unlock()
		return msg, nil
	}
	r.mu.Unlock()
	<-ctx.Done()
	return kafka.Message{}, ctx.Err()
}

func (r *fakeReader) CommitMessages(_ context.Context, msgs ...kafka.Message) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.committed = append(r.committed, msgs...)
	return nil
}

func (r *fakeReader) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.closes++
	return nil
}

func (r *fakeReader) committedCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.committed)
}

func eventMessage(t *testing.T, topic, aggregateID string) kafka.Message {
	t.Helper()
	event, err := NewEvent("order.status_changed", aggregateID, "order", "backend", map[string]string{"status": "delivered"})
	require.NoError(t, err)
	raw, err := event.Marshal()
	require.NoError(t, err)
	return kafka.Message{Topic: topic, Key: []byte(aggregateID), Value: raw}
}

func runConsumer(t *testing.T, c *Consumer, r *fakeReader, want int) {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- c.Start(ctx) }()

	require.Eventually(t, func() bool { return r.committedCount() == want }, time.Second, 5*time.Millisecond)
	cancel()
	require.NoError(t, <-done)
}

func TestConsumer_HandlesAndCommits(t *testing.T) {
	topic := Topic("order", "test_consume")
	r := &fakeReader{queue: []kafka.Message{eventMessage(t, topic, "1"), eventMessage(t, topic, "2")}}

	var mu sync.Mutex
	var seen []string
	c := newConsumer(r, topic, "storefront", func(_ context.Context, e *Event) error {
		mu.Lock()
		defer mu.Unlock()
		seen = append(seen, e.AggregateID)
		return nil
	}, discardLogger())

	runConsumer(t, c, r, 2)

	assert.Equal(t, []string{"1", "2"}, seen)
	assert.Equal(t, float64(2), testutil.ToFloat64(consumerMessagesProcessed.WithLabelValues(topic, "storefront")))
	assert.Equal(t, 1, r.closes)
}

func TestConsumer_RetriesThenSkips(t *testing.T) {
	topic := Topic("order", "test_retry")
	r := &fakeReader{queue: []kafka.Message{eventMessage(t, topic, "5")}}

	var attempts int
	c := newConsumer(r, topic, "storefront", func(context.Context, *Event) error {
		attempts++
		return errors.New("backend unavailable")
	}, discardLogger())
	c.backoff = func(int) time.Duration { return time.Millisecond }

	runConsumer(t, c, r, 1)

	assert.Equal(t, maxHandlerRetries, attempts)
	assert.Equal(t, float64(1), testutil.ToFloat64(consumerMessagesSkipped.WithLabelValues(topic, "storefront", skipHandler)))
}

func TestConsumer_SkipsUndecodable(t *testing.T) {
	topic := Topic("order", "test_garbage")
	r := &fakeReader{queue: []kafka.Message{{Topic: topic, Value: []byte("garbage")}}}

	called := false
	c := newConsumer(r, topic, "storefront", func(context.Context, *Event) error {
		called = true
		return nil
	}, discardLogger())

	runConsumer(t, c, r, 1)
	assert.False(t, called)
	assert.Equal(t, float64(1), testutil.ToFloat64(consumerMessagesSkipped.WithLabelValues(topic, "storefront", skipUndecodable)))
}

func TestConsumer_CloseIdempotent(t *testing.T) {
	r := &fakeReader{}
	c := newConsumer(r, "t", "g", nil, discardLogger())
	require.NoError(t, c.Close())
	require.NoError(t, c.Close())
	assert.Equal(t, 1, r.closes)
}
