package kafka

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

type fakeWriter struct {
	mu   sync.Mutex
	msgs []kafka.Message
	err  error
}

func (w *fakeWriter) WriteMessages(_ context.Context, msgs ...kafka.Message) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.err != nil {
		return w.err
	}
	w.msgs = append(w.msgs, msgs...)
	return nil
}

func (w *fakeWriter) Close() error { return nil }

type fakeReader struct {
	mu        sync.Mutex
	queue     []kafka.Message
	committed []int64
	closed    int
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
	for _, m := range msgs {
		r.committed = append(r.committed, m.Offset)
	}
	return nil
}

func (r *fakeReader) Close() error {
	r.mu.Lock()
	r.closed++
	r.mu.Unlock()
	return nil
}

func (r *fakeReader) commits() []int64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]int64(nil), r.committed...)
}

func mustEventMessage(t *testing.T, offset int64, eventType string) kafka.Message {
	t.Helper()
	evt, err := NewEvent(eventType, "company-1", "review", "review-service", map[string]string{"review_id": "r-1"})
	require.NoError(t, err)
	value, err := evt.Marshal()
	require.NoError(t, err)
	return kafka.Message{Topic: Topic("review", "deleted"), Offset: offset, Value: value}
}

func TestTopic(t *testing.T) {
	assert.Equal(t, "murabaat.review.deleted", Topic("review", "deleted"))
	assert.Equal(t, "murabaat.dlq.murabaat.review.deleted", DLQTopic("murabaat.review.deleted"))
}

func TestEvent_RoundTrip(t *testing.T) {
	evt, err := NewEvent("review.approved", "company-9", "review", "review-service", map[string]int{"rating": 4})
	require.NoError(t, err)
	evt.CorrelationID = "corr-1"
	evt.WithMetadata("actor", "u-admin")

	raw, err := evt.Marshal()
	require.NoError(t, err)
	back, err := UnmarshalEvent(raw)
	require.NoError(t, err)

	assert.Equal(t, evt.EventID, back.EventID)
	assert.Equal(t, "corr-1", back.CorrelationID)
	assert.Equal(t, "u-admin", back.Metadata["actor"])

	var payload map[string]int
	require.NoError(t, back.UnmarshalData(&payload))
	assert.Equal(t, 4, payload["rating"])

	_, err = NewEvent("x", "a", "b", "c", make(chan int))
	assert.Error(t, err)
	_, err = UnmarshalEvent([]byte("{"))
	assert.Error(t, err)
}

func TestProducer_Publish(t *testing.T) {
	w := &fakeWriter{}
	p := NewProducerWithWriter(w, nil, testLogger())

	evt, err := NewEvent("review.deleted", "company-1", "review", "review-service", nil)
	require.NoError(t, err)
	evt.CorrelationID = "corr-7"

	require.NoError(t, p.Publish(context.Background(), "murabaat.review.deleted", evt))
	require.Len(t, w.msgs, 1)
	assert.Equal(t, "company-1", string(w.msgs[0].Key))
	assert.Len(t, w.msgs[0].Headers, 3)

	w.err = errors.New("leader not available")
	err = p.Publish(context.Background(), "murabaat.review.deleted", evt)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "publish event to murabaat.review.deleted")
}

func TestPingBrokers_NoBrokers(t *testing.T) {
	assert.Error(t, PingBrokers(context.Background(), nil))
}

func TestDLQProducer_AddsOriginHeaders(t *testing.T) {
	w := &fakeWriter{}
	d := NewDLQProducerWithWriter(w, testLogger())

	msg := kafka.Message{Topic: "murabaat.review.deleted", Partition: 2, Offset: 41, Value: []byte("{}")}
	require.NoError(t, d.Publish(context.Background(), msg, errors.New("company missing"), "review-service"))

	require.Len(t, w.msgs, 1)
	assert.Equal(t, "murabaat.dlq.murabaat.review.deleted", w.msgs[0].Topic)
	headers := map[string]string{}
	for _, h := range w.msgs[0].Headers {
		headers[h.Key] = string(h.Value)
	}
	assert.Equal(t, "2", headers["dlq.original_partition"])
	assert.Equal(t, "41", headers["dlq.original_offset"])
	assert.Equal(t, "company missing", headers["dlq.error"])
}

func TestConsumer_CommitsAfterSuccess(t *testing.T) {
	reader := &fakeReader{queue: []kafka.Message{
		mustEventMessage(t, 1, "review.deleted"),
		mustEventMessage(t, 2, "review.deleted"),
	}}

	var handled int
	var mu sync.Mutex
	c := NewConsumerWithReader(reader, "murabaat.review.deleted", "review-service", func(ctx context.Context, e *Event) error {
		mu.Lock()
		handled++
		mu.Unlock()
		return nil
	}, testLogger())

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- c.Start(ctx) }()

	require.Eventually(t, func() bool { return len(reader.commits()) == 2 }, time.Second, 5*time.Millisecond)
	cancel()
	require.NoError(t, <-done)

	assert.Equal(t, []int64{1, 2}, reader.commits())
	assert.Equal(t, 2, handled)
	assert.Equal(t, 1, reader.closed)
}

func TestConsumer_PoisonMessageGoesToDLQ(t *testing.T) {
	w := &fakeWriter{}
	reader := &fakeReader{}
	attempts := 0
	c := NewConsumerWithReader(reader, "murabaat.review.deleted", "review-service", func(ctx context.Context, e *Event) error {
		attempts++
		return errors.New("still failing")
	}, testLogger()).WithDLQ(NewDLQProducerWithWriter(w, testLogger()))
	c.backoff = time.Millisecond

	ok := c.process(context.Background(), mustEventMessage(t, 9, "review.deleted"))

	assert.True(t, ok)
	assert.Equal(t, maxHandlerRetries, attempts)
	require.Len(t, w.msgs, 1)
}

func TestConsumer_UndecodableMessageIsSkipped(t *testing.T) {
	c := NewConsumerWithReader(&fakeReader{}, "t", "g", func(ctx context.Context, e *Event) error {
		t.Fatal("handler must not run")
		return nil
	}, testLogger())

	assert.True(t, c.process(context.Background(), kafka.Message{Value: []byte("not json")}))
}

func TestMemoryIdempotencyStore_Expiry(t *testing.T) {
	now := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	s := NewMemoryIdempotencyStore(time.Minute)
	s.now = func() time.Time { return now }
	ctx := context.Background()

	require.NoError(t, s.Add(ctx, "evt-1"))
	seen, _ := s.Contains(ctx, "evt-1")
	assert.True(t, seen)

	now = now.Add(2 * time.Minute)
	seen, _ = s.Contains(ctx, "evt-1")
	assert.False(t, seen)
	assert.Zero(t, s.Len())
}

func TestRedisIdempotencyStore(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	s := NewRedisIdempotencyStore(client, "review-service:events", time.Hour)
	ctx := context.Background()

	seen, err := s.Contains(ctx, "evt-1")
	require.NoError(t, err)
	assert.False(t, seen)

	require.NoError(t, s.Add(ctx, "evt-1"))
	seen, err = s.Contains(ctx, "evt-1")
	require.NoError(t, err)
	assert.True(t, seen)
	assert.True(t, mr.Exists("review-service:events:evt-1"))

	mr.FastForward(2 * time.Hour)
	seen, _ = s.Contains(ctx, "evt-1")
	assert.False(t, seen)

	mr.Close()
	_, err = s.Contains(ctx, "evt-2")
	assert.Error(t, err)
}

func TestIdempotentHandler(t *testing.T) {
	store := NewMemoryIdempotencyStore(time.Hour)
	calls := 0
	fail := true
	h := IdempotentHandler(store, func(ctx context.Context, e *Event) error {
		calls++
		if fail {
			return errors.New("transient")
		}
		return nil
	}, testLogger())

	evt := &Event{EventID: "evt-1", EventType: "review.deleted"}
	ctx := context.Background()

	require.Error(t, h(ctx, evt))
	fail = false
	require.NoError(t, h(ctx, evt))
	require.NoError(t, h(ctx, evt))
	assert.Equal(t, 2, calls)

	require.NoError(t, h(ctx, &Event{}))
	require.NoError(t, h(ctx, &Event{}))
	assert.Equal(t, 4, calls)
}
