package interfaces

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/trace/noop"

	"marketplace/internal/pkg/mq"
	"marketplace/internal/service/notification/application"
	"marketplace/internal/service/order/domain"
)

// fakeReader 依次返回预置的消息，读完后阻塞到 ctx 取消
type fakeReader struct {
	mu        sync.Mutex
	msgs      []kafka.Message
	committed []int64
	drained   chan struct{}
}

func newFakeReader(msgs ...kafka.Message) *fakeReader {
	return &fakeReader{msgs: msgs, drained: make(chan struct{})}
}

func (r *fakeReader) FetchMessage(ctx context.Context) (kafka.Message, error) {
	r.mu.Lock()
	if len(r.msgs) > 0 {
		m := r.msgs[0]
		r.msgs = r.msgs[1:]
		r.mu.Unlock()
		return m, nil
	}
	r.mu.Unlock()
	select {
	case <-r.drained:
	default:
		close(r.drained)
	}
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

func (r *fakeReader) Close() error { return nil }

// fakeWriter 前 failures 次写入返回 err；failures < 0 时一直失败
type fakeWriter struct {
	mu       sync.Mutex
	msgs     []kafka.Message
	err      error
	failures int
	attempts int
}

func (w *fakeWriter) WriteMessages(_ context.Context, msgs ...kafka.Message) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.attempts++
	if w.err != nil && (w.failures < 0 || w.attempts <= w.failures) {
		return w.err
	}
	w.msgs = append(w.msgs, msgs...)
	return nil
}

func (w *fakeWriter) Close() error { return nil }

func eventMessage(t *testing.T, offset int64, e domain.Event) kafka.Message {
	t.Helper()
	payload, err := json.Marshal(e)
	require.NoError(t, err)
	return kafka.Message{Topic: "order-events", Offset: offset, Key: []byte(e.OrderID), Value: payload}
}

func runUntilDrained(t *testing.T, reader *fakeReader, dlt *fakeWriter) {
	t.Helper()
	svc := application.NewNotificationService(noop.NewTracerProvider().Tracer("test"))
	consumer := NewEventConsumerAdapter(reader, "order-events", svc, mq.NewFailureHandler(dlt))
	consumer.retryDelay = 5 * time.Millisecond

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- consumer.Run(ctx) }()

	select {
	case <-reader.drained:
	case <-time.After(5 * time.Second):
		t.Fatal("consumer did not drain messages")
	}
	cancel()
	require.NoError(t, <-done)
}

func TestConsumerCommitsAndDeadLetters(t *testing.T) {
	good := eventMessage(t, 1, domain.Event{Type: domain.EventOrderPlaced, OrderID: "o1", TrackingID: "TRK-AAAAAAAA", Email: "a@b.c"})
	unknown := eventMessage(t, 2, domain.Event{Type: "order.exploded", OrderID: "o2"})
	garbage := kafka.Message{Topic: "order-events", Offset: 3, Value: []byte("{not json")}

	reader := newFakeReader(good, unknown, garbage)
	dlt := &fakeWriter{}
	runUntilDrained(t, reader, dlt)

	assert.Equal(t, []int64{1, 2, 3}, reader.committed)
	require.Len(t, dlt.msgs, 2)

	headers := map[string]string{}
	for _, h := range dlt.msgs[0].Headers {
		headers[h.Key] = string(h.Value)
	}
	assert.Equal(t, "order-events", headers[mq.HeaderOriginalTopic])
	assert.Equal(t, "2", headers[mq.HeaderOriginalOffset])
	assert.Contains(t, headers[mq.HeaderExceptionMessage], "unknown order event type")
}

func TestConsumerRetriesDeadLetterBeforeCommit(t *testing.T) {
	bad := kafka.Message{Topic: "order-events", Offset: 7, Value: []byte("nope")}
	reader := newFakeReader(bad)
	dlt := &fakeWriter{err: errors.New("dlt unavailable"), failures: 2}
	runUntilDrained(t, reader, dlt)

	assert.Equal(t, 3, dlt.attempts)
	require.Len(t, dlt.msgs, 1)
	assert.Equal(t, []int64{7}, reader.committed)
}

func TestConsumerBlocksOnDeadLetterOutage(t *testing.T) {
	bad := kafka.Message{Topic: "order-events", Offset: 7, Value: []byte("nope")}
	good := eventMessage(t, 8, domain.Event{Type: domain.EventOrderPlaced, OrderID: "o1", TrackingID: "TRK-AAAAAAAA", Email: "a@b.c"})
	reader := newFakeReader(bad, good)
	dlt := &fakeWriter{err: errors.New("dlt unavailable"), failures: -1}

	svc := application.NewNotificationService(noop.NewTracerProvider().Tracer("test"))
	consumer := NewEventConsumerAdapter(reader, "order-events", svc, mq.NewFailureHandler(dlt))
	consumer.retryDelay = 5 * time.Millisecond

	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()
	require.NoError(t, consumer.Run(ctx))

	// 后面的消息不能越过未进入死信的消息被提交
	reader.mu.Lock()
	defer reader.mu.Unlock()
	assert.Empty(t, reader.committed)
	assert.Len(t, reader.msgs, 1)
	assert.Greater(t, dlt.attempts, 1)
}

func TestDltConsumerCommits(t *testing.T) {
	msg := kafka.Message{Topic: "order-events-dlt", Offset: 11, Value: []byte("x"), Headers: []kafka.Header{
		{Key: mq.HeaderOriginalTopic, Value: []byte("order-events")},
		{Key: mq.HeaderExceptionMessage, Value: []byte("boom")},
	}}
	reader := newFakeReader(msg)
	consumer := NewDltConsumerAdapter(reader, "order-events-dlt")

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- consumer.Run(ctx) }()

	select {
	case <-reader.drained:
	case <-time.After(5 * time.Second):
		t.Fatal("dlt consumer did not drain messages")
	}
	cancel()
	require.NoError(t, <-done)
	assert.Equal(t, []int64{11}, reader.committed)
}
