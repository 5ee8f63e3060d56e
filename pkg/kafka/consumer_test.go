package kafka

import (
	"context"
	"errors"
	"io"
	"sync"
	"testing"
	"time"

	"roombook/pkg/logger"

	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeReader struct {
	mu        sync.Mutex
	pending   []kafka.Message
	committed []int64
	drained   chan struct{}
}

func newFakeReader(msgs ...kafka.Message) *fakeReader {
	return &fakeReader{pending: msgs, drained: make(chan struct{})}
}

func (r *fakeReader) FetchMessage(ctx context.Context) (kafka.Message, error) {
	r.mu.Lock()
	if len(r.pending) > 0 {
		msg := r.pending[0]
		r.pending = r.pending[1:]
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
	if len(r.pending) == 0 {
		select {
		case <-r.drained:
		default:
			close(r.drained)
		}
	}
	return nil
}

func (r *fakeReader) Close() error { return nil }

type fakeWriter struct {
	mu       sync.Mutex
	messages []kafka.Message
}

func (w *fakeWriter) WriteMessages(_ context.Context, msgs ...kafka.Message) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.messages = append(w.messages, msgs...)
	return nil
}

func (w *fakeWriter) Close() error { return nil }

func quietLogger() *logger.Logger {
	return logger.New(logger.Config{Output: io.Discard, Level: logger.ERROR})
}

func runUntilDrained(t *testing.T, c *Consumer, reader *fakeReader) {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- c.Start(ctx) }()

	select {
	case <-reader.drained:
	case <-time.After(5 * time.Second):
		t.Fatal("consumer did not drain messages")
	}
	cancel()
	require.ErrorIs(t, <-done, context.Canceled)
	require.NoError(t, c.Close())
}

func TestConsumer_RetriesTransientErrors(t *testing.T) {
	reader := newFakeReader(kafka.Message{Key: []byte("b1"), Value: []byte(`{}`), Offset: 7})
	dlq := &fakeWriter{}

	attempts := 0
	handler := func(ctx context.Context, msg Message) error {
		attempts++
		if attempts < 3 {
			return NewTransientError("store unavailable", errors.New("connection refused"))
		}
		return nil
	}

	c := newConsumer(reader, dlq, "bookings", "group", 3, handler, quietLogger())
	runUntilDrained(t, c, reader)

	assert.Equal(t, 3, attempts)
	assert.Empty(t, dlq.messages)
	assert.Equal(t, []int64{7}, reader.committed)
}

func TestConsumer_PermanentErrorGoesToDLQ(t *testing.T) {
	reader := newFakeReader(kafka.Message{
		Key:     []byte("b1"),
		Value:   []byte(`not json`),
		Offset:  3,
		Headers: []kafka.Header{{Key: HeaderEventType, Value: []byte("booking.created")}},
	})
	dlq := &fakeWriter{}

	attempts := 0
	handler := func(ctx context.Context, msg Message) error {
		attempts++
		return NewPermanentError("decode failed", errors.New("bad payload"))
	}

	c := newConsumer(reader, dlq, "bookings", "group", 3, handler, quietLogger())
	runUntilDrained(t, c, reader)

	assert.Equal(t, 1, attempts)
	require.Len(t, dlq.messages, 1)
	assert.Equal(t, []int64{3}, reader.committed)

	headers := map[string]string{}
	for _, h := range dlq.messages[0].Headers {
		headers[h.Key] = string(h.Value)
	}
	assert.Equal(t, "bookings", headers[HeaderOriginalTopic])
	assert.Equal(t, "group", headers[HeaderDLQConsumerGroup])
	assert.Equal(t, "booking.created", headers[HeaderEventType])
	assert.Contains(t, headers[HeaderDLQError], "bad payload")
}

func TestConsumer_StartAfterClose(t *testing.T) {
	c := newConsumer(newFakeReader(), nil, "bookings", "group", 0, func(ctx context.Context, msg Message) error { return nil }, quietLogger())
	require.NoError(t, c.Close())
	assert.ErrorIs(t, c.Start(context.Background()), ErrConsumerClosed)
}
