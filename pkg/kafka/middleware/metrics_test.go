package kafka_middleware

import (
	"context"
	"errors"
	"testing"

	"roombook/pkg/kafka"

	"github.com/stretchr/testify/assert"
)

func TestMetrics_ConsumerMiddlewareCounts(t *testing.T) {
	m := NewMetrics()
	mw := m.ConsumerMiddleware()

	ok := func(ctx context.Context, msg kafka.Message) error { return nil }
	fail := func(ctx context.Context, msg kafka.Message) error { return errors.New("boom") }

	assert.NoError(t, mw(context.Background(), kafka.Message{}, ok))
	assert.NoError(t, mw(context.Background(), kafka.Message{}, ok))
	assert.Error(t, mw(context.Background(), kafka.Message{}, fail))

	s := m.Snapshot()
	assert.Equal(t, int64(2), s.MessagesConsumed)
	assert.Equal(t, int64(1), s.MessagesConsumedFailed)
	assert.Zero(t, s.MessagesPublished)

	m.Reset()
	assert.Zero(t, m.Snapshot().MessagesConsumed)
}

func TestMetrics_ProducerMiddlewareCounts(t *testing.T) {
	m := NewMetrics()
	mw := m.ProducerMiddleware()

	err := mw(context.Background(), kafka.Message{}, func(ctx context.Context, msg kafka.Message) error {
		return nil
	})

	assert.NoError(t, err)
	assert.Equal(t, int64(1), m.Snapshot().MessagesPublished)
}
