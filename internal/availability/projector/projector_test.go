package projector

import (
	"context"
	"errors"
	"io"
	"roombook/internal/availability/index"
	"roombook/internal/bookings/events"
	"roombook/pkg/kafka"
	"roombook/pkg/logger"
	"roombook/pkg/model"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var day = model.Date{Year: 2024, Month: time.June, Day: 1}

func quietLogger() *logger.Logger {
	return logger.New(logger.Config{Output: io.Discard, Level: logger.ERROR})
}

func booking(id, room, start, end string) model.Booking {
	return model.Booking{
		ID:        id,
		RoomID:    room,
		UserID:    "u-" + id,
		Date:      day,
		StartTime: model.MustParseTimeOfDay(start),
		EndTime:   model.MustParseTimeOfDay(end),
	}
}

func message(t *testing.T, event model.BookingEvent) kafka.Message {
	t.Helper()
	msg, err := events.EncodeEvent(event)
	require.NoError(t, err)
	return msg
}

func TestProjector_AppliesLifecycle(t *testing.T) {
	idx := index.NewIndex()
	p := New(idx, quietLogger())
	ctx := context.Background()

	created := booking("b1", "R101", "10:00:00", "11:00:00")
	require.NoError(t, p.HandleMessage(ctx, message(t, model.BookingEvent{Type: model.EventBookingCreated, Booking: created})))
	assert.False(t, idx.IsRoomFree("R101", day, created.Window(), ""))

	moved := booking("b1", "R202", "10:00:00", "11:00:00")
	require.NoError(t, p.HandleMessage(ctx, message(t, model.BookingEvent{
		Type:     model.EventBookingUpdated,
		Booking:  moved,
		Previous: &created,
	})))
	assert.True(t, idx.IsRoomFree("R101", day, created.Window(), ""))
	assert.False(t, idx.IsRoomFree("R202", day, moved.Window(), ""))

	cancel := model.BookingEvent{Type: model.EventBookingCancelled, Booking: moved}
	require.NoError(t, p.HandleMessage(ctx, message(t, cancel)))
	require.NoError(t, p.HandleMessage(ctx, message(t, cancel)), "replayed cancel is harmless")
	assert.Zero(t, idx.Len())
}

func TestProjector_MalformedMessagesArePermanent(t *testing.T) {
	p := New(index.NewIndex(), quietLogger())

	err := p.HandleMessage(context.Background(), kafka.Message{Value: []byte("{not json")})
	var kerr *kafka.KafkaError
	require.True(t, errors.As(err, &kerr))
	assert.True(t, kerr.IsPermanent())

	err = p.HandleMessage(context.Background(), message(t, model.BookingEvent{
		Type:    "booking.archived",
		Booking: booking("b1", "R101", "10:00:00", "11:00:00"),
	}))
	assert.False(t, kafka.ShouldRetry(err, 0, 3))
}

type staticSource struct {
	bookings []*model.Booking
	err      error
}

func (s *staticSource) Find(context.Context, model.BookingFilter, int, int64) ([]*model.Booking, error) {
	return s.bookings, s.err
}

func TestProjector_Hydrate(t *testing.T) {
	idx := index.NewIndex()
	p := New(idx, quietLogger())

	stale := booking("stale", "R101", "08:00:00", "09:00:00")
	idx.Put(&stale)

	b1 := booking("b1", "R101", "10:00:00", "11:00:00")
	b2 := booking("b2", "R202", "10:00:00", "11:00:00")
	require.NoError(t, p.Hydrate(context.Background(), &staticSource{bookings: []*model.Booking{&b1, &b2}}))

	assert.Equal(t, 2, idx.Len())
	_, ok := idx.Get("stale")
	assert.False(t, ok)

	err := p.Hydrate(context.Background(), &staticSource{err: errors.New("mongo down")})
	assert.Error(t, err)
	assert.Equal(t, 2, idx.Len(), "failed hydration keeps the previous content")
}

func TestProjector_RunResyncStopsOnCancel(t *testing.T) {
	idx := index.NewIndex()
	p := New(idx, quietLogger())
	b1 := booking("b1", "R101", "10:00:00", "11:00:00")

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		p.RunResync(ctx, &staticSource{bookings: []*model.Booking{&b1}}, 5*time.Millisecond)
		close(done)
	}()

	require.Eventually(t, func() bool { return idx.Len() == 1 }, time.Second, 5*time.Millisecond)
	cancel()
	<-done
}
