// Package projector keeps a read-only availability index in step with the
// booking event stream.
package projector

import (
	"context"
	"fmt"
	"roombook/internal/availability/index"
	"roombook/pkg/kafka"
	"roombook/pkg/logger"
	"roombook/pkg/model"
	"time"
)

// BookingSource is satisfied by the bookings repository.
type BookingSource interface {
	Find(ctx context.Context, filter model.BookingFilter, limit int, offset int64) ([]*model.Booking, error)
}

type Projector struct {
	index *index.Index
	log   *logger.Logger
}

func New(idx *index.Index, log *logger.Logger) *Projector {
	return &Projector{index: idx, log: log}
}

// Apply folds one event into the index. Applying the same event twice has
// no further effect.
func (p *Projector) Apply(event model.BookingEvent) error {
	if event.Booking.ID == "" {
		return fmt.Errorf("booking event %q has no booking id", event.Type)
	}

	switch event.Type {
	case model.EventBookingCreated, model.EventBookingUpdated:
		booking := event.Booking
		p.index.Put(&booking)
	case model.EventBookingCancelled:
		p.index.Remove(event.Booking.ID)
	default:
		return fmt.Errorf("unknown booking event type %q", event.Type)
	}
	return nil
}

// HandleMessage is the Kafka handler for the bookings topic. Malformed
// events are permanent failures and end up on the DLQ.
func (p *Projector) HandleMessage(_ context.Context, msg kafka.Message) error {
	var event model.BookingEvent
	if err := msg.DecodeValue(&event); err != nil {
		return kafka.NewPermanentError("failed to decode booking event", err).
			WithDetail("offset", msg.Offset)
	}
	if err := p.Apply(event); err != nil {
		return kafka.NewPermanentError("failed to apply booking event", err).
			WithDetail("event_id", msg.GetEventID())
	}

	p.log.Debug("Booking event applied",
		"type", event.Type,
		"booking_id", event.Booking.ID,
		"room_id", event.Booking.RoomID,
	)
	return nil
}

// Hydrate replaces the index content with every stored booking.
func (p *Projector) Hydrate(ctx context.Context, source BookingSource) error {
	bookings, err := source.Find(ctx, model.BookingFilter{}, 0, 0)
	if err != nil {
		return fmt.Errorf("failed to load bookings: %w", err)
	}
	p.index.Load(bookings)
	p.log.Info("Availability index hydrated", "bookings", len(bookings))
	return nil
}

// RunResync hydrates the index every interval until ctx is cancelled. It
// repairs drift from events missed while the consumer was down.
func (p *Projector) RunResync(ctx context.Context, source BookingSource, interval time.Duration) {
	if interval <= 0 {
		return
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := p.Hydrate(ctx, source); err != nil && ctx.Err() == nil {
				p.log.Error("Availability resync failed", "error", err)
			}
		}
	}
}
