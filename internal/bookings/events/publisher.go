package events

import (
	"context"
	"roombook/pkg/kafka"
	"roombook/pkg/model"
	"time"
)

const (
	SchemaVersion = "1"
	Source        = "roombook-bookings"
)

// Publisher announces committed admissions and cancellations.
type Publisher interface {
	Publish(ctx context.Context, event model.BookingEvent) error
}

// MessagePublisher is satisfied by *kafka.Producer.
type MessagePublisher interface {
	Publish(ctx context.Context, msg kafka.Message) error
}

type kafkaPublisher struct {
	producer MessagePublisher
}

// NewKafkaPublisher keys every event by booking id so all events of one
// booking land on the same partition in commit order.
func NewKafkaPublisher(producer MessagePublisher) Publisher {
	return &kafkaPublisher{producer: producer}
}

func (p *kafkaPublisher) Publish(ctx context.Context, event model.BookingEvent) error {
	msg, err := EncodeEvent(event)
	if err != nil {
		return err
	}
	return p.producer.Publish(ctx, msg)
}

// EncodeEvent builds the wire message for a booking event.
func EncodeEvent(event model.BookingEvent) (kafka.Message, error) {
	if event.OccurredAt.IsZero() {
		event.OccurredAt = time.Now().UTC()
	}
	return kafka.NewMessage().
		WithKey(event.Booking.ID).
		WithValue(event).
		WithEventType(event.Type).
		WithSchemaVersion(SchemaVersion).
		WithSource(Source).
		WithTimestamp(event.OccurredAt).
		Build()
}

type noopPublisher struct{}

// NewNoopPublisher drops every event. Used when Kafka is disabled.
func NewNoopPublisher() Publisher {
	return noopPublisher{}
}

func (noopPublisher) Publish(context.Context, model.BookingEvent) error {
	return nil
}
