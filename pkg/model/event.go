package model

import "time"

const (
	EventBookingCreated   = "booking.created"
	EventBookingUpdated   = "booking.updated"
	EventBookingCancelled = "booking.cancelled"
)

// BookingEvent is published after every committed admission or cancellation.
// Previous is set on updates so consumers can drop the old slot.
type BookingEvent struct {
	Type       string    `json:"type"`
	Booking    Booking   `json:"booking"`
	Previous   *Booking  `json:"previous,omitempty"`
	OccurredAt time.Time `json:"occurred_at"`
}
