package model

import (
	"time"
)

// Booking is a committed reservation of one room by one user for a window
// on a single day. RoomID and UserID are weak references.
type Booking struct {
	ID        string    `json:"id" bson:"_id"`
	RoomID    string    `json:"room_id" bson:"room_id"`
	UserID    string    `json:"user_id" bson:"user_id"`
	Date      Date      `json:"date" bson:"date"`
	StartTime TimeOfDay `json:"start_time" bson:"start_time"`
	EndTime   TimeOfDay `json:"end_time" bson:"end_time"`
	CreatedAt time.Time `json:"created_at" bson:"created_at"`
	UpdatedAt time.Time `json:"updated_at" bson:"updated_at"`
}

func (b *Booking) Window() Window {
	return Window{Start: b.StartTime, End: b.EndTime}
}

// BookingRequest is the caller supplied input of an admission.
type BookingRequest struct {
	RoomID    string `json:"room_id" validate:"required,max=64"`
	UserID    string `json:"user_id" validate:"required,max=64"`
	Date      string `json:"date" validate:"required,date"`
	StartTime string `json:"start_time" validate:"required,timeofday"`
	EndTime   string `json:"end_time" validate:"required,timeofday"`
}

// BookingUpdate carries the new window of an existing booking. Omitted
// fields keep their current value.
type BookingUpdate struct {
	RoomID    *string `json:"room_id,omitempty" validate:"omitempty,min=1,max=64"`
	Date      *string `json:"date,omitempty" validate:"omitempty,date"`
	StartTime *string `json:"start_time,omitempty" validate:"omitempty,timeofday"`
	EndTime   *string `json:"end_time,omitempty" validate:"omitempty,timeofday"`
}

// BookingFilter narrows booking listings. Zero values mean "any".
type BookingFilter struct {
	RoomID string
	UserID string
	Date   Date
}
