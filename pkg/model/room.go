package model

import "time"

type Room struct {
	ID        string    `json:"id" bson:"_id"`
	Name      string    `json:"name" bson:"name" validate:"required,min=1,max=100"`
	Capacity  int       `json:"capacity" bson:"capacity" validate:"required,min=1,max=10000"`
	Floor     int       `json:"floor" bson:"floor" validate:"min=-20,max=500"`
	CreatedAt time.Time `json:"created_at" bson:"created_at"`
	UpdatedAt time.Time `json:"updated_at" bson:"updated_at"`
}

type RoomUpdate struct {
	Name     *string `json:"name,omitempty" validate:"omitempty,min=1,max=100"`
	Capacity *int    `json:"capacity,omitempty" validate:"omitempty,min=1,max=10000"`
	Floor    *int    `json:"floor,omitempty" validate:"omitempty,min=-20,max=500"`
}

// RoomFilter holds the optional room narrowing filters. A nil field does not
// filter.
type RoomFilter struct {
	Floor       *int
	MinCapacity *int
	// Search matches a case-insensitive substring of the room name.
	Search string
}

// RoomDetail is a room plus, when a window was asked for, whether the room
// is free for it.
type RoomDetail struct {
	*Room
	IsAvailable *bool `json:"is_available,omitempty"`
}
