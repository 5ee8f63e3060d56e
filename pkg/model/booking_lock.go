package model

import "time"

// BookingLock is an advisory lock held across validate+commit for one
// (room, date) or (user, date) scope. The _id is the scope key, so a second
// holder fails with a duplicate key error.
type BookingLock struct {
	ID        string    `bson:"_id" json:"id"`
	Owner     string    `bson:"owner" json:"owner"`
	ExpiresAt time.Time `bson:"expires_at" json:"expires_at"`
	CreatedAt time.Time `bson:"created_at" json:"created_at"`
}
