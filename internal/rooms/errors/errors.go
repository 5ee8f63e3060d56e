package errors

import "errors"

var (
	ErrNotFound = errors.New("room not found")

	ErrDuplicateName = errors.New("room name already exists")

	ErrHasBookings = errors.New("room has bookings")
)
