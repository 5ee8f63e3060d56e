package errors

import "errors"

var (
	ErrNotFound = errors.New("booking not found")

	ErrInvalidWindow = errors.New("invalid booking window")

	ErrRoomConflict = errors.New("room is already booked for an overlapping window")

	ErrUserDoubleBooking = errors.New("user already has an overlapping booking")

	ErrLockContention = errors.New("booking scope is locked by another writer")

	ErrDuplicateID = errors.New("booking id already exists")
)
