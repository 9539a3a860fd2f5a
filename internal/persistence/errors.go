package persistence

import "errors"

var (
	// ErrNotFound is returned when the requested record does not exist.
	ErrNotFound = errors.New("persistence: not found")
	// ErrDuplicate is returned when a unique constraint rejects a write.
	ErrDuplicate = errors.New("persistence: duplicate record")
	// ErrConstraintViolation is returned when a CHECK constraint rejects a write.
	ErrConstraintViolation = errors.New("persistence: constraint violation")
	// ErrForeignKeyViolation is returned when a referenced row does not exist.
	ErrForeignKeyViolation = errors.New("persistence: foreign key violation")
	// ErrOverlap is returned when an active reservation already occupies part of
	// the requested court interval.
	ErrOverlap = errors.New("persistence: reservation overlap")
	// ErrInvalidTransition is returned when storage refuses a status change.
	ErrInvalidTransition = errors.New("persistence: invalid status transition")
	// ErrCapacityExceeded is returned when an event has no free places left.
	ErrCapacityExceeded = errors.New("persistence: capacity exceeded")
)
