package models

import (
	"errors"
	"fmt"
)

// Sentinel errors for request validation.
var (
	ErrNoSeeds             = errors.New("at least one person id is required")
	ErrInvalidPersonID     = errors.New("person id must be a positive integer")
	ErrInvalidRelationType = errors.New("invalid relation type")
	ErrDepthOutOfRange     = errors.New("depth out of range")
	ErrTooManySeeds        = errors.New("too many person ids")
)

// ErrPersonNotFound is returned when a seed person does not exist in BIOG_MAIN.
var ErrPersonNotFound = errors.New("person not found")

// ErrNoPath is returned when two persons are not connected within the search bound.
var ErrNoPath = errors.New("no path found")

// PersonNotFoundError wraps ErrPersonNotFound with the offending id.
func PersonNotFoundError(id int64) error {
	return fmt.Errorf("person %d: %w", id, ErrPersonNotFound)
}

// ErrFieldOutOfRange returns an error indicating a numeric field is outside [lo, hi].
func ErrFieldOutOfRange(field string, lo, hi int) error {
	return fmt.Errorf("%s must be between %d and %d: %w", field, lo, hi, ErrDepthOutOfRange)
}
