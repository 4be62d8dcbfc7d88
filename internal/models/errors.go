package models

import (
	"errors"
	"fmt"
)

// ErrInvalidTransition is returned when a status change is not allowed
// from the record's current state.
var ErrInvalidTransition = errors.New("invalid status transition")

func invalidTransition(kind, from, to string) error {
	return fmt.Errorf("%w: %s %s -> %s", ErrInvalidTransition, kind, from, to)
}
