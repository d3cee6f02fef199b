package castrove

import (
	"errors"
	"fmt"
)

// ErrNotFound is returned when a workflow or run id does not exist.
var ErrNotFound = errors.New("not found")

// ErrInFlight signals a scheduling conflict: the workflow is already being
// executed. Ticks skip it silently; it is never surfaced to the user.
var ErrInFlight = errors.New("workflow already in flight")

// ValidationError describes a bad or missing workflow field. It is surfaced
// to the assistant layer verbatim and never retried.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

// AsValidation unwraps err into a *ValidationError if it is one.
func AsValidation(err error) (*ValidationError, bool) {
	var ve *ValidationError
	if errors.As(err, &ve) {
		return ve, true
	}
	return nil, false
}
