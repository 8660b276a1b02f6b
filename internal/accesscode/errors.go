package accesscode

import (
	"errors"
	"fmt"
	"time"
)

var (
	// ErrMalformed means the candidate failed the structural check.
	ErrMalformed = errors.New("accesscode: malformed code")

	// ErrInvalidDates means a timestamp field is out of range, is not a real
	// calendar date-time, or the start is after the end.
	ErrInvalidDates = errors.New("accesscode: invalid dates")

	// ErrNotYetValid and ErrExpired classify a well-formed code outside its window.
	ErrNotYetValid = errors.New("accesscode: code not yet valid")
	ErrExpired     = errors.New("accesscode: code expired")

	// ErrUnknownTag is returned by Encode for a tag the family does not carry.
	ErrUnknownTag = errors.New("accesscode: unknown tag")
)

// TemporalError reports a well-formed code evaluated outside its window.
// Kind is ErrNotYetValid or ErrExpired.
type TemporalError struct {
	Kind  error
	Start time.Time
	End   time.Time
}

func (e *TemporalError) Error() string {
	if e.Kind == ErrExpired {
		return fmt.Sprintf("%v: ended %s", e.Kind, e.End.Format(time.RFC3339))
	}
	return fmt.Sprintf("%v: window %s to %s", e.Kind, e.Start.Format(time.RFC3339), e.End.Format(time.RFC3339))
}

func (e *TemporalError) Unwrap() error { return e.Kind }
