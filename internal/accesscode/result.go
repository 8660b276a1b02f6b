package accesscode

import (
	"fmt"
	"time"
)

// Status is the validity classification of a decoded code.
type Status int

const (
	StatusMalformed Status = iota
	StatusInvalidDates
	StatusNotYetValid
	StatusExpired
	StatusValid
)

func (s Status) String() string {
	switch s {
	case StatusMalformed:
		return "malformed"
	case StatusInvalidDates:
		return "invalid_dates"
	case StatusNotYetValid:
		return "not_yet_valid"
	case StatusExpired:
		return "expired"
	case StatusValid:
		return "valid"
	}
	return fmt.Sprintf("status(%d)", int(s))
}

// Result is the outcome of Decode. Start and End are set only for
// NotYetValid, Expired and Valid; Family and Tag are empty when Malformed.
type Result struct {
	Status Status
	Family string
	Tag    Tag
	Start  time.Time
	End    time.Time
}

// Valid reports whether the code may be used now.
func (r Result) Valid() bool {
	return r.Status == StatusValid
}

// Err maps the classification onto the error taxonomy. It returns nil for
// a valid code.
func (r Result) Err() error {
	switch r.Status {
	case StatusValid:
		return nil
	case StatusInvalidDates:
		return ErrInvalidDates
	case StatusNotYetValid:
		return &TemporalError{Kind: ErrNotYetValid, Start: r.Start, End: r.End}
	case StatusExpired:
		return &TemporalError{Kind: ErrExpired, Start: r.Start, End: r.End}
	}
	return ErrMalformed
}

// Message is the text shown to the subject. Rejections of malformed codes
// and invalid dates never reveal timestamps.
func (r Result) Message() string {
	switch r.Status {
	case StatusNotYetValid:
		return fmt.Sprintf("This code is only valid for use between %s and %s. Please come back soon!",
			FormatWindowTime(r.Start), FormatWindowTime(r.End))
	case StatusExpired:
		return "This code expired on " + FormatWindowTime(r.End)
	case StatusValid:
		return "Code accepted."
	}
	return "Invalid code. Please enter a valid code."
}

// FormatWindowTime renders t as "MM/DD/YYYY at HH:MM" with a one-based month.
func FormatWindowTime(t time.Time) string {
	return t.Format("01/02/2006 at 15:04")
}
