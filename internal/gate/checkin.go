package gate

import (
	"fmt"
	"time"

	"github.com/abhisek/trialgate/internal/accesscode"
	"github.com/abhisek/trialgate/internal/randassign"
)

// NoExitCode is recorded for subjects who get no follow-up code.
const NoExitCode = "none"

// CheckInPolicy sets when the follow-up check-in window opens after a
// return session, and how long it stays open.
type CheckInPolicy struct {
	StartAfter time.Duration
	Window     time.Duration
}

// DefaultCheckInPolicy opens the check-in window 60 hours after the return
// session and keeps it open for 24 hours.
func DefaultCheckInPolicy() CheckInPolicy {
	return CheckInPolicy{StartAfter: 60 * time.Hour, Window: 24 * time.Hour}
}

// Exit is the code handed out at the end of a return session.
type Exit struct {
	Code  string    `json:"code"`
	Start time.Time `json:"windowStart,omitzero"`
	End   time.Time `json:"windowEnd,omitzero"`
}

// Issued reports whether a real code was minted.
func (e Exit) Issued() bool { return e.Code != "" && e.Code != NoExitCode }

// ExitCode mints the check-in code for the short delay group. The long
// group gets NoExitCode, as does a short group whose window cannot be
// minted (returned with ErrMint).
func (p CheckInPolicy) ExitCode(group randassign.DelayGroup, codec *accesscode.Codec, now time.Time) (Exit, error) {
	switch group {
	case randassign.DelayLong:
		return Exit{Code: NoExitCode}, nil
	case randassign.DelayShort:
	default:
		return Exit{}, fmt.Errorf("unknown delay group %q", group)
	}
	if p.StartAfter < 0 || p.Window <= 0 {
		return Exit{}, fmt.Errorf("check-in policy: start %s window %s", p.StartAfter, p.Window)
	}

	start := now.Add(p.StartAfter)
	end := start.Add(p.Window)
	code, err := codec.Encode(start, end, accesscode.TagCheckIn)
	if err != nil {
		return Exit{Code: NoExitCode}, fmt.Errorf("%w: check-in code: %w", ErrMint, err)
	}
	return Exit{
		Code:  code,
		Start: start.In(codec.Location).Truncate(time.Minute),
		End:   end.In(codec.Location).Truncate(time.Minute),
	}, nil
}
