package session

import (
	"context"
	"fmt"
	"slices"
	"time"

	"github.com/abhisek/trialgate/internal/gate"
	"github.com/abhisek/trialgate/internal/randassign"
	"github.com/abhisek/trialgate/internal/trial"
)

// Phase identifies which of the three study sessions is being run.
type Phase string

const (
	// PhaseEncode is the first session: key-press size judgments scored by
	// the accuracy gate.
	PhaseEncode Phase = "encode"

	// PhaseReturn is the follow-up memory test: four-image choice trials,
	// entered with a return-session code.
	PhaseReturn Phase = "return"

	// PhaseCheckIn is the late check-in, entered with a check-in code.
	PhaseCheckIn Phase = "checkin"
)

// Phases lists every phase in study order.
func Phases() []Phase {
	return []Phase{PhaseEncode, PhaseReturn, PhaseCheckIn}
}

// ParsePhase resolves a phase name.
func ParsePhase(s string) (Phase, error) {
	p := Phase(s)
	if slices.Contains(Phases(), p) {
		return p, nil
	}
	return "", fmt.Errorf("unknown phase %q (want encode, return or checkin)", s)
}

// NeedsEntryCode reports whether the phase is gated by an access code.
func (p Phase) NeedsEntryCode() bool {
	return p == PhaseReturn || p == PhaseCheckIn
}

// Record is the plain-data session result handed to the submitter. It is
// created at session start and owns every committed trial.
type Record struct {
	ID        string    `json:"id"`
	Phase     Phase     `json:"phase"`
	WorkerID  string    `json:"workerId,omitempty"`
	StartedAt time.Time `json:"startTime"`

	randassign.Assignment

	Trials   []trial.Trial         `json:"trialData"`
	Accuracy map[string]gate.Tally `json:"accuracy,omitempty"`
	Outcome  *gate.Outcome         `json:"outcome,omitempty"`

	EntryCode  string    `json:"entrycode,omitempty"`
	ExitCode   string    `json:"exitcode,omitempty"`
	MintError  string    `json:"mintError,omitempty"`
	Comments   string    `json:"comments,omitempty"`
	SubmitTime time.Time `json:"submitTime,omitzero"`
}

// Submitted reports whether the record has been wrapped up.
func (r Record) Submitted() bool { return !r.SubmitTime.IsZero() }

// Submitter is the external collaborator that receives a finished record.
type Submitter interface {
	Submit(ctx context.Context, rec Record) error
}

// SubmitterFunc adapts a function to Submitter.
type SubmitterFunc func(ctx context.Context, rec Record) error

// Submit calls f.
func (f SubmitterFunc) Submit(ctx context.Context, rec Record) error { return f(ctx, rec) }
