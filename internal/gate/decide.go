package gate

import (
	"fmt"
	"maps"
	"slices"
	"time"

	"github.com/abhisek/trialgate/internal/accesscode"
	"github.com/abhisek/trialgate/internal/randassign"
)

// Kind names a terminal branch.
type Kind string

const (
	KindFail      Kind = "fail"
	KindPassShort Kind = "pass-short"
	KindPassLong  Kind = "pass-long"
)

// Passed reports whether k is a passing branch.
func (k Kind) Passed() bool {
	return k == KindPassShort || k == KindPassLong
}

// Policy configures the end-of-sequence decision.
type Policy struct {
	// Threshold is the minimum accuracy every condition must reach.
	Threshold float64

	// ShortOffset and LongOffset delay the start of the minted window from
	// the decision time for the short and long delay groups.
	ShortOffset time.Duration
	LongOffset  time.Duration

	// Window is the length of the minted window.
	Window time.Duration
}

// DefaultPolicy returns the deployed threshold with a 10 minute short
// delay, a 2 day long delay and a 24 hour window.
func DefaultPolicy() Policy {
	return Policy{
		Threshold:   0.8,
		ShortOffset: 10 * time.Minute,
		LongOffset:  2 * 24 * time.Hour,
		Window:      24 * time.Hour,
	}
}

// Validate reports policy errors.
func (p Policy) Validate() error {
	if p.Threshold < 0 || p.Threshold > 1 {
		return fmt.Errorf("threshold %v outside [0, 1]", p.Threshold)
	}
	if p.ShortOffset < 0 || p.LongOffset < 0 {
		return fmt.Errorf("offsets must not be negative")
	}
	if p.Window <= 0 {
		return fmt.Errorf("window must be positive")
	}
	return nil
}

// Outcome is the selected branch. Code, Start and End are set only for
// passing branches.
type Outcome struct {
	Kind     Kind               `json:"kind"`
	Accuracy map[string]float64 `json:"accuracy"`
	Code     string             `json:"code,omitempty"`
	Start    time.Time          `json:"windowStart,omitzero"`
	End      time.Time          `json:"windowEnd,omitzero"`
}

// TagFor returns the return-session tag minted for a delay group.
func TagFor(group randassign.DelayGroup) (accesscode.Tag, error) {
	switch group {
	case randassign.DelayShort:
		return accesscode.TagShort, nil
	case randassign.DelayLong:
		return accesscode.TagLong, nil
	}
	return "", fmt.Errorf("unknown delay group %q", group)
}

// GroupFor returns the delay group a return-session tag stands for.
func GroupFor(tag accesscode.Tag) (randassign.DelayGroup, bool) {
	switch tag {
	case accesscode.TagShort:
		return randassign.DelayShort, true
	case accesscode.TagLong:
		return randassign.DelayLong, true
	}
	return "", false
}

// Decide selects exactly one branch. The subject passes when every
// condition reaches the threshold; a pass mints a code from codec whose
// window opens after the group's offset. When the code cannot be minted
// the passing outcome is still returned, without a code, with ErrMint.
func Decide(p Policy, accuracy map[string]float64, group randassign.DelayGroup, codec *accesscode.Codec, now time.Time) (Outcome, error) {
	if err := p.Validate(); err != nil {
		return Outcome{}, fmt.Errorf("gate policy: %w", err)
	}
	if len(accuracy) == 0 {
		return Outcome{}, fmt.Errorf("%w: no accuracies", ErrEmptyCondition)
	}

	out := Outcome{Kind: KindFail, Accuracy: maps.Clone(accuracy)}
	for _, c := range slices.Sorted(maps.Keys(accuracy)) {
		if accuracy[c] < p.Threshold {
			return out, nil
		}
	}

	tag, err := TagFor(group)
	if err != nil {
		return Outcome{}, err
	}
	offset := p.ShortOffset
	out.Kind = KindPassShort
	if group == randassign.DelayLong {
		offset = p.LongOffset
		out.Kind = KindPassLong
	}

	start := now.Add(offset)
	end := start.Add(p.Window)
	code, err := codec.Encode(start, end, tag)
	if err != nil {
		return out, fmt.Errorf("%w: return code: %w", ErrMint, err)
	}
	out.Code = code
	out.Start = start.In(codec.Location).Truncate(time.Minute)
	out.End = end.In(codec.Location).Truncate(time.Minute)
	return out, nil
}

// Decide computes the gate's accuracies and selects a branch.
func (g *Gate) Decide(p Policy, group randassign.DelayGroup, codec *accesscode.Codec, now time.Time) (Outcome, error) {
	acc, err := g.Accuracies()
	if err != nil {
		return Outcome{}, err
	}
	return Decide(p, acc, group, codec, now)
}
