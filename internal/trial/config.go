package trial

import (
	"fmt"
	"time"

	"github.com/abhisek/trialgate/internal/randassign"
)

// Config holds the per-deployment differences between sequences.
type Config struct {
	Input InputKind

	// LeadIn is the sequence of pauses before the first trial. Each step
	// after the first follows a visual change.
	LeadIn []time.Duration

	// StimulusVisible is how long the stimulus stays on screen after onset.
	// Zero keeps it up until the input window closes.
	StimulusVisible time.Duration

	// AdvanceAfter closes the input window this long after onset whether or
	// not a response arrived. Zero closes it on the first qualifying input
	// and no fallback timeout exists.
	AdvanceAfter time.Duration

	// ISI is the unarmed blank interval after the input window closes.
	ISI time.Duration

	// Keys maps the accepted keys to the labels they report. Key trials
	// accept exactly two keys.
	Keys randassign.KeyMapping

	// TrackAccuracy scores key responses against the trial's Condition.
	TrackAccuracy bool
}

const (
	DefaultLeadIn          = 1500 * time.Millisecond
	DefaultStimulusVisible = 200 * time.Millisecond
	DefaultAdvanceAfter    = 1800 * time.Millisecond
	DefaultClickISI        = 500 * time.Millisecond
)

// KeyConfig returns the timing of the two-key size judgment task.
func KeyConfig(keys randassign.KeyMapping) Config {
	return Config{
		Input:           InputKey,
		LeadIn:          []time.Duration{DefaultLeadIn},
		StimulusVisible: DefaultStimulusVisible,
		AdvanceAfter:    DefaultAdvanceAfter,
		Keys:            keys,
		TrackAccuracy:   true,
	}
}

// ClickConfig returns the timing of the four-image choice task.
func ClickConfig() Config {
	return Config{
		Input: InputClick,
		ISI:   DefaultClickISI,
	}
}

// Validate reports configuration errors.
func (c Config) Validate() error {
	for i, d := range c.LeadIn {
		if d <= 0 {
			return fmt.Errorf("lead-in step %d: duration must be positive", i)
		}
	}
	if c.StimulusVisible < 0 || c.AdvanceAfter < 0 || c.ISI < 0 {
		return fmt.Errorf("durations must not be negative")
	}
	if c.AdvanceAfter > 0 && c.StimulusVisible > c.AdvanceAfter {
		return fmt.Errorf("stimulus visible %s exceeds advance %s", c.StimulusVisible, c.AdvanceAfter)
	}

	switch c.Input {
	case InputKey:
		if len(c.Keys) != 2 {
			return fmt.Errorf("key trials need exactly 2 accepted keys, got %d", len(c.Keys))
		}
	case InputClick:
		if len(c.Keys) != 0 {
			return fmt.Errorf("click trials accept no keys")
		}
		if c.TrackAccuracy {
			return fmt.Errorf("accuracy tracking requires key trials")
		}
	default:
		return fmt.Errorf("unknown input kind %d", c.Input)
	}
	return nil
}
