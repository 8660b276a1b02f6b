package trial

import "time"

// InputKind selects how a trial is answered.
type InputKind int

const (
	InputKey InputKind = iota
	InputClick
)

func (k InputKind) String() string {
	if k == InputClick {
		return "click"
	}
	return "key"
}

// ResponseKind identifies what kind of response a trial recorded.
type ResponseKind string

const (
	ResponseNone  ResponseKind = "noresponse"
	ResponseKey   ResponseKind = "key"
	ResponseClick ResponseKind = "click"
)

// NoResponseRT is the reaction time recorded for a trial without a response.
const NoResponseRT int64 = -1

// Stimulus is what one trial presents: a single image or a layout of up
// to four images shown together.
type Stimulus struct {
	ID     string   `json:"stimulus"`
	Assets []string `json:"assets"`

	// Condition is the tracked label used for scoring, empty if untracked.
	Condition string `json:"condition,omitempty"`
}

// Trial is the record of one presentation. It is written once, by the first
// qualifying input, and never changes after it is committed.
type Trial struct {
	Index          int          `json:"index"`
	Stimulus       Stimulus     `json:"stimulus"`
	ResponseKind   ResponseKind `json:"responseKind"`
	Response       string       `json:"resp"`
	ReactionTimeMs int64        `json:"rt"`
	Correct        *bool        `json:"correct,omitempty"`
}

// Answered reports whether the trial recorded a response.
func (t Trial) Answered() bool {
	return t.ResponseKind != ResponseNone
}

// State is a sequencer state.
type State int

const (
	StateIdle State = iota
	StateLeadIn
	StatePresenting
	StateInputWindow
	StateInterStimulus
	StateDone
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateLeadIn:
		return "lead-in"
	case StatePresenting:
		return "presenting"
	case StateInputWindow:
		return "input-window"
	case StateInterStimulus:
		return "inter-stimulus"
	case StateDone:
		return "done"
	}
	return "unknown"
}

// TimerKind names the scheduled transitions.
type TimerKind int

const (
	TimerLeadIn TimerKind = iota
	TimerHideStimulus
	TimerAdvance
	TimerISI
)

// Timer identifies one scheduled transition. Step is the lead-in step for
// TimerLeadIn and the trial index otherwise.
type Timer struct {
	Kind TimerKind
	Step int
}

// Event is an input to the sequencer.
type Event interface{ isEvent() }

// TimerElapsed reports that a scheduled Timer fired at At.
type TimerElapsed struct {
	Timer Timer
	At    time.Time
}

// KeyPressed reports a key press.
type KeyPressed struct {
	Key string
	At  time.Time
}

// Clicked reports a click on displayed element Element (its asset index).
type Clicked struct {
	Element int
	At      time.Time
}

func (TimerElapsed) isEvent() {}
func (KeyPressed) isEvent()   {}
func (Clicked) isEvent()      {}

// Effect is an instruction from the sequencer to its driver.
type Effect interface{ isEffect() }

// ScheduleTimer asks the driver to deliver TimerElapsed{Timer} after After.
type ScheduleTimer struct {
	Timer Timer
	After time.Duration
}

// ShowLeadIn displays lead-in step Step.
type ShowLeadIn struct{ Step int }

// ShowStimulus displays trial Index's stimulus.
type ShowStimulus struct {
	Index    int
	Stimulus Stimulus
}

// HideStimulus hides the stimulus of trial Index; its input stays armed.
type HideStimulus struct{ Index int }

// ShowBlank clears the display between trials.
type ShowBlank struct{ Index int }

// Committed reports a finalized trial.
type Committed struct{ Trial Trial }

// Finished reports the end of the sequence with every recorded trial.
type Finished struct{ Trials []Trial }

func (ScheduleTimer) isEffect() {}
func (ShowLeadIn) isEffect()    {}
func (ShowStimulus) isEffect()  {}
func (HideStimulus) isEffect()  {}
func (ShowBlank) isEffect()     {}
func (Committed) isEffect()     {}
func (Finished) isEffect()      {}
