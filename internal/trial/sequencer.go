package trial

import (
	"errors"
	"fmt"
	"slices"
	"time"
)

// ErrIllegalState is returned when the sequencer is driven in a way its
// state machine forbids, such as handling events after Done.
var ErrIllegalState = errors.New("trial: illegal state")

// Scorer receives the correctness of every scored response.
type Scorer interface {
	Record(condition string, correct bool)
}

// noSlot marks the input-listener slot as free.
const noSlot = -1

// Sequencer walks a fixed list of stimuli through
// Idle -> LeadIn -> Presenting -> InputWindow -> InterStimulus -> ... -> Done.
//
// It performs no I/O and never reads the clock: the driver delivers timer and
// input events carrying their own timestamps and carries out the returned
// effects. Only one trial owns the input slot at a time; it is released when
// the trial's window closes, before the next trial is presented.
type Sequencer struct {
	cfg    Config
	queue  []Stimulus
	scorer Scorer

	state    State
	leadStep int
	current  int
	pending  Trial
	onset    time.Time
	answered bool
	slot     int

	trials []Trial
}

// New creates a sequencer in Idle. scorer may be nil when accuracy is not
// tracked.
func New(cfg Config, stimuli []Stimulus, scorer Scorer) (*Sequencer, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("trial config: %w", err)
	}
	if cfg.TrackAccuracy && scorer == nil {
		return nil, fmt.Errorf("trial config: accuracy tracking needs a scorer")
	}
	for i, st := range stimuli {
		if len(st.Assets) == 0 || len(st.Assets) > 4 {
			return nil, fmt.Errorf("stimulus %d: %d assets, want 1 to 4", i, len(st.Assets))
		}
	}
	return &Sequencer{
		cfg:    cfg,
		queue:  slices.Clone(stimuli),
		scorer: scorer,
		state:  StateIdle,
		slot:   noSlot,
		trials: make([]Trial, 0, len(stimuli)),
	}, nil
}

// State returns the current state.
func (s *Sequencer) State() State { return s.state }

// Done reports whether the sequence has finished.
func (s *Sequencer) Done() bool { return s.state == StateDone }

// Current returns the index of the trial being run.
func (s *Sequencer) Current() int { return s.current }

// Len returns the number of configured trials.
func (s *Sequencer) Len() int { return len(s.queue) }

// Config returns the sequencer configuration.
func (s *Sequencer) Config() Config { return s.cfg }

// Armed returns the trial index owning the input slot, if any.
func (s *Sequencer) Armed() (int, bool) {
	return s.slot, s.slot != noSlot
}

// Trials returns a copy of the committed trials in presentation order.
func (s *Sequencer) Trials() []Trial {
	return slices.Clone(s.trials)
}

// Start leaves Idle. It may be called once.
func (s *Sequencer) Start(now time.Time) ([]Effect, error) {
	if s.state != StateIdle {
		return nil, fmt.Errorf("%w: start in %s", ErrIllegalState, s.state)
	}
	if len(s.cfg.LeadIn) == 0 {
		return s.present(0, now)
	}
	s.state = StateLeadIn
	s.leadStep = 0
	return []Effect{
		ShowLeadIn{Step: 0},
		ScheduleTimer{Timer: Timer{Kind: TimerLeadIn, Step: 0}, After: s.cfg.LeadIn[0]},
	}, nil
}

// Handle applies one event. Timers that no longer match the current state
// are ignored, as are inputs while no trial owns the input slot.
func (s *Sequencer) Handle(ev Event) ([]Effect, error) {
	if s.state == StateDone {
		return nil, fmt.Errorf("%w: event %T after done", ErrIllegalState, ev)
	}
	if s.state == StateIdle {
		return nil, fmt.Errorf("%w: event %T before start", ErrIllegalState, ev)
	}

	switch ev := ev.(type) {
	case TimerElapsed:
		return s.handleTimer(ev)
	case KeyPressed:
		return s.handleKey(ev)
	case Clicked:
		return s.handleClick(ev)
	}
	return nil, fmt.Errorf("%w: unknown event %T", ErrIllegalState, ev)
}

func (s *Sequencer) handleTimer(ev TimerElapsed) ([]Effect, error) {
	t := ev.Timer
	switch t.Kind {
	case TimerLeadIn:
		if s.state != StateLeadIn || t.Step != s.leadStep {
			return nil, nil
		}
		next := s.leadStep + 1
		if next < len(s.cfg.LeadIn) {
			s.leadStep = next
			return []Effect{
				ShowLeadIn{Step: next},
				ScheduleTimer{Timer: Timer{Kind: TimerLeadIn, Step: next}, After: s.cfg.LeadIn[next]},
			}, nil
		}
		return s.present(0, ev.At)

	case TimerHideStimulus:
		if s.state != StatePresenting || t.Step != s.current {
			return nil, nil
		}
		s.state = StateInputWindow
		return []Effect{HideStimulus{Index: s.current}}, nil

	case TimerAdvance:
		if !s.windowOpen() || t.Step != s.current {
			return nil, nil
		}
		return s.closeWindow(ev.At)

	case TimerISI:
		if s.state != StateInterStimulus || t.Step != s.current {
			return nil, nil
		}
		return s.present(s.current+1, ev.At)
	}
	return nil, fmt.Errorf("%w: unknown timer kind %d", ErrIllegalState, t.Kind)
}

func (s *Sequencer) handleKey(ev KeyPressed) ([]Effect, error) {
	if s.cfg.Input != InputKey || !s.windowOpen() || s.answered {
		return nil, nil
	}
	label, ok := s.cfg.Keys[ev.Key]
	if !ok {
		return nil, nil
	}

	s.respond(ResponseKey, ev.Key, ev.At)
	if s.cfg.TrackAccuracy && s.pending.Stimulus.Condition != "" {
		correct := label == s.pending.Stimulus.Condition
		s.pending.Correct = &correct
		s.scorer.Record(s.pending.Stimulus.Condition, correct)
	}

	if s.cfg.AdvanceAfter == 0 {
		return s.closeWindow(ev.At)
	}
	return nil, nil
}

func (s *Sequencer) handleClick(ev Clicked) ([]Effect, error) {
	if s.cfg.Input != InputClick || !s.windowOpen() || s.answered {
		return nil, nil
	}
	assets := s.pending.Stimulus.Assets
	if ev.Element < 0 || ev.Element >= len(assets) {
		return nil, nil
	}

	s.respond(ResponseClick, assets[ev.Element], ev.At)
	if s.cfg.AdvanceAfter == 0 {
		return s.closeWindow(ev.At)
	}
	return nil, nil
}

func (s *Sequencer) windowOpen() bool {
	return s.state == StatePresenting || s.state == StateInputWindow
}

func (s *Sequencer) respond(kind ResponseKind, resp string, at time.Time) {
	rt := at.Sub(s.onset).Milliseconds()
	if rt < 0 {
		rt = 0
	}
	s.pending.ResponseKind = kind
	s.pending.Response = resp
	s.pending.ReactionTimeMs = rt
	s.answered = true
}

// present starts trial i, or finishes the sequence when the queue is exhausted.
func (s *Sequencer) present(i int, at time.Time) ([]Effect, error) {
	if i >= len(s.queue) {
		return s.finish(), nil
	}
	if s.slot != noSlot {
		return nil, fmt.Errorf("%w: input slot still held by trial %d", ErrIllegalState, s.slot)
	}

	s.state = StatePresenting
	s.current = i
	s.onset = at
	s.answered = false
	s.slot = i
	s.pending = Trial{
		Index:          i,
		Stimulus:       s.queue[i],
		ResponseKind:   ResponseNone,
		Response:       string(ResponseNone),
		ReactionTimeMs: NoResponseRT,
	}

	effects := []Effect{ShowStimulus{Index: i, Stimulus: s.queue[i]}}
	if s.cfg.StimulusVisible > 0 {
		effects = append(effects, ScheduleTimer{Timer: Timer{Kind: TimerHideStimulus, Step: i}, After: s.cfg.StimulusVisible})
	}
	if s.cfg.AdvanceAfter > 0 {
		effects = append(effects, ScheduleTimer{Timer: Timer{Kind: TimerAdvance, Step: i}, After: s.cfg.AdvanceAfter})
	}
	return effects, nil
}

// closeWindow releases the input slot, commits the pending trial and moves
// to the inter-stimulus blank or straight to the next trial.
func (s *Sequencer) closeWindow(at time.Time) ([]Effect, error) {
	s.slot = noSlot
	// An unanswered tracked trial counts against its condition.
	if !s.answered && s.cfg.TrackAccuracy && s.pending.Stimulus.Condition != "" {
		correct := false
		s.pending.Correct = &correct
		s.scorer.Record(s.pending.Stimulus.Condition, false)
	}
	s.trials = append(s.trials, s.pending)
	effects := []Effect{Committed{Trial: s.pending}}

	if s.cfg.ISI > 0 {
		s.state = StateInterStimulus
		return append(effects,
			ShowBlank{Index: s.current},
			ScheduleTimer{Timer: Timer{Kind: TimerISI, Step: s.current}, After: s.cfg.ISI},
		), nil
	}

	next, err := s.present(s.current+1, at)
	if err != nil {
		return nil, err
	}
	return append(effects, next...), nil
}

func (s *Sequencer) finish() []Effect {
	s.state = StateDone
	return []Effect{Finished{Trials: s.Trials()}}
}
