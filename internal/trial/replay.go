package trial

import (
	"sort"
	"time"
)

// Responder produces the inputs a simulated subject gives to a presented
// stimulus. Returned events must carry At >= onset.
type Responder func(show ShowStimulus, onset time.Time) []Event

// Runner is anything driven like a Sequencer.
type Runner interface {
	Start(now time.Time) ([]Effect, error)
	Handle(ev Event) ([]Effect, error)
	Done() bool
}

// Replay drives r to completion on a virtual clock starting at start.
// Scheduled timers fire at their due time; responder inputs are merged in
// by timestamp, timers first on ties. It returns every effect in order.
// Replay stops early, with r not done, if no timer or input remains, as
// happens for click trials that never receive a click.
func Replay(r Runner, start time.Time, respond Responder) ([]Effect, error) {
	type queued struct {
		at    time.Time
		order int
		ev    Event
	}

	var (
		queue []queued
		all   []Effect
		seqNo int
	)
	push := func(at time.Time, ev Event) {
		queue = append(queue, queued{at: at, order: seqNo, ev: ev})
		seqNo++
	}
	absorb := func(now time.Time, effects []Effect) {
		all = append(all, effects...)
		for _, e := range effects {
			switch e := e.(type) {
			case ScheduleTimer:
				due := now.Add(e.After)
				push(due, TimerElapsed{Timer: e.Timer, At: due})
			case ShowStimulus:
				if respond == nil {
					continue
				}
				for _, in := range respond(e, now) {
					push(EventTime(in), in)
				}
			}
		}
	}

	effects, err := r.Start(start)
	if err != nil {
		return nil, err
	}
	absorb(start, effects)

	for !r.Done() && len(queue) > 0 {
		sort.SliceStable(queue, func(i, j int) bool {
			a, b := queue[i], queue[j]
			if !a.at.Equal(b.at) {
				return a.at.Before(b.at)
			}
			_, aTimer := a.ev.(TimerElapsed)
			_, bTimer := b.ev.(TimerElapsed)
			if aTimer != bTimer {
				return aTimer
			}
			return a.order < b.order
		})
		next := queue[0]
		queue = queue[1:]

		effects, err := r.Handle(next.ev)
		if err != nil {
			return all, err
		}
		absorb(next.at, effects)
	}
	return all, nil
}

// EventTime returns the timestamp an event carries.
func EventTime(ev Event) time.Time {
	switch ev := ev.(type) {
	case TimerElapsed:
		return ev.At
	case KeyPressed:
		return ev.At
	case Clicked:
		return ev.At
	}
	return time.Time{}
}
