// Package gate keeps per-condition accuracy tallies and picks the terminal
// branch a subject sees at the end of a sequence.
package gate

import (
	"errors"
	"fmt"
	"slices"
)

// ErrEmptyCondition is returned when accuracy is requested for a condition
// with no scored trials, or for a gate tracking no conditions at all.
var ErrEmptyCondition = errors.New("gate: accuracy over empty condition")

// ErrMint is returned with a decided outcome whose code could not be
// minted, e.g. a window running past the deployment year. The outcome
// returned alongside it is usable; it carries no code.
var ErrMint = errors.New("gate: code not minted")

// Tally is the running (correct, total) count of one condition.
type Tally struct {
	Correct int `json:"correct"`
	Total   int `json:"total"`
}

// Accuracy returns Correct/Total.
func (t Tally) Accuracy() (float64, error) {
	if t.Total == 0 {
		return 0, ErrEmptyCondition
	}
	return float64(t.Correct) / float64(t.Total), nil
}

// Gate accumulates correctness per tracked condition. It satisfies
// trial.Scorer. A Gate is owned by one session and is not safe for
// concurrent use.
type Gate struct {
	order   []string
	tallies map[string]*Tally
}

// New creates a gate tracking the given conditions.
func New(conditions ...string) *Gate {
	g := &Gate{tallies: make(map[string]*Tally)}
	for _, c := range conditions {
		g.track(c)
	}
	return g
}

func (g *Gate) track(condition string) *Tally {
	t, ok := g.tallies[condition]
	if !ok {
		t = &Tally{}
		g.tallies[condition] = t
		g.order = append(g.order, condition)
	}
	return t
}

// Record counts one scored response. A condition not passed to New starts
// being tracked on its first record.
func (g *Gate) Record(condition string, correct bool) {
	t := g.track(condition)
	t.Total++
	if correct {
		t.Correct++
	}
}

// Conditions returns the tracked conditions in the order they were added.
func (g *Gate) Conditions() []string {
	return slices.Clone(g.order)
}

// Tally returns the tally of condition.
func (g *Gate) Tally(condition string) (Tally, bool) {
	t, ok := g.tallies[condition]
	if !ok {
		return Tally{}, false
	}
	return *t, true
}

// Tallies returns a copy of every tally.
func (g *Gate) Tallies() map[string]Tally {
	out := make(map[string]Tally, len(g.tallies))
	for c, t := range g.tallies {
		out[c] = *t
	}
	return out
}

// Accuracies returns the accuracy of every tracked condition. It fails if
// any condition is empty.
func (g *Gate) Accuracies() (map[string]float64, error) {
	if len(g.order) == 0 {
		return nil, fmt.Errorf("%w: no conditions tracked", ErrEmptyCondition)
	}
	out := make(map[string]float64, len(g.order))
	for _, c := range g.order {
		acc, err := g.tallies[c].Accuracy()
		if err != nil {
			return nil, fmt.Errorf("condition %q: %w", c, err)
		}
		out[c] = acc
	}
	return out, nil
}
