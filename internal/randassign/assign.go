package randassign

import (
	"fmt"
	"maps"
	"slices"
)

// DelayGroup is the waiting period assigned before a follow-up session.
type DelayGroup string

const (
	DelayShort DelayGroup = "short"
	DelayLong  DelayGroup = "long"
)

// KeyMapping maps an input key to the semantic label it reports, e.g. "p" -> "smaller".
type KeyMapping map[string]string

// KeyFor returns the key bound to label, or "" if none is.
func (m KeyMapping) KeyFor(label string) string {
	for _, k := range slices.Sorted(maps.Keys(m)) {
		if m[k] == label {
			return k
		}
	}
	return ""
}

// Options enumerates the choices available to Assign. Empty KeyMappings,
// TrialOrders or DelayGroups leave the matching Assignment field unset.
type Options struct {
	KeyMappings []KeyMapping
	TrialOrders [][]string

	// Counterbalance is the number of counterbalance groups C. Zero disables
	// counterbalancing and the assigned group is always 0.
	Counterbalance int

	DelayGroups []DelayGroup
}

// Assignment holds the per-session parameters drawn by Assign.
type Assignment struct {
	KeyMapping     KeyMapping `json:"keyBindings,omitempty"`
	TrialOrder     []string   `json:"trialOrder,omitempty"`
	Counterbalance int        `json:"counterbalance"`
	DelayGroup     DelayGroup `json:"delayGroup,omitempty"`
}

// Assign draws one element from each option set independently. The returned
// mapping and order are copies; opts is never mutated.
func Assign(src Source, opts Options) (Assignment, error) {
	var a Assignment

	if len(opts.KeyMappings) > 0 {
		km, err := Choose(src, opts.KeyMappings)
		if err != nil {
			return a, fmt.Errorf("key mapping: %w", err)
		}
		a.KeyMapping = maps.Clone(km)
	}

	if len(opts.TrialOrders) > 0 {
		order, err := Choose(src, opts.TrialOrders)
		if err != nil {
			return a, fmt.Errorf("trial order: %w", err)
		}
		a.TrialOrder = slices.Clone(order)
	}

	if opts.Counterbalance < 0 {
		return a, fmt.Errorf("counterbalance cardinality %d: must be >= 0", opts.Counterbalance)
	}
	if opts.Counterbalance > 0 {
		a.Counterbalance = src.IntN(opts.Counterbalance)
	}

	if len(opts.DelayGroups) > 0 {
		g, err := Choose(src, opts.DelayGroups)
		if err != nil {
			return a, fmt.Errorf("delay group: %w", err)
		}
		a.DelayGroup = g
	}

	return a, nil
}
