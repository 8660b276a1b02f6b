package stimuli

import (
	"fmt"
	"sort"

	"github.com/abhisek/trialgate/internal/trial"
)

// Exemplars are the four fixed image versions of every stimulus, in
// upper-left, upper-right, lower-left and lower-right layout order.
var Exemplars = []string{"/e1_s1.jpg", "/e1_s2.jpg", "/e2_s1.jpg", "/e2_s2.jpg"}

// SingleImageOrder builds one single-image trial per name, in the given
// order, all showing exemplar.
func (d *Document) SingleImageOrder(order []string, exemplar string) []trial.Stimulus {
	out := make([]trial.Stimulus, 0, len(order))
	for _, name := range order {
		out = append(out, d.single(name, d.StimulusDir+name+exemplar))
	}
	return out
}

// CounterbalancedOrder builds single-image trials in group order. Group g
// shows exemplar (g + group) mod 4, so each counterbalance group rotates
// which image version stands in for each stimulus set.
func (d *Document) CounterbalancedOrder(group int) ([]trial.Stimulus, error) {
	if group < 0 || group >= len(Exemplars) {
		return nil, fmt.Errorf("counterbalance group %d out of range [0, %d)", group, len(Exemplars))
	}
	var out []trial.Stimulus
	for g, names := range d.Groups {
		exemplar := Exemplars[(g+group)%len(Exemplars)]
		for _, name := range names {
			out = append(out, d.single(name, d.StimulusDir+name+exemplar))
		}
	}
	return out, nil
}

// LayoutOrder builds one four-image layout trial per name in group order.
func (d *Document) LayoutOrder() []trial.Stimulus {
	var out []trial.Stimulus
	for _, name := range d.Names() {
		base := d.StimulusDir + name
		assets := make([]string, len(Exemplars))
		for i, e := range Exemplars {
			assets[i] = base + e
		}
		label, _ := d.Label(name)
		out = append(out, trial.Stimulus{ID: base, Assets: assets, Condition: label})
	}
	return out
}

// Assets lists every image version of every stimulus for the preloader.
func (d *Document) Assets() []string {
	var out []string
	for _, name := range d.Names() {
		for _, e := range Exemplars {
			out = append(out, d.StimulusDir+name+e)
		}
	}
	return out
}

func (d *Document) single(name, asset string) trial.Stimulus {
	label, _ := d.Label(name)
	return trial.Stimulus{ID: asset, Assets: []string{asset}, Condition: label}
}

func sortedStrings(s []string) []string {
	sort.Strings(s)
	return s
}
