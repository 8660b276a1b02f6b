package gate

import (
	"errors"
	"testing"
	"time"

	"github.com/abhisek/trialgate/internal/accesscode"
	"github.com/abhisek/trialgate/internal/randassign"
)

var now = time.Date(2015, time.April, 20, 9, 30, 45, 0, time.UTC)

func returnCodec() *accesscode.Codec {
	return accesscode.New(accesscode.ReturnSession, 2015, time.UTC)
}

func record(g *Gate, condition string, correct, total int) {
	for i := 0; i < total; i++ {
		g.Record(condition, i < correct)
	}
}

func TestTally_Accuracy(t *testing.T) {
	acc, err := Tally{Correct: 3, Total: 4}.Accuracy()
	if err != nil || acc != 0.75 {
		t.Errorf("Accuracy = %v, %v, want 0.75", acc, err)
	}
	if _, err := (Tally{}).Accuracy(); !errors.Is(err, ErrEmptyCondition) {
		t.Errorf("empty tally: err = %v, want ErrEmptyCondition", err)
	}
}

func TestGate_Record(t *testing.T) {
	g := New("smaller", "bigger")
	record(g, "smaller", 2, 3)
	g.Record("other", true)

	if tally, ok := g.Tally("smaller"); !ok || tally != (Tally{Correct: 2, Total: 3}) {
		t.Errorf("smaller = %+v, %v", tally, ok)
	}
	if tally, ok := g.Tally("bigger"); !ok || tally.Total != 0 {
		t.Errorf("bigger = %+v, %v", tally, ok)
	}
	if _, ok := g.Tally("missing"); ok {
		t.Error("untracked condition reported")
	}

	got := g.Conditions()
	want := []string{"smaller", "bigger", "other"}
	if len(got) != len(want) {
		t.Fatalf("Conditions = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("Conditions[%d] = %q, want %q", i, got[i], want[i])
		}
	}

	tallies := g.Tallies()
	tallies["smaller"] = Tally{}
	if tally, _ := g.Tally("smaller"); tally.Total != 3 {
		t.Error("Tallies returned shared state")
	}
}

func TestGate_AccuraciesEmpty(t *testing.T) {
	if _, err := New().Accuracies(); !errors.Is(err, ErrEmptyCondition) {
		t.Errorf("no conditions: err = %v, want ErrEmptyCondition", err)
	}

	g := New("smaller", "bigger")
	record(g, "smaller", 5, 5)
	if _, err := g.Accuracies(); !errors.Is(err, ErrEmptyCondition) {
		t.Errorf("empty bigger: err = %v, want ErrEmptyCondition", err)
	}
}

func TestDecide_Threshold(t *testing.T) {
	tests := []struct {
		name    string
		smaller [2]int
		bigger  [2]int
		group   randassign.DelayGroup
		want    Kind
	}{
		{"both at threshold short", [2]int{8, 10}, [2]int{8, 10}, randassign.DelayShort, KindPassShort},
		{"both at threshold long", [2]int{8, 10}, [2]int{10, 10}, randassign.DelayLong, KindPassLong},
		{"one below", [2]int{7, 10}, [2]int{10, 10}, randassign.DelayShort, KindFail},
		{"other below", [2]int{10, 10}, [2]int{7, 10}, randassign.DelayLong, KindFail},
		{"perfect", [2]int{4, 4}, [2]int{3, 3}, randassign.DelayShort, KindPassShort},
		{"all wrong", [2]int{0, 4}, [2]int{0, 3}, randassign.DelayShort, KindFail},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			g := New("smaller", "bigger")
			record(g, "smaller", tt.smaller[0], tt.smaller[1])
			record(g, "bigger", tt.bigger[0], tt.bigger[1])

			out, err := g.Decide(DefaultPolicy(), tt.group, returnCodec(), now)
			if err != nil {
				t.Fatalf("Decide: %v", err)
			}
			if out.Kind != tt.want {
				t.Errorf("Kind = %q, want %q (accuracy %v)", out.Kind, tt.want, out.Accuracy)
			}
			if out.Kind.Passed() != (out.Code != "") {
				t.Errorf("Kind %q with code %q", out.Kind, out.Code)
			}
		})
	}
}

func TestDecide_MintsReturnCode(t *testing.T) {
	p := DefaultPolicy()
	acc := map[string]float64{"smaller": 0.9, "bigger": 0.85}

	short, err := Decide(p, acc, randassign.DelayShort, returnCodec(), now)
	if err != nil {
		t.Fatalf("Decide short: %v", err)
	}
	wantStart := time.Date(2015, time.April, 20, 9, 40, 0, 0, time.UTC)
	if !short.Start.Equal(wantStart) || !short.End.Equal(wantStart.Add(24*time.Hour)) {
		t.Errorf("short window = %v..%v, want %v..+24h", short.Start, short.End, wantStart)
	}
	res := returnCodec().Decode(short.Code, wantStart.Add(time.Hour))
	if !res.Valid() || res.Tag != accesscode.TagShort {
		t.Errorf("short code %q decodes to %+v", short.Code, res)
	}
	if returnCodec().Decode(short.Code, now).Valid() {
		t.Error("short code valid before its window")
	}

	long, err := Decide(p, acc, randassign.DelayLong, returnCodec(), now)
	if err != nil {
		t.Fatalf("Decide long: %v", err)
	}
	wantStart = time.Date(2015, time.April, 22, 9, 30, 0, 0, time.UTC)
	if !long.Start.Equal(wantStart) {
		t.Errorf("long start = %v, want %v", long.Start, wantStart)
	}
	res = returnCodec().Decode(long.Code, wantStart)
	if !res.Valid() || res.Tag != accesscode.TagLong {
		t.Errorf("long code %q decodes to %+v", long.Code, res)
	}
}

func TestDecide_Errors(t *testing.T) {
	acc := map[string]float64{"smaller": 1}

	if _, err := Decide(DefaultPolicy(), nil, randassign.DelayShort, returnCodec(), now); !errors.Is(err, ErrEmptyCondition) {
		t.Errorf("no accuracies: err = %v", err)
	}
	if _, err := Decide(DefaultPolicy(), acc, "medium", returnCodec(), now); err == nil {
		t.Error("expected error for unknown delay group")
	}
	bad := DefaultPolicy()
	bad.Threshold = 1.5
	if _, err := Decide(bad, acc, randassign.DelayShort, returnCodec(), now); err == nil {
		t.Error("expected error for threshold above 1")
	}

	late := time.Date(2015, time.December, 31, 12, 0, 0, 0, time.UTC)
	out, err := Decide(DefaultPolicy(), acc, randassign.DelayLong, returnCodec(), late)
	if !errors.Is(err, ErrMint) || !errors.Is(err, accesscode.ErrInvalidDates) {
		t.Errorf("window past deployment year: err = %v, want ErrMint and ErrInvalidDates", err)
	}
	if out.Kind != KindPassLong || out.Code != "" || out.Accuracy["smaller"] != 1 {
		t.Errorf("unminted outcome = %+v, want a long pass without code", out)
	}

	// A failing outcome never needs the codec.
	out, err = Decide(DefaultPolicy(), map[string]float64{"smaller": 0.1}, randassign.DelayLong, returnCodec(), late)
	if err != nil || out.Kind != KindFail {
		t.Errorf("fail = %+v, %v", out, err)
	}
}

func TestTagGroupMapping(t *testing.T) {
	for _, g := range []randassign.DelayGroup{randassign.DelayShort, randassign.DelayLong} {
		tag, err := TagFor(g)
		if err != nil {
			t.Fatalf("TagFor(%q): %v", g, err)
		}
		back, ok := GroupFor(tag)
		if !ok || back != g {
			t.Errorf("GroupFor(TagFor(%q)) = %q, %v", g, back, ok)
		}
	}
	if _, ok := GroupFor(accesscode.TagCheckIn); ok {
		t.Error("check-in tag mapped to a delay group")
	}
}
