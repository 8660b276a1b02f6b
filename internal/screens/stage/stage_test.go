package stage

import (
	"math/rand/v2"
	"strings"
	"testing"
	"time"

	tea "charm.land/bubbletea/v2"

	"github.com/abhisek/trialgate/internal/accesscode"
	"github.com/abhisek/trialgate/internal/screen"
	"github.com/abhisek/trialgate/internal/screens/finish"
	"github.com/abhisek/trialgate/internal/screens/flow"
	"github.com/abhisek/trialgate/internal/session"
	"github.com/abhisek/trialgate/internal/trial"
)

var t0 = time.Date(2015, time.March, 10, 12, 0, 0, 0, time.UTC)

type clock struct{ now time.Time }

func (c *clock) Now() time.Time { return c.now }

func newStage(t *testing.T, phase session.Phase) (*StageScreen, *clock) {
	t.Helper()
	ctx, err := session.NewContext(session.Options{
		Phase:    phase,
		Year:     2015,
		Location: time.UTC,
		Source:   rand.New(rand.NewPCG(3, 4)),
		Now:      t0,
	})
	if err != nil {
		t.Fatalf("NewContext: %v", err)
	}
	if phase == session.PhaseReturn {
		code, err := accesscode.New(accesscode.ReturnSession, 2015, time.UTC).
			Encode(t0.Add(-time.Hour), t0.Add(time.Hour), accesscode.TagShort)
		if err != nil {
			t.Fatalf("Encode: %v", err)
		}
		if res, err := ctx.ValidateEntry(code, t0); err != nil || !res.Valid() {
			t.Fatalf("ValidateEntry: %v %v", res.Status, err)
		}
	}
	c := &clock{now: t0}
	return New(&flow.Flow{Session: ctx, Clock: c.Now}), c
}

func start(t *testing.T, s *StageScreen) {
	t.Helper()
	cmd := s.Init()
	if cmd == nil {
		t.Fatal("Init should return a start command")
	}
	msg := cmd()
	if _, ok := msg.(startMsg); !ok {
		t.Fatalf("expected startMsg, got %T", msg)
	}
	s.Update(msg)
}

func fire(s *StageScreen, kind trial.TimerKind, step int, at time.Time) tea.Cmd {
	_, cmd := s.Update(timerMsg{timer: trial.Timer{Kind: kind, Step: step}, at: at})
	return cmd
}

func TestKeyTrialsRunToFinish(t *testing.T) {
	s, clk := newStage(t, session.PhaseEncode)
	start(t, s)

	if s.display != displayFixation {
		t.Fatalf("expected fixation during lead-in, got %d", s.display)
	}
	if !strings.Contains(s.View(80, 24), "+") {
		t.Error("lead-in should show a fixation cross")
	}

	keys := s.f.Session.Assignment().KeyMapping
	onset := t0.Add(trial.DefaultLeadIn)
	fire(s, trial.TimerLeadIn, 0, onset)

	n := s.f.Session.Sequencer().Len()
	for i := 0; i < n; i++ {
		if s.display != displayStimulus {
			t.Fatalf("trial %d: expected stimulus, got %d", i, s.display)
		}
		if !strings.Contains(s.View(100, 30), s.stimulus.Assets[0]) {
			t.Errorf("trial %d: view should name %s", i, s.stimulus.Assets[0])
		}

		fire(s, trial.TimerHideStimulus, i, onset.Add(trial.DefaultStimulusVisible))
		if s.display != displayBlank {
			t.Fatalf("trial %d: expected blank after hide", i)
		}

		clk.now = onset.Add(400 * time.Millisecond)
		key := keys.KeyFor(s.stimulus.Condition)
		s.Update(tea.KeyPressMsg{Code: rune(key[0]), Text: key})

		onset = onset.Add(trial.DefaultAdvanceAfter)
		fire(s, trial.TimerAdvance, i, onset)
	}

	if !s.f.Session.Done() {
		t.Fatal("session should be done")
	}
	if s.committed != n {
		t.Errorf("committed %d trials, want %d", s.committed, n)
	}
	if _, ok := s.next.(*finish.FinishScreen); !ok {
		t.Fatalf("expected finish screen next, got %T", s.next)
	}

	rec := s.f.Session.Snapshot()
	for _, tr := range rec.Trials {
		if tr.ReactionTimeMs != 400 {
			t.Errorf("trial %d: rt %d, want 400", tr.Index, tr.ReactionTimeMs)
		}
		if tr.Correct == nil || !*tr.Correct {
			t.Errorf("trial %d should be correct", tr.Index)
		}
	}
	out, ok := s.f.Session.Outcome()
	if !ok || !out.Kind.Passed() {
		t.Errorf("expected a pass, got %+v", out)
	}
}

func TestInputAfterDoneIgnored(t *testing.T) {
	s, _ := newStage(t, session.PhaseCheckIn)
	code, err := accesscode.New(accesscode.CheckIn, 2015, time.UTC).
		Encode(t0.Add(-time.Hour), t0.Add(time.Hour), accesscode.TagCheckIn)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := s.f.Session.ValidateEntry(code, t0); err != nil {
		t.Fatal(err)
	}
	start(t, s)

	if !s.f.Session.Done() {
		t.Fatal("check-in has no trials and should finish at start")
	}
	if s.next == nil {
		t.Fatal("expected transition to the finish screen")
	}
	if _, cmd := s.Update(tea.KeyPressMsg{Code: 'p', Text: "p"}); cmd != nil {
		t.Error("input after done should be dropped")
	}
	if cmd := fire(s, trial.TimerAdvance, 0, t0); cmd != nil {
		t.Error("timers after done should be dropped")
	}
}

func TestClickTrialsByKeyAndMouse(t *testing.T) {
	s, clk := newStage(t, session.PhaseReturn)
	start(t, s)

	if s.display != displayStimulus {
		t.Fatalf("click trials have no lead-in, got display %d", s.display)
	}
	first := s.stimulus
	view := s.View(100, 30)
	for _, a := range first.Assets {
		if !strings.Contains(view, a) {
			t.Errorf("grid should show %s", a)
		}
	}

	// Digit keys choose by position.
	clk.now = t0.Add(time.Second)
	s.Update(tea.KeyPressMsg{Code: '3', Text: "3"})
	if s.display != displayBlank {
		t.Fatal("a choice should blank the screen for the ISI")
	}
	fire(s, trial.TimerISI, 0, clk.now.Add(trial.DefaultClickISI))

	// A click in the lower right quadrant picks the fourth image.
	second := s.stimulus
	clk.now = clk.now.Add(2 * time.Second)
	s.Update(screen.ClickMsg{X: 90, Y: 25, Width: 100, Height: 30})

	trials := s.f.Session.Sequencer().Trials()
	if len(trials) != 2 {
		t.Fatalf("expected 2 committed trials, got %d", len(trials))
	}
	if trials[0].Response != first.Assets[2] {
		t.Errorf("key 3 chose %s, want %s", trials[0].Response, first.Assets[2])
	}
	if trials[0].ReactionTimeMs != 1000 {
		t.Errorf("rt %d, want 1000", trials[0].ReactionTimeMs)
	}
	if trials[1].Response != second.Assets[3] {
		t.Errorf("click chose %s, want %s", trials[1].Response, second.Assets[3])
	}
}

func TestIgnoredKeys(t *testing.T) {
	s, _ := newStage(t, session.PhaseReturn)
	start(t, s)

	for _, k := range []tea.KeyPressMsg{
		{Code: '5', Text: "5"},
		{Code: 'p', Text: "p"},
		{Code: tea.KeyEnter},
	} {
		s.Update(k)
	}
	if got := len(s.f.Session.Sequencer().Trials()); got != 0 {
		t.Errorf("expected no committed trials, got %d", got)
	}
}

func TestQuadrant(t *testing.T) {
	tests := []struct {
		x, y int
		want int
	}{
		{0, 0, 0},
		{79, 0, 1},
		{0, 23, 2},
		{79, 23, 3},
		{40, 12, 3},
		{39, 11, 0},
	}
	for _, tt := range tests {
		got := Quadrant(screen.ClickMsg{X: tt.x, Y: tt.y, Width: 80, Height: 24})
		if got != tt.want {
			t.Errorf("Quadrant(%d, %d) = %d, want %d", tt.x, tt.y, got, tt.want)
		}
	}
}

func TestKeyHints(t *testing.T) {
	s, _ := newStage(t, session.PhaseEncode)
	hints := s.KeyHints()
	if len(hints) != 2 || hints[0].Key != "P" || hints[1].Key != "Q" {
		t.Fatalf("unexpected hints %+v", hints)
	}
	keys := s.f.Session.Assignment().KeyMapping
	if hints[0].Description != keys["p"] {
		t.Errorf("P hint %q, want %q", hints[0].Description, keys["p"])
	}

	r, _ := newStage(t, session.PhaseReturn)
	if got := r.KeyHints(); len(got) != 1 {
		t.Errorf("click hints %+v", got)
	}
}
