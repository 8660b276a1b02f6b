package instructions

import (
	"math/rand/v2"
	"strings"
	"testing"
	"time"

	tea "charm.land/bubbletea/v2"

	"github.com/abhisek/trialgate/internal/router"
	"github.com/abhisek/trialgate/internal/screen"
	"github.com/abhisek/trialgate/internal/screens/flow"
	"github.com/abhisek/trialgate/internal/session"
)

type stubScreen struct{}

func (s *stubScreen) Init() tea.Cmd                           { return nil }
func (s *stubScreen) Update(tea.Msg) (screen.Screen, tea.Cmd) { return s, nil }
func (s *stubScreen) View(int, int) string                    { return "stage" }
func (s *stubScreen) Title() string                           { return "" }

func newContext(t *testing.T, phase session.Phase, seed uint64) *session.Context {
	t.Helper()
	ctx, err := session.NewContext(session.Options{
		Phase:  phase,
		Source: rand.New(rand.NewPCG(seed, seed)),
		Now:    time.Date(2015, time.March, 1, 9, 0, 0, 0, time.UTC),
	})
	if err != nil {
		t.Fatalf("NewContext: %v", err)
	}
	return ctx
}

func TestEncodeTextFollowsKeyMapping(t *testing.T) {
	for seed := uint64(0); seed < 8; seed++ {
		ctx := newContext(t, session.PhaseEncode, seed)
		text := strings.Join(Text(ctx), "\n")
		keys := ctx.Assignment().KeyMapping

		smaller := "Press " + strings.ToUpper(keys.KeyFor("smaller")) + " if the object is smaller"
		bigger := "Press " + strings.ToUpper(keys.KeyFor("bigger")) + " if the object is bigger"
		if !strings.Contains(text, smaller) || !strings.Contains(text, bigger) {
			t.Errorf("seed %d: mapping %v not reflected in:\n%s", seed, keys, text)
		}
	}
}

func TestPhaseTexts(t *testing.T) {
	tests := []struct {
		phase session.Phase
		want  string
	}{
		{session.PhaseReturn, "press 1 to 4"},
		{session.PhaseCheckIn, "record your check-in"},
	}
	for _, tt := range tests {
		text := strings.Join(Text(newContext(t, tt.phase, 1)), "\n")
		if !strings.Contains(text, tt.want) {
			t.Errorf("%s: missing %q in:\n%s", tt.phase, tt.want, text)
		}
	}
}

func TestStartButton(t *testing.T) {
	calls := 0
	next := func() screen.Screen {
		calls++
		return &stubScreen{}
	}
	s := New(&flow.Flow{Session: newContext(t, session.PhaseEncode, 1)}, next)

	if _, cmd := s.Update(tea.KeyPressMsg{Code: 'p', Text: "p"}); cmd != nil {
		t.Error("other keys should not start")
	}
	_, cmd := s.Update(tea.KeyPressMsg{Code: tea.KeyEnter})
	if cmd == nil {
		t.Fatal("enter should start")
	}
	if _, ok := cmd().(router.ReplaceScreenMsg); !ok {
		t.Fatal("expected ReplaceScreenMsg")
	}

	_, cmd = s.Update(screen.ClickMsg{X: 1, Y: 1, Width: 80, Height: 20})
	if cmd == nil {
		t.Fatal("a click should start")
	}
	if calls != 2 {
		t.Errorf("next built %d times, want 2", calls)
	}
}

func TestPreviewDisablesStart(t *testing.T) {
	s := New(&flow.Flow{Session: newContext(t, session.PhaseEncode, 1), Preview: true}, func() screen.Screen {
		t.Fatal("preview must not start")
		return nil
	})
	if _, cmd := s.Update(tea.KeyPressMsg{Code: tea.KeyEnter}); cmd != nil {
		t.Error("start should be disabled")
	}
	if _, cmd := s.Update(screen.ClickMsg{Width: 80, Height: 20}); cmd != nil {
		t.Error("start should be disabled")
	}
	if !strings.Contains(s.View(100, 30), "Preview mode") {
		t.Error("view should explain preview mode")
	}
}
