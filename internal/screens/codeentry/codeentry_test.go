package codeentry

import (
	"math/rand/v2"
	"strings"
	"testing"
	"time"

	tea "charm.land/bubbletea/v2"

	"github.com/abhisek/trialgate/internal/accesscode"
	"github.com/abhisek/trialgate/internal/router"
	"github.com/abhisek/trialgate/internal/screen"
	"github.com/abhisek/trialgate/internal/screens/flow"
	"github.com/abhisek/trialgate/internal/session"
)

var visit = time.Date(2015, time.May, 1, 10, 0, 0, 0, time.UTC)

type stubScreen struct{}

func (s *stubScreen) Init() tea.Cmd                           { return nil }
func (s *stubScreen) Update(tea.Msg) (screen.Screen, tea.Cmd) { return s, nil }
func (s *stubScreen) View(int, int) string                    { return "next" }
func (s *stubScreen) Title() string                           { return "Next" }

func newEntry(t *testing.T, phase session.Phase, preview bool) (*CodeEntryScreen, *int) {
	t.Helper()
	ctx, err := session.NewContext(session.Options{
		Phase:    phase,
		Year:     2015,
		Location: time.UTC,
		Source:   rand.New(rand.NewPCG(1, 2)),
		Now:      visit,
	})
	if err != nil {
		t.Fatalf("NewContext: %v", err)
	}
	calls := 0
	next := func() screen.Screen {
		calls++
		return &stubScreen{}
	}
	f := &flow.Flow{Session: ctx, Preview: preview, Clock: func() time.Time { return visit }}
	return New(f, next), &calls
}

func mint(t *testing.T, f accesscode.Family, start, end time.Time, tag accesscode.Tag) string {
	t.Helper()
	code, err := accesscode.New(f, 2015, time.UTC).Encode(start, end, tag)
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}
	return code
}

func typeCode(s *CodeEntryScreen, code string) tea.Cmd {
	for _, r := range code {
		s.Update(tea.KeyPressMsg{Code: r, Text: string(r)})
	}
	_, cmd := s.Update(tea.KeyPressMsg{Code: tea.KeyEnter})
	return cmd
}

func TestMessages(t *testing.T) {
	tests := []struct {
		name string
		code func(t *testing.T) string
		want string
	}{
		{
			name: "malformed",
			code: func(*testing.T) string { return "12345" },
			want: "Invalid code. Please enter a valid code.",
		},
		{
			name: "too soon",
			code: func(t *testing.T) string {
				return mint(t, accesscode.ReturnSession, visit.Add(2*time.Hour), visit.Add(3*time.Hour), accesscode.TagShort)
			},
			want: "This code is only valid for use between 05/01/2015 at 12:00 and 05/01/2015 at 13:00. Please come back soon!",
		},
		{
			name: "expired",
			code: func(t *testing.T) string {
				return mint(t, accesscode.ReturnSession, visit.Add(-3*time.Hour), visit.Add(-2*time.Hour), accesscode.TagLong)
			},
			want: "This code expired on 05/01/2015 at 08:00",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s, calls := newEntry(t, session.PhaseReturn, false)
			if cmd := typeCode(s, tt.code(t)); cmd != nil {
				t.Fatal("a rejected code should not transition")
			}
			if s.Message() != tt.want {
				t.Errorf("message %q, want %q", s.Message(), tt.want)
			}
			if *calls != 0 {
				t.Error("next should not be built")
			}
			if !s.f.Session.NeedsEntry() {
				t.Error("entry should still be required")
			}
		})
	}
}

func TestValidCodeTransitions(t *testing.T) {
	s, calls := newEntry(t, session.PhaseReturn, false)
	cmd := typeCode(s, mint(t, accesscode.ReturnSession, visit.Add(-time.Hour), visit.Add(time.Hour), accesscode.TagShort))
	if cmd == nil {
		t.Fatal("a valid code should transition")
	}
	if _, ok := cmd().(router.ReplaceScreenMsg); !ok {
		t.Fatal("expected ReplaceScreenMsg")
	}
	if *calls != 1 {
		t.Errorf("next built %d times, want 1", *calls)
	}
	if s.f.Session.NeedsEntry() {
		t.Error("entry should be accepted")
	}
}

func TestRetryAfterRejection(t *testing.T) {
	s, calls := newEntry(t, session.PhaseCheckIn, false)
	typeCode(s, "0176bad")

	// Clear the field before the second attempt.
	for range len("0176bad") {
		s.Update(tea.KeyPressMsg{Code: tea.KeyBackspace})
	}
	cmd := typeCode(s, mint(t, accesscode.CheckIn, visit.Add(-time.Hour), visit.Add(time.Hour), accesscode.TagCheckIn))
	if cmd == nil || *calls != 1 {
		t.Fatalf("second attempt should transition, calls=%d", *calls)
	}
}

func TestPreviewValidCode(t *testing.T) {
	s, calls := newEntry(t, session.PhaseReturn, true)
	code := mint(t, accesscode.ReturnSession, visit.Add(-time.Hour), visit.Add(time.Hour), accesscode.TagShort)

	if cmd := typeCode(s, code); cmd != nil {
		t.Fatal("preview never transitions")
	}
	// Submitting the same code again gives the same answer.
	if _, cmd := s.Update(tea.KeyPressMsg{Code: tea.KeyEnter}); cmd != nil {
		t.Fatal("preview never transitions")
	}
	if s.Message() != flow.PreviewMessage {
		t.Errorf("message %q, want preview message", s.Message())
	}
	if *calls != 0 || !s.f.Session.NeedsEntry() {
		t.Error("preview must not accept the code")
	}
	if !strings.Contains(s.View(100, 30), "preview mode") {
		t.Error("view should show the preview message")
	}
}
