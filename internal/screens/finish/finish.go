// Package finish is the last slide of a visit: the optional comments form,
// the code handed to the subject and the submission of the record.
package finish

import (
	"context"
	"strings"
	"time"

	tea "charm.land/bubbletea/v2"
	"charm.land/lipgloss/v2"
	"go.uber.org/zap"

	"github.com/abhisek/trialgate/internal/accesscode"
	"github.com/abhisek/trialgate/internal/screen"
	"github.com/abhisek/trialgate/internal/screens/flow"
	"github.com/abhisek/trialgate/internal/session"
	"github.com/abhisek/trialgate/internal/ui/components"
	"github.com/abhisek/trialgate/internal/ui/layout"
	"github.com/abhisek/trialgate/internal/ui/theme"
)

// SubmitDelay is how long the finish slide shows before the record is sent.
const SubmitDelay = 1500 * time.Millisecond

type submitState int

const (
	stateComments submitState = iota
	stateWaiting
	stateSending
	stateSent
	stateFailed
	stateSkipped
)

type wrapMsg struct{}
type submitMsg struct{}
type submittedMsg struct{ err error }

// FinishScreen wraps up the session and submits its record.
type FinishScreen struct {
	f        *flow.Flow
	comments components.TextInput
	state    submitState
	rec      session.Record
	err      error
}

var _ screen.Screen = (*FinishScreen)(nil)

// New creates the finish slide. Return sessions ask for comments first.
func New(f *flow.Flow) *FinishScreen {
	s := &FinishScreen{f: f, state: stateWaiting}
	if f.Session.Phase() == session.PhaseReturn {
		s.state = stateComments
		s.comments = components.NewTextInput("Comments (optional)", false, 500)
	}
	return s
}

func (s *FinishScreen) Init() tea.Cmd {
	if s.state == stateComments {
		return s.comments.Init()
	}
	return func() tea.Msg { return wrapMsg{} }
}

func (s *FinishScreen) Title() string { return "Finished" }

func (s *FinishScreen) Update(msg tea.Msg) (screen.Screen, tea.Cmd) {
	switch msg := msg.(type) {
	case wrapMsg:
		return s, s.wrap("")

	case submitMsg:
		return s, s.submit()

	case submittedMsg:
		if msg.err != nil {
			s.state = stateFailed
			s.err = msg.err
			s.f.Log().Error("submit failed", zap.String("session_id", s.rec.ID), zap.Error(msg.err))
			return s, nil
		}
		s.state = stateSent
		s.f.Log().Info("session submitted", zap.String("session_id", s.rec.ID))
		return s, nil

	case tea.KeyPressMsg:
		switch s.state {
		case stateComments:
			if msg.String() == "enter" {
				return s, s.wrap(s.comments.Value())
			}
			var cmd tea.Cmd
			s.comments, cmd = s.comments.Update(msg)
			return s, cmd
		case stateSent, stateFailed, stateSkipped:
			if msg.String() == "enter" || msg.String() == "q" {
				return s, tea.Quit
			}
		}
		return s, nil
	}

	if s.state == stateComments {
		var cmd tea.Cmd
		s.comments, cmd = s.comments.Update(msg)
		return s, cmd
	}
	return s, nil
}

func (s *FinishScreen) wrap(comments string) tea.Cmd {
	rec, err := s.f.Session.WrapUp(comments, s.f.Now())
	if err != nil {
		return flow.Fatal(err)
	}
	s.rec = rec
	if s.f.Preview || s.f.Submitter == nil {
		s.state = stateSkipped
		return nil
	}
	s.state = stateWaiting
	return tea.Tick(SubmitDelay, func(time.Time) tea.Msg { return submitMsg{} })
}

func (s *FinishScreen) submit() tea.Cmd {
	if s.state != stateWaiting {
		return nil
	}
	s.state = stateSending
	sub, rec := s.f.Submitter, s.rec
	return func() tea.Msg {
		return submittedMsg{err: sub.Submit(context.Background(), rec)}
	}
}

// Record returns the wrapped-up record, zero before wrap-up.
func (s *FinishScreen) Record() session.Record { return s.rec }

func (s *FinishScreen) View(width, height int) string {
	var lines []string
	if s.state == stateComments {
		lines = append(lines,
			theme.Title.Render("Thank you!"),
			"",
			theme.Body.Render("Do you have any comments about this study?"),
			"",
			s.comments.View(),
			"",
			theme.Hint.Render("press enter to submit"),
		)
		return lipgloss.Place(width, height, lipgloss.Center, lipgloss.Center, strings.Join(lines, "\n"))
	}

	lines = append(lines, theme.Title.Render("Thank you for participating!"), "")
	lines = append(lines, s.exitLines()...)
	lines = append(lines, "", s.statusLine())

	card := theme.Card.Width(layout.ClampWidth(width-4, 70)).Render(strings.Join(lines, "\n"))
	return lipgloss.Place(width, height, lipgloss.Center, lipgloss.Center, card)
}

func (s *FinishScreen) exitLines() []string {
	exit := s.f.Session.Exit()
	if s.rec.MintError != "" {
		return []string{
			theme.Body.Render("You have completed this session."),
			theme.Invalid.Render("Your follow-up code could not be created. Please contact the experimenter."),
		}
	}
	switch s.f.Session.Phase() {
	case session.PhaseEncode:
		if !exit.Issued() {
			return []string{theme.Body.Render("You have completed the study. No further sessions are needed.")}
		}
		return codeLines("Your code for the second session:", exit.Code, exit.Start, exit.End)
	case session.PhaseReturn:
		if !exit.Issued() {
			return []string{theme.Body.Render("You have completed the study. No check-in is needed.")}
		}
		return codeLines("Your check-in code:", exit.Code, exit.Start, exit.End)
	}
	return []string{theme.Body.Render("Your check-in has been recorded.")}
}

func codeLines(label, code string, start, end time.Time) []string {
	return []string{
		theme.Body.Render(label),
		theme.KeyCap.Render(code),
		theme.Hint.Render("Use it between " + accesscode.FormatWindowTime(start) + " and " + accesscode.FormatWindowTime(end) + "."),
	}
}

func (s *FinishScreen) statusLine() string {
	switch s.state {
	case stateWaiting, stateSending:
		return theme.Hint.Render("Submitting...")
	case stateSent:
		return theme.Valid.Render("Submitted. Press enter to exit.")
	case stateFailed:
		return theme.Invalid.Render("Submission failed: " + s.err.Error())
	case stateSkipped:
		return theme.Hint.Render("Not submitted. Press enter to exit.")
	}
	return ""
}
