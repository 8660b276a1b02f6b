// Package stage runs the trial sequence. It turns sequencer effects into
// ticks and renders, and terminal input into sequencer events.
package stage

import (
	"fmt"
	"strings"
	"time"

	tea "charm.land/bubbletea/v2"
	"charm.land/lipgloss/v2"

	"github.com/abhisek/trialgate/internal/screen"
	"github.com/abhisek/trialgate/internal/screens/finish"
	"github.com/abhisek/trialgate/internal/screens/flow"
	"github.com/abhisek/trialgate/internal/trial"
	"github.com/abhisek/trialgate/internal/ui/layout"
	"github.com/abhisek/trialgate/internal/ui/theme"
)

type display int

const (
	displayBlank display = iota
	displayFixation
	displayStimulus
)

type startMsg struct{ at time.Time }

type timerMsg struct {
	timer trial.Timer
	at    time.Time
}

// StageScreen presents the trials of the session.
type StageScreen struct {
	f         *flow.Flow
	input     trial.InputKind
	display   display
	stimulus  trial.Stimulus
	committed int
	next      screen.Screen
}

var _ screen.Screen = (*StageScreen)(nil)
var _ screen.KeyHintProvider = (*StageScreen)(nil)

// New creates the stage for f's session.
func New(f *flow.Flow) *StageScreen {
	return &StageScreen{
		f:     f,
		input: f.Session.Sequencer().Config().Input,
	}
}

func (s *StageScreen) Init() tea.Cmd {
	at := s.f.Now()
	return func() tea.Msg { return startMsg{at: at} }
}

func (s *StageScreen) Title() string { return "" }

func (s *StageScreen) Update(msg tea.Msg) (screen.Screen, tea.Cmd) {
	switch msg := msg.(type) {
	case startMsg:
		effects, err := s.f.Session.Start(msg.at)
		if err != nil {
			return s, flow.Fatal(err)
		}
		return s, s.apply(effects)

	case timerMsg:
		return s, s.handle(trial.TimerElapsed{Timer: msg.timer, At: msg.at})

	case tea.KeyPressMsg:
		if ev := s.keyEvent(msg); ev != nil {
			return s, s.handle(ev)
		}

	case screen.ClickMsg:
		if s.input == trial.InputClick && msg.Width > 0 && msg.Height > 0 {
			return s, s.handle(trial.Clicked{Element: Quadrant(msg), At: s.f.Now()})
		}
	}
	return s, nil
}

func (s *StageScreen) keyEvent(msg tea.KeyPressMsg) trial.Event {
	key := strings.ToLower(msg.Text)
	if key == "" {
		return nil
	}
	if s.input == trial.InputClick {
		if len(key) != 1 || key[0] < '1' || key[0] > '4' {
			return nil
		}
		return trial.Clicked{Element: int(key[0] - '1'), At: s.f.Now()}
	}
	return trial.KeyPressed{Key: key, At: s.f.Now()}
}

func (s *StageScreen) handle(ev trial.Event) tea.Cmd {
	if s.f.Session.Done() {
		return nil
	}
	effects, err := s.f.Session.Handle(ev)
	if err != nil {
		return flow.Fatal(err)
	}
	return s.apply(effects)
}

func (s *StageScreen) apply(effects []trial.Effect) tea.Cmd {
	var cmds []tea.Cmd
	for _, e := range effects {
		switch e := e.(type) {
		case trial.ScheduleTimer:
			timer := e.Timer
			cmds = append(cmds, tea.Tick(e.After, func(t time.Time) tea.Msg {
				return timerMsg{timer: timer, at: t}
			}))
		case trial.ShowLeadIn:
			s.display = displayFixation
		case trial.ShowStimulus:
			s.display = displayStimulus
			s.stimulus = e.Stimulus
		case trial.HideStimulus, trial.ShowBlank:
			s.display = displayBlank
		case trial.Committed:
			s.committed++
		case trial.Finished:
			s.display = displayBlank
			s.next = finish.New(s.f)
			cmds = append(cmds, flow.Replace(s.next))
		}
	}
	return tea.Batch(cmds...)
}

// Quadrant maps a click to the index of the image displayed there: upper
// left, upper right, lower left, lower right.
func Quadrant(c screen.ClickMsg) int {
	element := 0
	if c.X >= c.Width/2 {
		element++
	}
	if c.Y >= c.Height/2 {
		element += 2
	}
	return element
}

func (s *StageScreen) View(width, height int) string {
	switch s.display {
	case displayFixation:
		return lipgloss.Place(width, height, lipgloss.Center, lipgloss.Center, theme.Fixation.Render("+"))
	case displayStimulus:
		if s.input == trial.InputClick {
			return renderGrid(s.stimulus.Assets, width, height)
		}
		if len(s.stimulus.Assets) == 0 {
			return ""
		}
		return lipgloss.Place(width, height, lipgloss.Center, lipgloss.Center,
			theme.Stimulus.Render(s.stimulus.Assets[0]))
	}
	return ""
}

func renderGrid(assets []string, width, height int) string {
	cw, ch := width/2, height/2
	cells := make([]string, 4)
	for i := range cells {
		label := ""
		if i < len(assets) {
			label = fmt.Sprintf("%d\n\n%s", i+1, assets[i])
		}
		cells[i] = theme.Choice.Width(cw).Height(ch).Render(label)
	}
	top := lipgloss.JoinHorizontal(lipgloss.Top, cells[0], cells[1])
	bottom := lipgloss.JoinHorizontal(lipgloss.Top, cells[2], cells[3])
	return lipgloss.JoinVertical(lipgloss.Left, top, bottom)
}

func (s *StageScreen) KeyHints() []layout.KeyHint {
	if s.input == trial.InputClick {
		return []layout.KeyHint{{Key: "1-4/click", Description: "Choose"}}
	}
	keys := s.f.Session.Assignment().KeyMapping
	hints := make([]layout.KeyHint, 0, 2)
	for _, k := range []string{"p", "q"} {
		if label, ok := keys[k]; ok {
			hints = append(hints, layout.KeyHint{Key: strings.ToUpper(k), Description: label})
		}
	}
	return hints
}
