// Package phasepick lets the experimenter choose which session to run and
// lays out the slides of each session.
package phasepick

import (
	"fmt"
	"strings"

	tea "charm.land/bubbletea/v2"
	"charm.land/lipgloss/v2"

	"github.com/abhisek/trialgate/internal/screen"
	"github.com/abhisek/trialgate/internal/screens/codeentry"
	"github.com/abhisek/trialgate/internal/screens/flow"
	"github.com/abhisek/trialgate/internal/screens/instructions"
	"github.com/abhisek/trialgate/internal/screens/preload"
	"github.com/abhisek/trialgate/internal/screens/stage"
	"github.com/abhisek/trialgate/internal/session"
	"github.com/abhisek/trialgate/internal/ui/components"
	"github.com/abhisek/trialgate/internal/ui/theme"
)

var phaseLabels = map[session.Phase]string{
	session.PhaseEncode:  "Encode: first session, size judgments",
	session.PhaseReturn:  "Return: second session, recognition",
	session.PhaseCheckIn: "Check-in: follow-up",
}

// PhasePickScreen is the menu shown when no phase was given.
type PhasePickScreen struct {
	f    *flow.Flow
	menu components.Menu
}

var _ screen.Screen = (*PhasePickScreen)(nil)

// New creates the phase menu. Picking a phase builds the session through
// f.NewSession and starts its first slide.
func New(f *flow.Flow) *PhasePickScreen {
	p := &PhasePickScreen{f: f}
	var items []components.MenuItem
	for _, phase := range session.Phases() {
		items = append(items, components.MenuItem{
			Label:  phaseLabels[phase],
			Action: func() tea.Cmd { return p.pick(phase) },
		})
	}
	items = append(items, components.MenuItem{Label: "Quit", Action: func() tea.Cmd { return tea.Quit }})
	p.menu = components.NewMenu(items)
	return p
}

func (p *PhasePickScreen) pick(phase session.Phase) tea.Cmd {
	if p.f.NewSession == nil {
		return flow.Fatal(fmt.Errorf("no session factory"))
	}
	ctx, err := p.f.NewSession(phase)
	if err != nil {
		return flow.Fatal(err)
	}
	p.f.Session = ctx
	return flow.Replace(Start(p.f))
}

func (p *PhasePickScreen) Init() tea.Cmd { return nil }

func (p *PhasePickScreen) Title() string { return "Choose Session" }

func (p *PhasePickScreen) Update(msg tea.Msg) (screen.Screen, tea.Cmd) {
	var cmd tea.Cmd
	p.menu, cmd = p.menu.Update(msg)
	return p, cmd
}

func (p *PhasePickScreen) View(width, height int) string {
	content := strings.Join([]string{
		theme.Title.Render("Which session is this?"),
		"",
		p.menu.View(),
	}, "\n")
	return lipgloss.Place(width, height, lipgloss.Center, lipgloss.Center, content)
}

// Start returns the first slide of f's session. Encode sessions preload
// before the instructions; return sessions check the code, show the
// instructions and preload on start; check-in sessions have no images.
func Start(f *flow.Flow) screen.Screen {
	toStage := func() screen.Screen { return stage.New(f) }

	switch f.Session.Phase() {
	case session.PhaseEncode:
		return preload.New(f, func() screen.Screen {
			return instructions.New(f, toStage)
		})
	case session.PhaseReturn:
		return codeentry.New(f, func() screen.Screen {
			return instructions.New(f, func() screen.Screen {
				return preload.New(f, toStage)
			})
		})
	}
	return codeentry.New(f, func() screen.Screen {
		return instructions.New(f, toStage)
	})
}
