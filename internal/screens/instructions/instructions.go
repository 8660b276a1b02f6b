// Package instructions shows the task instructions and the start button.
package instructions

import (
	"fmt"
	"strings"

	tea "charm.land/bubbletea/v2"
	"charm.land/lipgloss/v2"

	"github.com/abhisek/trialgate/internal/screen"
	"github.com/abhisek/trialgate/internal/screens/flow"
	"github.com/abhisek/trialgate/internal/session"
	"github.com/abhisek/trialgate/internal/ui/components"
	"github.com/abhisek/trialgate/internal/ui/layout"
	"github.com/abhisek/trialgate/internal/ui/theme"
)

// InstructionsScreen explains the task. The start button is disabled in
// preview mode.
type InstructionsScreen struct {
	f      *flow.Flow
	button components.Button
	lines  []string
}

var _ screen.Screen = (*InstructionsScreen)(nil)

// New creates the instructions slide. Pressing start replaces it with the
// screen built by next.
func New(f *flow.Flow, next func() screen.Screen) *InstructionsScreen {
	start := func() tea.Cmd { return flow.Replace(next()) }
	return &InstructionsScreen{
		f:      f,
		button: components.NewButton("Start", !f.Preview, start),
		lines:  Text(f.Session),
	}
}

// Text returns the instructions for c's phase and key assignment.
func Text(c *session.Context) []string {
	switch c.Phase() {
	case session.PhaseEncode:
		keys := c.Assignment().KeyMapping
		return []string{
			"You will see pictures of everyday objects, one at a time.",
			"Each picture is shown only briefly, so pay close attention.",
			fmt.Sprintf("Press %s if the object is smaller than a shoebox in real life.",
				strings.ToUpper(keys.KeyFor("smaller"))),
			fmt.Sprintf("Press %s if the object is bigger than a shoebox in real life.",
				strings.ToUpper(keys.KeyFor("bigger"))),
			"Answer as quickly and accurately as you can.",
		}
	case session.PhaseReturn:
		return []string{
			"You will see four pictures at a time.",
			"Pick the one you saw in the first session by clicking it,",
			"or press 1 to 4 for upper left, upper right, lower left and lower right.",
		}
	}
	return []string{
		"Thank you for coming back.",
		"Press start to record your check-in.",
	}
}

func (s *InstructionsScreen) Init() tea.Cmd { return nil }

func (s *InstructionsScreen) Title() string { return "Instructions" }

func (s *InstructionsScreen) Update(msg tea.Msg) (screen.Screen, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyPressMsg:
		var cmd tea.Cmd
		s.button, cmd = s.button.Update(msg)
		return s, cmd
	case screen.ClickMsg:
		return s, s.button.Press()
	}
	return s, nil
}

func (s *InstructionsScreen) View(width, height int) string {
	body := make([]string, 0, len(s.lines)+4)
	body = append(body, theme.Title.Render("Instructions"), "")
	for _, l := range s.lines {
		body = append(body, theme.Body.Render(l))
	}
	body = append(body, "", s.button.View())
	if s.f.Preview {
		body = append(body, "", theme.Hint.Render("Preview mode: the study cannot be started."))
	}

	card := theme.Card.Width(layout.ClampWidth(width-4, 80)).Render(strings.Join(body, "\n"))
	return lipgloss.Place(width, height, lipgloss.Center, lipgloss.Center, card)
}
