// Package codeentry is the access code slide of return and check-in
// sessions.
package codeentry

import (
	"strings"

	tea "charm.land/bubbletea/v2"
	"charm.land/lipgloss/v2"

	"github.com/abhisek/trialgate/internal/screen"
	"github.com/abhisek/trialgate/internal/screens/flow"
	"github.com/abhisek/trialgate/internal/ui/components"
	"github.com/abhisek/trialgate/internal/ui/layout"
	"github.com/abhisek/trialgate/internal/ui/theme"
)

// codeLimit leaves room for stray characters; the codec rejects them.
const codeLimit = 40

// CodeEntryScreen asks for the code issued at the end of the previous
// session. Invalid and out-of-window codes keep the subject here with a
// message; a valid code moves on, except in preview mode.
type CodeEntryScreen struct {
	f       *flow.Flow
	next    func() screen.Screen
	input   components.TextInput
	message string
	valid   bool
}

var _ screen.Screen = (*CodeEntryScreen)(nil)

// New creates the code slide. An accepted code replaces it with the screen
// built by next.
func New(f *flow.Flow, next func() screen.Screen) *CodeEntryScreen {
	return &CodeEntryScreen{
		f:     f,
		next:  next,
		input: components.NewTextInput("Enter your code", false, codeLimit),
	}
}

func (c *CodeEntryScreen) Init() tea.Cmd { return c.input.Init() }

func (c *CodeEntryScreen) Title() string { return "Access Code" }

func (c *CodeEntryScreen) Update(msg tea.Msg) (screen.Screen, tea.Cmd) {
	if kmsg, ok := msg.(tea.KeyPressMsg); ok && kmsg.String() == "enter" {
		return c, c.submit()
	}
	var cmd tea.Cmd
	c.input, cmd = c.input.Update(msg)
	return c, cmd
}

func (c *CodeEntryScreen) submit() tea.Cmd {
	code := c.input.Value()
	now := c.f.Now()

	if c.f.Preview {
		res, err := c.f.Session.CheckEntry(code, now)
		if err != nil {
			return flow.Fatal(err)
		}
		c.valid = res.Valid()
		c.message = res.Message()
		if c.valid {
			c.message = flow.PreviewMessage
		}
		c.input.Submit(c.valid)
		return nil
	}

	res, err := c.f.Session.ValidateEntry(code, now)
	if err != nil {
		return flow.Fatal(err)
	}
	c.valid = res.Valid()
	c.input.Submit(c.valid)
	if !c.valid {
		c.message = res.Message()
		return nil
	}
	c.message = ""
	return flow.Replace(c.next())
}

// Message returns the feedback shown under the input.
func (c *CodeEntryScreen) Message() string { return c.message }

func (c *CodeEntryScreen) View(width, height int) string {
	lines := []string{
		theme.Title.Render("Welcome back!"),
		"",
		theme.Body.Render("Please enter the code you received at the end of your last session."),
		"",
		c.input.View(),
	}
	if c.message != "" {
		style := theme.Invalid
		if c.valid {
			style = theme.Valid
		}
		lines = append(lines, "", style.Width(layout.ClampWidth(width-8, 70)).Render(c.message))
	}
	lines = append(lines, "", theme.Hint.Render("press enter to submit"))
	return lipgloss.Place(width, height, lipgloss.Center, lipgloss.Center, strings.Join(lines, "\n"))
}
