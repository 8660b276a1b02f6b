package app

import (
	"errors"
	"fmt"
	"os"

	tea "charm.land/bubbletea/v2"
	"charm.land/lipgloss/v2"
	"go.uber.org/zap"

	"github.com/abhisek/trialgate/internal/router"
	"github.com/abhisek/trialgate/internal/screen"
	"github.com/abhisek/trialgate/internal/screens/flow"
	"github.com/abhisek/trialgate/internal/screens/phasepick"
	"github.com/abhisek/trialgate/internal/ui/layout"
)

// AppModel is the root Bubble Tea model.
type AppModel struct {
	router *router.Router
	flow   *flow.Flow
	width  int
	height int
	err    error
}

// newAppModel starts at the first slide of f's session, or at the phase
// menu when no session was built yet.
func newAppModel(f *flow.Flow) AppModel {
	var first screen.Screen
	if f.Session != nil {
		first = phasepick.Start(f)
	} else {
		first = phasepick.New(f)
	}
	r := router.New(first)
	r.OnChange = func(from, to screen.Screen) {
		f.Log().Debug("slide",
			zap.String("from", fmt.Sprintf("%T", from)),
			zap.String("to", fmt.Sprintf("%T", to)))
	}
	return AppModel{
		router: r,
		flow:   f,
	}
}

func (m AppModel) Init() tea.Cmd {
	return m.router.Active().Init()
}

func (m AppModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		return m, nil

	case tea.KeyPressMsg:
		if msg.String() == "ctrl+c" {
			m.flow.Log().Warn("run interrupted")
			return m, tea.Quit
		}

	case tea.MouseClickMsg:
		mouse := msg.Mouse()
		if mouse.Button != tea.MouseLeft {
			return m, nil
		}
		click, ok := m.contentClick(mouse.X, mouse.Y)
		if !ok {
			return m, nil
		}
		return m, m.router.Update(click)

	case screen.FatalMsg:
		m.err = msg.Err
		m.flow.Log().Error("study aborted", zap.Error(msg.Err))
		return m, tea.Quit
	}

	cmd := m.router.Update(msg)
	return m, cmd
}

// contentClick translates terminal coordinates into the content area
// between header and footer.
func (m AppModel) contentClick(x, y int) (screen.ClickMsg, bool) {
	w, h := m.width, layout.ContentHeight(m.height)
	cy := y - layout.HeaderHeight
	if w <= 0 || h <= 0 || cy < 0 || cy >= h {
		return screen.ClickMsg{}, false
	}
	return screen.ClickMsg{X: x, Y: cy, Width: w, Height: h}, true
}

func (m AppModel) View() tea.View {
	v := tea.NewView("")
	v.AltScreen = true
	v.MouseMode = tea.MouseModeCellMotion

	if m.width == 0 || m.height == 0 {
		return v
	}

	if layout.IsTooSmall(m.width, m.height) {
		v.SetContent(layout.RenderMinSizeMessage(m.width, m.height))
		return v
	}

	active := m.router.Active()
	title := ""
	if active != nil {
		title = active.Title()
	}

	header := layout.RenderHeader(title, m.status(), m.width)

	footerHints := []layout.KeyHint{{Key: "Ctrl+C", Description: "Quit"}}
	if hp, ok := active.(screen.KeyHintProvider); ok {
		footerHints = append(hp.KeyHints(), footerHints...)
	}
	footer := layout.RenderFooter(footerHints, m.width)

	headerHeight := lipgloss.Height(header)
	footerHeight := lipgloss.Height(footer)
	contentHeight := m.height - headerHeight - footerHeight
	if contentHeight < 0 {
		contentHeight = 0
	}

	content := m.router.View(m.width, contentHeight)
	frame := layout.RenderFrame(header, content, footer, m.width, m.height)

	v.SetContent(frame)
	return v
}

func (m AppModel) status() string {
	s := ""
	if m.flow.Session != nil {
		s = string(m.flow.Session.Phase())
	}
	if m.flow.Preview {
		if s != "" {
			s += " · "
		}
		s += "preview"
	}
	return s
}

// ErrNoFlow is returned by Run without a flow.
var ErrNoFlow = errors.New("app: flow is required")

// Run starts the Bubble Tea program. It returns the error that aborted
// the study, if any.
func Run(f *flow.Flow) error {
	if f == nil {
		return ErrNoFlow
	}
	p := tea.NewProgram(newAppModel(f))
	final, err := p.Run()
	if err != nil {
		fmt.Fprintln(os.Stderr, "Error running program:", err)
		return err
	}
	if m, ok := final.(AppModel); ok && m.err != nil {
		return m.err
	}
	return nil
}
