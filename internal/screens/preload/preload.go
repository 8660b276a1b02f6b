// Package preload checks that every stimulus image of the session is
// present before the trials begin.
package preload

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	tea "charm.land/bubbletea/v2"
	"charm.land/lipgloss/v2"
	"go.uber.org/zap"

	"github.com/abhisek/trialgate/internal/screen"
	"github.com/abhisek/trialgate/internal/screens/flow"
	"github.com/abhisek/trialgate/internal/ui/components"
	"github.com/abhisek/trialgate/internal/ui/layout"
	"github.com/abhisek/trialgate/internal/ui/theme"
)

type assetMsg struct {
	index int
	err   error
}

// PreloadScreen checks the session's assets one at a time, then moves on
// to the screen built by next. Missing assets hold the screen until the
// subject presses enter.
type PreloadScreen struct {
	f            *flow.Flow
	next         func() screen.Screen
	assets       []string
	loaded       int
	missing      []string
	transitioned bool
}

var _ screen.Screen = (*PreloadScreen)(nil)

// New creates a preload slide for f's session assets.
func New(f *flow.Flow, next func() screen.Screen) *PreloadScreen {
	return &PreloadScreen{
		f:      f,
		next:   next,
		assets: f.Session.Assets(),
	}
}

func (p *PreloadScreen) Title() string { return "Loading" }

func (p *PreloadScreen) Init() tea.Cmd {
	if len(p.assets) == 0 {
		return p.transition()
	}
	return p.check(0)
}

func (p *PreloadScreen) check(i int) tea.Cmd {
	root, asset := p.f.AssetRoot, p.assets[i]
	return func() tea.Msg {
		if root == "" {
			return assetMsg{index: i}
		}
		path := filepath.FromSlash(asset)
		if !filepath.IsAbs(path) {
			path = filepath.Join(root, path)
		}
		_, err := os.Stat(path)
		return assetMsg{index: i, err: err}
	}
}

func (p *PreloadScreen) Update(msg tea.Msg) (screen.Screen, tea.Cmd) {
	switch msg := msg.(type) {
	case assetMsg:
		if msg.index != p.loaded {
			return p, nil
		}
		if msg.err != nil {
			p.missing = append(p.missing, p.assets[msg.index])
			p.f.Log().Warn("stimulus missing",
				zap.String("asset", p.assets[msg.index]),
				zap.Error(msg.err),
			)
		}
		p.loaded++
		if p.loaded < len(p.assets) {
			return p, p.check(p.loaded)
		}
		if len(p.missing) == 0 {
			return p, p.transition()
		}
		return p, nil

	case tea.KeyPressMsg:
		if p.Done() && msg.String() == "enter" {
			return p, p.transition()
		}
	}
	return p, nil
}

// Done reports whether every asset has been checked.
func (p *PreloadScreen) Done() bool { return p.loaded == len(p.assets) }

// Missing returns the assets that could not be found.
func (p *PreloadScreen) Missing() []string { return p.missing }

func (p *PreloadScreen) transition() tea.Cmd {
	if p.transitioned {
		return nil
	}
	p.transitioned = true
	return flow.Replace(p.next())
}

func (p *PreloadScreen) View(width, height int) string {
	barWidth := layout.ClampWidth(width-10, 60)
	lines := []string{
		theme.Title.Render("Loading images"),
		"",
		components.NewCountBar(p.loaded, len(p.assets), barWidth).View(),
	}
	if p.Done() && len(p.missing) > 0 {
		lines = append(lines, "", theme.Invalid.Render(fmt.Sprintf("%d image(s) could not be found:", len(p.missing))))
		for _, m := range p.missing {
			lines = append(lines, theme.Body.Render("  "+m))
		}
		lines = append(lines, "", theme.Hint.Render("press enter to continue anyway"))
	}
	return lipgloss.Place(width, height, lipgloss.Center, lipgloss.Center, strings.Join(lines, "\n"))
}
