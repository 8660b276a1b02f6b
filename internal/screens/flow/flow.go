// Package flow carries what every study slide needs: the visit's session
// context, the submission sink and the run-wide flags.
package flow

import (
	"time"

	tea "charm.land/bubbletea/v2"
	"go.uber.org/zap"

	"github.com/abhisek/trialgate/internal/router"
	"github.com/abhisek/trialgate/internal/screen"
	"github.com/abhisek/trialgate/internal/session"
)

// PreviewMessage is shown when a valid code is entered in preview mode.
const PreviewMessage = "This code is valid but cannot submit while in preview mode."

// Flow is shared by the slides of one run.
type Flow struct {
	Session   *session.Context
	Submitter session.Submitter

	// NewSession builds the visit context once the phase is picked.
	NewSession func(session.Phase) (*session.Context, error)

	// Preview lets a subject look at the study without running it.
	Preview bool

	// AssetRoot is the directory stimulus paths resolve against. Empty
	// skips the preload check.
	AssetRoot string

	Logger *zap.Logger
	Clock  func() time.Time
}

// Now returns the flow's current time.
func (f *Flow) Now() time.Time {
	if f.Clock == nil {
		return time.Now()
	}
	return f.Clock()
}

// Log returns the flow logger, or a no-op logger.
func (f *Flow) Log() *zap.Logger {
	if f.Logger == nil {
		return zap.NewNop()
	}
	return f.Logger
}

// Replace returns a command that swaps the active slide for s.
func Replace(s screen.Screen) tea.Cmd {
	return func() tea.Msg {
		return router.ReplaceScreenMsg{Screen: s}
	}
}

// Fatal returns a command that aborts the run with err.
func Fatal(err error) tea.Cmd {
	return func() tea.Msg {
		return screen.FatalMsg{Err: err}
	}
}
