// Package router moves the study forward through its slides. There is
// exactly one active slide and no way back to an earlier one.
package router

import (
	tea "charm.land/bubbletea/v2"

	"github.com/abhisek/trialgate/internal/screen"
)

// ReplaceScreenMsg asks the router to show Screen in place of the active
// slide.
type ReplaceScreenMsg struct {
	Screen screen.Screen
}

// Router holds the active slide and the titles of every slide shown so far.
type Router struct {
	active screen.Screen
	trail  []string

	// OnChange, if set, is called with the previous and the new slide on
	// every replacement.
	OnChange func(from, to screen.Screen)
}

// New creates a router showing initial.
func New(initial screen.Screen) *Router {
	r := &Router{active: initial}
	if initial != nil {
		r.trail = append(r.trail, initial.Title())
	}
	return r
}

// Replace makes s the active slide and returns its Init command. A nil
// slide is ignored.
func (r *Router) Replace(s screen.Screen) tea.Cmd {
	if s == nil {
		return nil
	}
	from := r.active
	r.active = s
	r.trail = append(r.trail, s.Title())
	if r.OnChange != nil {
		r.OnChange(from, s)
	}
	return s.Init()
}

// Active returns the slide currently shown.
func (r *Router) Active() screen.Screen { return r.active }

// Trail returns the titles of all slides shown, oldest first.
func (r *Router) Trail() []string {
	return append([]string(nil), r.trail...)
}

// Update handles ReplaceScreenMsg and forwards every other message to the
// active slide.
func (r *Router) Update(msg tea.Msg) tea.Cmd {
	if msg, ok := msg.(ReplaceScreenMsg); ok {
		return r.Replace(msg.Screen)
	}
	if r.active == nil {
		return nil
	}
	var cmd tea.Cmd
	r.active, cmd = r.active.Update(msg)
	return cmd
}

// View renders the active slide.
func (r *Router) View(width, height int) string {
	if r.active == nil {
		return ""
	}
	return r.active.View(width, height)
}
