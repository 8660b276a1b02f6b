package components

import (
	"fmt"
	"strings"

	"charm.land/lipgloss/v2"

	"github.com/abhisek/trialgate/internal/ui/theme"
)

const minBarWidth = 4

// CountBar shows how many of Total units are done, e.g. images checked by
// the preloader.
type CountBar struct {
	Done  int
	Total int
	Width int
}

// NewCountBar creates a bar for done out of total, rendered at most width
// cells wide including its counter.
func NewCountBar(done, total, width int) CountBar {
	return CountBar{Done: done, Total: total, Width: width}
}

// Fraction returns Done/Total clamped to [0, 1]. An empty bar is complete.
func (b CountBar) Fraction() float64 {
	if b.Total <= 0 {
		return 1
	}
	return min(max(float64(b.Done)/float64(b.Total), 0), 1)
}

// Counter is the "done / total" text shown after the bar.
func (b CountBar) Counter() string {
	return fmt.Sprintf("%d / %d", min(max(b.Done, 0), b.Total), max(b.Total, 0))
}

// View renders the bar followed by its counter.
func (b CountBar) View() string {
	counter := "  " + b.Counter()
	barWidth := max(b.Width-lipgloss.Width(counter), minBarWidth)
	filled := int(float64(barWidth) * b.Fraction())

	return theme.ProgressFilled.Render(strings.Repeat(" ", filled)) +
		theme.ProgressEmpty.Render(strings.Repeat(" ", barWidth-filled)) +
		theme.Hint.Render(counter)
}
