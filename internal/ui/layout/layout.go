package layout

import (
	"fmt"
	"strings"

	"charm.land/lipgloss/v2"

	"github.com/abhisek/trialgate/internal/ui/theme"
)

const (
	// MinWidth and MinHeight fit the 2x2 choice grid with readable paths.
	MinWidth  = 60
	MinHeight = 20

	HeaderHeight = 3
	FooterHeight = 3
)

// KeyHint is a key binding shown in the footer.
type KeyHint struct {
	Key         string
	Description string
}

// IsTooSmall reports whether the terminal is below the minimum size.
func IsTooSmall(width, height int) bool {
	return width < MinWidth || height < MinHeight
}

// ClampWidth returns width capped at limit and never below zero.
func ClampWidth(width, limit int) int {
	return max(min(width, limit), 0)
}

// ContentHeight returns the rows left for a slide between header and footer.
func ContentHeight(totalHeight int) int {
	return max(totalHeight-HeaderHeight-FooterHeight, 0)
}

// RenderMinSizeMessage asks the participant to enlarge the terminal. Trials
// do not run while it is shown.
func RenderMinSizeMessage(width, height int) string {
	msg := strings.Join([]string{
		theme.Title.Render("Please enlarge this window"),
		"",
		theme.Body.Render(fmt.Sprintf("The study needs at least %d x %d.", MinWidth, MinHeight)),
		theme.Hint.Render(fmt.Sprintf("Current: %d x %d", width, height)),
	}, "\n")
	return lipgloss.Place(width, height, lipgloss.Center, lipgloss.Center, msg)
}

func bar(content string, width int) string {
	return lipgloss.NewStyle().
		Width(width).
		Background(theme.BgCard).
		Border(lipgloss.RoundedBorder()).
		BorderForeground(theme.Border).
		Render(content)
}

// RenderHeader renders the top bar: the app name, the slide title centered
// and status (phase, preview marker) on the right.
func RenderHeader(title, status string, width int) string {
	left := lipgloss.NewStyle().Foreground(theme.Primary).Bold(true).Render("  Trialgate")
	center := theme.Body.Render(title)
	right := lipgloss.NewStyle().Foreground(theme.Accent).Render(status)

	inner := max(width-4, 0)
	leftGap := max((inner-lipgloss.Width(center))/2-lipgloss.Width(left), 1)
	rightGap := max(inner-lipgloss.Width(left)-leftGap-lipgloss.Width(center)-lipgloss.Width(right), 1)

	return bar(left+strings.Repeat(" ", leftGap)+center+strings.Repeat(" ", rightGap)+right, width)
}

// RenderFooter renders the key hints of the active slide.
func RenderFooter(hints []KeyHint, width int) string {
	parts := make([]string, 0, len(hints))
	for _, h := range hints {
		parts = append(parts, theme.KeyCap.Render(h.Key)+" "+theme.Hint.Render(h.Description))
	}
	return bar("  "+strings.Join(parts, "   "), width)
}

// RenderFrame stacks header, content and footer, sizing content to the
// rows in between.
func RenderFrame(header, content, footer string, width, height int) string {
	rows := max(height-lipgloss.Height(header)-lipgloss.Height(footer), 0)
	body := lipgloss.NewStyle().Width(width).Height(rows).Render(content)
	return lipgloss.JoinVertical(lipgloss.Left, header, body, footer)
}
