// Package ui holds the view components composed by the root application
// model: the frame layout and the per-section list views.
package ui

import (
	"github.com/charmbracelet/lipgloss"

	"monodash/internal/theme"
)

// Layout manages the terminal frame dimensions: a header, two side-by-side
// sections, and a status bar.
type Layout struct {
	Width           int
	Height          int
	HeaderHeight    int
	StatusBarHeight int
}

// NewLayout creates a Layout with the given terminal dimensions.
// HeaderHeight and StatusBarHeight default to 1.
func NewLayout(width, height int) Layout {
	return Layout{
		Width:           width,
		Height:          height,
		HeaderHeight:    1,
		StatusBarHeight: 1,
	}
}

// SectionWidths splits the content width evenly between the two sections,
// giving the left section the odd column.
func (l Layout) SectionWidths() (left, right int) {
	right = l.Width / 2
	left = l.Width - right
	return left, right
}

// SectionHeight returns the height available to each section, accounting
// for the header and status bar.
func (l Layout) SectionHeight() int {
	h := l.Height - l.HeaderHeight - l.StatusBarHeight
	if h < 0 {
		return 0
	}
	return h
}

// RenderHeader renders the top header bar with a title and a right-aligned
// status summary.
func (l Layout) RenderHeader(title string, summary string) string {
	titleRendered := theme.TitleStyle.Render(title)

	summaryRendered := theme.TitleStyle.
		Align(lipgloss.Right).
		Render(summary)

	gap := l.Width -
		lipgloss.Width(titleRendered) -
		lipgloss.Width(summaryRendered)
	if gap < 0 {
		gap = 0
	}

	filler := theme.TitleStyle.Render(
		lipgloss.NewStyle().
			Width(gap).
			Background(theme.TitleStyle.GetBackground()).
			Render(""),
	)

	return lipgloss.JoinHorizontal(
		lipgloss.Top,
		titleRendered,
		filler,
		summaryRendered,
	)
}

// RenderStatusBar renders the bottom status bar with keyboard hints.
func (l Layout) RenderStatusBar(hints string) string {
	rendered := theme.StatusBarStyle.Render(hints)

	gap := l.Width - lipgloss.Width(rendered)
	if gap < 0 {
		gap = 0
	}

	filler := theme.StatusBarStyle.Render(
		lipgloss.NewStyle().
			Width(gap).
			Background(theme.StatusBarStyle.GetBackground()).
			Render(""),
	)

	return lipgloss.JoinHorizontal(lipgloss.Top, rendered, filler)
}

// RenderFrame composes the full terminal view: header on top, the two
// sections side by side, and the status bar at the bottom.
func (l Layout) RenderFrame(header, left, right, statusBar string) string {
	content := lipgloss.JoinHorizontal(lipgloss.Top, left, right)
	return lipgloss.JoinVertical(
		lipgloss.Left,
		header,
		content,
		statusBar,
	)
}
