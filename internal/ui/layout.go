package ui

import (
	"github.com/charmbracelet/lipgloss"

	"github.com/nhle/mailterm/internal/theme"
)

// Layout manages the terminal layout dimensions.
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

// ContentWidth returns the full available width.
func (l Layout) ContentWidth() int {
	return l.Width
}

// ContentHeight returns the height available for the main content area,
// accounting for the header and status bar.
func (l Layout) ContentHeight() int {
	h := l.Height - l.HeaderHeight - l.StatusBarHeight
	if h < 0 {
		return 0
	}
	return h
}

// RenderHeader renders the top bar with the view title on the left and
// the signed-in user on the right.
func (l Layout) RenderHeader(title string, user string) string {
	titleRendered := theme.HeaderStyle.Render(title)
	userRendered := theme.HeaderStyle.
		Align(lipgloss.Right).
		Render(user)

	return l.fill(theme.HeaderStyle, titleRendered, userRendered)
}

// RenderStatusBar renders the bottom bar: a status or key hints on the left
// and the page counter on the right.
func (l Layout) RenderStatusBar(left lipgloss.Style, text string, counter string) string {
	rendered := left.Render(text)
	counterRendered := theme.StatusBarStyle.Render(counter)

	return l.fill(theme.StatusBarStyle, rendered, counterRendered)
}

// fill joins left and right with a background-coloured gap so the bar
// spans the full width.
func (l Layout) fill(style lipgloss.Style, left, right string) string {
	gap := l.Width -
		lipgloss.Width(left) -
		lipgloss.Width(right)
	if gap < 0 {
		gap = 0
	}

	filler := lipgloss.NewStyle().
		Width(gap).
		Background(style.GetBackground()).
		Render("")

	return lipgloss.JoinHorizontal(lipgloss.Top, left, filler, right)
}

// RenderWithFrame composes a full terminal view by vertically joining
// the header, content area, and status bar.
func (l Layout) RenderWithFrame(
	header string,
	content string,
	statusBar string,
) string {
	content = lipgloss.NewStyle().
		Height(l.ContentHeight()).
		MaxHeight(l.ContentHeight()).
		Render(content)

	return lipgloss.JoinVertical(
		lipgloss.Left,
		header,
		content,
		statusBar,
	)
}
