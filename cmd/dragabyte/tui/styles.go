// Package tui renders the interactive scan progress view for the dragabyte
// CLI using Bubble Tea, Lip Gloss and Bubbles.
package tui

import (
	"strings"

	"github.com/charmbracelet/lipgloss"
)

// Color palette for the TUI.
var (
	primaryColor = lipgloss.Color("#7D56F4")
	accentColor  = lipgloss.Color("#00D9FF")
	successColor = lipgloss.Color("#28A745")
	warningColor = lipgloss.Color("#FFC107")
	dangerColor  = lipgloss.Color("#DC3545")
	mutedColor   = lipgloss.Color("#666666")
	borderColor  = lipgloss.Color("#333333")
)

var (
	outerBoxStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(primaryColor).
			Padding(0, 1)

	dividerStyle = lipgloss.NewStyle().Foreground(borderColor)

	titleStyle       = lipgloss.NewStyle().Bold(true).Foreground(primaryColor)
	mutedTextStyle   = lipgloss.NewStyle().Foreground(mutedColor)
	errorTextStyle   = lipgloss.NewStyle().Foreground(dangerColor)
	successTextStyle = lipgloss.NewStyle().Foreground(successColor)
	warningTextStyle = lipgloss.NewStyle().Foreground(warningColor)

	sizeStyle = lipgloss.NewStyle().Foreground(accentColor).Bold(true)
	nameStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#CCCCCC"))
)

// Stat boxes.
var (
	statsBoxStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(borderColor).
			Padding(0, 1)

	statsLabelStyle = lipgloss.NewStyle().Foreground(mutedColor)
	statsValueStyle = lipgloss.NewStyle().Bold(true).Foreground(accentColor)
)

// Share bars for the biggest children.
var (
	barFillStyle  = lipgloss.NewStyle().Foreground(primaryColor)
	barEmptyStyle = lipgloss.NewStyle().Foreground(borderColor)
)

func renderDivider(width int) string {
	if width < 1 {
		width = 1
	}
	return dividerStyle.Render(repeat("─", width))
}

func repeat(s string, n int) string {
	if n <= 0 {
		return ""
	}
	return strings.Repeat(s, n)
}

// center pads s on both sides to width.
func center(s string, width int) string {
	w := lipgloss.Width(s)
	if w >= width {
		return s
	}
	left := (width - w) / 2
	return repeat(" ", left) + s + repeat(" ", width-w-left)
}

// truncatePath shortens path from the left to limit runes.
func truncatePath(path string, limit int) string {
	runes := []rune(path)
	if limit < 4 || len(runes) <= limit {
		return path
	}
	return "..." + string(runes[len(runes)-limit+3:])
}
