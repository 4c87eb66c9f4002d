package main

import (
	"github.com/charmbracelet/lipgloss"
)

var (
	accent = lipgloss.Color("#8BC34A")
	danger = lipgloss.Color("#E5534B")
	warn   = lipgloss.Color("#D29922")
	muted  = lipgloss.Color("#8B949E")

	titleStyle   = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#58A6FF"))
	okStyle      = lipgloss.NewStyle().Bold(true).Foreground(accent)
	errorStyle   = lipgloss.NewStyle().Bold(true).Foreground(danger)
	pendingStyle = lipgloss.NewStyle().Bold(true).Foreground(warn)
	mutedStyle   = lipgloss.NewStyle().Foreground(muted)
	labelStyle   = lipgloss.NewStyle().Width(14).Foreground(muted)

	boxStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(muted).
			Padding(0, 1)
)

// statusStyle colours a run status or health state.
func statusStyle(status string) lipgloss.Style {
	switch status {
	case "completed", "accepted", "up":
		return okStyle
	case "failed", "down":
		return errorStyle
	case "queued", "processing", "duplicate":
		return pendingStyle
	default:
		return mutedStyle
	}
}

func field(label, value string) string {
	return lipgloss.JoinHorizontal(lipgloss.Top, labelStyle.Render(label), value)
}
