package tui

import (
	"github.com/charmbracelet/lipgloss"

	"github.com/tuetschek/en-deep/internal/task"
)

// Border styles
var (
	StyleFocusedBorder = lipgloss.NewStyle().
				Border(lipgloss.RoundedBorder()).
				BorderForeground(lipgloss.Color("62"))

	StyleUnfocusedBorder = lipgloss.NewStyle().
				Border(lipgloss.RoundedBorder()).
				BorderForeground(lipgloss.Color("240"))
)

// Status styles
var (
	StyleStatusInProgress = lipgloss.NewStyle().
				Foreground(lipgloss.Color("yellow")).
				Bold(true)

	StyleStatusDone = lipgloss.NewStyle().
			Foreground(lipgloss.Color("green")).
			Bold(true)

	StyleStatusFailed = lipgloss.NewStyle().
				Foreground(lipgloss.Color("red")).
				Bold(true)

	StyleStatusPending = lipgloss.NewStyle().
				Foreground(lipgloss.Color("cyan"))

	StyleStatusWaiting = lipgloss.NewStyle().
				Foreground(lipgloss.Color("240"))
)

// UI element styles
var (
	StyleTitle = lipgloss.NewStyle().
			Bold(true).
			Padding(0, 1)

	StyleHelp = lipgloss.NewStyle().
			Foreground(lipgloss.Color("241"))
)

// statusStyle picks the style for one task status.
func statusStyle(s task.Status) lipgloss.Style {
	switch s {
	case task.StatusInProgress:
		return StyleStatusInProgress
	case task.StatusDone:
		return StyleStatusDone
	case task.StatusFailed:
		return StyleStatusFailed
	case task.StatusPending:
		return StyleStatusPending
	default:
		return StyleStatusWaiting
	}
}
