// Package theme holds the colours the planner TUI gives instance statuses and views.
package theme

import (
	"github.com/charmbracelet/lipgloss"

	"github.com/julianstephens/lifeplan/internal/constants"
)

// Each colour has a light and a dark terminal variant.
var (
	Pending = lipgloss.AdaptiveColor{Light: "#1F6FB2", Dark: "#5FAFFF"}
	Done    = lipgloss.AdaptiveColor{Light: "#2E7D32", Dark: "#87D787"}
	Skipped = lipgloss.AdaptiveColor{Light: "#8A8A8A", Dark: "#767676"}
	Money   = lipgloss.AdaptiveColor{Light: "#A66A00", Dark: "#FFC15E"}
	Muted   = lipgloss.AdaptiveColor{Light: "#9E9E9E", Dark: "#6C6C6C"}
	Alert   = lipgloss.AdaptiveColor{Light: "#C62828", Dark: "#FF5F5F"}
)

// StatusColor returns the colour of an instance status. Unknown values read as pending.
func StatusColor(s constants.InstanceStatus) lipgloss.AdaptiveColor {
	switch s {
	case constants.StatusDone:
		return Done
	case constants.StatusSkipped:
		return Skipped
	default:
		return Pending
	}
}

// Status styles text in the colour of s. Skipped work is also struck through.
func Status(s constants.InstanceStatus) lipgloss.Style {
	style := lipgloss.NewStyle().Foreground(StatusColor(s))
	if s == constants.StatusSkipped {
		style = style.Strikethrough(true)
	}
	return style
}

// StatusLabel is the plain glyph and name shown for s in tables
func StatusLabel(s constants.InstanceStatus) string {
	switch s {
	case constants.StatusDone:
		return "✓ done"
	case constants.StatusSkipped:
		return "– skipped"
	default:
		return "○ pending"
	}
}
