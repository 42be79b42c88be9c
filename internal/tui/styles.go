package tui

import (
	"github.com/charmbracelet/lipgloss"

	"github.com/julianstephens/lifeplan/internal/constants"
	"github.com/julianstephens/lifeplan/internal/tui/theme"
)

// tabAccents colours each tab after what it shows: open work, completed habits, money.
var tabAccents = map[SessionState]lipgloss.AdaptiveColor{
	StateAgenda: theme.Pending,
	StateHabits: theme.Done,
	StateLedger: theme.Money,
}

var (
	tabStyle = lipgloss.NewStyle().Padding(0, 1)

	rangeStyle = lipgloss.NewStyle().
			Foreground(theme.Muted).
			Padding(0, 1)

	errorStyle = lipgloss.NewStyle().
			Foreground(theme.Alert).
			Bold(true)

	noticeStyle = lipgloss.NewStyle().
			Foreground(theme.Money).
			Italic(true)

	frameStyle = lipgloss.NewStyle().Padding(1, 2)
)

// tabFor underlines the active tab in its accent and dims the rest
func tabFor(state SessionState, active bool) lipgloss.Style {
	if !active {
		return tabStyle.Foreground(theme.Muted)
	}
	return tabStyle.
		Foreground(tabAccents[state]).
		Bold(true).
		Underline(true)
}

// markStyle renders the status line after an instance was marked
func markStyle(status constants.InstanceStatus) lipgloss.Style {
	return lipgloss.NewStyle().
		Foreground(theme.StatusColor(status)).
		Bold(true).
		Padding(0, 1)
}
