package tui

import (
	"context"
	"fmt"

	"github.com/charmbracelet/lipgloss"

	"github.com/julianstephens/lifeplan/internal/logicalday"
)

func (m Model) View() string {
	if m.quitting {
		return ""
	}

	var content string
	switch {
	case m.err != nil && !m.loaded:
		content = errorStyle.Render("Error: " + m.err.Error())
	case !m.loaded:
		content = "Loading..."
	default:
		switch m.state {
		case StateAgenda:
			content = m.agenda.View()
		case StateHabits:
			content = m.habits.View()
		case StateLedger:
			content = m.ledger.View()
		}
	}

	ui := lipgloss.JoinVertical(
		lipgloss.Left,
		m.viewTabs(),
		frameStyle.Render(content),
		m.viewStatus(),
		m.help.View(m),
	)
	return ui
}

func (m Model) viewTabs() string {
	var tabs []string
	for i, title := range tabTitles {
		state := SessionState(i)
		tabs = append(tabs, tabFor(state, m.state == state).Render(title))
	}
	tabs = append(tabs, rangeStyle.Render(fmt.Sprintf("%s → %s", m.start, m.end())))
	return lipgloss.JoinHorizontal(lipgloss.Top, tabs...)
}

func (m Model) viewStatus() string {
	switch {
	case m.err != nil && m.loaded:
		return errorStyle.Render(m.err.Error())
	case m.notice != "":
		return noticeStyle.Render("⚠ " + m.notice)
	case m.marked != "":
		return markStyle(m.marked).Render(m.status)
	default:
		return rangeStyle.Render(m.status)
	}
}

func (m Model) today() logicalday.Date {
	day, err := m.planner.Today(context.Background(), m.userID)
	if err != nil {
		return m.start
	}
	return day.Date
}
