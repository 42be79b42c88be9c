package tui

import (
	"fmt"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/julianstephens/lifeplan/internal/constants"
)

const chromeHeight = 4

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.help.Width = msg.Width
		inner := msg.Height - chromeHeight - 2
		if inner < 3 {
			inner = 3
		}
		m.agenda.SetSize(msg.Width-4, inner)
		m.habits.SetSize(msg.Width-4, inner)
		m.ledger.SetSize(msg.Width-4, inner)
		return m, nil

	case loadedMsg:
		m.loaded = true
		m.err = nil
		m.notice = msg.agenda.Notice
		m.agenda.SetItems(msg.agenda.Items)
		m.ledger.SetReport(msg.ledger)
		return m, m.habits.SetStreaks(msg.streaks)

	case markedMsg:
		m.status = fmt.Sprintf("%s → %s", msg.title, msg.status)
		m.marked = msg.status
		return m, m.load()

	case errMsg:
		m.err = msg.err
		return m, nil

	case tea.KeyMsg:
		switch {
		case key.Matches(msg, m.keys.Quit):
			m.quitting = true
			return m, tea.Quit
		case key.Matches(msg, m.keys.Help):
			m.help.ShowAll = !m.help.ShowAll
			return m, nil
		case key.Matches(msg, m.keys.Tab):
			m.state = (m.state + 1) % SessionState(len(tabTitles))
			return m, nil
		case key.Matches(msg, m.keys.ShiftTab):
			m.state = (m.state - 1 + SessionState(len(tabTitles))) % SessionState(len(tabTitles))
			return m, nil
		case key.Matches(msg, m.keys.Refresh):
			return m, m.load()
		case key.Matches(msg, m.keys.Prev):
			m.start = m.start.AddDays(-m.days)
			return m, m.load()
		case key.Matches(msg, m.keys.Next):
			m.start = m.start.AddDays(m.days)
			return m, m.load()
		case key.Matches(msg, m.keys.Today):
			m.start = m.today()
			return m, m.load()
		}

		if m.state == StateAgenda {
			switch {
			case key.Matches(msg, m.keys.Done):
				return m, m.mark(constants.StatusDone)
			case key.Matches(msg, m.keys.Skip):
				return m, m.mark(constants.StatusSkipped)
			case key.Matches(msg, m.keys.Reset):
				return m, m.mark(constants.StatusPending)
			}
		}
	}

	var cmd tea.Cmd
	switch m.state {
	case StateAgenda:
		m.agenda, cmd = m.agenda.Update(msg)
	case StateHabits:
		m.habits, cmd = m.habits.Update(msg)
	case StateLedger:
		m.ledger, cmd = m.ledger.Update(msg)
	}
	return m, cmd
}
