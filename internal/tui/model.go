package tui

import (
	"context"
	"fmt"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/julianstephens/lifeplan/internal/constants"
	"github.com/julianstephens/lifeplan/internal/logicalday"
	"github.com/julianstephens/lifeplan/internal/planner"
	"github.com/julianstephens/lifeplan/internal/tui/components/agenda"
	"github.com/julianstephens/lifeplan/internal/tui/components/habits"
	"github.com/julianstephens/lifeplan/internal/tui/components/ledger"
)

type SessionState int

const (
	StateAgenda SessionState = iota
	StateHabits
	StateLedger
)

var tabTitles = []string{"Agenda", "Habits", "Ledger"}

type loadedMsg struct {
	agenda  planner.Agenda
	streaks []planner.HabitStreak
	ledger  planner.LedgerReport
}

type markedMsg struct {
	title  string
	status constants.InstanceStatus
}

type errMsg struct{ err error }

type Model struct {
	planner *planner.Service
	userID  string
	days    int
	start   logicalday.Date

	state    SessionState
	keys     KeyMap
	help     help.Model
	agenda   agenda.Model
	habits   habits.Model
	ledger   ledger.Model
	loaded   bool
	status   string
	marked   constants.InstanceStatus
	notice   string
	err      error
	width    int
	height   int
	quitting bool
}

// NewModel shows days days starting at the user's logical today
func NewModel(p *planner.Service, userID string, days int) Model {
	if days < 1 {
		days = 7
	}
	m := Model{
		planner: p,
		userID:  userID,
		days:    days,
		keys:    DefaultKeyMap(),
		help:    help.New(),
		agenda:  agenda.New(0, 0),
		habits:  habits.New(0, 0),
		ledger:  ledger.New(0, 0),
	}
	if today, err := p.Today(context.Background(), userID); err != nil {
		m.err = err
	} else {
		m.start = today.Date
	}
	return m
}

func (m Model) end() logicalday.Date {
	return m.start.AddDays(m.days - 1)
}

func (m Model) ShortHelp() []key.Binding {
	keys := []key.Binding{m.keys.Tab, m.keys.Quit, m.keys.Help}
	if m.state == StateAgenda {
		keys = append(keys, m.keys.Done, m.keys.Skip, m.keys.Prev, m.keys.Next)
	}
	return keys
}

func (m Model) FullHelp() [][]key.Binding {
	return m.keys.FullHelp()
}

func (m Model) Init() tea.Cmd {
	if m.err != nil {
		return nil
	}
	return m.load()
}

// load reads everything the tabs show for the current range
func (m Model) load() tea.Cmd {
	p, userID, start, end := m.planner, m.userID, m.start, m.end()
	return func() tea.Msg {
		ctx := context.Background()
		a, err := p.Agenda(ctx, userID, start, end)
		if err != nil {
			return errMsg{err}
		}
		streaks, err := p.Streaks(ctx, userID)
		if err != nil {
			return errMsg{err}
		}
		l, err := p.Ledger(ctx, userID, start, end)
		if err != nil {
			return errMsg{err}
		}
		return loadedMsg{agenda: a, streaks: streaks, ledger: l}
	}
}

func (m Model) mark(status constants.InstanceStatus) tea.Cmd {
	item, ok := m.agenda.Selected()
	if !ok || item.Status == status {
		return nil
	}
	p, userID := m.planner, m.userID
	return func() tea.Msg {
		if _, err := p.Mark(context.Background(), userID, item.ID, string(status)); err != nil {
			return errMsg{fmt.Errorf("failed to mark %s: %w", item.Title, err)}
		}
		return markedMsg{title: item.Title, status: status}
	}
}
