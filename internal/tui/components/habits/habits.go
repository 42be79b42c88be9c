package habits

import (
	"fmt"

	"github.com/charmbracelet/bubbles/list"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/julianstephens/lifeplan/internal/planner"
)

type Item struct {
	planner.HabitStreak
}

func (i Item) Title() string {
	if i.Stats.Current > 0 {
		return fmt.Sprintf("🔥 %s", i.Habit.Name)
	}
	return "○ " + i.Habit.Name
}

func (i Item) Description() string {
	s := i.Stats
	desc := fmt.Sprintf("streak %d · best %d · %d/%d done", s.Current, s.Longest, s.Done, s.Due)
	if s.Due > 0 {
		desc += fmt.Sprintf(" (%.0f%%)", s.CompletionRate*100)
	}
	if s.LastDone != nil {
		desc += " · last " + s.LastDone.String()
	}
	return desc
}

func (i Item) FilterValue() string { return i.Habit.Name }

type Model struct {
	list list.Model
}

func New(width, height int) Model {
	l := list.New(nil, list.NewDefaultDelegate(), width, height)
	l.Title = "Habits"
	l.SetShowTitle(false)
	l.SetShowHelp(false)
	l.SetStatusBarItemName("habit", "habits")
	return Model{list: l}
}

func (m *Model) SetSize(width, height int) {
	m.list.SetSize(width, height)
}

func (m *Model) SetStreaks(streaks []planner.HabitStreak) tea.Cmd {
	items := make([]list.Item, len(streaks))
	for i, s := range streaks {
		items[i] = Item{s}
	}
	return m.list.SetItems(items)
}

func (m Model) Update(msg tea.Msg) (Model, tea.Cmd) {
	var cmd tea.Cmd
	m.list, cmd = m.list.Update(msg)
	return m, cmd
}

func (m Model) View() string {
	return m.list.View()
}
