package agenda

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/table"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/julianstephens/lifeplan/internal/constants"
	"github.com/julianstephens/lifeplan/internal/planner"
	"github.com/julianstephens/lifeplan/internal/tui/theme"
)

var (
	headerStyle = lipgloss.NewStyle().
			BorderStyle(lipgloss.NormalBorder()).
			BorderForeground(lipgloss.Color("240")).
			BorderBottom(true).
			Bold(true)

	selectedStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("229")).
			Background(lipgloss.Color("57"))

	emptyStyle = lipgloss.NewStyle().
			Foreground(theme.Muted).
			Italic(true)
)

var tallyOrder = []constants.InstanceStatus{constants.StatusPending, constants.StatusDone, constants.StatusSkipped}

type Model struct {
	table table.Model
	items []planner.Item
}

func New(width, height int) Model {
	t := table.New(
		table.WithColumns(columns(width)),
		table.WithFocused(true),
		table.WithHeight(height),
	)
	styles := table.DefaultStyles()
	styles.Header = headerStyle
	styles.Selected = selectedStyle
	t.SetStyles(styles)
	return Model{table: t}
}

func columns(width int) []table.Column {
	title := width - 11 - 7 - 16 - 9 - 10
	if title < 16 {
		title = 16
	}
	return []table.Column{
		{Title: "Day", Width: 11},
		{Title: "Time", Width: 7},
		{Title: "Title", Width: title},
		{Title: "Amount", Width: 16},
		{Title: "Status", Width: 9},
	}
}

func (m *Model) SetSize(width, height int) {
	m.table.SetColumns(columns(width))
	// one line for the tally
	m.table.SetHeight(height - 1)
}

// SetItems replaces the rows and keeps the cursor on the same row where possible
func (m *Model) SetItems(items []planner.Item) {
	m.items = items
	rows := make([]table.Row, len(items))
	for i, it := range items {
		rows[i] = table.Row{it.Day.String(), timeCell(it), it.Title, amountCell(it), theme.StatusLabel(it.Status)}
	}
	m.table.SetRows(rows)
	if c := m.table.Cursor(); c >= len(rows) && len(rows) > 0 {
		m.table.SetCursor(len(rows) - 1)
	}
}

// Selected returns the item under the cursor
func (m Model) Selected() (planner.Item, bool) {
	c := m.table.Cursor()
	if c < 0 || c >= len(m.items) {
		return planner.Item{}, false
	}
	return m.items[c], true
}

func (m Model) Update(msg tea.Msg) (Model, tea.Cmd) {
	var cmd tea.Cmd
	m.table, cmd = m.table.Update(msg)
	return m, cmd
}

func (m Model) View() string {
	if len(m.items) == 0 {
		return emptyStyle.Render("Nothing scheduled in this range.")
	}
	return lipgloss.JoinVertical(lipgloss.Left, m.table.View(), m.Tally())
}

// Tally counts the range's instances per status, each count in its status colour
func (m Model) Tally() string {
	counts := make(map[constants.InstanceStatus]int, len(tallyOrder))
	for _, it := range m.items {
		counts[it.Status]++
	}
	parts := make([]string, 0, len(tallyOrder))
	for _, s := range tallyOrder {
		parts = append(parts, theme.Status(s).Render(fmt.Sprintf("%d %s", counts[s], s)))
	}
	return strings.Join(parts, " · ")
}

func timeCell(it planner.Item) string {
	if it.LocalTime == "" {
		return "all day"
	}
	return it.LocalTime
}

func amountCell(it planner.Item) string {
	if it.OwnerKind != constants.OwnerTransaction {
		return ""
	}
	return fmt.Sprintf("%s %s", it.Amount.StringFixed(2), it.Currency)
}
