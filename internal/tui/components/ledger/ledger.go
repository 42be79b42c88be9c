package ledger

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/shopspring/decimal"

	"github.com/julianstephens/lifeplan/internal/planner"
)

var (
	currencyStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("205")).
			Bold(true)

	labelStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("241")).
			Width(14)

	incomeStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("42"))
	expenseStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("203"))
)

type Model struct {
	viewport viewport.Model
	report   *planner.LedgerReport
}

func New(width, height int) Model {
	return Model{viewport: viewport.New(width, height)}
}

func (m *Model) SetSize(width, height int) {
	m.viewport.Width = width
	m.viewport.Height = height
}

func (m *Model) SetReport(r planner.LedgerReport) {
	m.report = &r
	m.viewport.SetContent(Render(r))
}

func (m Model) Update(msg tea.Msg) (Model, tea.Cmd) {
	var cmd tea.Cmd
	m.viewport, cmd = m.viewport.Update(msg)
	return m, cmd
}

func (m Model) View() string {
	if m.report == nil {
		return "Loading ledger..."
	}
	return m.viewport.View()
}

// Render formats a ledger report as a per-currency summary
func Render(r planner.LedgerReport) string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s → %s (%s)\n\n", r.Start, r.End, r.Timezone)
	if len(r.Currencies) == 0 {
		b.WriteString("No recurring transactions in this range.\n")
		return b.String()
	}

	for _, c := range r.Currencies {
		b.WriteString(currencyStyle.Render(c.Currency) + "\n")
		line(&b, "Income", incomeStyle.Render(money(c.Income)))
		line(&b, "Expense", expenseStyle.Render(money(c.Expense)))
		line(&b, "Net", money(c.Net))
		line(&b, "Settled", money(c.Settled))
		line(&b, "Projected", money(c.Projected))
		for _, cat := range c.ByCategory {
			line(&b, "  "+cat.Category, money(cat.Net))
		}
		b.WriteString("\n")
	}
	return b.String()
}

func line(b *strings.Builder, label, value string) {
	b.WriteString(labelStyle.Render(label) + value + "\n")
}

func money(d decimal.Decimal) string {
	return d.StringFixed(2)
}
