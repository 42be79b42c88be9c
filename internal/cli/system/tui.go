package system

import (
	"context"
	"fmt"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/julianstephens/lifeplan/internal/cli"
	"github.com/julianstephens/lifeplan/internal/cli/backups"
	"github.com/julianstephens/lifeplan/internal/tui"
)

type TuiCmd struct {
	Days int  `help:"Number of days shown per page." default:"7"`
	Demo bool `help:"Seed demo data first (try with --database memory)."`
}

func (c *TuiCmd) Run(ctx *cli.Context) error {
	if c.Demo {
		if err := ctx.Planner.SeedDemo(context.Background(), ctx.UserID); err != nil {
			return fmt.Errorf("failed to seed demo data: %w", err)
		}
	}

	// Snapshot on startup; the TUI is where most edits happen
	backups.Automatic(ctx)

	p := tea.NewProgram(tui.NewModel(ctx.Planner, ctx.UserID, c.Days), tea.WithAltScreen())
	if _, err := p.Run(); err != nil {
		return fmt.Errorf("tui exited with an error: %w", err)
	}
	return nil
}
