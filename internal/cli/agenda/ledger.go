package agenda

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/julianstephens/lifeplan/internal/cli"
)

type LedgerCmd struct {
	Start string `help:"First day (YYYY-MM-DD, today, tomorrow, yesterday)." default:"today"`
	End   string `help:"Last day, inclusive. Overrides --days."`
	Days  int    `short:"n" help:"Number of days to cover (defaults to the configured horizon)."`
	JSON  bool   `help:"Print the report as JSON."`
}

func (c *LedgerCmd) Run(ctx *cli.Context) error {
	start, end, err := ctx.Range(c.Start, c.End, c.Days)
	if err != nil {
		return err
	}
	r, err := ctx.Planner.Ledger(context.Background(), ctx.UserID, start, end)
	if err != nil {
		return err
	}
	if c.JSON {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(r)
	}

	fmt.Printf("Ledger %s → %s (%s)\n", r.Start, r.End, r.Timezone)
	if r.Notice != "" {
		fmt.Printf("⚠ %s\n", r.Notice)
	}
	if len(r.Currencies) == 0 {
		fmt.Println("\nNo recurring transactions in this range.")
		return nil
	}
	for _, cur := range r.Currencies {
		fmt.Printf("\n%s\n", cur.Currency)
		fmt.Printf("  Income:     %12s\n", cur.Income.StringFixed(2))
		fmt.Printf("  Expense:    %12s\n", cur.Expense.StringFixed(2))
		fmt.Printf("  Net:        %12s\n", cur.Net.StringFixed(2))
		fmt.Printf("  Settled:    %12s\n", cur.Settled.StringFixed(2))
		fmt.Printf("  Projected:  %12s\n", cur.Projected.StringFixed(2))
		if len(cur.ByCategory) > 0 {
			fmt.Println("  By category:")
			for _, cat := range cur.ByCategory {
				name := cat.Category
				if name == "" {
					name = "(none)"
				}
				fmt.Printf("    %-16s %12s\n", name, cat.Net.StringFixed(2))
			}
		}
	}
	return nil
}

// ExportCmd writes the scheduled instances of a range as an iCalendar file
type ExportCmd struct {
	Start string `help:"First day (YYYY-MM-DD, today, tomorrow, yesterday)." default:"today"`
	End   string `help:"Last day, inclusive. Overrides --days."`
	Days  int    `short:"n" help:"Number of days to export (defaults to the configured horizon)."`
	Out   string `short:"o" help:"Output file; stdout when empty." type:"path"`
}

func (c *ExportCmd) Run(ctx *cli.Context) error {
	start, end, err := ctx.Range(c.Start, c.End, c.Days)
	if err != nil {
		return err
	}
	cal, err := ctx.Planner.Calendar(context.Background(), ctx.UserID, start, end)
	if err != nil {
		return err
	}
	if c.Out == "" {
		fmt.Print(cal)
		return nil
	}
	if err := os.WriteFile(c.Out, []byte(cal), 0o644); err != nil {
		return fmt.Errorf("failed to write calendar: %w", err)
	}
	fmt.Printf("✓ Exported %s → %s to %s\n", start, end, c.Out)
	return nil
}
