package agenda

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/julianstephens/lifeplan/internal/cli"
	"github.com/julianstephens/lifeplan/internal/constants"
	"github.com/julianstephens/lifeplan/internal/planner"
)

type TodayCmd struct{}

func (c *TodayCmd) Run(ctx *cli.Context) error {
	day, err := ctx.Planner.Today(context.Background(), ctx.UserID)
	if err != nil {
		return err
	}
	fmt.Printf("%s (%s, %s)\n", day.Date, day.Date.Weekday(), day.Timezone)
	return nil
}

type AgendaCmd struct {
	Start string `help:"First day (YYYY-MM-DD, today, tomorrow, yesterday)." default:"today"`
	End   string `help:"Last day, inclusive. Overrides --days."`
	Days  int    `short:"n" help:"Number of days to show (defaults to the configured horizon)."`
	JSON  bool   `help:"Print the agenda as JSON."`
}

func (c *AgendaCmd) Run(ctx *cli.Context) error {
	start, end, err := ctx.Range(c.Start, c.End, c.Days)
	if err != nil {
		return err
	}
	a, err := ctx.Planner.Agenda(context.Background(), ctx.UserID, start, end)
	if err != nil {
		return err
	}

	if c.JSON {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(a)
	}

	fmt.Printf("Agenda %s → %s (%s)\n", a.Start, a.End, a.Timezone)
	if a.Notice != "" {
		fmt.Printf("⚠ %s\n", a.Notice)
	}
	if len(a.Items) == 0 {
		fmt.Println("\nNothing scheduled.")
		return nil
	}

	var current string
	for _, it := range a.Items {
		if day := it.Day.String(); day != current {
			current = day
			fmt.Printf("\n%s %s\n", day, it.Day.Weekday().String()[:3])
		}
		printItem(it)
	}
	return nil
}

func printItem(it planner.Item) {
	when := it.LocalTime
	if when == "" {
		when = "  -  "
	}
	line := fmt.Sprintf("  %s %s  %-8s  %s", statusMark(it.Status), when, cli.ShortID(it.ID), it.Title)
	if it.OwnerKind == constants.OwnerTransaction {
		line += fmt.Sprintf("  %s %s", it.Amount.StringFixed(2), it.Currency)
	}
	fmt.Println(line)
}

func statusMark(s constants.InstanceStatus) string {
	switch s {
	case constants.StatusDone:
		return "[x]"
	case constants.StatusSkipped:
		return "[-]"
	default:
		return "[ ]"
	}
}

// EnsureCmd materializes a range without listing it
type EnsureCmd struct {
	Start string `help:"First day (YYYY-MM-DD, today, tomorrow, yesterday)." default:"today"`
	End   string `help:"Last day, inclusive. Overrides --days."`
	Days  int    `short:"n" help:"Number of days to materialize (defaults to the configured horizon)."`
}

func (c *EnsureCmd) Run(ctx *cli.Context) error {
	start, end, err := ctx.Range(c.Start, c.End, c.Days)
	if err != nil {
		return err
	}
	res, err := ctx.Planner.Ensure(context.Background(), ctx.UserID, start, end)
	if err != nil {
		return err
	}
	fmt.Printf("✓ Materialized %s → %s: %d inserted, %d already present (%d rules)\n",
		res.Start, res.End, res.Inserted, res.Existing, res.Rules)
	if res.Conflicts > 0 {
		fmt.Printf("  %d instances were created concurrently and skipped\n", res.Conflicts)
	}
	if res.UnknownRules > 0 {
		fmt.Printf("⚠ %d rules have an unrecognized type and produced nothing\n", res.UnknownRules)
	}
	return nil
}

// MarkCmd sets the status of one scheduled instance
type MarkCmd struct {
	Item   string `arg:"" help:"Instance id, id prefix or title."`
	Status string `arg:"" optional:"" help:"New status (pending|done|skipped)." default:"done"`
	Day    string `help:"Day the instance is scheduled on." default:"today"`
}

func (c *MarkCmd) Run(ctx *cli.Context) error {
	day, err := ctx.ParseDay(c.Day)
	if err != nil {
		return err
	}
	a, err := ctx.Planner.Agenda(context.Background(), ctx.UserID, day, day)
	if err != nil {
		return err
	}
	item, err := cli.ResolveItem(a.Items, c.Item)
	if err != nil {
		return fmt.Errorf("%w on %s", err, day)
	}
	in, err := ctx.Planner.Mark(context.Background(), ctx.UserID, item.ID, c.Status)
	if err != nil {
		return err
	}
	fmt.Printf("✓ %s on %s is now %s\n", item.Title, in.Day, in.Status)
	return nil
}
