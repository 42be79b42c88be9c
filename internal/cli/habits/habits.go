package habits

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/charmbracelet/huh"

	"github.com/julianstephens/lifeplan/internal/cli"
	"github.com/julianstephens/lifeplan/internal/constants"
	"github.com/julianstephens/lifeplan/internal/models"
	"github.com/julianstephens/lifeplan/internal/planner"
)

type HabitCmd struct {
	Add     HabitAddCmd     `cmd:"" help:"Add a new habit with its recurrence."`
	List    HabitListCmd    `cmd:"" help:"List habits."`
	Delete  HabitDeleteCmd  `cmd:"" help:"Delete a habit and its rules (soft delete)."`
	Restore HabitRestoreCmd `cmd:"" help:"Restore a deleted habit and its rules."`
	Streak  HabitStreakCmd  `cmd:"" help:"Show streaks for one or all habits."`
}

type HabitAddCmd struct {
	Name          string `arg:"" optional:"" help:"Habit name. Prompts for the details when omitted."`
	Time          string `short:"t" help:"Local time of day (HH:MM); all-day when empty."`
	cli.RuleFlags `embed:""`
}

func (c *HabitAddCmd) Run(ctx *cli.Context) error {
	if strings.TrimSpace(c.Name) == "" {
		if err := c.prompt(); err != nil {
			return err
		}
	}

	spec, err := c.Spec()
	if err != nil {
		return err
	}
	h, rule, err := ctx.Planner.CreateHabit(context.Background(), ctx.UserID, planner.HabitInput{
		Name:      c.Name,
		LocalTime: c.Time,
		Rule:      spec,
	})
	if err != nil {
		return err
	}
	fmt.Printf("✓ Added habit %s (%s): %s\n", h.Name, cli.ShortID(h.ID), cli.DescribeRule(rule.Type, rule.Config))
	return nil
}

// prompt collects the habit fields interactively
func (c *HabitAddCmd) prompt() error {
	rules := []constants.RuleType{
		constants.RuleDaily, constants.RuleWeekly, constants.RuleWeekdays, constants.RuleNDays,
		constants.RuleMonthlyDate, constants.RuleMonthlyDay, constants.RuleYearly,
		constants.RuleRRule, constants.RuleCron,
	}
	options := make([]huh.Option[string], len(rules))
	for i, r := range rules {
		options[i] = huh.NewOption(string(r), string(r))
	}

	form := huh.NewForm(
		huh.NewGroup(
			huh.NewInput().
				Title("Habit name").
				Value(&c.Name).
				Validate(func(s string) error {
					if strings.TrimSpace(s) == "" {
						return fmt.Errorf("name is required")
					}
					return nil
				}),
			huh.NewInput().
				Title("Time of day (HH:MM, blank for all day)").
				Value(&c.Time),
			huh.NewSelect[string]().
				Title("Repeats").
				Options(options...).
				Value(&c.Rule),
		),
	)
	if err := form.Run(); err != nil {
		return err
	}

	switch constants.RuleType(c.Rule) {
	case constants.RuleWeekly:
		return huh.NewInput().Title("Weekdays (e.g. mon,wed,fri)").Value(&c.Weekdays).Run()
	case constants.RuleRRule:
		return huh.NewInput().Title("RRULE (e.g. FREQ=WEEKLY;BYDAY=MO)").Value(&c.Expr).Run()
	case constants.RuleCron:
		return huh.NewInput().Title("Cron spec (minute hour dom month dow)").Value(&c.Expr).Run()
	}
	return nil
}

type HabitListCmd struct {
	Deleted bool `help:"Include deleted habits."`
	JSON    bool `help:"Print habits as JSON."`
}

func (c *HabitListCmd) Run(ctx *cli.Context) error {
	habits, err := ctx.Planner.ListHabits(context.Background(), ctx.UserID, c.Deleted)
	if err != nil {
		return err
	}
	if c.JSON {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(habits)
	}
	if len(habits) == 0 {
		fmt.Println("No habits found.")
		return nil
	}

	rules, err := ctx.Planner.ListRules(context.Background(), ctx.UserID, false)
	if err != nil {
		return err
	}
	cadence := make(map[string][]string)
	for _, r := range rules {
		if r.OwnerKind == constants.OwnerHabit {
			cadence[r.OwnerID] = append(cadence[r.OwnerID], cli.DescribeRule(r.Type, r.Config))
		}
	}

	for _, h := range habits {
		fmt.Println(formatHabit(h, cadence[h.ID]))
	}
	return nil
}

func formatHabit(h models.Habit, cadence []string) string {
	when := h.LocalTime
	if when == "" {
		when = "all day"
	}
	line := fmt.Sprintf("%-8s  %-24s  %-7s", cli.ShortID(h.ID), h.Name, when)
	if len(cadence) > 0 {
		line += "  " + strings.Join(cadence, "; ")
	}
	if h.DeletedAt != nil {
		line += " [DELETED]"
	}
	return line
}

type HabitDeleteCmd struct {
	Habit string `arg:"" help:"Habit id, id prefix or name."`
}

func (c *HabitDeleteCmd) Run(ctx *cli.Context) error {
	h, err := ctx.ResolveHabit(c.Habit, false)
	if err != nil {
		return err
	}
	if err := ctx.Planner.DeleteHabit(context.Background(), ctx.UserID, h.ID); err != nil {
		return err
	}
	fmt.Printf("✓ Deleted habit %s\n", h.Name)
	return nil
}

type HabitRestoreCmd struct {
	Habit string `arg:"" help:"Habit id, id prefix or name."`
}

func (c *HabitRestoreCmd) Run(ctx *cli.Context) error {
	h, err := ctx.ResolveHabit(c.Habit, true)
	if err != nil {
		return err
	}
	if h.DeletedAt == nil {
		return fmt.Errorf("habit %s is not deleted", h.Name)
	}
	if err := ctx.Planner.RestoreHabit(context.Background(), ctx.UserID, h.ID); err != nil {
		return err
	}
	fmt.Printf("✓ Restored habit %s\n", h.Name)
	return nil
}

type HabitStreakCmd struct {
	Habit string `arg:"" optional:"" help:"Habit id, id prefix or name. All habits when omitted."`
}

func (c *HabitStreakCmd) Run(ctx *cli.Context) error {
	if c.Habit != "" {
		h, err := ctx.ResolveHabit(c.Habit, false)
		if err != nil {
			return err
		}
		stats, err := ctx.Planner.Streak(context.Background(), ctx.UserID, h.ID)
		if err != nil {
			return err
		}
		fmt.Println(formatStreak(planner.HabitStreak{Habit: h, Stats: stats}))
		return nil
	}

	streaks, err := ctx.Planner.Streaks(context.Background(), ctx.UserID)
	if err != nil {
		return err
	}
	if len(streaks) == 0 {
		fmt.Println("No habits found.")
		return nil
	}
	for _, s := range streaks {
		fmt.Println(formatStreak(s))
	}
	return nil
}

func formatStreak(s planner.HabitStreak) string {
	st := s.Stats
	line := fmt.Sprintf("%-24s  current %3d  longest %3d  done %d/%d", s.Habit.Name, st.Current, st.Longest, st.Done, st.Due)
	if st.Due > 0 {
		line += fmt.Sprintf(" (%.0f%%)", st.CompletionRate*100)
	}
	if st.LastDone != nil {
		line += "  last " + st.LastDone.String()
	}
	return line
}
