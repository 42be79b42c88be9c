package settings

import (
	"context"
	"fmt"

	"github.com/julianstephens/lifeplan/internal/cli"
)

// ProfileCmd shows or updates the user's timezone and week start
type ProfileCmd struct {
	Timezone  *string `help:"IANA timezone (e.g. America/New_York)."`
	WeekStart *string `help:"First day of the week (monday|sunday)."`
}

func (c *ProfileCmd) Run(ctx *cli.Context) error {
	p, err := ctx.Planner.Profile(context.Background(), ctx.UserID)
	if err != nil {
		return fmt.Errorf("failed to get profile: %w", err)
	}

	updated := false
	if c.Timezone != nil {
		p.Timezone = *c.Timezone
		updated = true
	}
	if c.WeekStart != nil {
		p.WeekStart = *c.WeekStart
		updated = true
	}

	if updated {
		if p, err = ctx.Planner.SaveProfile(context.Background(), p); err != nil {
			return fmt.Errorf("failed to save profile: %w", err)
		}
		fmt.Println("✓ Profile updated.")
	}

	fmt.Printf("Profile for %q:\n", p.UserID)
	fmt.Printf("  Timezone:    %s\n", p.Timezone)
	fmt.Printf("  Week start:  %s\n", p.WeekStart)
	fmt.Println("\nConfiguration:")
	fmt.Printf("  File:          %s\n", ctx.ConfigPath)
	fmt.Printf("  Database:      %s\n", ctx.Store.Name())
	fmt.Printf("  Horizon days:  %d\n", ctx.Config.HorizonDays)
	fmt.Printf("  Max range:     %d days\n", ctx.Config.MaxRangeDays)
	return nil
}
