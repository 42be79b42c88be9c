package system

import (
	"context"
	"fmt"
	"os"

	"github.com/julianstephens/lifeplan/internal/cli"
	"github.com/julianstephens/lifeplan/internal/storage/sqlite"
)

type InitCmd struct {
	Force    bool   `help:"Delete an existing SQLite database before initialization."`
	Timezone string `help:"IANA timezone for the local user's profile (defaults to the configured timezone)."`
}

func (c *InitCmd) Run(ctx *cli.Context) error {
	if c.Force {
		sqliteStore, ok := ctx.Store.(*sqlite.Store)
		if !ok {
			return fmt.Errorf("--force is only supported for SQLite storage")
		}
		dbPath := sqliteStore.Name()
		if _, err := os.Stat(dbPath); err == nil {
			if err := ctx.Store.Close(); err != nil {
				return fmt.Errorf("failed to close existing database: %w", err)
			}
			if err := os.Remove(dbPath); err != nil {
				return fmt.Errorf("failed to delete existing database: %w", err)
			}
			fmt.Printf("Deleted existing database at: %s\n", dbPath)
		} else if !os.IsNotExist(err) {
			return fmt.Errorf("failed to access existing database: %w", err)
		}
	}

	if err := ctx.Store.Init(); err != nil {
		return err
	}
	fmt.Printf("Initialized lifeplan storage at: %s\n", ctx.Store.Name())

	p, err := ctx.Planner.Profile(context.Background(), ctx.UserID)
	if err != nil {
		return err
	}
	if c.Timezone != "" {
		p.Timezone = c.Timezone
		if p, err = ctx.Planner.SaveProfile(context.Background(), p); err != nil {
			return err
		}
	}
	fmt.Printf("Profile for %q uses timezone %s, weeks start on %s\n", ctx.UserID, p.Timezone, p.WeekStart)
	return nil
}
