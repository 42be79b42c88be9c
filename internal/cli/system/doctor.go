package system

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/julianstephens/lifeplan/internal/backup"
	"github.com/julianstephens/lifeplan/internal/cli"
	"github.com/julianstephens/lifeplan/internal/keyring"
	"github.com/julianstephens/lifeplan/internal/logicalday"
	"github.com/julianstephens/lifeplan/internal/storage"
	"github.com/julianstephens/lifeplan/internal/storage/sqlite"
)

type DoctorCmd struct{}

type check struct {
	name string
	// needsDB checks are skipped when the database cannot be loaded
	needsDB bool
	// warnOnly failures do not fail the command
	warnOnly bool
	run      func(ctx *cli.Context) error
}

var checks = []check{
	{name: "Database reachable", run: checkDBReachable},
	{name: "Migrations complete", needsDB: true, run: checkMigrationsComplete},
	{name: "Profile timezone", needsDB: true, run: checkProfileTimezone},
	{name: "Data validation", needsDB: true, run: checkValidation},
	{name: "Backups present", needsDB: true, warnOnly: true, run: checkBackupsPresent},
	{name: "OS keyring", warnOnly: true, run: checkKeyring},
	{name: "Clock", run: checkClock},
}

func (cmd *DoctorCmd) Run(ctx *cli.Context) error {
	fmt.Println("Running diagnostics...")
	fmt.Println()

	hasError := false
	dbReachable := true
	for _, c := range checks {
		if c.needsDB && !dbReachable {
			fmt.Printf("⊘ %s: SKIPPED (database not reachable)\n", c.name)
			continue
		}
		err := c.run(ctx)
		switch {
		case err == nil:
			fmt.Printf("✓ %s: OK\n", c.name)
		case c.warnOnly:
			fmt.Printf("⚠ %s: WARNING\n", c.name)
			fmt.Printf("   %v\n", err)
		default:
			fmt.Printf("❌ %s: FAIL\n", c.name)
			fmt.Printf("   Error: %v\n", err)
			hasError = true
		}
		if c.name == "Database reachable" && err != nil {
			dbReachable = false
		}
	}

	fmt.Println()
	if hasError {
		fmt.Println("Diagnostics completed with errors.")
		return fmt.Errorf("one or more health checks failed")
	}
	fmt.Println("All diagnostics passed!")
	return nil
}

func checkDBReachable(ctx *cli.Context) error {
	if err := ctx.Store.Load(); err != nil {
		return fmt.Errorf("failed to load database: %w", err)
	}
	if _, err := ctx.Store.GetProfile(context.Background(), ctx.UserID); err != nil && !isNotFound(err) {
		return fmt.Errorf("failed to query database: %w", err)
	}
	return nil
}

func checkMigrationsComplete(ctx *cli.Context) error {
	migrator, ok := ctx.Store.(storage.Migrator)
	if !ok {
		return nil
	}
	status, err := migrator.MigrationStatus()
	if err != nil {
		return fmt.Errorf("failed to get schema version: %w", err)
	}
	if status.Current < status.Latest {
		return fmt.Errorf("migrations incomplete: current version %d, latest version %d; run 'lifeplan migrate'", status.Current, status.Latest)
	}
	return nil
}

func checkProfileTimezone(ctx *cli.Context) error {
	p, err := ctx.Store.GetProfile(context.Background(), ctx.UserID)
	if isNotFound(err) {
		return nil
	}
	if err != nil {
		return err
	}
	if p.Timezone != "" && !logicalday.ValidTimezone(p.Timezone) {
		return fmt.Errorf("profile timezone %q cannot be loaded; days resolve in %s instead", p.Timezone, ctx.Config.Timezone)
	}
	return nil
}

func checkValidation(ctx *cli.Context) error {
	result, err := ctx.Planner.Check(context.Background(), ctx.UserID)
	if err != nil {
		return err
	}
	if result.HasConflicts() {
		return fmt.Errorf("%d problem(s) found; run 'lifeplan validate' for details", len(result.Conflicts))
	}
	return nil
}

func checkBackupsPresent(ctx *cli.Context) error {
	sqliteStore, ok := ctx.Store.(*sqlite.Store)
	if !ok {
		return nil
	}
	latest, err := backup.NewManager(sqliteStore.Name()).Latest()
	if errors.Is(err, backup.ErrNoBackups) {
		return fmt.Errorf("no backups found - consider creating one with 'lifeplan backup create'")
	}
	if err != nil {
		return err
	}
	if age := time.Since(latest.Taken); age > 7*24*time.Hour {
		return fmt.Errorf("newest backup is %d days old", int(age.Hours()/24))
	}
	return nil
}

func checkKeyring(ctx *cli.Context) error {
	if !keyring.IsAvailable() {
		return keyring.ErrKeyringUnavailable
	}
	return nil
}

func checkClock(ctx *cli.Context) error {
	now := time.Now()
	if now.Year() < 2000 {
		return fmt.Errorf("system clock looks wrong: %s", now.Format(time.RFC3339))
	}
	if !logicalday.ValidTimezone(ctx.Config.Timezone) {
		return fmt.Errorf("configured timezone %q cannot be loaded", ctx.Config.Timezone)
	}
	return nil
}
