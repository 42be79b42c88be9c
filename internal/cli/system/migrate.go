package system

import (
	"fmt"

	"github.com/julianstephens/lifeplan/internal/cli"
	"github.com/julianstephens/lifeplan/internal/storage"
)

type MigrateCmd struct {
	Status bool `help:"Show the schema version and pending migrations without applying them."`
}

func (c *MigrateCmd) Run(ctx *cli.Context) error {
	migrator, ok := ctx.Store.(storage.Migrator)
	if !ok {
		return fmt.Errorf("%s storage has no schema to migrate", ctx.Store.Name())
	}

	if c.Status {
		status, err := migrator.MigrationStatus()
		if err != nil {
			return fmt.Errorf("failed to read migration status: %w", err)
		}
		fmt.Printf("Schema version: %d (latest %d)\n", status.Current, status.Latest)
		if len(status.Pending) == 0 {
			fmt.Println("No pending migrations.")
			return nil
		}
		fmt.Println("Pending migrations:")
		for _, m := range status.Pending {
			fmt.Printf("  %03d  %s\n", m.Version, m.Name)
		}
		return nil
	}

	count, err := migrator.Migrate(func(msg string) {
		fmt.Println(msg)
	})
	if err != nil {
		return fmt.Errorf("migration failed: %w", err)
	}

	if count == 0 {
		fmt.Println("No migrations to apply. Database is up to date.")
	} else {
		fmt.Printf("\nSuccessfully applied %d migration(s).\n", count)
	}
	return nil
}
