package system

import (
	"context"
	"fmt"

	"github.com/julianstephens/lifeplan/internal/cli"
)

// DemoCmd fills the store with a few habits and transactions to explore
type DemoCmd struct{}

func (c *DemoCmd) Run(ctx *cli.Context) error {
	if err := ctx.Planner.SeedDemo(context.Background(), ctx.UserID); err != nil {
		return fmt.Errorf("failed to seed demo data: %w", err)
	}
	fmt.Printf("✓ Seeded demo habits and transactions for %q\n", ctx.UserID)
	fmt.Println("  Try: lifeplan agenda --days 7")
	return nil
}
