package system

import (
	"context"
	"errors"
	"fmt"

	"github.com/julianstephens/lifeplan/internal/cli"
)

type ValidateCmd struct{}

func (c *ValidateCmd) Run(ctx *cli.Context) error {
	result, err := ctx.Planner.Check(context.Background(), ctx.UserID)
	if err != nil {
		return err
	}
	if !result.HasConflicts() {
		fmt.Println("✓ No problems found.")
		return nil
	}
	fmt.Print(result.FormatReport())
	return errors.New("validation found problems")
}
