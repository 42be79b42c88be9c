package rules

import (
	"context"
	"fmt"

	"github.com/julianstephens/lifeplan/internal/cli"
	"github.com/julianstephens/lifeplan/internal/constants"
	"github.com/julianstephens/lifeplan/internal/planner"
)

type RuleCmd struct {
	List    RuleListCmd    `cmd:"" help:"List recurrence rules."`
	Add     RuleAddCmd     `cmd:"" help:"Attach another rule to a habit or transaction."`
	Replace RuleReplaceCmd `cmd:"" help:"Replace a rule; instances already created are kept."`
	Delete  RuleDeleteCmd  `cmd:"" help:"Delete a rule (soft delete)."`
}

type RuleListCmd struct {
	Deleted bool `help:"Include deleted and replaced rules."`
}

func (c *RuleListCmd) Run(ctx *cli.Context) error {
	rules, err := ctx.Planner.ListRules(context.Background(), ctx.UserID, c.Deleted)
	if err != nil {
		return err
	}
	if len(rules) == 0 {
		fmt.Println("No rules found.")
		return nil
	}
	owners, err := ownerNames(ctx)
	if err != nil {
		return err
	}

	for _, r := range rules {
		owner := owners[r.OwnerID]
		if owner == "" {
			owner = cli.ShortID(r.OwnerID)
		}
		line := fmt.Sprintf("%-8s  %-11s  %-24s  %s", cli.ShortID(r.ID), r.OwnerKind, owner, cli.DescribeRule(r.Type, r.Config))
		switch {
		case r.ReplacedBy != "":
			line += fmt.Sprintf(" [REPLACED by %s]", cli.ShortID(r.ReplacedBy))
		case r.DeletedAt != nil:
			line += " [DELETED]"
		}
		fmt.Println(line)
	}
	return nil
}

func ownerNames(ctx *cli.Context) (map[string]string, error) {
	names := make(map[string]string)
	habits, err := ctx.Planner.ListHabits(context.Background(), ctx.UserID, true)
	if err != nil {
		return nil, err
	}
	for _, h := range habits {
		names[h.ID] = h.Name
	}
	txns, err := ctx.Planner.ListTransactions(context.Background(), ctx.UserID, true)
	if err != nil {
		return nil, err
	}
	for _, t := range txns {
		names[t.ID] = t.Name
	}
	return names, nil
}

type RuleAddCmd struct {
	Habit         string `xor:"owner" required:"" help:"Habit id, id prefix or name."`
	Transaction   string `xor:"owner" required:"" help:"Transaction id, id prefix or name."`
	cli.RuleFlags `embed:""`
}

func (c *RuleAddCmd) Run(ctx *cli.Context) error {
	in := planner.RuleInput{}
	var owner string
	if c.Habit != "" {
		h, err := ctx.ResolveHabit(c.Habit, false)
		if err != nil {
			return err
		}
		in.OwnerKind, in.OwnerID, owner = constants.OwnerHabit, h.ID, h.Name
	} else {
		t, err := ctx.ResolveTransaction(c.Transaction, false)
		if err != nil {
			return err
		}
		in.OwnerKind, in.OwnerID, owner = constants.OwnerTransaction, t.ID, t.Name
	}

	spec, err := c.Spec()
	if err != nil {
		return err
	}
	in.RuleSpec = spec
	rule, err := ctx.Planner.CreateRule(context.Background(), ctx.UserID, in)
	if err != nil {
		return err
	}
	fmt.Printf("✓ Added rule %s to %s: %s\n", cli.ShortID(rule.ID), owner, cli.DescribeRule(rule.Type, rule.Config))
	return nil
}

type RuleReplaceCmd struct {
	Rule          string `arg:"" help:"Rule id or id prefix."`
	cli.RuleFlags `embed:""`
}

func (c *RuleReplaceCmd) Run(ctx *cli.Context) error {
	old, err := ctx.ResolveRule(c.Rule)
	if err != nil {
		return err
	}
	spec, err := c.Spec()
	if err != nil {
		return err
	}
	rule, err := ctx.Planner.ReplaceRule(context.Background(), ctx.UserID, old.ID, spec)
	if err != nil {
		return err
	}
	fmt.Printf("✓ Replaced rule %s with %s: %s\n", cli.ShortID(old.ID), cli.ShortID(rule.ID), cli.DescribeRule(rule.Type, rule.Config))
	return nil
}

type RuleDeleteCmd struct {
	Rule string `arg:"" help:"Rule id or id prefix."`
}

func (c *RuleDeleteCmd) Run(ctx *cli.Context) error {
	r, err := ctx.ResolveRule(c.Rule)
	if err != nil {
		return err
	}
	if err := ctx.Planner.DeleteRule(context.Background(), ctx.UserID, r.ID); err != nil {
		return err
	}
	fmt.Printf("✓ Deleted rule %s\n", cli.ShortID(r.ID))
	return nil
}
