package transactions

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/shopspring/decimal"

	"github.com/julianstephens/lifeplan/internal/cli"
	"github.com/julianstephens/lifeplan/internal/constants"
	"github.com/julianstephens/lifeplan/internal/planner"
)

type TxnCmd struct {
	Add     TxnAddCmd     `cmd:"" help:"Add a recurring transaction."`
	List    TxnListCmd    `cmd:"" help:"List recurring transactions."`
	Delete  TxnDeleteCmd  `cmd:"" help:"Delete a recurring transaction and its rules (soft delete)."`
	Restore TxnRestoreCmd `cmd:"" help:"Restore a deleted recurring transaction and its rules."`
}

type TxnAddCmd struct {
	Name          string `arg:"" help:"Transaction name."`
	Amount        string `arg:"" help:"Signed amount; negative for expenses. Put negative amounts after -- (e.g. -- Rent -1200.00)."`
	Currency      string `short:"c" help:"ISO 4217 currency code." default:"USD"`
	Category      string `help:"Optional category used to group the ledger."`
	cli.RuleFlags `embed:""`
}

func (c *TxnAddCmd) Run(ctx *cli.Context) error {
	amount, err := decimal.NewFromString(c.Amount)
	if err != nil {
		return fmt.Errorf("invalid amount %q: %w", c.Amount, err)
	}
	spec, err := c.Spec()
	if err != nil {
		return err
	}
	txn, rule, err := ctx.Planner.CreateTransaction(context.Background(), ctx.UserID, planner.TransactionInput{
		Name:     c.Name,
		Amount:   amount,
		Currency: c.Currency,
		Category: c.Category,
		Rule:     spec,
	})
	if err != nil {
		return err
	}
	fmt.Printf("✓ Added transaction %s (%s): %s %s, %s\n",
		txn.Name, cli.ShortID(txn.ID), txn.Amount.StringFixed(2), txn.Currency, cli.DescribeRule(rule.Type, rule.Config))
	return nil
}

type TxnListCmd struct {
	Deleted bool `help:"Include deleted transactions."`
	JSON    bool `help:"Print transactions as JSON."`
}

func (c *TxnListCmd) Run(ctx *cli.Context) error {
	txns, err := ctx.Planner.ListTransactions(context.Background(), ctx.UserID, c.Deleted)
	if err != nil {
		return err
	}
	if c.JSON {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(txns)
	}
	if len(txns) == 0 {
		fmt.Println("No recurring transactions found.")
		return nil
	}

	rules, err := ctx.Planner.ListRules(context.Background(), ctx.UserID, false)
	if err != nil {
		return err
	}
	cadence := make(map[string]string)
	for _, r := range rules {
		if r.OwnerKind == constants.OwnerTransaction {
			cadence[r.OwnerID] = cli.DescribeRule(r.Type, r.Config)
		}
	}

	for _, t := range txns {
		line := fmt.Sprintf("%-8s  %-24s  %12s %s  %-12s  %s",
			cli.ShortID(t.ID), t.Name, t.Amount.StringFixed(2), t.Currency, t.Category, cadence[t.ID])
		if t.DeletedAt != nil {
			line += " [DELETED]"
		}
		fmt.Println(line)
	}
	return nil
}

type TxnDeleteCmd struct {
	Transaction string `arg:"" help:"Transaction id, id prefix or name."`
}

func (c *TxnDeleteCmd) Run(ctx *cli.Context) error {
	t, err := ctx.ResolveTransaction(c.Transaction, false)
	if err != nil {
		return err
	}
	if err := ctx.Planner.DeleteTransaction(context.Background(), ctx.UserID, t.ID); err != nil {
		return err
	}
	fmt.Printf("✓ Deleted transaction %s\n", t.Name)
	return nil
}

type TxnRestoreCmd struct {
	Transaction string `arg:"" help:"Transaction id, id prefix or name."`
}

func (c *TxnRestoreCmd) Run(ctx *cli.Context) error {
	t, err := ctx.ResolveTransaction(c.Transaction, true)
	if err != nil {
		return err
	}
	if t.DeletedAt == nil {
		return fmt.Errorf("transaction %s is not deleted", t.Name)
	}
	if err := ctx.Planner.RestoreTransaction(context.Background(), ctx.UserID, t.ID); err != nil {
		return err
	}
	fmt.Printf("✓ Restored transaction %s\n", t.Name)
	return nil
}
