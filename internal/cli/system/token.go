package system

import (
	"errors"
	"fmt"
	"time"

	"github.com/julianstephens/lifeplan/internal/cli"
)

// TokenCmd issues a bearer token for the API
type TokenCmd struct {
	User string        `help:"User the token is issued for (defaults to the configured user)."`
	TTL  time.Duration `help:"Token lifetime." default:"720h"`
}

func (c *TokenCmd) Run(ctx *cli.Context) error {
	if c.TTL <= 0 {
		return errors.New("--ttl must be positive")
	}
	mgr, err := authManager(ctx)
	if err != nil {
		return err
	}
	user := c.User
	if user == "" {
		user = ctx.UserID
	}
	token, err := mgr.GenerateToken(user, c.TTL)
	if err != nil {
		return err
	}
	fmt.Println(token)
	return nil
}
