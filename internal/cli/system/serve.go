package system

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/julianstephens/lifeplan/internal/api"
	"github.com/julianstephens/lifeplan/internal/cli"
	"github.com/julianstephens/lifeplan/internal/constants"
	"github.com/julianstephens/lifeplan/internal/scheduler"
	httptransport "github.com/julianstephens/lifeplan/internal/transport/http"
)

type ServeCmd struct {
	Address string `help:"Listen address (defaults to the configured http.address)."`
	// Users listed here get their horizon materialized on Schedule
	Users    []string `help:"Users whose horizon is materialized on the schedule (defaults to the configured user)."`
	Schedule string   `help:"Cron spec for background materialization; empty disables it." default:"@every 1h"`
}

func (c *ServeCmd) Run(ctx *cli.Context) error {
	mgr, err := authManager(ctx)
	if err != nil {
		return err
	}

	address := c.Address
	if address == "" {
		address = ctx.Config.HTTP.Address
	}
	handler := (&api.API{
		Planner:     ctx.Planner,
		Auth:        mgr,
		HorizonDays: ctx.Config.HorizonDays,
	}).Router()
	srv := httptransport.NewServer(httptransport.ServerConfig{
		Address:      address,
		ReadTimeout:  constants.DefaultReadTimeout,
		WriteTimeout: constants.DefaultWriteTimeout,
		IdleTimeout:  constants.DefaultIdleTimeout,
	}, handler)

	runCtx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if c.Schedule != "" {
		users := c.Users
		if len(users) == 0 {
			users = []string{ctx.UserID}
		}
		jobs := scheduler.New(ctx.Planner, users, ctx.Config.HorizonDays)
		if err := jobs.Start(c.Schedule); err != nil {
			return err
		}
		defer jobs.Stop()
	}

	fmt.Printf("Serving lifeplan API on http://%s (Ctrl+C to stop)\n", address)
	return httptransport.Run(runCtx, srv, 15*time.Second)
}
