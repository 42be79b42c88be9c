package main

import (
	"fmt"
	"strings"
	_ "time/tzdata"

	"github.com/alecthomas/kong"

	"github.com/julianstephens/lifeplan/internal/cli"
	"github.com/julianstephens/lifeplan/internal/cli/agenda"
	"github.com/julianstephens/lifeplan/internal/cli/backups"
	"github.com/julianstephens/lifeplan/internal/cli/habits"
	"github.com/julianstephens/lifeplan/internal/cli/rules"
	"github.com/julianstephens/lifeplan/internal/cli/settings"
	"github.com/julianstephens/lifeplan/internal/cli/system"
	"github.com/julianstephens/lifeplan/internal/cli/transactions"
	"github.com/julianstephens/lifeplan/internal/config"
	apperrors "github.com/julianstephens/lifeplan/internal/errors"
	"github.com/julianstephens/lifeplan/internal/logger"
)

var CLI struct {
	Version  kong.VersionFlag
	Config   string `help:"Config file path." type:"path" env:"LIFEPLAN_CONFIG" default:"~/.config/lifeplan/config.yaml"`
	Database string `help:"SQLite file path, PostgreSQL connection string, or 'memory' for a throwaway store. For PostgreSQL, credentials must NOT be embedded in the connection string. Use environment variables, .pgpass, or the OS keyring instead."`
	Debug    bool   `help:"Log debug output to stderr."`

	Init     system.InitCmd     `cmd:"" help:"Initialize lifeplan storage."`
	Migrate  system.MigrateCmd  `cmd:"" help:"Run database migrations."`
	Doctor   system.DoctorCmd   `cmd:"" help:"Run health checks and diagnostics."`
	Validate system.ValidateCmd `cmd:"" help:"Validate habits, transactions and rules."`
	Tui      system.TuiCmd      `cmd:"" help:"Launch the interactive TUI." default:"1"`
	Demo     system.DemoCmd     `cmd:"" help:"Seed demo habits and transactions."`
	Serve    system.ServeCmd    `cmd:"" help:"Run the HTTP API."`
	Token    system.TokenCmd    `cmd:"" help:"Issue an API bearer token."`
	Keyring  system.KeyringCmd  `cmd:"" help:"Manage secrets stored in the OS keyring."`
	Backup   backups.BackupCmd  `cmd:"" help:"Manage database backups."`

	Today  agenda.TodayCmd  `cmd:"" help:"Show the current logical day."`
	Agenda agenda.AgendaCmd `cmd:"" help:"Show scheduled habits and transactions."`
	Ensure agenda.EnsureCmd `cmd:"" help:"Create the scheduled instances for a range."`
	Mark   agenda.MarkCmd   `cmd:"" help:"Mark a scheduled instance done, skipped or pending."`
	Ledger agenda.LedgerCmd `cmd:"" help:"Summarize recurring transactions over a range."`
	Export agenda.ExportCmd `cmd:"" help:"Export scheduled instances as iCalendar."`

	Habit   habits.HabitCmd     `cmd:"" help:"Manage habits."`
	Txn     transactions.TxnCmd `cmd:"" help:"Manage recurring transactions."`
	Rule    rules.RuleCmd       `cmd:"" help:"Manage recurrence rules."`
	Profile settings.ProfileCmd `cmd:"" help:"Show or update the user profile."`
}

// commands that manage their own storage lifecycle or never touch it
var skipLoad = []string{"init", "doctor", "keyring", "token"}

func main() {
	ctx := kong.Parse(&CLI,
		kong.Name("lifeplan"),
		kong.Description("Habits and recurring transactions, planned by logical day"),
		kong.UsageOnError(),
		kong.ConfigureHelp(kong.HelpOptions{
			Compact:             true,
			NoExpandSubcommands: true,
		}),
		kong.Vars{"version": "v0.1.0"},
	)

	cfg, err := config.Load(CLI.Config)
	if err != nil {
		apperrors.Fatal(fmt.Errorf("failed to load config: %w", err))
	}
	cfg.ApplyEnv()
	if CLI.Database != "" {
		cfg.Database = CLI.Database
	}

	if err := logger.Init(logger.Config{Debug: CLI.Debug, Level: cfg.Log.Level, Dir: config.ExpandPath(cfg.Log.Dir)}); err != nil {
		apperrors.Fatal(fmt.Errorf("failed to initialize logger: %w", err))
	}

	store, err := cli.OpenStore(cfg.Database)
	if err != nil {
		apperrors.Fatal(err)
	}
	defer store.Close()

	appCtx := &cli.Context{
		Store:      store,
		Planner:    cli.NewPlanner(store, cfg),
		Config:     cfg,
		ConfigPath: config.ExpandPath(CLI.Config),
		UserID:     cfg.User,
	}

	if needsLoad(ctx.Command()) {
		if err := store.Load(); err != nil {
			store.Close()
			apperrors.Fatal(err)
		}
	}

	if err := ctx.Run(appCtx); err != nil {
		store.Close()
		apperrors.Fatal(err)
	}
	logger.Debug("Command finished", "command", ctx.Command(), "store", store.Name())
}

func needsLoad(command string) bool {
	first := strings.Fields(command)
	if len(first) == 0 {
		return true
	}
	for _, name := range skipLoad {
		if first[0] == name {
			return false
		}
	}
	return true
}
