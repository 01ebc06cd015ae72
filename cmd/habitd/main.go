package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"time"

	"github.com/alecthomas/kong"

	"github.com/julianstephens/habitd/internal/cli"
	"github.com/julianstephens/habitd/internal/cli/backups"
	"github.com/julianstephens/habitd/internal/cli/habits"
	"github.com/julianstephens/habitd/internal/cli/streaks"
	"github.com/julianstephens/habitd/internal/cli/system"
	"github.com/julianstephens/habitd/internal/cli/users"
	"github.com/julianstephens/habitd/internal/config"
	"github.com/julianstephens/habitd/internal/constants"
	"github.com/julianstephens/habitd/internal/errors"
	"github.com/julianstephens/habitd/internal/events"
	"github.com/julianstephens/habitd/internal/keyring"
	"github.com/julianstephens/habitd/internal/logger"
	"github.com/julianstephens/habitd/internal/notifier"
	"github.com/julianstephens/habitd/internal/storage"
	"github.com/julianstephens/habitd/internal/storage/postgres"
	"github.com/julianstephens/habitd/internal/storage/sqlite"
	"github.com/julianstephens/habitd/internal/streak"
	"github.com/julianstephens/habitd/internal/tracker"
)

var CLI struct {
	Version kong.VersionFlag
	Config  string `help:"Path to the TOML config file." type:"path" env:"HABITD_CONFIG"`
	DB      string `name:"db" help:"SQLite path or PostgreSQL connection string (overrides the config). PostgreSQL credentials must NOT be embedded; use the OS keyring or ${conn_env}."`
	Debug   bool   `help:"Log debug output to stderr."`

	Init     system.InitCmd     `cmd:"" help:"Initialize habitd storage."`
	Migrate  system.MigrateCmd  `cmd:"" help:"Run database migrations."`
	Doctor   system.DoctorCmd   `cmd:"" help:"Run health checks and diagnostics."`
	Keyring  system.KeyringCmd  `cmd:"" help:"Manage the PostgreSQL connection string in the OS keyring."`
	Notify   system.NotifyCmd   `cmd:"" hidden:"" help:"Send a notification through the tray app."`
	User     users.UserCmd      `cmd:"" help:"Manage users."`
	Habit    habits.HabitCmd    `cmd:"" help:"Manage habits."`
	Schedule habits.ScheduleCmd `cmd:"" help:"Manage habit schedules."`
	Log      habits.LogCmd      `cmd:"" help:"Log work on a habit for a day."`
	Away     habits.AwayCmd     `cmd:"" help:"Mark a day as away."`
	Streak   streaks.StreakCmd  `cmd:"" help:"Show and recompute streaks."`
	Backup   backups.BackupCmd  `cmd:"" help:"Snapshot and restore the SQLite database."`
}

func main() {
	kctx := kong.Parse(&CLI,
		kong.Name(constants.AppName),
		kong.Description("Habit tracking with streaks"),
		kong.UsageOnError(),
		kong.ConfigureHelp(kong.HelpOptions{
			Compact:             true,
			NoExpandSubcommands: true,
		}),
		kong.Vars{
			"version":  constants.Version,
			"conn_env": constants.ConnectionEnvVar,
		},
	)

	cfg, err := loadConfig(CLI.Config)
	if err != nil {
		errors.Fatal(err)
	}
	if CLI.Debug {
		cfg.Log.Debug = true
	}
	if err := logger.Init(logger.Config{Debug: cfg.Log.Debug, LogDir: cfg.Log.Dir}); err != nil {
		fmt.Fprintf(os.Stderr, "Warning: failed to initialize logger: %v\n", err)
	}
	defer logger.Close()

	target := cfg.DatabaseTarget()
	if CLI.DB != "" {
		target = CLI.DB
	}
	store, err := openStore(target)
	if err != nil {
		errors.Fatal(err)
	}
	defer store.Close()

	// Init handles its own schema setup
	if kctx.Selected() != nil && kctx.Selected().Name != "init" {
		if err := store.Load(); err != nil {
			errors.Fatal(err)
		}
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	bus := events.NewBus()
	opts := []streak.Option{
		streak.WithPublisher(bus),
		streak.WithWindows(cfg.Streaks.BasicWindowDays, cfg.Streaks.AdvancedWindowDays, cfg.WeekStart(), cfg.Streaks.MaxWeeks),
	}
	if cfg.Notifications.Enabled {
		opts = append(opts, streak.WithNotifier(notifier.New(), cfg.Notifications.Milestones))
	}
	engine := streak.New(store, store, store, store, opts...)
	engine.Register(bus)

	appCtx := &cli.Context{
		Ctx:     ctx,
		Store:   store,
		Config:  cfg,
		Bus:     bus,
		Engine:  engine,
		Tracker: tracker.New(store, bus),
		Out:     os.Stdout,
		Now:     time.Now,
	}

	err = kctx.Run(appCtx)
	bus.Wait()
	if err != nil {
		store.Close()
		errors.Fatal(err)
	}
}

func loadConfig(path string) (*config.Config, error) {
	if path != "" {
		return config.LoadFrom(path)
	}
	return config.Load()
}

// openStore picks the backend for target. PostgreSQL is used when target is a
// connection string or one is exported in the environment; the environment
// and keyring take precedence over target, which must not carry a password.
func openStore(target string) (storage.Provider, error) {
	if !storage.IsPostgresURL(target) && os.Getenv(constants.ConnectionEnvVar) == "" {
		return sqlite.NewStore(target), nil
	}

	configured := ""
	if storage.IsPostgresURL(target) {
		configured = target
	}
	connStr, source := keyring.ResolveConnectionString(configured)
	if source == keyring.SourceConfig && storage.HasEmbeddedCredentials(connStr) {
		return nil, fmt.Errorf("connection string from %s: %w", source, postgres.ErrEmbeddedCredentials)
	}
	logger.Debug("Using PostgreSQL storage", "source", source, "dsn", keyring.MaskPassword(connStr))
	return postgres.New(connStr), nil
}
