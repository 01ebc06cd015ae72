package system

import (
	"errors"
	"fmt"
	"time"

	"github.com/julianstephens/habitd/internal/cli"
	"github.com/julianstephens/habitd/internal/keyring"
	"github.com/julianstephens/habitd/internal/notifier"
	"github.com/julianstephens/habitd/internal/storage/postgres"
	"github.com/julianstephens/habitd/internal/utils"
)

type InitCmd struct{}

func (c *InitCmd) Run(ctx *cli.Context) error {
	if err := ctx.Store.Init(); err != nil {
		return err
	}
	ctx.Printf("Initialized habitd storage at: %s\n", ctx.Store.GetConfigPath())
	return nil
}

type MigrateCmd struct{}

func (c *MigrateCmd) Run(ctx *cli.Context) error {
	m, ok := ctx.Store.(cli.Migrator)
	if !ok {
		return errors.New("storage backend does not support migrations")
	}
	count, err := m.Migrate(func(msg string) { ctx.Printf("%s\n", msg) })
	if err != nil {
		return fmt.Errorf("migration failed: %w", err)
	}
	if count == 0 {
		ctx.Printf("No migrations to apply. Database is up to date.\n")
	} else {
		ctx.Printf("\nSuccessfully applied %d migration(s).\n", count)
	}
	return nil
}

type DoctorCmd struct{}

func (c *DoctorCmd) Run(ctx *cli.Context) error {
	ctx.Printf("Running diagnostics...\n\n")
	failed := false
	check := func(name string, err error, warnOnly bool) {
		switch {
		case err == nil:
			ctx.Printf("✓ %s: OK\n", name)
		case warnOnly:
			ctx.Printf("⚠ %s: WARNING\n   %v\n", name, err)
		default:
			ctx.Printf("❌ %s: FAIL\n   Error: %v\n", name, err)
			failed = true
		}
	}

	_, err := ctx.Store.ListUserIDs(ctx.Ctx)
	check("Database reachable", err, false)
	if err == nil {
		check("Migrations complete", checkMigrations(ctx), false)
		check("User timezones", checkTimezones(ctx), true)
	}
	check("Clock", checkClock(ctx.Now()), false)
	if !keyring.IsAvailable() {
		check("OS keyring", errors.New("not available, use the environment for PostgreSQL credentials"), true)
	} else {
		check("OS keyring", nil, true)
	}

	if failed {
		return errors.New("one or more checks failed")
	}
	return nil
}

func checkMigrations(ctx *cli.Context) error {
	m, ok := ctx.Store.(cli.Migrator)
	if !ok {
		return nil
	}
	pending, err := m.PendingMigrations()
	if err != nil {
		return err
	}
	if pending > 0 {
		return fmt.Errorf("%d pending migration(s), run 'habitd migrate'", pending)
	}
	return nil
}

func checkTimezones(ctx *cli.Context) error {
	users, err := ctx.Store.ListUsers(ctx.Ctx)
	if err != nil {
		return err
	}
	var missing, invalid int
	for _, u := range users {
		switch {
		case u.Timezone == "":
			missing++
		case !utils.ValidateTimezone(u.Timezone):
			invalid++
		}
	}
	if invalid > 0 {
		return fmt.Errorf("%d user(s) have an unknown timezone", invalid)
	}
	if missing > 0 {
		return fmt.Errorf("%d user(s) have no timezone; their streaks use the widest day boundary", missing)
	}
	return nil
}

func checkClock(now time.Time) error {
	if now.Year() < 2020 {
		return fmt.Errorf("system clock looks wrong: %s", now.Format(time.RFC3339))
	}
	return nil
}

type KeyringCmd struct {
	Set    KeyringSetCmd    `cmd:"" help:"Store the PostgreSQL connection string in the OS keyring."`
	Get    KeyringGetCmd    `cmd:"" help:"Show the stored connection string with the password masked."`
	Delete KeyringDeleteCmd `cmd:"" help:"Remove the stored connection string."`
	Status KeyringStatusCmd `cmd:"" help:"Check OS keyring availability."`
}

type KeyringSetCmd struct {
	ConnectionString string `arg:"" help:"PostgreSQL connection string."`
}

func (c *KeyringSetCmd) Run(ctx *cli.Context) error {
	if _, err := postgres.ValidateConnString(c.ConnectionString); err != nil && !errors.Is(err, postgres.ErrEmbeddedCredentials) {
		return fmt.Errorf("invalid connection string: %w", err)
	}
	if err := keyring.SetConnectionString(c.ConnectionString); err != nil {
		return err
	}
	ctx.Printf("✓ Connection string stored in OS keyring\n")
	return nil
}

type KeyringGetCmd struct{}

func (c *KeyringGetCmd) Run(ctx *cli.Context) error {
	connStr, err := keyring.GetConnectionString()
	if err != nil {
		return err
	}
	ctx.Printf("%s\n", keyring.MaskPassword(connStr))
	return nil
}

type KeyringDeleteCmd struct{}

func (c *KeyringDeleteCmd) Run(ctx *cli.Context) error {
	if err := keyring.DeleteConnectionString(); err != nil {
		return err
	}
	ctx.Printf("✓ Connection string deleted from OS keyring\n")
	return nil
}

type KeyringStatusCmd struct{}

func (c *KeyringStatusCmd) Run(ctx *cli.Context) error {
	if !keyring.IsAvailable() {
		return keyring.ErrKeyringUnavailable
	}
	ctx.Printf("✓ OS keyring is available\n")
	if _, err := keyring.GetConnectionString(); err == nil {
		ctx.Printf("✓ Connection string is stored in keyring\n")
	} else if errors.Is(err, keyring.ErrNotFound) {
		ctx.Printf("ℹ No connection string stored in keyring\n")
	}
	return nil
}

type NotifyCmd struct {
	Text string `arg:"" help:"Notification text."`
}

func (c *NotifyCmd) Run(ctx *cli.Context) error {
	if err := notifier.New().NotifyContext(ctx.Ctx, c.Text); err != nil {
		return fmt.Errorf("failed to send notification: %w", err)
	}
	ctx.Printf("✓ Notification sent\n")
	return nil
}
