package users

import (
	"fmt"

	"github.com/google/uuid"

	"github.com/julianstephens/habitd/internal/cli"
	"github.com/julianstephens/habitd/internal/models"
	"github.com/julianstephens/habitd/internal/utils"
)

type UserCmd struct {
	Add      UserAddCmd      `cmd:"" help:"Add a new user."`
	List     UserListCmd     `cmd:"" help:"List users."`
	Timezone UserTimezoneCmd `cmd:"" help:"Set a user's timezone."`
}

type UserAddCmd struct {
	Name     string `arg:"" help:"User name."`
	Timezone string `short:"z" help:"IANA timezone, e.g. Europe/Berlin."`
}

func (c *UserAddCmd) Run(ctx *cli.Context) error {
	if c.Timezone != "" && !utils.ValidateTimezone(c.Timezone) {
		return fmt.Errorf("invalid timezone: %s", c.Timezone)
	}

	u := models.User{
		ID:        uuid.New().String(),
		Name:      c.Name,
		Timezone:  c.Timezone,
		CreatedAt: ctx.Now(),
	}
	if err := ctx.Store.AddUser(ctx.Ctx, u); err != nil {
		return err
	}

	ctx.Printf("Added user: %s (%s)\n", u.Name, u.ID)
	return nil
}

type UserListCmd struct{}

func (c *UserListCmd) Run(ctx *cli.Context) error {
	list, err := ctx.Store.ListUsers(ctx.Ctx)
	if err != nil {
		return err
	}
	if len(list) == 0 {
		ctx.Printf("No users found.\n")
		return nil
	}

	for _, u := range list {
		tz := u.Timezone
		if tz == "" {
			tz = "-"
		}
		ctx.Printf("%s  %-20s %s\n", u.ID, u.Name, tz)
	}
	return nil
}

type UserTimezoneCmd struct {
	User     string `arg:"" help:"User id or name."`
	Timezone string `arg:"" help:"IANA timezone."`
}

func (c *UserTimezoneCmd) Run(ctx *cli.Context) error {
	if !utils.ValidateTimezone(c.Timezone) {
		return fmt.Errorf("invalid timezone: %s", c.Timezone)
	}
	u, err := ctx.ResolveUser(c.User)
	if err != nil {
		return err
	}
	if err := ctx.Store.SetUserTimezone(ctx.Ctx, u.ID, c.Timezone); err != nil {
		return err
	}

	ctx.Printf("Timezone for %s set to %s\n", u.Name, c.Timezone)
	return nil
}
