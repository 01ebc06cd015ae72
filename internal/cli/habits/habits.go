package habits

import (
	"fmt"
	"strings"

	"github.com/julianstephens/habitd/internal/cli"
)

type HabitCmd struct {
	Add     HabitAddCmd     `cmd:"" help:"Add a new habit."`
	List    HabitListCmd    `cmd:"" help:"List habits."`
	Archive HabitArchiveCmd `cmd:"" help:"Archive a habit and end its schedules."`
}

type HabitAddCmd struct {
	cli.UserFlag
	Name string `arg:"" help:"Habit name."`
}

func (c *HabitAddCmd) Run(ctx *cli.Context) error {
	u, err := ctx.ResolveUser(c.User)
	if err != nil {
		return err
	}
	if _, err := ctx.Store.GetHabitByName(ctx.Ctx, u.ID, c.Name); err == nil {
		return fmt.Errorf("habit with name %q already exists", c.Name)
	}

	h, err := ctx.Tracker.AddHabit(ctx.Ctx, u.ID, c.Name)
	if err != nil {
		return err
	}
	ctx.Printf("Added habit: %s\n", h.Name)
	return nil
}

type HabitListCmd struct {
	cli.UserFlag
	Archived bool `help:"Include archived habits."`
}

func (c *HabitListCmd) Run(ctx *cli.Context) error {
	u, err := ctx.ResolveUser(c.User)
	if err != nil {
		return err
	}
	list, err := ctx.Store.ListHabits(ctx.Ctx, u.ID, c.Archived)
	if err != nil {
		return err
	}
	if len(list) == 0 {
		ctx.Printf("No habits found.\n")
		return nil
	}

	for _, h := range list {
		status := ""
		if h.ArchivedAt != nil {
			status = " [ARCHIVED]"
		}
		ctx.Printf("%s  %s%s\n", h.ID, h.Name, status)
	}
	return nil
}

type HabitArchiveCmd struct {
	cli.UserFlag
	Name string `arg:"" help:"Habit name or id."`
}

func (c *HabitArchiveCmd) Run(ctx *cli.Context) error {
	u, err := ctx.ResolveUser(c.User)
	if err != nil {
		return err
	}
	h, err := ctx.ResolveHabit(u.ID, c.Name)
	if err != nil {
		return err
	}
	if err := ctx.Tracker.ArchiveHabit(ctx.Ctx, u.ID, h.ID, ctx.Today(u)); err != nil {
		return err
	}
	ctx.Printf("Archived habit: %s\n", h.Name)
	return nil
}

func formatTimes(s []string) string {
	if len(s) == 0 {
		return "any time"
	}
	return strings.Join(s, ",")
}
