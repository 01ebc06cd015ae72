package streaks

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/julianstephens/habitd/internal/cli"
	"github.com/julianstephens/habitd/internal/models"
	"github.com/julianstephens/habitd/internal/render"
	"github.com/julianstephens/habitd/internal/utils"
)

type StreakCmd struct {
	Show      StreakShowCmd      `cmd:"" default:"withargs" help:"Show streaks and recent days."`
	Recompute StreakRecomputeCmd `cmd:"" help:"Recompute cached streaks from full history."`
}

type StreakShowCmd struct {
	cli.UserFlag
	Habit    string `help:"Habit name or id (default: whole-day streak)."`
	Advanced bool   `short:"a" help:"Show the long window as a calendar grid."`
	From     string `help:"Window start (YYYY-MM-DD); requires --to."`
	To       string `help:"Window end (YYYY-MM-DD); requires --from."`
	JSON     bool   `name:"json" help:"Print the result as JSON."`
}

func (c *StreakShowCmd) Run(ctx *cli.Context) error {
	if (c.From == "") != (c.To == "") {
		return errors.New("--from and --to must be given together")
	}
	u, err := ctx.ResolveUser(c.User)
	if err != nil {
		return err
	}

	title := u.Name + " · all habits"
	habitID := ""
	if c.Habit != "" {
		h, err := ctx.ResolveHabit(u.ID, c.Habit)
		if err != nil {
			return err
		}
		habitID = h.ID
		title = u.Name + " · " + h.Name
	}

	var hs models.HabitStreak
	switch {
	case c.From != "":
		from, err := utils.ParseDay(c.From)
		if err != nil {
			return err
		}
		to, err := utils.ParseDay(c.To)
		if err != nil {
			return err
		}
		if to.Before(from) {
			return fmt.Errorf("--to %s is before --from %s", c.To, c.From)
		}
		hs = ctx.Engine.Get(ctx.Ctx, u.ID, habitID, from, to)
	case c.Advanced:
		hs = ctx.Engine.GetAdvanced(ctx.Ctx, u.ID, habitID)
	default:
		hs = ctx.Engine.GetBasic(ctx.Ctx, u.ID, habitID)
	}

	if c.JSON {
		enc := json.NewEncoder(ctx.Out)
		enc.SetIndent("", "  ")
		return enc.Encode(hs)
	}
	ctx.Printf("%s\n", render.Report(title, hs, ctx.Config.WeekStart(), c.Advanced))
	return nil
}

type StreakRecomputeCmd struct {
	User string `short:"u" help:"User id or name." xor:"target" required:""`
	All  bool   `help:"Recompute every user." xor:"target" required:""`
}

func (c *StreakRecomputeCmd) Run(ctx *cli.Context) error {
	var userIDs []string
	if c.All {
		ids, err := ctx.Store.ListUserIDs(ctx.Ctx)
		if err != nil {
			return err
		}
		userIDs = ids
	} else {
		u, err := ctx.ResolveUser(c.User)
		if err != nil {
			return err
		}
		userIDs = []string{u.ID}
	}

	if err := ctx.Engine.RecomputeUsers(ctx.Ctx, userIDs, ctx.Store, ctx.Config.Jobs.Concurrency); err != nil {
		return err
	}

	for _, id := range userIDs {
		current, _, err := ctx.Store.GetStreak(ctx.Ctx, id, models.StreakCurrent, "")
		if err != nil {
			return err
		}
		longest, _, err := ctx.Store.GetStreak(ctx.Ctx, id, models.StreakLongest, "")
		if err != nil {
			return err
		}
		ctx.Printf("%s  current %d  longest %d\n", id, current, longest)
	}
	ctx.Printf("Recomputed streaks for %d user(s)\n", len(userIDs))
	return nil
}
