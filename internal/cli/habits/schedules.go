package habits

import (
	"github.com/julianstephens/habitd/internal/cli"
	"github.com/julianstephens/habitd/internal/tracker"
	"github.com/julianstephens/habitd/internal/utils"
)

type ScheduleCmd struct {
	Add     ScheduleAddCmd     `cmd:"" help:"Schedule a habit on recurring weekdays."`
	List    ScheduleListCmd    `cmd:"" help:"List schedules."`
	Archive ScheduleArchiveCmd `cmd:"" help:"End a schedule."`
}

type ScheduleAddCmd struct {
	cli.UserFlag
	Habit    string  `arg:"" help:"Habit name or id."`
	Days     string  `short:"d" default:"daily" help:"Weekdays: names, ISO numbers (1=Mon..7=Sun), daily, weekdays or weekends."`
	Times    string  `short:"t" help:"Comma-separated times of day; each one is a separate unit of work."`
	Quantity float64 `short:"q" default:"1" help:"Target quantity per unit."`
	Start    string  `help:"First active day (YYYY-MM-DD)."`
	End      string  `help:"Last active day (YYYY-MM-DD)."`
}

func (c *ScheduleAddCmd) Run(ctx *cli.Context) error {
	u, err := ctx.ResolveUser(c.User)
	if err != nil {
		return err
	}
	h, err := ctx.ResolveHabit(u.ID, c.Habit)
	if err != nil {
		return err
	}
	days, err := cli.ParseDaysOfWeek(c.Days)
	if err != nil {
		return err
	}
	start, err := cli.ParseOptionalDay(c.Start)
	if err != nil {
		return err
	}
	end, err := cli.ParseOptionalDay(c.End)
	if err != nil {
		return err
	}

	sch, err := ctx.Tracker.AddSchedule(ctx.Ctx, tracker.ScheduleSpec{
		UserID:     u.ID,
		HabitID:    h.ID,
		DaysOfWeek: days,
		TimesOfDay: cli.ParseTimesOfDay(c.Times),
		StartDate:  start,
		EndDate:    end,
		Quantity:   c.Quantity,
	})
	if err != nil {
		return err
	}
	ctx.Printf("Added schedule %s: %s on %s\n", sch.ID, h.Name, cli.FormatDaysOfWeek(sch.DaysOfWeek))
	return nil
}

type ScheduleListCmd struct {
	cli.UserFlag
	Habit string `help:"Only list schedules of this habit."`
}

func (c *ScheduleListCmd) Run(ctx *cli.Context) error {
	u, err := ctx.ResolveUser(c.User)
	if err != nil {
		return err
	}
	habitID := ""
	if c.Habit != "" {
		h, err := ctx.ResolveHabit(u.ID, c.Habit)
		if err != nil {
			return err
		}
		habitID = h.ID
	}

	list, err := ctx.Store.ListSchedules(ctx.Ctx, u.ID)
	if err != nil {
		return err
	}
	names := make(map[string]string)
	habits, err := ctx.Store.ListHabits(ctx.Ctx, u.ID, true)
	if err != nil {
		return err
	}
	for _, h := range habits {
		names[h.ID] = h.Name
	}

	shown := 0
	for _, sch := range list {
		if habitID != "" && sch.HabitID != habitID {
			continue
		}
		times := make([]string, len(sch.TimesOfDay))
		for i, t := range sch.TimesOfDay {
			times[i] = string(t)
		}
		period := "open"
		if sch.StartDate != nil || sch.EndDate != nil {
			from, to := "…", "…"
			if sch.StartDate != nil {
				from = utils.FormatDay(*sch.StartDate)
			}
			if sch.EndDate != nil {
				to = utils.FormatDay(*sch.EndDate)
			}
			period = from + ".." + to
		}
		ctx.Printf("%s  %-16s %-20s %-16s x%g  %s\n", sch.ID, names[sch.HabitID], cli.FormatDaysOfWeek(sch.DaysOfWeek), formatTimes(times), sch.Quantity, period)
		shown++
	}
	if shown == 0 {
		ctx.Printf("No schedules found.\n")
	}
	return nil
}

type ScheduleArchiveCmd struct {
	cli.UserFlag
	ID   string `arg:"" help:"Schedule id."`
	Last string `help:"Last active day (YYYY-MM-DD, default: today)."`
}

func (c *ScheduleArchiveCmd) Run(ctx *cli.Context) error {
	u, err := ctx.ResolveUser(c.User)
	if err != nil {
		return err
	}
	last, err := ctx.DayOrToday(u, c.Last)
	if err != nil {
		return err
	}
	if err := ctx.Tracker.ArchiveSchedule(ctx.Ctx, u.ID, c.ID, last); err != nil {
		return err
	}
	ctx.Printf("Schedule %s ends on %s\n", c.ID, utils.FormatDay(last))
	return nil
}

func scheduleLabel(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}
