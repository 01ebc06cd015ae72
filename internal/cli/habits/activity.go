package habits

import (
	"fmt"
	"strings"
	"time"

	"github.com/julianstephens/habitd/internal/cli"
	"github.com/julianstephens/habitd/internal/models"
	"github.com/julianstephens/habitd/internal/storage"
	"github.com/julianstephens/habitd/internal/streak"
	"github.com/julianstephens/habitd/internal/tracker"
	"github.com/julianstephens/habitd/internal/utils"
)

type LogCmd struct {
	cli.UserFlag
	Habit    string  `arg:"" help:"Habit name or id."`
	Schedule string  `help:"Schedule id, required when several schedules of the habit run that day."`
	Date     string  `help:"Date in YYYY-MM-DD format (default: today)."`
	Slot     string  `short:"t" help:"Time of day to log."`
	Quantity float64 `short:"q" help:"Quantity done (default: the schedule's target)."`
	Skip     bool    `help:"Mark the unit as skipped." xor:"outcome"`
	Fail     bool    `help:"Mark the unit as failed." xor:"outcome"`
	Undo     bool    `help:"Remove the logged unit." xor:"outcome"`
}

func (c *LogCmd) Run(ctx *cli.Context) error {
	u, err := ctx.ResolveUser(c.User)
	if err != nil {
		return err
	}
	h, err := ctx.ResolveHabit(u.ID, c.Habit)
	if err != nil {
		return err
	}
	day, err := ctx.DayOrToday(u, c.Date)
	if err != nil {
		return err
	}
	sch, err := c.pickSchedule(ctx, u.ID, h, day)
	if err != nil {
		return err
	}
	slot := models.TimeOfDay(strings.ToLower(c.Slot))

	if c.Undo {
		status, err := ctx.Tracker.RemoveTask(ctx.Ctx, u.ID, sch.ID, day, slot)
		if err != nil {
			return err
		}
		ctx.Printf("Removed %s on %s (day: %s)\n", h.Name, utils.FormatDay(day), status)
		return nil
	}

	entry := tracker.LogEntry{
		UserID:     u.ID,
		ScheduleID: sch.ID,
		Day:        day,
		TimeOfDay:  slot,
		Quantity:   c.Quantity,
	}
	switch {
	case c.Skip:
		entry.Status = models.StateSkipped
	case c.Fail:
		entry.Status = models.StateFailed
	case c.Quantity == 0:
		entry.Quantity = sch.Quantity
	}

	task, status, err := ctx.Tracker.LogTask(ctx.Ctx, entry)
	if err != nil {
		return err
	}
	label := h.Name
	if task.TimeOfDay != "" {
		label += " (" + string(task.TimeOfDay) + ")"
	}
	ctx.Printf("Logged %s on %s: %s %g/%g (day: %s)\n", label, utils.FormatDay(day), task.Status, task.Quantity, task.TargetQuantity, status)
	return nil
}

// pickSchedule returns the habit's schedule running on day, honoring --schedule.
func (c *LogCmd) pickSchedule(ctx *cli.Context, userID string, h models.Habit, day time.Time) (models.HabitSchedule, error) {
	if c.Schedule != "" {
		return matchSchedule(ctx, userID, h, c.Schedule)
	}

	schedules, err := ctx.Store.GetAllActiveSchedulesForUserInRange(ctx.Ctx, userID, day, day)
	if err != nil {
		return models.HabitSchedule{}, err
	}
	var running []models.HabitSchedule
	for _, sch := range schedules {
		if sch.HabitID == h.ID && streak.ExpectedUnits([]models.HabitSchedule{sch}, day, h.ID) > 0 {
			running = append(running, sch)
		}
	}
	switch len(running) {
	case 0:
		return models.HabitSchedule{}, fmt.Errorf("%q is not scheduled on %s: %w", h.Name, utils.FormatDay(day), tracker.ErrNotScheduled)
	case 1:
		return running[0], nil
	}
	ids := make([]string, len(running))
	for i, sch := range running {
		ids[i] = scheduleLabel(sch.ID)
	}
	return models.HabitSchedule{}, fmt.Errorf("%q has %d schedules on %s (%s), pass --schedule", h.Name, len(running), utils.FormatDay(day), strings.Join(ids, ", "))
}

type AwayCmd struct {
	cli.UserFlag
	Date  string `arg:"" optional:"" help:"Date in YYYY-MM-DD format (default: today)."`
	Clear bool   `help:"Clear the away mark."`
}

func (c *AwayCmd) Run(ctx *cli.Context) error {
	u, err := ctx.ResolveUser(c.User)
	if err != nil {
		return err
	}
	day, err := ctx.DayOrToday(u, c.Date)
	if err != nil {
		return err
	}
	status, err := ctx.Tracker.SetAway(ctx.Ctx, u.ID, day, !c.Clear)
	if err != nil {
		return err
	}
	ctx.Printf("%s is now %s\n", utils.FormatDay(day), status)
	return nil
}

// matchSchedule finds one of the habit's schedules by id or unique id prefix.
func matchSchedule(ctx *cli.Context, userID string, h models.Habit, ref string) (models.HabitSchedule, error) {
	schedules, err := ctx.Store.ListSchedules(ctx.Ctx, userID)
	if err != nil {
		return models.HabitSchedule{}, err
	}
	var match []models.HabitSchedule
	for _, sch := range schedules {
		if sch.HabitID != h.ID {
			continue
		}
		if sch.ID == ref {
			return sch, nil
		}
		if strings.HasPrefix(sch.ID, ref) {
			match = append(match, sch)
		}
	}
	switch len(match) {
	case 0:
		return models.HabitSchedule{}, fmt.Errorf("schedule %s of habit %q: %w", ref, h.Name, storage.ErrNotFound)
	case 1:
		return match[0], nil
	}
	return models.HabitSchedule{}, fmt.Errorf("schedule prefix %s is ambiguous", ref)
}
