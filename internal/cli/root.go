package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/julianstephens/habitd/internal/config"
	"github.com/julianstephens/habitd/internal/events"
	"github.com/julianstephens/habitd/internal/logger"
	"github.com/julianstephens/habitd/internal/models"
	"github.com/julianstephens/habitd/internal/storage"
	"github.com/julianstephens/habitd/internal/streak"
	"github.com/julianstephens/habitd/internal/tracker"
	"github.com/julianstephens/habitd/internal/utils"
)

// Migrator is implemented by stores that carry embedded migrations.
type Migrator interface {
	Migrate(logFn func(string)) (int, error)
	PendingMigrations() (int, error)
}

// Context is handed to every command's Run method.
type Context struct {
	Ctx     context.Context
	Store   storage.Provider
	Config  *config.Config
	Bus     *events.Bus
	Engine  *streak.Orchestrator
	Tracker *tracker.Service
	Out     io.Writer
	Now     func() time.Time
}

// UserFlag selects the user a command acts on, by id or name.
type UserFlag struct {
	User string `short:"u" required:"" help:"User id or name." env:"HABITD_USER"`
}

// ResolveUser finds a user by id, falling back to a unique name match.
func (c *Context) ResolveUser(ref string) (models.User, error) {
	u, err := c.Store.GetUser(c.Ctx, ref)
	if err == nil {
		return u, nil
	}
	if !errors.Is(err, storage.ErrNotFound) {
		return models.User{}, err
	}

	users, err := c.Store.ListUsers(c.Ctx)
	if err != nil {
		return models.User{}, err
	}
	var match []models.User
	for _, u := range users {
		if strings.EqualFold(u.Name, ref) {
			match = append(match, u)
		}
	}
	switch len(match) {
	case 0:
		return models.User{}, fmt.Errorf("user %q: %w", ref, storage.ErrNotFound)
	case 1:
		return match[0], nil
	}
	return models.User{}, fmt.Errorf("user name %q is ambiguous, use the id", ref)
}

// ResolveHabit finds one of the user's habits by name or id.
func (c *Context) ResolveHabit(userID, ref string) (models.Habit, error) {
	h, err := c.Store.GetHabitByName(c.Ctx, userID, ref)
	if err == nil {
		return h, nil
	}
	if !errors.Is(err, storage.ErrNotFound) {
		return models.Habit{}, err
	}
	h, err = c.Store.GetHabit(c.Ctx, ref)
	if err != nil {
		return models.Habit{}, fmt.Errorf("habit %q: %w", ref, storage.ErrNotFound)
	}
	if h.UserID != userID {
		return models.Habit{}, fmt.Errorf("habit %q: %w", ref, storage.ErrNotFound)
	}
	return h, nil
}

// Today returns the current date for user, in their timezone when known.
func (c *Context) Today(u models.User) time.Time {
	now := c.Now()
	if u.Timezone == "" {
		return utils.DayKey(now)
	}
	loc, err := utils.LoadLocation(u.Timezone)
	if err != nil {
		logger.Warn("Invalid user timezone, using local date", "user", u.ID, "timezone", u.Timezone, "error", err)
		return utils.DayKey(now)
	}
	return utils.TodayIn(now, loc)
}

// DayOrToday parses s as YYYY-MM-DD, defaulting to the user's today.
func (c *Context) DayOrToday(u models.User, s string) (time.Time, error) {
	if s == "" {
		return c.Today(u), nil
	}
	return utils.ParseDay(s)
}

// Printf writes to the command output.
func (c *Context) Printf(format string, args ...any) {
	fmt.Fprintf(c.Out, format, args...)
}

// ParseDaysOfWeek parses a comma-separated list of weekday names or ISO
// numbers (1 = Monday ... 7 = Sunday). "daily", "weekdays" and "weekends"
// are accepted as shorthands.
func ParseDaysOfWeek(s string) ([]models.DayOfWeek, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "daily", "everyday":
		return []models.DayOfWeek{models.Monday, models.Tuesday, models.Wednesday, models.Thursday, models.Friday, models.Saturday, models.Sunday}, nil
	case "weekdays":
		return []models.DayOfWeek{models.Monday, models.Tuesday, models.Wednesday, models.Thursday, models.Friday}, nil
	case "weekends":
		return []models.DayOfWeek{models.Saturday, models.Sunday}, nil
	}

	var days []models.DayOfWeek
	for _, part := range strings.Split(s, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		if wd, err := config.ParseWeekday(part); err == nil {
			days = append(days, models.DayOfWeekFromTime(wd))
			continue
		}
		num, err := strconv.Atoi(part)
		if err != nil || !models.DayOfWeek(num).Valid() {
			return nil, fmt.Errorf("invalid weekday: %s", part)
		}
		days = append(days, models.DayOfWeek(num))
	}
	if len(days) == 0 {
		return nil, errors.New("no weekdays given")
	}
	return days, nil
}

// ParseTimesOfDay parses a comma-separated list of slot names.
func ParseTimesOfDay(s string) []models.TimeOfDay {
	var slots []models.TimeOfDay
	for _, part := range strings.Split(s, ",") {
		if part = strings.ToLower(strings.TrimSpace(part)); part != "" {
			slots = append(slots, models.TimeOfDay(part))
		}
	}
	return slots
}

// FormatDaysOfWeek renders a weekday set compactly.
func FormatDaysOfWeek(days []models.DayOfWeek) string {
	if len(days) == 7 {
		return "daily"
	}
	names := make([]string, len(days))
	for i, d := range days {
		names[i] = d.String()[:3]
	}
	return strings.Join(names, ",")
}

// ParseOptionalDay parses s as YYYY-MM-DD, returning nil when s is empty.
func ParseOptionalDay(s string) (*time.Time, error) {
	if s == "" {
		return nil, nil
	}
	d, err := utils.ParseDay(s)
	if err != nil {
		return nil, err
	}
	return &d, nil
}
