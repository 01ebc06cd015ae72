package storage

import (
	"context"
	"errors"
	"time"

	"github.com/julianstephens/habitd/internal/models"
)

// ErrNotFound is returned when a requested record does not exist.
var ErrNotFound = errors.New("not found")

type Provider interface {
	// Lifecycle
	Init() error
	Load() error
	Close() error

	// Users
	AddUser(ctx context.Context, user models.User) error
	GetUser(ctx context.Context, id string) (models.User, error)
	ListUsers(ctx context.Context) ([]models.User, error)
	ListUserIDs(ctx context.Context) ([]string, error)
	SetUserTimezone(ctx context.Context, id, timezone string) error
	// GetUserTimezone returns "" for users without a recorded timezone.
	GetUserTimezone(ctx context.Context, id string) (string, error)

	// Habits
	AddHabit(ctx context.Context, habit models.Habit) error
	GetHabit(ctx context.Context, id string) (models.Habit, error)
	GetHabitByName(ctx context.Context, userID, name string) (models.Habit, error)
	ListHabits(ctx context.Context, userID string, includeArchived bool) ([]models.Habit, error)
	ListActiveHabitIDs(ctx context.Context, userID string) ([]string, error)
	ArchiveHabit(ctx context.Context, id string, at time.Time) error

	// Schedules
	AddSchedule(ctx context.Context, schedule models.HabitSchedule) error
	UpdateSchedule(ctx context.Context, schedule models.HabitSchedule) error
	GetSchedule(ctx context.Context, id string) (models.HabitSchedule, error)
	ListSchedules(ctx context.Context, userID string) ([]models.HabitSchedule, error)
	// GetAllActiveSchedulesForUserInRange returns schedules whose active period
	// overlaps [start, end].
	GetAllActiveSchedulesForUserInRange(ctx context.Context, userID string, start, end time.Time) ([]models.HabitSchedule, error)

	// Planned days
	GetAllPlannedDaysForUserInRange(ctx context.Context, userID string, start, end time.Time) ([]models.PlannedDay, error)
	// GetFirstPlannedDay returns nil, nil when the user has no planned days.
	GetFirstPlannedDay(ctx context.Context, userID string) (*models.PlannedDay, error)
	GetOrCreatePlannedDay(ctx context.Context, userID string, day time.Time) (models.PlannedDay, error)
	SetPlannedDayStatus(ctx context.Context, plannedDayID string, status models.CompletionState) error

	// Planned tasks
	// SavePlannedTask inserts or updates the task for its (day, schedule, slot).
	SavePlannedTask(ctx context.Context, task models.PlannedTask) error

	// Streak scalars
	GetStreak(ctx context.Context, userID string, typ models.StreakType, habitID string) (int, bool, error)
	SetStreak(ctx context.Context, userID string, typ models.StreakType, value int, habitID string) error

	// Utils
	GetConfigPath() string
}
