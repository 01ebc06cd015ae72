// Package tracker records habit activity (logged task units, away days,
// schedule edits), keeps each planned day's cached status current and
// signals the streak engine about every change.
package tracker

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/julianstephens/habitd/internal/events"
	"github.com/julianstephens/habitd/internal/logger"
	"github.com/julianstephens/habitd/internal/models"
	"github.com/julianstephens/habitd/internal/streak"
	"github.com/julianstephens/habitd/internal/utils"
)

var (
	ErrWrongUser       = errors.New("record belongs to another user")
	ErrInvalidSlot     = errors.New("time of day does not match the schedule")
	ErrInvalidStatus   = errors.New("status cannot be logged for a task")
	ErrNotScheduled    = errors.New("schedule is not active on that day")
	ErrInvalidSchedule = errors.New("invalid schedule")
)

// Store is the persistence the tracker writes through.
type Store interface {
	GetHabit(ctx context.Context, id string) (models.Habit, error)
	AddHabit(ctx context.Context, habit models.Habit) error
	ArchiveHabit(ctx context.Context, id string, at time.Time) error

	AddSchedule(ctx context.Context, schedule models.HabitSchedule) error
	UpdateSchedule(ctx context.Context, schedule models.HabitSchedule) error
	GetSchedule(ctx context.Context, id string) (models.HabitSchedule, error)
	ListSchedules(ctx context.Context, userID string) ([]models.HabitSchedule, error)
	GetAllActiveSchedulesForUserInRange(ctx context.Context, userID string, start, end time.Time) ([]models.HabitSchedule, error)

	GetOrCreatePlannedDay(ctx context.Context, userID string, day time.Time) (models.PlannedDay, error)
	SetPlannedDayStatus(ctx context.Context, plannedDayID string, status models.CompletionState) error
	SavePlannedTask(ctx context.Context, task models.PlannedTask) error
}

type Publisher interface {
	Publish(ctx context.Context, e events.Event) bool
}

type Service struct {
	store     Store
	publisher Publisher
	now       func() time.Time
}

type Option func(*Service)

func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

// New builds a tracker. publisher may be nil, in which case no events are sent.
func New(store Store, publisher Publisher, opts ...Option) *Service {
	s := &Service{store: store, publisher: publisher, now: time.Now}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// LogEntry describes one unit of work reported for a day.
type LogEntry struct {
	UserID     string
	ScheduleID string
	Day        time.Time
	TimeOfDay  models.TimeOfDay
	Quantity   float64
	// Status may be empty, in which case it follows from Quantity.
	Status models.CompletionState
}

// LogTask records work against one (schedule, slot) unit of a day and
// returns the stored task together with the day's refreshed status.
func (s *Service) LogTask(ctx context.Context, entry LogEntry) (models.PlannedTask, models.CompletionState, error) {
	sch, err := s.store.GetSchedule(ctx, entry.ScheduleID)
	if err != nil {
		return models.PlannedTask{}, "", err
	}
	if sch.UserID != entry.UserID {
		return models.PlannedTask{}, "", fmt.Errorf("schedule %s: %w", sch.ID, ErrWrongUser)
	}
	day := utils.DayKey(entry.Day)
	if streak.ExpectedUnits([]models.HabitSchedule{sch}, day, "") == 0 {
		return models.PlannedTask{}, "", fmt.Errorf("%s on %s: %w", sch.ID, utils.FormatDay(day), ErrNotScheduled)
	}
	slot, err := resolveSlot(sch, entry.TimeOfDay)
	if err != nil {
		return models.PlannedTask{}, "", err
	}

	target := sch.Quantity
	if target <= 0 {
		target = 1
	}
	status := entry.Status
	switch status {
	case "":
		status = models.StateIncomplete
		if entry.Quantity >= target {
			status = models.StateComplete
		}
	case models.StateComplete, models.StateIncomplete, models.StateFailed, models.StateSkipped:
	default:
		return models.PlannedTask{}, "", fmt.Errorf("%s: %w", status, ErrInvalidStatus)
	}

	pd, err := s.store.GetOrCreatePlannedDay(ctx, entry.UserID, day)
	if err != nil {
		return models.PlannedTask{}, "", err
	}

	task := models.PlannedTask{
		PlannedDayID: pd.ID,
		ScheduleID:   sch.ID,
		TimeOfDay:    slot,
		CreatedAt:    s.now(),
	}
	created := true
	if existing, ok := findTask(pd, sch.ID, slot); ok {
		task = existing
		created = false
	}
	task.Quantity = entry.Quantity
	task.TargetQuantity = target
	task.Status = status
	task.Active = true
	task.UpdatedAt = s.now()

	if err := s.store.SavePlannedTask(ctx, task); err != nil {
		return models.PlannedTask{}, "", fmt.Errorf("failed to save task: %w", err)
	}

	evt := events.PlannedTaskUpdated
	if created {
		evt = events.PlannedTaskCreated
	}
	s.publish(ctx, events.Event{Type: evt, UserID: entry.UserID, HabitID: sch.HabitID, Day: day})

	dayStatus, err := s.refreshDay(ctx, entry.UserID, day)
	if err != nil {
		return task, "", err
	}
	return task, dayStatus, nil
}

// RemoveTask soft-deletes the task for a (schedule, slot) unit of a day.
func (s *Service) RemoveTask(ctx context.Context, userID, scheduleID string, day time.Time, slot models.TimeOfDay) (models.CompletionState, error) {
	sch, err := s.store.GetSchedule(ctx, scheduleID)
	if err != nil {
		return "", err
	}
	if sch.UserID != userID {
		return "", fmt.Errorf("schedule %s: %w", sch.ID, ErrWrongUser)
	}
	if slot, err = resolveSlot(sch, slot); err != nil {
		return "", err
	}

	day = utils.DayKey(day)
	pd, err := s.store.GetOrCreatePlannedDay(ctx, userID, day)
	if err != nil {
		return "", err
	}
	task, ok := findTask(pd, sch.ID, slot)
	if !ok || !task.Active {
		return pd.Status, nil
	}
	task.Active = false
	task.UpdatedAt = s.now()
	if err := s.store.SavePlannedTask(ctx, task); err != nil {
		return "", fmt.Errorf("failed to save task: %w", err)
	}
	s.publish(ctx, events.Event{Type: events.PlannedTaskUpdated, UserID: userID, HabitID: sch.HabitID, Day: day})

	return s.refreshDay(ctx, userID, day)
}

// SetAway marks or clears a day as away. Clearing re-derives the status from
// the day's tasks.
func (s *Service) SetAway(ctx context.Context, userID string, day time.Time, away bool) (models.CompletionState, error) {
	day = utils.DayKey(day)
	pd, err := s.store.GetOrCreatePlannedDay(ctx, userID, day)
	if err != nil {
		return "", err
	}

	if away {
		if pd.Status == models.StateAway {
			return pd.Status, nil
		}
		if err := s.store.SetPlannedDayStatus(ctx, pd.ID, models.StateAway); err != nil {
			return "", err
		}
		s.publish(ctx, events.Event{Type: events.PlannedDayUpdated, UserID: userID, Day: day})
		return models.StateAway, nil
	}

	if pd.Status != models.StateAway {
		return pd.Status, nil
	}
	pd.Status = ""
	status, err := s.classify(ctx, userID, pd)
	if err != nil {
		return "", err
	}
	if err := s.store.SetPlannedDayStatus(ctx, pd.ID, status); err != nil {
		return "", err
	}
	s.publish(ctx, events.Event{Type: events.PlannedDayUpdated, UserID: userID, Day: day})
	return status, nil
}

// RefreshDay re-derives the cached status of a day from its tasks.
func (s *Service) RefreshDay(ctx context.Context, userID string, day time.Time) (models.CompletionState, error) {
	return s.refreshDay(ctx, userID, utils.DayKey(day))
}

func (s *Service) refreshDay(ctx context.Context, userID string, day time.Time) (models.CompletionState, error) {
	pd, err := s.store.GetOrCreatePlannedDay(ctx, userID, day)
	if err != nil {
		return "", err
	}
	if pd.Status == models.StateAway {
		return pd.Status, nil
	}
	status, err := s.classify(ctx, userID, pd)
	if err != nil {
		return "", err
	}
	if status == pd.Status {
		return status, nil
	}
	if err := s.store.SetPlannedDayStatus(ctx, pd.ID, status); err != nil {
		return "", fmt.Errorf("failed to update day status: %w", err)
	}
	logger.Debug("Planned day status changed", "user", userID, "day", utils.FormatDay(day), "from", pd.Status, "to", status)
	s.publish(ctx, events.Event{Type: events.PlannedDayUpdated, UserID: userID, Day: day})
	return status, nil
}

func (s *Service) classify(ctx context.Context, userID string, pd models.PlannedDay) (models.CompletionState, error) {
	schedules, err := s.store.GetAllActiveSchedulesForUserInRange(ctx, userID, pd.Day, pd.Day)
	if err != nil {
		return "", fmt.Errorf("failed to load schedules: %w", err)
	}
	expected := streak.ExpectedUnits(schedules, pd.Day, "")
	return streak.NewClassifier(streak.DayScope(), schedules).Classify(expected, &pd), nil
}

// AddHabit creates a habit for userID.
func (s *Service) AddHabit(ctx context.Context, userID, name string) (models.Habit, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return models.Habit{}, errors.New("habit name cannot be empty")
	}
	h := models.Habit{
		ID:        uuid.New().String(),
		UserID:    userID,
		Name:      name,
		CreatedAt: s.now(),
	}
	if err := s.store.AddHabit(ctx, h); err != nil {
		return models.Habit{}, fmt.Errorf("failed to add habit: %w", err)
	}
	return h, nil
}

// ArchiveHabit archives a habit and ends all of its open schedules on last,
// the user's own calendar date.
func (s *Service) ArchiveHabit(ctx context.Context, userID, habitID string, last time.Time) error {
	h, err := s.store.GetHabit(ctx, habitID)
	if err != nil {
		return err
	}
	if h.UserID != userID {
		return fmt.Errorf("habit %s: %w", habitID, ErrWrongUser)
	}

	schedules, err := s.store.ListSchedules(ctx, userID)
	if err != nil {
		return err
	}
	for _, sch := range schedules {
		if sch.HabitID != habitID {
			continue
		}
		if err := s.endSchedule(ctx, sch, utils.DayKey(last)); err != nil {
			return err
		}
	}
	if err := s.store.ArchiveHabit(ctx, habitID, s.now()); err != nil {
		return err
	}
	s.publish(ctx, events.Event{Type: events.ScheduleChanged, UserID: userID, HabitID: habitID})
	return nil
}

// ScheduleSpec describes a new recurring commitment.
type ScheduleSpec struct {
	UserID     string
	HabitID    string
	DaysOfWeek []models.DayOfWeek
	TimesOfDay []models.TimeOfDay
	StartDate  *time.Time
	EndDate    *time.Time
	Quantity   float64
}

func (spec ScheduleSpec) validate() error {
	if len(spec.DaysOfWeek) == 0 {
		return fmt.Errorf("%w: at least one day of week is required", ErrInvalidSchedule)
	}
	for _, d := range spec.DaysOfWeek {
		if !d.Valid() {
			return fmt.Errorf("%w: day of week %d out of range", ErrInvalidSchedule, int(d))
		}
	}
	seen := make(map[models.TimeOfDay]bool, len(spec.TimesOfDay))
	for _, t := range spec.TimesOfDay {
		if t == "" || strings.Contains(string(t), ",") {
			return fmt.Errorf("%w: invalid time of day %q", ErrInvalidSchedule, t)
		}
		if seen[t] {
			return fmt.Errorf("%w: duplicate time of day %q", ErrInvalidSchedule, t)
		}
		seen[t] = true
	}
	if spec.Quantity < 0 {
		return fmt.Errorf("%w: quantity cannot be negative", ErrInvalidSchedule)
	}
	if spec.StartDate != nil && spec.EndDate != nil && spec.EndDate.Before(*spec.StartDate) {
		return fmt.Errorf("%w: end date before start date", ErrInvalidSchedule)
	}
	return nil
}

// AddSchedule stores a new schedule for one of the user's habits.
func (s *Service) AddSchedule(ctx context.Context, spec ScheduleSpec) (models.HabitSchedule, error) {
	if err := spec.validate(); err != nil {
		return models.HabitSchedule{}, err
	}
	h, err := s.store.GetHabit(ctx, spec.HabitID)
	if err != nil {
		return models.HabitSchedule{}, err
	}
	if h.UserID != spec.UserID {
		return models.HabitSchedule{}, fmt.Errorf("habit %s: %w", h.ID, ErrWrongUser)
	}
	if h.ArchivedAt != nil {
		return models.HabitSchedule{}, fmt.Errorf("%w: habit %q is archived", ErrInvalidSchedule, h.Name)
	}

	quantity := spec.Quantity
	if quantity == 0 {
		quantity = 1
	}
	days := slices.Clone(spec.DaysOfWeek)
	slices.Sort(days)
	days = slices.Compact(days)

	now := s.now()
	sch := models.HabitSchedule{
		ID:         uuid.New().String(),
		UserID:     spec.UserID,
		HabitID:    spec.HabitID,
		DaysOfWeek: days,
		TimesOfDay: spec.TimesOfDay,
		StartDate:  dayPtr(spec.StartDate),
		EndDate:    dayPtr(spec.EndDate),
		Quantity:   quantity,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	if err := s.store.AddSchedule(ctx, sch); err != nil {
		return models.HabitSchedule{}, fmt.Errorf("failed to add schedule: %w", err)
	}
	s.publish(ctx, events.Event{Type: events.ScheduleChanged, UserID: spec.UserID, HabitID: spec.HabitID})
	return sch, nil
}

// ArchiveSchedule ends a schedule on the given day (inclusive), so it stops
// expecting work afterwards while history stays classifiable.
func (s *Service) ArchiveSchedule(ctx context.Context, userID, scheduleID string, last time.Time) error {
	sch, err := s.store.GetSchedule(ctx, scheduleID)
	if err != nil {
		return err
	}
	if sch.UserID != userID {
		return fmt.Errorf("schedule %s: %w", scheduleID, ErrWrongUser)
	}
	if err := s.endSchedule(ctx, sch, utils.DayKey(last)); err != nil {
		return err
	}
	s.publish(ctx, events.Event{Type: events.ScheduleChanged, UserID: userID, HabitID: sch.HabitID})
	return nil
}

func (s *Service) endSchedule(ctx context.Context, sch models.HabitSchedule, last time.Time) error {
	if sch.EndDate != nil && !sch.EndDate.After(last) {
		return nil
	}
	sch.EndDate = &last
	sch.UpdatedAt = s.now()
	if err := s.store.UpdateSchedule(ctx, sch); err != nil {
		return fmt.Errorf("failed to end schedule %s: %w", sch.ID, err)
	}
	return nil
}

func (s *Service) publish(ctx context.Context, e events.Event) {
	if s.publisher != nil {
		s.publisher.Publish(ctx, e)
	}
}

// resolveSlot maps the requested slot onto the schedule's slots. Schedules
// with at most one slot accept an empty slot.
func resolveSlot(sch models.HabitSchedule, slot models.TimeOfDay) (models.TimeOfDay, error) {
	switch {
	case len(sch.TimesOfDay) == 0:
		if slot != "" {
			return "", fmt.Errorf("%w: schedule has no slots, got %q", ErrInvalidSlot, slot)
		}
		return "", nil
	case slot == "" && len(sch.TimesOfDay) == 1:
		return sch.TimesOfDay[0], nil
	case slices.Contains(sch.TimesOfDay, slot):
		return slot, nil
	}
	return "", fmt.Errorf("%w: %q not in %v", ErrInvalidSlot, slot, sch.TimesOfDay)
}

func findTask(pd models.PlannedDay, scheduleID string, slot models.TimeOfDay) (models.PlannedTask, bool) {
	for _, t := range pd.Tasks {
		if t.ScheduleID == scheduleID && t.TimeOfDay == slot {
			return t, true
		}
	}
	return models.PlannedTask{}, false
}

func dayPtr(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	d := utils.DayKey(*t)
	return &d
}
