package streak

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"

	"github.com/julianstephens/habitd/internal/models"
)

var errBoom = errors.New("boom")

// jan returns the day key of January d, 2024. 2024-01-01 is a Monday.
func jan(d int) time.Time {
	return time.Date(2024, 1, d, 0, 0, 0, 0, time.UTC)
}

func daily(id, habitID string, slots ...models.TimeOfDay) models.HabitSchedule {
	return models.HabitSchedule{
		ID:         id,
		UserID:     "u1",
		HabitID:    habitID,
		DaysOfWeek: []models.DayOfWeek{1, 2, 3, 4, 5, 6, 7},
		TimesOfDay: slots,
		Quantity:   1,
	}
}

func done(scheduleID string) models.PlannedTask {
	return models.PlannedTask{ScheduleID: scheduleID, Quantity: 1, TargetQuantity: 1, Status: models.StateComplete, Active: true}
}

func short(scheduleID string) models.PlannedTask {
	return models.PlannedTask{ScheduleID: scheduleID, Quantity: 0.5, TargetQuantity: 1, Status: models.StateIncomplete, Active: true}
}

func withStatus(scheduleID string, status models.CompletionState) models.PlannedTask {
	return models.PlannedTask{ScheduleID: scheduleID, TargetQuantity: 1, Status: status, Active: true}
}

func planned(day time.Time, tasks ...models.PlannedTask) models.PlannedDay {
	return models.PlannedDay{ID: "pd-" + day.Format("0102"), UserID: "u1", Day: day, Status: models.StateIncomplete, Tasks: tasks}
}

func states(results []models.HabitStreakResult) []models.CompletionState {
	out := make([]models.CompletionState, len(results))
	for i, r := range results {
		out[i] = r.State
	}
	return out
}

func seq(s ...models.CompletionState) []models.HabitStreakResult {
	out := make([]models.HabitStreakResult, len(s))
	for i, st := range s {
		out[i] = models.HabitStreakResult{Day: jan(i + 1), State: st}
	}
	return out
}

// fakeStore is an in-memory stand-in for every store the engine reads.
type fakeStore struct {
	mu        sync.Mutex
	schedules map[string][]models.HabitSchedule
	days      map[string][]models.PlannedDay
	streaks   map[string]int
	timezones map[string]string
	habits    map[string][]string

	scheduleErr error
	dayErr      error
	getErr      error
	setErr      error
	userErr     map[string]error

	// setDelay widens the window between reading and writing a scalar
	setDelay time.Duration
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		schedules: make(map[string][]models.HabitSchedule),
		days:      make(map[string][]models.PlannedDay),
		streaks:   make(map[string]int),
		timezones: make(map[string]string),
		habits:    make(map[string][]string),
		userErr:   make(map[string]error),
	}
}

func streakKey(userID string, typ models.StreakType, habitID string) string {
	return userID + "|" + string(typ) + "|" + habitID
}

func (f *fakeStore) GetAllActiveSchedulesForUserInRange(_ context.Context, userID string, _, _ time.Time) ([]models.HabitSchedule, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.scheduleErr != nil {
		return nil, f.scheduleErr
	}
	return append([]models.HabitSchedule(nil), f.schedules[userID]...), nil
}

func (f *fakeStore) GetAllPlannedDaysForUserInRange(_ context.Context, userID string, start, end time.Time) ([]models.PlannedDay, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.dayErr != nil {
		return nil, f.dayErr
	}
	var out []models.PlannedDay
	for _, d := range f.days[userID] {
		if !d.Day.Before(start) && !d.Day.After(end) {
			out = append(out, d)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Day.Before(out[j].Day) })
	return out, nil
}

func (f *fakeStore) GetFirstPlannedDay(_ context.Context, userID string) (*models.PlannedDay, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.userErr[userID]; err != nil {
		return nil, err
	}
	if f.dayErr != nil {
		return nil, f.dayErr
	}
	var first *models.PlannedDay
	for i, d := range f.days[userID] {
		if first == nil || d.Day.Before(first.Day) {
			first = &f.days[userID][i]
		}
	}
	if first == nil {
		return nil, nil
	}
	cp := *first
	return &cp, nil
}

func (f *fakeStore) GetStreak(_ context.Context, userID string, typ models.StreakType, habitID string) (int, bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.getErr != nil {
		return 0, false, f.getErr
	}
	v, ok := f.streaks[streakKey(userID, typ, habitID)]
	return v, ok, nil
}

func (f *fakeStore) SetStreak(_ context.Context, userID string, typ models.StreakType, value int, habitID string) error {
	time.Sleep(f.setDelay)
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.setErr != nil {
		return f.setErr
	}
	f.streaks[streakKey(userID, typ, habitID)] = value
	return nil
}

func (f *fakeStore) GetUserTimezone(_ context.Context, userID string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.timezones[userID], nil
}

func (f *fakeStore) ListActiveHabitIDs(_ context.Context, userID string) ([]string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.habits[userID], nil
}

func (f *fakeStore) stored(userID string, typ models.StreakType, habitID string) (int, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	v, ok := f.streaks[streakKey(userID, typ, habitID)]
	return v, ok
}
