package streak

import (
	"context"
	"fmt"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/julianstephens/habitd/internal/constants"
	"github.com/julianstephens/habitd/internal/events"
	"github.com/julianstephens/habitd/internal/logger"
	"github.com/julianstephens/habitd/internal/models"
	"github.com/julianstephens/habitd/internal/utils"
)

// ScheduleReader reads the schedules overlapping a date range.
type ScheduleReader interface {
	GetAllActiveSchedulesForUserInRange(ctx context.Context, userID string, start, end time.Time) ([]models.HabitSchedule, error)
}

// PlannedDayReader reads realized days with their tasks.
type PlannedDayReader interface {
	GetAllPlannedDaysForUserInRange(ctx context.Context, userID string, start, end time.Time) ([]models.PlannedDay, error)
	// GetFirstPlannedDay returns nil when the user has no history.
	GetFirstPlannedDay(ctx context.Context, userID string) (*models.PlannedDay, error)
}

// StreakStore persists the cached streak scalars. An empty habitID addresses
// the whole-day streak.
type StreakStore interface {
	GetStreak(ctx context.Context, userID string, typ models.StreakType, habitID string) (int, bool, error)
	SetStreak(ctx context.Context, userID string, typ models.StreakType, value int, habitID string) error
}

// TimezoneSource returns a user's IANA zone name, empty when unknown.
type TimezoneSource interface {
	GetUserTimezone(ctx context.Context, userID string) (string, error)
}

// HabitLister lists the habits of a user that still have streaks to maintain.
type HabitLister interface {
	ListActiveHabitIDs(ctx context.Context, userID string) ([]string, error)
}

type Publisher interface {
	Publish(ctx context.Context, e events.Event) bool
}

type Subscriber interface {
	Subscribe(t events.Type, h events.Handler)
}

type Notifier interface {
	Notify(text string) error
}

// Summary holds both streak scalars of one computation.
type Summary struct {
	Current int
	Longest int
}

// Orchestrator serves display reads of streaks and recomputes the cached
// streak scalars.
type Orchestrator struct {
	schedules ScheduleReader
	days      PlannedDayReader
	streaks   StreakStore
	users     TimezoneSource

	publisher  Publisher
	notifier   Notifier
	milestones []int
	now        func() time.Time

	basicDays    int
	advancedDays int
	weekStart    time.Weekday
	maxWeeks     int

	recomputing keyLocks
}

type Option func(*Orchestrator)

// WithPublisher makes reads request a background refresh.
func WithPublisher(p Publisher) Option {
	return func(o *Orchestrator) { o.publisher = p }
}

// WithNotifier announces current streaks reaching any of milestones.
func WithNotifier(n Notifier, milestones []int) Option {
	return func(o *Orchestrator) {
		o.notifier = n
		o.milestones = milestones
	}
}

func WithClock(now func() time.Time) Option {
	return func(o *Orchestrator) { o.now = now }
}

// WithWindows overrides the read-mode display windows.
func WithWindows(basicDays, advancedDays int, weekStart time.Weekday, maxWeeks int) Option {
	return func(o *Orchestrator) {
		o.basicDays = basicDays
		o.advancedDays = advancedDays
		o.weekStart = weekStart
		o.maxWeeks = maxWeeks
	}
}

func New(schedules ScheduleReader, days PlannedDayReader, streaks StreakStore, users TimezoneSource, opts ...Option) *Orchestrator {
	o := &Orchestrator{
		schedules:    schedules,
		days:         days,
		streaks:      streaks,
		users:        users,
		now:          time.Now,
		basicDays:    constants.BasicWindowDays,
		advancedDays: constants.AdvancedWindowDays,
		weekStart:    constants.DefaultWeekStart,
		maxWeeks:     constants.DefaultMaxWeeks,
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// GetBasic returns the short trailing window used by compact displays.
func (o *Orchestrator) GetBasic(ctx context.Context, userID, habitID string) models.HabitStreak {
	scope := ScopeFor(habitID)
	end, pending := o.resolveEnd(ctx, userID, scope)
	return o.read(ctx, userID, scope, BasicWindow(end, o.basicDays), pending)
}

// GetAdvanced returns the long window aligned to whole weeks for calendar grids.
func (o *Orchestrator) GetAdvanced(ctx context.Context, userID, habitID string) models.HabitStreak {
	scope := ScopeFor(habitID)
	end, pending := o.resolveEnd(ctx, userID, scope)
	return o.read(ctx, userID, scope, AdvancedWindow(end, o.advancedDays, o.weekStart, o.maxWeeks), pending)
}

// Get returns an explicit window.
func (o *Orchestrator) Get(ctx context.Context, userID, habitID string, start, end time.Time) models.HabitStreak {
	w := NewWindow(start, end)
	return o.read(ctx, userID, ScopeFor(habitID), w, o.isToday(ctx, userID, w.End))
}

// read never fails: storage problems degrade to an empty sequence and the
// streaks computed from whatever is available.
func (o *Orchestrator) read(ctx context.Context, userID string, scope Scope, w Window, pending bool) models.HabitStreak {
	hs := models.HabitStreak{
		UserID:     userID,
		HabitID:    scope.HabitID(),
		StartDate:  w.Start,
		MedianDate: w.Median,
		EndDate:    w.End,
	}

	schedules, days, err := o.fetch(ctx, userID, w.Start, w.End)
	if err != nil {
		logger.Warn("Streak window unavailable", "user", userID, "habit", scope.HabitID(), "error", err)
	} else {
		hs.Results = Materialize(w.Start, w.End, schedules, days, scope)
	}

	hs.CurrentStreak = o.cached(ctx, userID, models.StreakCurrent, scope.HabitID(), func() int {
		if pending {
			return CurrentStreakPendingLast(hs.Results)
		}
		return CurrentStreak(hs.Results)
	})
	hs.LongestStreak = o.cached(ctx, userID, models.StreakLongest, scope.HabitID(), func() int { return LongestStreak(hs.Results) })
	if hs.LongestStreak < hs.CurrentStreak {
		hs.LongestStreak = hs.CurrentStreak
	}

	o.requestRefresh(ctx, userID, scope.HabitID())
	return hs
}

func (o *Orchestrator) cached(ctx context.Context, userID string, typ models.StreakType, habitID string, fallback func() int) int {
	value, ok, err := o.streaks.GetStreak(ctx, userID, typ, habitID)
	if err != nil {
		logger.Warn("Cached streak unavailable", "user", userID, "type", typ, "habit", habitID, "error", err)
	}
	if err != nil || !ok {
		return fallback()
	}
	return value
}

func (o *Orchestrator) requestRefresh(ctx context.Context, userID, habitID string) {
	if o.publisher == nil {
		return
	}
	o.publisher.Publish(ctx, events.Event{
		Type:    events.StreakRefreshRequested,
		UserID:  userID,
		HabitID: habitID,
	})
}

// FullPopulateCurrentStreak recomputes the current streak over the user's
// whole history and stores it.
func (o *Orchestrator) FullPopulateCurrentStreak(ctx context.Context, userID, habitID string) (int, error) {
	defer o.recomputing.lock(userID + "|" + habitID)()

	sum, err := o.Compute(ctx, userID, habitID)
	if err != nil {
		return 0, err
	}
	if err := o.storeCurrent(ctx, userID, habitID, sum.Current); err != nil {
		return 0, err
	}
	return sum.Current, nil
}

// FullPopulateLongestStreak recomputes the longest streak over the user's
// whole history and stores it.
func (o *Orchestrator) FullPopulateLongestStreak(ctx context.Context, userID, habitID string) (int, error) {
	defer o.recomputing.lock(userID + "|" + habitID)()

	sum, err := o.Compute(ctx, userID, habitID)
	if err != nil {
		return 0, err
	}
	if err := o.store(ctx, userID, models.StreakLongest, sum.Longest, habitID); err != nil {
		return 0, err
	}
	return sum.Longest, nil
}

// FullPopulate recomputes and stores both scalars from one materialization.
// Recomputes of the same (user, habit) run one at a time so that reading the
// previous scalar, storing the new one and announcing a milestone happen as
// one step.
func (o *Orchestrator) FullPopulate(ctx context.Context, userID, habitID string) (Summary, error) {
	defer o.recomputing.lock(userID + "|" + habitID)()

	sum, err := o.Compute(ctx, userID, habitID)
	if err != nil {
		return Summary{}, err
	}
	if err := o.storeCurrent(ctx, userID, habitID, sum.Current); err != nil {
		return Summary{}, err
	}
	if err := o.store(ctx, userID, models.StreakLongest, sum.Longest, habitID); err != nil {
		return Summary{}, err
	}
	logger.Debug("Recomputed streaks", "user", userID, "habit", habitID, "current", sum.Current, "longest", sum.Longest)
	return sum, nil
}

// Compute derives both scalars from the first planned day up to the resolved
// end date without storing them. A user without history has zero streaks.
func (o *Orchestrator) Compute(ctx context.Context, userID, habitID string) (Summary, error) {
	scope := ScopeFor(habitID)

	first, err := o.days.GetFirstPlannedDay(ctx, userID)
	if err != nil {
		return Summary{}, fmt.Errorf("failed to load first planned day: %w", err)
	}
	if first == nil {
		return Summary{}, nil
	}

	end, pending := o.resolveEnd(ctx, userID, scope)
	start := utils.DayKey(first.Day)
	if end.Before(start) {
		return Summary{}, nil
	}

	schedules, days, err := o.fetch(ctx, userID, start, end)
	if err != nil {
		return Summary{}, err
	}
	results := Materialize(start, end, schedules, days, scope)

	sum := Summary{Longest: LongestStreak(results)}
	if pending {
		sum.Current = CurrentStreakPendingLast(results)
	} else {
		sum.Current = CurrentStreak(results)
	}
	return sum, nil
}

func (o *Orchestrator) storeCurrent(ctx context.Context, userID, habitID string, value int) error {
	previous, _, prevErr := o.streaks.GetStreak(ctx, userID, models.StreakCurrent, habitID)
	if prevErr != nil {
		logger.Warn("Previous streak unavailable", "user", userID, "habit", habitID, "error", prevErr)
	}
	if err := o.store(ctx, userID, models.StreakCurrent, value, habitID); err != nil {
		return err
	}
	if prevErr == nil {
		o.announce(userID, habitID, previous, value)
	}
	return nil
}

func (o *Orchestrator) store(ctx context.Context, userID string, typ models.StreakType, value int, habitID string) error {
	if err := o.streaks.SetStreak(ctx, userID, typ, value, habitID); err != nil {
		logger.Error("Failed to store streak", "user", userID, "type", typ, "habit", habitID, "error", err)
		return fmt.Errorf("failed to store %s streak: %w", typ, err)
	}
	return nil
}

// announce sends one notification for the highest milestone crossed.
func (o *Orchestrator) announce(userID, habitID string, previous, current int) {
	if o.notifier == nil {
		return
	}
	reached := 0
	for _, m := range o.milestones {
		if previous < m && current >= m && m > reached {
			reached = m
		}
	}
	if reached == 0 {
		return
	}
	if err := o.notifier.Notify(fmt.Sprintf("%d-day streak! Keep it going.", reached)); err != nil {
		logger.Warn("Streak notification failed", "user", userID, "habit", habitID, "milestone", reached, "error", err)
	}
}

// resolveEnd returns the cutoff date and whether that date may still be in
// progress for the user.
func (o *Orchestrator) resolveEnd(ctx context.Context, userID string, scope Scope) (time.Time, bool) {
	timezone, err := o.users.GetUserTimezone(ctx, userID)
	if err != nil {
		logger.Warn("User timezone unavailable", "user", userID, "error", err)
		timezone = ""
	}

	end, err := ResolverFor(o.days, timezone, o.now).ResolveEndDate(ctx, userID, scope)
	if err != nil {
		logger.Warn("Falling back to default end date", "user", userID, "end", utils.FormatDay(end), "error", err)
	}
	return end, isToday(timezone, end, o.now())
}

// isToday reports whether day is the user's current calendar date, the one
// date whose open work is still pending.
func (o *Orchestrator) isToday(ctx context.Context, userID string, day time.Time) bool {
	timezone, err := o.users.GetUserTimezone(ctx, userID)
	if err != nil {
		return false
	}
	return isToday(timezone, day, o.now())
}

func isToday(timezone string, day, now time.Time) bool {
	if timezone == "" {
		return false
	}
	loc, err := utils.LoadLocation(timezone)
	if err != nil {
		return false
	}
	return utils.DayKey(day).Equal(utils.TodayIn(now, loc))
}

// fetch loads schedules and planned days for the range concurrently.
func (o *Orchestrator) fetch(ctx context.Context, userID string, start, end time.Time) ([]models.HabitSchedule, []models.PlannedDay, error) {
	var schedules []models.HabitSchedule
	var days []models.PlannedDay

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		schedules, err = o.schedules.GetAllActiveSchedulesForUserInRange(ctx, userID, start, end)
		if err != nil {
			return fmt.Errorf("failed to load schedules: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		var err error
		days, err = o.days.GetAllPlannedDaysForUserInRange(ctx, userID, start, end)
		if err != nil {
			return fmt.Errorf("failed to load planned days: %w", err)
		}
		return nil
	})
	if err := g.Wait(); err != nil {
		return nil, nil, err
	}
	return schedules, days, nil
}

// Register subscribes the recompute path to every signal that can move a
// streak.
func (o *Orchestrator) Register(bus Subscriber) {
	for _, t := range []events.Type{
		events.StreakRefreshRequested,
		events.PlannedDayUpdated,
		events.PlannedTaskCreated,
		events.PlannedTaskUpdated,
		events.ScheduleChanged,
	} {
		bus.Subscribe(t, o.handle)
	}
}

func (o *Orchestrator) handle(ctx context.Context, e events.Event) error {
	if _, err := o.FullPopulate(ctx, e.UserID, ""); err != nil {
		return err
	}
	if e.HabitID == "" {
		return nil
	}
	_, err := o.FullPopulate(ctx, e.UserID, e.HabitID)
	return err
}

// RecomputeUsers runs FullPopulate for each user's day streak and for each of
// their habits, at most concurrency users at a time. Every user is attempted;
// the first error is returned.
func (o *Orchestrator) RecomputeUsers(ctx context.Context, userIDs []string, habits HabitLister, concurrency int) error {
	if concurrency < 1 {
		concurrency = 1
	}

	var g errgroup.Group
	g.SetLimit(concurrency)
	for _, userID := range userIDs {
		g.Go(func() error {
			if _, err := o.FullPopulate(ctx, userID, ""); err != nil {
				return fmt.Errorf("user %s: %w", userID, err)
			}
			habitIDs, err := habits.ListActiveHabitIDs(ctx, userID)
			if err != nil {
				return fmt.Errorf("user %s: failed to list habits: %w", userID, err)
			}
			for _, habitID := range habitIDs {
				if _, err := o.FullPopulate(ctx, userID, habitID); err != nil {
					return fmt.Errorf("user %s habit %s: %w", userID, habitID, err)
				}
			}
			return nil
		})
	}
	return g.Wait()
}

// keyLocks hands out one mutex per key, dropping it once no caller holds or
// waits for it.
type keyLocks struct {
	mu    sync.Mutex
	locks map[string]*keyLock
}

type keyLock struct {
	sync.Mutex
	refs int
}

// lock blocks until key is free and returns its unlock function.
func (k *keyLocks) lock(key string) func() {
	k.mu.Lock()
	if k.locks == nil {
		k.locks = make(map[string]*keyLock)
	}
	l, ok := k.locks[key]
	if !ok {
		l = &keyLock{}
		k.locks[key] = l
	}
	l.refs++
	k.mu.Unlock()

	l.Lock()
	return func() {
		l.Unlock()
		k.mu.Lock()
		if l.refs--; l.refs == 0 {
			delete(k.locks, key)
		}
		k.mu.Unlock()
	}
}
