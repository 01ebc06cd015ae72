package streak

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/julianstephens/habitd/internal/events"
	"github.com/julianstephens/habitd/internal/models"
)

type recordingPublisher struct {
	mu     sync.Mutex
	events []events.Event
}

func (p *recordingPublisher) Publish(_ context.Context, e events.Event) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, e)
	return true
}

type recordingNotifier struct {
	mu    sync.Mutex
	texts []string
	err   error
}

func (n *recordingNotifier) Notify(text string) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.texts = append(n.texts, text)
	return n.err
}

// brokenStreakStore seeds u1 with a daily schedule from 2024-01-01, complete
// days 01-01..01-05 and a failed 01-06.
func brokenStreakStore() *fakeStore {
	store := newFakeStore()
	sch := daily("s1", "h1")
	sch.StartDate = ptr(jan(1))
	store.schedules["u1"] = []models.HabitSchedule{sch}
	for d := 1; d <= 5; d++ {
		store.days["u1"] = append(store.days["u1"], planned(jan(d), done("s1")))
	}
	store.days["u1"] = append(store.days["u1"], planned(jan(6), withStatus("s1", models.StateFailed)))
	store.timezones["u1"] = "UTC"
	return store
}

func clockAt(day time.Time) Option {
	return WithClock(func() time.Time { return day.Add(12 * time.Hour) })
}

func TestComputeBrokenStreak(t *testing.T) {
	store := brokenStreakStore()
	o := New(store, store, store, store, clockAt(jan(7)))

	sum, err := o.Compute(context.Background(), "u1", "")
	if err != nil {
		t.Fatalf("Compute() error = %v", err)
	}
	if sum.Current != 0 || sum.Longest != 5 {
		t.Errorf("Compute() = %+v, want current 0 longest 5", sum)
	}
}

func TestComputeMissingDay(t *testing.T) {
	store := newFakeStore()
	sch := daily("s1", "h1")
	sch.StartDate = ptr(jan(1))
	store.schedules["u1"] = []models.HabitSchedule{sch}
	store.days["u1"] = []models.PlannedDay{planned(jan(1), done("s1"))}
	store.timezones["u1"] = "UTC"

	o := New(store, store, store, store, clockAt(jan(3)))
	sum, err := o.Compute(context.Background(), "u1", "")
	if err != nil {
		t.Fatalf("Compute() error = %v", err)
	}
	if sum.Current != 0 || sum.Longest != 1 {
		t.Errorf("Compute() = %+v, want current 0 longest 1", sum)
	}
}

func TestComputeTreatsOpenTodayAsPending(t *testing.T) {
	store := newFakeStore()
	store.schedules["u1"] = []models.HabitSchedule{daily("s1", "h1")}
	for d := 1; d <= 3; d++ {
		store.days["u1"] = append(store.days["u1"], planned(jan(d), done("s1")))
	}
	store.days["u1"] = append(store.days["u1"], planned(jan(4)))
	store.timezones["u1"] = "UTC"
	o := New(store, store, store, store, clockAt(jan(4)))

	// the habit is judged through today, whose open state must not break it
	sum, err := o.Compute(context.Background(), "u1", "h1")
	if err != nil {
		t.Fatalf("Compute() error = %v", err)
	}
	if sum.Current != 3 {
		t.Errorf("habit current = %d, want 3", sum.Current)
	}

	// the day aggregate stops at yesterday
	sum, err = o.Compute(context.Background(), "u1", "")
	if err != nil {
		t.Fatalf("Compute() error = %v", err)
	}
	if sum.Current != 3 || sum.Longest != 3 {
		t.Errorf("day streak = %+v, want 3/3", sum)
	}
}

func TestComputeWithoutHistory(t *testing.T) {
	store := newFakeStore()
	store.schedules["u1"] = []models.HabitSchedule{daily("s1", "h1")}
	o := New(store, store, store, store, clockAt(jan(7)))

	sum, err := o.FullPopulate(context.Background(), "u1", "")
	if err != nil {
		t.Fatalf("FullPopulate() error = %v", err)
	}
	if sum != (Summary{}) {
		t.Errorf("FullPopulate() = %+v, want zero", sum)
	}
	if v, ok := store.stored("u1", models.StreakCurrent, ""); !ok || v != 0 {
		t.Errorf("stored current = %d, %v; want 0", v, ok)
	}
}

func TestComputeWithoutTimezone(t *testing.T) {
	store := brokenStreakStore()
	store.timezones["u1"] = ""
	o := New(store, store, store, store, clockAt(jan(7)))

	sum, err := o.Compute(context.Background(), "u1", "")
	if err != nil {
		t.Fatalf("Compute() error = %v", err)
	}
	// the scan window ends at 01-06 (yesterday at UTC-12)
	if sum.Current != 0 || sum.Longest != 5 {
		t.Errorf("Compute() = %+v, want current 0 longest 5", sum)
	}
}

func TestFullPopulateIsIdempotent(t *testing.T) {
	store := brokenStreakStore()
	o := New(store, store, store, store, clockAt(jan(6)))
	ctx := context.Background()

	first, err := o.FullPopulate(ctx, "u1", "h1")
	if err != nil {
		t.Fatalf("FullPopulate() error = %v", err)
	}
	second, err := o.FullPopulate(ctx, "u1", "h1")
	if err != nil {
		t.Fatalf("FullPopulate() error = %v", err)
	}
	if first != second {
		t.Errorf("FullPopulate() changed between runs: %+v then %+v", first, second)
	}
	if v, _ := store.stored("u1", models.StreakLongest, "h1"); v != first.Longest {
		t.Errorf("stored longest = %d, want %d", v, first.Longest)
	}
}

func TestFullPopulateSingleScalars(t *testing.T) {
	store := brokenStreakStore()
	o := New(store, store, store, store, clockAt(jan(6)))
	ctx := context.Background()

	current, err := o.FullPopulateCurrentStreak(ctx, "u1", "")
	if err != nil {
		t.Fatalf("FullPopulateCurrentStreak() error = %v", err)
	}
	if current != 5 {
		t.Errorf("current = %d, want 5", current)
	}
	if _, ok := store.stored("u1", models.StreakLongest, ""); ok {
		t.Error("FullPopulateCurrentStreak() should not store the longest streak")
	}

	longest, err := o.FullPopulateLongestStreak(ctx, "u1", "")
	if err != nil {
		t.Fatalf("FullPopulateLongestStreak() error = %v", err)
	}
	if longest != 5 {
		t.Errorf("longest = %d, want 5", longest)
	}
}

func TestFullPopulateErrors(t *testing.T) {
	t.Run("persist failure", func(t *testing.T) {
		store := brokenStreakStore()
		store.setErr = errBoom
		o := New(store, store, store, store, clockAt(jan(7)))
		if _, err := o.FullPopulate(context.Background(), "u1", ""); !errors.Is(err, errBoom) {
			t.Errorf("FullPopulate() error = %v, want errBoom", err)
		}
	})
	t.Run("fetch failure", func(t *testing.T) {
		store := brokenStreakStore()
		store.scheduleErr = errBoom
		o := New(store, store, store, store, clockAt(jan(7)))
		if _, err := o.FullPopulate(context.Background(), "u1", ""); !errors.Is(err, errBoom) {
			t.Errorf("FullPopulate() error = %v, want errBoom", err)
		}
		if _, ok := store.stored("u1", models.StreakCurrent, ""); ok {
			t.Error("nothing should be stored after a failed fetch")
		}
	})
}

func TestMilestoneNotification(t *testing.T) {
	store := brokenStreakStore()
	store.streaks[streakKey("u1", models.StreakCurrent, "")] = 1
	n := &recordingNotifier{err: errBoom}
	o := New(store, store, store, store, clockAt(jan(6)), WithNotifier(n, []int{3, 5, 7}))

	if _, err := o.FullPopulate(context.Background(), "u1", ""); err != nil {
		t.Fatalf("FullPopulate() error = %v (notifier failures must not surface)", err)
	}
	if len(n.texts) != 1 || !strings.HasPrefix(n.texts[0], "5-day streak") {
		t.Errorf("notifications = %q, want one for the 5-day milestone", n.texts)
	}

	// unchanged streak: no new milestone
	if _, err := o.FullPopulate(context.Background(), "u1", ""); err != nil {
		t.Fatalf("FullPopulate() error = %v", err)
	}
	if len(n.texts) != 1 {
		t.Errorf("notifications = %q, want no repeat", n.texts)
	}
}

func TestMilestoneAnnouncedOnceAcrossOverlappingEvents(t *testing.T) {
	store := brokenStreakStore()
	store.streaks[streakKey("u1", models.StreakCurrent, "")] = 1
	store.setDelay = 50 * time.Millisecond
	n := &recordingNotifier{}
	o := New(store, store, store, store, clockAt(jan(6)), WithNotifier(n, []int{5}))
	bus := events.NewBus()
	o.Register(bus)

	// one logged task fans out into a task event and a day event
	ctx := context.Background()
	bus.Publish(ctx, events.Event{Type: events.PlannedTaskCreated, UserID: "u1", HabitID: "h1", Day: jan(5)})
	bus.Publish(ctx, events.Event{Type: events.PlannedDayUpdated, UserID: "u1", Day: jan(5)})
	bus.Wait()

	n.mu.Lock()
	defer n.mu.Unlock()
	if len(n.texts) != 1 {
		t.Errorf("notifications = %q, want exactly one", n.texts)
	}
	if v, _ := store.stored("u1", models.StreakCurrent, ""); v != 5 {
		t.Errorf("day current = %d, want 5", v)
	}
}

func TestKeyLocksSerializeSameKey(t *testing.T) {
	var k keyLocks
	var mu sync.Mutex
	active, peak := 0, 0

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			defer k.lock("u1|")()
			mu.Lock()
			active++
			peak = max(peak, active)
			mu.Unlock()
			time.Sleep(time.Millisecond)
			mu.Lock()
			active--
			mu.Unlock()
		}()
	}
	wg.Wait()

	if peak != 1 {
		t.Errorf("peak holders = %d, want 1", peak)
	}
	if len(k.locks) != 0 {
		t.Errorf("locks retained = %d, want 0 once released", len(k.locks))
	}

	// different keys do not wait on each other
	unlockA := k.lock("u1|")
	unlockB := k.lock("u2|")
	unlockB()
	unlockA()
}

func TestReadUsesCacheAndRequestsRefresh(t *testing.T) {
	store := brokenStreakStore()
	store.streaks[streakKey("u1", models.StreakCurrent, "")] = 2
	store.streaks[streakKey("u1", models.StreakLongest, "")] = 9
	pub := &recordingPublisher{}
	o := New(store, store, store, store, clockAt(jan(7)), WithPublisher(pub))

	hs := o.GetBasic(context.Background(), "u1", "")
	if hs.CurrentStreak != 2 || hs.LongestStreak != 9 {
		t.Errorf("streaks = %d/%d, want cached 2/9", hs.CurrentStreak, hs.LongestStreak)
	}
	if len(hs.Results) != 29 || !hs.EndDate.Equal(jan(6)) {
		t.Errorf("window = %d days ending %s, want 29 ending 2024-01-06", len(hs.Results), hs.EndDate.Format("2006-01-02"))
	}
	if len(pub.events) != 1 || pub.events[0].Type != events.StreakRefreshRequested || pub.events[0].UserID != "u1" {
		t.Errorf("published = %+v, want one refresh request", pub.events)
	}
}

func TestReadFallsBackWithoutCache(t *testing.T) {
	store := brokenStreakStore()
	o := New(store, store, store, store, clockAt(jan(6)))

	hs := o.Get(context.Background(), "u1", "h1", jan(1), jan(5))
	if hs.CurrentStreak != 5 || hs.LongestStreak != 5 {
		t.Errorf("streaks = %d/%d, want window-computed 5/5", hs.CurrentStreak, hs.LongestStreak)
	}
	if hs.HabitID != "h1" || !hs.MedianDate.Equal(jan(3)) {
		t.Errorf("unexpected read model: %+v", hs)
	}
}

func TestReadFallbackKeepsTodayPending(t *testing.T) {
	store := newFakeStore()
	store.schedules["u1"] = []models.HabitSchedule{daily("s1", "h1")}
	for d := 1; d <= 3; d++ {
		store.days["u1"] = append(store.days["u1"], planned(jan(d), done("s1")))
	}
	store.days["u1"] = append(store.days["u1"], planned(jan(4)))
	store.timezones["u1"] = "UTC"
	o := New(store, store, store, store, clockAt(jan(4)))
	ctx := context.Background()

	sum, err := o.Compute(ctx, "u1", "h1")
	if err != nil {
		t.Fatalf("Compute() error = %v", err)
	}

	// no cached scalar yet: the window result must match what a recompute stores
	basic := o.GetBasic(ctx, "u1", "h1")
	if !basic.EndDate.Equal(jan(4)) {
		t.Fatalf("EndDate = %s, want today 2024-01-04", basic.EndDate.Format("2006-01-02"))
	}
	if basic.CurrentStreak != sum.Current || basic.CurrentStreak != 3 {
		t.Errorf("GetBasic current = %d, recompute = %d, want both 3", basic.CurrentStreak, sum.Current)
	}

	explicit := o.Get(ctx, "u1", "h1", jan(1), jan(4))
	if explicit.CurrentStreak != 3 {
		t.Errorf("Get through today current = %d, want 3", explicit.CurrentStreak)
	}

	// the same window read a day later ends on a closed date
	later := New(store, store, store, store, clockAt(jan(5)))
	if hs := later.Get(ctx, "u1", "h1", jan(1), jan(4)); hs.CurrentStreak != 0 {
		t.Errorf("Get through a closed day current = %d, want 0", hs.CurrentStreak)
	}
}

func TestReadNeverFails(t *testing.T) {
	store := brokenStreakStore()
	store.scheduleErr = errBoom
	store.getErr = errBoom
	o := New(store, store, store, store, clockAt(jan(7)))

	hs := o.GetAdvanced(context.Background(), "u1", "")
	if hs.Results != nil {
		t.Errorf("Results = %v, want empty on fetch failure", hs.Results)
	}
	if hs.CurrentStreak != 0 || hs.LongestStreak != 0 {
		t.Errorf("streaks = %d/%d, want 0/0", hs.CurrentStreak, hs.LongestStreak)
	}
	if hs.StartDate.Weekday() != time.Monday {
		t.Errorf("advanced window should start on the week start, got %s", hs.StartDate.Weekday())
	}
}

func TestReadClampsLongest(t *testing.T) {
	store := brokenStreakStore()
	store.streaks[streakKey("u1", models.StreakCurrent, "")] = 4
	store.streaks[streakKey("u1", models.StreakLongest, "")] = 1
	o := New(store, store, store, store, clockAt(jan(7)))

	hs := o.GetBasic(context.Background(), "u1", "")
	if hs.LongestStreak != 4 {
		t.Errorf("LongestStreak = %d, want clamped to current 4", hs.LongestStreak)
	}
}

func TestRegisterRecomputesOnEvents(t *testing.T) {
	store := brokenStreakStore()
	o := New(store, store, store, store, clockAt(jan(6)))
	bus := events.NewBus()
	o.Register(bus)

	bus.Publish(context.Background(), events.Event{Type: events.PlannedTaskCreated, UserID: "u1", HabitID: "h1", Day: jan(5)})
	bus.Wait()

	if v, ok := store.stored("u1", models.StreakCurrent, ""); !ok || v != 5 {
		t.Errorf("day current = %d, %v; want 5", v, ok)
	}
	if v, ok := store.stored("u1", models.StreakLongest, "h1"); !ok || v != 5 {
		t.Errorf("habit longest = %d, %v; want 5", v, ok)
	}
}

func TestRecomputeUsers(t *testing.T) {
	store := brokenStreakStore()
	store.habits["u1"] = []string{"h1"}
	store.userErr["u2"] = errBoom
	o := New(store, store, store, store, clockAt(jan(7)))

	err := o.RecomputeUsers(context.Background(), []string{"u2", "u1", "u3"}, store, 2)
	if !errors.Is(err, errBoom) || !strings.Contains(err.Error(), "user u2") {
		t.Errorf("RecomputeUsers() error = %v, want u2's failure", err)
	}
	if v, ok := store.stored("u1", models.StreakLongest, "h1"); !ok || v != 5 {
		t.Errorf("u1 habit longest = %d, %v; want 5", v, ok)
	}
	if _, ok := store.stored("u3", models.StreakCurrent, ""); !ok {
		t.Error("u3 should be recomputed despite u2 failing")
	}
}
