package streak

import (
	"github.com/julianstephens/habitd/internal/models"
)

// Scope selects whether a day is judged as a whole or for one habit only.
type Scope struct {
	habitID string
}

// DayScope judges every scheduled habit of the day together.
func DayScope() Scope {
	return Scope{}
}

// HabitScope judges only the tasks belonging to habitID's schedules.
func HabitScope(habitID string) Scope {
	return Scope{habitID: habitID}
}

// ScopeFor returns HabitScope for a non-empty id and DayScope otherwise.
func ScopeFor(habitID string) Scope {
	if habitID == "" {
		return DayScope()
	}
	return HabitScope(habitID)
}

func (s Scope) HabitID() string { return s.habitID }

func (s Scope) IsHabit() bool { return s.habitID != "" }

// TaskDone reports whether a task satisfies its unit: soft-deleted tasks are
// excused, skipped tasks are excused, otherwise the target must be met.
func TaskDone(t models.PlannedTask) bool {
	if !t.Active || t.Status == models.StateSkipped {
		return true
	}
	return t.Quantity >= t.TargetQuantity
}

// Classifier judges planned days against expected unit counts. It knows the
// schedules of the window so it can attribute tasks to habits; tasks pointing
// at unknown schedules contribute nothing.
type Classifier struct {
	scope     Scope
	scheduled map[string]string // schedule id -> habit id
}

// NewClassifier builds a classifier for scope over the given schedules.
func NewClassifier(scope Scope, schedules []models.HabitSchedule) *Classifier {
	scheduled := make(map[string]string, len(schedules))
	for _, s := range schedules {
		scheduled[s.ID] = s.HabitID
	}
	return &Classifier{scope: scope, scheduled: scheduled}
}

// Classify returns the completion state of day given the units expected of
// it. day may be nil when nothing was ever recorded for the date.
func (c *Classifier) Classify(expected int, day *models.PlannedDay) models.CompletionState {
	if day != nil && day.Status == models.StateAway {
		return models.StateAway
	}
	if expected <= 0 {
		return models.StateNoSchedule
	}
	if c.scope.IsHabit() {
		return c.classifyHabit(expected, c.activeTasks(day))
	}
	return c.classifyDay(expected, c.activeTasks(day))
}

func (c *Classifier) classifyDay(expected int, tasks []models.PlannedTask) models.CompletionState {
	if anyFailed(tasks) {
		return models.StateFailed
	}
	if len(tasks) < expected {
		return models.StateIncomplete
	}
	for _, t := range tasks {
		if !TaskDone(t) {
			// logged but short of target on a closed day
			return models.StateFailed
		}
	}
	return models.StateComplete
}

func (c *Classifier) classifyHabit(expected int, tasks []models.PlannedTask) models.CompletionState {
	if anyFailed(tasks) {
		return models.StateFailed
	}
	if len(tasks) < expected {
		if len(tasks) > 0 {
			return models.StateFailed
		}
		return models.StateIncomplete
	}

	skipped := 0
	for _, t := range tasks {
		if !TaskDone(t) {
			return models.StateIncomplete
		}
		if t.Status == models.StateSkipped {
			skipped++
		}
	}
	if skipped == len(tasks) {
		return models.StateSkipped
	}
	return models.StateComplete
}

// activeTasks returns the day's live tasks that fall inside the scope.
func (c *Classifier) activeTasks(day *models.PlannedDay) []models.PlannedTask {
	if day == nil {
		return nil
	}
	tasks := make([]models.PlannedTask, 0, len(day.Tasks))
	for _, t := range day.Tasks {
		if !t.Active {
			continue
		}
		habitID, ok := c.scheduled[t.ScheduleID]
		if !ok {
			continue
		}
		if c.scope.IsHabit() && habitID != c.scope.habitID {
			continue
		}
		tasks = append(tasks, t)
	}
	return tasks
}

func anyFailed(tasks []models.PlannedTask) bool {
	for _, t := range tasks {
		if t.Status == models.StateFailed {
			return true
		}
	}
	return false
}
