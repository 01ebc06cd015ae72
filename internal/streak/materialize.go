package streak

import (
	"time"

	"github.com/julianstephens/habitd/internal/constants"
	"github.com/julianstephens/habitd/internal/models"
	"github.com/julianstephens/habitd/internal/utils"
)

// Materialize classifies every calendar day from start to end inclusive, in
// ascending order. Planned days are matched by calendar date, so records whose
// timestamps carry a time of day still line up. A day without a record is
// classified from the schedules alone. An inverted range yields nil.
func Materialize(start, end time.Time, schedules []models.HabitSchedule, days []models.PlannedDay, scope Scope) []models.HabitStreakResult {
	start, end = utils.DayKey(start), utils.DayKey(end)
	if end.Before(start) {
		return nil
	}

	byDay := make(map[string]*models.PlannedDay, len(days))
	for i := range days {
		byDay[days[i].Day.Format(constants.DateFormat)] = &days[i]
	}

	classifier := NewClassifier(scope, schedules)
	results := make([]models.HabitStreakResult, 0, utils.DaysBetween(start, end)+1)
	for day := start; !day.After(end); day = day.AddDate(0, 0, 1) {
		expected := ExpectedUnits(schedules, day, scope.HabitID())
		state := classifier.Classify(expected, byDay[day.Format(constants.DateFormat)])
		results = append(results, models.HabitStreakResult{Day: day, State: state})
	}
	return results
}
