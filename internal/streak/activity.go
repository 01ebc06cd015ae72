// Package streak classifies a user's calendar days from their habit schedules
// and planned-day records, and derives current and longest streaks from the
// resulting day sequence.
package streak

import (
	"time"

	"github.com/julianstephens/habitd/internal/models"
	"github.com/julianstephens/habitd/internal/utils"
)

// ExpectedUnits counts the units of work (schedule x time-of-day slot) due on
// day. An empty habitID counts every habit. The schedules are pre-fetched; this
// never performs I/O so single-day and bulk callers agree.
func ExpectedUnits(schedules []models.HabitSchedule, day time.Time, habitID string) int {
	day = utils.DayKey(day)
	weekday := models.DayOfWeekFromTime(day.Weekday())

	units := 0
	for _, s := range schedules {
		if habitID != "" && s.HabitID != habitID {
			continue
		}
		if !s.RunsOn(weekday) || !activeOn(s, day) {
			continue
		}
		units += s.Units()
	}
	return units
}

// activeOn checks the inclusive start/end bounds of a schedule.
func activeOn(s models.HabitSchedule, day time.Time) bool {
	if s.StartDate != nil && utils.DayKey(*s.StartDate).After(day) {
		return false
	}
	if s.EndDate != nil && utils.DayKey(*s.EndDate).Before(day) {
		return false
	}
	return true
}
