package models

import (
	"fmt"
	"time"
)

// DayOfWeek is an ISO-8601 weekday: 1 = Monday ... 7 = Sunday.
type DayOfWeek int

const (
	Monday DayOfWeek = iota + 1
	Tuesday
	Wednesday
	Thursday
	Friday
	Saturday
	Sunday
)

// DayOfWeekFromTime converts a Go weekday into its ISO number.
func DayOfWeekFromTime(wd time.Weekday) DayOfWeek {
	if wd == time.Sunday {
		return Sunday
	}
	return DayOfWeek(wd)
}

// Weekday converts back to a Go weekday.
func (d DayOfWeek) Weekday() time.Weekday {
	if d == Sunday {
		return time.Sunday
	}
	return time.Weekday(d)
}

func (d DayOfWeek) Valid() bool {
	return d >= Monday && d <= Sunday
}

func (d DayOfWeek) String() string {
	if !d.Valid() {
		return fmt.Sprintf("DayOfWeek(%d)", int(d))
	}
	return d.Weekday().String()
}

// TimeOfDay names a slot within a day. Each slot of a schedule is a separate
// unit of expected work.
type TimeOfDay string

const (
	TimeOfDayMorning   TimeOfDay = "morning"
	TimeOfDayAfternoon TimeOfDay = "afternoon"
	TimeOfDayEvening   TimeOfDay = "evening"
	TimeOfDayNight     TimeOfDay = "night"
)

// HabitSchedule is a recurring commitment to a habit.
type HabitSchedule struct {
	ID         string      `json:"id"`
	UserID     string      `json:"user_id"`
	HabitID    string      `json:"habit_id"`
	DaysOfWeek []DayOfWeek `json:"days_of_week"`
	TimesOfDay []TimeOfDay `json:"times_of_day,omitempty"`
	StartDate  *time.Time  `json:"start_date,omitempty"` // nil means always
	EndDate    *time.Time  `json:"end_date,omitempty"`   // nil means still active
	Quantity   float64     `json:"quantity"`
	CreatedAt  time.Time   `json:"created_at"`
	UpdatedAt  time.Time   `json:"updated_at"`
}

// Units returns how many independent units of work the schedule expects on a
// day it is active.
func (s HabitSchedule) Units() int {
	if len(s.TimesOfDay) > 1 {
		return len(s.TimesOfDay)
	}
	return 1
}

// RunsOn reports whether the weekday set contains d.
func (s HabitSchedule) RunsOn(d DayOfWeek) bool {
	for _, day := range s.DaysOfWeek {
		if day == d {
			return true
		}
	}
	return false
}
