package models

import "time"

// CompletionState is the classified outcome of a day (or of one habit on a day).
type CompletionState string

const (
	StateNoSchedule CompletionState = "NO_SCHEDULE"
	StateIncomplete CompletionState = "INCOMPLETE"
	StateComplete   CompletionState = "COMPLETE"
	StateFailed     CompletionState = "FAILED"
	StateSkipped    CompletionState = "SKIPPED"
	StateAway       CompletionState = "AWAY"
)

func (c CompletionState) Valid() bool {
	switch c {
	case StateNoSchedule, StateIncomplete, StateComplete, StateFailed, StateSkipped, StateAway:
		return true
	}
	return false
}

// Closed reports whether a day in this state can no longer change its outcome.
func (c CompletionState) Closed() bool {
	switch c {
	case StateComplete, StateNoSchedule, StateFailed, StateAway:
		return true
	}
	return false
}

// PlannedTask is one realized unit of work against a schedule (and slot) on a day.
type PlannedTask struct {
	ID             string          `json:"id"`
	PlannedDayID   string          `json:"planned_day_id"`
	ScheduleID     string          `json:"schedule_id"`
	TimeOfDay      TimeOfDay       `json:"time_of_day,omitempty"`
	Quantity       float64         `json:"quantity"`
	TargetQuantity float64         `json:"target_quantity"`
	Status         CompletionState `json:"status"`
	Active         bool            `json:"active"`
	CreatedAt      time.Time       `json:"created_at"`
	UpdatedAt      time.Time       `json:"updated_at"`
}

// PlannedDay is the realized record of one user's calendar day.
type PlannedDay struct {
	ID        string          `json:"id"`
	UserID    string          `json:"user_id"`
	Day       time.Time       `json:"day"` // midnight UTC of the calendar date
	Status    CompletionState `json:"status"`
	Tasks     []PlannedTask   `json:"tasks"`
	CreatedAt time.Time       `json:"created_at"`
	UpdatedAt time.Time       `json:"updated_at"`
}
