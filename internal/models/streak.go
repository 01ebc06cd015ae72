package models

import "time"

// StreakType selects which cached streak scalar is addressed.
type StreakType string

const (
	StreakCurrent StreakType = "CURRENT"
	StreakLongest StreakType = "LONGEST"
)

// HabitStreakResult pairs a calendar day with its classified state.
type HabitStreakResult struct {
	Day   time.Time       `json:"day"`
	State CompletionState `json:"state"`
}

// HabitStreak is the display read-model for a window of days.
type HabitStreak struct {
	UserID        string              `json:"user_id"`
	HabitID       string              `json:"habit_id,omitempty"`
	StartDate     time.Time           `json:"start_date"`
	MedianDate    time.Time           `json:"median_date"`
	EndDate       time.Time           `json:"end_date"`
	CurrentStreak int                 `json:"current_streak"`
	LongestStreak int                 `json:"longest_streak"`
	Results       []HabitStreakResult `json:"results"`
}
