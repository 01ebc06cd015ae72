package streak

import "github.com/julianstephens/habitd/internal/models"

// transparent states neither extend nor break a streak.
func transparent(s models.CompletionState) bool {
	return s == models.StateNoSchedule || s == models.StateAway
}

// CurrentStreak counts consecutive COMPLETE days scanning from the newest
// result backwards. Any INCOMPLETE, FAILED or SKIPPED day ends the scan.
func CurrentStreak(results []models.HabitStreakResult) int {
	return currentStreak(results, false)
}

// CurrentStreakPendingLast is CurrentStreak for a sequence whose newest day is
// still open: an INCOMPLETE newest day is treated as pending rather than missed.
func CurrentStreakPendingLast(results []models.HabitStreakResult) int {
	return currentStreak(results, true)
}

func currentStreak(results []models.HabitStreakResult, pendingLast bool) int {
	count := 0
	for i := len(results) - 1; i >= 0; i-- {
		state := results[i].State
		switch {
		case state == models.StateComplete:
			count++
		case transparent(state):
		case pendingLast && i == len(results)-1 && state == models.StateIncomplete:
		default:
			return count
		}
	}
	return count
}

// LongestStreak returns the best run of COMPLETE days scanning oldest to newest.
func LongestStreak(results []models.HabitStreakResult) int {
	longest, run := 0, 0
	for _, r := range results {
		switch {
		case r.State == models.StateComplete:
			run++
			if run > longest {
				longest = run
			}
		case transparent(r.State):
		default:
			run = 0
		}
	}
	return longest
}
