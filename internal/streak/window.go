package streak

import (
	"time"

	"github.com/julianstephens/habitd/internal/utils"
)

// Window is an inclusive range of day keys with its midpoint.
type Window struct {
	Start  time.Time
	Median time.Time
	End    time.Time
}

// NewWindow builds a window from two day keys.
func NewWindow(start, end time.Time) Window {
	start, end = utils.DayKey(start), utils.DayKey(end)
	return Window{
		Start:  start,
		Median: utils.AddDays(start, utils.DaysBetween(start, end)/2),
		End:    end,
	}
}

// Days is the number of calendar days covered, zero for an inverted window.
func (w Window) Days() int {
	n := utils.DaysBetween(w.Start, w.End) + 1
	if n < 0 {
		return 0
	}
	return n
}

// BasicWindow is the trailing window of days ending at end.
func BasicWindow(end time.Time, days int) Window {
	if days < 1 {
		days = 1
	}
	return NewWindow(utils.AddDays(end, -(days-1)), end)
}

// AdvancedWindow is the trailing window of days ending at end, with its start
// moved forward to the first weekStart so it renders as a week grid. A positive
// maxWeeks caps the number of grid rows.
func AdvancedWindow(end time.Time, days int, weekStart time.Weekday, maxWeeks int) Window {
	w := BasicWindow(end, days)
	start := w.Start
	for start.Weekday() != weekStart {
		start = start.AddDate(0, 0, 1)
	}
	if start.After(w.End) {
		// shorter than a week: anchor on the week containing end
		start = w.End
		for start.Weekday() != weekStart {
			start = start.AddDate(0, 0, -1)
		}
	}
	if maxWeeks > 0 {
		weeks := (utils.DaysBetween(start, w.End) + 7) / 7
		if weeks > maxWeeks {
			start = utils.AddDays(start, 7*(weeks-maxWeeks))
		}
	}
	return NewWindow(start, w.End)
}
