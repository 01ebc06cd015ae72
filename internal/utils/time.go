package utils

import (
	"fmt"
	"time"

	"github.com/julianstephens/habitd/internal/constants"
)

// LoadLocation loads a timezone location from an IANA timezone name.
// If the timezone is "Local" it returns the system's local timezone.
func LoadLocation(timezone string) (*time.Location, error) {
	if timezone == "" {
		return nil, fmt.Errorf("timezone is empty")
	}
	if timezone == "Local" {
		return time.Local, nil
	}
	return time.LoadLocation(timezone)
}

// ValidateTimezone checks if the timezone name is valid.
func ValidateTimezone(timezone string) bool {
	_, err := LoadLocation(timezone)
	return err == nil
}

// DayKey normalizes t to midnight UTC of the calendar date t has in its own
// location. Two instants on the same civil date always produce equal keys.
func DayKey(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// TodayIn returns the day key of now as observed in loc.
func TodayIn(now time.Time, loc *time.Location) time.Time {
	return DayKey(now.In(loc))
}

// TodayAtOffset returns the day key of now in a fixed UTC offset, in hours.
func TodayAtOffset(now time.Time, hours int) time.Time {
	return TodayIn(now, time.FixedZone(fmt.Sprintf("UTC%+d", hours), hours*3600))
}

// ParseDay parses a date string (YYYY-MM-DD) into a day key.
func ParseDay(s string) (time.Time, error) {
	t, err := time.Parse(constants.DateFormat, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid date %q (expected YYYY-MM-DD): %w", s, err)
	}
	return t, nil
}

// FormatDay renders a day key as YYYY-MM-DD.
func FormatDay(t time.Time) string {
	return DayKey(t).Format(constants.DateFormat)
}

// AddDays moves a day key by n calendar days.
func AddDays(day time.Time, n int) time.Time {
	return DayKey(day).AddDate(0, 0, n)
}

// DaysBetween returns the number of calendar days from start to end. It is
// negative when end precedes start.
func DaysBetween(start, end time.Time) int {
	return int(DayKey(end).Sub(DayKey(start)).Hours() / 24)
}
