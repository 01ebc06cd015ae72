package streak

import (
	"context"
	"fmt"
	"time"

	"github.com/julianstephens/habitd/internal/constants"
	"github.com/julianstephens/habitd/internal/logger"
	"github.com/julianstephens/habitd/internal/utils"
)

// EndDateResolver finds the newest day a streak computation may judge: the
// newest day for which an unfinished day can be read as a missed one.
type EndDateResolver interface {
	ResolveEndDate(ctx context.Context, userID string, scope Scope) (time.Time, error)
}

// TimezoneEndDate resolves the end date from the user's own calendar.
type TimezoneEndDate struct {
	days PlannedDayReader
	loc  *time.Location
	now  func() time.Time
}

// NewTimezoneEndDate returns a resolver for users with a known location.
func NewTimezoneEndDate(days PlannedDayReader, loc *time.Location, now func() time.Time) *TimezoneEndDate {
	return &TimezoneEndDate{days: days, loc: loc, now: now}
}

// ResolveEndDate returns today when today's planned day is already closed, or
// when a single habit is judged (habits ignore the day's aggregate lock).
// Otherwise, including when nothing was recorded today, it returns yesterday.
func (r *TimezoneEndDate) ResolveEndDate(ctx context.Context, userID string, scope Scope) (time.Time, error) {
	today := utils.TodayIn(r.now(), r.loc)
	yesterday := utils.AddDays(today, -1)

	days, err := r.days.GetAllPlannedDaysForUserInRange(ctx, userID, today, today)
	if err != nil {
		return yesterday, fmt.Errorf("failed to load today's planned day: %w", err)
	}
	if len(days) == 0 {
		return yesterday, nil
	}
	if scope.IsHabit() || days[0].Status.Closed() {
		return today, nil
	}
	return yesterday, nil
}

// ScanningEndDate resolves the end date for users without a timezone by
// scanning every date that is "today" somewhere on earth.
type ScanningEndDate struct {
	days PlannedDayReader
	now  func() time.Time
}

// NewScanningEndDate returns the timezone-less resolver.
func NewScanningEndDate(days PlannedDayReader, now func() time.Time) *ScanningEndDate {
	return &ScanningEndDate{days: days, now: now}
}

// ResolveEndDate walks back from today at UTC+14 to yesterday at UTC-12 and
// returns the newest date whose planned day is closed. Yesterday at UTC-12 is
// over everywhere, so it is the default.
func (r *ScanningEndDate) ResolveEndDate(ctx context.Context, userID string, _ Scope) (time.Time, error) {
	now := r.now()
	latest := utils.TodayAtOffset(now, constants.LatestUTCOffset)
	earliest := utils.AddDays(utils.TodayAtOffset(now, constants.EarliestUTCOffset), -1)

	days, err := r.days.GetAllPlannedDaysForUserInRange(ctx, userID, earliest, latest)
	if err != nil {
		return earliest, fmt.Errorf("failed to scan recent planned days: %w", err)
	}

	closed := make(map[string]bool, len(days))
	for _, d := range days {
		if d.Status.Closed() {
			closed[d.Day.Format(constants.DateFormat)] = true
		}
	}
	for day := latest; !day.Before(earliest); day = day.AddDate(0, 0, -1) {
		if closed[day.Format(constants.DateFormat)] {
			return day, nil
		}
	}
	return earliest, nil
}

// ResolverFor picks the timezone-aware resolver when timezone names a loadable
// location and the scanning resolver otherwise.
func ResolverFor(days PlannedDayReader, timezone string, now func() time.Time) EndDateResolver {
	if timezone != "" {
		loc, err := utils.LoadLocation(timezone)
		if err == nil {
			return NewTimezoneEndDate(days, loc, now)
		}
		logger.Warn("Ignoring unloadable user timezone", "timezone", timezone, "error", err)
	}
	return NewScanningEndDate(days, now)
}

var (
	_ EndDateResolver = (*TimezoneEndDate)(nil)
	_ EndDateResolver = (*ScanningEndDate)(nil)
)
