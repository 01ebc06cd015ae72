package storage

import (
	"database/sql"
	"fmt"

	"github.com/julianstephens/habitd/internal/models"
	"github.com/julianstephens/habitd/internal/utils"
)

// Column lists matching the Scan helpers below.
const (
	UserColumns        = "id, name, timezone, created_at"
	HabitColumns       = "id, user_id, name, created_at, archived_at"
	ScheduleColumns    = "id, user_id, habit_id, days_of_week, times_of_day, start_date, end_date, quantity, created_at, updated_at"
	PlannedDayColumns  = "id, user_id, day, status, created_at, updated_at"
	PlannedTaskColumns = "id, planned_day_id, schedule_id, time_of_day, quantity, target_quantity, status, active, created_at, updated_at"
)

// RowScanner is satisfied by *sql.Row and *sql.Rows.
type RowScanner interface {
	Scan(dest ...any) error
}

func ScanUser(row RowScanner) (models.User, error) {
	var u models.User
	var tz sql.NullString
	var createdAt string
	if err := row.Scan(&u.ID, &u.Name, &tz, &createdAt); err != nil {
		return models.User{}, err
	}
	u.Timezone = tz.String

	var err error
	u.CreatedAt, err = ParseTimestamp(createdAt)
	if err != nil {
		return models.User{}, fmt.Errorf("user %s: %w", u.ID, err)
	}
	return u, nil
}

func ScanHabit(row RowScanner) (models.Habit, error) {
	var h models.Habit
	var createdAt string
	var archivedAt sql.NullString
	if err := row.Scan(&h.ID, &h.UserID, &h.Name, &createdAt, &archivedAt); err != nil {
		return models.Habit{}, err
	}

	var err error
	h.CreatedAt, err = ParseTimestamp(createdAt)
	if err != nil {
		return models.Habit{}, fmt.Errorf("habit %s: %w", h.ID, err)
	}
	if archivedAt.Valid {
		t, err := ParseTimestamp(archivedAt.String)
		if err != nil {
			return models.Habit{}, fmt.Errorf("habit %s: %w", h.ID, err)
		}
		h.ArchivedAt = &t
	}
	return h, nil
}

func ScanSchedule(row RowScanner) (models.HabitSchedule, error) {
	var sch models.HabitSchedule
	var days, slots, createdAt, updatedAt string
	var startDate, endDate sql.NullString
	err := row.Scan(&sch.ID, &sch.UserID, &sch.HabitID, &days, &slots,
		&startDate, &endDate, &sch.Quantity, &createdAt, &updatedAt)
	if err != nil {
		return models.HabitSchedule{}, err
	}

	if sch.DaysOfWeek, err = DecodeDaysOfWeek(days); err != nil {
		return models.HabitSchedule{}, fmt.Errorf("schedule %s: %w", sch.ID, err)
	}
	sch.TimesOfDay = DecodeTimesOfDay(slots)
	if sch.StartDate, err = ParseOptionalDate(nullable(startDate)); err != nil {
		return models.HabitSchedule{}, fmt.Errorf("schedule %s: %w", sch.ID, err)
	}
	if sch.EndDate, err = ParseOptionalDate(nullable(endDate)); err != nil {
		return models.HabitSchedule{}, fmt.Errorf("schedule %s: %w", sch.ID, err)
	}
	if sch.CreatedAt, err = ParseTimestamp(createdAt); err != nil {
		return models.HabitSchedule{}, fmt.Errorf("schedule %s: %w", sch.ID, err)
	}
	if sch.UpdatedAt, err = ParseTimestamp(updatedAt); err != nil {
		return models.HabitSchedule{}, fmt.Errorf("schedule %s: %w", sch.ID, err)
	}
	return sch, nil
}

func nullable(ns sql.NullString) *string {
	if !ns.Valid {
		return nil
	}
	return &ns.String
}

func ScanPlannedDay(row RowScanner) (models.PlannedDay, error) {
	var d models.PlannedDay
	var day, status, createdAt, updatedAt string
	if err := row.Scan(&d.ID, &d.UserID, &day, &status, &createdAt, &updatedAt); err != nil {
		return models.PlannedDay{}, err
	}

	var err error
	if d.Day, err = utils.ParseDay(day); err != nil {
		return models.PlannedDay{}, fmt.Errorf("planned day %s: %w", d.ID, err)
	}
	d.Status = models.CompletionState(status)
	if d.CreatedAt, err = ParseTimestamp(createdAt); err != nil {
		return models.PlannedDay{}, fmt.Errorf("planned day %s: %w", d.ID, err)
	}
	if d.UpdatedAt, err = ParseTimestamp(updatedAt); err != nil {
		return models.PlannedDay{}, fmt.Errorf("planned day %s: %w", d.ID, err)
	}
	return d, nil
}

func ScanPlannedTask(row RowScanner) (models.PlannedTask, error) {
	var t models.PlannedTask
	var slot, status, createdAt, updatedAt string
	err := row.Scan(&t.ID, &t.PlannedDayID, &t.ScheduleID, &slot, &t.Quantity,
		&t.TargetQuantity, &status, &t.Active, &createdAt, &updatedAt)
	if err != nil {
		return models.PlannedTask{}, err
	}
	t.TimeOfDay = models.TimeOfDay(slot)
	t.Status = models.CompletionState(status)

	if t.CreatedAt, err = ParseTimestamp(createdAt); err != nil {
		return models.PlannedTask{}, fmt.Errorf("planned task %s: %w", t.ID, err)
	}
	if t.UpdatedAt, err = ParseTimestamp(updatedAt); err != nil {
		return models.PlannedTask{}, fmt.Errorf("planned task %s: %w", t.ID, err)
	}
	return t, nil
}
