package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/julianstephens/habitd/internal/models"
	"github.com/julianstephens/habitd/internal/storage"
)

func (s *Store) AddSchedule(ctx context.Context, sch models.HabitSchedule) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO habit_schedules (`+storage.ScheduleColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		sch.ID, sch.UserID, sch.HabitID,
		storage.EncodeDaysOfWeek(sch.DaysOfWeek), storage.EncodeTimesOfDay(sch.TimesOfDay),
		storage.FormatOptionalDate(sch.StartDate), storage.FormatOptionalDate(sch.EndDate),
		sch.Quantity, storage.FormatTimestamp(sch.CreatedAt), storage.FormatTimestamp(sch.UpdatedAt))
	return err
}

func (s *Store) UpdateSchedule(ctx context.Context, sch models.HabitSchedule) error {
	result, err := s.db.ExecContext(ctx, `
		UPDATE habit_schedules SET
			days_of_week = ?, times_of_day = ?, start_date = ?, end_date = ?,
			quantity = ?, updated_at = ?
		WHERE id = ?`,
		storage.EncodeDaysOfWeek(sch.DaysOfWeek), storage.EncodeTimesOfDay(sch.TimesOfDay),
		storage.FormatOptionalDate(sch.StartDate), storage.FormatOptionalDate(sch.EndDate),
		sch.Quantity, storage.FormatTimestamp(sch.UpdatedAt), sch.ID)
	if err != nil {
		return err
	}
	n, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return fmt.Errorf("schedule %s: %w", sch.ID, storage.ErrNotFound)
	}
	return nil
}

func (s *Store) GetSchedule(ctx context.Context, id string) (models.HabitSchedule, error) {
	row := s.db.QueryRowContext(ctx, "SELECT "+storage.ScheduleColumns+" FROM habit_schedules WHERE id = ?", id)
	sch, err := storage.ScanSchedule(row)
	if errors.Is(err, sql.ErrNoRows) {
		return models.HabitSchedule{}, fmt.Errorf("schedule %s: %w", id, storage.ErrNotFound)
	}
	return sch, err
}

func (s *Store) ListSchedules(ctx context.Context, userID string) ([]models.HabitSchedule, error) {
	return s.querySchedules(ctx, `
		SELECT `+storage.ScheduleColumns+` FROM habit_schedules
		WHERE user_id = ? ORDER BY created_at, id`, userID)
}

func (s *Store) GetAllActiveSchedulesForUserInRange(ctx context.Context, userID string, start, end time.Time) ([]models.HabitSchedule, error) {
	return s.querySchedules(ctx, `
		SELECT `+storage.ScheduleColumns+` FROM habit_schedules
		WHERE user_id = ?
			AND (start_date IS NULL OR start_date <= ?)
			AND (end_date IS NULL OR end_date >= ?)
		ORDER BY created_at, id`,
		userID, storage.FormatDate(end), storage.FormatDate(start))
}

func (s *Store) querySchedules(ctx context.Context, query string, args ...any) ([]models.HabitSchedule, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var schedules []models.HabitSchedule
	for rows.Next() {
		sch, err := storage.ScanSchedule(rows)
		if err != nil {
			return nil, err
		}
		schedules = append(schedules, sch)
	}
	return schedules, rows.Err()
}
