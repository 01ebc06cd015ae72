package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/julianstephens/habitd/internal/models"
	"github.com/julianstephens/habitd/internal/storage"
)

func (s *Store) GetAllPlannedDaysForUserInRange(ctx context.Context, userID string, start, end time.Time) ([]models.PlannedDay, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT `+storage.PlannedDayColumns+` FROM planned_days
		WHERE user_id = ? AND day >= ? AND day <= ?
		ORDER BY day`,
		userID, storage.FormatDate(start), storage.FormatDate(end))
	if err != nil {
		return nil, err
	}
	var days []models.PlannedDay
	for rows.Next() {
		d, err := storage.ScanPlannedDay(rows)
		if err != nil {
			rows.Close()
			return nil, err
		}
		days = append(days, d)
	}
	if err := rows.Close(); err != nil {
		return nil, err
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	if len(days) == 0 {
		return nil, nil
	}

	tasks, err := s.tasksForRange(ctx, userID, start, end)
	if err != nil {
		return nil, err
	}
	for i := range days {
		days[i].Tasks = tasks[days[i].ID]
	}
	return days, nil
}

func (s *Store) GetFirstPlannedDay(ctx context.Context, userID string) (*models.PlannedDay, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT `+storage.PlannedDayColumns+` FROM planned_days
		WHERE user_id = ? ORDER BY day LIMIT 1`, userID)
	d, err := storage.ScanPlannedDay(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	if d.Tasks, err = s.tasksForDay(ctx, d.ID); err != nil {
		return nil, err
	}
	return &d, nil
}

func (s *Store) GetOrCreatePlannedDay(ctx context.Context, userID string, day time.Time) (models.PlannedDay, error) {
	now := storage.FormatTimestamp(time.Now())
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO planned_days (id, user_id, day, status, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT (user_id, day) DO NOTHING`,
		uuid.New().String(), userID, storage.FormatDate(day), string(models.StateIncomplete), now, now)
	if err != nil {
		return models.PlannedDay{}, fmt.Errorf("failed to create planned day: %w", err)
	}

	row := s.db.QueryRowContext(ctx, `
		SELECT `+storage.PlannedDayColumns+` FROM planned_days WHERE user_id = ? AND day = ?`,
		userID, storage.FormatDate(day))
	d, err := storage.ScanPlannedDay(row)
	if err != nil {
		return models.PlannedDay{}, err
	}
	if d.Tasks, err = s.tasksForDay(ctx, d.ID); err != nil {
		return models.PlannedDay{}, err
	}
	return d, nil
}

func (s *Store) SetPlannedDayStatus(ctx context.Context, plannedDayID string, status models.CompletionState) error {
	result, err := s.db.ExecContext(ctx, `
		UPDATE planned_days SET status = ?, updated_at = ? WHERE id = ?`,
		string(status), storage.FormatTimestamp(time.Now()), plannedDayID)
	if err != nil {
		return err
	}
	n, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return fmt.Errorf("planned day %s: %w", plannedDayID, storage.ErrNotFound)
	}
	return nil
}

func (s *Store) SavePlannedTask(ctx context.Context, task models.PlannedTask) error {
	if task.ID == "" {
		task.ID = uuid.New().String()
	}
	now := time.Now()
	if task.CreatedAt.IsZero() {
		task.CreatedAt = now
	}
	if task.UpdatedAt.IsZero() {
		task.UpdatedAt = now
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO planned_tasks (
			id, planned_day_id, schedule_id, time_of_day, quantity, target_quantity,
			status, active, created_at, updated_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (planned_day_id, schedule_id, time_of_day) DO UPDATE SET
			quantity = excluded.quantity,
			target_quantity = excluded.target_quantity,
			status = excluded.status,
			active = excluded.active,
			updated_at = excluded.updated_at`,
		task.ID, task.PlannedDayID, task.ScheduleID, string(task.TimeOfDay),
		task.Quantity, task.TargetQuantity, string(task.Status), task.Active,
		storage.FormatTimestamp(task.CreatedAt), storage.FormatTimestamp(task.UpdatedAt))
	return err
}

func (s *Store) tasksForRange(ctx context.Context, userID string, start, end time.Time) (map[string][]models.PlannedTask, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT t.id, t.planned_day_id, t.schedule_id, t.time_of_day, t.quantity,
			t.target_quantity, t.status, t.active, t.created_at, t.updated_at
		FROM planned_tasks t
		JOIN planned_days d ON d.id = t.planned_day_id
		WHERE d.user_id = ? AND d.day >= ? AND d.day <= ?
		ORDER BY t.created_at, t.id`,
		userID, storage.FormatDate(start), storage.FormatDate(end))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	byDay := make(map[string][]models.PlannedTask)
	for rows.Next() {
		t, err := storage.ScanPlannedTask(rows)
		if err != nil {
			return nil, err
		}
		byDay[t.PlannedDayID] = append(byDay[t.PlannedDayID], t)
	}
	return byDay, rows.Err()
}

func (s *Store) tasksForDay(ctx context.Context, plannedDayID string) ([]models.PlannedTask, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT `+storage.PlannedTaskColumns+`
		FROM planned_tasks WHERE planned_day_id = ?
		ORDER BY created_at, id`, plannedDayID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var tasks []models.PlannedTask
	for rows.Next() {
		t, err := storage.ScanPlannedTask(rows)
		if err != nil {
			return nil, err
		}
		tasks = append(tasks, t)
	}
	return tasks, rows.Err()
}
