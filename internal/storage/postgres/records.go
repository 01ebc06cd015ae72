package postgres

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

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

func expectRow(result sql.Result, what, id string) error {
	n, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return fmt.Errorf("%s %s: %w", what, id, storage.ErrNotFound)
	}
	return nil
}

func (s *Store) AddUser(ctx context.Context, user models.User) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO users (id, name, timezone, created_at) VALUES ($1, $2, $3, $4)`,
		user.ID, user.Name, nullString(user.Timezone), storage.FormatTimestamp(user.CreatedAt))
	return err
}

func (s *Store) GetUser(ctx context.Context, id string) (models.User, error) {
	row := s.db.QueryRowContext(ctx, "SELECT "+storage.UserColumns+" FROM users WHERE id = $1", id)
	u, err := storage.ScanUser(row)
	if errors.Is(err, sql.ErrNoRows) {
		return models.User{}, fmt.Errorf("user %s: %w", id, storage.ErrNotFound)
	}
	return u, err
}

func (s *Store) ListUsers(ctx context.Context) ([]models.User, error) {
	rows, err := s.db.QueryContext(ctx, "SELECT "+storage.UserColumns+" FROM users ORDER BY created_at, id")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var users []models.User
	for rows.Next() {
		u, err := storage.ScanUser(rows)
		if err != nil {
			return nil, err
		}
		users = append(users, u)
	}
	return users, rows.Err()
}

func (s *Store) ListUserIDs(ctx context.Context) ([]string, error) {
	users, err := s.ListUsers(ctx)
	if err != nil {
		return nil, err
	}
	ids := make([]string, len(users))
	for i, u := range users {
		ids[i] = u.ID
	}
	return ids, nil
}

func (s *Store) SetUserTimezone(ctx context.Context, id, timezone string) error {
	result, err := s.db.ExecContext(ctx, "UPDATE users SET timezone = $1 WHERE id = $2", nullString(timezone), id)
	if err != nil {
		return err
	}
	return expectRow(result, "user", id)
}

func (s *Store) GetUserTimezone(ctx context.Context, id string) (string, error) {
	var tz sql.NullString
	err := s.db.QueryRowContext(ctx, "SELECT timezone FROM users WHERE id = $1", id).Scan(&tz)
	if errors.Is(err, sql.ErrNoRows) {
		return "", fmt.Errorf("user %s: %w", id, storage.ErrNotFound)
	}
	return tz.String, err
}

func (s *Store) AddHabit(ctx context.Context, habit models.Habit) error {
	var archivedAt sql.NullString
	if habit.ArchivedAt != nil {
		archivedAt = nullString(storage.FormatTimestamp(*habit.ArchivedAt))
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO habits (id, user_id, name, created_at, archived_at) VALUES ($1, $2, $3, $4, $5)`,
		habit.ID, habit.UserID, habit.Name, storage.FormatTimestamp(habit.CreatedAt), archivedAt)
	return err
}

func (s *Store) GetHabit(ctx context.Context, id string) (models.Habit, error) {
	row := s.db.QueryRowContext(ctx, "SELECT "+storage.HabitColumns+" FROM habits WHERE id = $1", id)
	h, err := storage.ScanHabit(row)
	if errors.Is(err, sql.ErrNoRows) {
		return models.Habit{}, fmt.Errorf("habit %s: %w", id, storage.ErrNotFound)
	}
	return h, err
}

func (s *Store) GetHabitByName(ctx context.Context, userID, name string) (models.Habit, error) {
	row := s.db.QueryRowContext(ctx, "SELECT "+storage.HabitColumns+" FROM habits WHERE user_id = $1 AND name = $2", userID, name)
	h, err := storage.ScanHabit(row)
	if errors.Is(err, sql.ErrNoRows) {
		return models.Habit{}, fmt.Errorf("habit %q: %w", name, storage.ErrNotFound)
	}
	return h, err
}

func (s *Store) ListHabits(ctx context.Context, userID string, includeArchived bool) ([]models.Habit, error) {
	query := "SELECT " + storage.HabitColumns + " FROM habits WHERE user_id = $1"
	if !includeArchived {
		query += " AND archived_at IS NULL"
	}
	rows, err := s.db.QueryContext(ctx, query+" ORDER BY created_at, id", userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var habits []models.Habit
	for rows.Next() {
		h, err := storage.ScanHabit(rows)
		if err != nil {
			return nil, err
		}
		habits = append(habits, h)
	}
	return habits, rows.Err()
}

func (s *Store) ListActiveHabitIDs(ctx context.Context, userID string) ([]string, error) {
	habits, err := s.ListHabits(ctx, userID, false)
	if err != nil {
		return nil, err
	}
	ids := make([]string, len(habits))
	for i, h := range habits {
		ids[i] = h.ID
	}
	return ids, nil
}

func (s *Store) ArchiveHabit(ctx context.Context, id string, at time.Time) error {
	result, err := s.db.ExecContext(ctx, `
		UPDATE habits SET archived_at = $1 WHERE id = $2 AND archived_at IS NULL`,
		storage.FormatTimestamp(at), id)
	if err != nil {
		return err
	}
	n, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return fmt.Errorf("habit not found or already archived")
	}
	return nil
}

func (s *Store) AddSchedule(ctx context.Context, sch models.HabitSchedule) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO habit_schedules (`+storage.ScheduleColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`,
		sch.ID, sch.UserID, sch.HabitID,
		storage.EncodeDaysOfWeek(sch.DaysOfWeek), storage.EncodeTimesOfDay(sch.TimesOfDay),
		storage.FormatOptionalDate(sch.StartDate), storage.FormatOptionalDate(sch.EndDate),
		sch.Quantity, storage.FormatTimestamp(sch.CreatedAt), storage.FormatTimestamp(sch.UpdatedAt))
	return err
}

func (s *Store) UpdateSchedule(ctx context.Context, sch models.HabitSchedule) error {
	result, err := s.db.ExecContext(ctx, `
		UPDATE habit_schedules SET
			days_of_week = $1, times_of_day = $2, start_date = $3, end_date = $4,
			quantity = $5, updated_at = $6
		WHERE id = $7`,
		storage.EncodeDaysOfWeek(sch.DaysOfWeek), storage.EncodeTimesOfDay(sch.TimesOfDay),
		storage.FormatOptionalDate(sch.StartDate), storage.FormatOptionalDate(sch.EndDate),
		sch.Quantity, storage.FormatTimestamp(sch.UpdatedAt), sch.ID)
	if err != nil {
		return err
	}
	return expectRow(result, "schedule", sch.ID)
}

func (s *Store) GetSchedule(ctx context.Context, id string) (models.HabitSchedule, error) {
	row := s.db.QueryRowContext(ctx, "SELECT "+storage.ScheduleColumns+" FROM habit_schedules WHERE id = $1", id)
	sch, err := storage.ScanSchedule(row)
	if errors.Is(err, sql.ErrNoRows) {
		return models.HabitSchedule{}, fmt.Errorf("schedule %s: %w", id, storage.ErrNotFound)
	}
	return sch, err
}

func (s *Store) ListSchedules(ctx context.Context, userID string) ([]models.HabitSchedule, error) {
	return s.querySchedules(ctx, `
		SELECT `+storage.ScheduleColumns+` FROM habit_schedules
		WHERE user_id = $1 ORDER BY created_at, id`, userID)
}

func (s *Store) GetAllActiveSchedulesForUserInRange(ctx context.Context, userID string, start, end time.Time) ([]models.HabitSchedule, error) {
	return s.querySchedules(ctx, `
		SELECT `+storage.ScheduleColumns+` FROM habit_schedules
		WHERE user_id = $1
			AND (start_date IS NULL OR start_date <= $2)
			AND (end_date IS NULL OR end_date >= $3)
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

func (s *Store) GetAllPlannedDaysForUserInRange(ctx context.Context, userID string, start, end time.Time) ([]models.PlannedDay, error) {
	days, err := s.queryDays(ctx, `
		SELECT `+storage.PlannedDayColumns+` FROM planned_days
		WHERE user_id = $1 AND day >= $2 AND day <= $3
		ORDER BY day`,
		userID, storage.FormatDate(start), storage.FormatDate(end))
	if err != nil || len(days) == 0 {
		return nil, err
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT t.id, t.planned_day_id, t.schedule_id, t.time_of_day, t.quantity,
			t.target_quantity, t.status, t.active, t.created_at, t.updated_at
		FROM planned_tasks t
		JOIN planned_days d ON d.id = t.planned_day_id
		WHERE d.user_id = $1 AND d.day >= $2 AND d.day <= $3
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
	if err := rows.Err(); err != nil {
		return nil, err
	}
	for i := range days {
		days[i].Tasks = byDay[days[i].ID]
	}
	return days, nil
}

func (s *Store) GetFirstPlannedDay(ctx context.Context, userID string) (*models.PlannedDay, error) {
	days, err := s.queryDays(ctx, `
		SELECT `+storage.PlannedDayColumns+` FROM planned_days
		WHERE user_id = $1 ORDER BY day LIMIT 1`, userID)
	if err != nil || len(days) == 0 {
		return nil, err
	}
	d := days[0]
	if d.Tasks, err = s.tasksForDay(ctx, d.ID); err != nil {
		return nil, err
	}
	return &d, nil
}

func (s *Store) GetOrCreatePlannedDay(ctx context.Context, userID string, day time.Time) (models.PlannedDay, error) {
	now := storage.FormatTimestamp(time.Now())
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO planned_days (id, user_id, day, status, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (user_id, day) DO NOTHING`,
		uuid.New().String(), userID, storage.FormatDate(day), string(models.StateIncomplete), now, now)
	if err != nil {
		return models.PlannedDay{}, fmt.Errorf("failed to create planned day: %w", err)
	}

	row := s.db.QueryRowContext(ctx, `
		SELECT `+storage.PlannedDayColumns+` FROM planned_days WHERE user_id = $1 AND day = $2`,
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
		UPDATE planned_days SET status = $1, updated_at = $2 WHERE id = $3`,
		string(status), storage.FormatTimestamp(time.Now()), plannedDayID)
	if err != nil {
		return err
	}
	return expectRow(result, "planned day", plannedDayID)
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
		INSERT INTO planned_tasks (`+storage.PlannedTaskColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		ON CONFLICT (planned_day_id, schedule_id, time_of_day) DO UPDATE SET
			quantity = EXCLUDED.quantity,
			target_quantity = EXCLUDED.target_quantity,
			status = EXCLUDED.status,
			active = EXCLUDED.active,
			updated_at = EXCLUDED.updated_at`,
		task.ID, task.PlannedDayID, task.ScheduleID, string(task.TimeOfDay),
		task.Quantity, task.TargetQuantity, string(task.Status), task.Active,
		storage.FormatTimestamp(task.CreatedAt), storage.FormatTimestamp(task.UpdatedAt))
	return err
}

func (s *Store) queryDays(ctx context.Context, query string, args ...any) ([]models.PlannedDay, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var days []models.PlannedDay
	for rows.Next() {
		d, err := storage.ScanPlannedDay(rows)
		if err != nil {
			return nil, err
		}
		days = append(days, d)
	}
	return days, rows.Err()
}

func (s *Store) tasksForDay(ctx context.Context, plannedDayID string) ([]models.PlannedTask, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT `+storage.PlannedTaskColumns+` FROM planned_tasks
		WHERE planned_day_id = $1 ORDER BY created_at, id`, plannedDayID)
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

func (s *Store) GetStreak(ctx context.Context, userID string, typ models.StreakType, habitID string) (int, bool, error) {
	var value int
	err := s.db.QueryRowContext(ctx, `
		SELECT value FROM streaks WHERE user_id = $1 AND type = $2 AND habit_id = $3`,
		userID, string(typ), habitID).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, err
	}
	return value, true, nil
}

func (s *Store) SetStreak(ctx context.Context, userID string, typ models.StreakType, value int, habitID string) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO streaks (user_id, type, habit_id, value, updated_at)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (user_id, type, habit_id) DO UPDATE SET
			value = EXCLUDED.value,
			updated_at = EXCLUDED.updated_at`,
		userID, string(typ), habitID, value, storage.FormatTimestamp(time.Now()))
	return err
}
