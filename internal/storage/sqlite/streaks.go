package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/julianstephens/habitd/internal/models"
	"github.com/julianstephens/habitd/internal/storage"
)

func (s *Store) GetStreak(ctx context.Context, userID string, typ models.StreakType, habitID string) (int, bool, error) {
	var value int
	err := s.db.QueryRowContext(ctx, `
		SELECT value FROM streaks WHERE user_id = ? AND type = ? AND habit_id = ?`,
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
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT (user_id, type, habit_id) DO UPDATE SET
			value = excluded.value,
			updated_at = excluded.updated_at`,
		userID, string(typ), habitID, value, storage.FormatTimestamp(time.Now()))
	return err
}
