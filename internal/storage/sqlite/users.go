package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/julianstephens/habitd/internal/models"
	"github.com/julianstephens/habitd/internal/storage"
)

func (s *Store) AddUser(ctx context.Context, user models.User) error {
	var timezone sql.NullString
	if user.Timezone != "" {
		timezone = sql.NullString{String: user.Timezone, Valid: true}
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO users (id, name, timezone, created_at) VALUES (?, ?, ?, ?)`,
		user.ID, user.Name, timezone, storage.FormatTimestamp(user.CreatedAt))
	return err
}

func (s *Store) GetUser(ctx context.Context, id string) (models.User, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT `+storage.UserColumns+` FROM users WHERE id = ?`, id)
	u, err := storage.ScanUser(row)
	if errors.Is(err, sql.ErrNoRows) {
		return models.User{}, fmt.Errorf("user %s: %w", id, storage.ErrNotFound)
	}
	return u, err
}

func (s *Store) ListUsers(ctx context.Context) ([]models.User, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT `+storage.UserColumns+` FROM users ORDER BY created_at, id`)
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
	rows, err := s.db.QueryContext(ctx, "SELECT id FROM users ORDER BY id")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

func (s *Store) SetUserTimezone(ctx context.Context, id, timezone string) error {
	var tz sql.NullString
	if timezone != "" {
		tz = sql.NullString{String: timezone, Valid: true}
	}
	result, err := s.db.ExecContext(ctx, "UPDATE users SET timezone = ? WHERE id = ?", tz, id)
	if err != nil {
		return err
	}
	n, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return fmt.Errorf("user %s: %w", id, storage.ErrNotFound)
	}
	return nil
}

func (s *Store) GetUserTimezone(ctx context.Context, id string) (string, error) {
	var tz sql.NullString
	err := s.db.QueryRowContext(ctx, "SELECT timezone FROM users WHERE id = ?", id).Scan(&tz)
	if errors.Is(err, sql.ErrNoRows) {
		return "", fmt.Errorf("user %s: %w", id, storage.ErrNotFound)
	}
	if err != nil {
		return "", err
	}
	return tz.String, nil
}
