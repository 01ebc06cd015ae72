package storage

import (
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/julianstephens/habitd/internal/constants"
	"github.com/julianstephens/habitd/internal/models"
	"github.com/julianstephens/habitd/internal/utils"
)

// EncodeDaysOfWeek stores a weekday set as "1,3,5".
func EncodeDaysOfWeek(days []models.DayOfWeek) string {
	parts := make([]string, len(days))
	for i, d := range days {
		parts[i] = strconv.Itoa(int(d))
	}
	return strings.Join(parts, ",")
}

// DecodeDaysOfWeek parses the stored weekday set.
func DecodeDaysOfWeek(s string) ([]models.DayOfWeek, error) {
	if s == "" {
		return nil, nil
	}
	var days []models.DayOfWeek
	for _, part := range strings.Split(s, ",") {
		n, err := strconv.Atoi(strings.TrimSpace(part))
		if err != nil {
			return nil, fmt.Errorf("invalid day of week %q: %w", part, err)
		}
		d := models.DayOfWeek(n)
		if !d.Valid() {
			return nil, fmt.Errorf("day of week %d out of range", n)
		}
		days = append(days, d)
	}
	return days, nil
}

// EncodeTimesOfDay stores ordered slots as "morning,evening".
func EncodeTimesOfDay(slots []models.TimeOfDay) string {
	parts := make([]string, len(slots))
	for i, s := range slots {
		parts[i] = string(s)
	}
	return strings.Join(parts, ",")
}

func DecodeTimesOfDay(s string) []models.TimeOfDay {
	if s == "" {
		return nil
	}
	parts := strings.Split(s, ",")
	slots := make([]models.TimeOfDay, len(parts))
	for i, p := range parts {
		slots[i] = models.TimeOfDay(strings.TrimSpace(p))
	}
	return slots
}

// FormatDate renders a day key for a TEXT date column.
func FormatDate(t time.Time) string {
	return utils.FormatDay(t)
}

// FormatOptionalDate renders a nullable date column value.
func FormatOptionalDate(t *time.Time) *string {
	if t == nil {
		return nil
	}
	s := FormatDate(*t)
	return &s
}

// ParseOptionalDate parses a nullable date column value.
func ParseOptionalDate(s *string) (*time.Time, error) {
	if s == nil || *s == "" {
		return nil, nil
	}
	t, err := time.Parse(constants.DateFormat, *s)
	if err != nil {
		return nil, fmt.Errorf("failed to parse date %q: %w", *s, err)
	}
	return &t, nil
}

// FormatTimestamp renders a timestamp column value.
func FormatTimestamp(t time.Time) string {
	return t.UTC().Format(time.RFC3339)
}

// ParseTimestamp parses a timestamp column value; empty yields the zero time.
func ParseTimestamp(s string) (time.Time, error) {
	if s == "" {
		return time.Time{}, nil
	}
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("failed to parse timestamp %q: %w", s, err)
	}
	return t, nil
}

// HasEmbeddedCredentials reports whether a PostgreSQL connection string
// carries a password.
func HasEmbeddedCredentials(connStr string) bool {
	if strings.HasPrefix(connStr, "postgres://") || strings.HasPrefix(connStr, "postgresql://") {
		u, err := url.Parse(connStr)
		if err != nil || u.User == nil {
			return false
		}
		_, set := u.User.Password()
		return set
	}
	for _, pair := range strings.Fields(connStr) {
		kv := strings.SplitN(pair, "=", 2)
		if len(kv) == 2 && strings.EqualFold(strings.TrimSpace(kv[0]), "password") {
			return true
		}
	}
	return false
}

// IsPostgresURL reports whether path names a PostgreSQL database rather than
// a SQLite file.
func IsPostgresURL(path string) bool {
	return strings.HasPrefix(path, "postgres://") || strings.HasPrefix(path, "postgresql://") ||
		strings.Contains(path, "host=") || strings.Contains(path, "dbname=")
}
