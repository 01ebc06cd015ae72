package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestGetPathsRespectsXDG(t *testing.T) {
	t.Setenv("XDG_CONFIG_HOME", "/tmp/testxdg/config")
	t.Setenv("XDG_DATA_HOME", "/tmp/testxdg/data")
	t.Setenv("XDG_STATE_HOME", "/tmp/testxdg/state")

	paths := GetPaths()

	if paths.ConfigFile != "/tmp/testxdg/config/habitd/config.toml" {
		t.Fatalf("unexpected ConfigFile %s", paths.ConfigFile)
	}
	if paths.DBFile != "/tmp/testxdg/data/habitd/habitd.db" {
		t.Fatalf("unexpected DBFile %s", paths.DBFile)
	}
	if paths.LogDir != "/tmp/testxdg/state/habitd/logs" {
		t.Fatalf("unexpected LogDir %s", paths.LogDir)
	}
}

func TestLoadMissingFileReturnsDefaults(t *testing.T) {
	cfg, err := LoadFrom(filepath.Join(t.TempDir(), "nope.toml"))
	if err != nil {
		t.Fatalf("LoadFrom() error = %v", err)
	}
	if cfg.Streaks.BasicWindowDays != 29 || cfg.Streaks.AdvancedWindowDays != 201 {
		t.Errorf("unexpected window defaults: %+v", cfg.Streaks)
	}
	if cfg.WeekStart() != time.Monday {
		t.Errorf("WeekStart() = %s, want Monday", cfg.WeekStart())
	}
	if len(cfg.Notifications.Milestones) != 4 || !cfg.Notifications.Enabled {
		t.Errorf("unexpected notification defaults: %+v", cfg.Notifications)
	}
	if cfg.Jobs.Concurrency != 4 {
		t.Errorf("Jobs.Concurrency = %d, want 4", cfg.Jobs.Concurrency)
	}
	if cfg.Backup.Keep != 14 {
		t.Errorf("Backup.Keep = %d, want 14", cfg.Backup.Keep)
	}
}

func TestLoadOverridesOnlyGivenKeys(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	data := `
[database]
url = "postgres://habitd@localhost/habitd"

[streaks]
week_start = "sun"

[notifications]
milestones = [3, 10]
`
	if err := os.WriteFile(path, []byte(data), 0o644); err != nil {
		t.Fatal(err)
	}

	cfg, err := LoadFrom(path)
	if err != nil {
		t.Fatalf("LoadFrom() error = %v", err)
	}
	if cfg.DatabaseTarget() != "postgres://habitd@localhost/habitd" {
		t.Errorf("DatabaseTarget() = %q", cfg.DatabaseTarget())
	}
	if cfg.WeekStart() != time.Sunday {
		t.Errorf("WeekStart() = %s, want Sunday", cfg.WeekStart())
	}
	if cfg.Streaks.MaxWeeks != 26 {
		t.Errorf("MaxWeeks = %d, want default 26", cfg.Streaks.MaxWeeks)
	}
	if len(cfg.Notifications.Milestones) != 2 || cfg.Notifications.Milestones[1] != 10 {
		t.Errorf("Milestones = %v, want [3 10]", cfg.Notifications.Milestones)
	}
}

func TestLoadRejectsInvalidValues(t *testing.T) {
	tests := []struct {
		name string
		data string
	}{
		{"zero window", "[streaks]\nbasic_window_days = 0\n"},
		{"bad week start", "[streaks]\nweek_start = \"someday\"\n"},
		{"negative milestone", "[notifications]\nmilestones = [-1]\n"},
		{"zero concurrency", "[jobs]\nconcurrency = 0\n"},
		{"zero backups kept", "[backup]\nkeep = 0\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "config.toml")
			if err := os.WriteFile(path, []byte(tt.data), 0o644); err != nil {
				t.Fatal(err)
			}
			if _, err := LoadFrom(path); !errors.Is(err, ErrInvalidConfig) {
				t.Errorf("LoadFrom() error = %v, want ErrInvalidConfig", err)
			}
		})
	}
}

func TestSaveRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "config.toml")
	cfg := Default()
	cfg.Log.Debug = true

	if err := Save(path, cfg); err != nil {
		t.Fatalf("Save() error = %v", err)
	}
	loaded, err := LoadFrom(path)
	if err != nil {
		t.Fatalf("LoadFrom() error = %v", err)
	}
	if !loaded.Log.Debug {
		t.Error("Log.Debug was not persisted")
	}
}

func TestParseWeekday(t *testing.T) {
	tests := []struct {
		in   string
		want time.Weekday
		err  bool
	}{
		{"monday", time.Monday, false},
		{"Tue", time.Tuesday, false},
		{" SUNDAY ", time.Sunday, false},
		{"funday", 0, true},
	}
	for _, tt := range tests {
		got, err := ParseWeekday(tt.in)
		if (err != nil) != tt.err {
			t.Errorf("ParseWeekday(%q) error = %v", tt.in, err)
			continue
		}
		if got != tt.want {
			t.Errorf("ParseWeekday(%q) = %s, want %s", tt.in, got, tt.want)
		}
	}
}
