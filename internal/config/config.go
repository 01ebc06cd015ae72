package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/BurntSushi/toml"

	"github.com/julianstephens/habitd/internal/constants"
)

var ErrInvalidConfig = errors.New("invalid config")

// Config holds the top-level habitd configuration.
type Config struct {
	Database      DatabaseConfig     `toml:"database"`
	Log           LogConfig          `toml:"log"`
	Streaks       StreaksConfig      `toml:"streaks"`
	Notifications NotificationConfig `toml:"notifications"`
	Jobs          JobsConfig         `toml:"jobs"`
	Backup        BackupConfig       `toml:"backup"`
}

// DatabaseConfig selects the backend. URL wins over Path when both are set.
type DatabaseConfig struct {
	Path string `toml:"path"`
	URL  string `toml:"url"`
}

type LogConfig struct {
	Debug bool   `toml:"debug"`
	Dir   string `toml:"dir"`
}

type StreaksConfig struct {
	BasicWindowDays    int    `toml:"basic_window_days"`
	AdvancedWindowDays int    `toml:"advanced_window_days"`
	WeekStart          string `toml:"week_start"`
	MaxWeeks           int    `toml:"max_weeks"`
}

type NotificationConfig struct {
	Enabled    bool  `toml:"enabled"`
	Milestones []int `toml:"milestones"`
}

type JobsConfig struct {
	Concurrency int `toml:"concurrency"`
}

// BackupConfig bounds how many SQLite snapshots are retained.
type BackupConfig struct {
	Keep int `toml:"keep"`
}

// Paths returns standard XDG-compliant paths.
type Paths struct {
	ConfigDir  string
	DataDir    string
	StateDir   string
	ConfigFile string
	DBFile     string
	LogDir     string
}

// GetPaths returns the resolved paths, respecting XDG env vars.
func GetPaths() Paths {
	home, _ := os.UserHomeDir()

	configDir := filepath.Join(envOr("XDG_CONFIG_HOME", filepath.Join(home, ".config")), constants.AppName)
	dataDir := filepath.Join(envOr("XDG_DATA_HOME", filepath.Join(home, ".local", "share")), constants.AppName)
	stateDir := filepath.Join(envOr("XDG_STATE_HOME", filepath.Join(home, ".local", "state")), constants.AppName)

	return Paths{
		ConfigDir:  configDir,
		DataDir:    dataDir,
		StateDir:   stateDir,
		ConfigFile: filepath.Join(configDir, "config.toml"),
		DBFile:     filepath.Join(dataDir, constants.DefaultDBFileName),
		LogDir:     filepath.Join(stateDir, "logs"),
	}
}

// Default returns the configuration used when no file exists.
func Default() *Config {
	paths := GetPaths()
	return &Config{
		Database: DatabaseConfig{Path: paths.DBFile},
		Log:      LogConfig{Dir: paths.LogDir},
		Streaks: StreaksConfig{
			BasicWindowDays:    constants.BasicWindowDays,
			AdvancedWindowDays: constants.AdvancedWindowDays,
			WeekStart:          strings.ToLower(constants.DefaultWeekStart.String()),
			MaxWeeks:           constants.DefaultMaxWeeks,
		},
		Notifications: NotificationConfig{
			Enabled:    true,
			Milestones: append([]int(nil), constants.DefaultMilestones...),
		},
		Jobs:   JobsConfig{Concurrency: constants.DefaultJobConcurrency},
		Backup: BackupConfig{Keep: constants.DefaultBackupKeep},
	}
}

// Load reads the config at the default path.
func Load() (*Config, error) {
	return LoadFrom(GetPaths().ConfigFile)
}

// LoadFrom reads config from path, returning defaults if it does not exist.
// Keys absent from the file keep their default values.
func LoadFrom(path string) (*Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	if _, err := toml.Decode(string(data), cfg); err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", path, err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Save writes cfg to path, creating parent directories.
func Save(path string, cfg *Config) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}

	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	return toml.NewEncoder(f).Encode(cfg)
}

func (c *Config) Validate() error {
	if c.Streaks.BasicWindowDays < 1 {
		return fmt.Errorf("%w: streaks.basic_window_days must be positive", ErrInvalidConfig)
	}
	if c.Streaks.AdvancedWindowDays < 7 {
		return fmt.Errorf("%w: streaks.advanced_window_days must be at least 7", ErrInvalidConfig)
	}
	if c.Streaks.MaxWeeks < 1 {
		return fmt.Errorf("%w: streaks.max_weeks must be positive", ErrInvalidConfig)
	}
	if _, err := ParseWeekday(c.Streaks.WeekStart); err != nil {
		return fmt.Errorf("%w: streaks.week_start: %v", ErrInvalidConfig, err)
	}
	for _, m := range c.Notifications.Milestones {
		if m < 1 {
			return fmt.Errorf("%w: notifications.milestones must be positive, got %d", ErrInvalidConfig, m)
		}
	}
	if c.Jobs.Concurrency < 1 {
		return fmt.Errorf("%w: jobs.concurrency must be positive", ErrInvalidConfig)
	}
	if c.Backup.Keep < 1 {
		return fmt.Errorf("%w: backup.keep must be positive", ErrInvalidConfig)
	}
	return nil
}

// WeekStart returns the configured first day of the week.
func (c *Config) WeekStart() time.Weekday {
	wd, err := ParseWeekday(c.Streaks.WeekStart)
	if err != nil {
		return constants.DefaultWeekStart
	}
	return wd
}

// DatabaseTarget returns the URL when configured, else the SQLite path.
func (c *Config) DatabaseTarget() string {
	if c.Database.URL != "" {
		return c.Database.URL
	}
	return c.Database.Path
}

// ParseWeekday accepts full or three-letter English weekday names.
func ParseWeekday(s string) (time.Weekday, error) {
	name := strings.ToLower(strings.TrimSpace(s))
	for d := time.Sunday; d <= time.Saturday; d++ {
		full := strings.ToLower(d.String())
		if name == full || name == full[:3] {
			return d, nil
		}
	}
	return 0, fmt.Errorf("unknown weekday %q", s)
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
