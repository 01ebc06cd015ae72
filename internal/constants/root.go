package constants

import "time"

const (
	AppName            = "habitd"
	DefaultKeyringUser = "database-connection"
	DefaultDBFileName  = "habitd.db"
	ConnectionEnvVar   = "HABITD_DB_CONNECTION"
	Version            = "v0.3.0"

	// DateFormat is the standard date format used throughout the application (YYYY-MM-DD)
	DateFormat = "2006-01-02"

	// Display windows for read mode
	BasicWindowDays    = 29
	AdvancedWindowDays = 201
	DefaultMaxWeeks    = 26
	DefaultWeekStart   = time.Monday

	// Batch recompute fan-out
	DefaultJobConcurrency = 4

	// SQLite snapshots kept by "habitd backup"
	DefaultBackupKeep = 14
	BackupDirName     = "backups"

	// Rotating log file
	LogMaxSizeMB  = 10
	LogMaxBackups = 3
	LogMaxAgeDays = 28

	// Notify constants
	NotifierLockfileName   = "habitd-notifier.lock"
	NotificationDurationMs = 5000
	TrayAppIdentifier      = "com.julianstephens.habitd"
	TrayExecutablePrefix   = "habitd-tray"

	// Timezone offsets bounding every civil day on earth, in hours
	EarliestUTCOffset = -12
	LatestUTCOffset   = 14
)

// DefaultMilestones are the current-streak lengths that trigger a notification.
var DefaultMilestones = []int{7, 30, 100, 365}
