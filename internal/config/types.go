package config

// Config is the full on-disk configuration.
//
// The file may be JSON or YAML (YAML is coerced to JSON before decoding so
// both formats share the same strict decoder). All duration fields are Go
// duration strings (e.g. "5m", "10s").
type Config struct {
	Telegram  TelegramConfig  `json:"telegram"`
	Logging   LoggingConfig   `json:"logging"`
	Scheduler SchedulerConfig `json:"scheduler"`
	Storage   StorageConfig   `json:"storage"`
	Reminders RemindersConfig `json:"reminders,omitempty"`
	Alerts    AlertsConfig    `json:"alerts,omitempty"`
	Notifier  NotifierConfig  `json:"notifier,omitempty"`
}

type TelegramConfig struct {
	Token       string `json:"token"`
	PollTimeout string `json:"poll_timeout,omitempty"` // default "10s"
}

type LoggingConfig struct {
	Level   string        `json:"level"` // trace|debug|info|warn|error
	Console bool          `json:"console"`
	File    LogFileConfig `json:"file,omitempty"`
}

// LogFileConfig enables a JSON file sink with size/age based rotation.
type LogFileConfig struct {
	Enabled    bool   `json:"enabled"`
	Path       string `json:"path,omitempty"`
	MaxSizeMB  int    `json:"max_size_mb,omitempty"`
	MaxBackups int    `json:"max_backups,omitempty"`
	MaxAgeDays int    `json:"max_age_days,omitempty"`
}

type SchedulerConfig struct {
	Workers        int    `json:"workers,omitempty"`
	DefaultTimeout string `json:"default_timeout,omitempty"`

	// Timezone is the reference zone for interpreting reminder times,
	// IANA name, e.g. "Asia/Kolkata". Empty means the process zone.
	Timezone string `json:"timezone,omitempty"`
}

// StorageConfig selects the persistence driver.
//
// Example:
//
//	"storage": { "driver": "file", "path": "./data" }
type StorageConfig struct {
	Driver      string `json:"driver"`                 // "file" (default) or "sqlite"
	Path        string `json:"path"`                   // file: state directory; sqlite: database file
	BusyTimeout string `json:"busy_timeout,omitempty"` // sqlite only
}

type RemindersConfig struct {
	// FireMissed fires reminders whose due time elapsed while the process
	// was down, once, at reconcile time. Default false: drop them silently
	// so a restart never produces a storm of stale notifications.
	FireMissed bool `json:"fire_missed,omitempty"`
}

type AlertsConfig struct {
	CheckEvery   string `json:"check_every,omitempty"`   // default "5m"
	FetchTimeout string `json:"fetch_timeout,omitempty"` // default "5s"

	// QuoteBaseURL overrides the NSE endpoint (tests, proxies).
	QuoteBaseURL string `json:"quote_base_url,omitempty"`
}

type NotifierConfig struct {
	RatePerSec int `json:"rate_per_sec,omitempty"` // default 3
}
