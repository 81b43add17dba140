package storage

import (
	"context"
	"errors"
	"strings"

	"github.com/rs/zerolog"
)

// Store is the persistence API used by the engines. All mutation funnels
// through here; implementations serialize writes so there is a single
// in-flight write to the backing state at a time.
type Store interface {
	Reminders(ctx context.Context) ([]Reminder, error)
	AppendReminder(ctx context.Context, r Reminder) error

	Alerts(ctx context.Context) ([]StockAlert, error)
	AppendAlert(ctx context.Context, a StockAlert) error
	// ReplaceAlerts swaps the whole active set, replace-on-write.
	ReplaceAlerts(ctx context.Context, alerts []StockAlert) error

	Close() error
}

// Open initializes the configured store.
func Open(cfg Config, log zerolog.Logger) (Store, error) {
	switch strings.ToLower(strings.TrimSpace(cfg.Driver)) {
	case "", "file":
		return openFile(cfg, log)
	case "sqlite", "sqlite3":
		return openSQLite(cfg, log)
	default:
		return nil, errors.New("unknown storage driver: " + cfg.Driver)
	}
}
