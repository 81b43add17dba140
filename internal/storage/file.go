package storage

import (
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/rs/zerolog"
)

const (
	remindersFile = "reminders.json"
	alertsFile    = "stock_alerts.json"
)

// fileStore keeps both collections in memory and mirrors every mutation to
// JSON files via tmp+rename, so a crash mid-write never leaves a torn file.
type fileStore struct {
	log zerolog.Logger

	mu        sync.Mutex
	dir       string
	reminders []Reminder
	alerts    []StockAlert
}

func openFile(cfg Config, log zerolog.Logger) (Store, error) {
	dir := strings.TrimSpace(cfg.Path)
	if dir == "" {
		return nil, errors.New("storage.path is required for file driver")
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, err
	}

	s := &fileStore{log: log, dir: dir}
	s.reminders = loadCollection[Reminder](filepath.Join(dir, remindersFile), log)
	s.alerts = loadCollection[StockAlert](filepath.Join(dir, alertsFile), log)
	log.Debug().Int("reminders", len(s.reminders)).Int("alerts", len(s.alerts)).
		Str("dir", dir).Msg("task store loaded")
	return s, nil
}

// loadCollection reads a persisted collection. Missing or corrupt files
// yield an empty slice: startup must succeed on first run and must not be
// blocked by damaged legacy state.
func loadCollection[T any](path string, log zerolog.Logger) []T {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil
	}
	var out []T
	if err := json.Unmarshal(b, &out); err != nil {
		log.Warn().Str("path", path).Err(err).Msg("corrupt state file; starting empty")
		return nil
	}
	return out
}

func (s *fileStore) Close() error { return nil }

func (s *fileStore) Reminders(ctx context.Context) ([]Reminder, error) {
	_ = ctx
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Reminder, len(s.reminders))
	copy(out, s.reminders)
	return out, nil
}

func (s *fileStore) AppendReminder(ctx context.Context, r Reminder) error {
	_ = ctx
	s.mu.Lock()
	defer s.mu.Unlock()
	next := append(append([]Reminder{}, s.reminders...), r)
	if err := s.writeLocked(remindersFile, next); err != nil {
		return err
	}
	s.reminders = next
	return nil
}

func (s *fileStore) Alerts(ctx context.Context) ([]StockAlert, error) {
	_ = ctx
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]StockAlert, len(s.alerts))
	copy(out, s.alerts)
	return out, nil
}

func (s *fileStore) AppendAlert(ctx context.Context, a StockAlert) error {
	_ = ctx
	s.mu.Lock()
	defer s.mu.Unlock()
	next := append(append([]StockAlert{}, s.alerts...), a)
	if err := s.writeLocked(alertsFile, next); err != nil {
		return err
	}
	s.alerts = next
	return nil
}

func (s *fileStore) ReplaceAlerts(ctx context.Context, alerts []StockAlert) error {
	_ = ctx
	s.mu.Lock()
	defer s.mu.Unlock()
	next := make([]StockAlert, len(alerts))
	copy(next, alerts)
	if err := s.writeLocked(alertsFile, next); err != nil {
		return err
	}
	s.alerts = next
	return nil
}

// writeLocked replaces the named collection file. The in-memory commit
// happens only after a successful rename, so memory and disk cannot
// diverge on a failed write. Call with s.mu held.
func (s *fileStore) writeLocked(name string, v any) error {
	b, err := json.Marshal(v)
	if err != nil {
		return err
	}
	path := filepath.Join(s.dir, name)
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, b, 0o600); err != nil {
		return err
	}
	return os.Rename(tmp, path)
}
