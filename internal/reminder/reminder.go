// Package reminder owns one-shot, time-triggered tasks: creation,
// persistence, arming against the timer service, firing, and startup
// reconciliation.
package reminder

import (
	"context"
	"errors"
	"fmt"
	"hash/fnv"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"remindy/internal/storage"
)

// ErrUnparseableTime means no valid future time could be read from the
// command text. The caller reports it to the sender; nothing is persisted.
var ErrUnparseableTime = errors.New("could not understand the reminder time")

const firePrefix = "⏰ Reminder: "

// TimeParser extracts a timestamp from free text, resolved against base.
type TimeParser interface {
	Parse(text string, base time.Time) (t time.Time, ok bool)
}

// Timers is the one-shot scheduling capability this engine consumes.
type Timers interface {
	AddOnce(name string, at time.Time, timeout time.Duration, job func(ctx context.Context) error) error
}

// Notifier delivers the fired reminder text, best-effort.
type Notifier interface {
	Send(ctx context.Context, recipient, text string)
}

type Config struct {
	// FireMissed fires reminders that came due during downtime once at
	// reconcile time instead of dropping them.
	FireMissed bool
}

type Service struct {
	cfg      Config
	store    storage.Store
	timers   Timers
	notifier Notifier
	parse    TimeParser
	loc      *time.Location
	log      zerolog.Logger

	now func() time.Time // test hook

	// armed tracks per-process arming so one logical reminder is never
	// armed twice in a process lifetime, no matter how reconcile and
	// create interleave.
	mu    sync.Mutex
	armed map[string]struct{}
}

func New(cfg Config, store storage.Store, timers Timers, notifier Notifier, parse TimeParser, loc *time.Location, log zerolog.Logger) *Service {
	if loc == nil {
		loc = time.Local
	}
	return &Service{
		cfg:      cfg,
		store:    store,
		timers:   timers,
		notifier: notifier,
		parse:    parse,
		loc:      loc,
		log:      log,
		now:      time.Now,
		armed:    map[string]struct{}{},
	}
}

// Create parses a future time out of text, persists the reminder, and arms
// it. Times are interpreted in the reference zone and stored in UTC so a
// restart in a different process zone cannot drift the fire time.
func (s *Service) Create(ctx context.Context, text, recipient string) (storage.Reminder, error) {
	now := s.now().In(s.loc)
	due, ok := s.parse.Parse(text, now)
	if !ok || !due.After(now) {
		return storage.Reminder{}, ErrUnparseableTime
	}

	rec := storage.Reminder{
		Time:    due.UTC().Format(time.RFC3339),
		Message: text,
		Number:  recipient,
	}
	if err := s.store.AppendReminder(ctx, rec); err != nil {
		return storage.Reminder{}, fmt.Errorf("persist reminder: %w", err)
	}
	s.arm(rec, due)
	s.log.Info().Str("recipient", recipient).Time("due", due).Msg("reminder created")
	return rec, nil
}

// Reconcile re-arms every stored reminder that is still in the future.
// Malformed records are skipped, elapsed ones dropped (or fired once when
// FireMissed is set) so a restart never produces a storm of stale
// notifications. It returns how many reminders were armed and dropped.
func (s *Service) Reconcile(ctx context.Context, now time.Time) (armed, dropped int) {
	list, err := s.store.Reminders(ctx)
	if err != nil {
		s.log.Warn().Err(err).Msg("reconcile: loading reminders failed")
		return 0, 0
	}
	for _, rec := range list {
		due, ok := rec.DueAt()
		if !ok {
			s.log.Debug().Str("time", rec.Time).Msg("reconcile: skipping malformed reminder")
			dropped++
			continue
		}
		if due.After(now) {
			s.arm(rec, due)
			armed++
			continue
		}
		if s.cfg.FireMissed {
			// Past-due AddOnce fires immediately on the worker pool.
			s.arm(rec, due)
			armed++
			continue
		}
		dropped++
	}
	s.log.Info().Int("armed", armed).Int("dropped", dropped).Msg("reminders reconciled")
	return armed, dropped
}

// FormatDue renders the due time for the confirmation reply, in the
// reference zone.
func (s *Service) FormatDue(rec storage.Reminder) string {
	due, ok := rec.DueAt()
	if !ok {
		return rec.Time
	}
	return due.In(s.loc).Format("02-Jan-2006 03:04 PM")
}

// arm schedules the one-shot fire. Arming is idempotent per logical
// reminder within a process lifetime.
func (s *Service) arm(rec storage.Reminder, due time.Time) {
	key := armKey(rec)
	s.mu.Lock()
	if _, dup := s.armed[key]; dup {
		s.mu.Unlock()
		return
	}
	s.armed[key] = struct{}{}
	s.mu.Unlock()

	recipient, message := rec.Number, rec.Message
	if err := s.timers.AddOnce(key, due, 0, func(ctx context.Context) error {
		s.fire(ctx, recipient, message)
		return nil
	}); err != nil {
		s.log.Error().Str("key", key).Err(err).Msg("arming reminder failed")
	}
}

// fire formats and delivers the reminder. Delivery failures are the
// notifier's to log; the reminder counts as handled either way.
func (s *Service) fire(ctx context.Context, recipient, message string) {
	s.notifier.Send(ctx, recipient, firePrefix+message)
}

func armKey(rec storage.Reminder) string {
	h := fnv.New64a()
	_, _ = h.Write([]byte(rec.Number))
	_, _ = h.Write([]byte{0})
	_, _ = h.Write([]byte(rec.Time))
	_, _ = h.Write([]byte{0})
	_, _ = h.Write([]byte(rec.Message))
	return fmt.Sprintf("reminder:%x", h.Sum64())
}
