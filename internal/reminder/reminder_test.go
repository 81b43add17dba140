package reminder

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"remindy/internal/storage"
)

type fakeParser struct {
	t  time.Time
	ok bool
}

func (p fakeParser) Parse(text string, base time.Time) (time.Time, bool) { return p.t, p.ok }

type armedCall struct {
	name string
	at   time.Time
	job  func(ctx context.Context) error
}

type fakeTimers struct {
	mu    sync.Mutex
	calls []armedCall
}

func (f *fakeTimers) AddOnce(name string, at time.Time, timeout time.Duration, job func(ctx context.Context) error) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, armedCall{name: name, at: at, job: job})
	return nil
}

func (f *fakeTimers) armed() []armedCall {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]armedCall, len(f.calls))
	copy(out, f.calls)
	return out
}

type fakeNotifier struct {
	mu    sync.Mutex
	sends []string // "recipient|text"
}

func (f *fakeNotifier) Send(ctx context.Context, recipient, text string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sends = append(f.sends, recipient+"|"+text)
}

func (f *fakeNotifier) all() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]string, len(f.sends))
	copy(out, f.sends)
	return out
}

func newEngine(t *testing.T, cfg Config, parse TimeParser) (*Service, storage.Store, *fakeTimers, *fakeNotifier) {
	t.Helper()
	st, err := storage.Open(storage.Config{Driver: "file", Path: t.TempDir()}, zerolog.Nop())
	if err != nil {
		t.Fatalf("storage.Open: %v", err)
	}
	t.Cleanup(func() { _ = st.Close() })
	timers := &fakeTimers{}
	notifier := &fakeNotifier{}
	svc := New(cfg, st, timers, notifier, parse, time.UTC, zerolog.Nop())
	return svc, st, timers, notifier
}

func TestCreatePersistsAndArms(t *testing.T) {
	t.Parallel()
	due := time.Now().Add(2 * time.Hour).Truncate(time.Second)
	svc, st, timers, notifier := newEngine(t, Config{}, fakeParser{t: due, ok: true})
	ctx := context.Background()

	rec, err := svc.Create(ctx, "remind me to drink water at 3pm", "wa:1001")
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if rec.Number != "wa:1001" {
		t.Fatalf("recipient = %q", rec.Number)
	}

	stored, err := st.Reminders(ctx)
	if err != nil || len(stored) != 1 {
		t.Fatalf("stored = %v, %v; want one record", stored, err)
	}
	got, ok := stored[0].DueAt()
	if !ok || !got.Equal(due) {
		t.Fatalf("stored due = %v, want %v", got, due)
	}

	calls := timers.armed()
	if len(calls) != 1 {
		t.Fatalf("armed %d timers, want 1", len(calls))
	}

	// Firing the armed job delivers the formatted reminder.
	if err := calls[0].job(ctx); err != nil {
		t.Fatalf("job: %v", err)
	}
	sends := notifier.all()
	if len(sends) != 1 || sends[0] != "wa:1001|⏰ Reminder: remind me to drink water at 3pm" {
		t.Fatalf("sends = %v", sends)
	}
}

func TestCreateUnparseableTime(t *testing.T) {
	t.Parallel()
	svc, st, timers, _ := newEngine(t, Config{}, fakeParser{ok: false})
	ctx := context.Background()

	_, err := svc.Create(ctx, "remind me sometime", "wa:1001")
	if !errors.Is(err, ErrUnparseableTime) {
		t.Fatalf("err = %v, want ErrUnparseableTime", err)
	}
	stored, _ := st.Reminders(ctx)
	if len(stored) != 0 {
		t.Fatalf("store mutated on parse failure: %v", stored)
	}
	if len(timers.armed()) != 0 {
		t.Fatal("timer armed on parse failure")
	}
}

func TestCreateRejectsPastTime(t *testing.T) {
	t.Parallel()
	past := time.Now().Add(-time.Hour)
	svc, st, _, _ := newEngine(t, Config{}, fakeParser{t: past, ok: true})

	_, err := svc.Create(context.Background(), "remind me at 3pm", "wa:1001")
	if !errors.Is(err, ErrUnparseableTime) {
		t.Fatalf("err = %v, want ErrUnparseableTime", err)
	}
	stored, _ := st.Reminders(context.Background())
	if len(stored) != 0 {
		t.Fatal("store mutated for past time")
	}
}

func TestReconcileArmsOnlyFutureReminders(t *testing.T) {
	t.Parallel()
	svc, st, timers, _ := newEngine(t, Config{}, fakeParser{})
	ctx := context.Background()
	now := time.Now().UTC()

	future := storage.Reminder{Time: now.Add(time.Hour).Format(time.RFC3339), Message: "future", Number: "n1"}
	past := storage.Reminder{Time: now.Add(-2 * time.Hour).Format(time.RFC3339), Message: "past", Number: "n2"}
	malformed := storage.Reminder{Time: "2026-06-18 15:00:00", Message: "legacy", Number: "n3"}
	for _, r := range []storage.Reminder{future, past, malformed} {
		if err := st.AppendReminder(ctx, r); err != nil {
			t.Fatalf("AppendReminder: %v", err)
		}
	}

	armed, dropped := svc.Reconcile(ctx, now)
	if armed != 1 || dropped != 2 {
		t.Fatalf("armed=%d dropped=%d, want 1/2", armed, dropped)
	}
	calls := timers.armed()
	if len(calls) != 1 {
		t.Fatalf("armed %d timers, want 1", len(calls))
	}
	if !strings.HasPrefix(calls[0].name, "reminder:") {
		t.Fatalf("unexpected timer name %q", calls[0].name)
	}
}

func TestReconcileTwiceDoesNotDoubleArm(t *testing.T) {
	t.Parallel()
	svc, st, timers, _ := newEngine(t, Config{}, fakeParser{})
	ctx := context.Background()
	now := time.Now().UTC()

	rec := storage.Reminder{Time: now.Add(time.Hour).Format(time.RFC3339), Message: "once", Number: "n1"}
	if err := st.AppendReminder(ctx, rec); err != nil {
		t.Fatalf("AppendReminder: %v", err)
	}

	svc.Reconcile(ctx, now)
	svc.Reconcile(ctx, now)
	if got := len(timers.armed()); got != 1 {
		t.Fatalf("armed %d timers across two reconciles, want 1", got)
	}
}

func TestCreateThenReconcileArmsOnce(t *testing.T) {
	t.Parallel()
	due := time.Now().Add(time.Hour).Truncate(time.Second)
	svc, _, timers, _ := newEngine(t, Config{}, fakeParser{t: due, ok: true})
	ctx := context.Background()

	if _, err := svc.Create(ctx, "remind me", "n1"); err != nil {
		t.Fatalf("Create: %v", err)
	}
	// A reconcile in the same process (e.g. defensive re-run) must not
	// double-arm the reminder just created.
	svc.Reconcile(ctx, time.Now().UTC())
	if got := len(timers.armed()); got != 1 {
		t.Fatalf("armed %d timers, want 1", got)
	}
}

func TestReconcileFireMissed(t *testing.T) {
	t.Parallel()
	svc, st, timers, _ := newEngine(t, Config{FireMissed: true}, fakeParser{})
	ctx := context.Background()
	now := time.Now().UTC()

	past := storage.Reminder{Time: now.Add(-2 * time.Hour).Format(time.RFC3339), Message: "missed", Number: "n1"}
	if err := st.AppendReminder(ctx, past); err != nil {
		t.Fatalf("AppendReminder: %v", err)
	}

	armed, dropped := svc.Reconcile(ctx, now)
	if armed != 1 || dropped != 0 {
		t.Fatalf("armed=%d dropped=%d, want 1/0", armed, dropped)
	}
	if got := len(timers.armed()); got != 1 {
		t.Fatalf("armed %d timers, want 1", got)
	}
}

func TestFormatDue(t *testing.T) {
	t.Parallel()
	svc, _, _, _ := newEngine(t, Config{}, fakeParser{})
	rec := storage.Reminder{Time: "2026-06-18T09:30:00Z"}
	if got := svc.FormatDue(rec); got != "18-Jun-2026 09:30 AM" {
		t.Fatalf("FormatDue = %q", got)
	}
}
